package node

import "github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"

// BinaryOp / UnaryOp are the recognized operator spellings. Kept as plain
// strings rather than a closed enum since the evaluator (constraint
// requires-expressions, fold expressions) only ever needs to re-render or
// pattern-match them, never exhaustively switch at the parser boundary.
type BinaryOp string
type UnaryOp string

const (
	OpLogicalAnd BinaryOp = "&&"
	OpLogicalOr  BinaryOp = "||"
	OpEqual      BinaryOp = "=="
	OpNotEqual   BinaryOp = "!="
	OpAdd        BinaryOp = "+"
	OpSub        BinaryOp = "-"
	OpMul        BinaryOp = "*"
	OpDiv        BinaryOp = "/"
	OpLess       BinaryOp = "<"
	OpGreater    BinaryOp = ">"
	OpLessEq     BinaryOp = "<="
	OpGreaterEq  BinaryOp = ">="
)

const (
	OpLogicalNot UnaryOp = "!"
	OpNegate     UnaryOp = "-"
	OpAddressOf  UnaryOp = "&"
	OpDeref      UnaryOp = "*"
)

// LiteralKind distinguishes literal payload shapes.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralBool
	LiteralFloat
	LiteralString
	LiteralChar
)

type ExprLiteral struct {
	base
	LitKind LiteralKind
	Int     int64
	Bool    bool
	Float   float64
	Str     string
}

func NewExprLiteralInt(a *Arena, v int64) Handle {
	return a.emplace(&ExprLiteral{base: base{kind: KindExprLiteral}, LitKind: LiteralInt, Int: v})
}

func NewExprLiteralBool(a *Arena, v bool) Handle {
	return a.emplace(&ExprLiteral{base: base{kind: KindExprLiteral}, LitKind: LiteralBool, Bool: v})
}

func NewExprLiteral(a *Arena, l ExprLiteral) Handle {
	l.base = base{kind: KindExprLiteral}
	return a.emplace(&l)
}

// ExprIdentifier is a bare name reference, resolved against the Symbol
// Table at the point it's visited.
type ExprIdentifier struct {
	base
	Name strtab.Handle
}

func NewExprIdentifier(a *Arena, name strtab.Handle) Handle {
	return a.emplace(&ExprIdentifier{base: base{kind: KindExprIdentifier}, Name: name})
}

// ExprQualifiedIdentifier is `A::B::name`.
type ExprQualifiedIdentifier struct {
	base
	Path []strtab.Handle
	Name strtab.Handle
}

func NewExprQualifiedIdentifier(a *Arena, path []strtab.Handle, name strtab.Handle) Handle {
	return a.emplace(&ExprQualifiedIdentifier{base: base{kind: KindExprQualifiedIdentifier}, Path: path, Name: name})
}

type ExprBinary struct {
	base
	Op    BinaryOp
	Left  Handle
	Right Handle
}

func NewExprBinary(a *Arena, op BinaryOp, left, right Handle) Handle {
	return a.emplace(&ExprBinary{base: base{kind: KindExprBinary}, Op: op, Left: left, Right: right})
}

type ExprUnary struct {
	base
	Op      UnaryOp
	Operand Handle
}

func NewExprUnary(a *Arena, op UnaryOp, operand Handle) Handle {
	return a.emplace(&ExprUnary{base: base{kind: KindExprUnary}, Op: op, Operand: operand})
}

type ExprTernary struct {
	base
	Cond, Then, Else Handle
}

func NewExprTernary(a *Arena, cond, then, els Handle) Handle {
	return a.emplace(&ExprTernary{base: base{kind: KindExprTernary}, Cond: cond, Then: then, Else: els})
}

// ExprCall is `callee(args...)`, possibly a template-id callee requiring
// instantiation (handled by the caller, not by the node itself).
type ExprCall struct {
	base
	Callee        Handle
	Args          []Handle
	ExplicitArgs  []Handle // template-id explicit args, e.g. f<int>(x)
}

func NewExprCall(a *Arena, callee Handle, args []Handle) Handle {
	return a.emplace(&ExprCall{base: base{kind: KindExprCall}, Callee: callee, Args: args})
}

// ExprMemberAccess is `obj.member` or `obj->member`.
type ExprMemberAccess struct {
	base
	Object Handle
	Member strtab.Handle
	Arrow  bool
}

func NewExprMemberAccess(a *Arena, obj Handle, member strtab.Handle, arrow bool) Handle {
	return a.emplace(&ExprMemberAccess{base: base{kind: KindExprMemberAccess}, Object: obj, Member: member, Arrow: arrow})
}

// ExprCast is a C-style or functional cast.
type ExprCast struct {
	base
	Target   Handle // TypeSpecifierNode
	Operand  Handle
}

func NewExprCast(a *Arena, target, operand Handle) Handle {
	return a.emplace(&ExprCast{base: base{kind: KindExprCast}, Target: target, Operand: operand})
}

// StaticCastKind distinguishes the static_cast family.
type StaticCastKind int

const (
	StaticCast StaticCastKind = iota
	ConstCast
	ReinterpretCast
	DynamicCast
)

type ExprStaticCast struct {
	base
	CastKind StaticCastKind
	Target   Handle
	Operand  Handle
}

func NewExprStaticCast(a *Arena, k StaticCastKind, target, operand Handle) Handle {
	return a.emplace(&ExprStaticCast{base: base{kind: KindExprStaticCast}, CastKind: k, Target: target, Operand: operand})
}

// ExprConstructorCall is `Type(args...)` / `Type{args...}`.
type ExprConstructorCall struct {
	base
	Type Handle // TypeSpecifierNode
	Args []Handle
}

func NewExprConstructorCall(a *Arena, t Handle, args []Handle) Handle {
	return a.emplace(&ExprConstructorCall{base: base{kind: KindExprConstructorCall}, Type: t, Args: args})
}

// ExprFold is `(pack op ...)` / `(... op pack)` / binary fold forms (spec
// §4.I, §8.3 scenario 5).
type FoldDirection int

const (
	FoldUnaryRight FoldDirection = iota // (pack op ...)
	FoldUnaryLeft                       // (... op pack)
	FoldBinaryRight                     // (pack op ... op init)
	FoldBinaryLeft                      // (init op ... op pack)
)

type ExprFold struct {
	base
	Op        BinaryOp
	Direction FoldDirection
	Pack      Handle // TemplateParameterReference naming the pack
	Init      Handle // only for binary fold forms
}

func NewExprFold(a *Arena, f ExprFold) Handle {
	f.base = base{kind: KindExprFold}
	return a.emplace(&f)
}

// ExprSizeofPack is `sizeof...(pack)`.
type ExprSizeofPack struct {
	base
	PackName strtab.Handle
}

func NewExprSizeofPack(a *Arena, packName strtab.Handle) Handle {
	return a.emplace(&ExprSizeofPack{base: base{kind: KindExprSizeofPack}, PackName: packName})
}

// TypeTrait is the closed set of compiler-intrinsic trait queries this
// core recognizes (spec §4.J.2.4, §8.3 scenario 4).
type TypeTrait string

const (
	TraitIsIntegral     TypeTrait = "__is_integral"
	TraitIsFloatingPoint TypeTrait = "__is_floating_point"
	TraitIsClass        TypeTrait = "__is_class"
	TraitIsSame         TypeTrait = "__is_same"
	TraitIsBaseOf       TypeTrait = "__is_base_of"
)

// ExprTypeTrait is `__is_integral(T)`-shaped compiler intrinsics used by
// concept definitions.
type ExprTypeTrait struct {
	base
	Trait TypeTrait
	Args  []Handle // TypeSpecifierNode handles
}

func NewExprTypeTrait(a *Arena, trait TypeTrait, args []Handle) Handle {
	return a.emplace(&ExprTypeTrait{base: base{kind: KindExprTypeTrait}, Trait: trait, Args: args})
}

// ExprComma is a comma-operator sequence, `a, b, c`, used almost
// exclusively inside a `decltype(...)` trailing return type to sequence a
// validity check before the expression whose type actually matters (spec
// §8.3 scenario 3: `decltype(x.foo(), void())`). Evaluates/type-checks
// every element in order; the decltype's resulting type is that of the
// last one.
type ExprComma struct {
	base
	Exprs []Handle
}

func NewExprComma(a *Arena, exprs []Handle) Handle {
	return a.emplace(&ExprComma{base: base{kind: KindExprComma}, Exprs: exprs})
}

// ExprTemplateParamRef is a bare reference to a template parameter inside
// a dependent expression, pending substitution (spec §4.I).
type ExprTemplateParamRef struct {
	base
	ParamName strtab.Handle
	IsPack    bool
}

func NewExprTemplateParamRef(a *Arena, name strtab.Handle, isPack bool) Handle {
	return a.emplace(&ExprTemplateParamRef{base: base{kind: KindExprTemplateParamRef}, ParamName: name, IsPack: isPack})
}
