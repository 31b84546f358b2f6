package node

import "github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"

// SourcePos is a lightweight advisory position carried by nodes that need
// to remember where they were defined for diagnostics. It intentionally
// does not depend on the token package (an external-collaborator concern
// per spec §6.1); the parser fills it in from whatever token it consumed.
type SourcePos struct {
	File   string
	Line   int
	Column int
}

// RefQualifier is the reference-ness of a type use.
type RefQualifier int

const (
	RefNone RefQualifier = iota
	RefLValue
	RefRValue
)

func (r RefQualifier) String() string {
	switch r {
	case RefLValue:
		return "&"
	case RefRValue:
		return "&&"
	default:
		return ""
	}
}

// CVQualifier is a const/volatile pair attachable to a type or pointer
// level.
type CVQualifier struct {
	Const    bool
	Volatile bool
}

func (cv CVQualifier) String() string {
	s := ""
	if cv.Const {
		s += "const "
	}
	if cv.Volatile {
		s += "volatile "
	}
	return s
}

// PointerLevel is one level of pointer indirection with its own
// CV-qualification, e.g. in `int* const *`, the outer level is
// {Const:true} and the inner is {}.
type PointerLevel struct {
	CV CVQualifier
}

// TypeSpecifier describes one "type use" per spec §3.2. It is both a
// free-standing value (embedded in declarations, parameters, casts) and,
// when it needs its own arena identity (e.g. as the target of substitution
// bookkeeping), wrapped by TypeSpecifierNode below.
type TypeSpecifier struct {
	Base      typekind.Type
	Index     typekind.TypeIndex
	Pointers  []PointerLevel
	Ref       RefQualifier
	CV        CVQualifier
	IsArray   bool
	ArraySize *int64 // nil if unsized (e.g. `T[]` in a parameter) or dependent
	SizeBits  int64  // cache; 0 until computed
	Defined   SourcePos

	// TemplateParamName is set when this specifier is itself a bare
	// reference to a template type parameter (dependent type), e.g. the
	// `T` in `template<typename T> T id(T)`. Substitution replaces the
	// whole TypeSpecifier when this is non-empty.
	TemplateParamName string

	// PackExpansion marks a trailing `...` in a template-argument or
	// base-specifier position (e.g. `R...` in `Tuple<R...>`). Only
	// meaningful together with TemplateParamName; the Instantiation Engine
	// expands it against the bound pack rather than substituting a single
	// type.
	PackExpansion bool

	// IsDeclType marks a `decltype(expr)` type specifier, used almost
	// exclusively in trailing return-type position for SFINAE (spec §8.3
	// scenario 3: a trailing `decltype` expression that fails to
	// substitute rules out the overload rather than erroring). DeclType
	// holds the unevaluated expression; it is only meaningful together
	// with IsDeclType.
	IsDeclType bool
	DeclType   Handle
}

// Clone deep-copies the specifier (pointer-level slice included) so
// substitution never aliases a template's original AST.
func (ts TypeSpecifier) Clone() TypeSpecifier {
	cp := ts
	cp.Pointers = append([]PointerLevel(nil), ts.Pointers...)
	if ts.ArraySize != nil {
		v := *ts.ArraySize
		cp.ArraySize = &v
	}
	return cp
}

// Dependent reports whether this specifier still names an unresolved
// template parameter.
func (ts TypeSpecifier) Dependent() bool {
	return ts.TemplateParamName != "" || ts.Index == typekind.InvalidIndex && ts.Base == typekind.Template
}

// CollapseReference applies reference-collapsing (spec §3.2, §4.I, §8.1):
//
//	T&  && -> T&
//	T&& && -> T&&
//	T   && -> T&&  (forwarding reference case)
//
// rhs is the reference-ness being forced through (almost always RValue, the
// `&&` in a forwarding-reference parameter); lhs is the reference-ness the
// deduced/substituted type already carries.
func CollapseReference(lhs, rhs RefQualifier) RefQualifier {
	if lhs == RefLValue || rhs == RefLValue {
		return RefLValue
	}
	if lhs == RefRValue || rhs == RefRValue {
		return RefRValue
	}
	return RefNone
}

// TypeSpecifierNode gives a TypeSpecifier its own arena handle, used where
// the spec's AST enumeration lists TypeSpecifier as a first-class node
// variant (return types, parameter types, cast targets that other nodes
// reference by Handle rather than embedding by value).
type TypeSpecifierNode struct {
	base
	Spec TypeSpecifier
}

// NewTypeSpecifierNode constructs and emplaces a TypeSpecifierNode.
func NewTypeSpecifierNode(a *Arena, spec TypeSpecifier) Handle {
	n := &TypeSpecifierNode{base: base{kind: KindTypeSpecifier}, Spec: spec}
	return a.emplace(n)
}
