package node

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/cursorid"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

// Linkage is the recognized extern-linkage specifier (spec §4.F).
type Linkage int

const (
	LinkageNone Linkage = iota
	LinkageC
	LinkageCpp
)

// CallingConvention is the recognized calling-convention annotation.
type CallingConvention int

const (
	CallingConventionDefault CallingConvention = iota
	CallingConventionCdecl
	CallingConventionStdcall
	CallingConventionFastcall
)

// Access is a member access specifier.
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

// Declaration is the generic top-level declaration wrapper: namespace
// members, using-declarations, and anything that doesn't need its own
// richer variant reference another node by Target and carry a Name.
type Declaration struct {
	base
	Name   strtab.Handle
	Target Handle
}

func NewDeclaration(a *Arena, name strtab.Handle, target Handle) Handle {
	return a.emplace(&Declaration{base: base{kind: KindDeclaration}, Name: name, Target: target})
}

// ParameterDeclaration is one function parameter.
type ParameterDeclaration struct {
	base
	Name         strtab.Handle
	Type         Handle // TypeSpecifierNode
	IsPack       bool   // variadic type-parameter pack expansion
	DefaultValue Handle // expression, or Invalid
}

func NewParameterDeclaration(a *Arena, p ParameterDeclaration) Handle {
	p.base = base{kind: KindParameterDeclaration}
	return a.emplace(&p)
}

// FunctionDeclaration covers free functions, methods, and the materialized
// product of function-template instantiation (spec §3.3, §4.J.2).
type FunctionDeclaration struct {
	base
	Name              strtab.Handle
	MangledName       strtab.Handle
	ReturnType        Handle // TypeSpecifierNode
	Parameters        []Handle
	Body              Handle // Block, or Invalid if only declared
	NamespacePath     []strtab.Handle
	IsVariadic        bool
	HasTrailingReturn bool

	Static, Inline, Constexpr, Consteval, Constinit, Extern bool
	Linkage                                                 Linkage
	CallingConvention                                       CallingConvention

	// Member-function specific (spec §4.F); zero-valued for free functions.
	IsMember                      bool
	Access                        Access
	Virtual, Override, Final      bool
	PureVirtual                   bool
	Defaulted, Deleted            bool
	NoexceptExpr                  Handle // expression, or Invalid if unconditional/absent
	HasNoexcept                   bool
	CVQualifier                   CVQualifier
	RefQualifierOnThis            RefQualifier

	// Deferred-body cursors (spec §3.3 invariant, §4.E): every template
	// function declaration stores enough lexer positions to re-parse
	// itself under any SFINAE/substitution context. Zero-valued
	// (cursorid.Invalid) for non-template declarations.
	DeclarationStartCursor  cursorid.ID
	BodyStartCursor         cursorid.ID
	TrailingReturnStartCursor cursorid.ID

	// InlineAlways is set post-instantiation when the body is a pure
	// expression or was skipped on cycle detection (spec §4.J.2.7).
	InlineAlways bool
}

func NewFunctionDeclaration(a *Arena, fd FunctionDeclaration) Handle {
	fd.base = base{kind: KindFunctionDeclaration}
	return a.emplace(&fd)
}

// ConstructorDeclaration is always eagerly instantiated (spec §4.J.3.6).
type ConstructorDeclaration struct {
	base
	Parameters   []Handle
	Body         Handle
	Access       Access
	Defaulted    bool
	Deleted      bool
	Explicit     bool
	BodyStartCursor cursorid.ID
}

func NewConstructorDeclaration(a *Arena, c ConstructorDeclaration) Handle {
	c.base = base{kind: KindConstructorDeclaration}
	return a.emplace(&c)
}

// DestructorDeclaration is always eagerly instantiated.
type DestructorDeclaration struct {
	base
	Body            Handle
	Virtual         bool
	Defaulted       bool
	Deleted         bool
	BodyStartCursor cursorid.ID
}

func NewDestructorDeclaration(a *Arena, d DestructorDeclaration) Handle {
	d.base = base{kind: KindDestructorDeclaration}
	return a.emplace(&d)
}

// BaseClassSpec describes one base class of a StructDeclaration.
type BaseClassSpec struct {
	Name     strtab.Handle
	Type     typekind.TypeIndex
	Access   Access
	Virtual  bool
	// Deferred is set for a dependent base (e.g. `Tuple<R...>` inside a
	// class template) that must be resolved during instantiation rather
	// than at primary-template parse time (spec §4.J.3.5).
	Deferred bool
	DeferredExpr Handle // decltype/template-id expression, if Deferred
}

// MemberField is one non-static data member.
type MemberField struct {
	Name              strtab.Handle
	Type              Handle // TypeSpecifierNode
	Offset            int64
	Access            Access
	DefaultInit       Handle // expression, or Invalid
	BitfieldWidth     *int64
	IsBitfield        bool
	RefQualifierSize  int64
	PointerDepth      int
}

// StaticMember is a static data member, possibly with a complex
// initializer deferred for lazy instantiation (spec §4.J.3.5).
type StaticMember struct {
	Name        strtab.Handle
	Type        Handle
	Initializer Handle
	Const       bool
	Access      Access
	LazyKey     string // set when registered with LazyStaticMemberRegistry
}

// StructDeclaration is the AST representation of a struct/class/union,
// independent from the TypeRegistry's StructTypeInfo (which carries the
// computed layout); the declaration carries the as-parsed member list that
// feeds layout computation.
type StructDeclaration struct {
	base
	Name           strtab.Handle
	TypeIndex      typekind.TypeIndex
	IsUnion        bool
	IsFinal        bool
	IsAbstract     bool
	Bases          []BaseClassSpec
	Fields         []MemberField
	StaticMembers  []StaticMember
	Methods        []Handle // FunctionDeclaration handles
	Constructors   []Handle
	Destructor     Handle
	NestedClasses  []Handle // StructDeclaration handles
	TypeAliases    map[string]Handle
	DeferredAsserts []Handle // expressions re-evaluated under substitution
	PackAlignment  int64
}

func NewStructDeclaration(a *Arena, s StructDeclaration) Handle {
	s.base = base{kind: KindStructDeclaration}
	if s.TypeAliases == nil {
		s.TypeAliases = map[string]Handle{}
	}
	return a.emplace(&s)
}

// TemplateParameter is one parameter of a template<...> header: a type
// parameter, non-type parameter, or template-template parameter.
type TemplateParameterKind int

const (
	TemplateParamType TemplateParameterKind = iota
	TemplateParamNonType
	TemplateParamTemplate
)

type TemplateParameter struct {
	base
	Name          strtab.Handle
	ParamKind     TemplateParameterKind
	IsPack        bool
	NonTypeType   Handle // TypeSpecifierNode, for non-type parameters
	Default       Handle // expression or TypeSpecifierNode, or Invalid
	ConceptName   strtab.Handle // abbreviated-template constraint, or Invalid
}

func NewTemplateParameter(a *Arena, tp TemplateParameter) Handle {
	tp.base = base{kind: KindTemplateParameter}
	return a.emplace(&tp)
}

// TemplateFunctionDeclaration wraps a FunctionDeclaration header with its
// template parameter list and optional requires-clause; the body is
// parsed together with the header (spec §4.F, §4.J.2).
type TemplateFunctionDeclaration struct {
	base
	Name              strtab.Handle
	TemplateParams    []Handle // TemplateParameter handles
	Function          Handle   // FunctionDeclaration (header and body as parsed)
	RequiresClause    Handle   // RequiresClause, or Invalid
	NamespacePath     []strtab.Handle
}

func NewTemplateFunctionDeclaration(a *Arena, t TemplateFunctionDeclaration) Handle {
	t.base = base{kind: KindTemplateFunctionDeclaration}
	return a.emplace(&t)
}

// TemplateClassDeclaration is a class template primary or partial
// specialization pattern (spec §4.G, §4.J.3).
type TemplateClassDeclaration struct {
	base
	Name             strtab.Handle
	TemplateParams   []Handle
	Struct           Handle // StructDeclaration body, as-parsed
	RequiresClause   Handle
	IsPartialSpec    bool
	PatternArguments []Handle // only set when IsPartialSpec
	IsFullSpec       bool
	FullSpecArguments []Handle
}

func NewTemplateClassDeclaration(a *Arena, t TemplateClassDeclaration) Handle {
	t.base = base{kind: KindTemplateClassDeclaration}
	return a.emplace(&t)
}

// TemplateAlias is a `using Name = ...;` alias template.
type TemplateAlias struct {
	base
	Name           strtab.Handle
	TemplateParams []Handle
	Aliased        Handle // TypeSpecifierNode
}

func NewTemplateAlias(a *Arena, t TemplateAlias) Handle {
	t.base = base{kind: KindTemplateAlias}
	return a.emplace(&t)
}

// ConceptDeclaration registers a named constraint expression (spec §4.F).
type ConceptDeclaration struct {
	base
	Name           strtab.Handle
	TemplateParams []Handle
	Constraint     Handle // expression
}

func NewConceptDeclaration(a *Arena, c ConceptDeclaration) Handle {
	c.base = base{kind: KindConceptDeclaration}
	return a.emplace(&c)
}

// RequiresClause is a boolean constraint attached to a template
// declaration.
type RequiresClause struct {
	base
	Expr Handle
}

func NewRequiresClause(a *Arena, expr Handle) Handle {
	return a.emplace(&RequiresClause{base: base{kind: KindRequiresClause}, Expr: expr})
}

// Block is a compound statement: an ordered list of statement/expression
// nodes.
type Block struct {
	base
	Statements []Handle
}

func NewBlock(a *Arena, statements []Handle) Handle {
	return a.emplace(&Block{base: base{kind: KindBlock}, Statements: statements})
}

// ReturnStatement wraps the returned expression, or Invalid for `return;`.
type ReturnStatement struct {
	base
	Value Handle
}

func NewReturnStatement(a *Arena, value Handle) Handle {
	return a.emplace(&ReturnStatement{base: base{kind: KindReturnStatement}, Value: value})
}
