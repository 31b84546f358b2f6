// Package node implements the Node Arena (component B): a sequential,
// chunked allocator handing out stable handles to a closed sum of typed AST
// node variants (spec §3.3). No node is ever moved or freed during
// compilation.
package node

// Handle is a dense, stable index into the arena. The zero value is
// reserved as "invalid" so zero-valued struct fields read unambiguously as
// "not set" rather than "points at node 0".
type Handle uint32

// Invalid is the reserved zero handle.
const Invalid Handle = 0

// Kind tags every node variant in the closed AST sum.
type Kind int

const (
	KindInvalid Kind = iota

	KindDeclaration
	KindTypeSpecifier
	KindFunctionDeclaration
	KindConstructorDeclaration
	KindDestructorDeclaration
	KindParameterDeclaration
	KindStructDeclaration
	KindTemplateFunctionDeclaration
	KindTemplateClassDeclaration
	KindTemplateParameter
	KindTemplateAlias
	KindConceptDeclaration
	KindRequiresClause
	KindBlock
	KindReturnStatement

	// Expression variants.
	KindExprLiteral
	KindExprIdentifier
	KindExprQualifiedIdentifier
	KindExprBinary
	KindExprUnary
	KindExprTernary
	KindExprCall
	KindExprMemberAccess
	KindExprCast
	KindExprStaticCast
	KindExprConstructorCall
	KindExprFold
	KindExprSizeofPack
	KindExprTypeTrait
	KindExprTemplateParamRef
	KindExprComma
)

var kindNames = map[Kind]string{
	KindInvalid:                     "<invalid>",
	KindDeclaration:                 "Declaration",
	KindTypeSpecifier:               "TypeSpecifier",
	KindFunctionDeclaration:         "FunctionDeclaration",
	KindConstructorDeclaration:      "ConstructorDeclaration",
	KindDestructorDeclaration:       "DestructorDeclaration",
	KindParameterDeclaration:        "ParameterDeclaration",
	KindStructDeclaration:           "StructDeclaration",
	KindTemplateFunctionDeclaration: "TemplateFunctionDeclaration",
	KindTemplateClassDeclaration:    "TemplateClassDeclaration",
	KindTemplateParameter:           "TemplateParameter",
	KindTemplateAlias:               "TemplateAlias",
	KindConceptDeclaration:          "ConceptDeclaration",
	KindRequiresClause:              "RequiresClause",
	KindBlock:                       "Block",
	KindReturnStatement:             "ReturnStatement",
	KindExprLiteral:                 "ExprLiteral",
	KindExprIdentifier:              "ExprIdentifier",
	KindExprQualifiedIdentifier:     "ExprQualifiedIdentifier",
	KindExprBinary:                  "ExprBinary",
	KindExprUnary:                   "ExprUnary",
	KindExprTernary:                 "ExprTernary",
	KindExprCall:                    "ExprCall",
	KindExprMemberAccess:            "ExprMemberAccess",
	KindExprCast:                    "ExprCast",
	KindExprStaticCast:              "ExprStaticCast",
	KindExprConstructorCall:         "ExprConstructorCall",
	KindExprFold:                    "ExprFold",
	KindExprSizeofPack:              "ExprSizeofPack",
	KindExprTypeTrait:               "ExprTypeTrait",
	KindExprTemplateParamRef:        "ExprTemplateParamRef",
	KindExprComma:                   "ExprComma",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "<unknown-kind>"
}

// ASTNode is implemented by every concrete node struct in the closed sum.
// Self returns the node's own handle so code holding a value (not a
// pointer, since the arena never hands out long-lived pointers across
// mutations) can still identify it.
type ASTNode interface {
	Kind() Kind
	Self() Handle
	setSelf(Handle)
}

// base is embedded by every concrete node type to provide Kind/Self.
type base struct {
	self Handle
	kind Kind
}

func (b *base) Self() Handle    { return b.self }
func (b *base) setSelf(h Handle) { b.self = h }
func (b *base) Kind() Kind       { return b.kind }
