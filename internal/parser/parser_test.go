package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/tokfixture"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

func newParser(src string) *Parser {
	tz := tokfixture.New(src, 0)
	adapter := token.New(tz)
	strs := strtab.New()
	arena := node.NewArena()
	types := typesys.NewRegistry()
	syms := symtab.New()
	templates := template.New(strs)
	return New(adapter, strs, arena, types, syms, templates)
}

func TestParseFreeFunctionDeclaration(t *testing.T) {
	p := newParser("int add(int a, int b) { return a; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, h)
	assert.Equal(t, "add", p.Strs.MustView(fn.Name))
	assert.Len(t, fn.Parameters, 2)
	assert.NotEqual(t, node.Invalid, fn.Body)
}

func TestParseFunctionDeclarationOnlyNoBody(t *testing.T) {
	p := newParser("void f();")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, h)
	assert.Equal(t, node.Invalid, fn.Body)
}

func TestParseStructWithFieldsAndBase(t *testing.T) {
	p := newParser("struct Derived : public Base { int x; int y; };")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	sd := node.MustGet[*node.StructDeclaration](p.Arena, h)
	assert.Equal(t, "Derived", p.Strs.MustView(sd.Name))
	require.Len(t, sd.Bases, 1)
	assert.Equal(t, node.AccessPublic, sd.Bases[0].Access)
	assert.Len(t, sd.Fields, 2)
}

func TestParseStructDefaultsToPrivateAccessForClass(t *testing.T) {
	p := newParser("class C { int x; public: int y; };")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	sd := node.MustGet[*node.StructDeclaration](p.Arena, h)
	require.Len(t, sd.Fields, 2)
	assert.Equal(t, node.AccessPrivate, sd.Fields[0].Access)
	assert.Equal(t, node.AccessPublic, sd.Fields[1].Access)
}

func TestParseMemberFunctionQualifiers(t *testing.T) {
	p := newParser("class C { public: virtual void f() const override; };")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	sd := node.MustGet[*node.StructDeclaration](p.Arena, h)
	require.Len(t, sd.Methods, 1)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, sd.Methods[0])
	assert.True(t, fn.Virtual)
	assert.True(t, fn.Override)
	assert.True(t, fn.CVQualifier.Const)
}

func TestParseConstructorAndDestructor(t *testing.T) {
	p := newParser("class C { public: C(int x); ~C(); };")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	sd := node.MustGet[*node.StructDeclaration](p.Arena, h)
	require.Len(t, sd.Constructors, 1)
	assert.NotEqual(t, node.Invalid, sd.Destructor)
}

func TestParseTemplateFunctionDeclarationDefersBody(t *testing.T) {
	p := newParser("template <typename T> T id(T x) { return x; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tfd := node.MustGet[*node.TemplateFunctionDeclaration](p.Arena, h)
	assert.Equal(t, "id", p.Strs.MustView(tfd.Name))
	require.Len(t, tfd.TemplateParams, 1)

	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, tfd.Function)
	assert.NotEqual(t, node.Invalid, fn.Body, "eager-parse also fills Body; deferred re-parse is for re-entrant instantiation")
	assert.NotZero(t, fn.BodyStartCursor)
}

func TestParseTemplateClassWithRequiresClause(t *testing.T) {
	p := newParser("template <typename T> requires __is_integral(T) struct Box { T value; };")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tcd := node.MustGet[*node.TemplateClassDeclaration](p.Arena, h)
	assert.NotEqual(t, node.Invalid, tcd.RequiresClause)
	sd := node.MustGet[*node.StructDeclaration](p.Arena, tcd.Struct)
	assert.Equal(t, "Box", p.Strs.MustView(sd.Name))
}

func TestParseConceptDeclaration(t *testing.T) {
	p := newParser("template <typename T> concept Integral = __is_integral(T);")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	c := node.MustGet[*node.ConceptDeclaration](p.Arena, h)
	assert.Equal(t, "Integral", p.Strs.MustView(c.Name))
	assert.NotEqual(t, node.Invalid, c.Constraint)
}

func TestParseNamespaceBindsMembers(t *testing.T) {
	p := newParser("namespace N { int f(); }")
	_, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	// After parsing, the namespace scope has been exited; only a qualified
	// lookup from the global namespace tree should find `f`.
	nName := p.Strs.Intern("N")
	fName := p.Strs.Intern("f")
	_, ok := p.Syms.LookupQualified([]strtab.Handle{nName}, fName)
	assert.True(t, ok)
}

func TestParseFunctionTemplateCallExpression(t *testing.T) {
	p := newParser("int main() { return id(5); }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, h)
	block := node.MustGet[*node.Block](p.Arena, fn.Body)
	require.Len(t, block.Statements, 1)
	ret := node.MustGet[*node.ReturnStatement](p.Arena, block.Statements[0])
	call := node.MustGet[*node.ExprCall](p.Arena, ret.Value)
	require.Len(t, call.Args, 1)
}

func TestParseFoldExpression(t *testing.T) {
	p := newParser("template <typename... Ts> int sum(Ts... ts) { return (ts + ...); }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tfd := node.MustGet[*node.TemplateFunctionDeclaration](p.Arena, h)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, tfd.Function)
	block := node.MustGet[*node.Block](p.Arena, fn.Body)
	ret := node.MustGet[*node.ReturnStatement](p.Arena, block.Statements[0])
	fold := node.MustGet[*node.ExprFold](p.Arena, ret.Value)
	assert.Equal(t, node.FoldUnaryRight, fold.Direction)
	assert.Equal(t, node.OpAdd, fold.Op)
}

func TestReparseDeferredBodyProducesEquivalentBlock(t *testing.T) {
	p := newParser("template <typename T> T id(T x) { return x; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tfd := node.MustGet[*node.TemplateFunctionDeclaration](p.Arena, h)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, tfd.Function)

	fn.Body = node.Invalid // simulate a clone whose body has not been re-parsed yet
	err = p.ReparseDeferredBody(fn)
	require.NoError(t, err)
	assert.NotEqual(t, node.Invalid, fn.Body)
}

func TestParseDeclTypeTrailingReturnType(t *testing.T) {
	p := newParser("template <typename T> auto call(T x) -> decltype(x.bar(), void()) { return 1; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tfd := node.MustGet[*node.TemplateFunctionDeclaration](p.Arena, h)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, tfd.Function)
	require.True(t, fn.HasTrailingReturn)
	require.NotZero(t, fn.TrailingReturnStartCursor)

	retSpec := node.MustGet[*node.TypeSpecifierNode](p.Arena, fn.ReturnType)
	require.True(t, retSpec.Spec.IsDeclType)
	comma := node.MustGet[*node.ExprComma](p.Arena, retSpec.Spec.DeclType)
	require.Len(t, comma.Exprs, 2)
	member := node.MustGet[*node.ExprMemberAccess](p.Arena, node.MustGet[*node.ExprCall](p.Arena, comma.Exprs[0]).Callee)
	assert.Equal(t, "bar", p.Strs.MustView(member.Member))
}

func TestReparseTrailingReturnTypeProducesEquivalentSpecifier(t *testing.T) {
	p := newParser("template <typename T> auto call(T x) -> decltype(x.bar(), void()) { return 1; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	tfd := node.MustGet[*node.TemplateFunctionDeclaration](p.Arena, h)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, tfd.Function)

	typeHandle, err := p.ReparseTrailingReturnType(fn)
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, typeHandle)
	retSpec := node.MustGet[*node.TypeSpecifierNode](p.Arena, typeHandle)
	assert.True(t, retSpec.Spec.IsDeclType)
}

func TestReparseTrailingReturnTypeInvalidWhenNoTrailingReturn(t *testing.T) {
	p := newParser("int add(int a, int b) { return a; }")
	h, err := p.ParseTopLevelDeclaration()
	require.NoError(t, err)
	fn := node.MustGet[*node.FunctionDeclaration](p.Arena, h)

	typeHandle, err := p.ReparseTrailingReturnType(fn)
	require.NoError(t, err)
	assert.Equal(t, node.Invalid, typeHandle)
}
