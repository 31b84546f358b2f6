package instantiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/constraint"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/mangle"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/parser"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/tokfixture"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// harness bundles a parser and an Engine sharing the same collaborators,
// matching how compiler.Session wires the two together.
type harness struct {
	p   *parser.Parser
	e   *Engine
	strs *strtab.Table
}

func newHarness(t *testing.T, src string) *harness {
	t.Helper()
	tz := tokfixture.New(src, 0)
	adapter := token.New(tz)
	strs := strtab.New()
	arena := node.NewArena()
	types := typesys.NewRegistry()
	syms := symtab.New()
	templates := template.New(strs)
	p := parser.New(adapter, strs, arena, types, syms, templates)

	for p.Toks.Peek().Kind != token.EOF {
		_, err := p.ParseTopLevelDeclaration()
		require.NoError(t, err)
	}

	evaluator := constraint.New(arena, strs, types, syms)
	mangler := mangle.New(arena, strs, types)
	e := New(arena, strs, types, templates, syms, evaluator, mangler, p, DefaultLimits())
	return &harness{p: p, e: e, strs: strs}
}

func (h *harness) intern(s string) strtab.Handle { return h.strs.Intern(s) }

func TestInstantiateClassPrimarySubstitutesFieldType(t *testing.T) {
	h := newHarness(t, `template <typename T> struct Box { T value; };`)
	idx, err := h.e.InstantiateClass(h.intern("Box"), targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	require.NoError(t, err)
	require.NotEqual(t, typekind.InvalidIndex, idx)

	ti, ok := h.e.Types.Get(idx)
	require.True(t, ok)
	require.NotNil(t, ti.Struct)
	require.Len(t, ti.Struct.Fields, 1)

	fieldSpec := node.MustGet[*node.TypeSpecifierNode](h.e.Arena, ti.Struct.Fields[0].Type)
	assert.Equal(t, typekind.Int, fieldSpec.Spec.Base)
}

func TestInstantiateClassCachesIdenticalArguments(t *testing.T) {
	h := newHarness(t, `template <typename T> struct Box { T value; };`)
	name := h.intern("Box")
	args := targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})}

	idx1, err := h.e.InstantiateClass(name, args)
	require.NoError(t, err)
	idx2, err := h.e.InstantiateClass(name, args)
	require.NoError(t, err)
	assert.Equal(t, idx1, idx2)
}

// TestInstantiateClassTuplePartialSpecRecurses mirrors a recursive
// variadic Tuple: the partial specialization peels off one head argument
// and derives from Tuple<R...>, which must recursively instantiate before
// the derived Tuple<F, R...> can finish its own layout.
func TestInstantiateClassTuplePartialSpecRecurses(t *testing.T) {
	src := `
template <typename... Ts> struct Tuple { };
template <typename F, typename... R> struct Tuple<F, R...> : Tuple<R...> { F head; };
`
	h := newHarness(t, src)
	name := h.intern("Tuple")
	args := targ.List{
		targ.Type(node.TypeSpecifier{Base: typekind.Int}),
		targ.Type(node.TypeSpecifier{Base: typekind.Float}),
		targ.Type(node.TypeSpecifier{Base: typekind.Char}),
	}

	idx, err := h.e.InstantiateClass(name, args)
	require.NoError(t, err)
	require.NotEqual(t, typekind.InvalidIndex, idx)

	ti, ok := h.e.Types.Get(idx)
	require.True(t, ok)
	require.Len(t, ti.Struct.Bases, 1)
	require.NotEqual(t, typekind.InvalidIndex, ti.Struct.Bases[0].Type)

	baseTi, ok := h.e.Types.Get(ti.Struct.Bases[0].Type)
	require.True(t, ok)
	require.Len(t, baseTi.Struct.Bases, 1, "Tuple<float,char> must itself derive from Tuple<char>")

	// Four instantiations reach the cache: Tuple<int,float,char>,
	// Tuple<float,char>, Tuple<char>, and the empty-pack Tuple<>.
	assert.Equal(t, 4, h.e.Types.CacheLen())
}

func TestInstantiateClassCycleReturnsInvalidWithoutError(t *testing.T) {
	h := newHarness(t, `template <typename T> struct Node { Node<T>* next; };`)
	name := h.intern("Node")
	args := targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})}

	key := template.InstantiationKeyFor(name, args)
	h.e.Types.GetOrCompute(key) // pre-mark InProgress, simulating a self-reference mid-instantiation

	idx, err := h.e.InstantiateClass(name, args)
	require.NoError(t, err)
	assert.Equal(t, typekind.InvalidIndex, idx)
}

func TestTryInstantiateFunctionDeducesFromCallArgument(t *testing.T) {
	h := newHarness(t, `template <typename T> T id(T x) { return x; }`)
	argTypes := []node.TypeSpecifier{{Base: typekind.Int}}

	fh, err := h.e.TryInstantiateFunction(h.intern("id"), argTypes)
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, fh)

	fd := node.MustGet[*node.FunctionDeclaration](h.e.Arena, fh)
	retSpec := node.MustGet[*node.TypeSpecifierNode](h.e.Arena, fd.ReturnType)
	assert.Equal(t, typekind.Int, retSpec.Spec.Base)
	assert.NotEqual(t, node.Invalid, fd.Body)
	assert.True(t, fd.InlineAlways, "a bare `return x;` body is the trivial/always-inline shape")
}

func TestTryInstantiateFunctionCachesByArguments(t *testing.T) {
	h := newHarness(t, `template <typename T> T id(T x) { return x; }`)
	argTypes := []node.TypeSpecifier{{Base: typekind.Int}}

	fh1, err := h.e.TryInstantiateFunction(h.intern("id"), argTypes)
	require.NoError(t, err)
	fh2, err := h.e.TryInstantiateFunction(h.intern("id"), argTypes)
	require.NoError(t, err)
	assert.Equal(t, fh1, fh2)
}

func TestTryInstantiateFunctionRejectsUnsatisfiedRequiresClause(t *testing.T) {
	src := `template <typename T> requires __is_integral(T) T doubled(T x) { return x; }`
	h := newHarness(t, src)
	argTypes := []node.TypeSpecifier{{Base: typekind.Float}}

	fh, err := h.e.TryInstantiateFunction(h.intern("doubled"), argTypes)
	require.NoError(t, err)
	assert.Equal(t, node.Invalid, fh, "float fails __is_integral(T), so no overload is viable")
}

func TestTryInstantiateFunctionVariadicPackConsumesRemainingArgs(t *testing.T) {
	src := `template <typename... Ts> int count(Ts... ts) { return 0; }`
	h := newHarness(t, src)
	argTypes := []node.TypeSpecifier{{Base: typekind.Int}, {Base: typekind.Float}, {Base: typekind.Char}}

	fh, err := h.e.TryInstantiateFunction(h.intern("count"), argTypes)
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, fh)

	fd := node.MustGet[*node.FunctionDeclaration](h.e.Arena, fh)
	assert.Len(t, fd.Parameters, 3, "the trailing pack parameter expands into one parameter per bound argument")
}

// TestTryInstantiateFunctionDeclTypeSFINAERejectsMissingMember exercises the
// `decltype(x.foo(), void())` idiom: a trailing-return decltype that
// references a member the argument type doesn't have rules that overload
// out, falling through to the plain fallback overload instead of erroring.
func TestTryInstantiateFunctionDeclTypeSFINAERejectsMissingMember(t *testing.T) {
	src := `
template <typename U> struct Has { int bar() { return 1; } };
template <typename T> auto call(T x) -> decltype(x.bar(), void()) { return 1; }
template <typename T> int call(T x) { return 0; }
`
	h := newHarness(t, src)

	hasIdx, err := h.e.InstantiateClass(h.intern("Has"), targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	require.NoError(t, err)
	require.NotEqual(t, typekind.InvalidIndex, hasIdx)

	// T = Has<int>: x.bar() resolves, so the decltype overload is viable.
	fh, err := h.e.TryInstantiateFunction(h.intern("call"), []node.TypeSpecifier{{Base: typekind.Struct, Index: hasIdx}})
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, fh)
	fd := node.MustGet[*node.FunctionDeclaration](h.e.Arena, fh)
	blk := node.MustGet[*node.Block](h.e.Arena, fd.Body)
	rs := node.MustGet[*node.ReturnStatement](h.e.Arena, blk.Statements[0])
	lit := node.MustGet[*node.ExprLiteral](h.e.Arena, rs.Value)
	assert.Equal(t, int64(1), lit.Int, "the decltype overload (returning 1) wins when bar() exists")

	// T = int: x.bar() can't resolve on a fundamental type, so the decltype
	// overload SFINAEs out and the plain fallback overload is selected.
	h2 := newHarness(t, src)
	fh2, err := h2.e.TryInstantiateFunction(h2.intern("call"), []node.TypeSpecifier{{Base: typekind.Int}})
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, fh2)
	fd2 := node.MustGet[*node.FunctionDeclaration](h2.e.Arena, fh2)
	blk2 := node.MustGet[*node.Block](h2.e.Arena, fd2.Body)
	rs2 := node.MustGet[*node.ReturnStatement](h2.e.Arena, blk2.Statements[0])
	lit2 := node.MustGet[*node.ExprLiteral](h2.e.Arena, rs2.Value)
	assert.Equal(t, int64(0), lit2.Int, "the fallback overload (returning 0) wins when bar() doesn't exist on int")
}

// TestTryInstantiateFunctionDeclTypeCycleRejectsRecursiveOverload exercises
// spec §8.3 scenario 6: a trailing-return decltype whose expression calls
// the same function template recursively must not recurse the instantiation
// engine itself — it's detected and rejected structurally, and the
// non-recursive overload is picked instead, without a stack overflow.
func TestTryInstantiateFunctionDeclTypeCycleRejectsRecursiveOverload(t *testing.T) {
	src := `
template <typename T> auto recur(T x) -> decltype(recur(x)) { return 1; }
template <typename T> int recur(T x) { return 0; }
`
	h := newHarness(t, src)

	fh, err := h.e.TryInstantiateFunction(h.intern("recur"), []node.TypeSpecifier{{Base: typekind.Int}})
	require.NoError(t, err)
	require.NotEqual(t, node.Invalid, fh)

	fd := node.MustGet[*node.FunctionDeclaration](h.e.Arena, fh)
	blk := node.MustGet[*node.Block](h.e.Arena, fd.Body)
	rs := node.MustGet[*node.ReturnStatement](h.e.Arena, blk.Statements[0])
	lit := node.MustGet[*node.ExprLiteral](h.e.Arena, rs.Value)
	assert.Equal(t, int64(0), lit.Int, "the self-referential decltype overload is rejected; the plain overload wins")
}
