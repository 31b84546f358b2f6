package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

func param(a *node.Arena, strs *strtab.Table, name string, spec node.TypeSpecifier) node.Handle {
	ty := node.NewTypeSpecifierNode(a, spec)
	return node.NewParameterDeclaration(a, node.ParameterDeclaration{Name: strs.Intern(name), Type: ty})
}

func TestItaniumFreeFunctionNoParams(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Void})
	fd := &node.FunctionDeclaration{Name: strs.Intern("foo"), ReturnType: ret}

	assert.Equal(t, "_Z3foov", m.Function(fd, Itanium))
}

func TestItaniumFunctionWithIntAndPointerParams(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Int})
	p1 := param(a, strs, "x", node.TypeSpecifier{Base: typekind.Int})
	p2 := param(a, strs, "y", node.TypeSpecifier{Base: typekind.Double, Pointers: []node.PointerLevel{{}}})
	fd := &node.FunctionDeclaration{
		Name: strs.Intern("bar"), ReturnType: ret, Parameters: []node.Handle{p1, p2},
	}

	assert.Equal(t, "_Z3bariPd", m.Function(fd, Itanium))
}

func TestItaniumFunctionWithNamespace(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Void})
	fd := &node.FunctionDeclaration{
		Name: strs.Intern("run"), ReturnType: ret,
		NamespacePath: []strtab.Handle{strs.Intern("app"), strs.Intern("core")},
	}

	got := m.Function(fd, Itanium)
	assert.Equal(t, "_ZN3app4core3runEv", got)
}

func TestCLinkageFunctionIsNotMangled(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Void})
	fd := &node.FunctionDeclaration{Name: strs.Intern("c_api"), ReturnType: ret, Linkage: node.LinkageC}

	assert.Equal(t, "c_api", m.Function(fd, Itanium))
}

func TestItaniumStructParamUsesRegistryName(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ti := types.AddStruct(strs.Intern("Point"))
	ti.Struct = &typesys.StructTypeInfo{}
	require.NoError(t, types.Finalize(ti, func(int) int64 { return 32 }))

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Void})
	p := param(a, strs, "pt", node.TypeSpecifier{Base: typekind.Struct, Index: ti.Index})
	fd := &node.FunctionDeclaration{Name: strs.Intern("take"), ReturnType: ret, Parameters: []node.Handle{p}}

	assert.Equal(t, "_Z4take5Point", m.Function(fd, Itanium))
}

func TestShortHashIsDeterministicAndArgSensitive(t *testing.T) {
	a := targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})}
	b := targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Double})}

	h1 := ShortHash("Vector", a)
	h2 := ShortHash("Vector", a)
	h3 := ShortHash("Vector", b)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Contains(t, h1, "Vector$")
}

func TestMSVCFreeFunction(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	m := New(a, strs, types)

	ret := node.NewTypeSpecifierNode(a, node.TypeSpecifier{Base: typekind.Int})
	fd := &node.FunctionDeclaration{Name: strs.Intern("foo"), ReturnType: ret}

	got := m.Function(fd, MSVC)
	assert.Equal(t, "?foo@@YAHXZ", got)
}
