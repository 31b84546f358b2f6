package substitute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

func TestSubstituteTemplateParamRefWithIntValue(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	n := strs.Intern("N")

	ref := node.NewExprTemplateParamRef(a, n, false)
	out, err := Expr(a, strs, ref, Bindings{"N": targ.Int(7)})
	require.NoError(t, err)

	lit := node.MustGet[*node.ExprLiteral](a, out)
	assert.Equal(t, node.LiteralInt, lit.LitKind)
	assert.Equal(t, int64(7), lit.Int)
}

func TestSubstituteIdentifierOnlyWhenNameIsBound(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	x := strs.Intern("x")

	expr := node.NewExprIdentifier(a, x)
	out, err := Expr(a, strs, expr, Bindings{})
	require.NoError(t, err)
	id := node.MustGet[*node.ExprIdentifier](a, out)
	assert.Equal(t, x, id.Name)
}

func TestSubstituteBinaryExpressionRecurses(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	tName := strs.Intern("T")

	left := node.NewExprTemplateParamRef(a, tName, false)
	right := node.NewExprLiteralInt(a, 3)
	bin := node.NewExprBinary(a, node.OpAdd, left, right)

	out, err := Expr(a, strs, bin, Bindings{"T": targ.Int(4)})
	require.NoError(t, err)
	b := node.MustGet[*node.ExprBinary](a, out)
	assert.Equal(t, node.OpAdd, b.Op)
	leftLit := node.MustGet[*node.ExprLiteral](a, b.Left)
	assert.Equal(t, int64(4), leftLit.Int)
}

func TestSubstituteMissingBindingIsError(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	ref := node.NewExprTemplateParamRef(a, strs.Intern("Missing"), false)
	_, err := Expr(a, strs, ref, Bindings{})
	assert.Error(t, err)
}

func TestSubstituteSizeofPackReturnsPackLength(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	pack := strs.Intern("Ts")
	expr := node.NewExprSizeofPack(a, pack)

	out, err := Expr(a, strs, expr, Bindings{"Ts": targ.Value{ArgKind: targ.KindPack, Pack: []targ.Value{targ.Int(1), targ.Int(2), targ.Int(3)}}})
	require.NoError(t, err)
	lit := node.MustGet[*node.ExprLiteral](a, out)
	assert.Equal(t, int64(3), lit.Int)
}

func TestSubstituteUnaryRightFoldBuildsRightAssociativeChain(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	pack := strs.Intern("Ts")

	packRef := node.NewExprTemplateParamRef(a, pack, true)
	fold := node.NewExprFold(a, node.ExprFold{Op: node.OpAdd, Direction: node.FoldUnaryRight, Pack: packRef})

	out, err := Expr(a, strs, fold, Bindings{"Ts": targ.Value{ArgKind: targ.KindPack, Pack: []targ.Value{targ.Int(1), targ.Int(2), targ.Int(3)}}})
	require.NoError(t, err)

	top := node.MustGet[*node.ExprBinary](a, out)
	leftLit := node.MustGet[*node.ExprLiteral](a, top.Left)
	assert.Equal(t, int64(1), leftLit.Int)
	inner := node.MustGet[*node.ExprBinary](a, top.Right)
	innerLeft := node.MustGet[*node.ExprLiteral](a, inner.Left)
	assert.Equal(t, int64(2), innerLeft.Int)
}

func TestSubstituteEmptyLogicalAndFoldYieldsTrue(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	pack := strs.Intern("Ts")
	packRef := node.NewExprTemplateParamRef(a, pack, true)
	fold := node.NewExprFold(a, node.ExprFold{Op: node.OpLogicalAnd, Direction: node.FoldUnaryRight, Pack: packRef})

	out, err := Expr(a, strs, fold, Bindings{"Ts": targ.Value{ArgKind: targ.KindPack}})
	require.NoError(t, err)
	lit := node.MustGet[*node.ExprLiteral](a, out)
	assert.Equal(t, node.LiteralBool, lit.LitKind)
	assert.True(t, lit.Bool)
}

func TestSubstituteEmptyAddFoldIsError(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	pack := strs.Intern("Ts")
	packRef := node.NewExprTemplateParamRef(a, pack, true)
	fold := node.NewExprFold(a, node.ExprFold{Op: node.OpAdd, Direction: node.FoldUnaryRight, Pack: packRef})

	_, err := Expr(a, strs, fold, Bindings{"Ts": targ.Value{ArgKind: targ.KindPack}})
	assert.Error(t, err)
}

func TestSubstituteTypeReplacesDependentSpecifierAndComposesPointer(t *testing.T) {
	spec := node.TypeSpecifier{TemplateParamName: "T", Pointers: []node.PointerLevel{{}}}
	bound := node.TypeSpecifier{Base: typekind.Int}

	out, err := Type(spec, Bindings{"T": targ.Type(bound)})
	require.NoError(t, err)
	assert.Equal(t, typekind.Int, out.Base)
	assert.Len(t, out.Pointers, 1)
}

func TestSubstituteTypeCollapsesReferenceForForwardingReference(t *testing.T) {
	// T&& where T is deduced as `int&` collapses to `int&` (spec §4.I, §8.1).
	spec := node.TypeSpecifier{TemplateParamName: "T", Ref: node.RefRValue}
	bound := node.TypeSpecifier{Base: typekind.Int, Ref: node.RefLValue}

	out, err := Type(spec, Bindings{"T": targ.Type(bound)})
	require.NoError(t, err)
	assert.Equal(t, node.RefLValue, out.Ref)
}

func TestSubstituteTypeLeavesNonDependentSpecifierUnchanged(t *testing.T) {
	spec := node.TypeSpecifier{Base: typekind.Double}
	out, err := Type(spec, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, typekind.Double, out.Base)
}

func TestSubstituteTypeMissingBindingIsError(t *testing.T) {
	spec := node.TypeSpecifier{TemplateParamName: "U"}
	_, err := Type(spec, Bindings{})
	assert.Error(t, err)
}
