package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

func newEvaluator() (*Evaluator, *node.Arena, *strtab.Table) {
	a := node.NewArena()
	strs := strtab.New()
	types := typesys.NewRegistry()
	syms := symtab.New()
	return New(a, strs, types, syms), a, strs
}

func typeParam(a *node.Arena, strs *strtab.Table, name string) node.Handle {
	return node.NewTemplateParameter(a, node.TemplateParameter{
		Name: strs.Intern(name), ParamKind: node.TemplateParamType,
	})
}

func TestIsIntegralSatisfiedForIntArgument(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	require.NoError(t, err)

	result := e.Evaluate(trait, bindings)
	assert.True(t, result.Satisfied)
}

func TestIsIntegralFailsForFloatArgumentWithSuggestion(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Double})})
	require.NoError(t, err)

	result := e.Evaluate(trait, bindings)
	assert.False(t, result.Satisfied)
	assert.Equal(t, string(node.TraitIsIntegral), result.FailedRequirement)
	assert.NotEmpty(t, result.Suggestion)
}

func TestLogicalAndShortCircuitsOnFirstFailure(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	left := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})
	right := node.NewExprTypeTrait(a, node.TraitIsClass, []node.Handle{typeArg})
	conj := node.NewExprBinary(a, node.OpLogicalAnd, left, right)

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Double})})
	require.NoError(t, err)

	result := e.Evaluate(conj, bindings)
	assert.False(t, result.Satisfied)
	assert.Equal(t, string(node.TraitIsIntegral), result.FailedRequirement)
}

func TestLogicalOrSatisfiedWhenEitherSideSatisfied(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	left := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})
	right := node.NewExprTypeTrait(a, node.TraitIsFloatingPoint, []node.Handle{typeArg})
	disj := node.NewExprBinary(a, node.OpLogicalOr, left, right)

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Double})})
	require.NoError(t, err)

	result := e.Evaluate(disj, bindings)
	assert.True(t, result.Satisfied)
}

func TestLogicalNotInvertsResult(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})
	negated := node.NewExprUnary(a, node.OpLogicalNot, trait)

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Double})})
	require.NoError(t, err)

	result := e.Evaluate(negated, bindings)
	assert.True(t, result.Satisfied)
}

func TestEvaluateRequiresClauseWrapsExpression(t *testing.T) {
	e, a, strs := newEvaluator()
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})
	clause := node.NewRequiresClause(a, trait)

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T")}, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	require.NoError(t, err)

	result := e.EvaluateRequiresClause(clause, bindings)
	assert.True(t, result.Satisfied)
}

func TestEvaluateRequiresClauseWithInvalidHandleIsVacuouslySatisfied(t *testing.T) {
	e, _, _ := newEvaluator()
	result := e.EvaluateRequiresClause(node.Invalid, nil)
	assert.True(t, result.Satisfied)
}

func TestEvaluateConceptBindsOwnParametersAndEvaluatesConstraint(t *testing.T) {
	e, a, strs := newEvaluator()
	conceptParam := typeParam(a, strs, "U")
	typeArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "U"})
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{typeArg})

	name := strs.Intern("Integral")
	c := node.NewConceptDeclaration(a, node.ConceptDeclaration{
		Name: name, TemplateParams: []node.Handle{conceptParam}, Constraint: trait,
	})
	e.Syms.Insert(name, c)

	result := e.EvaluateConcept(name, targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	assert.True(t, result.Satisfied)
}

func TestEvaluateConceptUnknownNameSuggestsClosestMatch(t *testing.T) {
	e, a, strs := newEvaluator()
	conceptParam := typeParam(a, strs, "U")
	trait := node.NewExprTypeTrait(a, node.TraitIsIntegral, []node.Handle{node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "U"})})
	name := strs.Intern("Integral")
	c := node.NewConceptDeclaration(a, node.ConceptDeclaration{Name: name, TemplateParams: []node.Handle{conceptParam}, Constraint: trait})
	e.Syms.Insert(name, c)

	result := e.EvaluateConcept(strs.Intern("Integrall"), targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	assert.False(t, result.Satisfied)
	assert.Contains(t, result.Suggestion, "Integral")
}

func TestIsSameTypeTrait(t *testing.T) {
	e, a, strs := newEvaluator()
	lhsArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "T"})
	rhsArg := node.NewTypeSpecifierNode(a, node.TypeSpecifier{TemplateParamName: "U"})
	trait := node.NewExprTypeTrait(a, node.TraitIsSame, []node.Handle{lhsArg, rhsArg})

	bindings, err := BuildBindings(a, strs, []node.Handle{typeParam(a, strs, "T"), typeParam(a, strs, "U")},
		targ.List{targ.Type(node.TypeSpecifier{Base: typekind.Int}), targ.Type(node.TypeSpecifier{Base: typekind.Int})})
	require.NoError(t, err)

	result := e.Evaluate(trait, bindings)
	assert.True(t, result.Satisfied)
}

func TestIsBaseOfWalksDirectBase(t *testing.T) {
	e, a, strs := newEvaluator()

	baseTi := e.Types.AddStruct(strs.Intern("Base"))
	baseTi.Struct = &typesys.StructTypeInfo{}
	require.NoError(t, e.Types.Finalize(baseTi, func(int) int64 { return 32 }))
	derivedTi := e.Types.AddStruct(strs.Intern("Derived"))
	derivedTi.Struct = &typesys.StructTypeInfo{Bases: []node.BaseClassSpec{{Type: baseTi.Index}}}
	require.NoError(t, e.Types.Finalize(derivedTi, func(int) int64 { return 32 }))

	lhs := node.TypeSpecifier{Base: typekind.Struct, Index: baseTi.Index}
	rhs := node.TypeSpecifier{Base: typekind.Struct, Index: derivedTi.Index}
	assert.True(t, e.isBaseOf(lhs, rhs))
	assert.False(t, e.isBaseOf(rhs, lhs))
}

func TestBuildBindingsCollectsTrailingPack(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	packParam := node.NewTemplateParameter(a, node.TemplateParameter{Name: strs.Intern("Ts"), ParamKind: node.TemplateParamType, IsPack: true})

	bindings, err := BuildBindings(a, strs, []node.Handle{packParam}, targ.List{targ.Int(1), targ.Int(2)})
	require.NoError(t, err)
	v := bindings["Ts"]
	assert.Equal(t, targ.KindPack, v.ArgKind)
	assert.Len(t, v.Pack, 2)
}

func TestBuildBindingsMissingArgumentIsError(t *testing.T) {
	a := node.NewArena()
	strs := strtab.New()
	p := typeParam(a, strs, "T")
	_, err := BuildBindings(a, strs, []node.Handle{p}, targ.List{})
	assert.Error(t, err)
}
