package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
)

func TestRegisterAndLookupPrimaries(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	name := strs.Intern("id")

	r.RegisterPrimary(name, node.Handle(1))
	r.RegisterPrimary(name, node.Handle(2))

	got := r.Primaries(name)
	assert.Equal(t, []node.Handle{1, 2}, got)
}

func TestPrimariesOfUnknownNameIsEmpty(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	assert.Empty(t, r.Primaries(strs.Intern("nope")))
}

func TestRegisterAndLookupExactSpecialization(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	name := strs.Intern("Tuple")
	args := targ.List{targ.Int(1), targ.Bool(true)}

	r.RegisterFullSpec(name, args, node.Handle(42))

	h, ok := r.LookupExactSpecialization(name, args)
	require.True(t, ok)
	assert.Equal(t, node.Handle(42), h)

	_, ok = r.LookupExactSpecialization(name, targ.List{targ.Int(2)})
	assert.False(t, ok)
}

func TestPartialSpecsPreserveDeclarationOrder(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	name := strs.Intern("Tuple")

	r.RegisterPartialSpec(name, PartialSpec{Declaration: node.Handle(1)})
	r.RegisterPartialSpec(name, PartialSpec{Declaration: node.Handle(2)})

	got := r.PartialSpecs(name)
	require.Len(t, got, 2)
	assert.Equal(t, node.Handle(1), got[0].Declaration)
	assert.Equal(t, node.Handle(2), got[1].Declaration)
}

func TestLookupAllTemplatesReturnsEverythingRegistered(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	name := strs.Intern("Tuple")
	args := targ.List{targ.Int(1)}

	r.RegisterPrimary(name, node.Handle(1))
	r.RegisterPartialSpec(name, PartialSpec{Declaration: node.Handle(2)})
	r.RegisterFullSpec(name, args, node.Handle(3))

	primaries, partials, fullSpecs := r.LookupAllTemplates(name)
	assert.Len(t, primaries, 1)
	assert.Len(t, partials, 1)
	assert.Len(t, fullSpecs, 1)
}

func TestLookupAllTemplatesOfUnknownNameReturnsNil(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	primaries, partials, fullSpecs := r.LookupAllTemplates(strs.Intern("nope"))
	assert.Nil(t, primaries)
	assert.Nil(t, partials)
	assert.Nil(t, fullSpecs)
}

func TestOutOfLineDefinitionQueueDrainsOnlyMatchingName(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	tupleName := strs.Intern("Tuple")
	boxName := strs.Intern("Box")

	r.QueueOutOfLineDefinition(OutOfLineDefinition{TemplateName: tupleName, Declaration: node.Handle(1)})
	r.QueueOutOfLineDefinition(OutOfLineDefinition{TemplateName: boxName, Declaration: node.Handle(2)})
	r.QueueOutOfLineDefinition(OutOfLineDefinition{TemplateName: tupleName, Declaration: node.Handle(3)})

	drained := r.DrainOutOfLineDefinitions(tupleName)
	require.Len(t, drained, 2)
	assert.Equal(t, node.Handle(1), drained[0].Declaration)
	assert.Equal(t, node.Handle(3), drained[1].Declaration)

	// Draining again returns nothing: the queue was consumed, not copied.
	assert.Empty(t, r.DrainOutOfLineDefinitions(tupleName))

	// Box's entry is untouched by Tuple's drain.
	boxDrained := r.DrainOutOfLineDefinitions(boxName)
	require.Len(t, boxDrained, 1)
	assert.Equal(t, node.Handle(2), boxDrained[0].Declaration)
}

func TestMangleTemplateNameIsDeterministicAndArgSensitive(t *testing.T) {
	strs := strtab.New()
	name := strs.Intern("id")

	a := MangleTemplateName(strs, name, targ.List{targ.Int(1)})
	b := MangleTemplateName(strs, name, targ.List{targ.Int(1)})
	c := MangleTemplateName(strs, name, targ.List{targ.Int(2)})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "id")
}

func TestMangleTemplateNameIsOrderSensitiveToArgs(t *testing.T) {
	strs := strtab.New()
	name := strs.Intern("Tuple")

	a := MangleTemplateName(strs, name, targ.List{targ.Int(1), targ.Bool(true)})
	b := MangleTemplateName(strs, name, targ.List{targ.Bool(true), targ.Int(1)})
	assert.NotEqual(t, a, b, "argument order is significant to the mangled name")
}

func TestBindMemberAliasIsPerInstantiation(t *testing.T) {
	strs := strtab.New()
	r := New(strs)
	name := strs.Intern("Tuple")

	r.BindMemberAlias(name, "key-a", node.Handle(10))
	r.BindMemberAlias(name, "key-b", node.Handle(11))

	e := r.entryFor(name)
	assert.Len(t, e.aliasBindings, 2)
}
