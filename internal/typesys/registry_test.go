package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
)

func TestAddStructIdempotentAndIndexMatchesPosition(t *testing.T) {
	r := NewRegistry()
	strs := strtab.New()
	name := strs.Intern("Point")

	ti1 := r.AddStruct(name)
	ti2 := r.AddStruct(name)
	assert.Same(t, ti1, ti2)

	got, ok := r.Get(ti1.Index)
	require.True(t, ok)
	assert.Same(t, ti1, got)
}

func TestFinalizeComputesOffsetsRespectingAlignment(t *testing.T) {
	r := NewRegistry()
	strs := strtab.New()
	name := strs.Intern("Pair")
	ti := r.AddStruct(name)
	ti.Struct = &StructTypeInfo{
		Fields: []node.MemberField{
			{Name: strs.Intern("a"), Access: node.AccessPublic},
			{Name: strs.Intern("b"), Access: node.AccessPublic},
		},
	}
	sizes := []int64{8, 32} // char then int: int must be 4-byte aligned
	err := r.Finalize(ti, func(i int) int64 { return sizes[i] })
	require.NoError(t, err)

	assert.Equal(t, int64(0), ti.Struct.Fields[0].Offset)
	assert.Equal(t, int64(4), ti.Struct.Fields[1].Offset, "int member must be aligned to 4 bytes")
	assert.Equal(t, int64(8), ti.Struct.TotalSize)
	assert.True(t, ti.Complete())
	assert.Equal(t, int64(0), ti.Struct.TotalSize%ti.Struct.Alignment)
}

func TestFinalizeUnionSharesOffsetZero(t *testing.T) {
	r := NewRegistry()
	strs := strtab.New()
	ti := r.AddStruct(strs.Intern("U"))
	ti.Struct = &StructTypeInfo{
		IsUnion: true,
		Fields: []node.MemberField{
			{Name: strs.Intern("i")},
			{Name: strs.Intern("d")},
		},
	}
	sizes := []int64{32, 64}
	require.NoError(t, r.Finalize(ti, func(i int) int64 { return sizes[i] }))
	assert.Equal(t, int64(0), ti.Struct.Fields[0].Offset)
	assert.Equal(t, int64(0), ti.Struct.Fields[1].Offset)
	assert.Equal(t, int64(8), ti.Struct.TotalSize)
}

func TestGetOrComputeCacheLifecycle(t *testing.T) {
	r := NewRegistry()
	strs := strtab.New()
	key := NewInstantiationKey(strs.Intern("Tuple"), targ.List{targ.Int(1)})

	_, state, complete := r.GetOrCompute(key)
	assert.Equal(t, NotStarted, state)
	assert.False(t, complete)

	// Second consult sees InProgress (cycle guard / in-flight marker).
	_, state2, _ := r.GetOrCompute(key)
	assert.Equal(t, InProgress, state2)

	r.CompleteInstantiation(key, 5)
	idx, state3, complete3 := r.GetOrCompute(key)
	assert.Equal(t, Complete, state3)
	assert.True(t, complete3)
	assert.EqualValues(t, 5, idx)
}

func TestFinalNonVirtualBaseViolation(t *testing.T) {
	r := NewRegistry()
	strs := strtab.New()
	base := r.AddStruct(strs.Intern("Base"))
	base.Struct = &StructTypeInfo{IsFinal: true, TotalSize: 8, Alignment: 8}
	base.Incomplete = false

	derived := r.AddStruct(strs.Intern("Derived"))
	derived.Struct = &StructTypeInfo{
		Bases: []node.BaseClassSpec{{Name: strs.Intern("Base")}},
	}
	_, err := r.ComputeWithBases(derived, []*TypeInfo{base})
	require.Error(t, err)
}
