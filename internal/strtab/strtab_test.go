package strtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdempotent(t *testing.T) {
	tbl := New()

	h1 := tbl.Intern("foo")
	h2 := tbl.Intern("foo")
	assert.Equal(t, h1, h2, "equal views must produce bit-identical handles")

	view, ok := tbl.View(h1)
	require.True(t, ok)
	assert.Equal(t, "foo", view)
}

func TestInternDistinctStrings(t *testing.T) {
	tbl := New()
	h1 := tbl.Intern("alpha")
	h2 := tbl.Intern("beta")
	assert.NotEqual(t, h1, h2)
}

func TestInvalidHandleIsZero(t *testing.T) {
	assert.Equal(t, Handle(0), Invalid)
	tbl := New()
	_, ok := tbl.View(Invalid)
	assert.False(t, ok)
}

func TestHashIsStableAcrossInterns(t *testing.T) {
	tbl := New()
	h1 := tbl.Intern("widget")
	hash1, ok := tbl.Hash(h1)
	require.True(t, ok)

	h2 := tbl.Intern("widget")
	hash2, _ := tbl.Hash(h2)
	assert.Equal(t, hash1, hash2)
}

func TestCreateUniqueNeverCollides(t *testing.T) {
	tbl := New()
	seen := map[Handle]bool{}
	for i := 0; i < 50; i++ {
		h := tbl.CreateUnique("__tmp")
		assert.False(t, seen[h], "CreateUnique must not repeat a handle")
		seen[h] = true
	}
}

func TestManyChunksSpillOver(t *testing.T) {
	tbl := New()
	for i := 0; i < chunkSize*3; i++ {
		tbl.Intern(string(rune('a' + i%26)) + itoa(i))
	}
	assert.Greater(t, len(tbl.chunks), 1)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
