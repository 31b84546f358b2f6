package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixtureFindsGlobbedCppFile(t *testing.T) {
	src, err := loadFixture("fixtures", "id.cpp")
	require.NoError(t, err)
	assert.Contains(t, src, "T id(T x)")
}

func TestLoadFixtureMissingNameIsError(t *testing.T) {
	_, err := loadFixture("fixtures", "nonexistent.cpp")
	assert.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["compile"])
	assert.True(t, names["dump-cache"])
	assert.True(t, names["inspect-type"])
}
