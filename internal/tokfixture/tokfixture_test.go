package tokfixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
)

func TestTokenizesKeywordsIdentifiersAndPunctuation(t *testing.T) {
	tz := New("template <typename T> T id ( T x ) { return x ; }", 0)
	var got []token.Info
	for {
		tok := tz.Peek()
		if tok.Kind == token.EOF {
			break
		}
		got = append(got, tok)
		tz.Advance()
	}
	require.NotEmpty(t, got)
	assert.Equal(t, token.Keyword, got[0].Kind)
	assert.Equal(t, "template", got[0].Value)
	assert.Equal(t, token.Punctuator, got[1].Kind)
	assert.Equal(t, "<", got[1].Value)
}

func TestMultiCharPunctuatorsPreferLongestMatch(t *testing.T) {
	tz := New("a::b -> c && d", 0)
	var vals []string
	for {
		tok := tz.Peek()
		if tok.Kind == token.EOF {
			break
		}
		vals = append(vals, tok.Value)
		tz.Advance()
	}
	assert.Contains(t, vals, "::")
	assert.Contains(t, vals, "->")
	assert.Contains(t, vals, "&&")
}

func TestSaveAndRestoreLexerOnly(t *testing.T) {
	tz := New("a b c d", 0)
	tz.Advance()
	id := tz.SaveCursor()
	tz.Advance()
	tz.Advance()
	tz.RestoreLexerOnly(id)
	assert.Equal(t, "b", tz.Peek().Value)
}

func TestStringLiteralRecognized(t *testing.T) {
	tz := New(`extern "C" void f();`, 0)
	tz.Advance() // extern
	lit := tz.Peek()
	assert.Equal(t, token.Literal, lit.Kind)
	assert.Equal(t, `"C"`, lit.Value)
}

func TestIntegerLiteralRecognized(t *testing.T) {
	tz := New("int x = 42;", 0)
	for i := 0; i < 3; i++ {
		tz.Advance()
	}
	lit := tz.Peek()
	assert.Equal(t, token.Literal, lit.Kind)
	assert.Equal(t, "42", lit.Value)
}

func TestEOFAtEndOfFixture(t *testing.T) {
	tz := New("x", 0)
	tz.Advance()
	assert.Equal(t, token.EOF, tz.Peek().Kind)
}
