// Package tokfixture is a hand-rolled tokenizer for a C++ subset,
// implementing token.Source for tests and the demo driver. The real
// lexer/token stream is an external collaborator (spec Non-goals, §6.1);
// this package exists only so the Declaration Parser and Instantiation
// Engine can be exercised end-to-end without one.
package tokfixture

import (
	"strings"
	"unicode"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/cursorid"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
)

var keywords = map[string]bool{
	"template": true, "typename": true, "class": true, "struct": true, "union": true,
	"public": true, "private": true, "protected": true, "virtual": true, "override": true,
	"final": true, "static": true, "inline": true, "constexpr": true, "consteval": true,
	"constinit": true, "extern": true, "noexcept": true, "return": true, "concept": true,
	"requires": true, "true": true, "false": true, "sizeof": true, "explicit": true,
	"default": true, "delete": true, "static_assert": true, "namespace": true,
	"const": true, "volatile": true, "auto": true, "void": true, "bool": true,
	"char": true, "short": true, "int": true, "long": true, "float": true, "double": true,
	"unsigned": true, "signed": true, "using": true, "decltype": true,
	"__cdecl": true, "__stdcall": true, "__fastcall": true,
}

// multiCharPunctuators, longest first, so greedy matching picks `::`
// before `:` and `->` before `-`.
var multiCharPunctuators = []string{"...", "::", "->", "&&", "||", "==", "!=", "<=", ">="}

var singleCharPunctuators = "(){}[]<>,;:=&*+-/!?."

// Tokenizer implements token.Source over a fixed source string, splitting
// on whitespace and a fixed punctuator set. It is not meant to be fast or
// complete: string/char literal escaping, comments, and preprocessor
// directives are unsupported.
type Tokenizer struct {
	src       string
	pos       int
	line      int
	col       int
	fileIndex int

	toks  []token.Info // lazily extended as the cursor advances
	saves map[cursorid.ID]int
	nextID cursorid.ID
}

// New tokenizes src eagerly (the whole fixture is small enough that lazy
// tokenization buys nothing in tests).
func New(src string, fileIndex int) *Tokenizer {
	tz := &Tokenizer{src: src, line: 1, col: 1, fileIndex: fileIndex, saves: map[cursorid.ID]int{}}
	tz.tokenizeAll()
	return tz
}

func (tz *Tokenizer) tokenizeAll() {
	line, col := 1, 1
	i := 0
	advance := func(n int) {
		for k := 0; k < n; k++ {
			if i+k < len(tz.src) && tz.src[i+k] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}

	for i < len(tz.src) {
		c := tz.src[i]
		if unicode.IsSpace(rune(c)) {
			advance(1)
			continue
		}
		startLine, startCol := line, col

		if c == '"' {
			j := i + 1
			for j < len(tz.src) && tz.src[j] != '"' {
				j++
			}
			val := tz.src[i : j+1]
			tz.toks = append(tz.toks, token.Info{Kind: token.Literal, Value: val, Line: startLine, Column: startCol, FileIndex: tz.fileIndex})
			advance(j + 1 - i)
			continue
		}

		if unicode.IsDigit(rune(c)) {
			j := i
			for j < len(tz.src) && (unicode.IsDigit(rune(tz.src[j])) || tz.src[j] == '.') {
				j++
			}
			val := tz.src[i:j]
			tz.toks = append(tz.toks, token.Info{Kind: token.Literal, Value: val, Line: startLine, Column: startCol, FileIndex: tz.fileIndex})
			advance(j - i)
			continue
		}

		if unicode.IsLetter(rune(c)) || c == '_' {
			j := i
			for j < len(tz.src) && (unicode.IsLetter(rune(tz.src[j])) || unicode.IsDigit(rune(tz.src[j])) || tz.src[j] == '_') {
				j++
			}
			val := tz.src[i:j]
			kind := token.Identifier
			if keywords[val] || val == "true" || val == "false" {
				kind = token.Keyword
			}
			tz.toks = append(tz.toks, token.Info{Kind: kind, Value: val, Line: startLine, Column: startCol, FileIndex: tz.fileIndex})
			advance(j - i)
			continue
		}

		matched := false
		for _, m := range multiCharPunctuators {
			if strings.HasPrefix(tz.src[i:], m) {
				tz.toks = append(tz.toks, token.Info{Kind: token.Operator, Value: m, Line: startLine, Column: startCol, FileIndex: tz.fileIndex})
				advance(len(m))
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if strings.ContainsRune(singleCharPunctuators, rune(c)) {
			tz.toks = append(tz.toks, token.Info{Kind: token.Punctuator, Value: string(c), Line: startLine, Column: startCol, FileIndex: tz.fileIndex})
			advance(1)
			continue
		}

		// Unrecognized byte: skip it rather than fail the fixture.
		advance(1)
	}
	tz.line, tz.col = line, col
}

// Peek implements token.Source.
func (tz *Tokenizer) Peek() token.Info {
	if tz.pos >= len(tz.toks) {
		return token.Info{Kind: token.EOF, Line: tz.line, Column: tz.col, FileIndex: tz.fileIndex}
	}
	return tz.toks[tz.pos]
}

// Advance implements token.Source.
func (tz *Tokenizer) Advance() {
	if tz.pos < len(tz.toks) {
		tz.pos++
	}
}

// SaveCursor implements token.Source (full save).
func (tz *Tokenizer) SaveCursor() cursorid.ID {
	tz.nextID++
	tz.saves[tz.nextID] = tz.pos
	return tz.nextID
}

// RestoreLexerOnly implements token.Source.
func (tz *Tokenizer) RestoreLexerOnly(id cursorid.ID) {
	if p, ok := tz.saves[id]; ok {
		tz.pos = p
	}
}

// DiscardSavedCursor implements token.Source.
func (tz *Tokenizer) DiscardSavedCursor(id cursorid.ID) {
	delete(tz.saves, id)
}
