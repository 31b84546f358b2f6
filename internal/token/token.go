// Package token implements the Token Stream Adapter (component E): a
// one-token-lookahead pull interface over an external lexer, plus cheap
// cursor save/restore for speculative parsing and deferred template
// bodies (spec §4.E, §6.1).
package token

import "github.com/GregorGullwi/FlashCpp-sub002/internal/cursorid"

// Kind classifies a token. The lexer itself is out of scope (spec
// Non-goals); this package only consumes whatever implements Source.
type Kind int

const (
	Invalid Kind = iota
	Identifier
	Keyword
	Literal
	Punctuator
	Operator
	EOF
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "Identifier"
	case Keyword:
		return "Keyword"
	case Literal:
		return "Literal"
	case Punctuator:
		return "Punctuator"
	case Operator:
		return "Operator"
	case EOF:
		return "EOF"
	default:
		return "Invalid"
	}
}

// Info is one token as handed to the parser (spec §6.1).
type Info struct {
	Kind      Kind
	Value     string
	Line      int
	Column    int
	FileIndex int
}

// Source is the external lexer contract the Declaration Parser consumes
// (spec §6.1). Implementations are free to tokenize eagerly or lazily;
// the adapter only assumes peek/advance and cursor save/restore.
type Source interface {
	Peek() Info
	Advance()

	// SaveCursor captures lexer position, last diagnostic line/column,
	// and issues a stable id for later restoration ("full save").
	SaveCursor() cursorid.ID

	// RestoreLexerOnly rewinds lexer state to a previously saved cursor
	// while preserving any AST nodes created since the save.
	RestoreLexerOnly(id cursorid.ID)

	// DiscardSavedCursor releases bookkeeping for a cursor that will
	// never be restored.
	DiscardSavedCursor(id cursorid.ID)
}

// Cursors bundles the three named save-points every template declaration
// stores (spec §4.E): SFINAE and deferred-body parsing rely exclusively
// on restoring to these.
type Cursors struct {
	DeclarationStart    cursorid.ID
	BodyStart            cursorid.ID
	TrailingReturnStart  cursorid.ID
}

// Adapter wraps a Source with the one-token-lookahead contract the rest
// of the compiler core uses. It holds no state of its own beyond the
// wrapped Source: it exists so callers depend on a narrow, named type
// rather than threading a bare Source interface through every package.
type Adapter struct {
	src Source
}

// New wraps src in an Adapter.
func New(src Source) *Adapter { return &Adapter{src: src} }

// Peek returns the current lookahead token without consuming it.
func (a *Adapter) Peek() Info { return a.src.Peek() }

// Advance consumes the current lookahead token.
func (a *Adapter) Advance() { a.src.Advance() }

// Check reports whether the lookahead token matches kind and value, a
// convenience the Declaration Parser uses pervasively for keyword and
// punctuator checks.
func (a *Adapter) Check(kind Kind, value string) bool {
	t := a.src.Peek()
	return t.Kind == kind && t.Value == value
}

// Accept consumes the lookahead token if it matches, reporting whether it
// did.
func (a *Adapter) Accept(kind Kind, value string) bool {
	if a.Check(kind, value) {
		a.src.Advance()
		return true
	}
	return false
}

// SaveCursor performs a full save: lexer position plus diagnostic
// line/column, returning a stable id.
func (a *Adapter) SaveCursor() cursorid.ID { return a.src.SaveCursor() }

// RestoreLexerOnly rewinds lexer state to id while preserving any AST
// nodes created since the save (spec §4.E "lexer-only restore").
func (a *Adapter) RestoreLexerOnly(id cursorid.ID) { a.src.RestoreLexerOnly(id) }

// DiscardSavedCursor releases a cursor that will never be restored.
func (a *Adapter) DiscardSavedCursor(id cursorid.ID) { a.src.DiscardSavedCursor(id) }
