// Package parser implements the Declaration Parser (component F): small,
// composable recursive-descent routines that consume a token.Source and
// populate the String Table, Node Arena, Type Registry, and Symbol Table
// (spec §4.F).
package parser

import (
	"fmt"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/ferr"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// Parser drives declaration, statement, and expression recognition over a
// token.Adapter, emplacing nodes into a shared Arena and binding names in
// a shared symtab.Table. A Parser owns none of its collaborators; the
// caller (compiler.Session) wires them together (spec §5 "single owner").
type Parser struct {
	Toks      *token.Adapter
	Strs      *strtab.Table
	Arena     *node.Arena
	Types     *typesys.Registry
	Syms      *symtab.Table
	Templates *template.Registry
}

// New builds a Parser over the given collaborators.
func New(toks *token.Adapter, strs *strtab.Table, arena *node.Arena, types *typesys.Registry, syms *symtab.Table, templates *template.Registry) *Parser {
	return &Parser{Toks: toks, Strs: strs, Arena: arena, Types: types, Syms: syms, Templates: templates}
}

func (p *Parser) loc() ferr.Location {
	t := p.Toks.Peek()
	return ferr.Location{Line: t.Line, Column: t.Column}
}

func (p *Parser) errorf(format string, args ...any) error {
	return ferr.New(ferr.ErrParse, p.loc(), format, args...)
}

func (p *Parser) atKeyword(v string) bool { return p.Toks.Check(token.Keyword, v) }
func (p *Parser) atPunct(v string) bool   { return p.Toks.Check(token.Punctuator, v) }
func (p *Parser) atOperator(v string) bool { return p.Toks.Check(token.Operator, v) }

func (p *Parser) acceptKeyword(v string) bool { return p.Toks.Accept(token.Keyword, v) }
func (p *Parser) acceptPunct(v string) bool   { return p.Toks.Accept(token.Punctuator, v) }
func (p *Parser) acceptOperator(v string) bool { return p.Toks.Accept(token.Operator, v) }

func (p *Parser) expectPunct(v string) error {
	if !p.acceptPunct(v) {
		return p.errorf("expected %q, found %q", v, p.Toks.Peek().Value)
	}
	return nil
}

// identifierName consumes an Identifier token and interns it.
func (p *Parser) identifierName() (strtab.Handle, error) {
	t := p.Toks.Peek()
	if t.Kind != token.Identifier {
		return strtab.Invalid, p.errorf("expected identifier, found %q", t.Value)
	}
	p.Toks.Advance()
	return p.Strs.Intern(t.Value), nil
}

func isFloatText(s string) bool {
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			return true
		}
	}
	return false
}

func parseIntLiteral(s string) int64 {
	var v int64
	fmt.Sscanf(s, "%d", &v)
	return v
}
