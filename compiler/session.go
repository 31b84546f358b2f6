// Package compiler is the single-owner wiring point spec §9 calls for:
// every global registry the source carried as a process singleton
// (string table, node arena, type registry, symbol table, template
// registry) becomes a field of one Session constructed per translation
// unit, instead of package-level state. It is also the one place allowed
// to import both internal/config and internal/instantiate, so neither of
// those packages needs to know about the other (matches the layering
// internal/config's own doc comment already commits to).
package compiler

import (
	"fmt"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/config"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/constraint"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/instantiate"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/instcache"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/mangle"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/objsink"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/parser"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/tokfixture"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// Session bundles one translation unit's parsed declarations with every
// collaborator the Template Instantiation Engine needs to materialize
// them on demand, plus the two optional capability sinks (a persistent
// instantiation cache, a code-generator recorder) a driver may attach.
type Session struct {
	Strs        *strtab.Table
	Arena       *node.Arena
	Types       *typesys.Registry
	Syms        *symtab.Table
	Templates   *template.Registry
	Parser      *parser.Parser
	Constraints *constraint.Evaluator
	Mangler     *mangle.Mangler
	Engine      *instantiate.Engine
	Sink        *objsink.Sink

	Limits config.Limits

	// Cache is nil until OpenCache succeeds. Neither the Session nor the
	// Instantiation Engine reads or writes it, so materialization behaves
	// the same whether or not a cache is opened.
	Cache *instcache.Cache
}

// New parses src as one translation unit and wires every component the
// Instantiation Engine needs, satisfying instantiate.BodyReparser with
// the concrete *parser.Parser that did the parsing — it alone recorded
// the lexer cursor positions a deferred body or trailing-return re-parse
// restores from (spec §4.E, §9 "deferred body re-parsing... requires the
// lexer to expose cheap cursor save/restore").
//
// src is handed to internal/tokfixture rather than a real lexer: the
// token stream itself is explicitly out of scope (spec §1 Non-goals),
// and tokfixture exists precisely so a translation unit can be driven
// through the Declaration Parser without one.
func New(src string, limits config.Limits) (*Session, error) {
	tz := tokfixture.New(src, 0)
	adapter := token.New(tz)
	strs := strtab.New()
	arena := node.NewArena()
	types := typesys.NewRegistry()
	syms := symtab.New()
	templates := template.New(strs)
	p := parser.New(adapter, strs, arena, types, syms, templates)

	for p.Toks.Peek().Kind != token.EOF {
		if _, err := p.ParseTopLevelDeclaration(); err != nil {
			return nil, fmt.Errorf("parsing translation unit: %w", err)
		}
	}

	constraints := constraint.New(arena, strs, types, syms)
	mangler := mangle.New(arena, strs, types)
	engine := instantiate.New(arena, strs, types, templates, syms, constraints, mangler, p, limits.ToEngineLimits())

	return &Session{
		Strs: strs, Arena: arena, Types: types, Syms: syms, Templates: templates,
		Parser: p, Constraints: constraints, Mangler: mangler, Engine: engine,
		Sink: objsink.New(), Limits: limits,
	}, nil
}

// NewWithDefaultLimits builds a Session using internal/instantiate's own
// default recursion cap, for callers (tests, the CLI `dump-cache` and
// `inspect-type` subcommands) that have no need to tune it from the
// environment via internal/config.Load.
func NewWithDefaultLimits(src string) (*Session, error) {
	return New(src, config.Limits{MaxRecursionDepth: instantiate.DefaultLimits().MaxRecursionDepth})
}

// OpenCache connects the persistent instantiation cache at dsn (a local
// sqlite file path, or a libsql/Turso URL per instcache.ConnectSQLite)
// and attaches it to the session. Intended for the `dump-cache` and
// `compile --cache` CLI subcommands; nothing in the Instantiation Engine
// itself depends on a cache being present.
func (s *Session) OpenCache(dsn string, debug bool) error {
	db, err := instcache.ConnectSQLite(dsn, debug)
	if err != nil {
		return err
	}
	s.Cache = instcache.New(db)
	return nil
}

// Lookup resolves name in the global namespace, the starting point every
// CLI subcommand uses to locate the declaration it was asked to
// instantiate or inspect.
func (s *Session) Lookup(name string) (node.Handle, bool) {
	return s.Syms.Lookup(s.Strs.Intern(name))
}

// Intern exposes the session's string table for callers building
// targ.List/TypeSpecifier values from plain Go strings (the CLI layer,
// tests) without reaching into Session.Strs directly.
func (s *Session) Intern(name string) strtab.Handle {
	return s.Strs.Intern(name)
}
