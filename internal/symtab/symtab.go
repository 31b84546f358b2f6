// Package symtab implements the Symbol Table (component D): hierarchical
// scopes binding names to AST nodes, with a namespace hierarchy supporting
// qualified lookup (spec §4.D).
package symtab

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
)

// ScopeKind is the kind of a lexical scope.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeNamespace
	ScopeFunction
	ScopeBlock
)

type scope struct {
	kind     ScopeKind
	name     strtab.Handle // namespace name, if ScopeNamespace
	parent   *scope
	bindings map[strtab.Handle]node.Handle
	children map[strtab.Handle]*scope // nested namespaces, for qualified lookup
}

func newScope(kind ScopeKind, name strtab.Handle, parent *scope) *scope {
	return &scope{kind: kind, name: name, parent: parent, bindings: map[strtab.Handle]node.Handle{}, children: map[strtab.Handle]*scope{}}
}

// Table is the Symbol Table. The global scope is created eagerly; all
// other scopes are entered/exited by the Declaration Parser as it
// descends into namespaces, functions, and blocks.
type Table struct {
	global  *scope
	current *scope
}

// New returns a Table with only the global scope active.
func New() *Table {
	g := newScope(ScopeGlobal, strtab.Invalid, nil)
	return &Table{global: g, current: g}
}

// EnterScope pushes a new scope of the given kind. For ScopeNamespace,
// name identifies (and, if needed, creates) the namespace so repeated
// `namespace N { ... }` blocks reopen the same child scope.
func (t *Table) EnterScope(kind ScopeKind, name strtab.Handle) {
	if kind == ScopeNamespace && name != strtab.Invalid {
		if existing, ok := t.current.children[name]; ok {
			t.current = existing
			return
		}
		child := newScope(kind, name, t.current)
		t.current.children[name] = child
		t.current = child
		return
	}
	t.current = newScope(kind, name, t.current)
}

// ExitScope pops the current scope back to its parent. Exiting the global
// scope is a no-op (there is nothing above it).
func (t *Table) ExitScope() {
	if t.current.parent != nil {
		t.current = t.current.parent
	}
}

// CurrentKind reports the kind of the active scope.
func (t *Table) CurrentKind() ScopeKind { return t.current.kind }

// Insert binds name in the current scope.
func (t *Table) Insert(name strtab.Handle, n node.Handle) {
	t.current.bindings[name] = n
}

// InsertGlobal binds name in the global scope regardless of current depth,
// used for template instantiations and out-of-line definitions (spec
// §4.D).
func (t *Table) InsertGlobal(name strtab.Handle, n node.Handle) {
	t.global.bindings[name] = n
}

// Lookup walks the scope chain from current outward to global.
func (t *Table) Lookup(name strtab.Handle) (node.Handle, bool) {
	for s := t.current; s != nil; s = s.parent {
		if n, ok := s.bindings[name]; ok {
			return n, true
		}
	}
	return node.Invalid, false
}

// NamespacePath returns the chain of namespace names from global down to
// the current scope, for mangling and out-of-line definition bookkeeping.
func (t *Table) NamespacePath() []strtab.Handle {
	var stack []strtab.Handle
	for s := t.current; s != nil; s = s.parent {
		if s.kind == ScopeNamespace {
			stack = append([]strtab.Handle{s.name}, stack...)
		}
	}
	return stack
}

// LookupQualified resolves `path[0]::path[1]::...::name`, traversing the
// namespace tree from the global scope (spec §4.D "resolving
// template-instantiated namespaces as needed" — a namespace name that is
// itself an instantiated alias is just another child scope by the time it
// reaches this table).
func (t *Table) LookupQualified(path []strtab.Handle, name strtab.Handle) (node.Handle, bool) {
	cur := t.global
	for _, seg := range path {
		child, ok := cur.children[seg]
		if !ok {
			return node.Invalid, false
		}
		cur = child
	}
	if n, ok := cur.bindings[name]; ok {
		return n, true
	}
	return node.Invalid, false
}

// AncestorBindings walks the current scope's ancestor chain collecting
// every binding visible for name, used by the instantiation engine's
// overload-collection step (spec §4.J.2.a: "walk the current namespace's
// ancestor chain").
func (t *Table) AncestorBindings(name strtab.Handle) []node.Handle {
	var out []node.Handle
	for s := t.current; s != nil; s = s.parent {
		if n, ok := s.bindings[name]; ok {
			out = append(out, n)
		}
	}
	return out
}
