// Package template implements the Template Registry (component G): per-
// name storage of primary declarations, partial-specialization patterns,
// full specializations, the instantiation cache, out-of-line member
// definitions awaiting their template, and member-template alias bindings
// (spec §4.G).
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// PartialSpec is one partial-specialization pattern for a class template.
type PartialSpec struct {
	Declaration node.Handle // TemplateClassDeclaration, IsPartialSpec == true
	Pattern     []node.Handle
}

// OutOfLineDefinition is a member function or static member whose body was
// defined outside its enclosing class template, queued until the template
// is instantiated (spec §4.G, §4.J.3.5).
type OutOfLineDefinition struct {
	TemplateName strtab.Handle
	MemberName   strtab.Handle
	Declaration  node.Handle
}

// entry is everything the registry tracks for one template name.
type entry struct {
	primaries          []node.Handle // TemplateFunctionDeclaration or TemplateClassDeclaration
	partials           []PartialSpec
	fullSpecs          map[string]node.Handle // InstantiationKey.Args -> TemplateClassDeclaration
	aliasBindings      map[string]node.Handle // per-instantiation member-template alias name -> aliased TemplateAlias
}

func newEntry() *entry {
	return &entry{fullSpecs: map[string]node.Handle{}, aliasBindings: map[string]node.Handle{}}
}

// Registry is the Template Registry.
type Registry struct {
	mu       sync.Mutex
	byName   map[strtab.Handle]*entry
	outOfLine []OutOfLineDefinition
	strs     *strtab.Table
}

// New returns an empty Registry holding strs; the registry never mutates
// it. MangleTemplateName takes its own table argument rather than this one.
func New(strs *strtab.Table) *Registry {
	return &Registry{byName: map[strtab.Handle]*entry{}, strs: strs}
}

func (r *Registry) entryFor(name strtab.Handle) *entry {
	e, ok := r.byName[name]
	if !ok {
		e = newEntry()
		r.byName[name] = e
	}
	return e
}

// RegisterPrimary adds a primary template declaration (function templates
// may be overloaded; class templates may have at most one primary, but
// that invariant is enforced by the parser/instantiation engine, not here).
func (r *Registry) RegisterPrimary(name strtab.Handle, decl node.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(name)
	e.primaries = append(e.primaries, decl)
}

// Primaries returns every primary declaration registered under name, in
// declaration order (spec §5 "template overloads are tried in declaration
// order").
func (r *Registry) Primaries(name strtab.Handle) []node.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok {
		return nil
	}
	return append([]node.Handle(nil), e.primaries...)
}

// RegisterPartialSpec adds a partial-specialization pattern.
func (r *Registry) RegisterPartialSpec(name strtab.Handle, spec PartialSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(name)
	e.partials = append(e.partials, spec)
}

// RegisterFullSpec adds a full specialization, keyed by its exact argument
// list's cache key.
func (r *Registry) RegisterFullSpec(name strtab.Handle, args targ.List, decl node.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(name)
	e.fullSpecs[args.CacheKey()] = decl
}

// lookupExactSpecialization returns the full specialization exactly
// matching args, if any (spec §4.G, §4.J.3.4 "specialization lookup
// prefers: exact specialization -> partial-specialization pattern match ->
// primary").
func (r *Registry) LookupExactSpecialization(name strtab.Handle, args targ.List) (node.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok {
		return node.Invalid, false
	}
	h, ok := e.fullSpecs[args.CacheKey()]
	return h, ok
}

// PartialSpecs returns the registered partial-specialization patterns for
// name, in declaration order; the Instantiation Engine is responsible for
// pattern matching against args (spec §4.J.3.4).
func (r *Registry) PartialSpecs(name strtab.Handle) []PartialSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok {
		return nil
	}
	return append([]PartialSpec(nil), e.partials...)
}

// LookupAllTemplates returns primaries, partial specs, and full specs
// registered under name, for diagnostics and the cycle-safe re-lookup the
// Instantiation Engine performs when recursively instantiating (spec
// §4.G `lookupAllTemplates`).
func (r *Registry) LookupAllTemplates(name strtab.Handle) (primaries []node.Handle, partials []PartialSpec, fullSpecs map[string]node.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, nil, nil
	}
	return append([]node.Handle(nil), e.primaries...),
		append([]PartialSpec(nil), e.partials...),
		e.fullSpecs
}

// QueueOutOfLineDefinition records a member definition seen before its
// enclosing class template was (or could be) instantiated.
func (r *Registry) QueueOutOfLineDefinition(def OutOfLineDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outOfLine = append(r.outOfLine, def)
}

// DrainOutOfLineDefinitions returns, and clears, every queued definition
// matching templateName; called once that template's instantiation is
// underway (spec §4.J.3.5).
func (r *Registry) DrainOutOfLineDefinitions(templateName strtab.Handle) []OutOfLineDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []OutOfLineDefinition
	var rest []OutOfLineDefinition
	for _, d := range r.outOfLine {
		if d.TemplateName == templateName {
			matched = append(matched, d)
		} else {
			rest = append(rest, d)
		}
	}
	r.outOfLine = rest
	return matched
}

// BindMemberAlias records a member-template alias binding for one
// instantiation (spec §4.G "registry of member-template alias bindings
// for each instantiated class").
func (r *Registry) BindMemberAlias(name strtab.Handle, instantiationKey string, aliasDecl node.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryFor(name)
	e.aliasBindings[fmt.Sprintf("%s::%d", instantiationKey, aliasDecl)] = aliasDecl
}

// MangleTemplateName produces a content-addressed, hash-based identifier
// for one instantiation, used as the internal (non-externally-linked)
// symbol name before the Name Mangler produces the platform-ABI form
// (spec §4.G `mangleTemplateName`).
func MangleTemplateName(strs *strtab.Table, name strtab.Handle, args targ.List) string {
	view, _ := strs.View(name)
	sum := sha256.Sum256([]byte(view + "|" + args.CacheKey()))
	return "_TI_" + view + "_" + hex.EncodeToString(sum[:8])
}

// InstantiationKeyFor is a small convenience wrapper so callers in this
// package don't need to import typesys solely to build a key.
func InstantiationKeyFor(name strtab.Handle, args targ.List) typesys.InstantiationKey {
	return typesys.NewInstantiationKey(name, args)
}
