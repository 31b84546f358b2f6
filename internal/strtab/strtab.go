// Package strtab implements the String Table (component A): an interner
// that hands out stable 32-bit handles resolvable in O(1) to a UTF-8 view
// plus a pre-computed FNV-1a hash, per spec §3.1 and §4.A.
package strtab

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Handle is a packed (chunkIndex, offsetInChunk) reference into the table.
// The zero value is reserved to mean "invalid".
type Handle uint32

// Invalid is the reserved zero handle.
const Invalid Handle = 0

const (
	chunkBits   = 12 // 4096 entries per chunk
	chunkSize   = 1 << chunkBits
	chunkMask   = chunkSize - 1
)

func pack(chunkIndex, offset int) Handle {
	return Handle((uint32(chunkIndex) << chunkBits) | uint32(offset&chunkMask))
}

func unpack(h Handle) (chunkIndex, offset int) {
	v := uint32(h)
	return int(v >> chunkBits), int(v & chunkMask)
}

type entry struct {
	text string
	hash uint64
}

// Table is the String Table. It is append-only for the compilation's
// lifetime: handles never invalidate and are stable across the session.
type Table struct {
	mu      sync.Mutex
	chunks  [][]entry
	byText  map[string]Handle
	uniqueN uint64
}

// New returns an empty String Table. Handle 0 is reserved, so the table
// pre-allocates a sentinel entry at chunk 0, offset 0.
func New() *Table {
	t := &Table{byText: make(map[string]Handle)}
	t.chunks = append(t.chunks, make([]entry, 1, chunkSize)) // index 0 == Invalid
	return t
}

func normalize(view string) string {
	// NFC-normalize so visually identical identifiers from different
	// source encodings intern to the same handle (see SPEC_FULL.md domain
	// stack: golang.org/x/text wiring).
	return norm.NFC.String(view)
}

func fnv1a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Intern interns view and returns its handle. Idempotent: equal strings
// (after NFC normalization) map to bit-identical handles.
func (t *Table) Intern(view string) Handle {
	normalized := normalize(view)

	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.byText[normalized]; ok {
		return h
	}
	return t.insertLocked(normalized)
}

// CreateUnique always allocates a fresh handle for view, suffixing it with
// a UUID so compiler-generated names (e.g. instantiation-local temporaries)
// never collide with user identifiers or with each other, even across
// compiler invocations that share a persistent instantiation cache.
func (t *Table) CreateUnique(view string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.uniqueN++
	unique := view + "$" + uuid.NewString()
	return t.insertLocked(unique)
}

func (t *Table) insertLocked(text string) Handle {
	last := len(t.chunks) - 1
	if len(t.chunks[last]) == cap(t.chunks[last]) {
		t.chunks = append(t.chunks, make([]entry, 0, chunkSize))
		last++
	}
	idx := len(t.chunks[last])
	t.chunks[last] = append(t.chunks[last], entry{text: text, hash: fnv1a(text)})
	h := pack(last, idx)
	t.byText[text] = h
	return h
}

// View resolves handle to its interned UTF-8 view in O(1).
func (t *Table) View(h Handle) (string, bool) {
	if h == Invalid {
		return "", false
	}
	chunkIndex, offset := unpack(h)
	t.mu.Lock()
	defer t.mu.Unlock()
	if chunkIndex < 0 || chunkIndex >= len(t.chunks) || offset >= len(t.chunks[chunkIndex]) {
		return "", false
	}
	return t.chunks[chunkIndex][offset].text, true
}

// Hash returns the pre-computed FNV-1a hash stored with the string.
func (t *Table) Hash(h Handle) (uint64, bool) {
	if h == Invalid {
		return 0, false
	}
	chunkIndex, offset := unpack(h)
	t.mu.Lock()
	defer t.mu.Unlock()
	if chunkIndex < 0 || chunkIndex >= len(t.chunks) || offset >= len(t.chunks[chunkIndex]) {
		return 0, false
	}
	return t.chunks[chunkIndex][offset].hash, true
}

// MustView is View but panics on an invalid handle; useful in code paths
// where the handle is known-good (e.g. freshly interned).
func (t *Table) MustView(h Handle) string {
	v, ok := t.View(h)
	if !ok {
		panic("strtab: invalid handle")
	}
	return v
}

// Interned returns every distinct string interned so far, excluding the
// reserved sentinel at handle 0. Used by diagnostics that need to search
// for a near-miss spelling (e.g. an unknown concept name).
func (t *Table) Interned() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byText))
	for text := range t.byText {
		out = append(out, text)
	}
	return out
}
