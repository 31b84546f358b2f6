package node

import "sync"

const arenaChunkSize = 4096

// Arena is the Node Arena: a sequential, chunked allocator giving out
// stable handles. Nodes are append-only; none is ever moved or freed
// during compilation (spec §3.4, §4.B).
type Arena struct {
	mu     sync.Mutex
	chunks [][]ASTNode
}

// NewArena returns an empty arena. Handle 0 is reserved, so slot 0 of the
// first chunk is a nil placeholder that Get/downcast calls reject.
func NewArena() *Arena {
	a := &Arena{}
	a.chunks = append(a.chunks, make([]ASTNode, 1, arenaChunkSize))
	return a
}

func (a *Arena) emplace(n ASTNode) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	last := len(a.chunks) - 1
	if len(a.chunks[last]) == cap(a.chunks[last]) {
		a.chunks = append(a.chunks, make([]ASTNode, 0, arenaChunkSize))
		last++
	}
	idx := len(a.chunks[last])
	a.chunks[last] = append(a.chunks[last], n)
	h := Handle(last*arenaChunkSize + idx)
	n.setSelf(h)
	return h
}

func (a *Arena) get(h Handle) ASTNode {
	if h == Invalid {
		return nil
	}
	chunkIndex := int(h) / arenaChunkSize
	offset := int(h) % arenaChunkSize

	a.mu.Lock()
	defer a.mu.Unlock()
	if chunkIndex < 0 || chunkIndex >= len(a.chunks) || offset >= len(a.chunks[chunkIndex]) {
		return nil
	}
	return a.chunks[chunkIndex][offset]
}

// Len returns the number of live (non-sentinel) nodes, for diagnostics and
// tests.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.chunks {
		n += len(c)
	}
	return n - 1 // exclude the reserved sentinel at handle 0
}

// Get performs the arena's "safe downcast predicate": it fetches the node
// at h and reports whether it is (or can be viewed as) a T.
func Get[T ASTNode](a *Arena, h Handle) (T, bool) {
	var zero T
	n := a.get(h)
	if n == nil {
		return zero, false
	}
	t, ok := n.(T)
	return t, ok
}

// MustGet is Get but panics when the downcast fails; used in code paths
// where the handle's kind is already known (e.g. right after Emplace).
func MustGet[T ASTNode](a *Arena, h Handle) T {
	t, ok := Get[T](a, h)
	if !ok {
		panic("node: downcast failed for handle")
	}
	return t
}

// KindOf returns the Kind tag of the node at h without a full downcast,
// or KindInvalid if h does not resolve.
func (a *Arena) KindOf(h Handle) Kind {
	n := a.get(h)
	if n == nil {
		return KindInvalid
	}
	return n.Kind()
}

// Emplace stores any concrete ASTNode and returns its handle. Typed
// constructors (NewFunctionDeclaration, NewBlock, ...) call this; it is
// exported so callers assembling a node value themselves (e.g. the
// Substitutor producing a cloned variant) can still go through the arena.
func (a *Arena) Emplace(n ASTNode) Handle {
	return a.emplace(n)
}
