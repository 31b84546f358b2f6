package typesys

import (
	"fmt"
	"sync"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/ferr"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

// InstantiationState is the three-state lifecycle of a cache entry (spec
// §3.4): NotStarted -> InProgress -> Complete(result).
type InstantiationState int

const (
	NotStarted InstantiationState = iota
	InProgress
	Complete
)

// InstantiationKey is (internedTemplateName, orderedArguments), the cache
// key for both class-template and function-template instantiation (spec
// glossary, §4.G, §4.J.4).
type InstantiationKey struct {
	Name strtab.Handle
	Args string // targ.List.CacheKey()
}

func NewInstantiationKey(name strtab.Handle, args targ.List) InstantiationKey {
	return InstantiationKey{Name: name, Args: args.CacheKey()}
}

type cacheEntry struct {
	state InstantiationState
	index typekind.TypeIndex
}

// Registry is the Type Registry (component C). It owns the dense TypeInfo
// vector and the class-template instantiation cache; a single owner (the
// parser/instantiation engine) mutates it, per spec §5.
type Registry struct {
	mu    sync.Mutex
	types []*TypeInfo
	byName map[strtab.Handle]typekind.TypeIndex
	cache  map[InstantiationKey]*cacheEntry
}

// NewRegistry seeds the registry with the fundamental types so every
// typekind.Type other than Struct/Union/Enum/UserDefined/Template resolves
// to a stable TypeIndex from the start.
func NewRegistry() *Registry {
	r := &Registry{byName: map[strtab.Handle]typekind.TypeIndex{}, cache: map[InstantiationKey]*cacheEntry{}}
	for _, t := range []typekind.Type{
		typekind.Void, typekind.Bool, typekind.Char, typekind.UnsignedChar,
		typekind.Short, typekind.UnsignedShort, typekind.Int, typekind.UnsignedInt,
		typekind.Long, typekind.UnsignedLong, typekind.LongLong, typekind.UnsignedLongLong,
		typekind.Float, typekind.Double, typekind.LongDouble, typekind.Nullptr, typekind.Auto,
	} {
		idx := typekind.TypeIndex(len(r.types))
		r.types = append(r.types, &TypeInfo{Type: t, Index: idx, SizeBits: int64(t.SizeBits()), FullyInstantiated: true})
	}
	return r
}

// Fundamental returns the pre-seeded TypeIndex for a fundamental type.
func (r *Registry) Fundamental(t typekind.Type) typekind.TypeIndex {
	for _, ti := range r.types {
		if ti.Type == t && ti.Struct == nil && ti.Name == strtab.Invalid {
			return ti.Index
		}
	}
	return typekind.InvalidIndex
}

// AddStruct creates (or returns the existing empty) TypeInfo for name,
// per spec §4.C `addStruct(name) -> &mut TypeInfo`. The invariant
// `TypeInfo::index == position in registry` always holds because slots are
// only ever appended.
func (r *Registry) AddStruct(name strtab.Handle) *TypeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byName[name]; ok {
		return r.types[idx]
	}
	idx := typekind.TypeIndex(len(r.types))
	ti := &TypeInfo{Name: name, Type: typekind.Struct, Index: idx, Incomplete: true}
	r.types = append(r.types, ti)
	r.byName[name] = idx
	return ti
}

// Lookup finds a previously registered named type.
func (r *Registry) Lookup(name strtab.Handle) (*TypeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.types[idx], true
}

// Get fetches a TypeInfo by its dense index.
func (r *Registry) Get(idx typekind.TypeIndex) (*TypeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || int(idx) >= len(r.types) {
		return nil, false
	}
	return r.types[idx], true
}

// align rounds up v to the next multiple of alignment (alignment must be a
// power of two, or 1).
func align(v, alignment int64) int64 {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

// Finalize computes offsets for struct, given member sizes/alignments
// already filled in by the caller via SetMemberSizeBits (spec §4.C
// `finalize`). Returns a LayoutError on an alignment conflict or a
// final-class base violation.
func (r *Registry) Finalize(ti *TypeInfo, sizer func(fieldIndex int) int64) error {
	if ti.Struct == nil {
		return ferr.New(ferr.ErrLayout, ferr.Location{}, "finalize called on non-struct TypeInfo %v", ti.Name)
	}
	s := ti.Struct

	var offset int64
	var maxAlign int64 = 1
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.IsBitfield {
			width := int64(8)
			if f.BitfieldWidth != nil {
				width = *f.BitfieldWidth
			}
			f.Offset = offset * 8 // bit offset, intentionally not byte-aligned
			offset += (width + 7) / 8
			continue
		}
		fieldBits := sizer(i)
		size := (fieldBits + 7) / 8
		if size <= 0 {
			size = 1
		}
		alignment := size
		if alignment > 8 {
			alignment = 8
		}
		if alignment > maxAlign {
			maxAlign = alignment
		}
		if s.IsUnion {
			f.Offset = 0
			if size > offset {
				offset = size
			}
			continue
		}
		aligned := align(offset, alignment)
		f.Offset = aligned
		offset = aligned + size
	}

	if s.PackAlignment > 0 && s.PackAlignment < maxAlign {
		maxAlign = s.PackAlignment
	}
	if maxAlign < 1 {
		maxAlign = 1
	}
	s.Alignment = maxAlign
	s.TotalSize = align(offset, maxAlign)
	if s.TotalSize == 0 {
		s.TotalSize = maxAlign // empty struct still occupies at least one alignment unit
	}

	ti.SizeBits = s.TotalSize * 8
	ti.Incomplete = false
	ti.FullyInstantiated = true
	return nil
}

// ComputeWithBases lays out primary/virtual bases before members (spec
// §4.C `computeWithBases`). baseSizes supplies each base's already-computed
// byte size in declaration order; it returns the starting offset for
// members and a LayoutError if a final-class or conflicting-virtual-
// override violation is detected.
func (r *Registry) ComputeWithBases(ti *TypeInfo, baseInfos []*TypeInfo) (int64, error) {
	if ti.Struct == nil {
		return 0, ferr.New(ferr.ErrLayout, ferr.Location{}, "computeWithBases called on non-struct TypeInfo")
	}
	var offset int64
	seenVirtualOverride := map[string]bool{}
	for i, base := range ti.Struct.Bases {
		if i >= len(baseInfos) || baseInfos[i] == nil {
			continue
		}
		bi := baseInfos[i]
		if bi.Struct != nil && bi.Struct.IsFinal {
			return 0, ferr.New(ferr.ErrLayout, ferr.Location{},
				"cannot derive from final class %v", bi.Name)
		}
		if bi.Struct != nil {
			for _, m := range bi.Struct.Methods {
				key := fmt.Sprintf("%d", m)
				if base.Virtual && seenVirtualOverride[key] {
					return 0, ferr.New(ferr.ErrLayout, ferr.Location{}, "conflicting virtual override")
				}
				if base.Virtual {
					seenVirtualOverride[key] = true
				}
			}
		}
		alignment := int64(8)
		offset = align(offset, alignment)
		if bi.Struct != nil {
			offset += bi.Struct.TotalSize
		}
	}
	return offset, nil
}

// GetOrCompute consults the instantiation cache before any AST cloning
// happens (spec §4.J.4 "single source of truth"). If the key is
// NotStarted, it marks it InProgress and returns (InvalidIndex, NotStarted,
// false) so the caller knows to materialize. If InProgress, it reports the
// cycle (CRTP-style: callers proceed without failing, per spec §4.J.3.2).
func (r *Registry) GetOrCompute(key InstantiationKey) (typekind.TypeIndex, InstantiationState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[key]
	if !ok {
		r.cache[key] = &cacheEntry{state: InProgress}
		return typekind.InvalidIndex, NotStarted, false
	}
	return e.index, e.state, e.state == Complete
}

// CompleteInstantiation marks key Complete with the resulting TypeIndex.
func (r *Registry) CompleteInstantiation(key InstantiationKey, idx typekind.TypeIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = &cacheEntry{state: Complete, index: idx}
}

// CacheLen reports the number of tracked instantiation keys, for tests.
func (r *Registry) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
