// Package typesys implements the Type Registry (component C): the closed
// type taxonomy, TypeSpecifier/TypeInfo bookkeeping, and struct layout
// computation (spec §3.2, §4.C).
package typesys

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

// StructTypeInfo is the computed layout of a struct/class/union, owned by
// the TypeInfo that names it.
type StructTypeInfo struct {
	Fields        []node.MemberField
	StaticMembers []node.StaticMember
	Methods       []node.Handle // FunctionDeclaration handles
	Constructors  []node.Handle
	Destructor    node.Handle
	Bases         []node.BaseClassSpec
	NestedClasses []node.Handle

	IsUnion              bool
	IsAbstract           bool
	IsFinal              bool
	HasVtable            bool
	HasUserDefinedCtor   bool
	HasUserDefinedDtor   bool
	DeletedCopyCtor      bool
	DeletedCopyAssign    bool
	DeletedMoveCtor      bool
	DeletedMoveAssign    bool
	DeletedDefaultCtor   bool

	TotalSize     int64
	Alignment     int64
	PackAlignment int64 // 0 means "no explicit #pragma pack"
}

// TypeInfo is one entry per distinct user-defined or interned-template
// type (spec §3.2).
type TypeInfo struct {
	Name   strtab.Handle
	Type   typekind.Type
	Index  typekind.TypeIndex
	SizeBits int64

	Struct *StructTypeInfo // non-nil for Struct/Union

	// Template instantiation metadata (spec §3.2/§3.4).
	BaseTemplateName strtab.Handle
	Arguments        targ.List
	Incomplete       bool // dependent placeholder, not yet a complete type
	FullyInstantiated bool
}

// Complete reports the invariant from spec §3.3: a fully instantiated
// TypeInfo has SizeBits == Struct.TotalSize*8 and Incomplete == false.
func (ti *TypeInfo) Complete() bool {
	if ti.Incomplete {
		return false
	}
	if ti.Struct == nil {
		return ti.SizeBits > 0 || ti.Type == typekind.Void
	}
	return ti.SizeBits == ti.Struct.TotalSize*8
}
