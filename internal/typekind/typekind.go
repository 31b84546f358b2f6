// Package typekind defines the closed fundamental-type taxonomy (spec §3.2)
// and the dense TypeIndex used to address the Type Registry. It is
// deliberately tiny and dependency-free so both the Node Arena and the Type
// Registry can depend on it without creating an import cycle between them.
package typekind

// Type is the closed sum of fundamental and structural type kinds.
type Type int

const (
	Void Type = iota
	Bool
	Char
	UnsignedChar
	Short
	UnsignedShort
	Int
	UnsignedInt
	Long
	UnsignedLong
	LongLong
	UnsignedLongLong
	Float
	Double
	LongDouble
	Nullptr
	Enum
	Union
	Struct
	UserDefined
	Template
	Function
	MemberObjectPointer
	MemberFunctionPointer
	Auto
	Invalid
)

var names = map[Type]string{
	Void: "void", Bool: "bool", Char: "char", UnsignedChar: "unsigned char",
	Short: "short", UnsignedShort: "unsigned short", Int: "int", UnsignedInt: "unsigned int",
	Long: "long", UnsignedLong: "unsigned long", LongLong: "long long",
	UnsignedLongLong: "unsigned long long", Float: "float", Double: "double",
	LongDouble: "long double", Nullptr: "nullptr_t", Enum: "enum", Union: "union",
	Struct: "struct", UserDefined: "user-defined", Template: "template",
	Function: "function", MemberObjectPointer: "member-object-pointer",
	MemberFunctionPointer: "member-function-pointer", Auto: "auto", Invalid: "<invalid>",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "<unknown-type>"
}

// Fundamental reports whether t is one of the built-in arithmetic/void
// types as opposed to a user-defined/template/function/pointer-to-member
// kind.
func (t Type) Fundamental() bool {
	switch t {
	case Void, Bool, Char, UnsignedChar, Short, UnsignedShort, Int, UnsignedInt,
		Long, UnsignedLong, LongLong, UnsignedLongLong, Float, Double, LongDouble, Nullptr:
		return true
	default:
		return false
	}
}

// SizeBits returns the fixed width of a fundamental type on the target ABI
// this core assumes (LP64: Linux/Windows x86-64 common subset), or 0 for
// non-fundamental kinds whose size depends on registry layout.
func (t Type) SizeBits() int {
	switch t {
	case Void:
		return 0
	case Bool, Char, UnsignedChar:
		return 8
	case Short, UnsignedShort:
		return 16
	case Int, UnsignedInt, Float:
		return 32
	case Long, UnsignedLong, LongLong, UnsignedLongLong, Double, Nullptr:
		return 64
	case LongDouble:
		return 128
	default:
		return 0
	}
}

// TypeIndex is a dense integer identifying a TypeInfo in the Type Registry.
// It is stable for the compilation's lifetime. InvalidIndex marks "no type".
type TypeIndex int32

// InvalidIndex is the sentinel for "not yet resolved to a registry slot".
const InvalidIndex TypeIndex = -1
