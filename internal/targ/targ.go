// Package targ defines the template-argument value representation shared
// by the Type Registry, Template Registry, Constraint Evaluator,
// Expression Substitutor, and Instantiation Engine: a template argument is
// a type, a constant value, a template-template reference, or a pack of
// any of those (spec §3.2, §4.I, glossary "Instantiation key").
package targ

import (
	"fmt"
	"strings"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
)

// Kind tags the shape of one template argument.
type Kind int

const (
	KindType Kind = iota
	KindValue
	KindTemplate
	KindPack
)

// NumKind selects which of ValueInt/ValueBool/ValueFloat a KindValue
// argument actually carries; Type.Base is not always populated for
// directly-constructed non-type arguments, so this is the reliable
// discriminator.
type NumKind int

const (
	NumInt NumKind = iota
	NumBool
	NumFloat
)

// Value is one deduced/explicit template argument.
type Value struct {
	ArgKind Kind

	Type node.TypeSpecifier // valid when ArgKind == KindType

	// ValueInt/ValueBool/ValueFloat hold a non-type argument's constant
	// value; which one is meaningful is selected by NumKind, not by
	// Type.Base (Type is frequently left zero-valued for these).
	NumKind    NumKind
	ValueInt   int64
	ValueBool  bool
	ValueFloat float64

	TemplateName strtab.Handle // valid when ArgKind == KindTemplate

	Pack []Value // valid when ArgKind == KindPack

	// Dependent marks an argument that still names an unresolved template
	// parameter (spec §4.J.3.1): registering a dependent placeholder
	// TypeInfo short-circuits class instantiation.
	Dependent bool
}

// Type builds a KindType argument.
func Type(spec node.TypeSpecifier) Value { return Value{ArgKind: KindType, Type: spec} }

// Int builds a KindValue non-type integer argument.
func Int(v int64) Value { return Value{ArgKind: KindValue, NumKind: NumInt, ValueInt: v} }

// Bool builds a KindValue non-type boolean argument.
func Bool(v bool) Value { return Value{ArgKind: KindValue, NumKind: NumBool, ValueBool: v} }

// Float builds a KindValue non-type floating-point argument.
func Float(v float64) Value { return Value{ArgKind: KindValue, NumKind: NumFloat, ValueFloat: v} }

// Pack builds a KindPack argument from its elements.
func Pack(elems []Value) Value { return Value{ArgKind: KindPack, Pack: elems} }

// List is an ordered list of template arguments, the unit the Template
// Registry and Type Registry key their caches on.
type List []Value

// CacheKey renders the argument list into a stable, content-addressed
// string suitable for use as (part of) an InstantiationKey: two
// structurally identical argument lists must render identically regardless
// of how they were produced (deduced vs explicit), per spec §4.J.4
// "mangled-name uniqueness".
func (l List) CacheKey() string {
	var b strings.Builder
	for i, v := range l {
		if i > 0 {
			b.WriteByte(',')
		}
		v.render(&b)
	}
	return b.String()
}

func (v Value) render(b *strings.Builder) {
	switch v.ArgKind {
	case KindType:
		b.WriteString("T:")
		b.WriteString(renderTypeSpec(v.Type))
	case KindValue:
		switch v.NumKind {
		case NumBool:
			fmt.Fprintf(b, "V:b:%v", v.ValueBool)
		case NumFloat:
			fmt.Fprintf(b, "V:f:%g", v.ValueFloat)
		default:
			fmt.Fprintf(b, "V:i:%d", v.ValueInt)
		}
	case KindTemplate:
		fmt.Fprintf(b, "K:%d", v.TemplateName)
	case KindPack:
		b.WriteString("P[")
		for i, e := range v.Pack {
			if i > 0 {
				b.WriteByte(';')
			}
			e.render(b)
		}
		b.WriteString("]")
	}
}

func renderTypeSpec(ts node.TypeSpecifier) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", ts.Base)
	if ts.Index >= 0 {
		fmt.Fprintf(&b, "#%d", ts.Index)
	}
	for range ts.Pointers {
		b.WriteByte('*')
	}
	b.WriteString(ts.Ref.String())
	if ts.CV.Const {
		b.WriteString("c")
	}
	if ts.CV.Volatile {
		b.WriteString("v")
	}
	if ts.IsArray {
		b.WriteByte('[')
		if ts.ArraySize != nil {
			fmt.Fprintf(&b, "%d", *ts.ArraySize)
		}
		b.WriteByte(']')
	}
	if ts.TemplateParamName != "" {
		b.WriteString("$" + ts.TemplateParamName)
	}
	return b.String()
}
