// Package mangle implements the Name Mangler (component K): it turns a
// FunctionDeclaration plus its namespace path into an ABI-stable linkage
// name, per spec §4.K. Class-template instantiations get a short
// content-addressed internal identifier instead of a full platform mangling
// until/unless they are given external linkage.
package mangle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// Platform selects the target ABI's mangling scheme.
type Platform int

const (
	Itanium Platform = iota // Linux, macOS, most non-Windows targets
	MSVC                    // Windows
)

// ShortHash produces the internal (non-ABI) identifier for a class-template
// instantiation: baseName$hash, where hash is a content-addressed digest of
// the resolved argument list (spec §4.K). This is never emitted to an object
// file; it only needs to be stable and collision-resistant within one
// compiler session's instantiation cache.
func ShortHash(baseName string, args targ.List) string {
	sum := sha256.Sum256([]byte(baseName + "|" + args.CacheKey()))
	return baseName + "$" + hex.EncodeToString(sum[:8])
}

// Mangler resolves the names it needs (parameter and user-defined type
// spellings) against the same Arena/String Table/Type Registry the rest of
// the core shares, per the one-owner-per-session pattern the compiler
// session wires up.
type Mangler struct {
	Arena *node.Arena
	Strs  *strtab.Table
	Types *typesys.Registry
}

func New(a *node.Arena, strs *strtab.Table, types *typesys.Registry) *Mangler {
	return &Mangler{Arena: a, Strs: strs, Types: types}
}

// Function produces the externally-linked symbol name for fd on platform.
// A declaration with C linkage keeps its plain spelling: extern "C" exists
// precisely to opt out of mangling.
func (m *Mangler) Function(fd *node.FunctionDeclaration, platform Platform) string {
	if fd.Linkage == node.LinkageC {
		name, _ := m.Strs.View(fd.Name)
		return name
	}
	switch platform {
	case MSVC:
		return m.msvcFunction(fd)
	default:
		return m.itaniumFunction(fd)
	}
}

// --- Itanium (Linux/macOS) ---

func (m *Mangler) itaniumFunction(fd *node.FunctionDeclaration) string {
	var b strings.Builder
	b.WriteString("_Z")
	m.writeItaniumName(&b, fd.NamespacePath, fd.Name)
	m.writeItaniumParams(&b, fd.Parameters)
	return b.String()
}

func (m *Mangler) writeItaniumName(b *strings.Builder, ns []strtab.Handle, name strtab.Handle) {
	leaf, _ := m.Strs.View(name)
	if len(ns) == 0 {
		fmt.Fprintf(b, "%d%s", len(leaf), leaf)
		return
	}
	b.WriteByte('N')
	for _, h := range ns {
		part, _ := m.Strs.View(h)
		fmt.Fprintf(b, "%d%s", len(part), part)
	}
	fmt.Fprintf(b, "%d%s", len(leaf), leaf)
	b.WriteByte('E')
}

func (m *Mangler) writeItaniumParams(b *strings.Builder, params []node.Handle) {
	if len(params) == 0 {
		b.WriteByte('v')
		return
	}
	for _, h := range params {
		p := node.MustGet[*node.ParameterDeclaration](m.Arena, h)
		ts := node.MustGet[*node.TypeSpecifierNode](m.Arena, p.Type)
		b.WriteString(m.itaniumType(ts.Spec))
	}
}

var itaniumFundamental = map[typekind.Type]string{
	typekind.Void: "v", typekind.Bool: "b", typekind.Char: "c",
	typekind.UnsignedChar: "h", typekind.Short: "s", typekind.UnsignedShort: "t",
	typekind.Int: "i", typekind.UnsignedInt: "j", typekind.Long: "l",
	typekind.UnsignedLong: "m", typekind.LongLong: "x", typekind.UnsignedLongLong: "y",
	typekind.Float: "f", typekind.Double: "d", typekind.LongDouble: "e",
}

// itaniumType encodes one TypeSpecifier's base/pointer/reference/cv chain.
// User-defined base kinds (struct/union/enum) resolve their spelling from
// the Type Registry; anything not found there falls back to a stable
// placeholder rather than failing the whole mangling.
func (m *Mangler) itaniumType(spec node.TypeSpecifier) string {
	var b strings.Builder
	switch spec.Ref {
	case node.RefLValue:
		b.WriteByte('R')
	case node.RefRValue:
		b.WriteByte('O')
	}
	for i := len(spec.Pointers) - 1; i >= 0; i-- {
		lvl := spec.Pointers[i]
		if lvl.CV.Volatile {
			b.WriteByte('V')
		}
		if lvl.CV.Const {
			b.WriteByte('K')
		}
		b.WriteByte('P')
	}
	if spec.CV.Volatile {
		b.WriteByte('V')
	}
	if spec.CV.Const {
		b.WriteByte('K')
	}
	if code, ok := itaniumFundamental[spec.Base]; ok {
		b.WriteString(code)
		return b.String()
	}
	if spec.Base == typekind.Nullptr {
		b.WriteString("Dn")
		return b.String()
	}
	userDefinedName := "UnknownType"
	if m.Types != nil && spec.Index != typekind.InvalidIndex {
		if ti, ok := m.Types.Get(spec.Index); ok {
			if view, ok := m.Strs.View(ti.Name); ok {
				userDefinedName = view
			}
		}
	}
	fmt.Fprintf(&b, "%d%s", len(userDefinedName), userDefinedName)
	return b.String()
}

// --- MSVC (Windows) ---
//
// Full MSVC mangling depends on calling-convention and storage-class
// encodings this core does not model; we produce a simplified but
// deterministic, distinct-per-signature form rather than a byte-exact
// cl.exe mangling. Object-file writers and linker integration are out of
// scope, so nothing downstream depends on byte-exact MSVC output.
func (m *Mangler) msvcFunction(fd *node.FunctionDeclaration) string {
	var b strings.Builder
	b.WriteByte('?')
	name, _ := m.Strs.View(fd.Name)
	b.WriteString(name)
	for i := len(fd.NamespacePath) - 1; i >= 0; i-- {
		part, _ := m.Strs.View(fd.NamespacePath[i])
		b.WriteByte('@')
		b.WriteString(part)
	}
	b.WriteString("@@YA")
	b.WriteString(m.msvcReturnAndParams(fd))
	b.WriteByte('Z')
	return b.String()
}

func (m *Mangler) msvcReturnAndParams(fd *node.FunctionDeclaration) string {
	var b strings.Builder
	ret := node.MustGet[*node.TypeSpecifierNode](m.Arena, fd.ReturnType)
	b.WriteString(m.msvcType(ret.Spec))
	if len(fd.Parameters) == 0 {
		b.WriteString("X")
		return b.String()
	}
	for _, h := range fd.Parameters {
		p := node.MustGet[*node.ParameterDeclaration](m.Arena, h)
		ts := node.MustGet[*node.TypeSpecifierNode](m.Arena, p.Type)
		b.WriteString(m.msvcType(ts.Spec))
	}
	b.WriteByte('Z')
	return b.String()
}

var msvcFundamental = map[typekind.Type]string{
	typekind.Void: "X", typekind.Bool: "_N", typekind.Char: "D",
	typekind.UnsignedChar: "E", typekind.Short: "F", typekind.UnsignedShort: "G",
	typekind.Int: "H", typekind.UnsignedInt: "I", typekind.Long: "J",
	typekind.UnsignedLong: "K", typekind.LongLong: "_J", typekind.UnsignedLongLong: "_K",
	typekind.Float: "M", typekind.Double: "N", typekind.LongDouble: "O",
}

func (m *Mangler) msvcType(spec node.TypeSpecifier) string {
	prefix := ""
	for range spec.Pointers {
		prefix += "PE"
		if spec.CV.Const {
			prefix += "B"
		} else {
			prefix += "A"
		}
	}
	if code, ok := msvcFundamental[spec.Base]; ok {
		return prefix + code
	}
	name := "UnknownType"
	if m.Types != nil && spec.Index != typekind.InvalidIndex {
		if ti, ok := m.Types.Get(spec.Index); ok {
			if view, ok := m.Strs.View(ti.Name); ok {
				name = view
			}
		}
	}
	return prefix + "V" + name + "@@"
}
