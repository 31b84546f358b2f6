// Package objsink is a no-op, in-memory implementation of the code
// generator / object-file writer capability set this core produces
// against (spec §6.2). It exists purely so the Instantiation Engine and
// compiler session can be exercised and observed end-to-end in tests
// without a real ELF64/COFF writer, which is explicitly out of scope
// (spec §1, §6.2: "the core itself produces only the in-memory
// symbol/relocation stream; the writer serializes it").
package objsink

import "strconv"

// Section names a target section a symbol or data blob belongs in.
type Section int

const (
	Text Section = iota
	Data
	Bss
	RData
)

// RelocationKind covers the two relocation forms spec §6.2 names as a
// minimum.
type RelocationKind int

const (
	RelocPCRelative32 RelocationKind = iota
	RelocAbsolute64
)

// Linkage mirrors node.Linkage's two externally-relevant values; objsink
// does not import internal/node to keep this package a leaf the way a
// real object-file writer would be (consumed by, never depending on, the
// compiler core).
type Linkage int

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkageC
)

// FunctionSymbol records one addFunctionSymbol call.
type FunctionSymbol struct {
	MangledName   string
	SectionOffset int64
	StackSpace    int64
	Linkage       Linkage
}

// DataBlob records one addData call.
type DataBlob struct {
	Bytes   []byte
	Section Section
}

// Relocation records one addRelocation call.
type Relocation struct {
	Offset     int64
	SymbolName string
	Kind       RelocationKind
}

// StringLiteral records one addStringLiteral call and the symbol name
// the sink assigned it.
type StringLiteral struct {
	Content    string
	SymbolName string
}

// GlobalVariable records one addGlobalVariable call.
type GlobalVariable struct {
	Name          string
	SizeBytes     int64
	IsInitialized bool
	InitData      []byte
}

// Vtable records one addVtable call, laid out conceptually per the
// Itanium ABI (offset-to-top, rtti, then one function pointer per
// function symbol) even though this sink never actually serializes
// bytes; FunctionSymbols preserves the caller's ordering so a test can
// assert vtable slot order matches declaration order.
type Vtable struct {
	Symbol          string
	FunctionSymbols []string
	ClassName       string
	BaseClassNames  []string
	BaseDescriptors []string
}

// FunctionSignature records one addFunctionSignature call.
type FunctionSignature struct {
	Name        string
	ReturnType  string
	ParamTypes  []string
	ClassName   string
	Linkage     Linkage
	IsVariadic  bool
	MangledName string
}

// Sink accumulates every capability call in declaration order, for tests
// to assert against. A real writer would serialize these into a
// relocatable ELF64/COFF object instead (spec §6.4); that serialization
// step is out of scope.
type Sink struct {
	Functions  []FunctionSymbol
	Data       []DataBlob
	Relocations []Relocation
	Strings    []StringLiteral
	Globals    []GlobalVariable
	Vtables    []Vtable
	Signatures []FunctionSignature

	nextStringSymbol int
}

// New returns an empty Sink.
func New() *Sink { return &Sink{} }

func (s *Sink) AddFunctionSymbol(mangledName string, sectionOffset, stackSpace int64, linkage Linkage) {
	s.Functions = append(s.Functions, FunctionSymbol{MangledName: mangledName, SectionOffset: sectionOffset, StackSpace: stackSpace, Linkage: linkage})
}

func (s *Sink) AddData(bytes []byte, section Section) {
	s.Data = append(s.Data, DataBlob{Bytes: append([]byte(nil), bytes...), Section: section})
}

func (s *Sink) AddRelocation(offset int64, symbolName string, kind RelocationKind) {
	s.Relocations = append(s.Relocations, Relocation{Offset: offset, SymbolName: symbolName, Kind: kind})
}

// AddStringLiteral assigns a deterministic, session-local symbol name
// (`.L.str.N`) and records the literal, mirroring how an assembler names
// anonymous read-only string constants.
func (s *Sink) AddStringLiteral(content string) string {
	symbol := stringSymbolName(s.nextStringSymbol)
	s.nextStringSymbol++
	s.Strings = append(s.Strings, StringLiteral{Content: content, SymbolName: symbol})
	return symbol
}

func stringSymbolName(n int) string {
	return ".L.str." + strconv.Itoa(n)
}

func (s *Sink) AddGlobalVariable(name string, sizeBytes int64, isInitialized bool, initData []byte) {
	s.Globals = append(s.Globals, GlobalVariable{Name: name, SizeBytes: sizeBytes, IsInitialized: isInitialized, InitData: append([]byte(nil), initData...)})
}

func (s *Sink) AddVtable(symbol string, functionSymbols []string, className string, baseClassNames, baseDescriptors []string) {
	s.Vtables = append(s.Vtables, Vtable{
		Symbol: symbol, FunctionSymbols: append([]string(nil), functionSymbols...),
		ClassName: className, BaseClassNames: append([]string(nil), baseClassNames...), BaseDescriptors: append([]string(nil), baseDescriptors...),
	})
}

func (s *Sink) AddFunctionSignature(name, returnType string, paramTypes []string, className string, linkage Linkage, isVariadic bool, mangledName string) {
	s.Signatures = append(s.Signatures, FunctionSignature{
		Name: name, ReturnType: returnType, ParamTypes: append([]string(nil), paramTypes...),
		ClassName: className, Linkage: linkage, IsVariadic: isVariadic, MangledName: mangledName,
	})
}

// FindFunction returns the recorded FunctionSymbol for mangledName, for
// test assertions (`"instantiation produced a function with this mangled
// name"`, per DESIGN.md's stated purpose for this package).
func (s *Sink) FindFunction(mangledName string) (FunctionSymbol, bool) {
	for _, f := range s.Functions {
		if f.MangledName == mangledName {
			return f, true
		}
	}
	return FunctionSymbol{}, false
}
