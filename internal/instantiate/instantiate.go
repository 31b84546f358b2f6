// Package instantiate implements the Template Instantiation Engine
// (component J): class-template and function-template instantiation,
// specialization selection, base-class resolution, member substitution,
// and the mangled-name/cache bookkeeping that ties the Type Registry,
// Template Registry, Constraint Evaluator, Expression Substitutor, and
// Name Mangler together (spec §4.J).
package instantiate

import (
	"fmt"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/constraint"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/ferr"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/mangle"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/substitute"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// BodyReparser restores a deferred function/method body from its recorded
// cursor (spec §4.E "lexer-only restore"). Satisfied by *parser.Parser; an
// Engine takes this as an interface rather than importing parser directly
// so the dependency runs one way (parser -> template registry, compiler
// session wires parser into the engine), matching spec §5's single-owner
// wiring instead of a parser<->instantiate import cycle.
type BodyReparser interface {
	ReparseDeferredBody(fd *node.FunctionDeclaration) error

	// ReparseTrailingReturnType restores the lexer to fd's recorded
	// TrailingReturnStartCursor and re-parses the `-> type` it names,
	// returning Invalid if fd has none.
	ReparseTrailingReturnType(fd *node.FunctionDeclaration) (node.Handle, error)
}

// Limits bounds recursion so a pathological or genuinely-infinite template
// pattern cannot run the compiler out of stack (spec §5 "hard recursion-
// depth cap").
type Limits struct {
	MaxRecursionDepth int
	LazyInstantiation bool
}

// DefaultLimits matches the depth spec §5 names for function templates;
// class templates get the same cap in this core rather than a separate
// higher iteration budget, since nothing here distinguishes the two
// recursion stacks.
func DefaultLimits() Limits {
	return Limits{MaxRecursionDepth: 64}
}

// Engine is the Template Instantiation Engine. It owns no state the other
// components don't already own; it only orchestrates calls across them.
type Engine struct {
	Arena       *node.Arena
	Strs        *strtab.Table
	Types       *typesys.Registry
	Templates   *template.Registry
	Syms        *symtab.Table
	Constraints *constraint.Evaluator
	Mangler     *mangle.Mangler
	Reparser    BodyReparser
	Limits      Limits

	// Diagnostics accumulates non-fatal failures (deferred static_assert
	// failures, unresolved out-of-line definitions) per spec §4.J.3.9
	// "report every failure, do not short-circuit".
	Diagnostics []string

	depth              int
	funcCache          map[string]node.Handle
	funcInProgress     map[string]bool
	declTypeInProgress map[string]bool
}

// New builds an Engine over the given shared compilation state.
func New(arena *node.Arena, strs *strtab.Table, types *typesys.Registry, templates *template.Registry, syms *symtab.Table, constraints *constraint.Evaluator, mangler *mangle.Mangler, reparser BodyReparser, limits Limits) *Engine {
	return &Engine{
		Arena: arena, Strs: strs, Types: types, Templates: templates, Syms: syms,
		Constraints: constraints, Mangler: mangler, Reparser: reparser, Limits: limits,
		funcCache: map[string]node.Handle{}, funcInProgress: map[string]bool{},
		declTypeInProgress: map[string]bool{},
	}
}

func align(v, alignment int64) int64 {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

// ---------------------------------------------------------------------
// Class template instantiation (spec §4.J.3).
// ---------------------------------------------------------------------

// InstantiateClass materializes (or returns the cached) TypeIndex for
// name<args...>. A cycle (CRTP-style self-reference) returns
// typekind.InvalidIndex with a nil error rather than failing, per spec
// §4.J.3 step 2.
func (e *Engine) InstantiateClass(name strtab.Handle, args targ.List) (typekind.TypeIndex, error) {
	key := template.InstantiationKeyFor(name, args)
	idx, state, complete := e.Types.GetOrCompute(key)
	if complete {
		return idx, nil
	}
	if state == typesys.InProgress {
		return typekind.InvalidIndex, nil
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.Limits.MaxRecursionDepth > 0 && e.depth > e.Limits.MaxRecursionDepth {
		return typekind.InvalidIndex, ferr.New(ferr.ErrCycle, ferr.Location{}, "template instantiation depth exceeded for %q", e.Strs.MustView(name))
	}

	sd, bindings, err := e.selectClassTemplate(name, args)
	if err != nil {
		return typekind.InvalidIndex, err
	}

	baseName := e.Strs.MustView(name)
	typeHandle := e.Strs.Intern(mangle.ShortHash(baseName, args))
	ti := e.Types.AddStruct(typeHandle)
	ti.BaseTemplateName = name
	ti.Arguments = args

	sti := &typesys.StructTypeInfo{IsUnion: sd.IsUnion, IsFinal: sd.IsFinal, IsAbstract: sd.IsAbstract}
	ti.Struct = sti

	newBases := make([]node.BaseClassSpec, len(sd.Bases))
	baseInfos := make([]*typesys.TypeInfo, len(sd.Bases))
	for i, b := range sd.Bases {
		bIdx, err := e.resolveBase(b, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		nb := b
		nb.Type = bIdx
		nb.Deferred = false
		nb.DeferredExpr = node.Invalid
		newBases[i] = nb
		if bIdx != typekind.InvalidIndex {
			if bti, ok := e.Types.Get(bIdx); ok {
				baseInfos[i] = bti
			}
		}
	}
	sti.Bases = newBases

	newFields := make([]node.MemberField, len(sd.Fields))
	for i, f := range sd.Fields {
		nf, err := e.substituteField(f, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		newFields[i] = nf
	}
	sti.Fields = newFields

	newStatics := make([]node.StaticMember, len(sd.StaticMembers))
	for i, sm := range sd.StaticMembers {
		nsm, err := e.substituteStaticMember(sm, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		newStatics[i] = nsm
	}
	sti.StaticMembers = newStatics

	baseOffset, err := e.Types.ComputeWithBases(ti, baseInfos)
	if err != nil {
		return typekind.InvalidIndex, err
	}
	if err := e.Types.Finalize(ti, func(fieldIndex int) int64 { return e.fieldSizeBits(sti.Fields[fieldIndex].Type) }); err != nil {
		return typekind.InvalidIndex, err
	}
	if baseOffset > 0 {
		alignedBase := align(baseOffset, sti.Alignment)
		for i := range sti.Fields {
			if !sti.Fields[i].IsBitfield {
				sti.Fields[i].Offset += alignedBase
			}
		}
		sti.TotalSize = align(alignedBase+sti.TotalSize, sti.Alignment)
		ti.SizeBits = sti.TotalSize * 8
	}

	newMethods := make([]node.Handle, len(sd.Methods))
	for i, mh := range sd.Methods {
		nh, err := e.materializeMethod(mh, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		newMethods[i] = nh
	}
	sti.Methods = newMethods

	newCtors := make([]node.Handle, len(sd.Constructors))
	for i, ch := range sd.Constructors {
		nh, err := e.materializeConstructor(ch, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		newCtors[i] = nh
	}
	sti.Constructors = newCtors
	sti.HasUserDefinedCtor = len(newCtors) > 0

	if sd.Destructor != node.Invalid {
		nh, err := e.materializeDestructor(sd.Destructor, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		sti.Destructor = nh
		sti.HasUserDefinedDtor = true
	} else {
		sti.Destructor = node.Invalid
	}

	for _, nestedHandle := range sd.NestedClasses {
		ninfo, err := e.instantiateNestedStruct(nestedHandle, bindings)
		if err != nil {
			e.Diagnostics = append(e.Diagnostics, err.Error())
			continue
		}
		sti.NestedClasses = append(sti.NestedClasses, ninfo)
	}

	e.drainOutOfLine(name, sti, bindings)

	for _, assertCond := range sd.DeferredAsserts {
		res := e.Constraints.Evaluate(assertCond, bindings)
		if !res.Satisfied {
			e.Diagnostics = append(e.Diagnostics, fmt.Sprintf("static_assert failed in %s: %s", baseName, res.ErrorMessage))
		}
	}

	e.Types.CompleteInstantiation(key, ti.Index)
	return ti.Index, nil
}

// selectClassTemplate resolves name<args...> to the declaration and
// parameter bindings that materialize it, preferring an exact
// specialization, then a matching partial specialization, then the
// primary template (spec §4.J.3 step 4).
func (e *Engine) selectClassTemplate(name strtab.Handle, args targ.List) (*node.StructDeclaration, substitute.Bindings, error) {
	if exact, ok := e.Templates.LookupExactSpecialization(name, args); ok {
		tcd := node.MustGet[*node.TemplateClassDeclaration](e.Arena, exact)
		return node.MustGet[*node.StructDeclaration](e.Arena, tcd.Struct), substitute.Bindings{}, nil
	}

	for _, spec := range e.Templates.PartialSpecs(name) {
		bindings, ok := e.matchPartialSpec(spec, args)
		if !ok {
			continue
		}
		tcd := node.MustGet[*node.TemplateClassDeclaration](e.Arena, spec.Declaration)
		return node.MustGet[*node.StructDeclaration](e.Arena, tcd.Struct), bindings, nil
	}

	primaries := e.Templates.Primaries(name)
	if len(primaries) == 0 {
		return nil, nil, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no class template registered for %q", e.Strs.MustView(name))
	}
	tcd := node.MustGet[*node.TemplateClassDeclaration](e.Arena, primaries[0])
	bindings, err := constraint.BuildBindings(e.Arena, e.Strs, tcd.TemplateParams, args)
	if err != nil {
		return nil, nil, err
	}
	return node.MustGet[*node.StructDeclaration](e.Arena, tcd.Struct), bindings, nil
}

// matchPartialSpec deduces bindings by walking the specialization's pattern
// argument list positionally against the fully-resolved argument list: a
// pattern argument naming a template parameter binds (or, if marked
// PackExpansion, consumes the remainder into a pack); any other pattern
// argument must match the corresponding concrete argument exactly (spec
// §4.J.3 step 4, §4.G `matchSpecializationPattern`).
func (e *Engine) matchPartialSpec(spec template.PartialSpec, args targ.List) (substitute.Bindings, bool) {
	bindings := substitute.Bindings{}
	ai := 0
	for _, argHandle := range spec.Pattern {
		tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, argHandle)
		ts := tsn.Spec
		if ts.TemplateParamName != "" {
			if ts.PackExpansion {
				var pack []targ.Value
				for ; ai < len(args); ai++ {
					pack = append(pack, args[ai])
				}
				bindings[ts.TemplateParamName] = targ.Value{ArgKind: targ.KindPack, Pack: pack}
				continue
			}
			if ai >= len(args) {
				return nil, false
			}
			bindings[ts.TemplateParamName] = args[ai]
			ai++
			continue
		}
		if ai >= len(args) || !matchTypeArg(ts, args[ai]) {
			return nil, false
		}
		ai++
	}
	if ai != len(args) {
		return nil, false
	}
	return bindings, true
}

func matchTypeArg(pattern node.TypeSpecifier, arg targ.Value) bool {
	if arg.ArgKind != targ.KindType {
		return false
	}
	return pattern.Base == arg.Type.Base && pattern.Index == arg.Type.Index && len(pattern.Pointers) == len(arg.Type.Pointers) && pattern.Ref == arg.Type.Ref
}

// resolveBase resolves one base-class specifier to a concrete TypeIndex.
// A non-dependent base was already resolved by the parser; a deferred
// (dependent template-id or pack-expanded) base is substituted through
// bindings and recursively instantiated (spec §4.J.3 step 5).
func (e *Engine) resolveBase(b node.BaseClassSpec, bindings substitute.Bindings) (typekind.TypeIndex, error) {
	if !b.Deferred {
		return b.Type, nil
	}
	call := node.MustGet[*node.ExprCall](e.Arena, b.DeferredExpr)
	id := node.MustGet[*node.ExprIdentifier](e.Arena, call.Callee)

	var resolvedArgs targ.List
	for _, argHandle := range call.ExplicitArgs {
		tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, argHandle)
		ts := tsn.Spec
		if ts.TemplateParamName != "" {
			v, ok := bindings[ts.TemplateParamName]
			if !ok {
				return typekind.InvalidIndex, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no binding for base template argument %q", ts.TemplateParamName)
			}
			if ts.PackExpansion {
				if v.ArgKind != targ.KindPack {
					return typekind.InvalidIndex, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "%q is not a pack in base pack-expansion position", ts.TemplateParamName)
				}
				resolvedArgs = append(resolvedArgs, v.Pack...)
			} else {
				resolvedArgs = append(resolvedArgs, v)
			}
			continue
		}
		subSpec, err := substitute.Type(ts, bindings)
		if err != nil {
			return typekind.InvalidIndex, err
		}
		resolvedArgs = append(resolvedArgs, targ.Type(subSpec))
	}

	return e.InstantiateClass(id.Name, resolvedArgs)
}

func (e *Engine) substituteField(f node.MemberField, bindings substitute.Bindings) (node.MemberField, error) {
	tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, f.Type)
	subSpec, err := substitute.Type(tsn.Spec, bindings)
	if err != nil {
		return node.MemberField{}, err
	}
	defaultInit, err := substitute.Expr(e.Arena, e.Strs, f.DefaultInit, bindings)
	if err != nil {
		return node.MemberField{}, err
	}
	bitWidth := f.BitfieldWidth
	if f.IsBitfield && f.BitfieldWidth != nil {
		bitWidth = f.BitfieldWidth // widths are parsed as literal ints only; no dependent bit-width expression is retained by the parser to re-evaluate here.
	}
	return node.MemberField{
		Name: f.Name, Type: node.NewTypeSpecifierNode(e.Arena, subSpec), Access: f.Access,
		DefaultInit: defaultInit, BitfieldWidth: bitWidth, IsBitfield: f.IsBitfield,
		PointerDepth: len(subSpec.Pointers),
	}, nil
}

func (e *Engine) substituteStaticMember(sm node.StaticMember, bindings substitute.Bindings) (node.StaticMember, error) {
	tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, sm.Type)
	subSpec, err := substitute.Type(tsn.Spec, bindings)
	if err != nil {
		return node.StaticMember{}, err
	}
	// A complex initializer (fold/sizeof.../template-parameter-dependent)
	// is eagerly substituted-and-folded here; lazy registration via a
	// LazyStaticMemberRegistry is an Open Question deferred in DESIGN.md
	// since nothing in the testable scenarios calls for the lazy path.
	init, err := substitute.Expr(e.Arena, e.Strs, sm.Initializer, bindings)
	if err != nil {
		return node.StaticMember{}, err
	}
	return node.StaticMember{Name: sm.Name, Type: node.NewTypeSpecifierNode(e.Arena, subSpec), Initializer: init, Const: sm.Const, Access: sm.Access}, nil
}

// fieldSizeBits reports the bit width of a substituted field's type, for
// typesys.Registry.Finalize's sizer callback.
func (e *Engine) fieldSizeBits(typeHandle node.Handle) int64 {
	tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, typeHandle)
	spec := tsn.Spec
	if len(spec.Pointers) > 0 || spec.Ref != node.RefNone {
		return 64
	}
	if spec.Base.Fundamental() {
		return int64(spec.Base.SizeBits())
	}
	if spec.Index != typekind.InvalidIndex {
		if ti, ok := e.Types.Get(spec.Index); ok {
			return ti.SizeBits
		}
	}
	return 8
}

func (e *Engine) materializeMethod(h node.Handle, bindings substitute.Bindings) (node.Handle, error) {
	fd := node.MustGet[*node.FunctionDeclaration](e.Arena, h)
	newFD, err := e.substituteFunctionHeader(fd, bindings)
	if err != nil {
		return node.Invalid, err
	}
	body, err := e.materializeBody(fd, bindings)
	if err != nil {
		return node.Invalid, err
	}
	newFD.Body = body
	if newFD.Linkage != node.LinkageC {
		newFD.MangledName = e.Strs.Intern(e.Mangler.Function(newFD, mangle.Itanium))
	}
	return node.NewFunctionDeclaration(e.Arena, *newFD), nil
}

func (e *Engine) materializeConstructor(h node.Handle, bindings substitute.Bindings) (node.Handle, error) {
	c := node.MustGet[*node.ConstructorDeclaration](e.Arena, h)
	newParams, err := e.substituteParameters(c.Parameters, bindings)
	if err != nil {
		return node.Invalid, err
	}
	body := c.Body
	if c.BodyStartCursor != 0 && e.Reparser != nil {
		clone := node.FunctionDeclaration{Body: node.Invalid, BodyStartCursor: c.BodyStartCursor}
		if err := e.Reparser.ReparseDeferredBody(&clone); err != nil {
			return node.Invalid, err
		}
		body = clone.Body
	}
	subBody, err := substitute.Block(e.Arena, e.Strs, body, bindings)
	if err != nil {
		return node.Invalid, err
	}
	return node.NewConstructorDeclaration(e.Arena, node.ConstructorDeclaration{
		Parameters: newParams, Body: subBody, Access: c.Access, Defaulted: c.Defaulted, Deleted: c.Deleted, Explicit: c.Explicit,
	}), nil
}

func (e *Engine) materializeDestructor(h node.Handle, bindings substitute.Bindings) (node.Handle, error) {
	d := node.MustGet[*node.DestructorDeclaration](e.Arena, h)
	body := d.Body
	if d.BodyStartCursor != 0 && e.Reparser != nil {
		clone := node.FunctionDeclaration{Body: node.Invalid, BodyStartCursor: d.BodyStartCursor}
		if err := e.Reparser.ReparseDeferredBody(&clone); err != nil {
			return node.Invalid, err
		}
		body = clone.Body
	}
	subBody, err := substitute.Block(e.Arena, e.Strs, body, bindings)
	if err != nil {
		return node.Invalid, err
	}
	return node.NewDestructorDeclaration(e.Arena, node.DestructorDeclaration{
		Body: subBody, Virtual: d.Virtual, Defaulted: d.Defaulted, Deleted: d.Deleted,
	}), nil
}

// materializeBody produces the substituted body for a FunctionDeclaration:
// a fresh re-parse under the cursor if one exists, else a direct deep-copy
// substitution of the already-parsed body (spec §4.J.3 step 6).
func (e *Engine) materializeBody(fd *node.FunctionDeclaration, bindings substitute.Bindings) (node.Handle, error) {
	body := fd.Body
	if fd.BodyStartCursor != 0 && e.Reparser != nil {
		clone := node.FunctionDeclaration{Body: node.Invalid, BodyStartCursor: fd.BodyStartCursor}
		if err := e.Reparser.ReparseDeferredBody(&clone); err != nil {
			return node.Invalid, err
		}
		body = clone.Body
	}
	return substitute.Block(e.Arena, e.Strs, body, bindings)
}

// substituteFunctionHeader builds a substituted copy of fd's signature
// (return type, parameters, qualifiers) without touching its body. A
// variadic pack parameter expands into one concrete parameter per bound
// pack element, named `basename_0, basename_1, ...` (spec §4.J.2 step 7).
func (e *Engine) substituteFunctionHeader(fd *node.FunctionDeclaration, bindings substitute.Bindings) (*node.FunctionDeclaration, error) {
	retTsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, fd.ReturnType)
	retSpec, err := substitute.Type(retTsn.Spec, bindings)
	if err != nil {
		return nil, err
	}
	newParams, err := e.substituteParameters(fd.Parameters, bindings)
	if err != nil {
		return nil, err
	}
	out := *fd
	out.ReturnType = node.NewTypeSpecifierNode(e.Arena, retSpec)
	out.Parameters = newParams
	out.Body = node.Invalid
	return &out, nil
}

func (e *Engine) substituteParameters(params []node.Handle, bindings substitute.Bindings) ([]node.Handle, error) {
	var out []node.Handle
	for _, ph := range params {
		p := node.MustGet[*node.ParameterDeclaration](e.Arena, ph)
		tsn := node.MustGet[*node.TypeSpecifierNode](e.Arena, p.Type)

		if p.IsPack && tsn.Spec.TemplateParamName != "" {
			v, ok := bindings[tsn.Spec.TemplateParamName]
			if ok && v.ArgKind == targ.KindPack {
				baseName := e.Strs.MustView(p.Name)
				for i, elem := range v.Pack {
					if elem.ArgKind != targ.KindType {
						continue
					}
					name := e.Strs.Intern(fmt.Sprintf("%s_%d", baseName, i))
					out = append(out, node.NewParameterDeclaration(e.Arena, node.ParameterDeclaration{
						Name: name, Type: node.NewTypeSpecifierNode(e.Arena, elem.Type.Clone()),
					}))
				}
				continue
			}
		}

		subSpec, err := substitute.Type(tsn.Spec, bindings)
		if err != nil {
			return nil, err
		}
		defaultValue, err := substitute.Expr(e.Arena, e.Strs, p.DefaultValue, bindings)
		if err != nil {
			return nil, err
		}
		out = append(out, node.NewParameterDeclaration(e.Arena, node.ParameterDeclaration{
			Name: p.Name, Type: node.NewTypeSpecifierNode(e.Arena, subSpec), DefaultValue: defaultValue,
		}))
	}
	return out, nil
}

// instantiateNestedStruct copies an in-line nested class with per-member
// substitution, registering it as its own TypeInfo under a qualified,
// content-addressed name (spec §4.J.3 step 7). Out-of-line nested-class
// re-parsing and post-layout member type fixups are an Open Question
// deferred in DESIGN.md: no testable scenario in scope declares an
// out-of-line nested class.
func (e *Engine) instantiateNestedStruct(h node.Handle, bindings substitute.Bindings) (node.Handle, error) {
	sd := node.MustGet[*node.StructDeclaration](e.Arena, h)

	newFields := make([]node.MemberField, len(sd.Fields))
	for i, f := range sd.Fields {
		nf, err := e.substituteField(f, bindings)
		if err != nil {
			return node.Invalid, err
		}
		newFields[i] = nf
	}
	newMethods := make([]node.Handle, len(sd.Methods))
	for i, mh := range sd.Methods {
		nh, err := e.materializeMethod(mh, bindings)
		if err != nil {
			return node.Invalid, err
		}
		newMethods[i] = nh
	}

	qualifiedName := e.Strs.Intern(e.Strs.MustView(sd.Name) + "$" + fmt.Sprintf("%d", h))
	ti := e.Types.AddStruct(qualifiedName)
	ti.Struct = &typesys.StructTypeInfo{Fields: newFields, Methods: newMethods, IsUnion: sd.IsUnion, IsFinal: sd.IsFinal}
	if err := e.Types.Finalize(ti, func(i int) int64 { return e.fieldSizeBits(newFields[i].Type) }); err != nil {
		return node.Invalid, err
	}

	return node.NewStructDeclaration(e.Arena, node.StructDeclaration{
		Name: sd.Name, TypeIndex: ti.Index, IsUnion: sd.IsUnion, IsFinal: sd.IsFinal,
		Fields: newFields, Methods: newMethods, Destructor: node.Invalid,
	}), nil
}

// drainOutOfLine attaches any member/static-member definitions that were
// parsed outside the class template body to the freshly-instantiated
// methods sharing their name (spec §4.J.3 step 8). A definition with no
// matching member name is reported, not silently dropped.
func (e *Engine) drainOutOfLine(templateName strtab.Handle, sti *typesys.StructTypeInfo, bindings substitute.Bindings) {
	for _, def := range e.Templates.DrainOutOfLineDefinitions(templateName) {
		fd, ok := node.Get[*node.FunctionDeclaration](e.Arena, def.Declaration)
		if !ok {
			continue
		}
		body, err := e.materializeBody(fd, bindings)
		if err != nil {
			e.Diagnostics = append(e.Diagnostics, err.Error())
			continue
		}
		attached := false
		for _, mh := range sti.Methods {
			mfd := node.MustGet[*node.FunctionDeclaration](e.Arena, mh)
			if mfd.Name == def.MemberName {
				mfd.Body = body
				attached = true
				break
			}
		}
		if !attached {
			e.Diagnostics = append(e.Diagnostics, fmt.Sprintf("out-of-line definition for %q matches no member of %q", e.Strs.MustView(def.MemberName), e.Strs.MustView(templateName)))
		}
	}
}

// ---------------------------------------------------------------------
// Function template instantiation (spec §4.J.1, §4.J.2).
// ---------------------------------------------------------------------

// TryInstantiateFunction implements the implicit-deduction entry point:
// collect overloads, trial each in declaration order, skipping on any
// SFINAE-style failure (spec §4.J.2). Returns (Invalid, nil) — not an
// error — when every overload is rejected without a hard error or the only
// viable one is mid-cycle; when no overload succeeds and some overload
// failed with a hard error, the last such error is returned.
func (e *Engine) TryInstantiateFunction(name strtab.Handle, argTypes []node.TypeSpecifier) (node.Handle, error) {
	overloads := e.overloadsFor(name)
	var lastErr error
	for _, oh := range overloads {
		tfd := node.MustGet[*node.TemplateFunctionDeclaration](e.Arena, oh)
		args, ok := deduceFromCall(e.Arena, e.Strs, tfd, argTypes)
		if !ok {
			continue
		}
		h, err := e.tryMaterializeOverload(tfd, args)
		if err != nil {
			lastErr = err
			continue
		}
		if h != node.Invalid {
			return h, nil
		}
	}
	return node.Invalid, lastErr
}

// TryInstantiateFunctionExplicit implements the explicit `f<Args...>(...)`
// entry point: argument deduction is skipped entirely since the caller
// supplied the full template-argument list.
func (e *Engine) TryInstantiateFunctionExplicit(name strtab.Handle, explicitArgs targ.List) (node.Handle, error) {
	overloads := e.overloadsFor(name)
	var lastErr error
	for _, oh := range overloads {
		tfd := node.MustGet[*node.TemplateFunctionDeclaration](e.Arena, oh)
		if len(tfd.TemplateParams) < len(explicitArgs) {
			continue
		}
		h, err := e.tryMaterializeOverload(tfd, explicitArgs)
		if err != nil {
			lastErr = err
			continue
		}
		if h != node.Invalid {
			return h, nil
		}
	}
	return node.Invalid, lastErr
}

func (e *Engine) overloadsFor(name strtab.Handle) []node.Handle {
	overloads := e.Templates.Primaries(name)
	if len(overloads) > 0 {
		return overloads
	}
	var out []node.Handle
	for _, h := range e.Syms.AncestorBindings(name) {
		if _, ok := node.Get[*node.TemplateFunctionDeclaration](e.Arena, h); ok {
			out = append(out, h)
		}
	}
	return out
}

func (e *Engine) tryMaterializeOverload(tfd *node.TemplateFunctionDeclaration, args targ.List) (node.Handle, error) {
	bindings, err := constraint.BuildBindings(e.Arena, e.Strs, tfd.TemplateParams, args)
	if err != nil {
		return node.Invalid, nil // SFINAE: treat a binding mismatch as try-next
	}
	if res := e.Constraints.EvaluateRequiresClause(tfd.RequiresClause, bindings); !res.Satisfied {
		return node.Invalid, nil
	}
	if ok, err := e.checkTrailingReturnSFINAE(tfd, args, bindings); err != nil {
		return node.Invalid, err
	} else if !ok {
		return node.Invalid, nil
	}
	return e.materializeFunctionTemplate(tfd, args, bindings)
}

// checkTrailingReturnSFINAE re-parses tfd's trailing return type fresh
// (discarding the eagerly-parsed one recorded at declaration time) and, if
// it is a `decltype(...)` specifier, substitutes its expression(s) under
// bindings and walks the result for member accesses that can't possibly
// resolve (spec §8.3 scenario 3): a member accessed on a fundamental-typed
// parameter, or a name not present among a struct type's methods, rules
// this overload out rather than erroring, exactly like an unsatisfied
// requires-clause above. A function with no trailing return, or one whose
// trailing return isn't a decltype, is always viable here.
//
// The in-progress guard below detects a decltype that (through a call
// appearing inside it) refers back to this same candidate: rather than
// actually recursing into TryInstantiateFunction and risking unbounded
// depth, a self-referential call is detected structurally in
// declTypeExprValid and treated as unresolved (spec §8.3 scenario 6).
func (e *Engine) checkTrailingReturnSFINAE(tfd *node.TemplateFunctionDeclaration, args targ.List, bindings substitute.Bindings) (bool, error) {
	if e.Reparser == nil {
		return true, nil
	}
	fd := node.MustGet[*node.FunctionDeclaration](e.Arena, tfd.Function)
	if !fd.HasTrailingReturn {
		return true, nil
	}

	cacheKey := e.Strs.MustView(tfd.Name) + "(" + args.CacheKey() + ")"
	if e.declTypeInProgress[cacheKey] {
		return false, nil
	}
	e.declTypeInProgress[cacheKey] = true
	defer delete(e.declTypeInProgress, cacheKey)

	typeHandle, err := e.Reparser.ReparseTrailingReturnType(fd)
	if err != nil {
		return false, nil // malformed under this substitution: SFINAE-reject, not a hard error
	}
	if typeHandle == node.Invalid {
		return true, nil
	}
	ts := node.MustGet[*node.TypeSpecifierNode](e.Arena, typeHandle)
	if !ts.Spec.IsDeclType {
		return true, nil
	}

	paramTypes := map[string]node.TypeSpecifier{}
	for _, ph := range fd.Parameters {
		p := node.MustGet[*node.ParameterDeclaration](e.Arena, ph)
		pts := node.MustGet[*node.TypeSpecifierNode](e.Arena, p.Type)
		substSpec, err := substitute.Type(pts.Spec, bindings)
		if err != nil {
			continue
		}
		paramTypes[e.Strs.MustView(p.Name)] = substSpec
	}

	substExpr, err := substitute.Expr(e.Arena, e.Strs, ts.Spec.DeclType, bindings)
	if err != nil {
		return false, nil
	}
	return e.declTypeExprValid(substExpr, paramTypes, e.Strs.MustView(tfd.Name)), nil
}

// declTypeExprValid reports whether every member access reachable from expr
// resolves: a fundamental-typed object never has members, and a struct-
// typed object must name one of its Methods. selfName is the enclosing
// function template's own name, used to reject a self-referential call
// appearing inside the decltype outright (spec §8.3 scenario 6) instead of
// recursing into the instantiation engine.
func (e *Engine) declTypeExprValid(expr node.Handle, paramTypes map[string]node.TypeSpecifier, selfName string) bool {
	switch e.Arena.KindOf(expr) {
	case node.KindExprComma:
		cn := node.MustGet[*node.ExprComma](e.Arena, expr)
		for _, sub := range cn.Exprs {
			if !e.declTypeExprValid(sub, paramTypes, selfName) {
				return false
			}
		}
		return true

	case node.KindExprMemberAccess:
		mn := node.MustGet[*node.ExprMemberAccess](e.Arena, expr)
		if !e.declTypeExprValid(mn.Object, paramTypes, selfName) {
			return false
		}
		objType, ok := e.resolveExprType(mn.Object, paramTypes)
		if !ok {
			return true // can't determine the object's type; don't false-reject
		}
		if objType.Base.Fundamental() {
			return false
		}
		if objType.Base == typekind.Struct {
			ti, ok := e.Types.Get(objType.Index)
			if !ok || ti.Struct == nil {
				return false
			}
			memberName := e.Strs.MustView(mn.Member)
			for _, mh := range ti.Struct.Methods {
				mfd := node.MustGet[*node.FunctionDeclaration](e.Arena, mh)
				if e.Strs.MustView(mfd.Name) == memberName {
					return true
				}
			}
			return false
		}
		return true

	case node.KindExprCall:
		cn := node.MustGet[*node.ExprCall](e.Arena, expr)
		if id, ok := node.Get[*node.ExprIdentifier](e.Arena, cn.Callee); ok {
			if e.Strs.MustView(id.Name) == selfName {
				return false
			}
		}
		if !e.declTypeExprValid(cn.Callee, paramTypes, selfName) {
			return false
		}
		for _, arg := range cn.Args {
			if !e.declTypeExprValid(arg, paramTypes, selfName) {
				return false
			}
		}
		return true

	case node.KindExprConstructorCall:
		cn := node.MustGet[*node.ExprConstructorCall](e.Arena, expr)
		for _, arg := range cn.Args {
			if !e.declTypeExprValid(arg, paramTypes, selfName) {
				return false
			}
		}
		return true

	default:
		return true
	}
}

// resolveExprType looks up a bare identifier's substituted parameter type;
// any other expression shape is reported unresolved rather than guessed at.
func (e *Engine) resolveExprType(expr node.Handle, paramTypes map[string]node.TypeSpecifier) (node.TypeSpecifier, bool) {
	id, ok := node.Get[*node.ExprIdentifier](e.Arena, expr)
	if !ok {
		return node.TypeSpecifier{}, false
	}
	ts, ok := paramTypes[e.Strs.MustView(id.Name)]
	return ts, ok
}

// deduceFromCall builds the ordered template-argument list by matching
// each dependent function parameter's TemplateParamName against the call
// argument type in the same position; a trailing pack parameter consumes
// every remaining call argument (spec §4.J.2 step 2).
func deduceFromCall(a *node.Arena, strs *strtab.Table, tfd *node.TemplateFunctionDeclaration, argTypes []node.TypeSpecifier) (targ.List, bool) {
	fd := node.MustGet[*node.FunctionDeclaration](a, tfd.Function)

	byParamName := map[string]node.TypeSpecifier{}
	packName := ""
	packStart := -1
	for i, ph := range fd.Parameters {
		if i >= len(argTypes) {
			break
		}
		p := node.MustGet[*node.ParameterDeclaration](a, ph)
		ts := node.MustGet[*node.TypeSpecifierNode](a, p.Type)
		if p.IsPack {
			packName = ts.Spec.TemplateParamName
			packStart = i
			break
		}
		if ts.Spec.TemplateParamName != "" {
			if _, seen := byParamName[ts.Spec.TemplateParamName]; !seen {
				byParamName[ts.Spec.TemplateParamName] = argTypes[i]
			}
		}
	}

	args := make(targ.List, 0, len(tfd.TemplateParams))
	for _, tph := range tfd.TemplateParams {
		tp := node.MustGet[*node.TemplateParameter](a, tph)
		pname := strs.MustView(tp.Name)
		if tp.IsPack {
			var pack []targ.Value
			if packStart >= 0 && pname == packName {
				for _, at := range argTypes[packStart:] {
					pack = append(pack, targ.Type(at))
				}
			}
			args = append(args, targ.Value{ArgKind: targ.KindPack, Pack: pack})
			continue
		}
		t, ok := byParamName[pname]
		if !ok {
			return nil, false
		}
		args = append(args, targ.Type(t))
	}
	return args, true
}

// materializeFunctionTemplate is the common materialization tail shared by
// the implicit and explicit entry points (spec §4.J.2 step 7): cache
// lookup, cycle guard, header/body substitution, mangling, and global
// registration.
func (e *Engine) materializeFunctionTemplate(tfd *node.TemplateFunctionDeclaration, args targ.List, bindings substitute.Bindings) (node.Handle, error) {
	name := e.Strs.MustView(tfd.Name)
	cacheKey := name + "(" + args.CacheKey() + ")"

	if h, ok := e.funcCache[cacheKey]; ok {
		return h, nil
	}
	if e.funcInProgress[cacheKey] {
		return node.Invalid, nil
	}
	e.funcInProgress[cacheKey] = true
	defer delete(e.funcInProgress, cacheKey)

	fd := node.MustGet[*node.FunctionDeclaration](e.Arena, tfd.Function)
	newFD, err := e.substituteFunctionHeader(fd, bindings)
	if err != nil {
		return node.Invalid, err
	}

	body, err := e.materializeBody(fd, bindings)
	if err != nil {
		return node.Invalid, err
	}
	newFD.Body = body
	newFD.NamespacePath = append([]strtab.Handle(nil), tfd.NamespacePath...)
	if newFD.Linkage != node.LinkageC {
		newFD.MangledName = e.Strs.Intern(e.Mangler.Function(newFD, mangle.Itanium))
	}
	newFD.InlineAlways = isTrivialBody(e.Arena, body)

	h := node.NewFunctionDeclaration(e.Arena, *newFD)
	e.Syms.InsertGlobal(tfd.Name, h)
	e.funcCache[cacheKey] = h
	return h, nil
}

// isTrivialBody reports whether body is a single `return <identifier-,
// literal- or cast>;`, the "pure expression" shape spec §4.J.2 step 7 marks
// inlineAlways.
func isTrivialBody(a *node.Arena, body node.Handle) bool {
	if body == node.Invalid {
		return true // body skipped on cycle detection
	}
	blk, ok := node.Get[*node.Block](a, body)
	if !ok || len(blk.Statements) != 1 {
		return false
	}
	rs, ok := node.Get[*node.ReturnStatement](a, blk.Statements[0])
	if !ok {
		return false
	}
	switch a.KindOf(rs.Value) {
	case node.KindExprIdentifier, node.KindExprLiteral, node.KindExprCast, node.KindExprStaticCast:
		return true
	default:
		return false
	}
}
