package parser

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/cursorid"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/template"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
)

// parseTemplateParameterList parses `template<...>`: type parameters
// (`typename`/`class`), non-type parameters, and template-template
// parameters, each optionally a pack (`...`) and/or carrying a default.
// A concept-constrained parameter such as `Integral T` is not recognized
// as a constrained type parameter: it takes the non-type path, and
// ConceptName is never set.
func (p *Parser) parseTemplateParameterList() ([]node.Handle, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	var params []node.Handle
	for !p.atOperator(">") && !p.atPunct(">") {
		tp, err := p.parseOneTemplateParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, tp)
		if !p.acceptPunct(",") {
			break
		}
	}
	if !p.acceptOperator(">") && !p.acceptPunct(">") {
		return nil, p.errorf("expected '>' to close template parameter list, found %q", p.Toks.Peek().Value)
	}
	return params, nil
}

func (p *Parser) parseOneTemplateParameter() (node.Handle, error) {
	switch {
	case p.acceptKeyword("typename"), p.acceptKeyword("class"):
		isPack := p.acceptOperator("...") || p.acceptPunct("...")
		var name strtab.Handle
		if p.Toks.Peek().Kind == token.Identifier {
			var err error
			name, err = p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
		}
		var def node.Handle = node.Invalid
		if p.acceptOperator("=") || p.acceptPunct("=") {
			spec, err := p.parseTypeSpecifier()
			if err != nil {
				return node.Invalid, err
			}
			def = node.NewTypeSpecifierNode(p.Arena, spec)
		}
		return node.NewTemplateParameter(p.Arena, node.TemplateParameter{
			Name: name, ParamKind: node.TemplateParamType, IsPack: isPack, Default: def,
		}), nil

	case p.atKeyword("template"):
		p.Toks.Advance()
		if _, err := p.parseTemplateParameterList(); err != nil {
			return node.Invalid, err
		}
		if !p.acceptKeyword("class") && !p.acceptKeyword("typename") {
			return node.Invalid, p.errorf("expected 'class' after template-template parameter list")
		}
		name, err := p.identifierName()
		if err != nil {
			return node.Invalid, err
		}
		return node.NewTemplateParameter(p.Arena, node.TemplateParameter{
			Name: name, ParamKind: node.TemplateParamTemplate,
		}), nil

	default:
		// Non-type template parameter: a type-specifier followed by a name.
		base, err := p.parseBaseType()
		if err != nil {
			return node.Invalid, err
		}
		spec := p.parsePointersAndRef(base)
		isPack := p.acceptOperator("...") || p.acceptPunct("...")
		var name strtab.Handle
		if p.Toks.Peek().Kind == token.Identifier {
			name, err = p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
		}
		typeHandle := node.NewTypeSpecifierNode(p.Arena, spec)
		var def node.Handle = node.Invalid
		if p.acceptOperator("=") || p.acceptPunct("=") {
			def, err = p.ParseExpression()
			if err != nil {
				return node.Invalid, err
			}
		}
		return node.NewTemplateParameter(p.Arena, node.TemplateParameter{
			Name: name, ParamKind: node.TemplateParamNonType, IsPack: isPack,
			NonTypeType: typeHandle, Default: def,
		}), nil
	}
}

// parseRequiresClause parses `requires <expr>`.
func (p *Parser) parseRequiresClause() (node.Handle, error) {
	if !p.acceptKeyword("requires") {
		return node.Invalid, nil
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return node.Invalid, err
	}
	return node.NewRequiresClause(p.Arena, expr), nil
}

// ParseConceptDeclaration parses `concept Name = <constraint-expr>;`,
// registering the named constraint (spec §4.F: "Concept declarations
// register a named constraint expression in the Concept Registry" — here,
// the Symbol Table doubles as that registry since concepts share the
// ordinary name-binding namespace).
func (p *Parser) ParseConceptDeclaration(templateParams []node.Handle) (node.Handle, error) {
	if !p.acceptKeyword("concept") {
		return node.Invalid, p.errorf("expected 'concept'")
	}
	name, err := p.identifierName()
	if err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct("="); err != nil {
		return node.Invalid, err
	}
	constraint, err := p.ParseExpression()
	if err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct(";"); err != nil {
		return node.Invalid, err
	}
	c := node.NewConceptDeclaration(p.Arena, node.ConceptDeclaration{
		Name: name, TemplateParams: templateParams, Constraint: constraint,
	})
	p.Syms.Insert(name, c)
	return c, nil
}

// ParseTemplateDeclaration parses `template<params> [requires ...]`
// followed by either a class-template or function-template declaration
// (spec §4.F, §4.G). The body of a function template, and the member
// bodies of a class template, are parsed eagerly together with their
// header; cursors are also recorded for later re-parse by the
// instantiation engine.
func (p *Parser) ParseTemplateDeclaration() (node.Handle, error) {
	if !p.acceptKeyword("template") {
		return node.Invalid, p.errorf("expected 'template'")
	}
	declStart := p.Toks.SaveCursor()
	params, err := p.parseTemplateParameterList()
	if err != nil {
		return node.Invalid, err
	}
	requires, err := p.parseRequiresClause()
	if err != nil {
		return node.Invalid, err
	}

	if p.atKeyword("concept") {
		return p.ParseConceptDeclaration(params)
	}
	if p.atKeyword("struct") || p.atKeyword("class") || p.atKeyword("union") {
		return p.parseTemplateClassDeclaration(params, requires)
	}
	return p.parseTemplateFunctionDeclaration(params, requires, declStart)
}

func (p *Parser) parseTemplateFunctionDeclaration(params []node.Handle, requires node.Handle, declStart cursorid.ID) (node.Handle, error) {
	storage, err := p.parseStorageFlags()
	if err != nil {
		return node.Invalid, err
	}
	base, err := p.parseBaseType()
	if err != nil {
		return node.Invalid, err
	}
	spec := p.parsePointersAndRef(base)
	name, err := p.identifierName()
	if err != nil {
		return node.Invalid, err
	}
	returnType := node.NewTypeSpecifierNode(p.Arena, spec)
	fnHandle, err := p.parseFunctionDeclarator(storage, name, returnType, false)
	if err != nil {
		return node.Invalid, err
	}
	fd := node.MustGet[*node.FunctionDeclaration](p.Arena, fnHandle)
	fd.DeclarationStartCursor = declStart

	tfd := node.NewTemplateFunctionDeclaration(p.Arena, node.TemplateFunctionDeclaration{
		Name: name, TemplateParams: params, Function: fnHandle, RequiresClause: requires,
		NamespacePath: append([]strtab.Handle(nil), p.Syms.NamespacePath()...),
	})
	p.Syms.Insert(name, tfd)
	if p.Templates != nil {
		p.Templates.RegisterPrimary(name, tfd)
	}
	return tfd, nil
}

// parseTemplateClassDeclaration parses a class-template primary
// (`template<typename T> struct Name { ... };`), a partial specialization
// (`template<typename F, typename... R> struct Tuple<F, R...> { ... };`),
// or a full specialization (`template<> struct Tuple<> { ... };`). The
// specialization form is distinguished by a `<` immediately following the
// struct/class/union name; its pattern arguments are parsed as AST nodes,
// not resolved template arguments, since a partial spec's pattern can
// itself reference the specialization's own (possibly packed) parameters
// (spec §4.G, §4.J.3.4).
func (p *Parser) parseTemplateClassDeclaration(params []node.Handle, requires node.Handle) (node.Handle, error) {
	isUnion := p.atKeyword("union")
	isClass := p.atKeyword("class")
	if !p.acceptKeyword("struct") && !p.acceptKeyword("class") && !p.acceptKeyword("union") {
		return node.Invalid, p.errorf("expected 'struct', 'class', or 'union'")
	}
	name, err := p.identifierName()
	if err != nil {
		return node.Invalid, err
	}

	var patternArgs []node.Handle
	isSpecialization := false
	if p.atPunct("<") {
		isSpecialization = true
		patternArgs, err = p.parseBaseTemplateArgumentNodes()
		if err != nil {
			return node.Invalid, err
		}
	}

	structHandle, err := p.parseStructBody(name, isUnion, isClass)
	if err != nil {
		return node.Invalid, err
	}
	sd := node.MustGet[*node.StructDeclaration](p.Arena, structHandle)

	tcd := node.TemplateClassDeclaration{
		Name: sd.Name, TemplateParams: params, Struct: structHandle, RequiresClause: requires,
	}
	switch {
	case isSpecialization && len(params) == 0:
		tcd.IsFullSpec = true
		tcd.FullSpecArguments = patternArgs
	case isSpecialization:
		tcd.IsPartialSpec = true
		tcd.PatternArguments = patternArgs
	}
	h := node.NewTemplateClassDeclaration(p.Arena, tcd)

	if p.Templates != nil {
		switch {
		case tcd.IsFullSpec:
			p.Templates.RegisterFullSpec(sd.Name, fullSpecArgsToList(p.Arena, patternArgs), h)
		case tcd.IsPartialSpec:
			p.Templates.RegisterPartialSpec(sd.Name, template.PartialSpec{Declaration: h, Pattern: patternArgs})
		default:
			p.Templates.RegisterPrimary(sd.Name, h)
		}
	}
	if !isSpecialization {
		p.Syms.Insert(sd.Name, h)
	}
	return h, nil
}

// fullSpecArgsToList resolves a full specialization's pattern arguments
// (which, unlike a partial spec's, must be fully concrete) into a targ.List
// suitable as the Template Registry's exact-match key.
func fullSpecArgsToList(a *node.Arena, args []node.Handle) targ.List {
	out := make(targ.List, 0, len(args))
	for _, h := range args {
		ts := node.MustGet[*node.TypeSpecifierNode](a, h)
		out = append(out, targ.Type(ts.Spec))
	}
	return out
}

// ReparseDeferredBody restores the lexer to fd's recorded BodyStartCursor
// and parses its compound statement, mutating fd in place (spec §4.E
// "lexer-only restore" preserves AST nodes already created; here there are
// none yet for this body, so this is also the first parse of it). Called
// by the Instantiation Engine at materialization time (spec §4.J.2.7).
func (p *Parser) ReparseDeferredBody(fd *node.FunctionDeclaration) error {
	if fd.BodyStartCursor == 0 {
		return nil
	}
	p.Toks.RestoreLexerOnly(fd.BodyStartCursor)
	body, err := p.parseBlock()
	if err != nil {
		return err
	}
	fd.Body = body
	return nil
}

// ReparseTrailingReturnType restores the lexer to fd's recorded
// TrailingReturnStartCursor and re-parses the `-> type` it names, for the
// Instantiation Engine to substitute and SFINAE-check under one overload
// candidate's bindings before committing to it (spec §8.3 scenario 3). A
// function with no trailing return type yields an Invalid handle.
func (p *Parser) ReparseTrailingReturnType(fd *node.FunctionDeclaration) (node.Handle, error) {
	if !fd.HasTrailingReturn || fd.TrailingReturnStartCursor == 0 {
		return node.Invalid, nil
	}
	p.Toks.RestoreLexerOnly(fd.TrailingReturnStartCursor)
	spec, err := p.parseTypeSpecifier()
	if err != nil {
		return node.Invalid, err
	}
	return node.NewTypeSpecifierNode(p.Arena, spec), nil
}
