package parser

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

// ParseStructDeclaration parses `struct|class|union Name [: bases] { members } ;`
// A class-template's pattern body is parsed the same way; the template
// wrapper only needs the resulting StructDeclaration handle (spec §4.F,
// §4.G). `class` defaults member access to private, `struct`/`union` to
// public, matching the language rule.
func (p *Parser) ParseStructDeclaration() (node.Handle, error) {
	isUnion := p.atKeyword("union")
	isClass := p.atKeyword("class")
	if !p.acceptKeyword("struct") && !p.acceptKeyword("class") && !p.acceptKeyword("union") {
		return node.Invalid, p.errorf("expected 'struct', 'class', or 'union'")
	}

	var name strtab.Handle
	if p.Toks.Peek().Kind == token.Identifier {
		var err error
		name, err = p.identifierName()
		if err != nil {
			return node.Invalid, err
		}
	}

	return p.parseStructBody(name, isUnion, isClass)
}

// parseStructBody parses everything after the struct/class/union keyword
// and name: an optional base-specifier list, then either a `;` (forward
// declaration) or a member list. Factored out of ParseStructDeclaration so
// a template-class specialization header (`Tuple<F, R...>`) can supply its
// own name/pattern parsing and still share the body grammar (spec §4.F,
// §4.G).
func (p *Parser) parseStructBody(name strtab.Handle, isUnion, isClass bool) (node.Handle, error) {
	isFinal := false
	if p.atKeyword("final") {
		p.Toks.Advance()
		isFinal = true
	}

	var bases []node.BaseClassSpec
	if p.acceptPunct(":") {
		for {
			access := node.AccessPublic
			if isClass {
				access = node.AccessPrivate
			}
			switch {
			case p.acceptKeyword("public"):
				access = node.AccessPublic
			case p.acceptKeyword("protected"):
				access = node.AccessProtected
			case p.acceptKeyword("private"):
				access = node.AccessPrivate
			}
			virtual := p.acceptKeyword("virtual")
			baseName, err := p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
			base := node.BaseClassSpec{Name: baseName, Access: access, Virtual: virtual, Type: typekind.InvalidIndex}
			if p.atPunct("<") {
				// Dependent base naming a class template (e.g. `Tuple<R...>`
				// inside a class-template pattern); resolved by the
				// Instantiation Engine once the enclosing template's own
				// parameters are bound (spec §4.J.3.5).
				argNodes, err := p.parseBaseTemplateArgumentNodes()
				if err != nil {
					return node.Invalid, err
				}
				base.Deferred = true
				base.DeferredExpr = node.NewExprCall(p.Arena, node.NewExprIdentifier(p.Arena, baseName), argNodes)
			} else if ti, ok := p.Types.Lookup(baseName); ok {
				base.Type = ti.Index
			}
			bases = append(bases, base)
			if !p.acceptPunct(",") {
				break
			}
		}
	}

	defaultAccess := node.AccessPublic
	if isClass {
		defaultAccess = node.AccessPrivate
	}

	sd := node.StructDeclaration{Name: name, IsUnion: isUnion, IsFinal: isFinal, Bases: bases, Destructor: node.Invalid}

	if p.acceptPunct(";") {
		// Forward declaration only.
		return node.NewStructDeclaration(p.Arena, sd), nil
	}

	if err := p.expectPunct("{"); err != nil {
		return node.Invalid, err
	}
	access := defaultAccess
	for !p.atPunct("}") {
		switch {
		case p.acceptKeyword("public"):
			access = node.AccessPublic
			if err := p.expectPunct(":"); err != nil {
				return node.Invalid, err
			}
			continue
		case p.acceptKeyword("protected"):
			access = node.AccessProtected
			if err := p.expectPunct(":"); err != nil {
				return node.Invalid, err
			}
			continue
		case p.acceptKeyword("private"):
			access = node.AccessPrivate
			if err := p.expectPunct(":"); err != nil {
				return node.Invalid, err
			}
			continue
		}

		if err := p.parseOneMember(&sd, access, name); err != nil {
			return node.Invalid, err
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct(";"); err != nil {
		return node.Invalid, err
	}

	return node.NewStructDeclaration(p.Arena, sd), nil
}

// parseOneMember parses a single member: a constructor/destructor
// (recognized by name matching className), a static_assert, a nested
// struct, or an ordinary field/method declaration.
func (p *Parser) parseOneMember(sd *node.StructDeclaration, access node.Access, className strtab.Handle) error {
	if p.acceptKeyword("static_assert") {
		if err := p.expectPunct("("); err != nil {
			return err
		}
		cond, err := p.ParseExpression()
		if err != nil {
			return err
		}
		if p.acceptPunct(",") {
			p.Toks.Advance()
		}
		if err := p.expectPunct(")"); err != nil {
			return err
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
		sd.DeferredAsserts = append(sd.DeferredAsserts, cond)
		return nil
	}

	if p.atKeyword("struct") || p.atKeyword("class") || p.atKeyword("union") {
		nested, err := p.ParseStructDeclaration()
		if err != nil {
			return err
		}
		sd.NestedClasses = append(sd.NestedClasses, nested)
		return nil
	}

	explicit := p.acceptKeyword("explicit")
	virtualDtor := p.acceptKeyword("virtual")

	// Constructor / destructor: name (or ~name) matches the class name and
	// is immediately followed by `(`.
	isDtor := p.atPunct("~")
	if isDtor {
		p.Toks.Advance()
	}
	if p.Toks.Peek().Kind == token.Identifier && p.Toks.Peek().Value == p.mustView(className) {
		save := p.Toks.SaveCursor()
		p.Toks.Advance()
		if p.atPunct("(") {
			if isDtor {
				return p.parseDestructorBody(sd, virtualDtor)
			}
			return p.parseConstructorBody(sd, access, explicit)
		}
		p.Toks.RestoreLexerOnly(save)
	}

	storage, err := p.parseStorageFlags()
	if err != nil {
		return err
	}
	base, err := p.parseBaseType()
	if err != nil {
		return err
	}
	spec := p.parsePointersAndRef(base)
	virtual := p.acceptKeyword("virtual") || virtualDtor
	name, err := p.identifierName()
	if err != nil {
		return err
	}

	if p.atPunct("(") {
		returnType := node.NewTypeSpecifierNode(p.Arena, spec)
		fnHandle, err := p.parseFunctionDeclarator(storage, name, returnType, true)
		if err != nil {
			return err
		}
		fd := node.MustGet[*node.FunctionDeclaration](p.Arena, fnHandle)
		fd.Access = access
		fd.Virtual = virtual || fd.Override
		sd.Methods = append(sd.Methods, fnHandle)
		return nil
	}

	// Data member: optional bitfield width, optional array, optional
	// default member initializer.
	var bitWidth *int64
	isBitfield := false
	if p.acceptPunct(":") {
		isBitfield = true
		t := p.Toks.Peek()
		p.Toks.Advance()
		v := parseIntLiteral(t.Value)
		bitWidth = &v
	}
	spec, err = p.parseArraySuffix(spec)
	if err != nil {
		return err
	}
	var defaultInit node.Handle = node.Invalid
	if p.acceptOperator("=") || p.acceptPunct("=") {
		defaultInit, err = p.ParseExpression()
		if err != nil {
			return err
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}

	typeHandle := node.NewTypeSpecifierNode(p.Arena, spec)
	if storage.Static {
		sd.StaticMembers = append(sd.StaticMembers, node.StaticMember{
			Name: name, Type: typeHandle, Initializer: defaultInit, Const: spec.CV.Const, Access: access,
		})
		return nil
	}
	sd.Fields = append(sd.Fields, node.MemberField{
		Name: name, Type: typeHandle, Access: access, DefaultInit: defaultInit,
		BitfieldWidth: bitWidth, IsBitfield: isBitfield, PointerDepth: len(spec.Pointers),
	})
	return nil
}

func (p *Parser) parseConstructorBody(sd *node.StructDeclaration, access node.Access, explicit bool) error {
	params, _, err := p.parseParameterList()
	if err != nil {
		return err
	}
	c := node.ConstructorDeclaration{Parameters: params, Access: access, Explicit: explicit, Body: node.Invalid}
	if p.acceptOperator("=") || p.acceptPunct("=") {
		t := p.Toks.Peek()
		p.Toks.Advance()
		switch t.Value {
		case "default":
			c.Defaulted = true
		case "delete":
			c.Deleted = true
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
	} else if p.acceptPunct(";") {
		// Prototype only; any out-of-line definition is out of scope.
	} else {
		if p.acceptPunct(":") {
			// Member-initializer list: skip to the opening brace. Member
			// initializer semantics are not modeled by this core beyond
			// default-member-initializer substitution (spec Non-goals:
			// full constant evaluation).
			for !p.atPunct("{") {
				p.Toks.Advance()
			}
		}
		c.BodyStartCursor = p.Toks.SaveCursor()
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		c.Body = body
	}
	h := node.NewConstructorDeclaration(p.Arena, c)
	sd.Constructors = append(sd.Constructors, h)
	return nil
}

func (p *Parser) parseDestructorBody(sd *node.StructDeclaration, virtual bool) error {
	if err := p.expectPunct("("); err != nil {
		return err
	}
	if err := p.expectPunct(")"); err != nil {
		return err
	}
	d := node.DestructorDeclaration{Virtual: virtual, Body: node.Invalid}
	if p.acceptOperator("=") || p.acceptPunct("=") {
		t := p.Toks.Peek()
		p.Toks.Advance()
		switch t.Value {
		case "default":
			d.Defaulted = true
		case "delete":
			d.Deleted = true
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
	} else if p.acceptPunct(";") {
		// Prototype only; any out-of-line definition is out of scope.
	} else {
		d.BodyStartCursor = p.Toks.SaveCursor()
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		d.Body = body
	}
	h := node.NewDestructorDeclaration(p.Arena, d)
	sd.Destructor = h
	return nil
}

func (p *Parser) mustView(h strtab.Handle) string {
	return p.Strs.MustView(h)
}

// parseBaseTemplateArgumentNodes parses `< arg [...], arg [...], ... >` for
// a dependent base-specifier, returning each argument as a TypeSpecifierNode
// handle (with PackExpansion set if followed by `...`). Unlike
// parseTemplateArgumentList (which resolves eagerly into a targ.List for
// the Type Registry's instantiation cache), this keeps the argument as an
// AST node so the Instantiation Engine can substitute or pack-expand it
// against the enclosing template's own bindings.
func (p *Parser) parseBaseTemplateArgumentNodes() ([]node.Handle, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	var out []node.Handle
	for !p.atOperator(">") && !p.atPunct(">") {
		spec, err := p.parseTypeSpecifier()
		if err != nil {
			return nil, err
		}
		if p.acceptOperator("...") || p.acceptPunct("...") {
			spec.PackExpansion = true
		}
		out = append(out, node.NewTypeSpecifierNode(p.Arena, spec))
		if !p.acceptPunct(",") {
			break
		}
	}
	if !p.acceptOperator(">") && !p.acceptPunct(">") {
		return nil, p.errorf("expected '>' to close base template argument list, found %q", p.Toks.Peek().Value)
	}
	return out, nil
}
