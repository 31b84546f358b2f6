package parser

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
)

// StorageFlags is the recognized storage/linkage option set (spec §4.F):
// `{static, inline, constexpr, consteval, constinit, extern,
// linkage=C|Cpp|None, callingConvention=Default|Cdecl|Stdcall|Fastcall}`.
type StorageFlags struct {
	Static, Inline, Constexpr, Consteval, Constinit, Extern bool
	Linkage                                                 node.Linkage
	CallingConvention                                       node.CallingConvention
}

var callingConventionKeywords = map[string]node.CallingConvention{
	"__cdecl":    node.CallingConventionCdecl,
	"__stdcall":  node.CallingConventionStdcall,
	"__fastcall": node.CallingConventionFastcall,
}

// parseStorageFlags consumes any run of storage-class/linkage keywords
// preceding a declaration.
func (p *Parser) parseStorageFlags() (StorageFlags, error) {
	var f StorageFlags
	for {
		switch {
		case p.acceptKeyword("static"):
			f.Static = true
		case p.acceptKeyword("inline"):
			f.Inline = true
		case p.acceptKeyword("constexpr"):
			f.Constexpr = true
		case p.acceptKeyword("consteval"):
			f.Consteval = true
		case p.acceptKeyword("constinit"):
			f.Constinit = true
		case p.acceptKeyword("extern"):
			f.Extern = true
			t := p.Toks.Peek()
			if t.Kind == token.Literal {
				p.Toks.Advance()
				switch t.Value {
				case `"C"`:
					f.Linkage = node.LinkageC
				case `"C++"`:
					f.Linkage = node.LinkageCpp
				}
			}
		default:
			t := p.Toks.Peek()
			if cc, ok := callingConventionKeywords[t.Value]; ok {
				f.CallingConvention = cc
				p.Toks.Advance()
				continue
			}
			return f, nil
		}
	}
}

// parseParameterList parses `( params... )`, including a trailing C-style
// `...` (sets variadic) or a pack-expanding final parameter (IsPack on the
// ParameterDeclaration).
func (p *Parser) parseParameterList() ([]node.Handle, bool, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, false, err
	}
	var params []node.Handle
	variadic := false
	for !p.atPunct(")") {
		if p.acceptOperator("...") || p.acceptPunct("...") {
			variadic = true
			break
		}
		param, err := p.parseOneParameter()
		if err != nil {
			return nil, false, err
		}
		params = append(params, param)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, false, err
	}
	return params, variadic, nil
}

func (p *Parser) parseOneParameter() (node.Handle, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return node.Invalid, err
	}
	spec := p.parsePointersAndRef(base)

	isPack := false
	if p.acceptOperator("...") || p.acceptPunct("...") {
		isPack = true
	}

	var name strtab.Handle
	if p.Toks.Peek().Kind == token.Identifier {
		name, err = p.identifierName()
		if err != nil {
			return node.Invalid, err
		}
	}
	spec, err = p.parseArraySuffix(spec)
	if err != nil {
		return node.Invalid, err
	}

	var defaultVal node.Handle = node.Invalid
	if p.acceptOperator("=") || p.acceptPunct("=") {
		defaultVal, err = p.ParseExpression()
		if err != nil {
			return node.Invalid, err
		}
	}

	typeHandle := node.NewTypeSpecifierNode(p.Arena, spec)
	return node.NewParameterDeclaration(p.Arena, node.ParameterDeclaration{
		Name: name, Type: typeHandle, IsPack: isPack, DefaultValue: defaultVal,
	}), nil
}

// parseFunctionDeclarator parses everything after `ReturnType Name` for a
// (possibly member) function: parameter list, trailing cv/ref qualifiers,
// `noexcept`, `override`/`final`, `=0`/`=default`/`=delete`, an optional
// trailing return type, and finally either a body block or `;` (spec
// §4.F "member-function parsing").
func (p *Parser) parseFunctionDeclarator(storage StorageFlags, name strtab.Handle, returnType node.Handle, isMember bool) (node.Handle, error) {
	params, variadic, err := p.parseParameterList()
	if err != nil {
		return node.Invalid, err
	}

	fd := node.FunctionDeclaration{
		Name: name, ReturnType: returnType, Parameters: params, IsVariadic: variadic,
		Static: storage.Static, Inline: storage.Inline, Constexpr: storage.Constexpr,
		Consteval: storage.Consteval, Constinit: storage.Constinit, Extern: storage.Extern,
		Linkage: storage.Linkage, CallingConvention: storage.CallingConvention,
		IsMember: isMember, NamespacePath: append([]strtab.Handle(nil), p.Syms.NamespacePath()...),
	}

	fd.CVQualifier = p.parseCVQualifiers()
	switch {
	case p.acceptOperator("&&") || p.acceptPunct("&&"):
		fd.RefQualifierOnThis = node.RefRValue
	case p.acceptOperator("&") || p.acceptPunct("&"):
		fd.RefQualifierOnThis = node.RefLValue
	}

	if p.acceptKeyword("noexcept") {
		fd.HasNoexcept = true
		if p.acceptPunct("(") {
			fd.NoexceptExpr, err = p.ParseExpression()
			if err != nil {
				return node.Invalid, err
			}
			if err := p.expectPunct(")"); err != nil {
				return node.Invalid, err
			}
		} else {
			fd.NoexceptExpr = node.Invalid
		}
	}

	for {
		switch {
		case p.acceptKeyword("override"):
			fd.Override = true
		case p.acceptKeyword("final"):
			fd.Final = true
		default:
			goto trailing
		}
	}
trailing:

	if p.acceptOperator("->") || p.acceptPunct("->") {
		fd.HasTrailingReturn = true
		fd.TrailingReturnStartCursor = p.Toks.SaveCursor()
		rspec, err := p.parseTypeSpecifier()
		if err != nil {
			return node.Invalid, err
		}
		fd.ReturnType = node.NewTypeSpecifierNode(p.Arena, rspec)
	}

	if p.acceptOperator("=") || p.acceptPunct("=") {
		t := p.Toks.Peek()
		p.Toks.Advance()
		switch t.Value {
		case "0":
			fd.PureVirtual = true
		case "default":
			fd.Defaulted = true
		case "delete":
			fd.Deleted = true
		}
		if err := p.expectPunct(";"); err != nil {
			return node.Invalid, err
		}
		fd.Body = node.Invalid
		return node.NewFunctionDeclaration(p.Arena, fd), nil
	}

	if p.acceptPunct(";") {
		fd.Body = node.Invalid
		return node.NewFunctionDeclaration(p.Arena, fd), nil
	}

	fd.BodyStartCursor = p.Toks.SaveCursor()
	body, err := p.parseBlock()
	if err != nil {
		return node.Invalid, err
	}
	fd.Body = body
	return node.NewFunctionDeclaration(p.Arena, fd), nil
}

// parseBlock parses a `{ ... }` compound statement. Statement recognition
// is intentionally narrow (expression-statements and `return`): the full
// C++ statement grammar is not this core's concern beyond what the
// instantiation/constraint scenarios exercise (spec §8.3).
func (p *Parser) parseBlock() (node.Handle, error) {
	if err := p.expectPunct("{"); err != nil {
		return node.Invalid, err
	}
	var stmts []node.Handle
	for !p.atPunct("}") {
		s, err := p.parseStatement()
		if err != nil {
			return node.Invalid, err
		}
		stmts = append(stmts, s)
	}
	if err := p.expectPunct("}"); err != nil {
		return node.Invalid, err
	}
	return node.NewBlock(p.Arena, stmts), nil
}

func (p *Parser) parseStatement() (node.Handle, error) {
	if p.acceptKeyword("return") {
		if p.acceptPunct(";") {
			return node.NewReturnStatement(p.Arena, node.Invalid), nil
		}
		val, err := p.ParseExpression()
		if err != nil {
			return node.Invalid, err
		}
		if err := p.expectPunct(";"); err != nil {
			return node.Invalid, err
		}
		return node.NewReturnStatement(p.Arena, val), nil
	}
	if p.acceptKeyword("static_assert") {
		if err := p.expectPunct("("); err != nil {
			return node.Invalid, err
		}
		cond, err := p.ParseExpression()
		if err != nil {
			return node.Invalid, err
		}
		if p.acceptPunct(",") {
			// Discard the diagnostic message literal; formatting is a
			// Non-goal of this core (spec Non-goals).
			p.Toks.Advance()
		}
		if err := p.expectPunct(")"); err != nil {
			return node.Invalid, err
		}
		if err := p.expectPunct(";"); err != nil {
			return node.Invalid, err
		}
		return cond, nil
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct(";"); err != nil {
		return node.Invalid, err
	}
	return expr, nil
}

// ParseNamespace parses `namespace Name { declarations... }`.
func (p *Parser) ParseNamespace() ([]node.Handle, error) {
	name, err := p.identifierName()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	p.Syms.EnterScope(symtab.ScopeNamespace, name)
	defer p.Syms.ExitScope()

	var decls []node.Handle
	for !p.atPunct("}") {
		d, err := p.ParseTopLevelDeclaration()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return decls, nil
}

// ParseTopLevelDeclaration dispatches on the next keyword to the
// appropriate declaration-category parser.
func (p *Parser) ParseTopLevelDeclaration() (node.Handle, error) {
	switch {
	case p.atKeyword("namespace"):
		p.Toks.Advance()
		decls, err := p.ParseNamespace()
		if err != nil {
			return node.Invalid, err
		}
		// A namespace itself has no single node identity in this AST; its
		// members are bound directly into the Symbol Table. Return the
		// first member (or Invalid if empty) so callers always get a
		// Handle back.
		if len(decls) == 0 {
			return node.Invalid, nil
		}
		return decls[0], nil
	case p.atKeyword("template"):
		return p.ParseTemplateDeclaration()
	case p.atKeyword("concept"):
		return p.ParseConceptDeclaration(nil)
	case p.atKeyword("struct"), p.atKeyword("class"), p.atKeyword("union"):
		return p.ParseStructDeclaration()
	default:
		return p.parseFunctionOrVariableDeclaration()
	}
}

func (p *Parser) parseFunctionOrVariableDeclaration() (node.Handle, error) {
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

	if p.atPunct("(") {
		returnType := node.NewTypeSpecifierNode(p.Arena, spec)
		fn, err := p.parseFunctionDeclarator(storage, name, returnType, false)
		if err != nil {
			return node.Invalid, err
		}
		p.Syms.Insert(name, fn)
		return fn, nil
	}

	spec, err = p.parseArraySuffix(spec)
	if err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct(";"); err != nil {
		return node.Invalid, err
	}
	typeHandle := node.NewTypeSpecifierNode(p.Arena, spec)
	decl := node.NewDeclaration(p.Arena, name, typeHandle)
	p.Syms.Insert(name, decl)
	return decl, nil
}
