package parser

import (
	"fmt"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

var singleKeywordBase = map[string]typekind.Type{
	"void": typekind.Void, "bool": typekind.Bool, "char": typekind.Char,
	"short": typekind.Short, "int": typekind.Int, "long": typekind.Long,
	"float": typekind.Float, "double": typekind.Double, "auto": typekind.Auto,
}

// parseCVQualifiers consumes any run of const/volatile keywords in either
// order, accumulating into cv.
func (p *Parser) parseCVQualifiers() node.CVQualifier {
	var cv node.CVQualifier
	for {
		switch {
		case p.acceptKeyword("const"):
			cv.Const = true
		case p.acceptKeyword("volatile"):
			cv.Volatile = true
		default:
			return cv
		}
	}
}

// parseBaseType recognizes the fundamental-type keyword grammar
// (`unsigned long long`, `long double`, ...), a previously registered
// user-defined type name, or a template-id naming a class-template
// instantiation (spec §4.F, §3.2). CV-qualifiers may precede or follow the
// keyword sequence; both are folded into the returned TypeSpecifier.
func (p *Parser) parseBaseType() (node.TypeSpecifier, error) {
	if p.acceptKeyword("decltype") {
		return p.parseDeclTypeSpecifier()
	}

	var spec node.TypeSpecifier
	spec.CV = p.parseCVQualifiers()

	unsigned, signed, longCount := false, false, 0
	var kw string

	for {
		t := p.Toks.Peek()
		if t.Kind != token.Keyword {
			break
		}
		switch t.Value {
		case "unsigned":
			unsigned = true
			p.Toks.Advance()
			continue
		case "signed":
			signed = true
			p.Toks.Advance()
			continue
		case "long":
			longCount++
			p.Toks.Advance()
			continue
		case "void", "bool", "char", "short", "int", "float", "double", "auto":
			kw = t.Value
			p.Toks.Advance()
		}
		break
	}

	if cv2 := p.parseCVQualifiers(); cv2.Const || cv2.Volatile {
		spec.CV.Const = spec.CV.Const || cv2.Const
		spec.CV.Volatile = spec.CV.Volatile || cv2.Volatile
	}

	switch {
	case longCount >= 2 && kw == "double":
		spec.Base = typekind.LongDouble
	case longCount >= 2:
		spec.Base = typekind.LongLong
		if unsigned {
			spec.Base = typekind.UnsignedLongLong
		}
	case longCount == 1 && kw == "double":
		spec.Base = typekind.LongDouble
	case longCount == 1:
		spec.Base = typekind.Long
		if unsigned {
			spec.Base = typekind.UnsignedLong
		}
	case kw != "":
		spec.Base = singleKeywordBase[kw]
		if unsigned {
			switch spec.Base {
			case typekind.Char:
				spec.Base = typekind.UnsignedChar
			case typekind.Short:
				spec.Base = typekind.UnsignedShort
			case typekind.Int:
				spec.Base = typekind.UnsignedInt
			}
		}
	case unsigned || signed:
		spec.Base = typekind.Int
		if unsigned {
			spec.Base = typekind.UnsignedInt
		}
	default:
		return p.parseUserDefinedOrTemplateBase(spec)
	}

	spec.Index = typekind.InvalidIndex
	spec.SizeBits = int64(spec.Base.SizeBits())
	return spec, nil
}

// parseDeclTypeSpecifier parses `decltype ( expr )`, deferring any actual
// type resolution: in a trailing return-type position this expression is
// re-evaluated once the enclosing template's bindings are known, and a
// failure to resolve it there rules the overload out rather than erroring
// (spec §8.3 scenario 3's SFINAE requirement).
func (p *Parser) parseDeclTypeSpecifier() (node.TypeSpecifier, error) {
	var spec node.TypeSpecifier
	if err := p.expectPunct("("); err != nil {
		return spec, err
	}
	var exprs []node.Handle
	for {
		e, err := p.ParseExpression()
		if err != nil {
			return spec, err
		}
		exprs = append(exprs, e)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return spec, err
	}
	spec.IsDeclType = true
	if len(exprs) == 1 {
		spec.DeclType = exprs[0]
	} else {
		spec.DeclType = node.NewExprComma(p.Arena, exprs)
	}
	spec.Base = typekind.Auto
	spec.Index = typekind.InvalidIndex
	return spec, nil
}

// parseUserDefinedOrTemplateBase handles an identifier base type: a plain
// struct/class name, a bare template-parameter reference (recorded as
// dependent, resolved by the Symbol Table at the call site), or a
// template-id `Name<Args...>` that consults the Type Registry's
// instantiation cache (spec §4.C `getOrCompute`, §4.J.4).
func (p *Parser) parseUserDefinedOrTemplateBase(spec node.TypeSpecifier) (node.TypeSpecifier, error) {
	t := p.Toks.Peek()
	if t.Kind != token.Identifier {
		return spec, p.errorf("expected type, found %q", t.Value)
	}
	name := t.Value
	p.Toks.Advance()

	if !p.atPunct("<") {
		nameHandle := p.Strs.Intern(name)
		if ti, ok := p.Types.Lookup(nameHandle); ok {
			spec.Base = typekind.Struct
			spec.Index = ti.Index
			return spec, nil
		}
		// Unresolved identifier: treat as a dependent template-parameter
		// reference; the Symbol Table / Substitutor resolve it later.
		spec.Base = typekind.Template
		spec.Index = typekind.InvalidIndex
		spec.TemplateParamName = name
		return spec, nil
	}

	args, err := p.parseTemplateArgumentList()
	if err != nil {
		return spec, err
	}
	nameHandle := p.Strs.Intern(name)
	key := typesys.NewInstantiationKey(nameHandle, args)
	idx, _, _ := p.Types.GetOrCompute(key)
	spec.Base = typekind.Template
	spec.Index = idx
	spec.TemplateParamName = name
	return spec, nil
}

// parseTemplateArgumentList parses `< arg, arg, ... >` where each argument
// is either a type-specifier or a constant expression, per spec §4.G/§4.I.
// The instantiation engine resolves dependent arguments later; this parser
// only needs enough to build a stable InstantiationKey.
func (p *Parser) parseTemplateArgumentList() (targ.List, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	var out targ.List
	for !p.atOperator(">") && !p.atPunct(">") {
		v, err := p.parseTemplateArgument()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if !p.acceptPunct(",") {
			break
		}
	}
	if !p.acceptOperator(">") && !p.acceptPunct(">") {
		return nil, p.errorf("expected '>' to close template argument list, found %q", p.Toks.Peek().Value)
	}
	return out, nil
}

func (p *Parser) parseTemplateArgument() (targ.Value, error) {
	t := p.Toks.Peek()
	if t.Kind == token.Literal {
		p.Toks.Advance()
		if t.Value == "true" || t.Value == "false" {
			return targ.Bool(t.Value == "true"), nil
		}
		if isFloatText(t.Value) {
			var f float64
			fmt.Sscanf(t.Value, "%g", &f)
			return targ.Float(f), nil
		}
		return targ.Int(parseIntLiteral(t.Value)), nil
	}
	spec, err := p.parseTypeSpecifier()
	if err != nil {
		return targ.Value{}, err
	}
	return targ.Type(spec), nil
}

// parseTypeSpecifier parses a full declarator-less type use: base type
// plus pointer/reference suffixes, with no name (used for cast targets,
// template arguments, and return types before the declarator is applied).
func (p *Parser) parseTypeSpecifier() (node.TypeSpecifier, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return base, err
	}
	return p.parsePointersAndRef(base), nil
}

// parsePointersAndRef consumes `*` levels (each with its own optional
// CV-qualifiers) followed by an optional `&`/`&&`, per the full C++
// declarator grammar's pointer/reference component (spec §4.F).
func (p *Parser) parsePointersAndRef(spec node.TypeSpecifier) node.TypeSpecifier {
	for p.acceptOperator("*") || p.acceptPunct("*") {
		lvl := node.PointerLevel{CV: p.parseCVQualifiers()}
		spec.Pointers = append(spec.Pointers, lvl)
	}
	switch {
	case p.acceptOperator("&&") || p.acceptPunct("&&"):
		spec.Ref = node.RefRValue
	case p.acceptOperator("&") || p.acceptPunct("&"):
		spec.Ref = node.RefLValue
	}
	return spec
}

// parseArraySuffix consumes a single `[ size? ]` suffix, if present.
func (p *Parser) parseArraySuffix(spec node.TypeSpecifier) (node.TypeSpecifier, error) {
	if !p.acceptPunct("[") {
		return spec, nil
	}
	spec.IsArray = true
	if !p.atPunct("]") {
		t := p.Toks.Peek()
		if t.Kind == token.Literal {
			p.Toks.Advance()
			n := parseIntLiteral(t.Value)
			spec.ArraySize = &n
		} else {
			// Dependent array bound (e.g. a non-type template parameter);
			// left unsized until substitution resolves it.
			p.Toks.Advance()
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return spec, err
	}
	return spec, nil
}
