package parser

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/token"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
)

// binaryPrecedence orders the recognized binary operators for precedence
// climbing; higher binds tighter.
var binaryPrecedence = map[node.BinaryOp]int{
	node.OpLogicalOr:  1,
	node.OpLogicalAnd: 2,
	node.OpEqual:      3,
	node.OpNotEqual:   3,
	node.OpLess:       4,
	node.OpGreater:    4,
	node.OpLessEq:     4,
	node.OpGreaterEq:  4,
	node.OpAdd:        5,
	node.OpSub:        5,
	node.OpMul:        6,
	node.OpDiv:        6,
}

var typeTraitNames = map[string]node.TypeTrait{
	string(node.TraitIsIntegral):      node.TraitIsIntegral,
	string(node.TraitIsFloatingPoint): node.TraitIsFloatingPoint,
	string(node.TraitIsClass):         node.TraitIsClass,
	string(node.TraitIsSame):          node.TraitIsSame,
	string(node.TraitIsBaseOf):        node.TraitIsBaseOf,
}

// ParseExpression parses a full expression at the lowest precedence,
// including the ternary conditional operator.
func (p *Parser) ParseExpression() (node.Handle, error) {
	return p.parseTernary()
}

func (p *Parser) parseTernary() (node.Handle, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return node.Invalid, err
	}
	if !p.atPunct("?") {
		return cond, nil
	}
	p.Toks.Advance()
	then, err := p.parseTernary()
	if err != nil {
		return node.Invalid, err
	}
	if err := p.expectPunct(":"); err != nil {
		return node.Invalid, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return node.Invalid, err
	}
	return node.NewExprTernary(p.Arena, cond, then, els), nil
}

func (p *Parser) opAt() (node.BinaryOp, bool) {
	t := p.Toks.Peek()
	if t.Kind != token.Operator && t.Kind != token.Punctuator {
		return "", false
	}
	op := node.BinaryOp(t.Value)
	_, ok := binaryPrecedence[op]
	return op, ok
}

func (p *Parser) parseBinary(minPrec int) (node.Handle, error) {
	left, err := p.parseUnary()
	if err != nil {
		return node.Invalid, err
	}
	for {
		op, ok := p.opAt()
		if !ok {
			return left, nil
		}
		prec := binaryPrecedence[op]
		if prec < minPrec {
			return left, nil
		}
		p.Toks.Advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return node.Invalid, err
		}
		left = node.NewExprBinary(p.Arena, op, left, right)
	}
}

func (p *Parser) parseUnary() (node.Handle, error) {
	t := p.Toks.Peek()
	if t.Kind == token.Operator || t.Kind == token.Punctuator {
		switch t.Value {
		case "!":
			p.Toks.Advance()
			operand, err := p.parseUnary()
			if err != nil {
				return node.Invalid, err
			}
			return node.NewExprUnary(p.Arena, node.OpLogicalNot, operand), nil
		case "-":
			p.Toks.Advance()
			operand, err := p.parseUnary()
			if err != nil {
				return node.Invalid, err
			}
			return node.NewExprUnary(p.Arena, node.OpNegate, operand), nil
		case "&":
			p.Toks.Advance()
			operand, err := p.parseUnary()
			if err != nil {
				return node.Invalid, err
			}
			return node.NewExprUnary(p.Arena, node.OpAddressOf, operand), nil
		case "*":
			p.Toks.Advance()
			operand, err := p.parseUnary()
			if err != nil {
				return node.Invalid, err
			}
			return node.NewExprUnary(p.Arena, node.OpDeref, operand), nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (node.Handle, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return node.Invalid, err
	}
	for {
		switch {
		case p.acceptPunct("("):
			args, err := p.parseArgumentList()
			if err != nil {
				return node.Invalid, err
			}
			left = node.NewExprCall(p.Arena, left, args)
		case p.acceptPunct("."):
			name, err := p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
			left = node.NewExprMemberAccess(p.Arena, left, name, false)
		case p.atOperator("->") || p.atPunct("->"):
			p.Toks.Advance()
			name, err := p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
			left = node.NewExprMemberAccess(p.Arena, left, name, true)
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseArgumentList() ([]node.Handle, error) {
	var args []node.Handle
	for !p.atPunct(")") {
		a, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (node.Handle, error) {
	t := p.Toks.Peek()

	switch {
	case p.acceptPunct("("):
		// Could be a parenthesized expression, or a unary/binary fold
		// expression `(pack op ...)` / `(... op pack)` (spec §4.I).
		if h, ok, err := p.tryParseFold(); ok {
			return h, err
		}
		inner, err := p.ParseExpression()
		if err != nil {
			return node.Invalid, err
		}
		if err := p.expectPunct(")"); err != nil {
			return node.Invalid, err
		}
		return inner, nil

	case t.Kind == token.Literal:
		p.Toks.Advance()
		switch t.Value {
		case "true":
			return node.NewExprLiteralBool(p.Arena, true), nil
		case "false":
			return node.NewExprLiteralBool(p.Arena, false), nil
		}
		if isFloatText(t.Value) {
			return node.NewExprLiteral(p.Arena, node.ExprLiteral{LitKind: node.LiteralFloat, Float: 0}), nil
		}
		return node.NewExprLiteralInt(p.Arena, parseIntLiteral(t.Value)), nil

	case t.Kind == token.Keyword && t.Value == "void":
		// `void(...)` functional-cast, almost exclusively seen as the
		// `decltype(expr, void())` SFINAE idiom (spec §8.3 scenario 3):
		// sequences a validity check before a fixed, always-valid type.
		p.Toks.Advance()
		if err := p.expectPunct("("); err != nil {
			return node.Invalid, err
		}
		args, err := p.parseArgumentList()
		if err != nil {
			return node.Invalid, err
		}
		voidType := node.NewTypeSpecifierNode(p.Arena, node.TypeSpecifier{Base: typekind.Void, Index: typekind.InvalidIndex})
		return node.NewExprConstructorCall(p.Arena, voidType, args), nil

	case t.Kind == token.Keyword && t.Value == "sizeof":
		p.Toks.Advance()
		if p.acceptOperator("...") || p.acceptPunct("...") {
			if err := p.expectPunct("("); err != nil {
				return node.Invalid, err
			}
			name, err := p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
			if err := p.expectPunct(")"); err != nil {
				return node.Invalid, err
			}
			return node.NewExprSizeofPack(p.Arena, name), nil
		}
		return node.Invalid, p.errorf("sizeof(type) is not modeled; only sizeof...(pack) is (Non-goal: general expression evaluation)")

	case t.Kind == token.Identifier && typeTraitNames[t.Value] != "":
		trait := typeTraitNames[t.Value]
		p.Toks.Advance()
		if err := p.expectPunct("("); err != nil {
			return node.Invalid, err
		}
		var args []node.Handle
		for !p.atPunct(")") {
			spec, err := p.parseTypeSpecifier()
			if err != nil {
				return node.Invalid, err
			}
			args = append(args, node.NewTypeSpecifierNode(p.Arena, spec))
			if !p.acceptPunct(",") {
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return node.Invalid, err
		}
		return node.NewExprTypeTrait(p.Arena, trait, args), nil

	case t.Kind == token.Identifier:
		p.Toks.Advance()
		// A bare identifier could name a template parameter, a pack
		// (followed eventually by `...`), or an ordinary value; the
		// Substitutor/Symbol Table disambiguate at use. Qualified names
		// (`A::B::name`) accumulate a namespace path.
		first := p.Strs.Intern(t.Value)
		if !p.atOperator("::") && !p.atPunct("::") {
			return node.NewExprIdentifier(p.Arena, first), nil
		}
		path := []strtab.Handle{first}
		for p.acceptOperator("::") || p.acceptPunct("::") {
			seg, err := p.identifierName()
			if err != nil {
				return node.Invalid, err
			}
			if p.atOperator("::") || p.atPunct("::") {
				path = append(path, seg)
				continue
			}
			return node.NewExprQualifiedIdentifier(p.Arena, path, seg), nil
		}
		return node.Invalid, p.errorf("malformed qualified identifier")
	}

	return node.Invalid, p.errorf("unexpected token %q in expression", t.Value)
}

// tryParseFold attempts to parse a fold-expression body after the opening
// `(` has already been consumed. It returns ok=false (with the token
// stream untouched beyond the `(`) if the content does not match a fold
// shape, so the caller falls back to a parenthesized expression.
func (p *Parser) tryParseFold() (node.Handle, bool, error) {
	save := p.Toks.SaveCursor()

	if p.acceptOperator("...") || p.acceptPunct("...") {
		op, ok := p.opAt()
		if !ok {
			p.Toks.RestoreLexerOnly(save)
			return node.Invalid, false, nil
		}
		p.Toks.Advance()
		pt := p.Toks.Peek()
		if pt.Kind != token.Identifier {
			p.Toks.RestoreLexerOnly(save)
			return node.Invalid, false, nil
		}
		p.Toks.Advance()
		packExpr := node.NewExprTemplateParamRef(p.Arena, p.Strs.Intern(pt.Value), true)
		if err := p.expectPunct(")"); err != nil {
			return node.Invalid, true, err
		}
		return node.NewExprFold(p.Arena, node.ExprFold{Op: op, Direction: node.FoldUnaryLeft, Pack: packExpr}), true, nil
	}

	// Try `(pack op ...)` / `(pack op ... op init)`.
	t := p.Toks.Peek()
	if t.Kind != token.Identifier {
		p.Toks.RestoreLexerOnly(save)
		return node.Invalid, false, nil
	}
	p.Toks.Advance()
	name := p.Strs.Intern(t.Value)
	packExpr := node.NewExprTemplateParamRef(p.Arena, name, true)

	op, ok := p.opAt()
	if !ok {
		p.Toks.RestoreLexerOnly(save)
		return node.Invalid, false, nil
	}
	p.Toks.Advance()
	if !p.acceptOperator("...") && !p.acceptPunct("...") {
		p.Toks.RestoreLexerOnly(save)
		return node.Invalid, false, nil
	}
	if p.acceptPunct(")") {
		return node.NewExprFold(p.Arena, node.ExprFold{Op: op, Direction: node.FoldUnaryRight, Pack: packExpr}), true, nil
	}
	if !p.Toks.Accept(token.Operator, string(op)) && !p.Toks.Accept(token.Punctuator, string(op)) {
		p.Toks.RestoreLexerOnly(save)
		return node.Invalid, false, nil
	}
	init, err := p.ParseExpression()
	if err != nil {
		return node.Invalid, true, err
	}
	if err := p.expectPunct(")"); err != nil {
		return node.Invalid, true, err
	}
	return node.NewExprFold(p.Arena, node.ExprFold{Op: op, Direction: node.FoldBinaryRight, Pack: packExpr, Init: init}), true, nil
}
