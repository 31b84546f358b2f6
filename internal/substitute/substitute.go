// Package substitute implements the Expression Substitutor (component I):
// deep-copy substitution of template parameters into expression trees and
// type specifiers, including sizeof... and fold-expression evaluation and
// reference-collapsing at type positions (spec §4.I).
package substitute

import (
	"github.com/GregorGullwi/FlashCpp-sub002/internal/ferr"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
)

// Bindings maps a template parameter's spelling to the argument bound to
// it for one instantiation. Keyed by spelling rather than strtab.Handle
// because TypeSpecifier.TemplateParamName is already a plain string (spec
// §3.2), and using the same key shape for both the expression-position and
// type-position substitution keeps one Bindings value usable for both.
type Bindings map[string]targ.Value

// Expr returns a deep copy of expr with every template-parameter reference
// replaced per bindings. Non-dependent subtrees are still copied (never
// aliased into the original template's AST), matching spec §4.I "returns a
// deep copy with substitutions applied".
func Expr(a *node.Arena, strs *strtab.Table, expr node.Handle, bindings Bindings) (node.Handle, error) {
	if expr == node.Invalid {
		return node.Invalid, nil
	}
	switch a.KindOf(expr) {
	case node.KindExprLiteral:
		lit := node.MustGet[*node.ExprLiteral](a, expr)
		return node.NewExprLiteral(a, *lit), nil

	case node.KindExprIdentifier:
		id := node.MustGet[*node.ExprIdentifier](a, expr)
		name := strs.MustView(id.Name)
		if v, ok := bindings[name]; ok {
			return valueToLiteral(a, v)
		}
		return node.NewExprIdentifier(a, id.Name), nil

	case node.KindExprTemplateParamRef:
		ref := node.MustGet[*node.ExprTemplateParamRef](a, expr)
		name := strs.MustView(ref.ParamName)
		v, ok := bindings[name]
		if !ok {
			return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no binding for template parameter %q", name)
		}
		return valueToLiteral(a, v)

	case node.KindExprQualifiedIdentifier:
		qi := node.MustGet[*node.ExprQualifiedIdentifier](a, expr)
		return node.NewExprQualifiedIdentifier(a, append([]strtab.Handle(nil), qi.Path...), qi.Name), nil

	case node.KindExprBinary:
		bn := node.MustGet[*node.ExprBinary](a, expr)
		left, err := Expr(a, strs, bn.Left, bindings)
		if err != nil {
			return node.Invalid, err
		}
		right, err := Expr(a, strs, bn.Right, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprBinary(a, bn.Op, left, right), nil

	case node.KindExprUnary:
		un := node.MustGet[*node.ExprUnary](a, expr)
		operand, err := Expr(a, strs, un.Operand, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprUnary(a, un.Op, operand), nil

	case node.KindExprTernary:
		tn := node.MustGet[*node.ExprTernary](a, expr)
		cond, err := Expr(a, strs, tn.Cond, bindings)
		if err != nil {
			return node.Invalid, err
		}
		then, err := Expr(a, strs, tn.Then, bindings)
		if err != nil {
			return node.Invalid, err
		}
		els, err := Expr(a, strs, tn.Else, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprTernary(a, cond, then, els), nil

	case node.KindExprCall:
		cn := node.MustGet[*node.ExprCall](a, expr)
		callee, err := Expr(a, strs, cn.Callee, bindings)
		if err != nil {
			return node.Invalid, err
		}
		args, err := exprList(a, strs, cn.Args, bindings)
		if err != nil {
			return node.Invalid, err
		}
		h := node.NewExprCall(a, callee, args)
		call := node.MustGet[*node.ExprCall](a, h)
		call.ExplicitArgs = append([]node.Handle(nil), cn.ExplicitArgs...)
		return h, nil

	case node.KindExprMemberAccess:
		mn := node.MustGet[*node.ExprMemberAccess](a, expr)
		obj, err := Expr(a, strs, mn.Object, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprMemberAccess(a, obj, mn.Member, mn.Arrow), nil

	case node.KindExprCast:
		cn := node.MustGet[*node.ExprCast](a, expr)
		target, err := substituteTypeNode(a, cn.Target, bindings)
		if err != nil {
			return node.Invalid, err
		}
		operand, err := Expr(a, strs, cn.Operand, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprCast(a, target, operand), nil

	case node.KindExprStaticCast:
		cn := node.MustGet[*node.ExprStaticCast](a, expr)
		target, err := substituteTypeNode(a, cn.Target, bindings)
		if err != nil {
			return node.Invalid, err
		}
		operand, err := Expr(a, strs, cn.Operand, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprStaticCast(a, cn.CastKind, target, operand), nil

	case node.KindExprConstructorCall:
		cn := node.MustGet[*node.ExprConstructorCall](a, expr)
		t, err := substituteTypeNode(a, cn.Type, bindings)
		if err != nil {
			return node.Invalid, err
		}
		args, err := exprList(a, strs, cn.Args, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprConstructorCall(a, t, args), nil

	case node.KindExprSizeofPack:
		sp := node.MustGet[*node.ExprSizeofPack](a, expr)
		name := strs.MustView(sp.PackName)
		v, ok := bindings[name]
		if !ok || v.ArgKind != targ.KindPack {
			return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no pack binding for %q in sizeof...", name)
		}
		return node.NewExprLiteralInt(a, int64(len(v.Pack))), nil

	case node.KindExprFold:
		return substituteFold(a, strs, node.MustGet[*node.ExprFold](a, expr), bindings)

	case node.KindExprComma:
		cn := node.MustGet[*node.ExprComma](a, expr)
		elems, err := exprList(a, strs, cn.Exprs, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewExprComma(a, elems), nil

	case node.KindExprTypeTrait:
		tt := node.MustGet[*node.ExprTypeTrait](a, expr)
		args := make([]node.Handle, len(tt.Args))
		for i, arg := range tt.Args {
			sub, err := substituteTypeNode(a, arg, bindings)
			if err != nil {
				return node.Invalid, err
			}
			args[i] = sub
		}
		return node.NewExprTypeTrait(a, tt.Trait, args), nil

	default:
		return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "substitution not supported for %s", a.KindOf(expr))
	}
}

// Block substitutes every statement in a compound statement, used by the
// Instantiation Engine to rewrite a function body freshly re-parsed from its
// bodyStart cursor (spec §4.J.2.7 "re-parse the body under the substitution
// ... and apply the ExpressionSubstitutor"). The statement grammar this
// core recognizes is deliberately narrow (spec §4.F `parseStatement`): a
// `return`, or a bare expression-statement.
func Block(a *node.Arena, strs *strtab.Table, h node.Handle, bindings Bindings) (node.Handle, error) {
	if h == node.Invalid {
		return node.Invalid, nil
	}
	blk := node.MustGet[*node.Block](a, h)
	stmts := make([]node.Handle, len(blk.Statements))
	for i, s := range blk.Statements {
		sub, err := Statement(a, strs, s, bindings)
		if err != nil {
			return node.Invalid, err
		}
		stmts[i] = sub
	}
	return node.NewBlock(a, stmts), nil
}

// Statement substitutes one statement handle: a nested Block, a
// ReturnStatement, or (falling through) a bare expression-statement.
func Statement(a *node.Arena, strs *strtab.Table, h node.Handle, bindings Bindings) (node.Handle, error) {
	if h == node.Invalid {
		return node.Invalid, nil
	}
	switch a.KindOf(h) {
	case node.KindBlock:
		return Block(a, strs, h, bindings)
	case node.KindReturnStatement:
		rs := node.MustGet[*node.ReturnStatement](a, h)
		value, err := Expr(a, strs, rs.Value, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return node.NewReturnStatement(a, value), nil
	default:
		return Expr(a, strs, h, bindings)
	}
}

func exprList(a *node.Arena, strs *strtab.Table, exprs []node.Handle, bindings Bindings) ([]node.Handle, error) {
	if exprs == nil {
		return nil, nil
	}
	out := make([]node.Handle, len(exprs))
	for i, e := range exprs {
		sub, err := Expr(a, strs, e, bindings)
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}

func substituteTypeNode(a *node.Arena, typeHandle node.Handle, bindings Bindings) (node.Handle, error) {
	if typeHandle == node.Invalid {
		return node.Invalid, nil
	}
	tn := node.MustGet[*node.TypeSpecifierNode](a, typeHandle)
	sub, err := Type(tn.Spec, bindings)
	if err != nil {
		return node.Invalid, err
	}
	return node.NewTypeSpecifierNode(a, sub), nil
}

// Type returns a substituted copy of spec. When spec.TemplateParamName
// names a bound type argument, the whole specifier is replaced with the
// bound type, with spec's own CV/pointer/reference qualifiers composed on
// top and reference-collapsing applied (spec §4.I, §8.1).
func Type(spec node.TypeSpecifier, bindings Bindings) (node.TypeSpecifier, error) {
	if spec.TemplateParamName == "" {
		return spec.Clone(), nil
	}
	v, ok := bindings[spec.TemplateParamName]
	if !ok || v.ArgKind != targ.KindType {
		return node.TypeSpecifier{}, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no type binding for template parameter %q", spec.TemplateParamName)
	}
	result := v.Type.Clone()
	result.Pointers = append(append([]node.PointerLevel(nil), result.Pointers...), spec.Pointers...)
	if spec.CV.Const {
		result.CV.Const = true
	}
	if spec.CV.Volatile {
		result.CV.Volatile = true
	}
	result.Ref = node.CollapseReference(result.Ref, spec.Ref)
	if spec.IsArray {
		result.IsArray = true
		result.ArraySize = spec.ArraySize
	}
	return result, nil
}

func valueToLiteral(a *node.Arena, v targ.Value) (node.Handle, error) {
	switch v.ArgKind {
	case targ.KindValue:
		switch v.NumKind {
		case targ.NumBool:
			return node.NewExprLiteralBool(a, v.ValueBool), nil
		case targ.NumFloat:
			return node.NewExprLiteral(a, node.ExprLiteral{LitKind: node.LiteralFloat, Float: v.ValueFloat}), nil
		default:
			return node.NewExprLiteralInt(a, v.ValueInt), nil
		}
	default:
		return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "argument is not a value and cannot appear in expression position")
	}
}

// substituteFold evaluates a fold expression against a bound pack (spec
// §4.I, §8.3 scenario 5). A unary && or || fold over an empty pack or a
// pack of bool values folds to a single bool literal. Every other fold
// builds the same left/right-associative binary chain a hand-expanded fold
// would produce, one literal per element; arithmetic folds are not reduced
// to a single value.
func substituteFold(a *node.Arena, strs *strtab.Table, fold *node.ExprFold, bindings Bindings) (node.Handle, error) {
	ref := node.MustGet[*node.ExprTemplateParamRef](a, fold.Pack)
	name := strs.MustView(ref.ParamName)
	v, ok := bindings[name]
	if !ok || v.ArgKind != targ.KindPack {
		return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "no pack binding for %q in fold expression", name)
	}

	if (fold.Op == node.OpLogicalAnd || fold.Op == node.OpLogicalOr) &&
		(fold.Direction == node.FoldUnaryRight || fold.Direction == node.FoldUnaryLeft) {
		result, allBool := fold.Op == node.OpLogicalAnd, true
		for _, e := range v.Pack {
			allBool = allBool && e.ArgKind == targ.KindValue && e.NumKind == targ.NumBool
			if allBool && e.ValueBool != (fold.Op == node.OpLogicalAnd) {
				result = e.ValueBool
			}
		}
		if allBool {
			return node.NewExprLiteralBool(a, result), nil
		}
	}

	elems := make([]node.Handle, len(v.Pack))
	for i, e := range v.Pack {
		h, err := valueToLiteral(a, e)
		if err != nil {
			return node.Invalid, err
		}
		elems[i] = h
	}

	switch fold.Direction {
	case node.FoldUnaryRight:
		return foldChain(a, fold.Op, elems, node.Invalid, true)
	case node.FoldUnaryLeft:
		return foldChain(a, fold.Op, elems, node.Invalid, false)
	case node.FoldBinaryRight:
		init, err := Expr(a, strs, fold.Init, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return foldChain(a, fold.Op, elems, init, true)
	default: // FoldBinaryLeft
		init, err := Expr(a, strs, fold.Init, bindings)
		if err != nil {
			return node.Invalid, err
		}
		return foldChain(a, fold.Op, elems, init, false)
	}
}

// foldChain builds the binary chain for a pack of already-substituted
// elements. rightAssoc true folds as `e0 op (e1 op (e2 op init))`; false
// folds as `((init op e0) op e1) op e2`. An empty unary fold (init ==
// Invalid and no elements) is only well-formed for && (true) and ||
// (false), matching the C++ empty-fold special cases.
func foldChain(a *node.Arena, op node.BinaryOp, elems []node.Handle, init node.Handle, rightAssoc bool) (node.Handle, error) {
	if len(elems) == 0 {
		if init != node.Invalid {
			return init, nil
		}
		switch op {
		case node.OpLogicalAnd:
			return node.NewExprLiteralBool(a, true), nil
		case node.OpLogicalOr:
			return node.NewExprLiteralBool(a, false), nil
		default:
			return node.Invalid, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "empty fold of operator %q has no identity value", op)
		}
	}
	if rightAssoc {
		acc := init
		if acc == node.Invalid {
			acc = elems[len(elems)-1]
			elems = elems[:len(elems)-1]
		}
		for i := len(elems) - 1; i >= 0; i-- {
			acc = node.NewExprBinary(a, op, elems[i], acc)
		}
		return acc, nil
	}
	acc := init
	if acc == node.Invalid {
		acc = elems[0]
		elems = elems[1:]
	}
	for _, e := range elems {
		acc = node.NewExprBinary(a, op, acc, e)
	}
	return acc, nil
}
