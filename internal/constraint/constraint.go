// Package constraint implements the Constraint/Concept Evaluator (component
// H): evaluates a boolean constraint expression against a bound set of
// template arguments, returning a satisfied/failed verdict with enough
// detail to report a useful diagnostic (spec §4.H, §7).
package constraint

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/ferr"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/strtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/substitute"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/symtab"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/targ"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typekind"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/typesys"
)

// Result is the verdict spec §4.H requires: {satisfied, errorMessage,
// failedRequirement, suggestion}.
type Result struct {
	Satisfied         bool
	ErrorMessage      string
	FailedRequirement string
	Suggestion        string
}

func ok() Result { return Result{Satisfied: true} }

// Evaluator ties the substitutor to the Type Registry and the Symbol Table
// (which doubles as the concept registry, per parser.ParseConceptDeclaration).
type Evaluator struct {
	Arena *node.Arena
	Strs  *strtab.Table
	Types *typesys.Registry
	Syms  *symtab.Table
}

// New builds an Evaluator over the given shared compilation state.
func New(arena *node.Arena, strs *strtab.Table, types *typesys.Registry, syms *symtab.Table) *Evaluator {
	return &Evaluator{Arena: arena, Strs: strs, Types: types, Syms: syms}
}

// BuildBindings pairs template parameters with their resolved arguments,
// collecting any trailing pack parameter's remaining arguments into one
// targ.KindPack value (spec §3.2 "at most one trailing pack parameter").
func BuildBindings(a *node.Arena, strs *strtab.Table, params []node.Handle, args targ.List) (substitute.Bindings, error) {
	b := substitute.Bindings{}
	ai := 0
	for pi, ph := range params {
		tp := node.MustGet[*node.TemplateParameter](a, ph)
		name := strs.MustView(tp.Name)
		if tp.IsPack {
			var pack []targ.Value
			for ; ai < len(args); ai++ {
				pack = append(pack, args[ai])
			}
			b[name] = targ.Value{ArgKind: targ.KindPack, Pack: pack}
			continue
		}
		if ai >= len(args) {
			return nil, ferr.New(ferr.ErrSubstitution, ferr.Location{}, "missing argument for template parameter %q (position %d)", name, pi)
		}
		b[name] = args[ai]
		ai++
	}
	return b, nil
}

// EvaluateRequiresClause evaluates a RequiresClause node against the given
// bindings.
func (e *Evaluator) EvaluateRequiresClause(clause node.Handle, bindings substitute.Bindings) Result {
	if clause == node.Invalid {
		return ok()
	}
	rc := node.MustGet[*node.RequiresClause](e.Arena, clause)
	return e.Evaluate(rc.Expr, bindings)
}

// EvaluateConcept evaluates a named concept's constraint against args,
// binding the concept's own template parameters first (spec §4.H "concept
// references").
func (e *Evaluator) EvaluateConcept(name strtab.Handle, args targ.List) Result {
	h, ok := e.Syms.Lookup(name)
	if !ok {
		return Result{ErrorMessage: "unknown concept " + e.Strs.MustView(name), Suggestion: e.suggestName(name)}
	}
	c, isConcept := node.Get[*node.ConceptDeclaration](e.Arena, h)
	if !isConcept {
		return Result{ErrorMessage: e.Strs.MustView(name) + " does not name a concept"}
	}
	bindings, err := BuildBindings(e.Arena, e.Strs, c.TemplateParams, args)
	if err != nil {
		return Result{ErrorMessage: err.Error()}
	}
	return e.Evaluate(c.Constraint, bindings)
}

// Evaluate evaluates a boolean constraint expression: atomic type-trait
// calls, logical combinations, and concept-reference calls (spec §4.H).
// Everything else is first run through the Expression Substitutor so
// template-parameter references resolve to concrete values/types before
// the boolean structure is inspected.
func (e *Evaluator) Evaluate(expr node.Handle, bindings substitute.Bindings) Result {
	if expr == node.Invalid {
		return ok()
	}
	switch e.Arena.KindOf(expr) {
	case node.KindExprUnary:
		un := node.MustGet[*node.ExprUnary](e.Arena, expr)
		if un.Op != node.OpLogicalNot {
			break
		}
		inner := e.Evaluate(un.Operand, bindings)
		if inner.ErrorMessage != "" && !inner.Satisfied && inner.FailedRequirement == "" {
			// Propagate substitution/lookup failures rather than inverting them.
			return inner
		}
		return Result{Satisfied: !inner.Satisfied}

	case node.KindExprBinary:
		bn := node.MustGet[*node.ExprBinary](e.Arena, expr)
		if bn.Op == node.OpLogicalAnd {
			left := e.Evaluate(bn.Left, bindings)
			if !left.Satisfied {
				return left
			}
			return e.Evaluate(bn.Right, bindings)
		}
		if bn.Op == node.OpLogicalOr {
			left := e.Evaluate(bn.Left, bindings)
			if left.Satisfied {
				return left
			}
			right := e.Evaluate(bn.Right, bindings)
			if right.Satisfied {
				return right
			}
			return Result{
				ErrorMessage:      "neither side of the disjunction is satisfied",
				FailedRequirement: left.FailedRequirement,
				Suggestion:        left.Suggestion,
			}
		}

	case node.KindExprTypeTrait:
		return e.evaluateTypeTrait(node.MustGet[*node.ExprTypeTrait](e.Arena, expr), bindings)

	case node.KindExprCall:
		cn := node.MustGet[*node.ExprCall](e.Arena, expr)
		if id, isIdent := node.Get[*node.ExprIdentifier](e.Arena, cn.Callee); isIdent {
			if _, isConcept := e.lookupConcept(id.Name); isConcept {
				args, err := e.argsFromExprs(cn.Args, bindings)
				if err != nil {
					return Result{ErrorMessage: err.Error()}
				}
				return e.EvaluateConcept(id.Name, args)
			}
		}
	}

	// Fall back to substitution + literal-truthiness for every other
	// expression shape (e.g. a bare bool literal, or an already-resolved
	// boolean sub-expression).
	sub, err := substitute.Expr(e.Arena, e.Strs, expr, bindings)
	if err != nil {
		return Result{ErrorMessage: err.Error()}
	}
	lit, isLit := node.Get[*node.ExprLiteral](e.Arena, sub)
	if !isLit {
		return Result{ErrorMessage: "constraint expression did not reduce to a boolean value"}
	}
	satisfied := literalTruthy(lit)
	if satisfied {
		return ok()
	}
	return Result{ErrorMessage: "constraint expression evaluated to false", FailedRequirement: exprText(lit)}
}

func literalTruthy(lit *node.ExprLiteral) bool {
	switch lit.LitKind {
	case node.LiteralBool:
		return lit.Bool
	case node.LiteralInt:
		return lit.Int != 0
	case node.LiteralFloat:
		return lit.Float != 0
	default:
		return false
	}
}

func exprText(lit *node.ExprLiteral) string {
	switch lit.LitKind {
	case node.LiteralBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	default:
		return "<non-boolean literal>"
	}
}

func (e *Evaluator) lookupConcept(name strtab.Handle) (*node.ConceptDeclaration, bool) {
	h, ok := e.Syms.Lookup(name)
	if !ok {
		return nil, false
	}
	return node.Get[*node.ConceptDeclaration](e.Arena, h)
}

// argsFromExprs substitutes each argument expression and converts the
// result into a targ.Value, for the rare case a concept reference's
// argument is itself a dependent expression rather than a bare type/param.
func (e *Evaluator) argsFromExprs(exprs []node.Handle, bindings substitute.Bindings) (targ.List, error) {
	out := make(targ.List, 0, len(exprs))
	for _, expr := range exprs {
		if id, isIdent := node.Get[*node.ExprIdentifier](e.Arena, expr); isIdent {
			name := e.Strs.MustView(id.Name)
			if v, bound := bindings[name]; bound {
				out = append(out, v)
				continue
			}
		}
		sub, err := substitute.Expr(e.Arena, e.Strs, expr, bindings)
		if err != nil {
			return nil, err
		}
		lit, isLit := node.Get[*node.ExprLiteral](e.Arena, sub)
		if !isLit {
			return nil, ferr.New(ferr.ErrConstraint, ferr.Location{}, "concept argument did not reduce to a constant")
		}
		switch lit.LitKind {
		case node.LiteralBool:
			out = append(out, targ.Bool(lit.Bool))
		default:
			out = append(out, targ.Int(lit.Int))
		}
	}
	return out, nil
}

func (e *Evaluator) evaluateTypeTrait(tt *node.ExprTypeTrait, bindings substitute.Bindings) Result {
	specs := make([]node.TypeSpecifier, len(tt.Args))
	for i, argHandle := range tt.Args {
		argNode := node.MustGet[*node.TypeSpecifierNode](e.Arena, argHandle)
		sub, err := substitute.Type(argNode.Spec, bindings)
		if err != nil {
			return Result{ErrorMessage: err.Error()}
		}
		specs[i] = sub
	}

	requirement := string(tt.Trait)
	switch tt.Trait {
	case node.TraitIsIntegral:
		if isIntegral(specs[0].Base) {
			return ok()
		}
		return Result{
			ErrorMessage:      specs[0].Base.String() + " is not an integral type",
			FailedRequirement: requirement,
			Suggestion:        "constrain the parameter to an integral type, or remove the __is_integral requirement",
		}

	case node.TraitIsFloatingPoint:
		if isFloatingPoint(specs[0].Base) {
			return ok()
		}
		return Result{ErrorMessage: specs[0].Base.String() + " is not a floating-point type", FailedRequirement: requirement}

	case node.TraitIsClass:
		if specs[0].Base == typekind.Struct || specs[0].Base == typekind.UserDefined {
			return ok()
		}
		return Result{ErrorMessage: specs[0].Base.String() + " is not a class type", FailedRequirement: requirement}

	case node.TraitIsSame:
		if sameType(specs[0], specs[1]) {
			return ok()
		}
		return Result{
			ErrorMessage:      specs[0].Base.String() + " is not the same type as " + specs[1].Base.String(),
			FailedRequirement: requirement,
		}

	case node.TraitIsBaseOf:
		if e.isBaseOf(specs[0], specs[1]) {
			return ok()
		}
		return Result{ErrorMessage: specs[0].Base.String() + " is not a base of " + specs[1].Base.String(), FailedRequirement: requirement}

	default:
		return Result{ErrorMessage: "unrecognized type trait " + requirement}
	}
}

func isIntegral(t typekind.Type) bool {
	switch t {
	case typekind.Bool, typekind.Char, typekind.UnsignedChar, typekind.Short, typekind.UnsignedShort,
		typekind.Int, typekind.UnsignedInt, typekind.Long, typekind.UnsignedLong,
		typekind.LongLong, typekind.UnsignedLongLong:
		return true
	default:
		return false
	}
}

func isFloatingPoint(t typekind.Type) bool {
	switch t {
	case typekind.Float, typekind.Double, typekind.LongDouble:
		return true
	default:
		return false
	}
}

func sameType(a, b node.TypeSpecifier) bool {
	if a.Base != b.Base || len(a.Pointers) != len(b.Pointers) || a.Ref != b.Ref {
		return false
	}
	if a.Base == typekind.Struct || a.Base == typekind.UserDefined {
		return a.Index == b.Index
	}
	return true
}

// isBaseOf reports whether base is a (possibly indirect) base class of
// derived, walking the Type Registry's recorded StructTypeInfo.Bases.
func (e *Evaluator) isBaseOf(base, derived node.TypeSpecifier) bool {
	if base.Index == typekind.InvalidIndex || derived.Index == typekind.InvalidIndex {
		return false
	}
	if base.Index == derived.Index {
		return true
	}
	ti, found := e.Types.Get(derived.Index)
	if !found || ti.Struct == nil {
		return false
	}
	for _, b := range ti.Struct.Bases {
		if b.Type == base.Index {
			return true
		}
		parentTi, ok := e.Types.Get(b.Type)
		if !ok || parentTi.Struct == nil {
			continue
		}
		if e.isBaseOf(base, node.TypeSpecifier{Base: typekind.Struct, Index: b.Type}) {
			return true
		}
	}
	return false
}

// suggestName proposes the closest registered concept/identifier name,
// used to fill Result.Suggestion for an unknown-concept diagnostic.
func (e *Evaluator) suggestName(name strtab.Handle) string {
	target := e.Strs.MustView(name)
	best := ""
	bestRatio := 0.0
	for _, candidate := range e.Strs.Interned() {
		if candidate == target {
			continue
		}
		ratio := difflib.NewMatcher(splitChars(target), splitChars(candidate)).Ratio()
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}
	if bestRatio < 0.5 {
		return ""
	}
	return "did you mean " + best + "?"
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
