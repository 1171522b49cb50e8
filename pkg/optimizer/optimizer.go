// Package optimizer rewrites an ast.Expr tree to an equivalent, cheaper
// tree before it reaches the bytecode compiler or JIT (spec.md §4.2).
// Grounded on the teacher's pkg/compiler/optimizer.go Optimizer/
// OptimizationLevel/recursive-rewrite shape, narrowed from its
// statement-level constant/copy-propagation passes (which need an
// Environment of assigned variables) down to pure expression rewrites,
// since spec.md's expression language has no assignment.
package optimizer

import (
	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

// maxPasses bounds the fixed-point loop (spec.md §4.2, I2: at most 16
// passes — optimization must terminate, not just "usually converge").
const maxPasses = 16

// Stats reports what an Optimize call changed, for diagnostics and tests.
type Stats struct {
	Passes        int
	FoldedConst   int
	PrunedBranch  int
	RemovedNoop   int
}

// Optimizer runs a bounded fixed-point of value-preserving rewrites over an
// ast.Expr tree (spec.md §4.2: constant folding, algebraic identities,
// short-circuit pruning, if-simplification, dead-argument elimination).
type Optimizer struct {
	reg *registry.Registry
}

// New creates an Optimizer that may constant-fold calls to reg's pure
// builtins.
func New(reg *registry.Registry) *Optimizer {
	return &Optimizer{reg: reg}
}

// Optimize rewrites e to a value-preserving equivalent, iterating rewrite
// passes until a fixed point or maxPasses, whichever comes first.
func (o *Optimizer) Optimize(e ast.Expr) (ast.Expr, Stats) {
	stats := Stats{}
	cur := e
	for i := 0; i < maxPasses; i++ {
		next, changed := o.pass(cur, &stats)
		stats.Passes++
		if !changed {
			return next, stats
		}
		cur = next
	}
	return cur, stats
}

func (o *Optimizer) pass(e ast.Expr, stats *Stats) (ast.Expr, bool) {
	changed := false

	switch n := e.(type) {
	case *ast.LiteralExpr, *ast.FieldExpr, *ast.VariableExpr:
		return e, false

	case *ast.UnaryExpr:
		inner, ch := o.pass(n.Expr, stats)
		changed = changed || ch
		folded, ok := tryFoldUnary(n.Op, inner, n.Span())
		if ok {
			stats.FoldedConst++
			return folded, true
		}
		return ast.NewUnary(n.Op, inner, n.Span()), changed

	case *ast.BinaryExpr:
		left, ch1 := o.pass(n.Left, stats)
		right, ch2 := o.pass(n.Right, stats)
		changed = changed || ch1 || ch2

		if rewritten, ok := tryShortCircuit(n.Op, left, right); ok {
			stats.PrunedBranch++
			return rewritten, true
		}
		if rewritten, ok := tryIdentity(n.Op, left, right, n.Span()); ok {
			stats.RemovedNoop++
			return rewritten, true
		}
		if folded, ok := tryFoldBinary(n.Op, left, right, n.Span()); ok {
			stats.FoldedConst++
			return folded, true
		}
		return ast.NewBinary(n.Op, left, right, n.Span()), changed

	case *ast.CallExpr:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			next, ch := o.pass(a, stats)
			args[i] = next
			changed = changed || ch
		}
		if o.reg != nil {
			if folded, ok := o.tryFoldCall(n.Name, args, n.Span()); ok {
				stats.FoldedConst++
				return folded, true
			}
		}
		return ast.NewCall(n.Name, args, n.Span()), changed

	case *ast.IndexExpr:
		arr, ch1 := o.pass(n.Array, stats)
		idx, ch2 := o.pass(n.Index, stats)
		return ast.NewIndex(arr, idx, n.Span()), changed || ch1 || ch2

	case *ast.MemberExpr:
		obj, ch := o.pass(n.Object, stats)
		return ast.NewMember(obj, n.Name, n.Span()), changed || ch

	case *ast.IfExpr:
		cond, ch1 := o.pass(n.Cond, stats)
		then, ch2 := o.pass(n.Then, stats)
		els, ch3 := o.pass(n.Else, stats)
		changed = changed || ch1 || ch2 || ch3

		if lit, ok := cond.(*ast.LiteralExpr); ok && lit.Value.Kind == ast.LitBool {
			stats.PrunedBranch++
			if lit.Value.B {
				return then, true
			}
			return els, true
		}
		return ast.NewIf(cond, then, els, n.Span()), changed

	default:
		return e, false
	}
}

func asLiteral(e ast.Expr) (ast.Literal, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok {
		return ast.Literal{}, false
	}
	return lit.Value, true
}

func literalToValue(lit ast.Literal) value.Value {
	switch lit.Kind {
	case ast.LitNull:
		return value.Null
	case ast.LitBool:
		return value.Bool(lit.B)
	case ast.LitInt:
		return value.Int(lit.I)
	case ast.LitFloat:
		return value.Float(lit.F)
	case ast.LitStr:
		return value.Str(lit.S)
	default:
		return value.Null
	}
}

func valueToLiteral(v value.Value) (ast.Literal, bool) {
	switch v.Kind() {
	case value.KindNull:
		return ast.NullLiteral(), true
	case value.KindBool:
		b, _ := v.AsBool()
		return ast.BoolLiteral(b), true
	case value.KindInt:
		i, _ := v.AsInt()
		return ast.IntLiteral(i), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return ast.FloatLiteral(f), true
	case value.KindStr:
		s, _ := v.AsStr()
		return ast.StrLiteral(s), true
	default:
		return ast.Literal{}, false // arrays/objects are not re-literalizable
	}
}

// tryFoldUnary folds a unary op applied to a constant operand.
func tryFoldUnary(op ast.UnOp, operand ast.Expr, sp ast.Span) (ast.Expr, bool) {
	lit, ok := asLiteral(operand)
	if !ok {
		return nil, false
	}
	v := literalToValue(lit)
	switch op {
	case ast.Not:
		if b, ok := v.AsBool(); ok {
			return ast.NewLiteral(ast.BoolLiteral(!b), sp), true
		}
	case ast.Neg:
		if i, ok := v.AsInt(); ok {
			return ast.NewLiteral(ast.IntLiteral(-i), sp), true
		}
		if f, ok := v.AsFloat(); ok {
			return ast.NewLiteral(ast.FloatLiteral(-f), sp), true
		}
	}
	return nil, false
}

// tryShortCircuit prunes the right operand of && / || when the left
// operand already determines the result (spec.md §4.2: must not evaluate,
// and therefore must not fold, a right side that could fail at runtime).
func tryShortCircuit(op ast.BinOp, left, right ast.Expr) (ast.Expr, bool) {
	lit, ok := asLiteral(left)
	if !ok || lit.Kind != ast.LitBool {
		return nil, false
	}
	switch op {
	case ast.And:
		if !lit.B {
			return left, true // false && x == false, x never evaluated
		}
		return right, true // true && x == x
	case ast.Or:
		if lit.B {
			return left, true // true || x == true, x never evaluated
		}
		return right, true // false || x == x
	}
	return nil, false
}

// tryIdentity applies algebraic identities that hold regardless of the
// non-constant operand's runtime value (x+0, x*1, x*0 only when x cannot
// itself fail — arithmetic identities are still safe because they don't
// change which operand must be evaluated, only how it combines).
func tryIdentity(op ast.BinOp, left, right ast.Expr, sp ast.Span) (ast.Expr, bool) {
	if lit, ok := asLiteral(right); ok {
		switch op {
		case ast.Add:
			if isZero(lit) {
				return left, true
			}
		case ast.Sub:
			if isZero(lit) {
				return left, true
			}
		case ast.Mul:
			if isOne(lit) {
				return left, true
			}
		case ast.Div:
			if isOne(lit) {
				return left, true
			}
		}
	}
	if lit, ok := asLiteral(left); ok {
		switch op {
		case ast.Add:
			if isZero(lit) {
				return right, true
			}
		case ast.Mul:
			if isOne(lit) {
				return right, true
			}
		}
	}
	_ = sp
	return nil, false
}

func isZero(lit ast.Literal) bool {
	return (lit.Kind == ast.LitInt && lit.I == 0) || (lit.Kind == ast.LitFloat && lit.F == 0)
}

func isOne(lit ast.Literal) bool {
	return (lit.Kind == ast.LitInt && lit.I == 1) || (lit.Kind == ast.LitFloat && lit.F == 1)
}

// tryFoldBinary folds a binary op over two constant operands by delegating
// to pkg/value's Equal, Compare and Arith, the same comparison and
// arithmetic the evaluation tiers use, so no pkg/eval import is needed.
func tryFoldBinary(op ast.BinOp, left, right ast.Expr, sp ast.Span) (ast.Expr, bool) {
	ll, ok1 := asLiteral(left)
	rl, ok2 := asLiteral(right)
	if !ok1 || !ok2 {
		return nil, false
	}
	lv := literalToValue(ll)
	rv := literalToValue(rl)

	switch op {
	case ast.Eq:
		return ast.NewLiteral(ast.BoolLiteral(value.Equal(lv, rv)), sp), true
	case ast.Ne:
		return ast.NewLiteral(ast.BoolLiteral(!value.Equal(lv, rv)), sp), true
	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		cmp, ok := value.Compare(lv, rv)
		if !ok {
			return nil, false
		}
		var b bool
		switch op {
		case ast.Lt:
			b = cmp < 0
		case ast.Le:
			b = cmp <= 0
		case ast.Gt:
			b = cmp > 0
		case ast.Ge:
			b = cmp >= 0
		}
		return ast.NewLiteral(ast.BoolLiteral(b), sp), true
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return foldArith(op, lv, rv, sp)
	}
	return nil, false
}

var foldArithOps = map[ast.BinOp]value.ArithOp{
	ast.Add: value.OpAdd,
	ast.Sub: value.OpSub,
	ast.Mul: value.OpMul,
	ast.Div: value.OpDiv,
	ast.Mod: value.OpMod,
}

// foldArith delegates to value.Arith — the same checked-arithmetic
// implementation every evaluation tier uses — so folding can never bake in
// a result the evaluator itself wouldn't have produced. A division by
// zero or an overflowing op declines to fold (returns false) and lets the
// evaluator raise DivisionByZero/Overflow at runtime instead.
func foldArith(op ast.BinOp, lv, rv value.Value, sp ast.Span) (ast.Expr, bool) {
	result, err := value.Arith(foldArithOps[op], lv, rv)
	if err != nil {
		return nil, false
	}
	if i, ok := result.AsInt(); ok {
		return ast.NewLiteral(ast.IntLiteral(i), sp), true
	}
	if f, ok := result.AsFloat(); ok {
		return ast.NewLiteral(ast.FloatLiteral(f), sp), true
	}
	return nil, false
}

// tryFoldCall folds a call to a pure, registered builtin when every
// argument is a constant — dead-argument elimination's counterpart:
// arguments that survive folding but are never used by the folded result
// are simply dropped along with the whole call node.
func (o *Optimizer) tryFoldCall(name string, args []ast.Expr, sp ast.Span) (ast.Expr, bool) {
	d, ok := o.reg.Lookup(name)
	if !ok || !d.Pure {
		return nil, false
	}
	values := make([]value.Value, len(args))
	for i, a := range args {
		lit, ok := asLiteral(a)
		if !ok {
			return nil, false
		}
		values[i] = literalToValue(lit)
	}
	result, err := o.reg.Call(name, values)
	if err != nil {
		return nil, false // let the evaluator raise the real error at runtime
	}
	lit, ok := valueToLiteral(result)
	if !ok {
		return nil, false
	}
	return ast.NewLiteral(lit, sp), true
}
