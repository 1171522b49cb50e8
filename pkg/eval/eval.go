// Package eval is the tree-walking evaluator: the reference/oracle tier of
// spec.md §4 against which the bytecode VM and schema JIT are differentially
// tested. Grounded on the teacher's pkg/interpreter/evaluator.go switch-on-
// node-type dispatch, narrowed to pkg/ast's expression nodes and rewired to
// return (value.Value, *EvalError) instead of (interface{}, error).
package eval

import (
	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

// Evaluator walks an ast.Expr tree against a value.Context, calling out to
// a registry.Registry for function calls.
type Evaluator struct {
	Registry *registry.Registry
}

// New creates an Evaluator bound to reg.
func New(reg *registry.Registry) *Evaluator {
	return &Evaluator{Registry: reg}
}

// Eval evaluates e against ctx.
func (ev *Evaluator) Eval(e ast.Expr, ctx *value.Context) (value.Value, *EvalError) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return evalLiteral(n.Value), nil
	case *ast.FieldExpr:
		v, ok := ctx.Resolve(n.Path)
		if !ok {
			if dv, resolved := ctx.MissingFieldResolution(); resolved {
				return dv, nil
			}
			return value.Null, newErr(ErrMissingField, "field %q is not present in context", n.Path)
		}
		return v, nil
	case *ast.VariableExpr:
		v, ok := ctx.Variable(n.Name)
		if !ok {
			return value.Null, newErr(ErrMissingField, "variable %q is not bound", n.Name)
		}
		return v, nil
	case *ast.UnaryExpr:
		return ev.evalUnary(n, ctx)
	case *ast.BinaryExpr:
		return ev.evalBinary(n, ctx)
	case *ast.CallExpr:
		return ev.evalCall(n, ctx)
	case *ast.IndexExpr:
		return ev.evalIndex(n, ctx)
	case *ast.MemberExpr:
		return ev.evalMember(n, ctx)
	case *ast.IfExpr:
		return ev.evalIf(n, ctx)
	default:
		return value.Null, newErr(ErrTypeMismatch, "unsupported expression node %T", e)
	}
}

func evalLiteral(lit ast.Literal) value.Value {
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

func (ev *Evaluator) evalUnary(n *ast.UnaryExpr, ctx *value.Context) (value.Value, *EvalError) {
	operand, err := ev.Eval(n.Expr, ctx)
	if err != nil {
		return value.Null, err
	}
	switch n.Op {
	case ast.Not:
		b, ok := operand.AsBool()
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "! requires a bool operand, got %s", operand.Kind())
		}
		return value.Bool(!b), nil
	case ast.Neg:
		if i, ok := operand.AsInt(); ok {
			return value.Int(-i), nil
		}
		if f, ok := operand.AsFloat(); ok {
			return value.Float(-f), nil
		}
		return value.Null, newErr(ErrTypeMismatch, "unary - requires a numeric operand, got %s", operand.Kind())
	default:
		return value.Null, newErr(ErrTypeMismatch, "unknown unary operator")
	}
}

func (ev *Evaluator) evalBinary(n *ast.BinaryExpr, ctx *value.Context) (value.Value, *EvalError) {
	// && and || short-circuit: the right operand must not be evaluated
	// (and any MissingField/TypeMismatch inside it must not surface) when
	// the left operand already determines the result (spec.md §4.2, I2).
	if n.Op == ast.And {
		left, err := ev.Eval(n.Left, ctx)
		if err != nil {
			return value.Null, err
		}
		lb, ok := left.AsBool()
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "&& requires bool operands, got %s", left.Kind())
		}
		if !lb {
			return value.Bool(false), nil
		}
		right, err := ev.Eval(n.Right, ctx)
		if err != nil {
			return value.Null, err
		}
		rb, ok := right.AsBool()
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "&& requires bool operands, got %s", right.Kind())
		}
		return value.Bool(rb), nil
	}
	if n.Op == ast.Or {
		left, err := ev.Eval(n.Left, ctx)
		if err != nil {
			return value.Null, err
		}
		lb, ok := left.AsBool()
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "|| requires bool operands, got %s", left.Kind())
		}
		if lb {
			return value.Bool(true), nil
		}
		right, err := ev.Eval(n.Right, ctx)
		if err != nil {
			return value.Null, err
		}
		rb, ok := right.AsBool()
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "|| requires bool operands, got %s", right.Kind())
		}
		return value.Bool(rb), nil
	}

	left, err := ev.Eval(n.Left, ctx)
	if err != nil {
		return value.Null, err
	}
	right, err := ev.Eval(n.Right, ctx)
	if err != nil {
		return value.Null, err
	}

	switch n.Op {
	case ast.Eq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.Ne:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		cmp, ok := value.Compare(left, right)
		if !ok {
			return value.Null, newErr(ErrTypeMismatch, "%s is not defined between %s and %s", n.Op, left.Kind(), right.Kind())
		}
		switch n.Op {
		case ast.Lt:
			return value.Bool(cmp < 0), nil
		case ast.Le:
			return value.Bool(cmp <= 0), nil
		case ast.Gt:
			return value.Bool(cmp > 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return arith(n.Op, left, right)
	default:
		return value.Null, newErr(ErrTypeMismatch, "unknown binary operator")
	}
}

var arithOps = map[ast.BinOp]value.ArithOp{
	ast.Add: value.OpAdd,
	ast.Sub: value.OpSub,
	ast.Mul: value.OpMul,
	ast.Div: value.OpDiv,
	ast.Mod: value.OpMod,
}

// arith delegates to value.Arith so every evaluation tier shares one
// arithmetic implementation (see pkg/value/arith.go).
func arith(op ast.BinOp, left, right value.Value) (value.Value, *EvalError) {
	result, err := value.Arith(arithOps[op], left, right)
	if err == nil {
		return result, nil
	}
	switch err {
	case value.ErrDivByZero:
		return value.Null, newErr(ErrDivisionByZero, "%s by zero", op)
	case value.ErrOverflow:
		return value.Null, newErr(ErrOverflow, "%s overflows a 64-bit integer", op)
	default:
		return value.Null, newErr(ErrTypeMismatch, "%s requires numeric operands, got %s and %s", op, left.Kind(), right.Kind())
	}
}

func (ev *Evaluator) evalCall(n *ast.CallExpr, ctx *value.Context) (value.Value, *EvalError) {
	args := make([]value.Value, len(n.Args))
	for i, argExpr := range n.Args {
		v, err := ev.Eval(argExpr, ctx)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}
	result, err := ev.Registry.Call(n.Name, args)
	if err != nil {
		return value.Null, newErr(ErrUnknownFunction, "%v", err)
	}
	return result, nil
}

func (ev *Evaluator) evalIndex(n *ast.IndexExpr, ctx *value.Context) (value.Value, *EvalError) {
	arr, err := ev.Eval(n.Array, ctx)
	if err != nil {
		return value.Null, err
	}
	idxVal, err := ev.Eval(n.Index, ctx)
	if err != nil {
		return value.Null, err
	}
	idx, ok := idxVal.AsInt()
	if !ok {
		return value.Null, newErr(ErrTypeMismatch, "array index must be an int, got %s", idxVal.Kind())
	}
	elems, ok := arr.AsArray()
	if !ok {
		return value.Null, newErr(ErrNotIndexable, "value of kind %s is not indexable", arr.Kind())
	}
	if idx < 0 || int(idx) >= len(elems) {
		return value.Null, newErr(ErrIndexOutOfRange, "index %d out of range for array of length %d", idx, len(elems))
	}
	return elems[idx], nil
}

func (ev *Evaluator) evalMember(n *ast.MemberExpr, ctx *value.Context) (value.Value, *EvalError) {
	obj, err := ev.Eval(n.Object, ctx)
	if err != nil {
		return value.Null, err
	}
	fields, ok := obj.AsObject()
	if !ok {
		return value.Null, newErr(ErrNotIndexable, "value of kind %s has no members", obj.Kind())
	}
	v, ok := fields[n.Name]
	if !ok {
		return value.Null, newErr(ErrMissingField, "member %q not present on object", n.Name)
	}
	return v, nil
}

func (ev *Evaluator) evalIf(n *ast.IfExpr, ctx *value.Context) (value.Value, *EvalError) {
	cond, err := ev.Eval(n.Cond, ctx)
	if err != nil {
		return value.Null, err
	}
	b, ok := cond.AsBool()
	if !ok {
		return value.Null, newErr(ErrTypeMismatch, "if condition must be bool, got %s", cond.Kind())
	}
	if b {
		return ev.Eval(n.Then, ctx)
	}
	return ev.Eval(n.Else, ctx)
}
