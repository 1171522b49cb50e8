// Package jit realizes spec.md §4.6's schema-specialized compilation tier.
// Grounded on the teacher's pkg/jit/jit.go (JITCompiler/CompilationUnit,
// tiered compile-and-cache-by-name, RecordExecution feeding recompilation
// decisions) but departing from it in the one place the teacher's own
// design doesn't fit: the teacher's "JIT" still emits its own bytecode
// dialect executed by an interpreter, which is not a JIT in the sense
// spec.md §4.6 means. Go gives no safe in-process native codegen path, so
// here "compile" means building a tree of Go closures specialized against
// one value.MessageSchema — field reads become direct offset loads into a
// value.TypedContext instead of a name lookup, and the closure tree itself
// is the compiled artifact (no bytecode, no interpreter loop). A compiled
// closure's return type is value.JITResult, the tagged-union calling
// convention spec.md §3/§4.6 names, not a (value.Value, error) pair — the
// same way a real JIT's entry point returns a fixed-size struct rather
// than allocating. A compiled closure is only valid for the exact schema
// it was built against; Run checks the schema fingerprint on every call
// and returns ErrSchemaMismatch rather than silently reading through a
// stale offset layout (spec.md §4.6, "Guards").
package jit

import (
	"fmt"
	"strings"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/compiler"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

// SchemaABIVersion is folded into every schema fingerprint so a future
// change to TypedContext's packing rules invalidates every previously
// compiled closure rather than silently misreading it. Exported so callers
// computing a schema fingerprint to probe jit.Cache use the same ABI
// version this package compiles against.
const SchemaABIVersion = 1

const schemaABIVersion = SchemaABIVersion

// ErrorKind mirrors pkg/eval's and pkg/vm's taxonomies (spec.md §8, P1) plus
// one JIT-specific kind for a schema that no longer matches what a closure
// was compiled against. Its values double as value.JITResult.ErrorCode, so
// the numeric order here is part of the calling convention, not incidental.
type ErrorKind int

const (
	ErrMissingField ErrorKind = iota
	ErrTypeMismatch
	ErrDivisionByZero
	ErrUnknownFunction
	ErrIndexOutOfRange
	ErrNotIndexable
	ErrSchemaMismatch
	ErrOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMissingField:
		return "MissingField"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrDivisionByZero:
		return "DivisionByZero"
	case ErrUnknownFunction:
		return "UnknownFunction"
	case ErrIndexOutOfRange:
		return "IndexOutOfRange"
	case ErrNotIndexable:
		return "NotIndexable"
	case ErrSchemaMismatch:
		return "SchemaMismatch"
	case ErrOverflow:
		return "Overflow"
	default:
		return "JITError"
	}
}

// Error is this tier's error type. A SchemaMismatch is never a correctness
// bug in the compiled expression itself — it means the caller handed Run a
// TypedContext built from a schema that drifted since compilation, and must
// recompile (or fall back to the bytecode/tree tier) rather than trust the
// closure's baked-in offsets.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func newErr(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ok builds a successful JITResult from a Value.
func ok(v value.Value) value.JITResult { return value.ToJITResult(v) }

// fail builds an error JITResult carrying kind as its error_code. The
// dynamic detail (a field name, an operator) lives only in the *Error the
// Run boundary reconstructs — the calling convention itself carries a bare
// code, same as the wire ABI spec.md §4.6 describes.
func fail(kind ErrorKind) value.JITResult { return value.JITErrorResult(uint8(kind)) }

// closure is the compiled form of one expression node, returning the
// calling-convention struct directly rather than a (Value, error) pair.
// ctx is always supplied alongside tc so a closure can fall back to the
// untyped Context for pieces of state no schema covers (field-missing
// default values); it is unused by closures that can never fail that way.
type closure func(tc *value.TypedContext, ctx *value.Context) value.JITResult

// CompiledExpr is one expression specialized against one schema.
type CompiledExpr struct {
	Schema      *value.MessageSchema
	Fingerprint uint64
	run         closure
}

// Run executes the compiled closure against tc/ctx, translating its
// value.JITResult back into the (value.Value, *Error) shape the rest of
// the engine consumes (spec.md §4.6: "the caller translates JITResult back
// to Value"). It first re-checks tc.Schema's fingerprint against the one
// this closure was compiled against — a cheap uint64 comparison — and
// refuses to run on mismatch rather than read through offsets that may no
// longer mean what they did at compile time.
func (c *CompiledExpr) Run(tc *value.TypedContext, ctx *value.Context) (value.Value, *Error) {
	if tc.Schema.Fingerprint(schemaABIVersion) != c.Fingerprint {
		return value.Null, newErr(ErrSchemaMismatch, "typed context schema does not match the schema this expression was compiled against")
	}
	r := c.run(tc, ctx)
	if r.Tag == value.JITError {
		kind := ErrorKind(r.ErrorCode)
		return value.Null, newErr(kind, "%s", kind)
	}
	return value.FromJITResult(r), nil
}

// Evaluator runs previously compiled closures. It holds no state of its own;
// it exists so callers can depend on a stable "compile here, evaluate there"
// shape even though CompiledExpr.Run is perfectly usable directly.
type Evaluator struct{}

// NewEvaluator returns an Evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Eval runs cf against tc/ctx.
func (ev *Evaluator) Eval(cf *CompiledExpr, tc *value.TypedContext, ctx *value.Context) (value.Value, *Error) {
	return cf.Run(tc, ctx)
}

// Compiler builds CompiledExprs. Like pkg/compiler.Compiler it is cheap to
// construct and not meant to be shared across concurrent compilations; the
// resulting CompiledExpr, once built, is immutable and safe for concurrent
// Run calls.
type Compiler struct {
	Registry *registry.Registry
}

// New creates a Compiler bound to reg.
func New(reg *registry.Registry) *Compiler {
	return &Compiler{Registry: reg}
}

// Compile specializes e against schema, producing a CompiledExpr whose Run
// method performs no name lookups for any field schema resolves. An
// expression that fails the eligibility test of spec.md §4.6 — a
// Field(path) that isn't a statically-typed schema offset, a Call to a
// function without the JIT-eligible flag, a dynamic member/array access, or
// a variable reference — fails to compile with *compiler.CompileError{Kind:
// UnsupportedForJIT}, the shared reason taxonomy pkg/compiler's bytecode
// tier also carries. pkg/ordo's Engine.Evaluate answers such a failure by
// re-executing via the tree evaluator and recording it with
// profiler.RecordJITFailure; once the profiler blocklists the expression
// (after three failures), it runs at the bytecode tier from then on.
func (c *Compiler) Compile(e ast.Expr, schema *value.MessageSchema) (*CompiledExpr, error) {
	run, err := c.compileExpr(e, schema)
	if err != nil {
		return nil, err
	}
	return &CompiledExpr{
		Schema:      schema,
		Fingerprint: schema.Fingerprint(schemaABIVersion),
		run:         run,
	}, nil
}

func unsupported(format string, args ...interface{}) error {
	return &compiler.CompileError{Kind: compiler.UnsupportedForJIT, Reason: fmt.Sprintf(format, args...)}
}

func (c *Compiler) compileExpr(e ast.Expr, schema *value.MessageSchema) (closure, error) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return c.compileLiteral(n.Value)

	case *ast.FieldExpr:
		return c.compileField(n, schema)

	case *ast.VariableExpr:
		// A variable holds whatever the most recent SetVariable call bound
		// it to — no schema covers it, so its type can't be known at
		// compile time (spec.md §4.6: "no operand reaches a polymorphic
		// type").
		return nil, unsupported("variable %q has no static schema type", n.Name)

	case *ast.UnaryExpr:
		return c.compileUnary(n, schema)

	case *ast.BinaryExpr:
		return c.compileBinary(n, schema)

	case *ast.CallExpr:
		return c.compileCall(n, schema)

	case *ast.IndexExpr:
		return nil, unsupported("array indexing has no static schema offset")

	case *ast.MemberExpr:
		return nil, unsupported("dynamic member access has no static schema offset")

	case *ast.IfExpr:
		return c.compileIf(n, schema)

	default:
		return nil, unsupported("unsupported expression node %T", e)
	}
}

func (c *Compiler) compileLiteral(lit ast.Literal) (closure, error) {
	var v value.Value
	switch lit.Kind {
	case ast.LitNull:
		v = value.Null
	case ast.LitBool:
		v = value.Bool(lit.B)
	case ast.LitInt:
		v = value.Int(lit.I)
	case ast.LitFloat:
		v = value.Float(lit.F)
	case ast.LitStr:
		v = value.Str(lit.S)
	default:
		return nil, fmt.Errorf("jit: unknown literal kind")
	}
	return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
		return ok(v)
	}, nil
}

// compileField is where the schema specialization lives: a non-dotted
// field name present in schema's top level and typed Int64/Float64/Bool
// compiles to a direct offset read with no name lookup at all. Everything
// else — a dotted path, a Str field, a sub-object, or a name absent from
// the schema entirely — has no statically-typed offset and is therefore
// not JIT-eligible (spec.md §4.6); Compile rejects it with
// UnsupportedForJIT instead of silently falling back to a name lookup.
func (c *Compiler) compileField(n *ast.FieldExpr, schema *value.MessageSchema) (closure, error) {
	path := n.Path
	if strings.Contains(path, ".") {
		return nil, unsupported("field path %q is not a statically-typed schema offset", path)
	}
	idx, rf, found := findTopField(schema, path)
	if !found {
		return nil, unsupported("field %q is not present in the bound schema", path)
	}
	switch rf.Type {
	case value.FieldInt64:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			if tc.Null[idx] {
				if dv, resolved := ctx.MissingFieldResolution(); resolved {
					return ok(dv)
				}
				return fail(ErrMissingField)
			}
			return ok(value.Int(tc.Int64At(rf.Offset)))
		}, nil
	case value.FieldFloat64:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			if tc.Null[idx] {
				if dv, resolved := ctx.MissingFieldResolution(); resolved {
					return ok(dv)
				}
				return fail(ErrMissingField)
			}
			return ok(value.Float(tc.Float64At(rf.Offset)))
		}, nil
	case value.FieldBool:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			if tc.Null[idx] {
				if dv, resolved := ctx.MissingFieldResolution(); resolved {
					return ok(dv)
				}
				return fail(ErrMissingField)
			}
			return ok(value.Bool(tc.BoolAt(rf.Offset)))
		}, nil
	default:
		return nil, unsupported("field %q has type %s, which has no statically-typed offset representation", path, rf.Type)
	}
}

func findTopField(schema *value.MessageSchema, name string) (int, value.ResolvedField, bool) {
	for i, f := range schema.Fields {
		if f.Name == name {
			return i, value.ResolvedField{Offset: f.Offset, Type: f.Type, Nullable: f.Nullable}, true
		}
	}
	return 0, value.ResolvedField{}, false
}

func (c *Compiler) compileUnary(n *ast.UnaryExpr, schema *value.MessageSchema) (closure, error) {
	inner, err := c.compileExpr(n.Expr, schema)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.Not:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			r := inner(tc, ctx)
			if r.Tag == value.JITError {
				return r
			}
			b, bok := value.FromJITResult(r).AsBool()
			if !bok {
				return fail(ErrTypeMismatch)
			}
			return ok(value.Bool(!b))
		}, nil
	case ast.Neg:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			r := inner(tc, ctx)
			if r.Tag == value.JITError {
				return r
			}
			v := value.FromJITResult(r)
			if i, iok := v.AsInt(); iok {
				return ok(value.Int(-i))
			}
			if f, fok := v.AsFloat(); fok {
				return ok(value.Float(-f))
			}
			return fail(ErrTypeMismatch)
		}, nil
	default:
		return nil, fmt.Errorf("jit: unknown unary operator")
	}
}

var arithOps = map[ast.BinOp]value.ArithOp{
	ast.Add: value.OpAdd, ast.Sub: value.OpSub, ast.Mul: value.OpMul,
	ast.Div: value.OpDiv, ast.Mod: value.OpMod,
}

// compileBinary mirrors pkg/eval's evalBinary exactly (the explicit
// short-circuit blocks for And/Or are a correctness requirement, not a
// speed trick — see pkg/eval's evalBinary for why) so the JIT tier never
// diverges from the tree tier's success/failure on the same input.
func (c *Compiler) compileBinary(n *ast.BinaryExpr, schema *value.MessageSchema) (closure, error) {
	left, err := c.compileExpr(n.Left, schema)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(n.Right, schema)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.And:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			lr := left(tc, ctx)
			if lr.Tag == value.JITError {
				return lr
			}
			lb, lok := value.FromJITResult(lr).AsBool()
			if !lok {
				return fail(ErrTypeMismatch)
			}
			if !lb {
				return ok(value.Bool(false))
			}
			rr := right(tc, ctx)
			if rr.Tag == value.JITError {
				return rr
			}
			rb, rok := value.FromJITResult(rr).AsBool()
			if !rok {
				return fail(ErrTypeMismatch)
			}
			return ok(value.Bool(rb))
		}, nil

	case ast.Or:
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			lr := left(tc, ctx)
			if lr.Tag == value.JITError {
				return lr
			}
			lb, lok := value.FromJITResult(lr).AsBool()
			if !lok {
				return fail(ErrTypeMismatch)
			}
			if lb {
				return ok(value.Bool(true))
			}
			rr := right(tc, ctx)
			if rr.Tag == value.JITError {
				return rr
			}
			rb, rok := value.FromJITResult(rr).AsBool()
			if !rok {
				return fail(ErrTypeMismatch)
			}
			return ok(value.Bool(rb))
		}, nil

	case ast.Eq, ast.Ne:
		want := n.Op == ast.Eq
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			lr := left(tc, ctx)
			if lr.Tag == value.JITError {
				return lr
			}
			rr := right(tc, ctx)
			if rr.Tag == value.JITError {
				return rr
			}
			eq := value.Equal(value.FromJITResult(lr), value.FromJITResult(rr))
			return ok(value.Bool(eq == want))
		}, nil

	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		op := n.Op
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			lr := left(tc, ctx)
			if lr.Tag == value.JITError {
				return lr
			}
			rr := right(tc, ctx)
			if rr.Tag == value.JITError {
				return rr
			}
			lv := value.FromJITResult(lr)
			rv := value.FromJITResult(rr)
			cmp, cok := value.Compare(lv, rv)
			if !cok {
				return fail(ErrTypeMismatch)
			}
			var res bool
			switch op {
			case ast.Lt:
				res = cmp < 0
			case ast.Le:
				res = cmp <= 0
			case ast.Gt:
				res = cmp > 0
			default:
				res = cmp >= 0
			}
			return ok(value.Bool(res))
		}, nil

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		arithOp := arithOps[n.Op]
		return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
			lr := left(tc, ctx)
			if lr.Tag == value.JITError {
				return lr
			}
			rr := right(tc, ctx)
			if rr.Tag == value.JITError {
				return rr
			}
			res, aerr := value.Arith(arithOp, value.FromJITResult(lr), value.FromJITResult(rr))
			if aerr != nil {
				switch aerr {
				case value.ErrDivByZero:
					return fail(ErrDivisionByZero)
				case value.ErrOverflow:
					return fail(ErrOverflow)
				default:
					return fail(ErrTypeMismatch)
				}
			}
			return ok(res)
		}, nil

	default:
		return nil, fmt.Errorf("jit: unknown binary operator")
	}
}

// compileCall only accepts calls to registry builtins flagged JITEligible
// (spec.md §4.6: "every Call targets a function whose JIT flag is set");
// anything else — including an unregistered name — fails to compile rather
// than deferring the question to a runtime registry lookup.
func (c *Compiler) compileCall(n *ast.CallExpr, schema *value.MessageSchema) (closure, error) {
	d, found := c.Registry.Lookup(n.Name)
	if !found || !d.JITEligible {
		return nil, unsupported("function %q is not JIT-eligible", n.Name)
	}
	argClosures := make([]closure, len(n.Args))
	for i, a := range n.Args {
		ac, err := c.compileExpr(a, schema)
		if err != nil {
			return nil, err
		}
		argClosures[i] = ac
	}
	name := n.Name
	reg := c.Registry
	return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
		args := make([]value.Value, len(argClosures))
		for i, ac := range argClosures {
			r := ac(tc, ctx)
			if r.Tag == value.JITError {
				return r
			}
			args[i] = value.FromJITResult(r)
		}
		result, err := reg.Call(name, args)
		if err != nil {
			return fail(ErrUnknownFunction)
		}
		return ok(result)
	}, nil
}

func (c *Compiler) compileIf(n *ast.IfExpr, schema *value.MessageSchema) (closure, error) {
	cond, err := c.compileExpr(n.Cond, schema)
	if err != nil {
		return nil, err
	}
	thenC, err := c.compileExpr(n.Then, schema)
	if err != nil {
		return nil, err
	}
	elseC, err := c.compileExpr(n.Else, schema)
	if err != nil {
		return nil, err
	}
	return func(tc *value.TypedContext, ctx *value.Context) value.JITResult {
		cr := cond(tc, ctx)
		if cr.Tag == value.JITError {
			return cr
		}
		b, bok := value.FromJITResult(cr).AsBool()
		if !bok {
			return fail(ErrTypeMismatch)
		}
		if b {
			return thenC(tc, ctx)
		}
		return elseC(tc, ctx)
	}, nil
}
