// Package compiler lowers an optimized ast.Expr tree into a vm.Program:
// spec.md §4.5's bytecode tier. Grounded on the teacher's pkg/compiler
// (Compiler struct holding constants/code/symbolTable, emit-as-you-walk
// style), departing from its stack-oriented emission (push operands, pop
// results) to register allocation since spec.md mandates register-machine
// superinstructions a stack machine can't express as one opcode.
package compiler

import (
	"encoding/binary"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
	"github.com/ordo-lang/ordo/pkg/vm"
)

// CompileErrorKind classifies a CompileError. TypeMismatch and
// UnsupportedForJIT are part of the shared reason taxonomy but are never
// produced by this package: this tier's Context is dynamically typed, so
// argument types other than a builtin's declared mask aren't knowable
// until a value.Context is supplied at Run time (that failure surfaces as
// an eval.ErrTypeMismatch/vm.ErrTypeMismatch instead); UnsupportedForJIT is
// specific to pkg/jit's schema-specialized compile path, which targets a
// different representation (closures, not bytecode) and reports its own
// compile-time failures directly.
type CompileErrorKind int

const (
	UnknownFunction CompileErrorKind = iota
	Arity
	TypeMismatch
	TooLarge
	UnsupportedForJIT

	// internalInvariant marks a CompileError produced by a default branch
	// of an exhaustive type switch over ast.Expr/ast.Literal/BinaryOp — it
	// is unreachable for any tree the parser and optimizer actually
	// produce, and exists only so a future new AST node can't silently
	// fall through to a zero Program.
	internalInvariant
)

func (k CompileErrorKind) String() string {
	switch k {
	case UnknownFunction:
		return "UnknownFunction"
	case Arity:
		return "Arity"
	case TypeMismatch:
		return "TypeMismatch"
	case TooLarge:
		return "TooLarge"
	case UnsupportedForJIT:
		return "UnsupportedForJIT"
	case internalInvariant:
		return "InternalInvariant"
	default:
		return "CompileError"
	}
}

// CompileError reports a failure to lower an expression, distinct from a
// runtime EvalError (spec.md §7): these are structural problems (unknown
// builtin, wrong arity, register or constant pool exhaustion) discovered
// at compile time rather than while evaluating a Context.
type CompileError struct {
	Kind   CompileErrorKind
	Reason string
}

func (e *CompileError) Error() string { return "compile error: " + e.Kind.String() + ": " + e.Reason }

// Compiler lowers one ast.Expr at a time into a fresh vm.Program. A
// Compiler instance is not safe for concurrent use; callers needing
// concurrent compilation should use one Compiler per goroutine (they are
// cheap to construct).
type Compiler struct {
	reg      *registry.Registry
	code     []byte
	consts   []value.Value
	strs     []string
	strIndex map[string]uint16
	nextReg  int
}

// Compile lowers e into a vm.Program. It fails if e calls an unregistered
// builtin or calls one with the wrong number of arguments (spec.md §4.4:
// "resolution failure at compile time is CompileError::UnknownFunction"),
// or if e would require more than vm.MaxRegisters temporaries (registers
// are numbered in order and never reused, so every temporary counts) or
// vm.MaxConsts distinct constants (spec.md §4.5, I5) — the latter bounds a
// single expression is vanishingly unlikely to approach in practice.
func Compile(e ast.Expr, reg *registry.Registry) (*vm.Program, error) {
	c := &Compiler{reg: reg, strIndex: make(map[string]uint16)}
	finalReg, err := c.compileExpr(e)
	if err != nil {
		return nil, err
	}
	c.emit(byte(vm.OpReturn), byte(finalReg))
	return &vm.Program{Code: c.code, Consts: c.consts, Strs: c.strs}, nil
}

func (c *Compiler) emit(bytes ...byte) {
	c.code = append(c.code, bytes...)
}

func (c *Compiler) emitU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	c.code = append(c.code, b[:]...)
}

func (c *Compiler) alloc() (byte, error) {
	if c.nextReg >= vm.MaxRegisters {
		return 0, &CompileError{Kind: TooLarge, Reason: "expression requires more registers than the compiler budget allows"}
	}
	r := byte(c.nextReg)
	c.nextReg++
	return r, nil
}

func (c *Compiler) addConst(v value.Value) (uint16, error) {
	if len(c.consts) >= vm.MaxConsts {
		return 0, &CompileError{Kind: TooLarge, Reason: "expression requires more constants than the compiler budget allows"}
	}
	c.consts = append(c.consts, v)
	return uint16(len(c.consts) - 1), nil
}

func (c *Compiler) addStr(s string) (uint16, error) {
	if idx, ok := c.strIndex[s]; ok {
		return idx, nil
	}
	if len(c.strs) >= vm.MaxConsts {
		return 0, &CompileError{Kind: TooLarge, Reason: "expression requires more string constants than the compiler budget allows"}
	}
	idx := uint16(len(c.strs))
	c.strs = append(c.strs, s)
	c.strIndex[s] = idx
	return idx, nil
}

// compileExpr lowers e and returns the register holding its result.
func (c *Compiler) compileExpr(e ast.Expr) (byte, error) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return c.compileLiteral(n.Value)

	case *ast.FieldExpr:
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		idx, err := c.addStr(n.Path)
		if err != nil {
			return 0, err
		}
		c.emit(byte(vm.OpLoadField), dst)
		c.emitU16(idx)
		return dst, nil

	case *ast.VariableExpr:
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		idx, err := c.addStr(n.Name)
		if err != nil {
			return 0, err
		}
		c.emit(byte(vm.OpLoadVar), dst)
		c.emitU16(idx)
		return dst, nil

	case *ast.UnaryExpr:
		return c.compileUnary(n)

	case *ast.BinaryExpr:
		return c.compileBinary(n)

	case *ast.CallExpr:
		return c.compileCall(n)

	case *ast.IndexExpr:
		arrReg, err := c.compileExpr(n.Array)
		if err != nil {
			return 0, err
		}
		idxReg, err := c.compileExpr(n.Index)
		if err != nil {
			return 0, err
		}
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		c.emit(byte(vm.OpIndex), dst, arrReg, idxReg)
		return dst, nil

	case *ast.MemberExpr:
		objReg, err := c.compileExpr(n.Object)
		if err != nil {
			return 0, err
		}
		dst, err := c.alloc()
		if err != nil {
			return 0, err
		}
		idx, err := c.addStr(n.Name)
		if err != nil {
			return 0, err
		}
		c.emit(byte(vm.OpMember), dst, objReg)
		c.emitU16(idx)
		return dst, nil

	case *ast.IfExpr:
		return c.compileIf(n)

	default:
		return 0, &CompileError{Kind: internalInvariant, Reason: "unsupported expression node"}
	}
}

func (c *Compiler) compileLiteral(lit ast.Literal) (byte, error) {
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
	}
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	idx, err := c.addConst(v)
	if err != nil {
		return 0, err
	}
	c.emit(byte(vm.OpLoadConst), dst)
	c.emitU16(idx)
	return dst, nil
}

func (c *Compiler) compileUnary(n *ast.UnaryExpr) (byte, error) {
	src, err := c.compileExpr(n.Expr)
	if err != nil {
		return 0, err
	}
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case ast.Not:
		c.emit(byte(vm.OpNot), dst, src)
	case ast.Neg:
		c.emit(byte(vm.OpNeg), dst, src)
	}
	return dst, nil
}

// compileBinary fuses a FieldExpr == literal / FieldExpr > literal shape
// into the corresponding superinstruction (spec.md §4.5) and otherwise
// emits the general three-register form.
func (c *Compiler) compileBinary(n *ast.BinaryExpr) (byte, error) {
	if field, ok := n.Left.(*ast.FieldExpr); ok {
		if lit, ok := n.Right.(*ast.LiteralExpr); ok {
			switch n.Op {
			case ast.Eq:
				return c.compileFieldConst(vm.OpFieldEqConst, field, lit)
			case ast.Gt:
				return c.compileFieldConst(vm.OpFieldGtConst, field, lit)
			}
		}
	}

	left, err := c.compileExpr(n.Left)
	if err != nil {
		return 0, err
	}
	right, err := c.compileExpr(n.Right)
	if err != nil {
		return 0, err
	}
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	op, ok := opcodeFor(n.Op)
	if !ok {
		return 0, &CompileError{Kind: internalInvariant, Reason: "unknown binary operator"}
	}
	c.emit(byte(op), dst, left, right)
	return dst, nil
}

func (c *Compiler) compileFieldConst(op vm.Opcode, field *ast.FieldExpr, lit *ast.LiteralExpr) (byte, error) {
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	fieldIdx, err := c.addStr(field.Path)
	if err != nil {
		return 0, err
	}
	v, err := literalValue(lit.Value)
	if err != nil {
		return 0, err
	}
	valIdx, err := c.addConst(v)
	if err != nil {
		return 0, err
	}
	c.emit(byte(op), dst)
	c.emitU16(fieldIdx)
	c.emitU16(valIdx)
	return dst, nil
}

func literalValue(lit ast.Literal) (value.Value, error) {
	switch lit.Kind {
	case ast.LitNull:
		return value.Null, nil
	case ast.LitBool:
		return value.Bool(lit.B), nil
	case ast.LitInt:
		return value.Int(lit.I), nil
	case ast.LitFloat:
		return value.Float(lit.F), nil
	case ast.LitStr:
		return value.Str(lit.S), nil
	default:
		return value.Null, &CompileError{Kind: internalInvariant, Reason: "unknown literal kind"}
	}
}

func opcodeFor(op ast.BinOp) (vm.Opcode, bool) {
	switch op {
	case ast.Add:
		return vm.OpAdd, true
	case ast.Sub:
		return vm.OpSub, true
	case ast.Mul:
		return vm.OpMul, true
	case ast.Div:
		return vm.OpDiv, true
	case ast.Mod:
		return vm.OpMod, true
	case ast.Eq:
		return vm.OpEq, true
	case ast.Ne:
		return vm.OpNe, true
	case ast.Lt:
		return vm.OpLt, true
	case ast.Le:
		return vm.OpLe, true
	case ast.Gt:
		return vm.OpGt, true
	case ast.Ge:
		return vm.OpGe, true
	case ast.And:
		return vm.OpAnd, true
	case ast.Or:
		return vm.OpOr, true
	default:
		return 0, false
	}
}

func (c *Compiler) compileCall(n *ast.CallExpr) (byte, error) {
	if c.reg != nil {
		d, ok := c.reg.Lookup(n.Name)
		if !ok {
			return 0, &CompileError{Kind: UnknownFunction, Reason: "unknown function \"" + n.Name + "\""}
		}
		if len(n.Args) < d.MinArity || (d.MaxArity >= 0 && len(n.Args) > d.MaxArity) {
			return 0, &CompileError{Kind: Arity, Reason: "\"" + n.Name + "\" called with the wrong number of arguments"}
		}
	}

	argRegs := make([]byte, len(n.Args))
	for i, a := range n.Args {
		r, err := c.compileExpr(a)
		if err != nil {
			return 0, err
		}
		argRegs[i] = r
	}
	if len(argRegs) > 255 {
		return 0, &CompileError{Kind: Arity, Reason: "call has more than 255 arguments"}
	}
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}
	nameIdx, err := c.addStr(n.Name)
	if err != nil {
		return 0, err
	}
	c.emit(byte(vm.OpCall), dst)
	c.emitU16(nameIdx)
	c.emit(byte(len(argRegs)))
	c.emit(argRegs...)
	return dst, nil
}

// compileIf emits a branch: condition, JumpIfFalse over the then-branch to
// an else-branch, then-branch, Jump past the else-branch, else-branch —
// both arms write into the same destination register so downstream code
// referencing the If's result reads one register regardless of which arm
// ran.
func (c *Compiler) compileIf(n *ast.IfExpr) (byte, error) {
	condReg, err := c.compileExpr(n.Cond)
	if err != nil {
		return 0, err
	}
	dst, err := c.alloc()
	if err != nil {
		return 0, err
	}

	jumpIfFalsePos := len(c.code)
	c.emit(byte(vm.OpJumpIfFalse), condReg, 0, 0) // patched below

	thenReg, err := c.compileExpr(n.Then)
	if err != nil {
		return 0, err
	}
	c.emit(byte(vm.OpMove), dst, thenReg)

	jumpPos := len(c.code)
	c.emit(byte(vm.OpJump), 0, 0) // patched below

	elseStart := len(c.code)
	c.patchOffset(jumpIfFalsePos+2, elseStart-(jumpIfFalsePos+4))

	elseReg, err := c.compileExpr(n.Else)
	if err != nil {
		return 0, err
	}
	c.emit(byte(vm.OpMove), dst, elseReg)

	end := len(c.code)
	c.patchOffset(jumpPos+1, end-(jumpPos+3))

	return dst, nil
}

func (c *Compiler) patchOffset(at int, offset int) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(int16(offset)))
	c.code[at] = b[0]
	c.code[at+1] = b[1]
}
