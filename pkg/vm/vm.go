package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

// ErrorKind mirrors pkg/eval's taxonomy so the bytecode tier's failures are
// comparable against the tree tier's in differential tests (spec.md §8, P1).
type ErrorKind int

const (
	ErrMissingField ErrorKind = iota
	ErrTypeMismatch
	ErrDivisionByZero
	ErrUnknownFunction
	ErrIndexOutOfRange
	ErrNotIndexable
	ErrBadBytecode
	ErrStepLimitExceeded
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
	case ErrBadBytecode:
		return "BadBytecode"
	case ErrStepLimitExceeded:
		return "StepLimitExceeded"
	case ErrOverflow:
		return "Overflow"
	default:
		return "VMError"
	}
}

// Error is the VM's error type (spec.md §7's EvalError, realized for this tier).
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func newErr(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// maxSteps bounds a single Run call's instruction count. Expressions never
// loop (spec.md §1 Non-goals) so a well-formed program can't approach this;
// it exists purely as a defensive backstop against a malformed or
// maliciously crafted bytecode blob looping via Jump, mirroring the
// teacher's own bounded step execution in its stack VM.
const maxSteps = 1_000_000

// VM executes a compiled Program against a value.Context, calling out to a
// registry.Registry for function calls. One VM may run many programs
// sequentially; it holds no per-program state between Run calls.
type VM struct {
	Registry *registry.Registry
}

// New creates a VM bound to reg.
func New(reg *registry.Registry) *VM {
	return &VM{Registry: reg}
}

// Run executes p.Code against ctx and returns the value produced by the
// program's OpReturn instruction.
func (vm *VM) Run(p *Program, ctx *value.Context) (value.Value, *Error) {
	var regs [MaxRegisters]value.Value
	pc := 0
	steps := 0

	for {
		steps++
		if steps > maxSteps {
			return value.Null, newErr(ErrStepLimitExceeded, "exceeded %d instructions", maxSteps)
		}
		if pc >= len(p.Code) {
			return value.Null, newErr(ErrBadBytecode, "ran off the end of the instruction stream without a Return")
		}
		op := Opcode(p.Code[pc])
		pc++

		switch op {
		case OpLoadConst:
			dst := p.Code[pc]
			idx := binary.BigEndian.Uint16(p.Code[pc+1:])
			pc += 3
			regs[dst] = p.Consts[idx]

		case OpLoadField:
			dst := p.Code[pc]
			idx := binary.BigEndian.Uint16(p.Code[pc+1:])
			pc += 3
			v, ok := ctx.Resolve(p.Strs[idx])
			if !ok {
				dv, resolved := ctx.MissingFieldResolution()
				if !resolved {
					return value.Null, newErr(ErrMissingField, "field %q is not present in context", p.Strs[idx])
				}
				v = dv
			}
			regs[dst] = v

		case OpLoadVar:
			dst := p.Code[pc]
			idx := binary.BigEndian.Uint16(p.Code[pc+1:])
			pc += 3
			v, ok := ctx.Variable(p.Strs[idx])
			if !ok {
				return value.Null, newErr(ErrMissingField, "variable %q is not bound", p.Strs[idx])
			}
			regs[dst] = v

		case OpMove:
			dst, src := p.Code[pc], p.Code[pc+1]
			pc += 2
			regs[dst] = regs[src]

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			dst, a, b := p.Code[pc], p.Code[pc+1], p.Code[pc+2]
			pc += 3
			res, err := value.Arith(arithOpFor(op), regs[a], regs[b])
			if err != nil {
				return value.Null, arithErr(err, op, regs[a], regs[b])
			}
			regs[dst] = res

		case OpNeg:
			dst, a := p.Code[pc], p.Code[pc+1]
			pc += 2
			if i, ok := regs[a].AsInt(); ok {
				regs[dst] = value.Int(-i)
			} else if f, ok := regs[a].AsFloat(); ok {
				regs[dst] = value.Float(-f)
			} else {
				return value.Null, newErr(ErrTypeMismatch, "unary - requires a numeric operand, got %s", regs[a].Kind())
			}

		case OpEq, OpNe:
			dst, a, b := p.Code[pc], p.Code[pc+1], p.Code[pc+2]
			pc += 3
			eq := value.Equal(regs[a], regs[b])
			if op == OpNe {
				eq = !eq
			}
			regs[dst] = value.Bool(eq)

		case OpLt, OpLe, OpGt, OpGe:
			dst, a, b := p.Code[pc], p.Code[pc+1], p.Code[pc+2]
			pc += 3
			cmp, ok := value.Compare(regs[a], regs[b])
			if !ok {
				return value.Null, newErr(ErrTypeMismatch, "%s is not defined between %s and %s", op, regs[a].Kind(), regs[b].Kind())
			}
			var res bool
			switch op {
			case OpLt:
				res = cmp < 0
			case OpLe:
				res = cmp <= 0
			case OpGt:
				res = cmp > 0
			case OpGe:
				res = cmp >= 0
			}
			regs[dst] = value.Bool(res)

		case OpNot:
			dst, a := p.Code[pc], p.Code[pc+1]
			pc += 2
			b, ok := regs[a].AsBool()
			if !ok {
				return value.Null, newErr(ErrTypeMismatch, "! requires a bool operand, got %s", regs[a].Kind())
			}
			regs[dst] = value.Bool(!b)

		case OpAnd, OpOr:
			dst, a, b := p.Code[pc], p.Code[pc+1], p.Code[pc+2]
			pc += 3
			ab, ok1 := regs[a].AsBool()
			bb, ok2 := regs[b].AsBool()
			if !ok1 || !ok2 {
				return value.Null, newErr(ErrTypeMismatch, "%s requires bool operands", op)
			}
			if op == OpAnd {
				regs[dst] = value.Bool(ab && bb)
			} else {
				regs[dst] = value.Bool(ab || bb)
			}

		case OpJump:
			offset := int16(binary.BigEndian.Uint16(p.Code[pc:]))
			pc += 2
			pc += int(offset)

		case OpJumpIfFalse, OpJumpIfTrue:
			reg := p.Code[pc]
			offset := int16(binary.BigEndian.Uint16(p.Code[pc+1:]))
			pc += 3
			b, ok := regs[reg].AsBool()
			if !ok {
				return value.Null, newErr(ErrTypeMismatch, "jump condition requires bool, got %s", regs[reg].Kind())
			}
			if (op == OpJumpIfFalse && !b) || (op == OpJumpIfTrue && b) {
				pc += int(offset)
			}

		case OpCall:
			dst := p.Code[pc]
			nameIdx := binary.BigEndian.Uint16(p.Code[pc+1:])
			argc := int(p.Code[pc+3])
			pc += 4
			args := make([]value.Value, argc)
			for i := 0; i < argc; i++ {
				args[i] = regs[p.Code[pc]]
				pc++
			}
			result, err := vm.Registry.Call(p.Strs[nameIdx], args)
			if err != nil {
				return value.Null, newErr(ErrUnknownFunction, "%v", err)
			}
			regs[dst] = result

		case OpIndex:
			dst, a, b := p.Code[pc], p.Code[pc+1], p.Code[pc+2]
			pc += 3
			elems, ok := regs[a].AsArray()
			if !ok {
				return value.Null, newErr(ErrNotIndexable, "value of kind %s is not indexable", regs[a].Kind())
			}
			idx, ok := regs[b].AsInt()
			if !ok {
				return value.Null, newErr(ErrTypeMismatch, "array index must be an int, got %s", regs[b].Kind())
			}
			if idx < 0 || int(idx) >= len(elems) {
				return value.Null, newErr(ErrIndexOutOfRange, "index %d out of range for array of length %d", idx, len(elems))
			}
			regs[dst] = elems[idx]

		case OpMember:
			dst, a := p.Code[pc], p.Code[pc+1]
			idx := binary.BigEndian.Uint16(p.Code[pc+2:])
			pc += 4
			fields, ok := regs[a].AsObject()
			if !ok {
				return value.Null, newErr(ErrNotIndexable, "value of kind %s has no members", regs[a].Kind())
			}
			v, ok := fields[p.Strs[idx]]
			if !ok {
				return value.Null, newErr(ErrMissingField, "member %q not present on object", p.Strs[idx])
			}
			regs[dst] = v

		case OpFieldEqConst, OpFieldGtConst:
			dst := p.Code[pc]
			fieldIdx := binary.BigEndian.Uint16(p.Code[pc+1:])
			valIdx := binary.BigEndian.Uint16(p.Code[pc+3:])
			pc += 5
			fv, ok := ctx.Resolve(p.Strs[fieldIdx])
			if !ok {
				dv, resolved := ctx.MissingFieldResolution()
				if !resolved {
					return value.Null, newErr(ErrMissingField, "field %q is not present in context", p.Strs[fieldIdx])
				}
				fv = dv
			}
			cv := p.Consts[valIdx]
			if op == OpFieldEqConst {
				regs[dst] = value.Bool(value.Equal(fv, cv))
			} else {
				cmp, ok := value.Compare(fv, cv)
				if !ok {
					return value.Null, newErr(ErrTypeMismatch, "> is not defined between %s and %s", fv.Kind(), cv.Kind())
				}
				regs[dst] = value.Bool(cmp > 0)
			}

		case OpReturn:
			return regs[p.Code[pc]], nil

		case OpHalt:
			return value.Null, newErr(ErrBadBytecode, "halted without returning a value")

		default:
			return value.Null, newErr(ErrBadBytecode, "unknown opcode 0x%02x at pc=%d", byte(op), pc-1)
		}
	}
}

func arithOpFor(op Opcode) value.ArithOp {
	switch op {
	case OpAdd:
		return value.OpAdd
	case OpSub:
		return value.OpSub
	case OpMul:
		return value.OpMul
	case OpDiv:
		return value.OpDiv
	default:
		return value.OpMod
	}
}

func arithErr(err error, op Opcode, a, b value.Value) *Error {
	switch err {
	case value.ErrDivByZero:
		return newErr(ErrDivisionByZero, "%s by zero", op)
	case value.ErrOverflow:
		return newErr(ErrOverflow, "%s overflows a 64-bit integer", op)
	default:
		return newErr(ErrTypeMismatch, "%s requires numeric operands, got %s and %s", op, a.Kind(), b.Kind())
	}
}
