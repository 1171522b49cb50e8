// Package vm implements the register-based bytecode virtual machine that
// forms spec.md §4.5's bytecode tier. Grounded on the teacher's
// pkg/vm/vm.go stack machine (Opcode byte constants grouped by category,
// bytecode-header-with-magic-bytes framing, bounded execution loop) but
// departs from its stack discipline to a register discipline per spec.md's
// mandate for fused "superinstructions" (e.g. FieldEqConst) that a pure
// stack machine cannot express as a single opcode without intermediate
// pushes.
package vm

// Opcode identifies a single register-machine instruction. Grouped by
// category in hex, mirroring the teacher's own grouping convention
// (loads 0x01-0x04, arithmetic 0x10s, comparison 0x20s, logical 0x30s,
// jumps 0x40s, call/index/member 0x50s, superinstructions 0x70s,
// return/halt 0xF0/0xFF).
type Opcode byte

const (
	OpLoadConst Opcode = 0x01 // Rd, constIdx(u16)
	OpLoadField Opcode = 0x02 // Rd, constIdx(u16) -> field path string in consts
	OpLoadVar   Opcode = 0x03 // Rd, constIdx(u16) -> variable name string in consts
	OpMove      Opcode = 0x04 // Rd, Rs

	OpAdd Opcode = 0x10 // Rd, Ra, Rb
	OpSub Opcode = 0x11
	OpMul Opcode = 0x12
	OpDiv Opcode = 0x13
	OpMod Opcode = 0x14
	OpNeg Opcode = 0x15 // Rd, Ra

	OpEq Opcode = 0x20 // Rd, Ra, Rb
	OpNe Opcode = 0x21
	OpLt Opcode = 0x22
	OpLe Opcode = 0x23
	OpGt Opcode = 0x24
	OpGe Opcode = 0x25

	OpNot Opcode = 0x30 // Rd, Ra
	OpAnd Opcode = 0x31 // Rd, Ra, Rb (non-short-circuiting; short-circuit forms use jumps below)
	OpOr  Opcode = 0x32

	OpJump        Opcode = 0x40 // offset(i16)
	OpJumpIfFalse Opcode = 0x41 // Ra, offset(i16)
	OpJumpIfTrue  Opcode = 0x42 // Ra, offset(i16)

	OpCall  Opcode = 0x50 // Rd, constIdx(u16) function name, argc(u8), then argc register bytes
	OpIndex Opcode = 0x51 // Rd, Ra (array), Rb (index)
	OpMember Opcode = 0x52 // Rd, Ra (object), constIdx(u16) member name

	// Superinstructions: spec.md §4.5 fuses common shapes into one opcode
	// so the VM's dispatch loop does one comparison instead of three
	// (load-field, load-const, compare).
	OpFieldEqConst Opcode = 0x70 // Rd, fieldConstIdx(u16), valueConstIdx(u16)
	OpFieldGtConst Opcode = 0x71 // Rd, fieldConstIdx(u16), valueConstIdx(u16)

	OpReturn Opcode = 0xF0 // Ra
	OpHalt   Opcode = 0xFF
)

func (op Opcode) String() string {
	switch op {
	case OpLoadConst:
		return "LoadConst"
	case OpLoadField:
		return "LoadField"
	case OpLoadVar:
		return "LoadVar"
	case OpMove:
		return "Move"
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	case OpDiv:
		return "Div"
	case OpMod:
		return "Mod"
	case OpNeg:
		return "Neg"
	case OpEq:
		return "Eq"
	case OpNe:
		return "Ne"
	case OpLt:
		return "Lt"
	case OpLe:
		return "Le"
	case OpGt:
		return "Gt"
	case OpGe:
		return "Ge"
	case OpNot:
		return "Not"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	case OpJump:
		return "Jump"
	case OpJumpIfFalse:
		return "JumpIfFalse"
	case OpJumpIfTrue:
		return "JumpIfTrue"
	case OpCall:
		return "Call"
	case OpIndex:
		return "Index"
	case OpMember:
		return "Member"
	case OpFieldEqConst:
		return "FieldEqConst"
	case OpFieldGtConst:
		return "FieldGtConst"
	case OpReturn:
		return "Return"
	case OpHalt:
		return "Halt"
	default:
		return "UNKNOWN"
	}
}

// MaxRegisters bounds a single compiled function's register file
// (spec.md §4.5, I5).
const MaxRegisters = 256

// MaxConsts bounds a single compiled function's constant pool
// (spec.md §4.5, I5).
const MaxConsts = 4096

// Magic identifies a serialized bytecode blob, mirroring the teacher's
// bytecode-header-with-magic-bytes convention.
var Magic = [4]byte{'O', 'R', 'B', 'C'}
