package value

import "math"

// JITResultTag discriminates JITResult's payload.
type JITResultTag uint8

const (
	JITNull JITResultTag = iota
	JITBool
	JITInt
	JITFloat
	JITStr
	JITError
)

// JITResult is the schema-JIT tier's calling convention (spec.md §3, §4.6):
// a fixed-size struct a compiled closure returns in place of an allocated
// Value. Bits packs an Int64/Float64/Bool payload as raw bits (Float via
// math.Float64bits, Bool as 0/1) so the numeric/boolean fast path never
// allocates; Str is only populated when Tag is JITStr, since a Go string
// header can't be folded into Bits without an unsafe cast the GC can't
// track through a plain struct field. ErrorCode is meaningful only when
// Tag is JITError; a non-error JITResult carries no message, matching the
// wire ABI's fixed error_code byte rather than a heap-allocated string.
type JITResult struct {
	Bits      uint64
	Str       string
	Tag       JITResultTag
	ErrorCode uint8
}

// ToJITResult packs v into the calling convention's tagged-union shape.
func ToJITResult(v Value) JITResult {
	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		if b {
			return JITResult{Tag: JITBool, Bits: 1}
		}
		return JITResult{Tag: JITBool, Bits: 0}
	case KindInt:
		i, _ := v.AsInt()
		return JITResult{Tag: JITInt, Bits: uint64(i)}
	case KindFloat:
		f, _ := v.AsFloat()
		return JITResult{Tag: JITFloat, Bits: math.Float64bits(f)}
	case KindStr:
		s, _ := v.AsStr()
		return JITResult{Tag: JITStr, Str: s}
	default:
		// Arrays/objects/null never reach a compiled closure's return path:
		// the JIT's eligibility gate (pkg/jit) restricts compiled
		// expressions to the numeric/boolean/string-constant surface.
		return JITResult{Tag: JITNull}
	}
}

// JITErrorResult packs a tier error code into the calling convention.
func JITErrorResult(code uint8) JITResult {
	return JITResult{Tag: JITError, ErrorCode: code}
}

// FromJITResult unpacks r back into a Value — the translation spec.md
// §4.6's calling-convention section assigns to the caller, never to the
// compiled closure itself.
func FromJITResult(r JITResult) Value {
	switch r.Tag {
	case JITBool:
		return Bool(r.Bits != 0)
	case JITInt:
		return Int(int64(r.Bits))
	case JITFloat:
		return Float(math.Float64frombits(r.Bits))
	case JITStr:
		return Str(r.Str)
	default:
		return Null
	}
}
