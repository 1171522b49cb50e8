package value

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// FieldType enumerates the statically-typed kinds a schema field can take,
// per spec.md §3 (TypedContext).
type FieldType uint8

const (
	FieldInt64 FieldType = iota
	FieldFloat64
	FieldBool
	FieldStr
	FieldSubObject
)

func (t FieldType) String() string {
	switch t {
	case FieldInt64:
		return "int64"
	case FieldFloat64:
		return "float64"
	case FieldBool:
		return "bool"
	case FieldStr:
		return "string"
	case FieldSubObject:
		return "subobject"
	default:
		return "unknown"
	}
}

// FieldSchema describes one field of a MessageSchema: its declared type, its
// byte offset into the flat TypedContext backing buffer, and whether it may
// be null (guarded by a bit in the TypedContext's null-bitmap).
type FieldSchema struct {
	Name     string
	Type     FieldType
	Offset   int
	Nullable bool
	Sub      *MessageSchema // set iff Type == FieldSubObject
}

// MessageSchema is an ordered list of typed fields bound once at compile
// time; field access in the JIT resolves through it with no hashmap lookup.
type MessageSchema struct {
	Fields []FieldSchema
	bySize map[string]int
}

// NewMessageSchema builds a schema and assigns byte offsets for each field
// in declaration order, packing Int64/Float64 as 8 bytes, Bool as 1 byte,
// Str as a (ptr,len) pair (16 bytes on a 64-bit platform), and SubObject
// recursively by its own size.
func NewMessageSchema(fields []FieldSchema) *MessageSchema {
	offset := 0
	out := make([]FieldSchema, len(fields))
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		f.Offset = offset
		offset += fieldSize(f)
		out[i] = f
		index[f.Name] = i
	}
	return &MessageSchema{Fields: out, bySize: index}
}

func fieldSize(f FieldSchema) int {
	switch f.Type {
	case FieldBool:
		return 1
	case FieldStr:
		return 16
	case FieldSubObject:
		if f.Sub == nil {
			return 0
		}
		size := 0
		for _, sf := range f.Sub.Fields {
			size += fieldSize(sf)
		}
		return size
	default:
		return 8
	}
}

// ResolvedField is the compile-time handle a JIT-eligible Field(path)
// resolves to: a direct offset + type, with no runtime name lookup.
type ResolvedField struct {
	Offset   int
	Type     FieldType
	Nullable bool
}

// Resolve finds a top-level field by name. Dotted sub-object paths are
// resolved one segment at a time by the caller (compiler/jit), since each
// segment needs its own Sub schema to continue.
func (s *MessageSchema) Resolve(name string) (ResolvedField, bool) {
	i, ok := s.bySize[name]
	if !ok {
		return ResolvedField{}, false
	}
	f := s.Fields[i]
	return ResolvedField{Offset: f.Offset, Type: f.Type, Nullable: f.Nullable}, true
}

// Field returns the declared FieldSchema for name, including its Sub schema
// if it is a SubObject (used to keep walking a dotted path).
func (s *MessageSchema) Field(name string) (FieldSchema, bool) {
	i, ok := s.bySize[name]
	if !ok {
		return FieldSchema{}, false
	}
	return s.Fields[i], true
}

// Fingerprint hashes (field_name,type,offset) tuples in declaration order
// plus an ABI version, per spec.md §4.6 ("Guards"). Collisions between
// genuinely different schemas would violate I4; xxhash is used for cache
// keys throughout (see pkg/ast for the equivalent structural hash), so the
// schema fingerprint reuses the same library rather than a bespoke accumulator.
func (s *MessageSchema) Fingerprint(abiVersion uint32) uint64 {
	h := xxhash.New()
	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], abiVersion)
	h.Write(scratch[:4])
	var walk func(*MessageSchema)
	walk = func(ms *MessageSchema) {
		for _, f := range ms.Fields {
			h.Write([]byte(f.Name))
			h.Write([]byte{0}) // separator so "ab","c" can't collide with "a","bc"
			h.Write([]byte{byte(f.Type)})
			binary.LittleEndian.PutUint64(scratch[:], uint64(f.Offset))
			h.Write(scratch[:])
			if f.Nullable {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
			if f.Type == FieldSubObject && f.Sub != nil {
				walk(f.Sub)
			}
		}
	}
	walk(s)
	return h.Sum64()
}

// TypedContext is a flat, schema-bound view over a fact, used by the JIT.
// Field reads are direct memory loads at pre-computed offsets.
type TypedContext struct {
	Schema *MessageSchema
	Buf    []byte
	Null   []bool // parallel null-bitmap, indexed the same as Schema.Fields (flattened)
}

// NewTypedContext allocates a TypedContext sized for schema.
func NewTypedContext(schema *MessageSchema) *TypedContext {
	size := 0
	for _, f := range schema.Fields {
		size += fieldSize(f)
	}
	return &TypedContext{
		Schema: schema,
		Buf:    make([]byte, size),
		Null:   make([]bool, len(schema.Fields)),
	}
}

// SetInt64 writes an Int64 field at its resolved offset.
func (tc *TypedContext) SetInt64(f ResolvedField, v int64) {
	putUint64(tc.Buf[f.Offset:], uint64(v))
}

// SetFloat64 writes a Float64 field at its resolved offset.
func (tc *TypedContext) SetFloat64(f ResolvedField, v float64) {
	putUint64(tc.Buf[f.Offset:], math.Float64bits(v))
}

// SetBool writes a Bool field at its resolved offset.
func (tc *TypedContext) SetBool(f ResolvedField, v bool) {
	if v {
		tc.Buf[f.Offset] = 1
	} else {
		tc.Buf[f.Offset] = 0
	}
}

func (tc *TypedContext) Int64At(offset int) int64 {
	return int64(uint64FromBuf(tc.Buf[offset:]))
}

func (tc *TypedContext) Float64At(offset int) float64 {
	return math.Float64frombits(uint64FromBuf(tc.Buf[offset:]))
}

func (tc *TypedContext) BoolAt(offset int) bool {
	return tc.Buf[offset] != 0
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func uint64FromBuf(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// FromContext populates a TypedContext from an untyped Context + Value
// according to the schema, returning an error if a declared field is
// present but mismatched in type (a schema violation, not a JIT concern).
func (tc *TypedContext) FromContext(c *Context) error {
	root := c.Data()
	fields, ok := root.AsObject()
	if !ok {
		return fmt.Errorf("typed context: root fact is not an object")
	}
	for i, f := range tc.Schema.Fields {
		raw, present := fields[f.Name]
		if !present || raw.IsNull() {
			tc.Null[i] = true
			continue
		}
		switch f.Type {
		case FieldInt64:
			n, ok := raw.AsInt()
			if !ok {
				return fmt.Errorf("typed context: field %q expected int64", f.Name)
			}
			tc.SetInt64(ResolvedField{Offset: f.Offset, Type: f.Type}, n)
		case FieldFloat64:
			fl, ok := raw.AsFloat()
			if !ok {
				if n, ok := raw.AsInt(); ok {
					fl = float64(n)
				} else {
					return fmt.Errorf("typed context: field %q expected float64", f.Name)
				}
			}
			tc.SetFloat64(ResolvedField{Offset: f.Offset, Type: f.Type}, fl)
		case FieldBool:
			b, ok := raw.AsBool()
			if !ok {
				return fmt.Errorf("typed context: field %q expected bool", f.Name)
			}
			tc.SetBool(ResolvedField{Offset: f.Offset, Type: f.Type}, b)
		}
	}
	return nil
}
