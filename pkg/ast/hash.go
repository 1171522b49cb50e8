package ast

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// StructuralHash computes a content hash over e's shape and literal values,
// ignoring Span (two expressions parsed from different source offsets but
// otherwise identical must hash the same — spec.md §3, I3). Used as the
// structural_hash component of a cache key in pkg/cache.
//
// Grounded on the teacher's use of cespare/xxhash/v2 for request-key hashing
// (pkg/cache/cache.go), generalized here into a recursive tree walk.
func StructuralHash(e Expr) uint64 {
	d := xxhash.New()
	writeExpr(d, e)
	return d.Sum64()
}

func writeExpr(d *xxhash.Digest, e Expr) {
	var buf [8]byte
	writeTag := func(tag byte) { d.Write([]byte{tag}) }
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	writeStr := func(s string) {
		writeU64(uint64(len(s)))
		d.Write([]byte(s))
	}

	switch n := e.(type) {
	case *LiteralExpr:
		writeTag(1)
		writeTag(byte(n.Value.Kind))
		switch n.Value.Kind {
		case LitBool:
			if n.Value.B {
				writeTag(1)
			} else {
				writeTag(0)
			}
		case LitInt:
			writeU64(uint64(n.Value.I))
		case LitFloat:
			writeU64(math.Float64bits(n.Value.F))
		case LitStr:
			writeStr(n.Value.S)
		}
	case *FieldExpr:
		writeTag(2)
		writeStr(n.Path)
	case *VariableExpr:
		writeTag(3)
		writeStr(n.Name)
	case *UnaryExpr:
		writeTag(4)
		writeTag(byte(n.Op))
		writeExpr(d, n.Expr)
	case *BinaryExpr:
		writeTag(5)
		writeTag(byte(n.Op))
		writeExpr(d, n.Left)
		writeExpr(d, n.Right)
	case *CallExpr:
		writeTag(6)
		writeStr(n.Name)
		writeU64(uint64(len(n.Args)))
		for _, a := range n.Args {
			writeExpr(d, a)
		}
	case *IndexExpr:
		writeTag(7)
		writeExpr(d, n.Array)
		writeExpr(d, n.Index)
	case *MemberExpr:
		writeTag(8)
		writeExpr(d, n.Object)
		writeStr(n.Name)
	case *IfExpr:
		writeTag(9)
		writeExpr(d, n.Cond)
		writeExpr(d, n.Then)
		writeExpr(d, n.Else)
	default:
		writeTag(0)
	}
}
