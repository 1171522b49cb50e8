package ast

import "testing"

func TestStructuralHashIgnoresSpan(t *testing.T) {
	e1 := NewBinary(Add, NewField("a", Span{Start: 0, End: 1}), NewLiteral(IntLiteral(1), Span{Start: 3, End: 4}), Span{Start: 0, End: 4})
	e2 := NewBinary(Add, NewField("a", Span{Start: 100, End: 101}), NewLiteral(IntLiteral(1), Span{Start: 300, End: 400}), Span{Start: 50, End: 90})

	if StructuralHash(e1) != StructuralHash(e2) {
		t.Fatal("structural hash must ignore span, only shape and literals matter")
	}
}

func TestStructuralHashSensitiveToShape(t *testing.T) {
	base := NewBinary(Add, NewField("a", Span{}), NewLiteral(IntLiteral(1), Span{}), Span{})
	diffOp := NewBinary(Sub, NewField("a", Span{}), NewLiteral(IntLiteral(1), Span{}), Span{})
	diffLit := NewBinary(Add, NewField("a", Span{}), NewLiteral(IntLiteral(2), Span{}), Span{})
	diffField := NewBinary(Add, NewField("b", Span{}), NewLiteral(IntLiteral(1), Span{}), Span{})

	h := StructuralHash(base)
	if h == StructuralHash(diffOp) {
		t.Fatal("differing operator must change hash")
	}
	if h == StructuralHash(diffLit) {
		t.Fatal("differing literal must change hash")
	}
	if h == StructuralHash(diffField) {
		t.Fatal("differing field path must change hash")
	}
}

func TestStructuralHashStableAcrossCalls(t *testing.T) {
	build := func() Expr {
		return NewCall("sum", []Expr{NewField("a", Span{}), NewField("b", Span{})}, Span{})
	}
	if StructuralHash(build()) != StructuralHash(build()) {
		t.Fatal("hash must be deterministic across separately-built equal trees")
	}
}
