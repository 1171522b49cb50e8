package ast

import "testing"

func TestPrintLiteral(t *testing.T) {
	cases := []struct {
		lit  Literal
		want string
	}{
		{NullLiteral(), "null"},
		{BoolLiteral(true), "true"},
		{IntLiteral(42), "42"},
		{FloatLiteral(1.5), "1.5"},
		{StrLiteral("hi"), `"hi"`},
	}
	for _, c := range cases {
		got := Print(NewLiteral(c.lit, Span{}))
		if got != c.want {
			t.Errorf("Print(%v) = %q, want %q", c.lit, got, c.want)
		}
	}
}

func TestPrintBinaryPrecedence(t *testing.T) {
	// (a + b) * c must keep its parens; a + b * c must not.
	a := NewField("a", Span{})
	b := NewField("b", Span{})
	c := NewField("c", Span{})

	mulOfAdd := NewBinary(Mul, NewBinary(Add, a, b, Span{}), c, Span{})
	if got, want := Print(mulOfAdd), "(a + b) * c"; got != want {
		t.Errorf("Print(mulOfAdd) = %q, want %q", got, want)
	}

	addOfMul := NewBinary(Add, a, NewBinary(Mul, b, c, Span{}), Span{})
	if got, want := Print(addOfMul), "a + b * c"; got != want {
		t.Errorf("Print(addOfMul) = %q, want %q", got, want)
	}
}

func TestPrintCallIndexMemberIf(t *testing.T) {
	items := NewField("items", Span{})
	idx := NewIndex(items, NewLiteral(IntLiteral(0), Span{}), Span{})
	mem := NewMember(idx, "amount", Span{})
	if got, want := Print(mem), "items[0].amount"; got != want {
		t.Errorf("Print(mem) = %q, want %q", got, want)
	}

	call := NewCall("sum", []Expr{NewField("a", Span{}), NewField("b", Span{})}, Span{})
	if got, want := Print(call), "sum(a, b)"; got != want {
		t.Errorf("Print(call) = %q, want %q", got, want)
	}

	ifExpr := NewIf(
		NewField("cond", Span{}),
		NewLiteral(IntLiteral(1), Span{}),
		NewLiteral(IntLiteral(2), Span{}),
		Span{},
	)
	if got, want := Print(ifExpr), "if cond then 1 else 2"; got != want {
		t.Errorf("Print(ifExpr) = %q, want %q", got, want)
	}
}
