package value

import (
	"math"
	"testing"
)

func TestArithOverflowDetection(t *testing.T) {
	cases := []struct {
		name string
		op   ArithOp
		a, b int64
	}{
		{"add max+1", OpAdd, math.MaxInt64, 1},
		{"add min-1", OpAdd, math.MinInt64, -1},
		{"sub min-1", OpSub, math.MinInt64, 1},
		{"sub max-(-1)", OpSub, math.MaxInt64, -1},
		{"mul max*2", OpMul, math.MaxInt64, 2},
		{"mul min*-1", OpMul, math.MinInt64, -1},
		{"div min/-1", OpDiv, math.MinInt64, -1},
	}
	for _, c := range cases {
		_, err := Arith(c.op, Int(c.a), Int(c.b))
		if err != ErrOverflow {
			t.Errorf("%s: expected ErrOverflow, got %v", c.name, err)
		}
	}
}

func TestArithNoFalsePositiveOverflow(t *testing.T) {
	cases := []struct {
		name string
		op   ArithOp
		a, b int64
		want int64
	}{
		{"add", OpAdd, 2, 3, 5},
		{"sub", OpSub, 5, 3, 2},
		{"mul", OpMul, 4, 5, 20},
		{"mul by zero", OpMul, 0, math.MaxInt64, 0},
		{"div", OpDiv, 10, 3, 3},
		{"mod", OpMod, 10, 3, 1},
		{"sub at max", OpSub, math.MaxInt64, 0, math.MaxInt64},
	}
	for _, c := range cases {
		got, err := Arith(c.op, Int(c.a), Int(c.b))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		i, ok := got.AsInt()
		if !ok || i != c.want {
			t.Fatalf("%s: got %v, want %d", c.name, got, c.want)
		}
	}
}

func TestArithDivByZeroStillReported(t *testing.T) {
	if _, err := Arith(OpDiv, Int(1), Int(0)); err != ErrDivByZero {
		t.Fatalf("expected ErrDivByZero, got %v", err)
	}
	if _, err := Arith(OpMod, Int(1), Int(0)); err != ErrDivByZero {
		t.Fatalf("expected ErrDivByZero, got %v", err)
	}
}
