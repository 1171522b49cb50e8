package value

import "testing"

func TestEqualNumericCoercion(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{Int(3), Float(3.0), true},
		{Float(3.0), Int(3), true},
		{Int(3), Float(3.5), false},
		{Int(1 << 54), Float(float64(int64(1) << 54)), false}, // outside exact-representability window
		{Str("a"), Str("a"), true},
		{Bool(true), Bool(false), false},
		{Null, Null, true},
		{Int(1), Str("1"), false},
	}
	for _, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("Equal(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareNumericAndString(t *testing.T) {
	if cmp, ok := Compare(Int(1), Float(2.0)); !ok || cmp >= 0 {
		t.Fatalf("expected 1 < 2.0, got %d ok=%v", cmp, ok)
	}
	if cmp, ok := Compare(Str("a"), Str("b")); !ok || cmp >= 0 {
		t.Fatalf("expected a < b, got %d ok=%v", cmp, ok)
	}
	if _, ok := Compare(Bool(true), Bool(false)); ok {
		t.Fatal("comparing bools should be undefined")
	}
}

func TestArrayInlineVsSlice(t *testing.T) {
	small := Array(Int(1), Int(2))
	elems, ok := small.AsArray()
	if !ok || len(elems) != 2 {
		t.Fatalf("inline array round-trip failed: %v", elems)
	}

	big := Array(Int(1), Int(2), Int(3), Int(4), Int(5))
	elems, ok = big.AsArray()
	if !ok || len(elems) != 5 {
		t.Fatalf("slice array round-trip failed: %v", elems)
	}
}

func TestObjectAndLen(t *testing.T) {
	obj := Object(map[string]Value{"a": Int(1)})
	fields, ok := obj.AsObject()
	if !ok || fields["a"].i != 1 {
		t.Fatalf("object round-trip failed")
	}
	if Str("hello").Len() != 5 {
		t.Fatalf("expected string length 5")
	}
	if Array(Int(1), Int(2), Int(3)).Len() != 3 {
		t.Fatalf("expected array length 3")
	}
	if Int(1).Len() != -1 {
		t.Fatalf("expected -1 for non-sized kind")
	}
}

func TestFromJSON(t *testing.T) {
	v := FromJSON(map[string]interface{}{
		"amount": float64(100),
		"name":   "gold",
		"flag":   true,
		"nested": []interface{}{float64(1), float64(2)},
	})
	obj, ok := v.AsObject()
	if !ok {
		t.Fatal("expected object")
	}
	if n, ok := obj["amount"].AsInt(); !ok || n != 100 {
		t.Fatalf("expected amount=100 (int), got %v", obj["amount"])
	}
	if s, ok := obj["name"].AsStr(); !ok || s != "gold" {
		t.Fatalf("expected name=gold")
	}
}
