package value

import "testing"

func schemaForTest() *MessageSchema {
	return NewMessageSchema([]FieldSchema{
		{Name: "amount", Type: FieldInt64},
		{Name: "active", Type: FieldBool},
		{Name: "discount", Type: FieldFloat64, Nullable: true},
	})
}

func TestMessageSchemaOffsetsAndResolve(t *testing.T) {
	s := schemaForTest()

	amount, ok := s.Resolve("amount")
	if !ok || amount.Offset != 0 || amount.Type != FieldInt64 {
		t.Fatalf("unexpected amount field: %+v ok=%v", amount, ok)
	}
	active, ok := s.Resolve("active")
	if !ok || active.Offset != 8 {
		t.Fatalf("expected active offset 8, got %+v", active)
	}
	discount, ok := s.Resolve("discount")
	if !ok || discount.Offset != 9 || !discount.Nullable {
		t.Fatalf("expected discount offset 9 nullable, got %+v", discount)
	}
}

func TestTypedContextReadWrite(t *testing.T) {
	s := schemaForTest()
	tc := NewTypedContext(s)
	amount, _ := s.Resolve("amount")
	tc.SetInt64(amount, 42)
	if got := tc.Int64At(amount.Offset); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	active, _ := s.Resolve("active")
	tc.SetBool(active, true)
	if !tc.BoolAt(active.Offset) {
		t.Fatal("expected true")
	}
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	s1 := schemaForTest()
	s2 := schemaForTest()
	if s1.Fingerprint(1) != s2.Fingerprint(1) {
		t.Fatal("identical schemas must fingerprint identically")
	}
	if s1.Fingerprint(1) == s1.Fingerprint(2) {
		t.Fatal("differing ABI versions must change the fingerprint")
	}

	s3 := NewMessageSchema([]FieldSchema{
		{Name: "amount", Type: FieldFloat64}, // different type
		{Name: "active", Type: FieldBool},
		{Name: "discount", Type: FieldFloat64, Nullable: true},
	})
	if s1.Fingerprint(1) == s3.Fingerprint(1) {
		t.Fatal("differing field types must change the fingerprint")
	}
}

func TestFromContextPopulatesTypedContext(t *testing.T) {
	s := schemaForTest()
	root := Object(map[string]Value{
		"amount": Int(100),
		"active": Bool(true),
	})
	c := NewContext(root)
	tc := NewTypedContext(s)
	if err := tc.FromContext(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	amount, _ := s.Resolve("amount")
	if got := tc.Int64At(amount.Offset); got != 100 {
		t.Fatalf("expected amount=100, got %d", got)
	}
	discountIdx := 2
	if !tc.Null[discountIdx] {
		t.Fatal("expected discount to be marked null when absent")
	}
}
