package ordo

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/config"
	"github.com/ordo-lang/ordo/pkg/optimizer"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

// TestOverflowAgreesAcrossTiers is an overflow-specific instance of P1
// (spec.md §8): every tier must raise the same Overflow error for an
// expression that overflows a 64-bit integer, rather than one tier
// wrapping silently while another rejects it.
func TestOverflowAgreesAcrossTiers(t *testing.T) {
	cases := []string{
		"9223372036854775807 + 1",
		"-9223372036854775808 - 1",
		"9223372036854775807 * 2",
		"-9223372036854775808 / -1",
	}
	schema := orderSchema()
	for _, src := range cases {
		e, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}

		eng := newTestEngine(t)
		_, treeErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierTree})
		_, bcErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierBytecode})
		_, jitErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierJIT, Schema: schema})

		if treeErr == nil {
			t.Fatalf("%q: expected tree tier to raise Overflow, got success", src)
		}
		if bcErr == nil {
			t.Fatalf("%q: expected bytecode tier to raise Overflow, got success", src)
		}
		// The JIT tier falls back to the tree evaluator transparently on any
		// compile/run failure (spec.md §7), so it must also fail here —
		// never silently succeed with a wrapped result.
		if jitErr == nil {
			t.Fatalf("%q: expected jit tier to raise Overflow (via fallback), got success", src)
		}
	}
}

// TestOptimizerDoesNotFoldOverflowingConstants confirms the optimizer's
// constant-folding rewrite (spec.md §4.2, rule 1) leaves an overflowing
// binary expression unfolded rather than folding it into a wrapped (or
// invalid) literal.
func TestOptimizerDoesNotFoldOverflowingConstants(t *testing.T) {
	e, err := parser.Parse("9223372036854775807 + 1")
	if err != nil {
		t.Fatal(err)
	}
	opt := optimizer.New(registry.NewRegistry())
	folded, _ := opt.Optimize(e)

	eng := newTestEngine(t)
	_, evalErr := eng.Evaluate(folded, eng.NewContext(orderRoot()), TierPolicy{Pin: TierTree})
	if evalErr == nil {
		t.Fatalf("expected the optimized tree to still raise Overflow when evaluated, got success — the optimizer folded an overflowing expression")
	}
}

// TestFieldMissingLenient is spec.md §6's default: an absent field resolves
// to Null rather than raising an error.
func TestFieldMissingLenient(t *testing.T) {
	cfg := config.Default()
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := parser.Parse("missing_field")
	if err != nil {
		t.Fatal(err)
	}
	v, evalErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierTree})
	if evalErr != nil {
		t.Fatalf("expected lenient behavior to succeed, got %v", evalErr)
	}
	if !v.IsNull() {
		t.Fatalf("expected Null for a missing field under lenient behavior, got %v", v)
	}
}

// TestFieldMissingStrict is spec.md §6's opposite pole: an absent field
// raises MissingField instead of resolving to Null, across every tier.
func TestFieldMissingStrict(t *testing.T) {
	cfg := config.Default()
	cfg.FieldMissingBehavior = config.FieldMissingStrict
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	schema := orderSchema()
	e, err := parser.Parse("missing_field")
	if err != nil {
		t.Fatal(err)
	}

	_, treeErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierTree})
	if treeErr == nil {
		t.Fatal("expected tree tier to raise MissingField under strict behavior")
	}
	_, bcErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierBytecode})
	if bcErr == nil {
		t.Fatal("expected bytecode tier to raise MissingField under strict behavior")
	}
	// missing_field isn't in the schema at all, so the JIT tier rejects it
	// at compile time and falls back to the tree evaluator, which must
	// still raise MissingField under strict behavior.
	_, jitErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierJIT, Schema: schema})
	if jitErr == nil {
		t.Fatal("expected jit tier (via fallback) to raise MissingField under strict behavior")
	}
}

// TestFieldMissingDefault is spec.md §6's third pole: an absent field
// resolves to the configured default value instead of Null or an error.
func TestFieldMissingDefault(t *testing.T) {
	cfg := config.Default()
	cfg.FieldMissingBehavior = config.FieldMissingDefault
	cfg.FieldMissingDefaultValue = "fallback"
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := parser.Parse("missing_field")
	if err != nil {
		t.Fatal(err)
	}
	v, evalErr := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierTree})
	if evalErr != nil {
		t.Fatalf("expected default behavior to succeed, got %v", evalErr)
	}
	s, ok := v.AsStr()
	if !ok || s != "fallback" {
		t.Fatalf("expected the configured default value %q, got %v", "fallback", v)
	}
}

// TestFieldMissingOnSchemaTypedNullField confirms a schema-present but
// absent-in-the-fact field (null in the TypedContext) obeys the same
// field_missing_behavior as an untyped Resolve miss, keeping the JIT tier's
// typed-offset path consistent with the tree/bytecode tiers (spec.md §6,
// §8 P1).
func TestFieldMissingOnSchemaTypedNullField(t *testing.T) {
	cfg := config.Default()
	cfg.FieldMissingBehavior = config.FieldMissingDefault
	cfg.FieldMissingDefaultValue = int64(-1)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	schema := orderSchema()
	root := value.Object(map[string]value.Value{
		"score":  value.Float(1.0),
		"active": value.Bool(true),
		// "amount" deliberately absent: null in the TypedContext.
	})
	e, err := parser.Parse("amount")
	if err != nil {
		t.Fatal(err)
	}
	v, evalErr := eng.Evaluate(e, eng.NewContext(root), TierPolicy{Pin: TierJIT, Schema: schema})
	if evalErr != nil {
		t.Fatalf("expected default behavior to succeed at the jit tier, got %v", evalErr)
	}
	i, ok := v.AsInt()
	if !ok || i != -1 {
		t.Fatalf("expected the configured default value -1, got %v", v)
	}
}
