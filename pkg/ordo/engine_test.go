package ordo

import (
	"path/filepath"
	"testing"

	"github.com/ordo-lang/ordo/pkg/config"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/profiler"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRegisters = 0
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected New to reject an invalid config")
	}
}

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	eng, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if eng.Config.CompileThreshold != config.Default().CompileThreshold {
		t.Fatalf("expected default thresholds, got %+v", eng.Config)
	}
}

func TestNewInitializesL2WhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.L2Dir = filepath.Join(t.TempDir(), "ordo_jit_cache")
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if eng.L2 == nil {
		t.Fatal("expected L2 to be initialized")
	}
	records, err := eng.L2.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected a fresh L2 directory to be empty, got %d records", len(records))
	}
}

func TestBytecodeTierReusesCachedProgram(t *testing.T) {
	eng := newTestEngine(t)
	e, err := parser.Parse("amount + 1")
	if err != nil {
		t.Fatal(err)
	}
	v1, err := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierBytecode})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if eng.L1.Stats().Sets != 1 {
		t.Fatalf("expected one program to be cached, got %d sets", eng.L1.Stats().Sets)
	}
	v2, err := eng.Evaluate(e, eng.NewContext(orderRoot()), TierPolicy{Pin: TierBytecode})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if eng.L1.Stats().Hits != 1 {
		t.Fatalf("expected the second call to hit the cached program, got %d hits", eng.L1.Stats().Hits)
	}
	if v1.Kind() != v2.Kind() {
		t.Fatalf("expected both calls to agree, got %v and %v", v1, v2)
	}
}

func TestNewContextAppliesFieldMissingBehavior(t *testing.T) {
	cfg := config.Default()
	cfg.FieldMissingBehavior = config.FieldMissingStrict
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := eng.NewContext(orderRoot())
	if _, ok := ctx.Resolve("does_not_exist"); ok {
		t.Fatal("expected missing field to resolve to no value")
	}
}

// A per-call TierPolicy.Thresholds override lets one caller promote
// earlier than the engine's configured defaults without disturbing the
// execution count the profiler tracks for every other caller.
func TestPerCallThresholdOverridePromotesEarlier(t *testing.T) {
	eng := newTestEngine(t) // default CompileThreshold=32
	e, err := parser.Parse("amount + 1")
	if err != nil {
		t.Fatal(err)
	}
	policy := TierPolicy{Pin: TierAuto, Thresholds: profiler.Thresholds{CompileThreshold: 1, JITThreshold: 1000}}
	if _, err := eng.Evaluate(e, eng.NewContext(orderRoot()), policy); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := eng.Evaluate(e, eng.NewContext(orderRoot()), policy); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if eng.L1.Stats().Sets != 1 {
		t.Fatalf("expected the override to promote to bytecode by the second call, got %d sets", eng.L1.Stats().Sets)
	}
}
