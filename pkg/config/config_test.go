package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != *Default() {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadOverridesOnlySpecifiedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordo.yaml")
	body := "compile_threshold: 8\nfield_missing_behavior: strict\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CompileThreshold != 8 {
		t.Fatalf("expected compile_threshold 8, got %d", cfg.CompileThreshold)
	}
	if cfg.FieldMissingBehavior != FieldMissingStrict {
		t.Fatalf("expected strict, got %v", cfg.FieldMissingBehavior)
	}
	// Untouched keys keep their defaults.
	if cfg.JITThreshold != Default().JITThreshold {
		t.Fatalf("expected jit_threshold to remain default, got %d", cfg.JITThreshold)
	}
	if cfg.L1Capacity != Default().L1Capacity {
		t.Fatalf("expected l1_capacity to remain default, got %d", cfg.L1Capacity)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := Default()
	cfg.CompileThreshold = 2000
	cfg.JITThreshold = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for jit_threshold < compile_threshold")
	}
}

func TestValidateRejectsOutOfRangeRegisters(t *testing.T) {
	cfg := Default()
	cfg.MaxRegisters = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max_registers")
	}
	cfg.MaxRegisters = 9999
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_registers exceeding 256")
	}
}

func TestValidateRejectsUnknownFieldMissingBehavior(t *testing.T) {
	cfg := Default()
	cfg.FieldMissingBehavior = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unrecognized field_missing_behavior")
	}
}

func TestValidateRejectsZeroBackgroundWorkers(t *testing.T) {
	cfg := Default()
	cfg.BackgroundWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero background_workers")
	}
}
