// Package config loads the engine's recognized options (spec.md §6) from
// YAML. Grounded on the teacher's struct-tagged config pattern (see
// pkg/openapi's `yaml:"..."` tags) and its Config/DefaultConfig shape (see
// pkg/websocket/config.go), expanded from the teacher's single
// DefaultPort constant (pkg/config/defaults.go) to the full option table
// spec.md §6 names.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldMissingBehavior controls how a field lookup that finds nothing
// behaves (spec.md §6, §7).
type FieldMissingBehavior string

const (
	FieldMissingLenient FieldMissingBehavior = "lenient"
	FieldMissingStrict  FieldMissingBehavior = "strict"
	FieldMissingDefault FieldMissingBehavior = "default"
)

// Config holds every recognized option from spec.md §6's configuration
// table.
type Config struct {
	CompileThreshold     uint64               `yaml:"compile_threshold"`
	JITThreshold         uint64               `yaml:"jit_threshold"`
	L1Capacity           int                  `yaml:"l1_capacity"`
	L2Dir                string               `yaml:"l2_dir"`
	BackgroundWorkers    int                  `yaml:"background_workers"`
	FieldMissingBehavior FieldMissingBehavior `yaml:"field_missing_behavior"`
	// FieldMissingDefaultValue is substituted for an absent field when
	// FieldMissingBehavior is "default". Decoded as a plain YAML scalar or
	// mapping and converted with value.FromJSON at engine construction time.
	FieldMissingDefaultValue interface{} `yaml:"field_missing_default_value,omitempty"`
	MaxRegisters             int         `yaml:"max_registers"`
	MaxConsts                int         `yaml:"max_consts"`
	RedisAddr                string      `yaml:"redis_addr,omitempty"`
}

// Default returns the engine's documented defaults (spec.md §4.7/§6).
func Default() *Config {
	return &Config{
		CompileThreshold:     32,
		JITThreshold:         1024,
		L1Capacity:           10000,
		L2Dir:                "", // absent -> L2 disabled
		BackgroundWorkers:    1,
		FieldMissingBehavior: FieldMissingLenient,
		MaxRegisters:         256,
		MaxConsts:            4096,
	}
}

// Load reads a YAML config file, starting from Default() and overriding
// only the keys present in path — an absent file is not an error, callers
// get Default() back unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the option table's documented bounds (spec.md §4.5's I5
// for max_registers/max_consts, and that thresholds don't invert tiering).
func (c *Config) Validate() error {
	if c.MaxRegisters <= 0 || c.MaxRegisters > 256 {
		return fmt.Errorf("config: max_registers must be in (0, 256], got %d", c.MaxRegisters)
	}
	if c.MaxConsts <= 0 || c.MaxConsts > 4096 {
		return fmt.Errorf("config: max_consts must be in (0, 4096], got %d", c.MaxConsts)
	}
	if c.CompileThreshold == 0 {
		return fmt.Errorf("config: compile_threshold must be positive")
	}
	if c.JITThreshold < c.CompileThreshold {
		return fmt.Errorf("config: jit_threshold (%d) must be >= compile_threshold (%d)", c.JITThreshold, c.CompileThreshold)
	}
	if c.BackgroundWorkers <= 0 {
		return fmt.Errorf("config: background_workers must be positive")
	}
	switch c.FieldMissingBehavior {
	case FieldMissingLenient, FieldMissingStrict, FieldMissingDefault, "":
	default:
		return fmt.Errorf("config: unrecognized field_missing_behavior %q", c.FieldMissingBehavior)
	}
	return nil
}
