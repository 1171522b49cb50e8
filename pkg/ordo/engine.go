// Package ordo is the orchestration facade tying the expression pipeline
// together: parse, optimize, evaluate at whichever tier the profiler
// recommends, and keep the bytecode/JIT caches warm across calls. Grounded
// on the teacher's top-level JITCompiler (pkg/jit/jit.go), which plays the
// same orchestrating role for its own tiered compiler.
package ordo

import (
	"fmt"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/cache"
	"github.com/ordo-lang/ordo/pkg/compiler"
	"github.com/ordo-lang/ordo/pkg/config"
	"github.com/ordo-lang/ordo/pkg/eval"
	"github.com/ordo-lang/ordo/pkg/jit"
	"github.com/ordo-lang/ordo/pkg/logging"
	"github.com/ordo-lang/ordo/pkg/optimizer"
	"github.com/ordo-lang/ordo/pkg/profiler"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
	"github.com/ordo-lang/ordo/pkg/vm"
)

// EngineVersion participates in every cache.Key so a binary upgrade that
// changes codegen semantics can never load an artifact compiled by a
// different build (spec.md I3).
const EngineVersion = "0.1.0"

// Tier names a specific evaluation strategy a caller can pin, or "auto" to
// let the profiler decide (spec.md §4.7).
type Tier int

const (
	TierAuto Tier = iota
	TierTree
	TierBytecode
	TierJIT
)

func (t Tier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierTree:
		return "tree"
	case TierBytecode:
		return "bytecode"
	case TierJIT:
		return "jit"
	default:
		return "unknown"
	}
}

// TierPolicy lets a caller pin a tier or override the profiler's default
// thresholds for one Evaluate call.
type TierPolicy struct {
	Pin        Tier
	Thresholds profiler.Thresholds
	// Schema, if set, enables JIT promotion for this call; without one the
	// engine never attempts the JIT tier regardless of Pin/thresholds,
	// since schema-specialized closures have nothing to specialize against.
	Schema *value.MessageSchema
}

// DefaultPolicy lets the profiler pick the tier using the engine's
// configured thresholds.
func DefaultPolicy() TierPolicy {
	return TierPolicy{Pin: TierAuto}
}

// Engine wires together every tier of the pipeline plus the artifact caches
// and the execution profiler that decides when to promote an expression
// from one tier to the next.
type Engine struct {
	Registry  *registry.Registry
	Evaluator *eval.Evaluator
	Optimizer *optimizer.Optimizer
	VM        *vm.VM
	JIT       *jit.Compiler
	JITEval   *jit.Evaluator
	JITCache  *jit.Cache
	Profiler  *profiler.Profiler
	L1        *cache.L1
	L2        *cache.L2
	Bus       *cache.RedisBus
	Config    *config.Config
	Logger    *logging.Logger
}

// New builds an Engine from cfg, wiring every tier's defaults (and an L2
// disk cache when cfg.L2Dir is non-empty).
func New(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ordo: invalid config: %w", err)
	}

	thresholds := profiler.Thresholds{
		CompileThreshold: cfg.CompileThreshold,
		JITThreshold:     cfg.JITThreshold,
	}
	reg := registry.NewRegistry()
	eng := &Engine{
		Registry:  reg,
		Evaluator: eval.New(reg),
		Optimizer: optimizer.New(reg),
		VM:        vm.New(reg),
		JIT:       jit.New(reg),
		JITEval:   jit.NewEvaluator(),
		JITCache:  jit.NewCache(5),
		Profiler:  profiler.New().WithThresholds(thresholds),
		L1:        cache.NewL1(cache.WithCapacity(cfg.L1Capacity)),
		Config:    cfg,
		Logger:    logger,
	}
	if cfg.L2Dir != "" {
		l2 := cache.NewL2(cfg.L2Dir, EngineVersion)
		if err := l2.Init(); err != nil {
			return nil, fmt.Errorf("ordo: init L2 cache: %w", err)
		}
		eng.L2 = l2
	}
	return eng, nil
}

func (eng *Engine) warnf(format string, args ...interface{}) {
	if eng.Logger == nil {
		return
	}
	eng.Logger.Warn(fmt.Sprintf(format, args...))
}

// Evaluate runs e against c, choosing a tier per policy: TierAuto consults
// the profiler (recording this execution against e's structural
// fingerprint and promoting across tree -> bytecode -> JIT as the
// thresholds are crossed); a pinned tier always runs at that tier and
// still records the execution so the profiler stays accurate for any later
// TierAuto call on the same expression.
func (eng *Engine) Evaluate(e ast.Expr, c *value.Context, policy TierPolicy) (value.Value, error) {
	fp := ast.StructuralHash(e)
	eng.Profiler.RecordExecution(fp)

	tier := policy.Pin
	if tier == TierAuto {
		var decision profiler.Decision
		if policy.Thresholds != (profiler.Thresholds{}) {
			decision, _ = eng.Profiler.DecideWithThresholds(fp, policy.Thresholds)
		} else {
			decision, _ = eng.Profiler.Decide(fp)
		}
		switch decision {
		case profiler.Stay:
			tier = TierTree
		case profiler.CompileBytecode:
			tier = TierBytecode
		case profiler.CompileJIT:
			if policy.Schema != nil {
				tier = TierJIT
			} else {
				tier = TierBytecode
			}
		case profiler.Blocklist:
			tier = TierBytecode
		}
	}

	if tier == TierJIT && policy.Schema == nil {
		tier = TierBytecode
	}

	// A JIT-tier failure always re-executes via the tree evaluator rather
	// than falling through bytecode first, so tier promotion never changes
	// the answer the caller sees (spec.md §7).
	if tier == TierJIT {
		v, err := eng.evaluateJIT(e, fp, c, policy.Schema)
		if err == nil {
			return v, nil
		}
		eng.Profiler.RecordJITFailure(fp)
		eng.warnf("jit tier failed for fingerprint %d, re-executing via tree evaluator: %v", fp, err)
		return eng.evaluateTree(e, c)
	}

	if tier == TierBytecode {
		v, err := eng.evaluateBytecode(e, c)
		if err == nil {
			return v, nil
		}
		eng.warnf("bytecode tier failed for fingerprint %d, falling back to tree evaluator: %v", fp, err)
	}

	return eng.evaluateTree(e, c)
}

func (eng *Engine) evaluateTree(e ast.Expr, c *value.Context) (value.Value, error) {
	v, evalErr := eng.Evaluator.Eval(e, c)
	if evalErr != nil {
		return value.Null, evalErr
	}
	return v, nil
}

func (eng *Engine) evaluateBytecode(e ast.Expr, c *value.Context) (value.Value, error) {
	key := cache.Key{StructuralHash: ast.StructuralHash(e), EngineVersion: EngineVersion}
	var program *vm.Program
	if cached, ok := eng.L1.Get(key); ok {
		program = cached.(*vm.Program)
	} else {
		p, err := compiler.Compile(e, eng.Registry)
		if err != nil {
			return value.Null, err
		}
		program = p
		eng.L1.Set(key, program)
	}
	result, vmErr := eng.VM.Run(program, c)
	if vmErr != nil {
		return value.Null, vmErr
	}
	return result, nil
}

func (eng *Engine) evaluateJIT(e ast.Expr, fp uint64, c *value.Context, schema *value.MessageSchema) (value.Value, error) {
	schemaFP := schema.Fingerprint(jit.SchemaABIVersion)
	compiled, ok := eng.JITCache.Get(fp, schemaFP)
	if !ok {
		cf, err := eng.JIT.Compile(e, schema)
		if err != nil {
			return value.Null, err
		}
		compiled = cf
		eng.JITCache.Put(fp, compiled)
	}
	tc := value.NewTypedContext(schema)
	if err := tc.FromContext(c); err != nil {
		return value.Null, err
	}
	result, jitErr := eng.JITEval.Eval(compiled, tc, c)
	if jitErr != nil {
		return value.Null, jitErr
	}
	return result, nil
}

// NewContext builds a value.Context over data, applying the engine's
// configured field_missing_behavior (spec.md §6) so callers don't have to
// translate config.FieldMissingBehavior into value.FieldMissingBehavior
// themselves.
func (eng *Engine) NewContext(data value.Value) *value.Context {
	c := value.NewContext(data)
	switch eng.Config.FieldMissingBehavior {
	case config.FieldMissingStrict:
		c.FieldMissing = value.FieldMissingStrict
	case config.FieldMissingDefault:
		c.FieldMissing = value.FieldMissingDefault
		c.FieldDefault = value.FromJSON(eng.Config.FieldMissingDefaultValue)
	default:
		c.FieldMissing = value.FieldMissingLenient
	}
	return c
}

// Optimize runs the constant-folding/identity-rewrite pass (spec.md §4.2)
// before Evaluate, exposed separately so callers can fold once and reuse
// the rewritten tree across many Evaluate calls.
func (eng *Engine) Optimize(e ast.Expr) (ast.Expr, optimizer.Stats) {
	return eng.Optimizer.Optimize(e)
}
