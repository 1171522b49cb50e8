package optimizer

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/registry"
)

func optimizeSrc(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	o := New(registry.NewRegistry())
	out, _ := o.Optimize(e)
	return out
}

func TestConstantFolding(t *testing.T) {
	out := optimizeSrc(t, "1 + 2 * 3")
	lit, ok := out.(*ast.LiteralExpr)
	if !ok || lit.Value.Kind != ast.LitInt || lit.Value.I != 7 {
		t.Fatalf("expected folded literal 7, got %#v", out)
	}
}

func TestShortCircuitPruning(t *testing.T) {
	// false && amount > 100  ==  false, and the right side (a FieldExpr
	// that would fail with MissingField against an empty context) must be
	// pruned away entirely, not merely left unevaluated at runtime.
	out := optimizeSrc(t, "false && amount > 100")
	lit, ok := out.(*ast.LiteralExpr)
	if !ok || lit.Value.Kind != ast.LitBool || lit.Value.B != false {
		t.Fatalf("expected folded literal false, got %#v", out)
	}
}

func TestIfSimplification(t *testing.T) {
	out := optimizeSrc(t, "if true then 1 else amount")
	lit, ok := out.(*ast.LiteralExpr)
	if !ok || lit.Value.Kind != ast.LitInt || lit.Value.I != 1 {
		t.Fatalf("expected folded literal 1, got %#v", out)
	}
}

func TestAlgebraicIdentities(t *testing.T) {
	out := optimizeSrc(t, "amount + 0")
	field, ok := out.(*ast.FieldExpr)
	if !ok || field.Path != "amount" {
		t.Fatalf("expected bare field amount, got %#v", out)
	}

	out2 := optimizeSrc(t, "amount * 1")
	field2, ok := out2.(*ast.FieldExpr)
	if !ok || field2.Path != "amount" {
		t.Fatalf("expected bare field amount, got %#v", out2)
	}
}

func TestPureCallFolding(t *testing.T) {
	out := optimizeSrc(t, `upper("hi")`)
	lit, ok := out.(*ast.LiteralExpr)
	if !ok || lit.Value.Kind != ast.LitStr || lit.Value.S != "HI" {
		t.Fatalf("expected folded literal \"HI\", got %#v", out)
	}
}

func TestOptimizerTerminatesWithinPassBudget(t *testing.T) {
	src := "1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1"
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	o := New(registry.NewRegistry())
	_, stats := o.Optimize(e)
	if stats.Passes > maxPasses {
		t.Fatalf("optimizer exceeded pass budget: %d > %d", stats.Passes, maxPasses)
	}
}

func TestOptimizerDoesNotFoldRuntimeDivisionByZero(t *testing.T) {
	out := optimizeSrc(t, "1 / 0")
	if _, ok := out.(*ast.LiteralExpr); ok {
		t.Fatal("division by zero must not be folded away; the evaluator must still raise it")
	}
}
