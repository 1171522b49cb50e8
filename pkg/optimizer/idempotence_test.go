package optimizer

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/registry"
)

// Optimizing an already-optimized expression a second time must be a no-op:
// optimize(optimize(e)) == optimize(e), both in shape and in reported work.
func TestOptimizeIsIdempotent(t *testing.T) {
	exprs := []string{
		"1 + 2 * 3",
		"true && false || !false",
		"if 1 < 2 then 10 else 20",
		"amount > 100 && (1 + 1 == 2)",
		"-(-5)",
	}

	o := New(registry.NewRegistry())
	for _, src := range exprs {
		e, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		once, _ := o.Optimize(e)
		twice, stats := o.Optimize(once)

		if ast.StructuralHash(once) != ast.StructuralHash(twice) {
			t.Fatalf("%q: second optimization pass changed the tree: %s -> %s", src, ast.Print(once), ast.Print(twice))
		}
		if stats.FoldedConst != 0 || stats.PrunedBranch != 0 || stats.RemovedNoop != 0 {
			t.Fatalf("%q: expected a no-op second pass, got stats %+v", src, stats)
		}
	}
}
