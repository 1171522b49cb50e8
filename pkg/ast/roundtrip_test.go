package ast_test

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/parser"
)

// Printing an expression and re-parsing the result must reproduce the same
// shape: parse(print(parse(e))) has the same structural hash as parse(e).
func TestParsePrintRoundTrip(t *testing.T) {
	exprs := []string{
		"1 + 2 * 3",
		"amount > 100 && active",
		"!active || (score + 1) / 2",
		"if amount > 100 then 1 else 0",
		"items[0].tier",
		"upper(name)",
		"-(-5) == 5",
	}

	for _, src := range exprs {
		e1, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		printed := ast.Print(e1)
		e2, err := parser.Parse(printed)
		if err != nil {
			t.Fatalf("Parse(%q) re-parsing %q: %v", src, printed, err)
		}
		if ast.StructuralHash(e1) != ast.StructuralHash(e2) {
			t.Fatalf("round trip changed shape: %q printed as %q, which re-parses to a different structural hash", src, printed)
		}
	}
}
