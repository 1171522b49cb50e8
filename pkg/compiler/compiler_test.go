package compiler

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/eval"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
	"github.com/ordo-lang/ordo/pkg/vm"
)

// runBoth evaluates src through the tree evaluator and through compile+VM,
// asserting both tiers agree — the differential property spec.md §8's P1
// requires of the tiers.
func runBoth(t *testing.T, src string, root value.Value) (value.Value, value.Value) {
	t.Helper()
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	reg := registry.NewRegistry()

	treeVal, treeErr := eval.New(reg).Eval(e, value.NewContext(root))
	prog, cerr := Compile(e, reg)
	if cerr != nil {
		t.Fatalf("Compile(%q): %v", src, cerr)
	}
	vmVal, vmErr := vm.New(reg).Run(prog, value.NewContext(root))

	if (treeErr == nil) != (vmErr == nil) {
		t.Fatalf("%q: tree err=%v, vm err=%v — tiers disagree on success/failure", src, treeErr, vmErr)
	}
	if treeErr != nil {
		return value.Null, value.Null
	}
	return treeVal, vmVal
}

func TestCompilerMatchesTreeEvaluator(t *testing.T) {
	root := value.Object(map[string]value.Value{
		"amount": value.Int(150),
		"tier":   value.Str("gold"),
		"items": value.Array(
			value.Object(map[string]value.Value{"price": value.Int(10)}),
			value.Object(map[string]value.Value{"price": value.Int(20)}),
		),
	})
	cases := []string{
		"1 + 2 * 3",
		"amount > 100",
		"amount == 150",
		"tier == \"gold\"",
		"!(amount < 100)",
		"amount > 100 && tier == \"gold\"",
		"amount > 1000 || tier == \"gold\"",
		"if amount > 100 then \"big\" else \"small\"",
		"items[0].price + items[1].price",
		"upper(tier)",
	}
	for _, src := range cases {
		tv, vv := runBoth(t, src, root)
		if !value.Equal(tv, vv) {
			t.Errorf("%q: tree=%v vm=%v disagree", src, tv, vv)
		}
	}
}

func TestCompilerMatchesTreeEvaluatorOnErrors(t *testing.T) {
	root := value.Null
	cases := []string{
		"1 / 0",
		"missing.field",
		"1 + \"x\"",
	}
	for _, src := range cases {
		runBoth(t, src, root) // runBoth itself asserts success/failure agreement
	}
}

func TestCompilerFieldEqConstSuperinstruction(t *testing.T) {
	e, err := parser.Parse(`tier == "gold"`)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Compile(e, registry.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, b := range prog.Code {
		if vm.Opcode(b) == vm.OpFieldEqConst {
			found = true
		}
	}
	if !found {
		t.Fatal("expected FieldEqConst superinstruction to be emitted for `field == literal`")
	}
}

func TestCompileRejectsUnknownFunctionAtCompileTime(t *testing.T) {
	e, err := parser.Parse(`nope(1)`)
	if err != nil {
		t.Fatal(err)
	}
	_, cerr := Compile(e, registry.NewRegistry())
	if cerr == nil {
		t.Fatal("expected a compile error for an unregistered function")
	}
	ce, ok := cerr.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T", cerr)
	}
	if ce.Kind != UnknownFunction {
		t.Fatalf("expected Kind UnknownFunction, got %s", ce.Kind)
	}
}

func TestCompileRejectsWrongArityAtCompileTime(t *testing.T) {
	e, err := parser.Parse(`upper()`)
	if err != nil {
		t.Fatal(err)
	}
	_, cerr := Compile(e, registry.NewRegistry())
	if cerr == nil {
		t.Fatal("expected a compile error for a wrong-arity call")
	}
	ce, ok := cerr.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T", cerr)
	}
	if ce.Kind != Arity {
		t.Fatalf("expected Kind Arity, got %s", ce.Kind)
	}
}
