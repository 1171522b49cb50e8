package eval

import (
	"testing"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/registry"
	"github.com/ordo-lang/ordo/pkg/value"
)

func mustParse(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func newEvaluator() *Evaluator {
	return New(registry.NewRegistry())
}

func TestEvalArithmeticIntVsFloat(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)

	v, err := ev.Eval(mustParse(t, "1 + 2 * 3"), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.AsInt(); !ok || n != 7 {
		t.Fatalf("got %v", v)
	}

	v2, err := ev.Eval(mustParse(t, "1 + 2.5"), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := v2.AsFloat(); !ok || f != 3.5 {
		t.Fatalf("got %v", v2)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	_, err := ev.Eval(mustParse(t, "1 / 0"), ctx)
	if err == nil || err.Kind != ErrDivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestEvalShortCircuitAnd(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	// right side references a missing field; must never be evaluated
	// because the left side of && is false.
	v, err := ev.Eval(mustParse(t, "false && nonexistent.field"), ctx)
	if err != nil {
		t.Fatalf("expected no error from short-circuit, got %v", err)
	}
	if b, _ := v.AsBool(); b {
		t.Fatal("expected false")
	}
}

func TestEvalShortCircuitOr(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	v, err := ev.Eval(mustParse(t, "true || nonexistent.field"), ctx)
	if err != nil {
		t.Fatalf("expected no error from short-circuit, got %v", err)
	}
	if b, _ := v.AsBool(); !b {
		t.Fatal("expected true")
	}
}

func TestEvalMissingField(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	_, err := ev.Eval(mustParse(t, "user.name"), ctx)
	if err == nil || err.Kind != ErrMissingField {
		t.Fatalf("expected MissingField, got %v", err)
	}
}

func TestEvalIndexMember(t *testing.T) {
	ev := newEvaluator()
	root := value.Object(map[string]value.Value{
		"items": value.Array(
			value.Object(map[string]value.Value{"amount": value.Int(10)}),
			value.Object(map[string]value.Value{"amount": value.Int(20)}),
		),
	})
	ctx := value.NewContext(root)
	v, err := ev.Eval(mustParse(t, "items[1].amount"), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.AsInt(); !ok || n != 20 {
		t.Fatalf("got %v", v)
	}
}

func TestEvalIfExpr(t *testing.T) {
	ev := newEvaluator()
	root := value.Object(map[string]value.Value{"amount": value.Int(150)})
	ctx := value.NewContext(root)
	v, err := ev.Eval(mustParse(t, "if amount > 100 then \"big\" else \"small\""), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v.AsStr(); s != "big" {
		t.Fatalf("got %v", v)
	}
}

func TestEvalCallBuiltin(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	v, err := ev.Eval(mustParse(t, `upper("hi")`), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v.AsStr(); s != "HI" {
		t.Fatalf("got %v", v)
	}
}

func TestEvalUnknownFunction(t *testing.T) {
	ev := newEvaluator()
	ctx := value.NewContext(value.Null)
	_, err := ev.Eval(mustParse(t, "bogus(1)"), ctx)
	if err == nil || err.Kind != ErrUnknownFunction {
		t.Fatalf("expected UnknownFunction, got %v", err)
	}
}
