package cliui

import (
	"strings"
	"testing"

	"github.com/ordo-lang/ordo/pkg/eval"
)

func TestFromEvalErrorSuggestsClosestBuiltin(t *testing.T) {
	err := &eval.EvalError{Kind: eval.ErrUnknownFunction, Message: `registry: unknown function "lenght"`}
	d := FromEvalError(err, []string{"length", "upper"})
	if !strings.Contains(d.Suggestion, "length") {
		t.Fatalf("expected a suggestion naming %q, got %q", "length", d.Suggestion)
	}
}

func TestFromEvalErrorSkipsNonFunctionErrors(t *testing.T) {
	err := &eval.EvalError{Kind: eval.ErrTypeMismatch, Message: "boom"}
	d := FromEvalError(err, []string{"length", "upper"})
	if d.Suggestion != "" {
		t.Fatalf("expected no suggestion for a non-UnknownFunction error, got %q", d.Suggestion)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"length", "length", 0},
		{"lenght", "length", 2},
		{"", "abc", 3},
		{"upper", "uppr", 1},
	}
	for _, c := range cases {
		if got := levenshteinDistance(c.a, c.b); got != c.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
