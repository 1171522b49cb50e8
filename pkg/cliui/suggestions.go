package cliui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ordo-lang/ordo/pkg/eval"
)

// suggestionResult pairs a candidate with its similarity score. Adapted
// from the teacher's pkg/errors/suggestions.go (FindBestSuggestions,
// calculateSimilarityScore), trimmed to the one case that occurs in this
// domain: an unknown builtin function name has no scanner/parser-level
// vocabulary of typo'd keywords to suggest against, only the registry's
// builtin names.
type suggestionResult struct {
	candidate string
	distance  int
	score     float64
}

const (
	maxSuggestions     = 3
	maxEditDistance    = 3
	minSimilarityScore = 0.5
)

func findSuggestions(target string, candidates []string) []suggestionResult {
	var results []suggestionResult
	for _, c := range candidates {
		if c == target {
			continue
		}
		d := levenshteinDistance(target, c)
		s := similarityScore(target, c, d)
		if d <= maxEditDistance && s >= minSimilarityScore {
			results = append(results, suggestionResult{candidate: c, distance: d, score: s})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].distance < results[j].distance
	})
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}
	return results
}

func similarityScore(s1, s2 string, distance int) float64 {
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 1.0
	}
	score := 1.0 - float64(distance)/float64(maxLen)
	if strings.Contains(strings.ToLower(s1), strings.ToLower(s2)) ||
		strings.Contains(strings.ToLower(s2), strings.ToLower(s1)) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func levenshteinDistance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= la; i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= lb; j++ {
			cur := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := row[j] + 1    // deletion
			if v := row[j-1] + 1; v < min {
				min = v // insertion
			}
			if v := prev + cost; v < min {
				min = v // substitution
			}
			row[j] = min
			prev = cur
		}
	}
	return row[lb]
}

func formatSuggestions(results []suggestionResult) string {
	if len(results) == 0 {
		return ""
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = fmt.Sprintf("%q", r.candidate)
	}
	if len(names) == 1 {
		return fmt.Sprintf("did you mean %s?", names[0])
	}
	last := len(names) - 1
	return fmt.Sprintf("did you mean %s, or %s?", strings.Join(names[:last], ", "), names[last])
}

// functionNameFromMessage extracts the quoted identifier out of the
// registry's "unknown function %q" message that eval wraps into
// EvalError.Message (pkg/eval/eval.go), since EvalError itself carries no
// structured field for it.
func functionNameFromMessage(msg string) (string, bool) {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return msg[start+1 : start+1+end], true
}

// FromEvalError builds a Diagnostic from an eval.EvalError, adding a
// "did you mean" suggestion when the failure is an unknown builtin call
// and builtinNames offers a close match.
func FromEvalError(err *eval.EvalError, builtinNames []string) Diagnostic {
	d := Diagnostic{Kind: "EvalError", Err: err}
	if err.Kind != eval.ErrUnknownFunction {
		return d
	}
	name, ok := functionNameFromMessage(err.Message)
	if !ok {
		return d
	}
	if results := findSuggestions(name, builtinNames); len(results) > 0 {
		d.Suggestion = formatSuggestions(results)
	}
	return d
}
