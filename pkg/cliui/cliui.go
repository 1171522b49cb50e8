// Package cliui renders diagnostics for cmd/ordo: a source snippet with a
// caret pointing at the failing column, colored with github.com/fatih/color
// the way the teacher's own CLI (cmd/glyph) colors its output. Grounded on
// pkg/errors/enhanced_errors.go's CompileError.FormatError layout, with the
// teacher's hand-rolled ANSI escape constants (Bold/Red/Cyan/Gray) replaced
// by the library the teacher itself imports for its CLI.
package cliui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/ordo-lang/ordo/pkg/parser"
)

var (
	errorHeader = color.New(color.FgRed, color.Bold)
	lineNumber  = color.New(color.FgCyan)
	contextLine = color.New(color.FgHiBlack)
	caret       = color.New(color.FgRed, color.Bold)
	suggestion  = color.New(color.FgGreen)
)

// Position is the optional location a diagnostic can report. Diagnostic
// types without a natural Line/Column (e.g. a cache I/O error) leave it
// zero, and FormatDiagnostic skips the snippet.
type Position struct {
	Line   int
	Column int
}

// Diagnostic is what cliui renders: an error plus the source that was being
// parsed/compiled/evaluated when it occurred, plus an optional suggestion.
type Diagnostic struct {
	Kind       string // "ParseError", "CompileError", "EvalError", "JITError", "CacheError"
	Err        error
	Source     string
	Pos        Position
	Suggestion string
}

// FormatDiagnostic renders d the way the teacher's CompileError.FormatError
// does: a bold red header, the offending line with a cyan gutter, a caret
// under the failing column, and an optional green suggestion line.
func FormatDiagnostic(d Diagnostic) string {
	var b strings.Builder

	kind := d.Kind
	if kind == "" {
		kind = "Error"
	}
	b.WriteString(errorHeader.Sprint(kind))
	if d.Pos.Line > 0 {
		b.WriteString(fmt.Sprintf(" at line %d, column %d", d.Pos.Line, d.Pos.Column))
	}
	b.WriteString(": ")
	b.WriteString(d.Err.Error())
	b.WriteString("\n")

	if d.Source != "" && d.Pos.Line > 0 {
		lines := strings.Split(d.Source, "\n")
		idx := d.Pos.Line - 1
		if idx >= 0 && idx < len(lines) {
			b.WriteString("\n")
			if idx > 0 {
				b.WriteString(fmt.Sprintf("  %s %s\n", contextLine.Sprintf("%4d |", idx), lines[idx-1]))
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", lineNumber.Sprintf("%4d |", idx+1), lines[idx]))
			if d.Pos.Column > 0 {
				pad := strings.Repeat(" ", d.Pos.Column-1)
				b.WriteString(fmt.Sprintf("       %s %s%s\n", contextLine.Sprint("|"), pad, caret.Sprint("^ here")))
			}
		}
	}

	if d.Suggestion != "" {
		b.WriteString(suggestion.Sprintf("  hint: %s\n", d.Suggestion))
	}

	return b.String()
}

// FromParseError builds a Diagnostic from a parser.ParseError and the
// source text it failed on.
func FromParseError(err *parser.ParseError, source string) Diagnostic {
	return Diagnostic{
		Kind:   "ParseError",
		Err:    err,
		Source: source,
		Pos:    Position{Line: err.Line, Column: err.Column},
	}
}

// PrintDiagnostic writes the formatted diagnostic to the process's
// configured color output (color.Output, which fatih/color already
// resolves against whether stdout is a terminal).
func PrintDiagnostic(d Diagnostic) {
	fmt.Fprint(color.Output, FormatDiagnostic(d))
}
