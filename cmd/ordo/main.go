// Command ordo is a small CLI exercising the expression core end to end,
// grounded on the teacher's cmd/glyph (a spf13/cobra root command with
// subcommands, colored info/error output via github.com/fatih/color).
// Unlike cmd/glyph it never stands up a server: that transport surface is
// an explicit non-goal here.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ordo-lang/ordo/pkg/ast"
	"github.com/ordo-lang/ordo/pkg/cache"
	"github.com/ordo-lang/ordo/pkg/cliui"
	"github.com/ordo-lang/ordo/pkg/config"
	"github.com/ordo-lang/ordo/pkg/eval"
	"github.com/ordo-lang/ordo/pkg/ordo"
	"github.com/ordo-lang/ordo/pkg/parser"
	"github.com/ordo-lang/ordo/pkg/value"
)

var version = "0.1.0"

var infoColor = color.New(color.FgCyan)

func printInfo(msg string) { infoColor.Printf("[info] %s\n", msg) }

func main() {
	rootCmd := &cobra.Command{
		Use:     "ordo",
		Short:   "Ordo expression engine CLI",
		Version: version,
	}
	rootCmd.AddCommand(evalCmd(), benchCmd(), cacheCmd(), fmtCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadFact(path string) (value.Value, error) {
	if path == "" {
		return value.Object(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Null, fmt.Errorf("read fact file: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return value.Null, fmt.Errorf("parse fact file: %w", err)
	}
	return value.FromJSON(decoded), nil
}

func loadSchema(path string) (*value.MessageSchema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var decl struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	fields := make([]value.FieldSchema, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		var t value.FieldType
		switch f.Type {
		case "int64":
			t = value.FieldInt64
		case "float64":
			t = value.FieldFloat64
		case "bool":
			t = value.FieldBool
		case "string":
			t = value.FieldStr
		default:
			return nil, fmt.Errorf("unrecognized schema field type %q for %q", f.Type, f.Name)
		}
		fields = append(fields, value.FieldSchema{Name: f.Name, Type: t})
	}
	return value.NewMessageSchema(fields), nil
}

// printEvalDiagnostic renders an Evaluate failure, adding a "did you mean"
// hint against the engine's registered builtin names when the tree
// evaluator reports an unknown function call.
func printEvalDiagnostic(eng *ordo.Engine, err error) {
	if ee, ok := err.(*eval.EvalError); ok {
		cliui.PrintDiagnostic(cliui.FromEvalError(ee, eng.Registry.Names()))
		return
	}
	cliui.PrintDiagnostic(cliui.Diagnostic{Kind: "EvalError", Err: err})
}

func parseOrPrint(src string) (ast.Expr, bool) {
	e, err := parser.Parse(src)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			cliui.PrintDiagnostic(cliui.FromParseError(pe, src))
		} else {
			cliui.PrintDiagnostic(cliui.Diagnostic{Kind: "ParseError", Err: err})
		}
		return nil, false
	}
	return e, true
}

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expr>",
		Short: "Parse and evaluate an expression against a fact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factPath, _ := cmd.Flags().GetString("fact")
			schemaPath, _ := cmd.Flags().GetString("schema")
			tierName, _ := cmd.Flags().GetString("tier")

			e, ok := parseOrPrint(args[0])
			if !ok {
				os.Exit(1)
			}
			fact, err := loadFact(factPath)
			if err != nil {
				return err
			}
			schema, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}

			eng, err := ordo.New(config.Default(), nil)
			if err != nil {
				return err
			}
			policy := ordo.TierPolicy{Schema: schema}
			switch tierName {
			case "tree":
				policy.Pin = ordo.TierTree
			case "bytecode":
				policy.Pin = ordo.TierBytecode
			case "jit":
				policy.Pin = ordo.TierJIT
			case "", "auto":
				policy.Pin = ordo.TierAuto
			default:
				return fmt.Errorf("unrecognized --tier %q", tierName)
			}

			v, evalErr := eng.Evaluate(e, eng.NewContext(fact), policy)
			if evalErr != nil {
				printEvalDiagnostic(eng, evalErr)
				os.Exit(1)
			}
			fmt.Println(formatValue(v))
			return nil
		},
	}
	cmd.Flags().String("fact", "", "path to a JSON fact file")
	cmd.Flags().String("schema", "", "path to a JSON schema file (enables the JIT tier)")
	cmd.Flags().String("tier", "auto", "auto|tree|bytecode|jit")
	return cmd
}

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <expr>",
		Short: "Evaluate an expression n times through the tiering engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factPath, _ := cmd.Flags().GetString("fact")
			schemaPath, _ := cmd.Flags().GetString("schema")
			n, _ := cmd.Flags().GetInt("n")

			e, ok := parseOrPrint(args[0])
			if !ok {
				os.Exit(1)
			}
			fact, err := loadFact(factPath)
			if err != nil {
				return err
			}
			schema, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}

			eng, err := ordo.New(config.Default(), nil)
			if err != nil {
				return err
			}
			policy := ordo.TierPolicy{Pin: ordo.TierAuto, Schema: schema}

			start := time.Now()
			var last value.Value
			for i := 0; i < n; i++ {
				last, err = eng.Evaluate(e, eng.NewContext(fact), policy)
				if err != nil {
					printEvalDiagnostic(eng, err)
					os.Exit(1)
				}
			}
			elapsed := time.Since(start)

			printInfo(fmt.Sprintf("%d calls in %s (%.0f calls/sec)", n, elapsed, float64(n)/elapsed.Seconds()))
			fmt.Println(formatValue(last))
			return nil
		},
	}
	cmd.Flags().String("fact", "", "path to a JSON fact file")
	cmd.Flags().String("schema", "", "path to a JSON schema file (enables the JIT tier)")
	cmd.Flags().IntP("n", "n", 1000, "number of evaluations")
	return cmd
}

func cacheCmd() *cobra.Command {
	root := &cobra.Command{Use: "cache", Short: "Inspect the on-disk artifact cache"}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record and byte counts for an L2 cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			l2 := cache.NewL2(dir, ordo.EngineVersion)
			if err := l2.Init(); err != nil {
				return err
			}
			records, err := l2.Index()
			if err != nil {
				return err
			}
			var total uint64
			for _, r := range records {
				total += r.Size
			}
			printInfo(fmt.Sprintf("%d artifacts, %d bytes total", len(records), total))
			return nil
		},
	}
	statsCmd.Flags().String("dir", "ordo_jit_cache", "L2 cache directory")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "List every record in an L2 cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			l2 := cache.NewL2(dir, ordo.EngineVersion)
			if err := l2.Init(); err != nil {
				return err
			}
			records, err := l2.Index()
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%-16s struct=%x schema=%x size=%d created=%s\n",
					r.FileName, r.Key.StructuralHash, r.Key.SchemaFingerprint, r.Size, r.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	inspectCmd.Flags().String("dir", "ordo_jit_cache", "L2 cache directory")

	root.AddCommand(statsCmd, inspectCmd)
	return root
}

func fmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <expr>",
		Short: "Parse and re-print an expression in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ok := parseOrPrint(args[0])
			if !ok {
				os.Exit(1)
			}
			fmt.Println(ast.Print(e))
			return nil
		},
	}
}

func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%v", b)
	case value.KindInt:
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	case value.KindStr:
		s, _ := v.AsStr()
		return s
	case value.KindArray:
		elems, _ := v.AsArray()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Kind().String()
	}
}
