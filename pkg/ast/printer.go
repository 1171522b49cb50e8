package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders e in canonical form such that Parse(Print(e)) reproduces an
// AST structurally equal to e (spec.md §8, P3). Grounded on the teacher's
// String() methods on BinOp/UnOp/HttpMethod (pkg/interpreter/ast.go),
// extended here into a full recursive printer since the teacher never
// needed to re-serialize a whole expression tree. A negative numeric
// literal (only constant folding produces one) prints as -n, which parses
// back as the negation of the literal n rather than as a single literal;
// the one exception is the minimum int64, which parses back as a literal.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e, 0)
	return sb.String()
}

// precedence mirrors the parser's Pratt binding powers so parenthesization
// is only emitted where required to round-trip unambiguously.
func precedence(op BinOp) int {
	switch op {
	case Or:
		return 1
	case And:
		return 2
	case Eq, Ne:
		return 3
	case Lt, Le, Gt, Ge:
		return 4
	case Add, Sub:
		return 5
	case Mul, Div, Mod:
		return 6
	default:
		return 0
	}
}

func printExpr(sb *strings.Builder, e Expr, parentPrec int) {
	switch n := e.(type) {
	case *LiteralExpr:
		printLiteral(sb, n.Value)
	case *FieldExpr:
		sb.WriteString(n.Path)
	case *VariableExpr:
		sb.WriteString("$")
		sb.WriteString(n.Name)
	case *UnaryExpr:
		sb.WriteString(n.Op.String())
		printExpr(sb, n.Expr, 7)
	case *BinaryExpr:
		prec := precedence(n.Op)
		needParens := prec < parentPrec
		if needParens {
			sb.WriteString("(")
		}
		printExpr(sb, n.Left, prec)
		sb.WriteString(" ")
		sb.WriteString(n.Op.String())
		sb.WriteString(" ")
		printExpr(sb, n.Right, prec+1)
		if needParens {
			sb.WriteString(")")
		}
	case *CallExpr:
		sb.WriteString(n.Name)
		sb.WriteString("(")
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, arg, 0)
		}
		sb.WriteString(")")
	case *IndexExpr:
		printExpr(sb, n.Array, 8)
		sb.WriteString("[")
		printExpr(sb, n.Index, 0)
		sb.WriteString("]")
	case *MemberExpr:
		printExpr(sb, n.Object, 8)
		sb.WriteString(".")
		sb.WriteString(n.Name)
	case *IfExpr:
		if parentPrec > 0 {
			sb.WriteString("(")
		}
		sb.WriteString("if ")
		printExpr(sb, n.Cond, 0)
		sb.WriteString(" then ")
		printExpr(sb, n.Then, 0)
		sb.WriteString(" else ")
		printExpr(sb, n.Else, 0)
		if parentPrec > 0 {
			sb.WriteString(")")
		}
	default:
		sb.WriteString(fmt.Sprintf("<unknown %T>", e))
	}
}

func printLiteral(sb *strings.Builder, lit Literal) {
	switch lit.Kind {
	case LitNull:
		sb.WriteString("null")
	case LitBool:
		sb.WriteString(strconv.FormatBool(lit.B))
	case LitInt:
		sb.WriteString(strconv.FormatInt(lit.I, 10))
	case LitFloat:
		s := strconv.FormatFloat(lit.F, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		sb.WriteString(s)
	case LitStr:
		sb.WriteString(strconv.Quote(lit.S))
	}
}
