package parser

import (
	"strconv"

	"github.com/ordo-lang/ordo/pkg/ast"
)

// precedence levels mirror ast.precedence so Print(Parse(src)) round-trips
// without spurious or missing parentheses (spec.md §8, P3).
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

func precedenceOf(t TokenType) int {
	switch t {
	case OR:
		return precOr
	case AND:
		return precAnd
	case EQ_EQ, NOT_EQ:
		return precEquality
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return precRelational
	case PLUS, MINUS:
		return precAdditive
	case STAR, SLASH, PERCENT:
		return precMultiplicative
	default:
		return precLowest
	}
}

func binOpFor(t TokenType) (ast.BinOp, bool) {
	switch t {
	case PLUS:
		return ast.Add, true
	case MINUS:
		return ast.Sub, true
	case STAR:
		return ast.Mul, true
	case SLASH:
		return ast.Div, true
	case PERCENT:
		return ast.Mod, true
	case EQ_EQ:
		return ast.Eq, true
	case NOT_EQ:
		return ast.Ne, true
	case LESS:
		return ast.Lt, true
	case LESS_EQ:
		return ast.Le, true
	case GREATER:
		return ast.Gt, true
	case GREATER_EQ:
		return ast.Ge, true
	case AND:
		return ast.And, true
	case OR:
		return ast.Or, true
	default:
		return 0, false
	}
}

// Parser is a Pratt (precedence-climbing) parser over a Lexer's token
// stream, grounded on the teacher's pkg/parser/parser.go cur/peek-token
// advance pattern, narrowed to spec.md §4.1's expression grammar (no
// statements, routes, macros, pipes).
type Parser struct {
	l         *Lexer
	cur       Token
	peek      Token
	startByte int
}

// NewParser creates a Parser reading tokens from l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Parse parses src as a single expression (spec.md §4.1).
func Parse(src string) (ast.Expr, error) {
	p := NewParser(NewLexer(src))
	expr, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != EOF {
		return nil, newParseError(ErrTrailingInput, p.cur, "trailing input after expression")
	}
	return expr, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, newParseError(ErrUnexpectedToken, p.cur, "expected "+t.String()+", got "+p.cur.Type.String())
	}
	tok := p.cur
	p.next()
	return tok, nil
}

// expectRParen closes a grouping or call-argument list, reporting
// ErrUnmatchedParen rather than the generic ErrUnexpectedToken so an open
// paren that never closes is distinguishable from any other malformed token
// sequence (spec.md §4.1).
func (p *Parser) expectRParen() (Token, error) {
	if p.cur.Type != RPAREN {
		return Token{}, newParseError(ErrUnmatchedParen, p.cur, "expected ), got "+p.cur.Type.String())
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func span(start, end Token) ast.Span { return ast.Span{Start: start.Column, End: end.Column} }

// ParseExpr parses a full expression at the lowest precedence.
func (p *Parser) ParseExpr() (ast.Expr, error) {
	return p.parseBinary(precLowest)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := precedenceOf(p.cur.Type)
		if prec == precLowest || prec < minPrec {
			break
		}
		opTok := p.cur
		op, ok := binOpFor(opTok.Type)
		if !ok {
			return nil, newParseError(ErrUnknownOperator, opTok, "unknown binary operator")
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op, left, right, span(opTok, opTok))
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur.Type {
	case BANG:
		tok := p.cur
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(ast.Not, operand, span(tok, tok)), nil
	case MINUS:
		tok := p.cur
		p.next()
		// 9223372036854775808 only fits int64 negated, so it is read together
		// with its minus sign as one literal.
		if p.cur.Type == INTEGER && p.cur.Literal == "9223372036854775808" {
			lit := p.cur
			p.next()
			return ast.NewLiteral(ast.IntLiteral(-1<<63), span(tok, lit)), nil
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(ast.Neg, operand, span(tok, tok)), nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case LBRACKET:
			open := p.cur
			p.next()
			idx, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			closeTok, err := p.expect(RBRACKET)
			if err != nil {
				return nil, err
			}
			expr = ast.NewIndex(expr, idx, span(open, closeTok))
		case DOT:
			p.next()
			name, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			expr = ast.NewMember(expr, name.Literal, span(name, name))
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Type {
	case INTEGER:
		tok := p.cur
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, newParseError(ErrBadNumber, tok, err.Error())
		}
		p.next()
		return ast.NewLiteral(ast.IntLiteral(n), span(tok, tok)), nil
	case FLOAT:
		tok := p.cur
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, newParseError(ErrBadNumber, tok, err.Error())
		}
		p.next()
		return ast.NewLiteral(ast.FloatLiteral(f), span(tok, tok)), nil
	case STRING:
		tok := p.cur
		p.next()
		return ast.NewLiteral(ast.StrLiteral(tok.Literal), span(tok, tok)), nil
	case TRUE:
		tok := p.cur
		p.next()
		return ast.NewLiteral(ast.BoolLiteral(true), span(tok, tok)), nil
	case FALSE:
		tok := p.cur
		p.next()
		return ast.NewLiteral(ast.BoolLiteral(false), span(tok, tok)), nil
	case NULL:
		tok := p.cur
		p.next()
		return ast.NewLiteral(ast.NullLiteral(), span(tok, tok)), nil
	case DOLLAR:
		tok := p.cur
		p.next()
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return ast.NewVariable(name.Literal, span(tok, name)), nil
	case IDENT:
		return p.parseIdentOrCall()
	case LPAREN:
		p.next()
		expr, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectRParen(); err != nil {
			return nil, err
		}
		return expr, nil
	case IF:
		return p.parseIf()
	default:
		return nil, newParseError(ErrUnexpectedToken, p.cur, "expected an expression, got "+p.cur.Type.String())
	}
}

func (p *Parser) parseIdentOrCall() (ast.Expr, error) {
	first := p.cur
	p.next()

	if p.cur.Type == LPAREN {
		return p.parseCallArgs(first)
	}

	path := first.Literal
	last := first
	for p.cur.Type == DOT && p.peek.Type == IDENT {
		p.next() // consume DOT
		seg := p.cur
		path += "." + seg.Literal
		last = seg
		p.next()
	}
	return ast.NewField(path, span(first, last)), nil
}

func (p *Parser) parseCallArgs(name Token) (ast.Expr, error) {
	p.next() // consume LPAREN
	var args []ast.Expr
	for p.cur.Type != RPAREN {
		arg, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == COMMA {
			p.next()
			continue
		}
		break
	}
	closeTok, err := p.expectRParen()
	if err != nil {
		return nil, err
	}
	return ast.NewCall(name.Literal, args, span(name, closeTok)), nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	ifTok := p.cur
	p.next() // consume IF
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(THEN); err != nil {
		return nil, err
	}
	then, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ELSE); err != nil {
		return nil, err
	}
	els, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewIf(cond, then, els, span(ifTok, ifTok)), nil
}
