package parser

import "testing"

func collectTokens(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestLexerOperators(t *testing.T) {
	toks := collectTokens(`>= <= == != && || + - * / %`)
	want := []TokenType{GREATER_EQ, LESS_EQ, EQ_EQ, NOT_EQ, AND, OR, PLUS, MINUS, STAR, SLASH, PERCENT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks := collectTokens(`"hello\nworld"`)
	if toks[0].Type != STRING || toks[0].Literal != "hello\nworld" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestLexerNumbers(t *testing.T) {
	toks := collectTokens(`42 3.14`)
	if toks[0].Type != INTEGER || toks[0].Literal != "42" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Type != FLOAT || toks[1].Literal != "3.14" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := collectTokens(`true false null if then else amount`)
	want := []TokenType{TRUE, FALSE, NULL, IF, THEN, ELSE, IDENT, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestLexerDollarVariable(t *testing.T) {
	toks := collectTokens(`$score`)
	if toks[0].Type != DOLLAR || toks[1].Type != IDENT || toks[1].Literal != "score" {
		t.Fatalf("got %+v", toks[:2])
	}
}
