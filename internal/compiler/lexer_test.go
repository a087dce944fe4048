package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func TestLexTokens(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []tokenKind
		texts []string
	}{
		{
			name:  "atom",
			src:   "(At ?X Room-1)",
			kinds: []tokenKind{tokLParen, tokID, tokVar, tokID, tokRParen, tokEOF},
			texts: []string{"(", "at", "?x", "room-1", ")", ""},
		},
		{
			name:  "operator head",
			src:   "(:operator (!Move ?a))",
			kinds: []tokenKind{tokLParen, tokColon, tokLParen, tokOpID, tokVar, tokRParen, tokRParen, tokEOF},
			texts: []string{"(", ":operator", "(", "!move", "?a", ")", ")", ""},
		},
		{
			name:  "symbols",
			src:   "+ - * / ^ = < <= > >= !=",
			kinds: []tokenKind{tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokSymbol, tokEOF},
			texts: []string{"plus", "minus", "mult", "div", "power", "equal", "less", "lessEq", "more", "moreEq", "notEq", ""},
		},
		{
			name:  "keywords",
			src:   "defdomain AND nil :- :Axiom :sort-by stdlib",
			kinds: []tokenKind{tokKeyword, tokKeyword, tokKeyword, tokColon, tokColon, tokColon, tokKeyword, tokEOF},
			texts: []string{"defdomain", "and", "nil", ":-", ":-", ":sort-by", "stdlib", ""},
		},
		{
			name:  "comment and dotted list",
			src:   "; header\n(a . ?rest) ; trailing",
			kinds: []tokenKind{tokLParen, tokID, tokDot, tokVar, tokRParen, tokEOF},
			texts: []string{"(", "a", ".", "?rest", ")", ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex("", []byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.kinds, kinds(toks))
			texts := make([]string, len(toks))
			for i, tok := range toks {
				texts[i] = tok.text
			}
			assert.Equal(t, tt.texts, texts)
		})
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"12", 12},
		{"-3.5", -3.5},
		{"+4", 4},
		{"1e3", 1000},
		{"2.5E-1", 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := lex("", []byte(tt.src))
			require.NoError(t, err)
			require.Equal(t, tokNum, toks[0].kind)
			assert.Equal(t, tt.want, toks[0].num)
		})
	}
}

func TestLexMinusBeforeSpaceIsSymbol(t *testing.T) {
	toks, err := lex("", []byte("(- ?a 1)"))
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{tokLParen, tokSymbol, tokVar, tokNum, tokRParen, tokEOF}, kinds(toks))
}

func TestLexPositions(t *testing.T) {
	toks, err := lex("", []byte("(a\n  ?b)"))
	require.NoError(t, err)
	assert.Equal(t, 1, toks[1].line)
	assert.Equal(t, 2, toks[1].col)
	assert.Equal(t, 2, toks[2].line)
	assert.Equal(t, 3, toks[2].col)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		col  int
	}{
		{"unknown colon keyword", "(:bogus)", 1, 2},
		{"empty variable", "( ? )", 1, 3},
		{"stray character", "(a\n #)", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lex("d.lisp", []byte(tt.src))
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.line, se.Line)
			assert.Equal(t, tt.col, se.Column)
			assert.Equal(t, "d.lisp", se.File)
		})
	}
}
