package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokDot
	tokVar     // ?name
	tokOpID    // !name
	tokID      // name
	tokNum     // 12, -3.5, 1e3
	tokKeyword // and, defdomain, nil, ...
	tokColon   // :operator, :method, :-, ...
	tokSymbol  // + - * / = < <= > >= != ^, spelled as the stdlib name
)

var kindNames = map[tokenKind]string{
	tokEOF:     "end of input",
	tokLParen:  "'('",
	tokRParen:  "')'",
	tokDot:     "'.'",
	tokVar:     "variable",
	tokOpID:    "operator name",
	tokID:      "identifier",
	tokNum:     "number",
	tokKeyword: "keyword",
	tokColon:   "colon keyword",
	tokSymbol:  "operator symbol",
}

func (k tokenKind) String() string { return kindNames[k] }

type token struct {
	kind tokenKind
	text string
	num  float64
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF, tokLParen, tokRParen, tokDot:
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

var keywords = map[string]bool{
	"defdomain":       true,
	"defproblem":      true,
	"def-problem-set": true,
	"and":             true,
	"or":              true,
	"not":             true,
	"imply":           true,
	"forall":          true,
	"assign":          true,
	"call":            true,
	"nil":             true,
	"member":          true,
	"stdlib":          true,
}

var colonKeywords = map[string]bool{
	":operator":   true,
	":method":     true,
	":-":          true,
	":first":      true,
	":sort-by":    true,
	":protection": true,
	":immediate":  true,
	":unordered":  true,
}

// lexer splits domain language source into tokens. The language is case
// insensitive: identifiers and keywords are lowered as they are read.
type lexer struct {
	file string
	src  []rune
	pos  int
	line int
	col  int
}

func lex(file string, src []byte) ([]token, error) {
	l := &lexer{file: file, src: []rune(string(src)), line: 1, col: 1}
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) peek(ahead int) rune {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{File: l.file, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch c := l.peek(0); {
		case c == ';':
			for l.pos < len(l.src) && l.peek(0) != '\n' {
				l.advance()
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			l.advance()
		default:
			return
		}
	}
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }

func isNameRune(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '-' || r == '_' || r == '?' || r == '!'
}

func (l *lexer) name() string {
	var sb strings.Builder
	for l.pos < len(l.src) && isNameRune(l.peek(0)) {
		sb.WriteRune(l.advance())
	}
	return strings.ToLower(sb.String())
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	line, col := l.line, l.col
	tok := func(kind tokenKind, text string) (token, error) {
		return token{kind: kind, text: text, line: line, col: col}, nil
	}
	if l.pos >= len(l.src) {
		return tok(tokEOF, "")
	}

	c := l.peek(0)
	switch {
	case c == '(':
		l.advance()
		return tok(tokLParen, "(")
	case c == ')':
		l.advance()
		return tok(tokRParen, ")")
	case c == '.':
		l.advance()
		return tok(tokDot, ".")
	case c == '?':
		l.advance()
		n := l.name()
		if n == "" {
			return token{}, l.errorf(line, col, "variable name expected after '?'")
		}
		return tok(tokVar, "?"+n)
	case c == '!' && l.peek(1) == '=':
		l.advance()
		l.advance()
		return tok(tokSymbol, "notEq")
	case c == '!':
		l.advance()
		n := l.name()
		if n == "" {
			return token{}, l.errorf(line, col, "operator name expected after '!'")
		}
		return tok(tokOpID, "!"+n)
	case c == ':':
		l.advance()
		if l.peek(0) == '-' && !isNameRune(l.peek(1)) {
			l.advance()
			return tok(tokColon, ":-")
		}
		kw := ":" + l.name()
		if kw == ":axiom" {
			kw = ":-"
		}
		if !colonKeywords[kw] {
			return token{}, l.errorf(line, col, "unknown keyword %q", kw)
		}
		return tok(tokColon, kw)
	case isDigit(c), (c == '+' || c == '-') && isDigit(l.peek(1)):
		return l.number(line, col)
	case isLetter(c) || c == '_':
		n := l.name()
		if keywords[n] {
			return tok(tokKeyword, n)
		}
		return tok(tokID, n)
	}

	l.advance()
	switch c {
	case '+':
		return tok(tokSymbol, "plus")
	case '-':
		return tok(tokSymbol, "minus")
	case '*':
		return tok(tokSymbol, "mult")
	case '/':
		return tok(tokSymbol, "div")
	case '^':
		return tok(tokSymbol, "power")
	case '=':
		return tok(tokSymbol, "equal")
	case '<':
		if l.peek(0) == '=' {
			l.advance()
			return tok(tokSymbol, "lessEq")
		}
		return tok(tokSymbol, "less")
	case '>':
		if l.peek(0) == '=' {
			l.advance()
			return tok(tokSymbol, "moreEq")
		}
		return tok(tokSymbol, "more")
	}
	return token{}, l.errorf(line, col, "unexpected character %q", c)
}

// number reads [+-]digits[.digits][e[+-]digits].
func (l *lexer) number(line, col int) (token, error) {
	var sb strings.Builder
	if c := l.peek(0); c == '+' || c == '-' {
		sb.WriteRune(l.advance())
	}
	digits := func() {
		for l.pos < len(l.src) && isDigit(l.peek(0)) {
			sb.WriteRune(l.advance())
		}
	}
	digits()
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		sb.WriteRune(l.advance())
		digits()
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		next := l.peek(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peek(2))) {
			sb.WriteRune(l.advance())
			if !isDigit(next) {
				sb.WriteRune(l.advance())
			}
			digits()
		}
	}
	text := sb.String()
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, l.errorf(line, col, "bad number %q", text)
	}
	return token{kind: tokNum, text: text, num: f, line: line, col: col}, nil
}
