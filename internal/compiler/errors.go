package compiler

import "fmt"

// SyntaxError reports input that does not follow the domain language
// grammar.
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s", fileOrInput(e.File), e.Line, e.Column, e.Msg)
}

// SemanticError reports well-formed input the compiler cannot accept:
// non-ground initial atoms, variable atoms, unknown tasks or comparators,
// and problems that name a different domain.
type SemanticError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SemanticError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", fileOrInput(e.File), e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", fileOrInput(e.File), e.Line, e.Column, e.Msg)
}

func fileOrInput(name string) string {
	if name == "" {
		return "<input>"
	}
	return name
}
