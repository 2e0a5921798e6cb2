// Package errors defines the error taxonomy shared by every stage of
// the pipeline: lexer, parser, evaluator, and dialogue engine.
package errors

import "fmt"

// Kind classifies a BotError by which stage raised it and what it
// means for the caller: the first three are always fatal, RuntimeError
// aborts only the current turn, and ExternalError originates outside
// the core.
type Kind string

const (
	LexicalError  Kind = "LexicalError"
	ParseError    Kind = "ParseError"
	SemanticError Kind = "SemanticError"
	RuntimeError  Kind = "RuntimeError"
	ExternalError Kind = "ExternalError"
)

// BotError carries the kind, message, and source line of the node
// that caused it.
type BotError struct {
	Kind    Kind
	Message string
	Line    int
}

func (e *BotError) Error() string {
	return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
}

func New(kind Kind, line int, format string, args ...interface{}) *BotError {
	return &BotError{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line}
}

func Lexical(line int, format string, args ...interface{}) *BotError {
	return New(LexicalError, line, format, args...)
}

func Parse(line int, format string, args ...interface{}) *BotError {
	return New(ParseError, line, format, args...)
}

func Semantic(line int, format string, args ...interface{}) *BotError {
	return New(SemanticError, line, format, args...)
}

func Runtime(line int, format string, args ...interface{}) *BotError {
	return New(RuntimeError, line, format, args...)
}

func External(line int, format string, args ...interface{}) *BotError {
	return New(ExternalError, line, format, args...)
}

// Is reports whether err is a *BotError of the given kind.
func Is(err error, kind Kind) bool {
	be, ok := err.(*BotError)
	return ok && be.Kind == kind
}
