package template

import (
	"errors"
	"fmt"

	starctx "github.com/leapstack-labs/vaultgen/internal/starlark"
)

// Error is a template error located in a template file.
type Error interface {
	error
	Position() Position
}

// String formats p as file:line:column, or line:column without a file.
func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type located struct {
	pos Position
	msg string
}

func (e *located) Position() Position { return e.pos }
func (e *located) Error() string      { return e.pos.String() + ": " + e.msg }

// LexError is an unterminated or malformed tag.
type LexError struct{ located }

// NewLexError creates a lexer error.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{located{pos, msg}}
}

// ParseError is a statement the parser does not understand.
type ParseError struct{ located }

// NewParseErrorf creates a parser error.
func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return &ParseError{located{pos, fmt.Sprintf(format, args...)}}
}

// RenderError is a failure evaluating template code. Code is the expression,
// loop iterator or condition that failed, when there is one.
type RenderError struct {
	located
	Code  string
	Cause error
}

// NewRenderErrorf creates a render error without an underlying cause.
func NewRenderErrorf(pos Position, format string, args ...any) *RenderError {
	return &RenderError{located: located{pos, fmt.Sprintf(format, args...)}}
}

// WrapRenderError records that evaluating code failed with cause.
func WrapRenderError(pos Position, code string, cause error) *RenderError {
	return &RenderError{located: located{pos: pos}, Code: code, Cause: cause}
}

func (e *RenderError) Error() string {
	var evalErr *starctx.EvalError
	switch {
	case e.Code != "" && errors.As(e.Cause, &evalErr):
		return fmt.Sprintf("%s: %q: %s", e.pos, e.Code, evalErr.Message)
	case e.Code != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %q: %v", e.pos, e.Code, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.pos, e.Cause)
	default:
		return e.located.Error()
	}
}

func (e *RenderError) Unwrap() error { return e.Cause }

// unmatched describes each block statement found without its counterpart.
var unmatched = map[StmtKind]string{
	StmtFor:    "'for' block is never closed by 'endfor'",
	StmtIf:     "'if' block is never closed by 'endif'",
	StmtEndFor: "'endfor' has no opening 'for'",
	StmtEndIf:  "'endif' has no opening 'if'",
	StmtElse:   "'else' has no opening 'if'",
	StmtElif:   "'elif' has no opening 'if'",
}

// UnmatchedBlockError is a block statement without its counterpart.
type UnmatchedBlockError struct {
	located
	BlockKind StmtKind
}

// NewUnmatchedBlockError creates an unmatched block error for kind.
func NewUnmatchedBlockError(pos Position, kind StmtKind) *UnmatchedBlockError {
	msg, ok := unmatched[kind]
	if !ok {
		msg = fmt.Sprintf("unmatched %s statement", kind)
	}
	return &UnmatchedBlockError{located{pos, msg}, kind}
}

// TargetError is a failure producing one generated file: the template could
// not be read, parsed or rendered for the target table.
type TargetError struct {
	Target   string // schema-qualified target table
	Template string // template file, relative to the template root
	Err      error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Target, e.Template, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// Position returns where in the template the failure happened. It reports
// false when the failure has no location, such as a missing template.
func (e *TargetError) Position() (Position, bool) {
	var te Error
	if errors.As(e.Err, &te) {
		return te.Position(), true
	}
	return Position{}, false
}
