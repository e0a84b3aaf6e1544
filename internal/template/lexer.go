package template

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// Token types. Tag tokens carry the trimmed code between the delimiters.
const (
	TokenText    TokenType = iota // literal SQL
	TokenExpr                     // {{ expr }}
	TokenStmt                     // {* stmt *}
	TokenComment                  // {# comment #}, dropped by the parser
	TokenEOF
)

var tokenNames = [...]string{
	TokenText:    "TEXT",
	TokenExpr:    "EXPR",
	TokenStmt:    "STMT",
	TokenComment: "COMMENT",
	TokenEOF:     "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "UNKNOWN"
}

// Token is a lexical token of a SQL template.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// delimiter is a pair of tag delimiters. Starlark tags skip over string
// literals and brackets, so "}}" inside a string does not close the tag.
type delimiter struct {
	open     string
	close    string
	typ      TokenType
	name     string
	starlark bool
}

var delimiters = []delimiter{
	{open: "{{", close: "}}", typ: TokenExpr, name: "expression", starlark: true},
	{open: "{*", close: "*}", typ: TokenStmt, name: "statement", starlark: true},
	{open: "{#", close: "#}", typ: TokenComment, name: "comment"},
}

// Lexer splits a SQL template into text and tag tokens.
type Lexer struct {
	input string
	file  string
	off   int
	line  int
	col   int
}

// NewLexer creates a lexer for input. file is used in positions.
func NewLexer(input, file string) *Lexer {
	return &Lexer{input: input, file: file, line: 1, col: 1}
}

// Tokenize returns every token of the input, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for l.off < len(l.input) {
		start := l.pos()
		d, ok := l.opening()
		if !ok {
			tokens = append(tokens, l.scanText(start))
			continue
		}
		tok, err := l.scanTag(d, start)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return append(tokens, Token{Type: TokenEOF, Pos: l.pos()}), nil
}

// opening returns the delimiter that opens at the current offset.
func (l *Lexer) opening() (delimiter, bool) {
	rest := l.input[l.off:]
	for _, d := range delimiters {
		if strings.HasPrefix(rest, d.open) {
			return d, true
		}
	}
	return delimiter{}, false
}

// scanText consumes SQL up to the next tag. The current offset is not at a
// tag, so at least one rune is consumed.
func (l *Lexer) scanText(start Position) Token {
	from := l.off
	for l.off < len(l.input) {
		if _, ok := l.opening(); ok {
			break
		}
		l.next()
	}
	return Token{Type: TokenText, Value: l.input[from:l.off], Pos: start}
}

func (l *Lexer) scanTag(d delimiter, start Position) (Token, error) {
	l.skip(len(d.open))
	from := l.off

	var quote rune
	depth := 0
	for l.off < len(l.input) {
		if quote == 0 && depth == 0 && strings.HasPrefix(l.input[l.off:], d.close) {
			code := strings.TrimSpace(l.input[from:l.off])
			l.skip(len(d.close))
			return Token{Type: d.typ, Value: code, Pos: start}, nil
		}

		r := l.next()
		if !d.starlark {
			continue
		}
		switch {
		case quote != 0:
			if r == '\\' {
				l.next()
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{' || r == '[' || r == '(':
			depth++
		case (r == '}' || r == ']' || r == ')') && depth > 0:
			depth--
		}
	}

	return Token{}, NewLexError(start, fmt.Sprintf("unclosed %s: missing '%s'", d.name, d.close))
}

// next consumes one rune and returns it.
func (l *Lexer) next() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skip consumes n bytes of a delimiter, which never spans a newline.
func (l *Lexer) skip(n int) {
	l.off += n
	l.col += n
}

func (l *Lexer) pos() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}
