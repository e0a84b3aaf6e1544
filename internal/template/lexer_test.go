package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tok struct {
	typ TokenType
	val string
}

func lex(t *testing.T, input string) []tok {
	t.Helper()
	tokens, err := NewLexer(input, "hub_view.sql").Tokenize()
	require.NoError(t, err)
	out := make([]tok, len(tokens))
	for i, tk := range tokens {
		out[i] = tok{tk.Type, tk.Value}
	}
	return out
}

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "plain sql",
			input: "SELECT customer_key FROM dv.customer_h",
			want:  []tok{{TokenText, "SELECT customer_key FROM dv.customer_h"}, {TokenEOF, ""}},
		},
		{
			name:  "expression",
			input: "CREATE VIEW {{ target_table.full_name }} AS",
			want: []tok{
				{TokenText, "CREATE VIEW "},
				{TokenExpr, "target_table.full_name"},
				{TokenText, " AS"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "adjacent expressions",
			input: "{{ src.schema }}.{{ src.name }}",
			want: []tok{
				{TokenExpr, "src.schema"},
				{TokenText, "."},
				{TokenExpr, "src.name"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "statement and comment",
			input: "{* for c in target_table.columns: *}{# one per column #}{{ c.name }}{* endfor *}",
			want: []tok{
				{TokenStmt, "for c in target_table.columns:"},
				{TokenComment, "one per column"},
				{TokenExpr, "c.name"},
				{TokenStmt, "endfor"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "whitespace is trimmed",
			input: "{{\tkey.name  }}{*  if root_key:  *}{{x}}",
			want:  []tok{{TokenExpr, "key.name"}, {TokenStmt, "if root_key:"}, {TokenExpr, "x"}, {TokenEOF, ""}},
		},
		{
			name:  "empty expression",
			input: "{{ }}",
			want:  []tok{{TokenExpr, ""}, {TokenEOF, ""}},
		},
		{
			name:  "dict literal",
			input: `{{ {"rec_src": "crm"}["rec_src"] }}`,
			want:  []tok{{TokenExpr, `{"rec_src": "crm"}["rec_src"]`}, {TokenEOF, ""}},
		},
		{
			name:  "closing delimiter inside a string",
			input: `{{ "}}" + x }} AND {* if y == '*}': *}`,
			want: []tok{
				{TokenExpr, `"}}" + x`},
				{TokenText, " AND "},
				{TokenStmt, `if y == '*}':`},
				{TokenEOF, ""},
			},
		},
		{
			name:  "escaped quote",
			input: `{{ "a\"}}b" }}`,
			want:  []tok{{TokenExpr, `"a\"}}b"`}, {TokenEOF, ""}},
		},
		{
			name:  "comment ignores quotes",
			input: `{# don't #}x`,
			want:  []tok{{TokenComment, "don't"}, {TokenText, "x"}, {TokenEOF, ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lex(t, tt.input))
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	input := "SELECT\n  {{ key.name }},\n{* for bk in business_keys: *}"
	tokens, err := NewLexer(input, "hub_view.sql").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 5)

	assert.Equal(t, Position{File: "hub_view.sql", Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Position{File: "hub_view.sql", Line: 2, Column: 3}, tokens[1].Pos)
	assert.Equal(t, Position{File: "hub_view.sql", Line: 3, Column: 1}, tokens[3].Pos)
	assert.Equal(t, 3, tokens[4].Pos.Line)
}

func TestLexer_Unclosed(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
		line    int
	}{
		{"SELECT {{ key.name FROM dv.customer_h", "hub_view.sql:1:8: unclosed expression: missing '}}'", 1},
		{"x\n{* for c in cols: SELECT", "hub_view.sql:2:1: unclosed statement: missing '*}'", 2},
		{"{# never closed", "hub_view.sql:1:1: unclosed comment: missing '#}'", 1},
		{`{{ "}} }}`, "hub_view.sql:1:1: unclosed expression: missing '}}'", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewLexer(tt.input, "hub_view.sql").Tokenize()
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, tt.line, lexErr.Position().Line)
		})
	}
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "EXPR", TokenExpr.String())
	assert.Equal(t, "COMMENT", TokenComment.String())
	assert.Equal(t, "UNKNOWN", TokenType(42).String())
}
