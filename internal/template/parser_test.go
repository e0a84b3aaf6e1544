package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string, opts ...ParseOption) *Template {
	t.Helper()
	tmpl, err := ParseString(input, "hub_view.sql", opts...)
	require.NoError(t, err)
	return tmpl
}

func TestParser_TextAndExpressions(t *testing.T) {
	tmpl := parse(t, "CREATE VIEW {{ target_table }} AS\nSELECT {{ target_table.key }}{# hash key #}")
	assert.Equal(t, "hub_view.sql", tmpl.File)
	require.Len(t, tmpl.Nodes, 4, "the comment is dropped")

	assert.Equal(t, "CREATE VIEW ", tmpl.Nodes[0].(*TextNode).Text)
	assert.Equal(t, "target_table", tmpl.Nodes[1].(*ExprNode).Expr)
	assert.Equal(t, " AS\nSELECT ", tmpl.Nodes[2].(*TextNode).Text)

	key := tmpl.Nodes[3].(*ExprNode)
	assert.Equal(t, "target_table.key", key.Expr)
	assert.Equal(t, Position{File: "hub_view.sql", Line: 2, Column: 8}, key.Pos())
}

func TestParser_For(t *testing.T) {
	tests := []struct {
		input  string
		target string
		vars   []string
		iter   string
	}{
		{`{* for c in target_table.business_keys: *}{{ c }}{* endfor *}`, "c", []string{"c"}, "target_table.business_keys"},
		{`{* for c in target_table.columns *}{{ c }}{* endfor *}`, "c", []string{"c"}, "target_table.columns"},
		{`{* for i, src in enumerate(mappings.source_tables(target_table)): *}{{ i }}{* endfor *}`,
			"i, src", []string{"i", "src"}, "enumerate(mappings.source_tables(target_table))"},
		{`{*for  fk,col in pairs :*}x{*endfor*}`, "fk,col", []string{"fk", "col"}, "pairs"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tmpl := parse(t, tt.input)
			require.Len(t, tmpl.Nodes, 1)
			block, ok := tmpl.Nodes[0].(*ForBlock)
			require.True(t, ok, "got %T", tmpl.Nodes[0])
			assert.Equal(t, tt.target, block.Target)
			assert.Equal(t, tt.vars, block.Vars)
			assert.Equal(t, tt.iter, block.Iter)
			assert.Len(t, block.Body, 1)
		})
	}
}

func TestParser_If(t *testing.T) {
	tmpl := parse(t, `{* if config["generate_type"] == "table": *}TABLE`+
		`{* elif config["generate_type"] == "etl": *}INSERT`+
		`{* elif loop: *}{* else: *}VIEW{* endif *}`)
	require.Len(t, tmpl.Nodes, 1)
	block, ok := tmpl.Nodes[0].(*IfBlock)
	require.True(t, ok, "got %T", tmpl.Nodes[0])

	require.Len(t, block.Branches, 3)
	assert.Equal(t, `config["generate_type"] == "table"`, block.Branches[0].Condition)
	assert.Equal(t, "TABLE", block.Branches[0].Body[0].(*TextNode).Text)
	assert.Equal(t, `config["generate_type"] == "etl"`, block.Branches[1].Condition)
	assert.Equal(t, 1, block.Branches[1].Pos().Line)
	assert.Empty(t, block.Branches[2].Body)
	assert.Equal(t, "VIEW", block.Else[0].(*TextNode).Text)
	assert.Equal(t, block.Branches[0].Pos(), block.Pos())
}

func TestParser_IfWithoutElse(t *testing.T) {
	block := parse(t, `{* if target_table.root_key: *}x{* endif *}`).Nodes[0].(*IfBlock)
	assert.Len(t, block.Branches, 1)
	assert.Nil(t, block.Else)

	block = parse(t, `{* if target_table.root_key: *}x{* else: *}{* endif *}`).Nodes[0].(*IfBlock)
	assert.NotNil(t, block.Else, "an empty else is kept")
	assert.Empty(t, block.Else)
}

func TestParser_Nested(t *testing.T) {
	tmpl := parse(t, `{* for fk in target_table.foreign_keys: *}{* if not loop.first: *} AND {* endif *}{{ fk }}{* endfor *}`)
	block := tmpl.Nodes[0].(*ForBlock)
	require.Len(t, block.Body, 2)
	inner, ok := block.Body[0].(*IfBlock)
	require.True(t, ok, "got %T", block.Body[0])
	assert.Equal(t, "not loop.first", inner.Branches[0].Condition)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unclosed for", "{* for c in cols: *}\n{{ c }}", "hub_view.sql:1:1: 'for' block is never closed by 'endfor'"},
		{"unclosed if", "SELECT\n{* if x: *}a{* elif y: *}b", "hub_view.sql:2:1: 'if' block is never closed by 'endif'"},
		{"unclosed else", "{* if x: *}a{* else: *}b", "hub_view.sql:1:1: 'if' block is never closed by 'endif'"},
		{"stray endfor", "{{ x }}\n{* endfor *}", "hub_view.sql:2:1: 'endfor' has no opening 'for'"},
		{"stray else", "{* else: *}", "hub_view.sql:1:1: 'else' has no opening 'if'"},
		{"stray elif", "a {* elif x: *}", "hub_view.sql:1:3: 'elif' has no opening 'if'"},
		{"endif closing for", "{* for c in cols: *}{* endif *}", "hub_view.sql:1:21: 'endif' has no opening 'if'"},
		{"unknown statement", "{* while x: *}", `hub_view.sql:1:1: unknown statement "while"`},
		{"invalid loop variable", "{* for 1c in cols: *}{* endfor *}", `hub_view.sql:1:1: invalid loop variable "1c"`},
		{"empty loop variable", "{* for a, in cols: *}{* endfor *}", `hub_view.sql:1:1: invalid loop variable ""`},
		{"for without in", "{* for c *}{* endfor *}", `hub_view.sql:1:1: invalid for statement "for c": expected 'for x in items'`},
		{"if without condition", "{* if: *}{* endif *}", "hub_view.sql:1:1: if statement without condition"},
		{"text after endif", "{* if a: *}{* endif a *}", `hub_view.sql:1:12: unexpected "a" after endif`},
		{"empty expression", "SELECT {{  }}", "hub_view.sql:1:8: empty expression"},
		{"lexer error", "{# open", "hub_view.sql:1:1: unclosed comment: missing '#}'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input, "hub_view.sql")
			require.EqualError(t, err, tt.wantErr)

			var posErr Error
			assert.True(t, errors.As(err, &posErr), "%T carries a position", err)
		})
	}
}

func TestParser_UnmatchedBlockKind(t *testing.T) {
	_, err := ParseString("{* endfor *}", "hub_view.sql")
	var unmatchedErr *UnmatchedBlockError
	require.True(t, errors.As(err, &unmatchedErr))
	assert.Equal(t, StmtEndFor, unmatchedErr.BlockKind)
	assert.Equal(t, "endfor", unmatchedErr.BlockKind.String())
	assert.Equal(t, "unknown", StmtKind(0).String())
}

func TestParser_BlockTrimming(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []ParseOption
		want  []string
	}{
		{"trim removes newline after tag", "{* if a: *}\nssn\n{* endif *}\nFROM", []ParseOption{WithTrimBlocks()}, []string{"ssn\n", "FROM"}},
		{"trim removes crlf", "{* if a: *}\r\nssn{* endif *}", []ParseOption{WithTrimBlocks()}, []string{"ssn"}},
		{"lstrip removes indentation", "SELECT\n    {* if a: *}ssn{* endif *}", []ParseOption{WithLstripBlocks()}, []string{"SELECT\n", "ssn"}},
		{"lstrip keeps text on the line", "SELECT  {* if a: *}ssn{* endif *}", []ParseOption{WithLstripBlocks()}, []string{"SELECT  ", "ssn"}},
		{"lstrip at template start", "  {* if a: *}ssn{* endif *}", []ParseOption{WithLstripBlocks()}, []string{"ssn"}},
		{"expressions are not trimmed", "  {{ c }}\n", []ParseOption{WithBlockTrimming()}, []string{"  ", "\n"}},
		{"comments trim like statements", "SELECT\n  {# keys #}\nssn", []ParseOption{WithBlockTrimming()}, []string{"SELECT\n", "ssn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(parse(t, tt.input, tt.opts...).Nodes))
		})
	}
}

// texts returns the text of every TextNode in document order.
func texts(nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			out = append(out, n.Text)
		case *ForBlock:
			out = append(out, texts(n.Body)...)
		case *IfBlock:
			for _, b := range n.Branches {
				out = append(out, texts(b.Body)...)
			}
			out = append(out, texts(n.Else)...)
		}
	}
	return out
}
