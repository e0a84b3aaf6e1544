package template

import (
	"regexp"
	"slices"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseOption configures parsing.
type ParseOption func(*parseOptions)

type parseOptions struct {
	trimBlocks   bool
	lstripBlocks bool
}

// WithTrimBlocks removes the first newline after a statement or comment tag.
func WithTrimBlocks() ParseOption {
	return func(o *parseOptions) { o.trimBlocks = true }
}

// WithLstripBlocks removes spaces and tabs between the start of a line and a
// statement or comment tag.
func WithLstripBlocks() ParseOption {
	return func(o *parseOptions) { o.lstripBlocks = true }
}

// WithBlockTrimming enables both WithTrimBlocks and WithLstripBlocks.
func WithBlockTrimming() ParseOption {
	return func(o *parseOptions) {
		o.trimBlocks = true
		o.lstripBlocks = true
	}
}

// ParseString tokenizes and parses a template.
func ParseString(input, file string, opts ...ParseOption) (*Template, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: trimBlocks(tokens, o)}

	nodes, stray, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if stray != nil {
		return nil, NewUnmatchedBlockError(stray.pos, stray.kind)
	}
	return &Template{File: file, Nodes: nodes}, nil
}

// statement is a classified {* stmt *} tag.
type statement struct {
	at
	kind   StmtKind
	code   string   // condition or loop iterator
	target string   // loop target as written
	vars   []string // loop variables
}

type parser struct {
	tokens []Token
	next   int
}

// parseNodes consumes nodes up to EOF or up to a statement of one of the
// kinds in until, which is consumed and returned.
func (p *parser) parseNodes(until ...StmtKind) ([]Node, *statement, error) {
	var nodes []Node
	for p.next < len(p.tokens) {
		tok := p.tokens[p.next]
		p.next++

		switch tok.Type {
		case TokenText:
			nodes = append(nodes, &TextNode{at{tok.Pos}, tok.Value})

		case TokenExpr:
			if tok.Value == "" {
				return nil, nil, NewParseErrorf(tok.Pos, "empty expression")
			}
			nodes = append(nodes, &ExprNode{at{tok.Pos}, tok.Value})

		case TokenStmt:
			st, err := readStatement(tok)
			if err != nil {
				return nil, nil, err
			}
			if slices.Contains(until, st.kind) {
				return nodes, st, nil
			}
			var block Node
			switch st.kind {
			case StmtFor:
				block, err = p.parseFor(st)
			case StmtIf:
				block, err = p.parseIf(st)
			default:
				err = NewUnmatchedBlockError(st.pos, st.kind)
			}
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, block)

		case TokenEOF:
			return nodes, nil, nil
		}
	}
	return nodes, nil, nil
}

func (p *parser) parseFor(st *statement) (*ForBlock, error) {
	body, end, err := p.parseNodes(StmtEndFor)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, NewUnmatchedBlockError(st.pos, StmtFor)
	}
	return &ForBlock{at: st.at, Target: st.target, Vars: st.vars, Iter: st.code, Body: body}, nil
}

func (p *parser) parseIf(st *statement) (*IfBlock, error) {
	block := &IfBlock{at: st.at}
	for cond := st; ; {
		body, end, err := p.parseNodes(StmtElif, StmtElse, StmtEndIf)
		if err != nil {
			return nil, err
		}
		if end == nil {
			return nil, NewUnmatchedBlockError(st.pos, StmtIf)
		}
		block.Branches = append(block.Branches, Branch{at: cond.at, Condition: cond.code, Body: body})

		switch end.kind {
		case StmtEndIf:
			return block, nil
		case StmtElif:
			cond = end
		case StmtElse:
			body, end, err = p.parseNodes(StmtEndIf)
			if err != nil {
				return nil, err
			}
			if end == nil {
				return nil, NewUnmatchedBlockError(st.pos, StmtIf)
			}
			block.Else = append([]Node{}, body...)
			return block, nil
		}
	}
}

// readStatement classifies the code of a {* ... *} tag. The colon ending
// for, if, elif and else is optional.
func readStatement(tok Token) (*statement, error) {
	code := strings.TrimSpace(strings.TrimSuffix(tok.Value, ":"))
	keyword, rest, _ := strings.Cut(code, " ")
	rest = strings.TrimSpace(rest)

	kind, ok := stmtKeywords[keyword]
	if !ok {
		return nil, NewParseErrorf(tok.Pos, "unknown statement %q", keyword)
	}
	st := &statement{at: at{tok.Pos}, kind: kind, code: rest}

	switch kind {
	case StmtFor:
		target, iter, ok := strings.Cut(rest, " in ")
		iter = strings.TrimSpace(iter)
		if !ok || iter == "" {
			return nil, NewParseErrorf(tok.Pos, "invalid for statement %q: expected 'for x in items'", tok.Value)
		}
		st.target = strings.TrimSpace(target)
		for _, v := range strings.Split(st.target, ",") {
			v = strings.TrimSpace(v)
			if !identPattern.MatchString(v) {
				return nil, NewParseErrorf(tok.Pos, "invalid loop variable %q", v)
			}
			st.vars = append(st.vars, v)
		}
		st.code = iter

	case StmtIf, StmtElif:
		if rest == "" {
			return nil, NewParseErrorf(tok.Pos, "%s statement without condition", keyword)
		}

	default:
		if rest != "" {
			return nil, NewParseErrorf(tok.Pos, "unexpected %q after %s", rest, keyword)
		}
	}
	return st, nil
}

// trimBlocks applies the block trimming options to the text around statement
// and comment tags. Text emptied by trimming is removed.
func trimBlocks(tokens []Token, o parseOptions) []Token {
	if !o.trimBlocks && !o.lstripBlocks {
		return tokens
	}

	isBlock := func(i int) bool {
		return i >= 0 && i < len(tokens) && (tokens[i].Type == TokenStmt || tokens[i].Type == TokenComment)
	}

	if o.lstripBlocks {
		for i := range tokens {
			if tokens[i].Type != TokenText || !isBlock(i+1) {
				continue
			}
			text := tokens[i].Value
			lineStart := strings.LastIndexByte(text, '\n') + 1
			if lineStart == 0 && i > 0 {
				// The tag does not start a line.
				continue
			}
			if strings.Trim(text[lineStart:], " \t") == "" {
				tokens[i].Value = text[:lineStart]
			}
		}
	}

	if o.trimBlocks {
		for i := range tokens {
			if tokens[i].Type != TokenText || !isBlock(i-1) {
				continue
			}
			text := tokens[i].Value
			switch {
			case strings.HasPrefix(text, "\r\n"):
				tokens[i].Value = text[2:]
			case strings.HasPrefix(text, "\n"):
				tokens[i].Value = text[1:]
			}
		}
	}

	out := tokens[:0]
	for _, tok := range tokens {
		if tok.Type == TokenText && tok.Value == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}
