// Package template renders the SQL generation templates. Expressions in
// {{ expr }} and conditions in {* stmt *} are Starlark; {# ... #} is a comment.
// Block trimming removes the newline after a statement tag and the indentation
// before it, so control flow does not leave blank lines in the generated SQL.
package template

// Position locates a token in a template file. Lines and columns count from 1.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is a node of a parsed template: *TextNode, *ExprNode, *ForBlock or
// *IfBlock.
type Node interface {
	Pos() Position
	node()
}

type at struct{ pos Position }

func (a at) Pos() Position { return a.pos }
func (at) node()           {}

// TextNode is SQL copied to the output unchanged.
type TextNode struct {
	at
	Text string
}

// ExprNode is a {{ expr }} tag.
type ExprNode struct {
	at
	Expr string
}

// ForBlock is {* for target in iter: *} ... {* endfor *}. With several loop
// variables each item is unpacked positionally, and loop describes the
// iteration inside the body.
type ForBlock struct {
	at
	Target string   // as written, e.g. "i, col"
	Vars   []string // e.g. ["i", "col"]
	Iter   string
	Body   []Node
}

// IfBlock is an if statement with its elif branches, in source order. Else
// is nil without an else branch.
type IfBlock struct {
	at
	Branches []Branch
	Else     []Node
}

// Branch is the if or an elif of an IfBlock.
type Branch struct {
	at
	Condition string
	Body      []Node
}

// Template is a parsed template file.
type Template struct {
	File  string
	Nodes []Node
}

// StmtKind is the keyword of a {* stmt *} tag.
type StmtKind int

// Statement keywords.
const (
	StmtFor StmtKind = iota + 1
	StmtEndFor
	StmtIf
	StmtElif
	StmtElse
	StmtEndIf
)

var stmtKeywords = map[string]StmtKind{
	"for":    StmtFor,
	"endfor": StmtEndFor,
	"if":     StmtIf,
	"elif":   StmtElif,
	"else":   StmtElse,
	"endif":  StmtEndIf,
}

func (k StmtKind) String() string {
	for kw, kind := range stmtKeywords {
		if kind == k {
			return kw
		}
	}
	return "unknown"
}
