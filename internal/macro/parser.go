package macro

import (
	"fmt"
	"os"
	"strings"

	"go.starlark.net/syntax"
)

// ParsedFunction is a public function of a macro file.
type ParsedFunction struct {
	Name      string   `json:"name"`
	Args      []string `json:"args"` // "x", "sep=','", "*cols" or "**opts"
	Docstring string   `json:"docstring"`
	Line      int      `json:"line"`
}

// ParsedNamespace describes a macro file without executing it.
type ParsedNamespace struct {
	Name      string            `json:"name"`
	FilePath  string            `json:"file_path"`
	Functions []*ParsedFunction `json:"functions"`
}

// Signature formats f as it is called from a template, e.g. key(*cols).
func (f *ParsedFunction) Signature() string {
	return f.Name + "(" + strings.Join(f.Args, ", ") + ")"
}

// HasDocstring reports whether f is documented.
func (f *ParsedFunction) HasDocstring() bool { return f.Docstring != "" }

// ParseFile lists the public top-level functions of a macro file in source
// order.
func ParseFile(path string, src []byte) (*ParsedNamespace, error) {
	name, err := namespaceOf(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	f, err := fileOptions.Parse(path, src, 0)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	ns := &ParsedNamespace{Name: name, FilePath: path}
	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		fn := &ParsedFunction{
			Name:      def.Name.Name,
			Docstring: docstring(def.Body),
			Line:      int(def.Name.NamePos.Line),
		}
		for _, p := range def.Params {
			if arg := param(p); arg != "" {
				fn.Args = append(fn.Args, arg)
			}
		}
		ns.Functions = append(ns.Functions, fn)
	}
	return ns, nil
}

// ParseDir parses every macro file of dir in file name order. A missing
// directory yields no namespaces.
func ParseDir(dir string) ([]*ParsedNamespace, error) {
	files, err := starFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*ParsedNamespace, 0, len(files))
	for _, file := range files {
		src, err := os.ReadFile(file) //nolint:gosec // G304: file is a .star file of the macros directory
		if err != nil {
			return nil, &LoadError{Path: file, Err: err}
		}
		ns, err := ParseFile(file, src)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, nil
}

func param(p syntax.Expr) string {
	switch p := p.(type) {
	case *syntax.Ident:
		return p.Name
	case *syntax.BinaryExpr: // x=default
		if id, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
			return id.Name + "=" + defaultValue(p.Y)
		}
	case *syntax.UnaryExpr:
		switch id, _ := p.X.(*syntax.Ident); {
		case id == nil: // bare * separating keyword-only parameters
			return "*"
		case p.Op == syntax.STARSTAR:
			return "**" + id.Name
		default:
			return "*" + id.Name
		}
	}
	return ""
}

func defaultValue(e syntax.Expr) string {
	switch e := e.(type) {
	case *syntax.Literal:
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.UnaryExpr:
		return e.Op.String() + defaultValue(e.X)
	case *syntax.ListExpr:
		if len(e.List) == 0 {
			return "[]"
		}
	case *syntax.DictExpr:
		if len(e.List) == 0 {
			return "{}"
		}
	}
	return "..."
}

func docstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	stmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := stmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(lit.Value))
}
