package template

import (
	"fmt"
	"strings"

	starctx "github.com/leapstack-labs/vaultgen/internal/starlark"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Renderer evaluates a parsed template against an execution context.
type Renderer struct {
	ctx *starctx.ExecutionContext
}

// NewRenderer creates a renderer bound to ctx.
func NewRenderer(ctx *starctx.ExecutionContext) *Renderer {
	return &Renderer{ctx: ctx}
}

// Render renders tmpl to a string.
func (r *Renderer) Render(tmpl *Template) (string, error) {
	var sb strings.Builder
	if err := r.renderNodes(&sb, tmpl.File, tmpl.Nodes, nil); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderString parses and renders input in one step.
func RenderString(input, file string, ctx *starctx.ExecutionContext, opts ...ParseOption) (string, error) {
	tmpl, err := ParseString(input, file, opts...)
	if err != nil {
		return "", err
	}
	return NewRenderer(ctx).Render(tmpl)
}

func (r *Renderer) renderNodes(sb *strings.Builder, file string, nodes []Node, locals starlark.StringDict) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *TextNode:
			sb.WriteString(n.Text)

		case *ExprNode:
			s, err := r.ctx.EvalString(n.Expr, file, n.Pos().Line, locals)
			if err != nil {
				return WrapRenderError(n.Pos(), n.Expr, err)
			}
			sb.WriteString(s)

		case *ForBlock:
			if err := r.renderFor(sb, file, n, locals); err != nil {
				return err
			}

		case *IfBlock:
			if err := r.renderIf(sb, file, n, locals); err != nil {
				return err
			}

		default:
			return NewRenderErrorf(node.Pos(), "unexpected node %T", node)
		}
	}
	return nil
}

func (r *Renderer) renderFor(sb *strings.Builder, file string, n *ForBlock, locals starlark.StringDict) error {
	v, err := r.ctx.Eval(n.Iter, file, n.Pos().Line, locals)
	if err != nil {
		return WrapRenderError(n.Pos(), n.Iter, err)
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return NewRenderErrorf(n.Pos(), "cannot iterate over %s", v.Type())
	}

	var items []starlark.Value
	iter := iterable.Iterate()
	var item starlark.Value
	for iter.Next(&item) {
		items = append(items, item)
	}
	iter.Done()

	for i, item := range items {
		scope := make(starlark.StringDict, len(locals)+len(n.Vars)+1)
		for k, v := range locals {
			scope[k] = v
		}
		scope["loop"] = loopInfo(i, len(items))

		if err := bindLoopVars(scope, n.Vars, item); err != nil {
			return WrapRenderError(n.Pos(), n.Target, err)
		}
		if err := r.renderNodes(sb, file, n.Body, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderIf(sb *strings.Builder, file string, n *IfBlock, locals starlark.StringDict) error {
	for _, b := range n.Branches {
		ok, err := r.truth(b.Condition, file, b.Pos(), locals)
		if err != nil {
			return err
		}
		if ok {
			return r.renderNodes(sb, file, b.Body, locals)
		}
	}
	return r.renderNodes(sb, file, n.Else, locals)
}

func (r *Renderer) truth(cond, file string, pos Position, locals starlark.StringDict) (bool, error) {
	v, err := r.ctx.Eval(cond, file, pos.Line, locals)
	if err != nil {
		return false, WrapRenderError(pos, cond, err)
	}
	return bool(v.Truth()), nil
}

func bindLoopVars(scope starlark.StringDict, names []string, item starlark.Value) error {
	if len(names) == 1 {
		scope[names[0]] = item
		return nil
	}
	seq, ok := item.(starlark.Indexable)
	if !ok {
		return fmt.Errorf("cannot unpack %s into %d loop variables", item.Type(), len(names))
	}
	if seq.Len() != len(names) {
		return fmt.Errorf("cannot unpack %s of length %d into %d loop variables", item.Type(), seq.Len(), len(names))
	}
	for i, name := range names {
		scope[name] = seq.Index(i)
	}
	return nil
}

// loopInfo is the "loop" variable available inside for bodies.
func loopInfo(i, length int) starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("loop"), starlark.StringDict{
		"index":  starlark.MakeInt(i + 1),
		"index0": starlark.MakeInt(i),
		"first":  starlark.Bool(i == 0),
		"last":   starlark.Bool(i == length-1),
		"length": starlark.MakeInt(length),
	})
}
