package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <target>",
		Short: "Render the SQL of a target without writing it",
		Long: `Render the SQL files of a target with templates and macros expanded.
Nothing is written to the output directory and no run is recorded.

Output adapts to environment:
  - Terminal: Plain SQL, each file preceded by a "-- <path>" line
  - Piped/Scripted: Markdown with one code block per file`,
		Example: `  # Render a hub
  vaultgen render customer_h

  # Render and save to file
  vaultgen render dv.customer_s > customer_s.sql

  # Render as JSON
  vaultgen render customer_h --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0])
		},
	}

	return cmd
}

func runRender(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	outputs, err := cmdCtx.Engine.Render(name)
	if err != nil {
		return fmt.Errorf("failed to render target: %w", err)
	}
	target, err := cmdCtx.Engine.Project().Target(name)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.RenderOutput{Target: target.FullName(), Files: make([]output.FileInfo, len(outputs))}
		for i, o := range outputs {
			out.Files[i] = output.FileInfo{Path: o.Path, SQL: o.SQL}
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Header(1, "Rendered SQL: "+target.FullName())
		for _, o := range outputs {
			r.Println(output.FormatHeader(2, o.Path))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", o.SQL))
			r.Println("")
		}
	default:
		for _, o := range outputs {
			r.Println("-- " + o.Path)
			r.Println(o.SQL)
		}
	}
	return nil
}
