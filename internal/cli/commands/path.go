package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// NewPathCommand creates the path command.
func NewPathCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path <target>",
		Short: "Show the lineage path of a version pointer",
		Long: `Show the lineage path of a version pointer: the chain of hub, link and
satellite key columns that leads from the pointer's key to its
satellite, and the join chain the generated SQL uses to walk it.`,
		Example: `  # Show the path of a version pointer
  vaultgen path customer_order_vp

  # Show the path as JSON
  vaultgen path dv.customer_order_vp --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(cmd, args[0])
		},
	}

	return cmd
}

func runPath(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	path, err := eng.Path(name)
	if err != nil {
		return err
	}
	joins, err := eng.PathJoins(name)
	if err != nil {
		return err
	}
	target, err := eng.Project().Target(name)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(pathJSON(target.FullName(), path, joins))
	case output.ModeMarkdown:
		r.Header(1, "Path: "+target.FullName())
		r.Println(output.FormatHeader(2, "Columns"))
		r.Println("")
		r.Println(output.FormatList(columnNames(path)))
		r.Println("")
		r.Println(output.FormatHeader(2, "Joins"))
		r.Println("")
		r.Table(joinHeader, joinRows(joins))
	default:
		r.Header(1, "Path: "+target.FullName())
		for i, c := range path {
			r.Printf("  %2d. %s\n", i+1, c.FullName())
		}
		r.Println("")
		r.Table(joinHeader, joinRows(joins))
	}
	return nil
}

var joinHeader = []string{"Alias", "Table", "From", "To", "Joined On"}

func joinRows(joins []mapping.Join) [][]string {
	rows := make([][]string, len(joins))
	for i, j := range joins {
		on := ""
		if j.PrevAlias != "" {
			on = fmt.Sprintf("%s.%s", j.PrevAlias, j.PrevColumn)
		}
		rows[i] = []string{j.Alias, j.Table.FullName(), j.Column, j.LastColumn, on}
	}
	return rows
}

func pathJSON(target string, path []*model.Column, joins []mapping.Join) output.PathOutput {
	out := output.PathOutput{
		Target:  target,
		Columns: columnNames(path),
		Joins:   make([]output.JoinInfo, len(joins)),
	}
	for i, j := range joins {
		out.Joins[i] = output.JoinInfo{
			Alias:      j.Alias,
			Table:      j.Table.FullName(),
			Column:     j.Column,
			LastColumn: j.LastColumn,
			PrevAlias:  j.PrevAlias,
			PrevColumn: j.PrevColumn,
		}
	}
	return out
}

// columnNames returns fully qualified column names.
func columnNames(cols []*model.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.FullName()
	}
	return names
}
