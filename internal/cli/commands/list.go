package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/engine"
	"github.com/leapstack-labs/vaultgen/internal/generator"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all targets and their dependencies",
		Long: `List every Data Vault target of the project with its kind, generate
type, source tables, dependencies and the status of the last run.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List all targets (auto-detect output format)
  vaultgen list

  # List targets as JSON
  vaultgen list --output json

  # List targets as Markdown (for agents/scripts)
  vaultgen list --output markdown`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	infos, err := targetInfos(ctx, cmdCtx.Engine)
	if err != nil {
		return err
	}
	p := cmdCtx.Engine.Project()

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.ListOutput{Schema: p.Schema.Name, Targets: infos, Tables: len(p.Tables)})
	case output.ModeMarkdown:
		listMarkdown(r, p.Schema.Name, infos)
	default:
		r.Header(1, fmt.Sprintf("Targets of %s (%d total)", p.Schema.Name, len(infos)))
		rows := make([][]string, len(infos))
		for i, ti := range infos {
			rows[i] = []string{
				ti.Name,
				output.Title(ti.Kind),
				ti.GenerateType,
				strings.Join(ti.Dependencies, ", "),
				ti.LastStatus,
			}
		}
		r.Table([]string{"Target", "Kind", "Generate", "Depends On", "Last Run"}, rows)
	}
	return nil
}

func listMarkdown(r *output.Renderer, schema string, infos []output.TargetInfo) {
	r.Header(1, fmt.Sprintf("Targets of %s (%d total)", schema, len(infos)))
	for _, ti := range infos {
		r.Println(output.FormatHeader(2, ti.Name))
		r.Println(output.FormatKeyValue("Kind", output.Title(ti.Kind)))
		r.Println(output.FormatKeyValue("Generate", ti.GenerateType))
		r.Println(output.FormatKeyValue("Columns", strings.Join(ti.Columns, ", ")))
		if len(ti.Sources) > 0 {
			r.Println(output.FormatKeyValue("Sources", strings.Join(ti.Sources, ", ")))
		}
		if len(ti.Dependencies) > 0 {
			r.Println(output.FormatKeyValue("Dependencies", strings.Join(ti.Dependencies, ", ")))
		}
		if len(ti.Dependents) > 0 {
			r.Println(output.FormatKeyValue("Dependents", strings.Join(ti.Dependents, ", ")))
		}
		if ti.LastStatus != "" {
			r.Println(output.FormatKeyValue("Last Run", ti.LastStatus))
		}
		r.Println("")
	}
}

// targetInfos describes every target in execution order.
func targetInfos(ctx context.Context, eng *engine.Engine) ([]output.TargetInfo, error) {
	p := eng.Project()

	order, err := p.Graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	lastStatus := make(map[string]string)
	history, err := eng.History(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		for _, tr := range history[0].Targets {
			lastStatus[tr.Target] = string(tr.Status)
		}
	}

	infos := make([]output.TargetInfo, 0, len(order))
	for _, node := range order {
		t := node.Value
		gt, err := generator.GenerateTypeOf(t)
		if err != nil {
			gt = "invalid"
		}
		infos = append(infos, output.TargetInfo{
			Name:         t.FullName(),
			Kind:         t.Kind.String(),
			GenerateType: string(gt),
			Columns:      model.ColumnNames(t.Columns),
			Sources:      tableNames(p.Mappings.SourceTables(t)),
			Dependencies: nonNil(p.Graph.Parents(node.ID)),
			Dependents:   nonNil(p.Graph.Children(node.ID)),
			LastStatus:   lastStatus[t.FullName()],
		})
	}
	return infos, nil
}

func tableNames(tables []*model.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.FullName()
	}
	return names
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
