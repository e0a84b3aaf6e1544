package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/engine"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [target...]",
		Short: "Validate targets against their metadata and mappings",
		Long: `Check that every target can be generated: its columns cover the roles of
its kind, it has a primary key, every column is mapped and, for version
pointers, the lineage path resolves.

Without arguments every target is checked. The command fails when any
target fails.`,
		Example: `  # Check every target
  vaultgen check

  # Check one hub and one satellite
  vaultgen check customer_h dv.customer_s

  # Check as JSON
  vaultgen check --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command, names []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := cmdCtx.Engine.Check(names)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(checkJSON(results, failed)); err != nil {
			return err
		}
	case output.ModeMarkdown:
		checkMarkdown(r, results)
	default:
		checkText(r, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed the check", failed, len(results))
	}
	return nil
}

func checkText(r *output.Renderer, results []engine.CheckResult) {
	r.Header(1, fmt.Sprintf("Checked %d targets", len(results)))
	for _, res := range results {
		name := res.Target.FullName()
		if res.OK() {
			r.StatusLine(name, "generated", res.Target.Kind.String())
		} else {
			r.StatusLine(name, "failed", res.Err.Error())
		}
		for _, w := range res.Warnings {
			r.Warning(fmt.Sprintf("%s: %s", name, w.Message))
		}
	}
}

func checkMarkdown(r *output.Renderer, results []engine.CheckResult) {
	r.Header(1, fmt.Sprintf("Checked %d targets", len(results)))
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		result := "ok"
		if !res.OK() {
			result = res.Err.Error()
		}
		rows = append(rows, []string{res.Target.FullName(), output.Title(res.Target.Kind.String()), result, warningText(res)})
	}
	r.Table([]string{"Target", "Kind", "Result", "Warnings"}, rows)
}

func checkJSON(results []engine.CheckResult, failed int) output.CheckOutput {
	out := output.CheckOutput{Targets: make([]output.CheckResult, 0, len(results)), Failed: failed}
	for _, res := range results {
		cr := output.CheckResult{
			Target: res.Target.FullName(),
			Kind:   res.Target.Kind.String(),
			OK:     res.OK(),
		}
		if res.Err != nil {
			cr.Error = res.Err.Error()
		}
		for _, w := range res.Warnings {
			cr.Warnings = append(cr.Warnings, w.Message)
		}
		out.Targets = append(out.Targets, cr)
	}
	return out
}

func warningText(res engine.CheckResult) string {
	msgs := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, "; ")
}
