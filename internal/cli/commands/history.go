package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/engine"
)

// DefaultHistoryLimit is the number of runs shown by default.
const DefaultHistoryLimit = 10

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past generation runs",
		Long: `Show the latest generation runs of the current environment, newest
first, with the outcome of every target.`,
		Example: `  # Show the last 10 runs
  vaultgen history

  # Show the last run of the prod environment as JSON
  vaultgen history --env prod --limit 1 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultHistoryLimit, "Number of runs to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// History only needs the state store, not a discovered project.
	eng, err := createEngine(ctx, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	history, err := eng.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(historyJSON(history))
	case output.ModeMarkdown:
		r.Header(1, fmt.Sprintf("Runs of %s (%d)", cmdCtx.Cfg.Environment, len(history)))
		rows := make([][]string, len(history))
		for i, h := range history {
			rows[i] = []string{h.Run.ID, string(h.Run.Status), h.Run.StartedAt.Format(time.RFC3339), fmt.Sprintf("%d", len(h.Targets)), h.Run.Error}
		}
		r.Table([]string{"Run", "Status", "Started", "Targets", "Error"}, rows)
	default:
		r.Header(1, fmt.Sprintf("Runs of %s (%d)", cmdCtx.Cfg.Environment, len(history)))
		if len(history) == 0 {
			r.Muted("No runs recorded")
			return nil
		}
		for _, h := range history {
			detail := h.Run.StartedAt.Local().Format(time.DateTime)
			if h.Run.Error != "" {
				detail += " " + h.Run.Error
			}
			r.StatusLine(h.Run.ID, string(h.Run.Status), detail)
			for _, t := range h.Targets {
				r.Printf("    %s %s\n", r.Styles().StatusIcon(string(t.Status)), t.Target)
			}
		}
	}
	return nil
}

func historyJSON(history []engine.RunHistory) output.HistoryOutput {
	out := output.HistoryOutput{Runs: make([]output.RunInfo, len(history))}
	for i, h := range history {
		ri := output.RunInfo{
			ID:          h.Run.ID,
			Environment: h.Run.Environment,
			Status:      string(h.Run.Status),
			StartedAt:   h.Run.StartedAt.Format(time.RFC3339),
			Error:       h.Run.Error,
			Targets:     make([]output.GeneratedInfo, len(h.Targets)),
		}
		if h.Run.CompletedAt != nil {
			ri.CompletedAt = h.Run.CompletedAt.Format(time.RFC3339)
		}
		for j, t := range h.Targets {
			ri.Targets[j] = output.GeneratedInfo{
				Target:     t.Target,
				Status:     string(t.Status),
				Files:      t.Outputs,
				Hash:       t.Hash,
				Error:      t.Error,
				DurationMS: t.Duration.Milliseconds(),
			}
		}
		out.Runs[i] = ri
	}
	return out
}
