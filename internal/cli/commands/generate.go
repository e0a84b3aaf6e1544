package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/engine"
)

type generateOptions struct {
	watch       bool
	debounce    time.Duration
	concurrency int
	dryRun      bool
	downstream  bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate [target...]",
		Aliases: []string{"gen"},
		Short:   "Generate SQL for the Data Vault targets",
		Long: `Generate the SQL of every target, or of the named targets, into the
output directory. Targets are generated level by level in dependency
order; targets of one level render in parallel.

Every run is recorded in the state database. A target whose SQL did not
change since its last successful generation is reported as unchanged.
A failing target does not stop the others, but the command fails.

With --watch the project is regenerated whenever a metadata, mapping,
macro or template file changes, until interrupted.`,
		Example: `  # Generate every target
  vaultgen generate

  # Generate a hub and everything built on it
  vaultgen generate customer_h --downstream

  # Show what would be generated without writing files
  vaultgen generate --dry-run

  # Regenerate on every change
  vaultgen generate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate when project files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", engine.DefaultDebounce, "Quiet period before regenerating in watch mode")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Parallel renders per level (default: config or number of CPUs)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Render and record without writing files")
	cmd.Flags().BoolVar(&opts.downstream, "downstream", false, "Also generate targets that depend on the named targets")

	return cmd
}

func runGenerate(cmd *cobra.Command, targets []string, opts *generateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	genOpts := engine.GenerateOptions{
		Targets:     targets,
		Downstream:  opts.downstream,
		Concurrency: opts.concurrency,
		DryRun:      opts.dryRun,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !opts.watch {
		result, err := cmdCtx.Engine.Generate(ctx, genOpts)
		if result == nil {
			return err
		}
		if rerr := renderGenerate(cmdCtx, result, err); rerr != nil {
			return rerr
		}
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	result, err := cmdCtx.Engine.Generate(ctx, genOpts)
	if result != nil {
		_ = renderGenerate(cmdCtx, result, err)
	} else if err != nil {
		r.Error(err.Error())
	}

	r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cmdCtx.Cfg.ProjectRoot))
	return cmdCtx.Engine.Watch(ctx, engine.WatchOptions{
		GenerateOptions: genOpts,
		Debounce:        opts.debounce,
		OnRun: func(result *engine.GenerateResult, err error) {
			if result == nil {
				r.Error(err.Error())
				return
			}
			_ = renderGenerate(cmdCtx, result, err)
		},
	})
}

func renderGenerate(cmdCtx *CommandContext, result *engine.GenerateResult, runErr error) error {
	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(generateJSON(result, runErr))
	case output.ModeMarkdown:
		generateMarkdown(r, result, cmdCtx.Cfg.OutputDir)
	default:
		generateText(r, result, cmdCtx.Cfg.OutputDir)
	}
	return nil
}

func generateText(r *output.Renderer, result *engine.GenerateResult, outputDir string) {
	r.Header(1, fmt.Sprintf("Generating %d targets in %d levels", len(result.Targets), len(result.Levels)))
	for _, o := range result.Targets {
		detail := fmt.Sprintf("(%s)", o.Duration.Round(time.Millisecond))
		if o.Err != nil {
			detail = o.Err.Error()
		}
		r.StatusLine(o.Target.FullName(), string(o.Status), detail)
	}
	r.Println("")

	failed := len(result.Failed())
	if failed > 0 {
		r.Error(fmt.Sprintf("%d of %d targets failed", failed, len(result.Targets)))
		return
	}
	r.Success(fmt.Sprintf("Generated %d targets into %s", len(result.Targets), outputDir))
}

func generateMarkdown(r *output.Renderer, result *engine.GenerateResult, outputDir string) {
	r.Header(1, "Generation Run")
	if result.Run != nil {
		r.Println(output.FormatKeyValue("Run", result.Run.ID))
		r.Println(output.FormatKeyValue("Status", string(result.Run.Status)))
	}
	r.Println(output.FormatKeyValue("Output", outputDir))
	r.Println(output.FormatKeyValue("Levels", fmt.Sprintf("%d", len(result.Levels))))
	r.Println("")

	rows := make([][]string, len(result.Targets))
	for i, o := range result.Targets {
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		}
		rows[i] = []string{o.Target.FullName(), string(o.Status), fileList(o), detail}
	}
	r.Table([]string{"Target", "Status", "Files", "Error"}, rows)
}

func generateJSON(result *engine.GenerateResult, runErr error) output.GenerateOutput {
	out := output.GenerateOutput{
		Levels:  result.Levels,
		Targets: make([]output.GeneratedInfo, len(result.Targets)),
	}
	if result.Run != nil {
		out.RunID = result.Run.ID
		out.Status = string(result.Run.Status)
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	for i, o := range result.Targets {
		info := output.GeneratedInfo{
			Target:     o.Target.FullName(),
			Status:     string(o.Status),
			Hash:       o.Hash,
			DurationMS: o.Duration.Milliseconds(),
		}
		for _, f := range o.Outputs {
			info.Files = append(info.Files, f.Path)
		}
		if o.Err != nil {
			info.Error = o.Err.Error()
		}
		out.Targets[i] = info
	}
	return out
}

func fileList(o *engine.TargetOutcome) string {
	paths := make([]string, len(o.Outputs))
	for i, f := range o.Outputs {
		paths[i] = f.Path
	}
	return strings.Join(paths, ", ")
}
