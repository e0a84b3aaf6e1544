package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/vaultgen/internal/generator"
	"github.com/leapstack-labs/vaultgen/internal/model"
	"github.com/leapstack-labs/vaultgen/internal/state"
)

// GenerateOptions selects what a generation run renders.
type GenerateOptions struct {
	// Targets restricts the run to these tables, every target when empty
	Targets []string
	// Downstream adds every table built on top of Targets
	Downstream bool
	// Concurrency overrides Config.Concurrency when positive
	Concurrency int
	// DryRun renders and records without writing files
	DryRun bool
}

// TargetOutcome is the result of generating one target.
type TargetOutcome struct {
	Target   *model.Table
	Status   state.TargetStatus
	Outputs  []generator.Output
	Hash     string
	Err      error
	Duration time.Duration
}

// GenerateResult is the result of one generation run.
type GenerateResult struct {
	Run     *state.Run
	Levels  [][]string
	Targets []*TargetOutcome
}

// Failed returns the outcomes that failed.
func (r *GenerateResult) Failed() []*TargetOutcome {
	var out []*TargetOutcome
	for _, t := range r.Targets {
		if t.Status == state.TargetStatusFailed {
			out = append(out, t)
		}
	}
	return out
}

// Generate renders the selected targets level by level and writes their SQL
// files below Config.OutputDir. Targets of one level render in parallel. A
// failing target does not stop the run; the run is marked failed and the
// returned error lists every failure.
func (e *Engine) Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, gen, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	selected, err := p.Select(opts.Targets)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(selected))
	for i, t := range selected {
		ids[i] = t.FullName()
	}
	if opts.Downstream {
		ids = p.Graph.Downstream(ids)
	}
	levels, err := p.Graph.Subgraph(ids).Levels()
	if err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(ctx, e.cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Info("starting generation",
		"run_id", run.ID,
		"environment", e.cfg.Environment,
		"targets", len(ids),
		"levels", len(levels),
		"dry_run", opts.DryRun)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = e.cfg.Concurrency
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	result := &GenerateResult{Levels: levels}
	for _, level := range levels {
		outcomes := make([]*TargetOutcome, len(level))
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(limit)
		for i, id := range level {
			node, _ := p.Graph.Node(id)
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				outcomes[i] = e.generateTarget(egctx, run.ID, gen, p, node.Value, opts.DryRun)
				return nil
			})
		}
		err := eg.Wait()
		for _, o := range outcomes {
			if o != nil {
				result.Targets = append(result.Targets, o)
			}
		}
		if err != nil {
			_ = e.store.CompleteRun(context.WithoutCancel(ctx), run.ID, state.RunStatusFailed, err.Error())
			return result, err
		}
	}

	var errs []error
	failed := result.Failed()
	for _, o := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", o.Target.FullName(), o.Err))
	}

	status, msg := state.RunStatusCompleted, ""
	if len(failed) > 0 {
		status = state.RunStatusFailed
		msg = fmt.Sprintf("%d of %d targets failed", len(failed), len(result.Targets))
	}
	if err := e.store.CompleteRun(ctx, run.ID, status, msg); err != nil {
		return result, fmt.Errorf("failed to complete run: %w", err)
	}
	if result.Run, err = e.store.GetRun(ctx, run.ID); err != nil {
		return result, err
	}

	e.logger.Info("generation finished",
		"run_id", run.ID,
		"status", status,
		"targets", len(result.Targets),
		"failed", len(failed))
	return result, errors.Join(errs...)
}

// generateTarget renders, writes and records a single target.
func (e *Engine) generateTarget(ctx context.Context, runID string, gen *generator.Generator, p *Project, t *model.Table, dryRun bool) *TargetOutcome {
	start := time.Now()
	outcome := &TargetOutcome{Target: t}

	outcome.Outputs, outcome.Err = gen.Render(t, p.Mappings)
	if outcome.Err == nil {
		outcome.Hash = hashOutputs(outcome.Outputs)
		outcome.Status = state.TargetStatusGenerated

		last, err := e.store.LastHash(ctx, e.cfg.Environment, t.FullName())
		switch {
		case err != nil:
			outcome.Err = err
		case last == outcome.Hash:
			outcome.Status = state.TargetStatusUnchanged
		}
	}
	if outcome.Err == nil && !dryRun {
		outcome.Err = e.writeOutputs(outcome.Outputs)
	}
	if outcome.Err != nil {
		outcome.Status = state.TargetStatusFailed
	}
	outcome.Duration = time.Since(start)

	rec := &state.TargetResult{
		RunID:    runID,
		Target:   t.FullName(),
		Status:   outcome.Status,
		Hash:     outcome.Hash,
		Duration: outcome.Duration,
	}
	for _, o := range outcome.Outputs {
		rec.Outputs = append(rec.Outputs, o.Path)
	}
	if outcome.Err != nil {
		rec.Hash = ""
		rec.Error = outcome.Err.Error()
	}
	if err := e.store.RecordTarget(ctx, rec); err != nil {
		e.logger.Error("failed to record target", "target", t.FullName(), "error", err)
	}

	if outcome.Err != nil {
		e.logger.Warn("target failed", "target", t.FullName(), "error", outcome.Err)
	} else {
		e.logger.Debug("target generated",
			"target", t.FullName(),
			"status", outcome.Status,
			"duration", outcome.Duration)
	}
	return outcome
}

// writeOutputs writes the files of one target below the output directory.
func (e *Engine) writeOutputs(outputs []generator.Output) error {
	for _, o := range outputs {
		path := filepath.Join(e.cfg.OutputDir, filepath.FromSlash(o.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(o.SQL), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.Path, err)
		}
	}
	return nil
}

// hashOutputs fingerprints the paths and SQL of a target's files.
func hashOutputs(outputs []generator.Output) string {
	h := sha256.New()
	for _, o := range outputs {
		h.Write([]byte(o.Path))
		h.Write([]byte{0})
		h.Write([]byte(o.SQL))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RunHistory is a past run with its target results.
type RunHistory struct {
	Run     *state.Run
	Targets []*state.TargetResult
}

// History returns the latest runs of the current environment, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]RunHistory, error) {
	runs, err := e.store.ListRuns(ctx, e.cfg.Environment, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunHistory, len(runs))
	for i, r := range runs {
		results, err := e.store.TargetResults(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out[i] = RunHistory{Run: r, Targets: results}
	}
	return out, nil
}
