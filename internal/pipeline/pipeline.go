package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/smellscan/internal/analysis"
	"github.com/dshills/smellscan/internal/collect"
	"github.com/dshills/smellscan/internal/config"
	"github.com/dshills/smellscan/internal/gitctx"
	"github.com/dshills/smellscan/internal/logging"
)

// VCS switches the workspace between revisions and reports where it is.
type VCS interface {
	Checkout(ctx context.Context, rev string) error
	Meta(ctx context.Context) (gitctx.RepoMeta, error)
}

// Collector lists eligible files in the workspace.
type Collector interface {
	Collect(workspace string) ([]collect.SourceFile, error)
}

// Runner analyzes a batch of tasks.
type Runner interface {
	Run(ctx context.Context, tasks []analysis.Task) (analysis.Batch, error)
}

// Checkpointer persists one stage's results.
type Checkpointer interface {
	Write(revision, alias string, results []analysis.Result) (string, error)
}

// Recorder counts stage and revision outcomes.
type Recorder interface {
	CheckpointWritten(err error)
	RevisionFinished(err error)
}

// Hooks are optional callbacks for user-facing progress.
type Hooks struct {
	RevisionStarted func(rev gitctx.Revision, index, total int)
	StageStarted    func(stage Stage, tasks int)
	StageFinished   func(report StageReport)
}

// Stage is one (revision, model) unit of the run plan.
type Stage struct {
	Revision gitctx.Revision
	Model    config.Model
}

// Plan returns the stages for revs and models, revision-major, preserving
// both input orders.
func Plan(revs []gitctx.Revision, models []config.Model) []Stage {
	stages := make([]Stage, 0, len(revs)*len(models))
	for _, rev := range revs {
		for _, m := range models {
			stages = append(stages, Stage{Revision: rev, Model: m})
		}
	}
	return stages
}

// Options configures a Controller.
type Options struct {
	Workspace        string
	ModelParallelism int
	Recorder         Recorder
	Hooks            Hooks
}

// Controller sequences checkout, collection, analysis and checkpointing.
type Controller struct {
	vcs       VCS
	collector Collector
	runner    Runner
	writer    Checkpointer
	opts      Options
	logger    *slog.Logger
}

// New creates a Controller. A nil logger discards output.
func New(vcs VCS, collector Collector, runner Runner, writer Checkpointer, opts Options, logger *slog.Logger) *Controller {
	if opts.ModelParallelism < 1 {
		opts.ModelParallelism = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{vcs: vcs, collector: collector, runner: runner, writer: writer, opts: opts, logger: logger}
}

// Run processes every revision against every model. It returns the summary
// together with the joined error of all failed revisions and stages; the
// summary is complete even when the error is non-nil. A cancelled ctx stops
// the run after the in-flight stages and is returned as is. A revision named
// more than once is processed once.
func (c *Controller) Run(ctx context.Context, revs []gitctx.Revision, models []config.Model) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Started: time.Now().UTC()}

	if distinct := gitctx.Distinct(revs); len(distinct) != len(revs) {
		c.logger.Warn("ignoring repeated revisions", "given", len(revs), "distinct", len(distinct))
		revs = distinct
	}
	plan := Plan(revs, models)
	c.logger.Info("run planned", "runId", summary.RunID, "revisions", len(revs), "models", len(models), "stages", len(plan))

	var errs []error
	for i, rev := range revs {
		if err := ctx.Err(); err != nil {
			summary.DurationMs = time.Since(summary.Started).Milliseconds()
			return summary, err
		}
		if h := c.opts.Hooks.RevisionStarted; h != nil {
			h(rev, i, len(revs))
		}

		report, err := c.runRevision(ctx, rev, plan[i*len(models):(i+1)*len(models)])
		summary.Revisions = append(summary.Revisions, report)
		if c.opts.Recorder != nil {
			c.opts.Recorder.RevisionFinished(report.err())
		}
		if ctx.Err() != nil {
			summary.DurationMs = time.Since(summary.Started).Milliseconds()
			return summary, ctx.Err()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	summary.DurationMs = time.Since(summary.Started).Milliseconds()
	return summary, errors.Join(errs...)
}

func (c *Controller) runRevision(ctx context.Context, rev gitctx.Revision, stages []Stage) (RevisionReport, error) {
	report := RevisionReport{Revision: rev.Name}
	log := c.logger.With("tag", rev.Name)

	log.Info("checking out revision")
	if err := c.vcs.Checkout(ctx, rev.Name); err != nil {
		report.Error = err.Error()
		log.Error("checkout failed, skipping revision", "error", err)
		return report, fmt.Errorf("revision %s: %w", rev.Name, err)
	}

	meta, err := c.vcs.Meta(ctx)
	if err != nil {
		report.Error = err.Error()
		log.Error("reading workspace head failed, skipping revision", "error", err)
		return report, fmt.Errorf("revision %s: %w", rev.Name, err)
	}
	report.Commit = meta.Head
	if rev.Commit != "" && meta.Head != rev.Commit {
		err := fmt.Errorf("workspace is at %s after checkout, want %s", meta.Head, rev.Commit)
		report.Error = err.Error()
		log.Error("checkout did not land on the revision, skipping", "error", err)
		return report, fmt.Errorf("revision %s: %w", rev.Name, err)
	}

	files, err := c.collector.Collect(c.opts.Workspace)
	if err != nil {
		report.Error = err.Error()
		log.Error("collecting files failed, skipping revision", "error", err)
		return report, fmt.Errorf("revision %s: collecting files: %w", rev.Name, err)
	}
	report.Files = len(files)
	log.Info("files collected", "count", len(files))

	reports := make([]StageReport, len(stages))
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(c.opts.ModelParallelism)
	for i, stage := range stages {
		g.Go(func() error {
			sr, err := c.runStage(ctx, stage, files)
			reports[i] = sr
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // stages report failures through errs

	report.Stages = reports
	return report, errors.Join(errs...)
}

func (c *Controller) runStage(ctx context.Context, stage Stage, files []collect.SourceFile) (StageReport, error) {
	sr := StageReport{Model: stage.Model.Alias}
	if ctx.Err() != nil {
		sr.Error = ctx.Err().Error()
		return sr, ctx.Err()
	}
	log := c.logger.With("tag", stage.Revision.Name, "model", stage.Model.Alias)

	tasks := analysis.Tasks(files, stage.Revision.Name, stage.Model)
	if h := c.opts.Hooks.StageStarted; h != nil {
		h(stage, len(tasks))
	}
	log.Info("analyzing files", "tasks", len(tasks))

	start := time.Now()
	batch, err := c.runner.Run(ctx, tasks)
	sr.OK, sr.Failed, sr.Skipped, sr.Tokens = batch.OK, batch.Failed, batch.Skipped, batch.Tokens
	sr.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		sr.Error = err.Error()
		return sr, err
	}

	path, err := c.writer.Write(stage.Revision.Name, stage.Model.Alias, batch.Results)
	if c.opts.Recorder != nil {
		c.opts.Recorder.CheckpointWritten(err)
	}
	if err != nil {
		sr.Error = err.Error()
		log.Error("checkpoint failed", "error", err)
		err = fmt.Errorf("revision %s model %s: %w", stage.Revision.Name, stage.Model.Alias, err)
	} else {
		sr.Artifact = path
		log.Info("checkpoint written", "path", path, "ok", batch.OK, "failed", batch.Failed, "skipped", batch.Skipped)
	}

	if h := c.opts.Hooks.StageFinished; h != nil {
		h(sr)
	}
	return sr, err
}
