package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/smellscan/internal/collect"
	"github.com/dshills/smellscan/internal/extract"
	"github.com/dshills/smellscan/internal/logging"
	"github.com/dshills/smellscan/internal/redact"
)

// Failure classifies why a task ended in StatusError.
type Failure string

const (
	FailureRead      Failure = "read"
	FailureTimeout   Failure = "timeout"
	FailureTransport Failure = "transport"
	FailureParse     Failure = "parse"
	FailureInternal  Failure = "internal"
)

// classify maps an inference error onto a Failure. timedOut is set when the
// per-task deadline fired.
func classify(err error, timedOut bool) Failure {
	switch {
	case timedOut:
		return FailureTimeout
	case extract.IsParseError(err):
		return FailureParse
	default:
		return FailureTransport
	}
}

// Recorder receives per-task measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	TaskFinished(model string, status Status)
	TaskFailed(model string, kind Failure)
	InferenceObserved(model string, d time.Duration, tokens int)
}

type nopRecorder struct{}

func (nopRecorder) TaskFinished(string, Status)                  {}
func (nopRecorder) TaskFailed(string, Failure)                   {}
func (nopRecorder) InferenceObserved(string, time.Duration, int) {}

// Progress is a snapshot sent to an Observer after every finished task.
type Progress struct {
	Done    int
	Total   int
	OK      int
	Failed  int
	Skipped int
	Task    Task
	Status  Status
}

// Observer is notified of progress. Calls are serialized.
type Observer func(Progress)

// Options configures a Scheduler.
type Options struct {
	// Workers bounds the number of tasks in flight.
	Workers int
	// MinContentChars skips files whose trimmed content has fewer runes.
	MinContentChars int
	// RequestTimeout bounds each inference call when > 0.
	RequestTimeout time.Duration
	// Redactor scrubs content before it is sent. Nil disables redaction.
	Redactor *redact.Redactor
	Recorder Recorder
	Observer Observer
	// ReadFile loads a task's file. Defaults to collect.ReadText.
	ReadFile func(path string) (string, error)
}

// Scheduler runs batches of tasks on a bounded worker pool.
type Scheduler struct {
	invoker Invoker
	opts    Options
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler. A nil logger discards output.
func NewScheduler(invoker Invoker, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.ReadFile == nil {
		opts.ReadFile = collect.ReadText
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{invoker: invoker, opts: opts, logger: logger}
}

// Batch is the accumulated output of one Run.
type Batch struct {
	// Results holds one entry per non-skipped task, in completion order.
	Results []Result
	OK      int
	Failed  int
	Skipped int
	// Tokens is the provider-reported token usage of all calls.
	Tokens int
}

// Total is the number of tasks that reached a terminal state.
func (b *Batch) Total() int { return b.OK + b.Failed + b.Skipped }

// accumulator is the only state shared between workers.
type accumulator struct {
	mu       sync.Mutex
	batch    Batch
	total    int
	observer Observer
}

func (a *accumulator) add(t Task, res Result, status Status, tokens int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch.Tokens += tokens
	switch status {
	case StatusOK:
		a.batch.OK++
		a.batch.Results = append(a.batch.Results, res)
	case StatusError:
		a.batch.Failed++
		a.batch.Results = append(a.batch.Results, res)
	case StatusSkipped:
		a.batch.Skipped++
	}
	if a.observer != nil {
		a.observer(Progress{
			Done:    a.batch.Total(),
			Total:   a.total,
			OK:      a.batch.OK,
			Failed:  a.batch.Failed,
			Skipped: a.batch.Skipped,
			Task:    t,
			Status:  status,
		})
	}
}

// Run processes tasks with at most Workers in flight and waits for all of
// them. Task failures are recorded as error results and never stop the
// batch. If ctx is cancelled, tasks not yet started are dropped and ctx.Err()
// is returned with the partial batch.
func (s *Scheduler) Run(ctx context.Context, tasks []Task) (Batch, error) {
	acc := &accumulator{total: len(tasks), observer: s.opts.Observer}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, status, tokens := s.runTask(ctx, task)
			s.opts.Recorder.TaskFinished(task.Model.Alias, status)
			acc.add(task, res, status, tokens)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	if err := ctx.Err(); err != nil {
		return acc.batch, err
	}
	return acc.batch, nil
}

func (s *Scheduler) runTask(ctx context.Context, t Task) (res Result, status Status, tokens int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "file", t.File.RelPath, "model", t.Model.Alias,
				"panic", r, "stack", string(debug.Stack()))
			s.opts.Recorder.TaskFailed(t.Model.Alias, FailureInternal)
			res, status = t.errorResult(fmt.Errorf("internal error: %v", r)), StatusError
		}
	}()

	text, err := s.opts.ReadFile(t.File.Path)
	if err != nil {
		s.opts.Recorder.TaskFailed(t.Model.Alias, FailureRead)
		return t.errorResult(fmt.Errorf("reading %s: %w", t.File.RelPath, err)), StatusError, 0
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.opts.MinContentChars {
		s.logger.Debug("skipping short file", "file", t.File.RelPath)
		return Result{}, StatusSkipped, 0
	}

	if s.opts.Redactor != nil {
		var stats redact.Stats
		text, stats = s.opts.Redactor.Redact(t.File.RelPath, text)
		if stats.WholeFile || stats.Total() > 0 {
			s.logger.Debug("redacted content", "file", t.File.RelPath,
				"matches", stats.Total(), "rules", stats.Rules(), "wholeFile", stats.WholeFile)
		}
	}

	callCtx := ctx
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	out := s.invoker.Invoke(callCtx, t.Model.ID, BuildPrompt(text))
	s.opts.Recorder.InferenceObserved(t.Model.Alias, out.Duration, out.TokensUsed)

	if out.Err != nil {
		err := out.Err
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		if timedOut {
			err = fmt.Errorf("request timed out after %s: %w", s.opts.RequestTimeout, err)
		}
		kind := classify(out.Err, timedOut)
		s.opts.Recorder.TaskFailed(t.Model.Alias, kind)
		s.logger.Debug("task failed", "file", t.File.RelPath, "model", t.Model.Alias, "kind", kind, "error", err)
		return t.errorResult(err), StatusError, out.TokensUsed
	}
	if len(out.Analysis) == 0 {
		s.opts.Recorder.TaskFailed(t.Model.Alias, FailureParse)
		return t.errorResult(fmt.Errorf("model %s returned no analysis", t.Model.ID)), StatusError, out.TokensUsed
	}

	res = t.result()
	res.Analysis = out.Analysis
	return res, StatusOK, out.TokensUsed
}
