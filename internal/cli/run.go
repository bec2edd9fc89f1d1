package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/analysis"
	"github.com/dshills/smellscan/internal/checkpoint"
	"github.com/dshills/smellscan/internal/collect"
	"github.com/dshills/smellscan/internal/config"
	"github.com/dshills/smellscan/internal/gitctx"
	"github.com/dshills/smellscan/internal/metrics"
	"github.com/dshills/smellscan/internal/output"
	"github.com/dshills/smellscan/internal/pipeline"
	"github.com/dshills/smellscan/internal/providers"
	"github.com/dshills/smellscan/internal/redact"
)

// Run flags
var (
	flagTags   string
	flagDryRun bool
	flagFormat string
	flagOut    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze the newest tags with every configured model",
	Long: "Checks out each selected tag in turn, collects eligible source files, sends\n" +
		"every file to every model, and writes one artifact per (tag, model) pair as\n" +
		"soon as that batch finishes.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runPipeline(ctx, cmd, cfg)
		return nil
	},
}

func runPipeline(ctx context.Context, cmd *cobra.Command, cfg config.Config) {
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	repo, err := gitctx.EnsureClone(ctx, cfg.Repo.URL, cfg.Repo.Dir)
	if err != nil {
		fail(cmd, ExitRuntimeError, err)
		return
	}
	revs, err := selectRevisions(ctx, repo, cfg.Revisions)
	if err != nil {
		fail(cmd, ExitRuntimeError, err)
		return
	}
	if len(revs) == 0 {
		fail(cmd, ExitRuntimeError, fmt.Errorf("no tags found in %s", repo.Dir))
		return
	}

	writer := checkpoint.NewWriter(cfg.Output.Dir, cfg.Output.Prefix)
	if flagDryRun {
		printPlan(cmd, pipeline.Plan(revs, cfg.Models), writer)
		return
	}

	client, err := providers.New(providers.Options{
		Provider:          cfg.Provider,
		BaseURL:           cfg.BaseURL,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		fail(cmd, ExitConfigError, err)
		return
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		addr, err := m.Serve(ctx, cfg.MetricsAddr, logger)
		if err != nil {
			fail(cmd, ExitRuntimeError, fmt.Errorf("starting metrics server: %w", err))
			return
		}
		logger.Info("serving metrics", "addr", addr.String())
	}

	var redactor *redact.Redactor
	if cfg.Privacy.RedactSecrets {
		redactor = redact.New(cfg.Privacy.RedactPaths)
	}

	prog := newProgress(cmd.ErrOrStderr(), logger)
	scheduler := analysis.NewScheduler(
		analysis.NewAdapter(client, cfg.MaxTokens, cfg.Temperature),
		analysis.Options{
			Workers:         cfg.Workers,
			MinContentChars: cfg.MinContentChars,
			RequestTimeout:  cfg.RequestTimeout,
			Redactor:        redactor,
			Recorder:        m,
			Observer:        prog.observe,
		},
		logger,
	)
	collector := collect.New(collectOptions(cfg), logger)
	controller := pipeline.New(repo, collector, scheduler, writer, pipeline.Options{
		Workspace:        repo.Dir,
		ModelParallelism: cfg.ModelParallelism,
		Recorder:         m,
		Hooks:            prog.hooks(),
	}, logger)

	summary, runErr := controller.Run(ctx, revs, cfg.Models)
	prog.finish()

	if err := output.WriteSummary(cmd.OutOrStdout(), summary, flagFormat, flagOut); err != nil {
		fail(cmd, ExitRuntimeError, fmt.Errorf("writing summary: %w", err))
		return
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		fail(cmd, ExitRuntimeError, errors.New("interrupted"))
	default:
		fail(cmd, ExitBatchFailures, runErr)
	}
}

// selectRevisions resolves --tags when given and otherwise picks the newest
// k tags.
func selectRevisions(ctx context.Context, repo *gitctx.Repo, k int) ([]gitctx.Revision, error) {
	if names := splitComma(flagTags); len(names) > 0 {
		return repo.Resolve(ctx, names)
	}
	all, err := repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return gitctx.SelectTop(all, k), nil
}

func collectOptions(cfg config.Config) collect.Options {
	return collect.Options{
		Roots:      cfg.Collect.Roots,
		SourceDir:  cfg.Collect.SourceDir,
		Extensions: cfg.Collect.Extensions,
		Exclude:    cfg.Collect.Exclude,
		Limit:      cfg.FileLimit,
	}
}

func printPlan(cmd *cobra.Command, stages []pipeline.Stage, w *checkpoint.Writer) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Planned %d stages:\n", len(stages))
	for i, s := range stages {
		fmt.Fprintf(out, "  %2d. %-24s %-14s -> %s\n", i+1, s.Revision.Name, s.Model.Alias, w.Path(s.Revision.Name, s.Model.Alias))
	}
}

func init() {
	addRepoFlags(runCmd)
	addOutputFlags(runCmd)
	addProviderFlags(runCmd)
	runCmd.Flags().StringVar(&flagTags, "tags", "", "Explicit revisions to analyze (comma-separated); bypasses --revisions")
	runCmd.Flags().IntVar(&flagRevisions, "revisions", 0, "Number of newest tags to analyze")
	runCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "Concurrent requests per model")
	runCmd.Flags().IntVar(&flagLimit, "limit", 0, "Analyze at most this many files per tag")
	runCmd.Flags().IntVar(&flagModelParallelism, "model-parallelism", 0, "Models analyzed concurrently per tag")
	runCmd.Flags().StringVar(&flagTimeout, "timeout", "", "Per-request timeout, e.g. 90s")
	runCmd.Flags().BoolVar(&flagRedact, "redact", false, "Redact secrets before content leaves the machine")
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print the stage plan without calling any model")
	runCmd.Flags().StringVar(&flagFormat, "format", "text", "Summary format (text, json)")
	runCmd.Flags().StringVar(&flagOut, "out", "", "Write the summary to this file instead of stdout")
}
