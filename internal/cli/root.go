package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/config"
	"github.com/dshills/smellscan/internal/logging"
)

const version = "0.3.0"

const (
	ExitSuccess       = 0
	ExitBatchFailures = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitRuntimeError  = 4
)

// Global flags
var (
	flagConfig    string
	flagVerbose   bool
	flagQuiet     bool
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "smellscan",
	Short: "Code smell analysis across releases and models",
	Long: "smellscan checks out the newest tags of a repository, asks one or more LLMs to\n" +
		"classify code smells in every eligible source file, and writes one JSON\n" +
		"artifact per (tag, model) pair.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(nil)
}

func execute(args []string) int {
	exitCode = ExitSuccess
	if args != nil {
		rootCmd.SetArgs(args)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports err on stderr and records code as the exit code.
func fail(cmd *cobra.Command, code int, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = code
}

// loadConfig loads the effective configuration. Failures are reported with
// ExitConfigError and ok is false.
func loadConfig(cmd *cobra.Command) (cfg config.Config, ok bool) {
	cfg, err := config.Load(flagConfig, buildOverrides())
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fail(cmd, ExitConfigError, err)
		} else {
			fail(cmd, ExitConfigError, fmt.Errorf("loading config: %w", err))
		}
		return cfg, false
	}
	return cfg, true
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	format := cfg.Log.Format
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	return logging.New(w, logging.Verbosity(cfg.Log.Level, flagVerbose, flagQuiet), format)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print smellscan version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smellscan version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./smellscan.yaml, then the user config file)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
