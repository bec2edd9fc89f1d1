package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/checkpoint"
	"github.com/dshills/smellscan/internal/output"
)

// Report flags
var (
	flagReportFormat string
	flagReportTally  bool
	flagReportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Flatten artifacts into one row per reported smell",
	Long: "Reads every artifact in the output directory and emits one row per smell with\n" +
		"its tag, model, file, category, name and impact. --tally counts smells per\n" +
		"model and category instead.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(output.RowFormats, flagReportFormat) {
			return fmt.Errorf("unsupported report format: %s", flagReportFormat)
		}
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}

		store := checkpoint.NewStore(cfg.Output.Dir, cfg.Output.Prefix)
		results, skipped, err := store.LoadAll()
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		stderr := cmd.ErrOrStderr()
		for _, s := range skipped {
			fmt.Fprintf(stderr, "Warning: skipping %s: %s\n", s.Name, s.Invalid)
		}

		rows, stats := output.Rows(results)
		fmt.Fprintf(stderr, "%d results, %d errors, %d smells", stats.Results, stats.Errors, len(rows))
		if stats.Undecodable > 0 || stats.Dropped > 0 {
			fmt.Fprintf(stderr, " (%d undecodable analyses, %d malformed entries)", stats.Undecodable, stats.Dropped)
		}
		fmt.Fprintln(stderr)

		err = output.ToDestination(cmd.OutOrStdout(), flagReportOut, func(w io.Writer) error {
			if flagReportTally {
				return output.WriteTally(w, output.NewTally(rows))
			}
			return output.WriteRows(w, rows, flagReportFormat)
		})
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
		}
		return nil
	},
}

func init() {
	addOutputFlags(reportCmd)
	reportCmd.Flags().StringVarP(&flagReportFormat, "format", "f", "table", "Row format (table, csv, json)")
	reportCmd.Flags().BoolVar(&flagReportTally, "tally", false, "Count smells per model and category")
	reportCmd.Flags().StringVar(&flagReportOut, "out", "", "Write to this file instead of stdout")
}
