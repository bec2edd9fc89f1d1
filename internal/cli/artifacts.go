package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/checkpoint"
	"github.com/dshills/smellscan/internal/output"
)

var flagArtifactsJSON bool

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspect and manage checkpoint artifacts",
}

func artifactStore(cmd *cobra.Command) (*checkpoint.Store, bool) {
	cfg, ok := loadConfig(cmd)
	if !ok {
		return nil, false
	}
	return checkpoint.NewStore(cfg.Output.Dir, cfg.Output.Prefix), true
}

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifacts with their entry counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := artifactStore(cmd)
		if !ok {
			return nil
		}
		infos, err := store.List()
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		if flagArtifactsJSON {
			return printJSON(cmd, infos)
		}
		return output.WriteArtifacts(cmd.OutOrStdout(), infos)
	},
}

var artifactsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate artifact statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := artifactStore(cmd)
		if !ok {
			return nil
		}
		stats, err := store.Stats()
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		if flagArtifactsJSON {
			return printJSON(cmd, stats)
		}
		return output.WriteStats(cmd.OutOrStdout(), stats)
	},
}

var artifactsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every artifact in the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := artifactStore(cmd)
		if !ok {
			return nil
		}
		n, err := store.Clear()
		if err != nil {
			fail(cmd, ExitRuntimeError, fmt.Errorf("clearing artifacts: %w", err))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d artifacts from %s.\n", n, store.Dir())
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{artifactsListCmd, artifactsStatsCmd, artifactsClearCmd} {
		addOutputFlags(c)
		artifactsCmd.AddCommand(c)
	}
	artifactsListCmd.Flags().BoolVar(&flagArtifactsJSON, "json", false, "Print JSON")
	artifactsStatsCmd.Flags().BoolVar(&flagArtifactsJSON, "json", false, "Print JSON")
}
