package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/collect"
	"github.com/dshills/smellscan/internal/gitctx"
)

var flagFilesTag string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files a run would analyze",
	Long:  "Lists eligible source files in the working tree, or at --tag after checking it out.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}
		logger := newLogger(cmd.ErrOrStderr(), cfg)

		repo, err := gitctx.EnsureClone(cmd.Context(), cfg.Repo.URL, cfg.Repo.Dir)
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		if flagFilesTag != "" {
			if err := repo.Checkout(cmd.Context(), flagFilesTag); err != nil {
				fail(cmd, ExitRuntimeError, err)
				return nil
			}
		}

		files, err := collect.New(collectOptions(cfg), logger).Collect(repo.Dir)
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		out := cmd.OutOrStdout()
		for _, f := range files {
			fmt.Fprintln(out, f.RelPath)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d files\n", len(files))
		return nil
	},
}

func init() {
	addRepoFlags(filesCmd)
	filesCmd.Flags().StringVar(&flagFilesTag, "tag", "", "Check out this revision before listing")
	filesCmd.Flags().IntVar(&flagLimit, "limit", 0, "List at most this many files")
}
