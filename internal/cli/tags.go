package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/gitctx"
	"github.com/dshills/smellscan/internal/output"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List repository tags, marking the ones a run would analyze",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}
		repo, err := gitctx.EnsureClone(cmd.Context(), cfg.Repo.URL, cfg.Repo.Dir)
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		all, err := repo.ListTags(cmd.Context())
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		return output.WriteRevisions(cmd.OutOrStdout(), all, gitctx.SelectTop(all, cfg.Revisions))
	},
}

func init() {
	addRepoFlags(tagsCmd)
	tagsCmd.Flags().IntVar(&flagRevisions, "revisions", 0, "Number of newest tags to mark")
}
