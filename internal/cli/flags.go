package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Config override flags, shared by the commands that accept them.
var (
	flagRepoDir          string
	flagRepoURL          string
	flagRevisions        int
	flagWorkers          int
	flagModels           string
	flagLimit            int
	flagOutputDir        string
	flagOutputPrefix     string
	flagProvider         string
	flagBaseURL          string
	flagModelParallelism int
	flagRedact           bool
	flagMetricsAddr      string
	flagTimeout          string
)

func addRepoFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagRepoDir, "repo", "", "Repository working directory")
	cmd.Flags().StringVar(&flagRepoURL, "repo-url", "", "Clone URL used when the repository directory does not exist")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Artifact directory")
	cmd.Flags().StringVar(&flagOutputPrefix, "prefix", "", "Artifact file name prefix")
}

func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Inference backend (huggingface, openai, ollama, anthropic)")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Backend endpoint override")
	cmd.Flags().StringVar(&flagModels, "models", "", "Models as comma-separated alias=id pairs")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value > 0 {
			m[key] = strconv.Itoa(value)
		}
	}

	set("repo.dir", flagRepoDir)
	set("repo.url", flagRepoURL)
	set("models", flagModels)
	set("output.dir", flagOutputDir)
	set("output.prefix", flagOutputPrefix)
	set("provider", flagProvider)
	set("base_url", flagBaseURL)
	set("metrics_addr", flagMetricsAddr)
	set("request_timeout", flagTimeout)
	setInt("revisions", flagRevisions)
	setInt("workers", flagWorkers)
	setInt("file_limit", flagLimit)
	setInt("model_parallelism", flagModelParallelism)
	if flagRedact {
		m["privacy.redact_secrets"] = "true"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
