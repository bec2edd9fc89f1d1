package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/smellscan/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured models and supported providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Provider: %s\n", cfg.Provider)
		fmt.Fprintln(out, "Models:")
		for _, m := range cfg.Models {
			fmt.Fprintf(out, "  %-16s %s\n", m.Alias, m.ID)
		}
		fmt.Fprintln(out, "\nSupported providers:")
		for _, name := range providers.Names {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		return nil
	},
}

const doctorTimeout = 60 * time.Second

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check credentials and reachability of every configured model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig(cmd)
		if !ok {
			return nil
		}
		out := cmd.OutOrStdout()
		okMark := color.New(color.FgGreen).Sprint("OK")
		failMark := color.New(color.FgRed, color.Bold).Sprint("FAIL")

		fmt.Fprintf(out, "Checking %s...\n", cfg.Provider)
		client, err := providers.New(providers.Options{Provider: cfg.Provider, BaseURL: cfg.BaseURL})
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", failMark, err)
			exitCode = ExitConfigError
			return nil
		}

		for _, m := range cfg.Models {
			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			_, err := client.Complete(ctx, providers.Request{
				Model:     m.ID,
				Prompt:    "Respond with exactly: ok",
				MaxTokens: 10,
			})
			cancel()
			if err != nil {
				fmt.Fprintf(out, "  %s %s (%s): %v\n", failMark, m.Alias, m.ID, err)
				if providers.IsAuthError(err) {
					exitCode = ExitConfigError
				} else if exitCode == ExitSuccess {
					exitCode = ExitRuntimeError
				}
				continue
			}
			fmt.Fprintf(out, "  %s %s (%s)\n", okMark, m.Alias, m.ID)
		}
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	addProviderFlags(modelsListCmd)
	addProviderFlags(modelsDoctorCmd)
}
