package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ctxlearn",
	Short: "Operate the adaptive context-selection learner",
	Long: `ctxlearn inspects and maintains the posteriors that decide which optional
context components (tools, skills, files, memory, prompt sections) go into an
agent's system prompt, and can serve a local decision oracle over gRPC.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config; CTXLEARN_* env vars override it")
}
