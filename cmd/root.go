// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-repo-stats",
	Short: "A CLI tool to collect GitHub repository traffic statistics.",
	Long: `github-repo-stats polls the GitHub API for your repositories, collects
per-repository popularity and traffic metrics (stars, forks, watchers,
clone and view counts over the trailing 14-day window), merges them into
the accumulated local history, and writes CSV reports plus an HTML summary.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
