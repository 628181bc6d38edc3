// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/woodsj1206/github-repo-stats/internal/gateway"
	"github.com/woodsj1206/github-repo-stats/internal/report"
	"github.com/woodsj1206/github-repo-stats/internal/store"
	"github.com/woodsj1206/github-repo-stats/internal/usecase"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collects repository metrics, merges them into history, and writes reports",
	Long: `Fetches star/fork/watcher counts and the trailing 14-day traffic window for
each of your public repositories, merges the traffic data into the locally
persisted history, and writes the CSV reports and HTML summary page.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		dataDir, _ := cmd.Flags().GetString("data")
		outDir, _ := cmd.Flags().GetString("out")
		userName, _ := cmd.Flags().GetString("user")
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		// Inject dependencies and run the pipeline.
		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		historyStore, err := store.NewCSVStore(dataDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open history store: %v\n", err)
			os.Exit(1)
		}
		collector := usecase.NewCollector(githubGateway, historyStore, logger)

		result, err := collector.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to collect repository statistics: %v\n", err)
			os.Exit(1)
		}
		for _, name := range result.Skipped {
			fmt.Fprintf(os.Stderr, "Warning: no traffic data collected for %s this run.\n", name)
		}

		csvEmitter, err := report.NewCSVEmitter(outDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create report emitter: %v\n", err)
			os.Exit(1)
		}
		if err := csvEmitter.Emit(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write CSV reports: %v\n", err)
			os.Exit(1)
		}
		htmlEmitter, err := report.NewHTMLEmitter(outDir, userName, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create summary emitter: %v\n", err)
			os.Exit(1)
		}
		if err := htmlEmitter.Emit(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write summary page: %v\n", err)
			os.Exit(1)
		}

		// Marshal the run summary into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}

		// Print the final JSON to standard output.
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().String("data", "data", "Directory holding the accumulated traffic history")
	collectCmd.Flags().String("out", "reports", "Directory to write CSV reports and the HTML summary into")
	collectCmd.Flags().String("user", "", "Display name for the HTML summary heading")
}
