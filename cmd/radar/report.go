package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radarhq/radar/internal/history"
	"github.com/radarhq/radar/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the top opportunities surfaced so far",
	Long: `Render the highest-scoring opportunities from the history database
without running a new scan.

Examples:
  radar report
  radar report --limit 50`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := history.Open(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening history database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		issues, err := store.TopOpportunities(context.Background(), limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(issues) == 0 {
			fmt.Println("No opportunities recorded yet. Run 'radar scan' first.")
			return
		}

		report.PrintIssues(os.Stdout, issues)
	},
}

func init() {
	reportCmd.Flags().Int("limit", 20, "maximum number of opportunities to show")
	rootCmd.AddCommand(reportCmd)
}
