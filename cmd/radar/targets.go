package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/radarhq/radar/internal/history"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect and manage the target catalog",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the repositories the radar scans",
	Run: func(cmd *cobra.Command, args []string) {
		cat, err := loadCatalog()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%-40s %s\n", bold("REPOSITORY"), bold("CATEGORY"))
		for _, t := range cat.Targets {
			fmt.Printf("%-40s %s\n", t.Identifier, t.Category)
		}
	},
}

var targetsResetCmd = &cobra.Command{
	Use:   "reset <owner/repo>",
	Short: "Forget a repository's scan history",
	Long: `Delete all seen-issue keys and cached opportunities for a repository,
so its issues can be surfaced again on the next pass.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := args[0]

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

		if err := store.Reset(context.Background(), repo); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s History cleared for %s\n", green("✓"), repo)
	},
}

func init() {
	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsResetCmd)
	rootCmd.AddCommand(targetsCmd)
}
