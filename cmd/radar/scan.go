package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/radarhq/radar/internal/notify"
	"github.com/radarhq/radar/internal/report"
	"github.com/radarhq/radar/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single discovery pass",
	Long: `Run one pass over the target catalog: fetch open issues, score them,
and report anything not surfaced before.

Examples:
  # Scan the built-in catalog
  radar scan

  # Scan your own catalog
  radar scan --targets targets.yaml

  # Only security repositories, preview without recording history
  radar scan --category security --dry-run

  # Also write report files
  radar scan --write-report --json`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		writeReport, _ := cmd.Flags().GetBool("write-report")
		writeJSON, _ := cmd.Flags().GetBool("json")
		categories, _ := cmd.Flags().GetStringSlice("category")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := runPass(ctx, dryRun, categories)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		report.PrintResult(os.Stdout, result)
		if dryRun {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s dry run: history not updated\n", yellow("!"))
		}

		if writeReport || writeJSON {
			if err := writeReports(result, writeReport, writeJSON); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		if err := notifyResult(ctx, result); err != nil {
			// Notification failures never fail the pass.
			fmt.Fprintf(os.Stderr, "Warning: notification failed: %v\n", err)
		}
	},
}

func init() {
	scanCmd.Flags().Bool("dry-run", false, "preview the pass without recording history")
	scanCmd.Flags().Bool("write-report", false, "write a markdown report file")
	scanCmd.Flags().Bool("json", false, "write a JSON report file")
	scanCmd.Flags().StringSlice("category", nil, "limit the pass to these categories (ai_ml, security, compliance, other)")
	rootCmd.AddCommand(scanCmd)
}

// runPass wires the pipeline and executes one pass over the (optionally
// filtered) catalog.
func runPass(ctx context.Context, dryRun bool, categoryNames []string) (*types.ScanResult, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	targets := cat.Targets
	if len(categoryNames) > 0 {
		categories := make([]types.Category, 0, len(categoryNames))
		for _, name := range categoryNames {
			c, err := types.ParseCategory(name)
			if err != nil {
				return nil, err
			}
			categories = append(categories, c)
		}
		targets = cat.Filter(categories)
		if len(targets) == 0 {
			return nil, fmt.Errorf("no targets match categories %v", categoryNames)
		}
	}

	orch, store, err := newOrchestrator(cfg, cat, dryRun)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return orch.RunPass(ctx, targets)
}

func writeReports(result *types.ScanResult, markdown, jsonOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	emitter := &report.Emitter{Dir: cfg.ReportDir}

	if markdown {
		path, err := emitter.WriteMarkdown(result)
		if err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", path)
	}
	if jsonOut {
		path, err := emitter.WriteJSON(result)
		if err != nil {
			return err
		}
		fmt.Printf("JSON written to %s\n", path)
	}
	return nil
}

// notifyResult pushes the summary to every configured channel. Channels are
// independent; one failing does not stop the others.
func notifyResult(ctx context.Context, result *types.ScanResult) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(result.NewOpportunities) == 0 {
		return nil
	}

	var notifiers []notify.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.WebhookURL))
	}
	if cfg.SMTPHost != "" {
		notifiers = append(notifiers, notify.NewEmail(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			To:       cfg.EmailTo,
		}))
	}

	var firstErr error
	for _, n := range notifiers {
		if err := n.NotifyResult(ctx, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
