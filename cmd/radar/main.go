// Command radar scans GitHub repositories for contribution opportunities,
// scores them, and reports anything it has not surfaced before.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radarhq/radar/internal/catalog"
	"github.com/radarhq/radar/internal/config"
	"github.com/radarhq/radar/internal/history"
	"github.com/radarhq/radar/internal/scan"
	"github.com/radarhq/radar/internal/source"
)

var (
	// Persistent flags, applied on top of environment configuration.
	targetsPath string
	dbPath      string
	reportDir   string
)

var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Contribution opportunity radar for GitHub repositories",
	Long: `radar scans a catalog of GitHub repositories for open issues, scores
them by label and engagement heuristics, and surfaces only issues it has
never reported before. History persists in a local SQLite database, so
repeated scans stay quiet unless something new appears.

Configuration comes from RADAR_* environment variables (RADAR_GITHUB_TOKEN,
RADAR_DB_PATH, RADAR_REPORT_DIR, RADAR_WEBHOOK_URL, ...) with flags taking
precedence.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&targetsPath, "targets", "", "path to a YAML target catalog (default: built-in catalog)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the history database (default: $RADAR_DB_PATH or ~/.radar/history.db)")
	rootCmd.PersistentFlags().StringVar(&reportDir, "report-dir", "", "directory for report files (default: $RADAR_REPORT_DIR or ~/.radar/reports)")
}

// loadConfig resolves environment configuration and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if reportDir != "" {
		cfg.ReportDir = reportDir
	}
	return cfg, nil
}

// loadCatalog returns the catalog from --targets, or the built-in one.
func loadCatalog() (*catalog.Catalog, error) {
	if targetsPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(targetsPath)
}

// newOrchestrator wires the scan pipeline from resolved configuration. The
// caller owns the returned store and must close it.
func newOrchestrator(cfg config.Config, cat *catalog.Catalog, dryRun bool) (*scan.Orchestrator, *history.SQLiteStore, error) {
	store, err := history.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}

	clientCfg := source.DefaultClientConfig()
	clientCfg.BaseURL = cfg.GitHubBaseURL
	clientCfg.Token = cfg.GitHubToken
	clientCfg.RequestsPerSecond = cfg.RequestsPerSecond
	client := source.NewClient(clientCfg)

	orch := scan.New(client, store, cat.Weights, scan.Config{
		MaxItemsPerRepo: cfg.MaxItemsPerRepo,
		Concurrency:     cfg.Concurrency,
		DryRun:          dryRun,
	})
	return orch, store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
