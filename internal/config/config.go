// Package config holds the application configuration: where state lives,
// how the issue source is reached, and where reports go. Values come from
// defaults overlaid with RADAR_* environment variables; per-run flags are
// applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds runtime configuration for the radar.
type Config struct {
	// GitHubToken authenticates API requests. Empty means unauthenticated,
	// which GitHub rate-limits aggressively.
	GitHubToken string

	// GitHubBaseURL is the API root. Override for GitHub Enterprise.
	// Default: https://api.github.com
	GitHubBaseURL string

	// DatabasePath is the SQLite history database location.
	// Default: ~/.radar/history.db
	DatabasePath string

	// ReportDir is where markdown and JSON reports are written.
	// Default: ~/.radar/reports
	ReportDir string

	// WebhookURL is the Discord webhook for pass notifications.
	// Empty disables notifications.
	WebhookURL string

	// SMTPHost, SMTPPort, SMTPUsername, and SMTPPassword configure the
	// email digest. An empty host disables it. Port defaults to 587.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// EmailTo is the digest recipient.
	EmailTo string

	// RequestsPerSecond caps the API request rate.
	// Default: 1.0
	RequestsPerSecond float64

	// Concurrency bounds how many repositories are fetched at once.
	// Default: 4
	Concurrency int

	// MaxItemsPerRepo caps how many issues are consumed per repository.
	// Default: 50
	MaxItemsPerRepo int
}

// DefaultConfig returns the default configuration. The database and report
// paths land under the user's home directory; if the home directory cannot
// be resolved they fall back to the working directory.
func DefaultConfig() Config {
	base := ".radar"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".radar")
	}

	return Config{
		GitHubBaseURL:     "https://api.github.com",
		DatabasePath:      filepath.Join(base, "history.db"),
		ReportDir:         filepath.Join(base, "reports"),
		RequestsPerSecond: 1.0,
		Concurrency:       4,
		MaxItemsPerRepo:   50,
	}
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if c.GitHubBaseURL == "" {
		return fmt.Errorf("github base url cannot be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.ReportDir == "" {
		return fmt.Errorf("report directory cannot be empty")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive (got %g)", c.RequestsPerSecond)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1 (got %d)", c.Concurrency)
	}
	if c.MaxItemsPerRepo < 1 {
		return fmt.Errorf("max items per repo must be at least 1 (got %d)", c.MaxItemsPerRepo)
	}
	if c.SMTPPort < 0 {
		return fmt.Errorf("smtp port cannot be negative (got %d)", c.SMTPPort)
	}
	return nil
}

// FromEnvironment loads configuration from RADAR_* environment variables,
// falling back to defaults for anything unset.
func FromEnvironment() (Config, error) {
	cfg := DefaultConfig()

	parseEnvString("RADAR_GITHUB_TOKEN", &cfg.GitHubToken)
	parseEnvString("RADAR_GITHUB_BASE_URL", &cfg.GitHubBaseURL)
	parseEnvString("RADAR_DB_PATH", &cfg.DatabasePath)
	parseEnvString("RADAR_REPORT_DIR", &cfg.ReportDir)
	parseEnvString("RADAR_WEBHOOK_URL", &cfg.WebhookURL)
	parseEnvString("RADAR_SMTP_HOST", &cfg.SMTPHost)
	parseEnvString("RADAR_SMTP_USER", &cfg.SMTPUsername)
	parseEnvString("RADAR_SMTP_PASSWORD", &cfg.SMTPPassword)
	parseEnvString("RADAR_EMAIL_TO", &cfg.EmailTo)

	if err := parseEnvInt("RADAR_SMTP_PORT", &cfg.SMTPPort); err != nil {
		return cfg, err
	}

	if err := parseEnvFloat("RADAR_REQUESTS_PER_SECOND", &cfg.RequestsPerSecond); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("RADAR_CONCURRENCY", &cfg.Concurrency); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("RADAR_MAX_ITEMS", &cfg.MaxItemsPerRepo); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// parseEnvInt parses an int from an environment variable.
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable.
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable.
func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}
