// Package report renders scan results as markdown files, JSON files, and
// colored terminal output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/radarhq/radar/internal/types"
)

// Emitter writes report artifacts into a directory.
type Emitter struct {
	// Dir is the output directory. Created on first write.
	Dir string
}

// WriteMarkdown renders the result as a markdown report and writes it
// atomically. Returns the path of the written file.
func (e *Emitter) WriteMarkdown(result *types.ScanResult) (string, error) {
	path := filepath.Join(e.Dir, fileName(result, "md"))
	return path, e.writeAtomic(path, []byte(Markdown(result)))
}

// WriteJSON serializes the full result and writes it atomically. Returns
// the path of the written file.
func (e *Emitter) WriteJSON(result *types.ScanResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	path := filepath.Join(e.Dir, fileName(result, "json"))
	return path, e.writeAtomic(path, data)
}

func fileName(result *types.ScanResult, ext string) string {
	return fmt.Sprintf("radar-%s.%s", result.StartedAt.UTC().Format("20060102-150405"), ext)
}

// writeAtomic writes via temp file + rename so readers never see a partial
// report.
func (e *Emitter) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

// Markdown renders the result as a markdown document.
func Markdown(result *types.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Opportunity Radar Report\n\n")
	fmt.Fprintf(&b, "- **Pass:** `%s`\n", result.PassID)
	fmt.Fprintf(&b, "- **Started:** %s\n", result.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration:** %v\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "- **Repositories scanned:** %d\n", result.ReposScanned)
	fmt.Fprintf(&b, "- **Issues seen:** %d\n", result.IssuesSeen)
	fmt.Fprintf(&b, "- **New opportunities:** %d\n", len(result.NewOpportunities))

	if len(result.NewOpportunities) > 0 {
		fmt.Fprintf(&b, "\n## New Opportunities\n\n")
		fmt.Fprintf(&b, "| Score | Tier | Category | Issue | Title | Comments | Created |\n")
		fmt.Fprintf(&b, "|------:|------|----------|-------|-------|---------:|---------|\n")
		for _, issue := range result.NewOpportunities {
			title := issue.Title
			if len(title) > 80 {
				title = title[:77] + "..."
			}
			link := issue.Key()
			if issue.URL != "" {
				link = fmt.Sprintf("[%s](%s)", issue.Key(), issue.URL)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %d | %s |\n",
				issue.Score, issue.Tier, issue.Category, link,
				escapeCell(title), issue.CommentCount,
				issue.CreatedAt.UTC().Format("2006-01-02"))
		}

		fmt.Fprintf(&b, "\n### By Tier\n\n")
		for _, tier := range []types.Tier{types.TierCritical, types.TierHigh, types.TierMedium, types.TierLow} {
			if n := result.CountByTier()[tier]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", tier, n)
			}
		}

		fmt.Fprintf(&b, "\n### By Category\n\n")
		counts := result.CountByCategory()
		categories := make([]string, 0, len(counts))
		for c := range counts {
			categories = append(categories, string(c))
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "- %s: %d\n", c, counts[types.Category(c)])
		}
	}

	if len(result.FailedRepositories) > 0 {
		fmt.Fprintf(&b, "\n## Failed Repositories\n\n")
		for _, f := range result.FailedRepositories {
			fmt.Fprintf(&b, "- `%s`: %s", f.Identifier, f.ErrorKind)
			if f.Detail != "" {
				fmt.Fprintf(&b, " (%s)", f.Detail)
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// PrintResult writes a colored summary of the pass to w.
func PrintResult(w io.Writer, result *types.ScanResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("Scan complete"))
	fmt.Fprintf(w, "  Repositories: %d scanned", result.ReposScanned)
	if n := len(result.FailedRepositories); n > 0 {
		fmt.Fprintf(w, ", %s", red(fmt.Sprintf("%d failed", n)))
	}
	fmt.Fprintf(w, "\n  Issues seen:  %d\n", result.IssuesSeen)
	fmt.Fprintf(w, "  New:          %s\n", green(fmt.Sprintf("%d", len(result.NewOpportunities))))
	fmt.Fprintf(w, "  Duration:     %s\n", gray(result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()))

	if len(result.NewOpportunities) > 0 {
		fmt.Fprintln(w)
		PrintIssues(w, result.NewOpportunities)
	}

	for _, f := range result.FailedRepositories {
		fmt.Fprintf(w, "  %s %s: %s\n", red("✗"), f.Identifier, f.ErrorKind)
	}
}

// PrintIssues writes a colored table of scored issues to w, highest first.
func PrintIssues(w io.Writer, issues []types.ScoredIssue) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "  %s  %s  %-10s  %s\n", bold("SCORE"), bold("TIER    "), bold("CATEGORY"), bold("ISSUE"))
	for _, issue := range issues {
		fmt.Fprintf(w, "  %5d  %s  %-10s  %s  %s\n",
			issue.Score, tierColor(issue.Tier)(fmt.Sprintf("%-8s", issue.Tier)),
			issue.Category, issue.Key(), issue.Title)
	}
}

func tierColor(tier types.Tier) func(a ...interface{}) string {
	switch tier {
	case types.TierCritical:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case types.TierHigh:
		return color.New(color.FgYellow).SprintFunc()
	case types.TierMedium:
		return color.New(color.FgCyan).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}
