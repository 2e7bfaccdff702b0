package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarhq/radar/internal/types"
)

func sampleResult() *types.ScanResult {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &types.ScanResult{
		PassID:       "pass-123",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		ReposScanned: 2,
		IssuesSeen:   10,
		NewOpportunities: []types.ScoredIssue{
			{
				RawIssue: types.RawIssue{
					Repository:   "owasp/wstg",
					Number:       42,
					Title:        "Document testing guide | section 4",
					Labels:       []string{"help wanted"},
					CommentCount: 0,
					CreatedAt:    started.Add(-48 * time.Hour),
					URL:          "https://github.com/owasp/wstg/issues/42",
				},
				Category: types.CategorySecurity,
				Score:    47,
				Tier:     types.TierCritical,
			},
			{
				RawIssue: types.RawIssue{
					Repository: "langchain-ai/langchain",
					Number:     7,
					Title:      "Fix typo",
					CreatedAt:  started.Add(-24 * time.Hour),
				},
				Category: types.CategoryAIML,
				Score:    5,
				Tier:     types.TierLow,
			},
		},
		FailedRepositories: []types.RepoFailure{
			{Identifier: "gone/repo", ErrorKind: types.ErrorKindNotFound, Detail: "api status 404"},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "# Opportunity Radar Report")
	assert.Contains(t, md, "`pass-123`")
	assert.Contains(t, md, "**New opportunities:** 2")
	assert.Contains(t, md, "[owasp/wstg#42](https://github.com/owasp/wstg/issues/42)")
	assert.Contains(t, md, "- critical: 1")
	assert.Contains(t, md, "- low: 1")
	assert.Contains(t, md, "- ai_ml: 1")
	assert.Contains(t, md, "`gone/repo`: not_found")
	// Pipes in titles must not break the table.
	assert.Contains(t, md, "Document testing guide \\| section 4")
}

func TestMarkdownEmptyResult(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	md := Markdown(&types.ScanResult{
		PassID:     "empty",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	})

	assert.Contains(t, md, "**New opportunities:** 0")
	assert.NotContains(t, md, "## New Opportunities")
	assert.NotContains(t, md, "## Failed Repositories")
}

func TestWriteMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	e := &Emitter{Dir: dir}

	path, err := e.WriteMarkdown(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "radar-20250601-120000.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Opportunity Radar Report")

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSON(t *testing.T) {
	e := &Emitter{Dir: t.TempDir()}

	path, err := e.WriteJSON(sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "radar-20250601-120000.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded types.ScanResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pass-123", decoded.PassID)
	assert.Len(t, decoded.NewOpportunities, 2)
	assert.Equal(t, 47, decoded.NewOpportunities[0].Score)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	PrintResult(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "Scan complete")
	assert.Contains(t, out, "2 scanned")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "owasp/wstg#42")
	assert.Contains(t, out, "gone/repo: not_found")
}

func TestPrintIssuesEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintIssues(&buf, nil)
	assert.Contains(t, buf.String(), "SCORE")
}
