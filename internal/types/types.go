package types

import (
	"fmt"
	"time"
)

// Category classifies a tracked repository by contribution focus.
type Category string

const (
	CategoryAIML       Category = "ai_ml"
	CategorySecurity   Category = "security"
	CategoryCompliance Category = "compliance"
	CategoryOther      Category = "other"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryAIML, CategorySecurity, CategoryCompliance, CategoryOther:
		return true
	}
	return false
}

// ParseCategory converts a string into a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category: %q (want ai_ml, security, compliance, or other)", s)
	}
	return c, nil
}

// RawIssue is an open issue as reported by the issue source.
// The scorer treats it as opaque beyond these fields.
type RawIssue struct {
	Repository   string    `json:"repository"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Labels       []string  `json:"labels"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
	Author       string    `json:"author,omitempty"`
	BodyExcerpt  string    `json:"body_excerpt,omitempty"`
}

// Key returns the stable dedup identity "repository#number".
// Titles and labels may change between scans; the key never does.
func (i RawIssue) Key() string {
	return fmt.Sprintf("%s#%d", i.Repository, i.Number)
}

// Tier is a coarse priority band derived from score, used for triage.
type Tier string

const (
	TierCritical Tier = "critical" // score >= 40
	TierHigh     Tier = "high"     // 30-39
	TierMedium   Tier = "medium"   // 25-29
	TierLow      Tier = "low"      // < 25
)

// ScoredIssue is a RawIssue with its contribution-value score and tier.
// Immutable once computed.
type ScoredIssue struct {
	RawIssue
	Category Category `json:"category"`
	Score    int      `json:"score"`
	Tier     Tier     `json:"tier"`
}

// ErrorKind names the failure class for a repository whose fetch failed.
type ErrorKind string

const (
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindTransient   ErrorKind = "transient_network_error"
)

// RepoFailure records a repository whose fetch failed during a pass.
type RepoFailure struct {
	Identifier string    `json:"identifier"`
	ErrorKind  ErrorKind `json:"error_kind"`
	Detail     string    `json:"detail,omitempty"`
}

// ScanResult is the outcome of one full pass over the target catalog.
// It is assembled once, consumed by the report emitter, and discarded;
// only its rendered artifacts persist.
type ScanResult struct {
	PassID             string        `json:"pass_id"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	ReposScanned       int           `json:"repos_scanned"`
	IssuesSeen         int           `json:"issues_seen"`
	NewOpportunities   []ScoredIssue `json:"new_opportunities"`
	FailedRepositories []RepoFailure `json:"failed_repositories"`
}

// Summary returns a human-readable summary of the pass.
func (r *ScanResult) Summary() string {
	return fmt.Sprintf(
		"Pass completed in %v\n"+
			"Repositories scanned: %d (failed: %d)\n"+
			"Issues seen: %d\n"+
			"New opportunities: %d",
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		r.ReposScanned,
		len(r.FailedRepositories),
		r.IssuesSeen,
		len(r.NewOpportunities),
	)
}

// CountByCategory tallies new opportunities per category.
func (r *ScanResult) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, issue := range r.NewOpportunities {
		counts[issue.Category]++
	}
	return counts
}

// CountByTier tallies new opportunities per tier.
func (r *ScanResult) CountByTier() map[Tier]int {
	counts := make(map[Tier]int)
	for _, issue := range r.NewOpportunities {
		counts[issue.Tier]++
	}
	return counts
}
