// Package scoring turns raw issues into scored contribution opportunities.
//
// Scoring is a pure function of the issue's fields and the repository's
// category: the same issue always produces the same score, so results are
// reproducible and never depend on arrival order from the issue source.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/radarhq/radar/internal/types"
)

// Weights is the data-driven scoring configuration. Label points and category
// multipliers are plain data rather than code branches so alternative tables
// can be loaded from the catalog file.
type Weights struct {
	// Labels maps lowercase label names to base points.
	Labels map[string]int `yaml:"labels"`

	// Multipliers scales the label-point sum per repository category.
	// Categories without an entry use 1.0.
	Multipliers map[types.Category]float64 `yaml:"multipliers"`

	// UncommentedBonus is added when an issue has zero comments
	// (uncontested issues are easier to pick up).
	UncommentedBonus int `yaml:"uncommented_bonus"`

	// ContestedPenalty is subtracted when CommentCount exceeds
	// ContestedThreshold (the issue is likely already being worked).
	ContestedPenalty   int `yaml:"contested_penalty"`
	ContestedThreshold int `yaml:"contested_threshold"`

	// DetailBonus is added when the body excerpt is longer than
	// DetailThreshold characters. Zero disables the bonus.
	DetailBonus     int `yaml:"detail_bonus"`
	DetailThreshold int `yaml:"detail_threshold"`
}

// DefaultWeights returns the default scoring table.
//
// The numeric values are empirically chosen; only the resulting ordering and
// tie-break rules are load-bearing.
func DefaultWeights() Weights {
	return Weights{
		Labels: map[string]int{
			"help wanted":       15,
			"good first issue":  15,
			"beginner-friendly": 15,
			"easy":              15,
			"bug":               10,
			"security":          10,
			"vulnerability":     10,
			"documentation":     5,
			"feature":           5,
			"enhancement":       5,
		},
		Multipliers: map[types.Category]float64{
			types.CategoryAIML:       1.0,
			types.CategorySecurity:   1.2,
			types.CategoryCompliance: 1.0,
			types.CategoryOther:      1.0,
		},
		UncommentedBonus:   5,
		ContestedPenalty:   5,
		ContestedThreshold: 20,
		DetailBonus:        0,
		DetailThreshold:    200,
	}
}

// Score computes the contribution-value score and tier for a raw issue.
// Pure and total: no I/O, no failure mode, no hidden state.
func Score(issue types.RawIssue, category types.Category, w Weights) types.ScoredIssue {
	points := 0
	for _, label := range issue.Labels {
		points += w.Labels[strings.ToLower(label)]
	}

	multiplier, ok := w.Multipliers[category]
	if !ok {
		multiplier = 1.0
	}
	score := int(math.Round(float64(points) * multiplier))

	if issue.CommentCount == 0 {
		score += w.UncommentedBonus
	} else if issue.CommentCount > w.ContestedThreshold {
		score -= w.ContestedPenalty
	}

	if w.DetailBonus > 0 && len(issue.BodyExcerpt) > w.DetailThreshold {
		score += w.DetailBonus
	}

	if score < 0 {
		score = 0
	}

	return types.ScoredIssue{
		RawIssue: issue,
		Category: category,
		Score:    score,
		Tier:     TierFor(score),
	}
}

// TierFor bands a score into a triage tier.
func TierFor(score int) types.Tier {
	switch {
	case score >= 40:
		return types.TierCritical
	case score >= 30:
		return types.TierHigh
	case score >= 25:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

// Less reports whether a should precede b in a ranked opportunity list:
// higher score first, then earlier created_at, then issue key. The final
// key comparison makes the order total, so equal inputs always render
// identically.
func Less(a, b types.ScoredIssue) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Key() < b.Key()
}

// Sort orders opportunities by Less, in place.
func Sort(issues []types.ScoredIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return Less(issues[i], issues[j])
	})
}
