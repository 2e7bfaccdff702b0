// Package history persists which issues have already been surfaced, so
// repeated scans never re-report stale findings. It is the engine's only
// durable state: one record per repository holding the set of seen issue
// keys and the last successful scan time.
package history

import (
	"context"
	"time"

	"github.com/radarhq/radar/internal/types"
)

// Record is the persisted scan history for one repository.
type Record struct {
	Repository    string
	SeenIssueKeys map[string]struct{}
	LastScannedAt time.Time
}

// IsNew reports whether the issue key has never been surfaced for this
// repository. Pure membership test.
func (r Record) IsNew(key string) bool {
	_, seen := r.SeenIssueKeys[key]
	return !seen
}

// Store is the persistence boundary for scan history. Load never invents
// errors for missing or unreadable records (absence means "never scanned");
// errors it does return are I/O failures and are fatal to the pass.
type Store interface {
	// Load returns the repository's record, or an empty record (no keys,
	// zero timestamp) if the repository has never been scanned.
	Load(ctx context.Context, repository string) (Record, error)

	// Commit atomically unions keys into the repository's seen set and
	// advances last_scanned_at. Re-committing known keys is a no-op, and
	// last_scanned_at never moves backwards. A failed commit leaves the
	// previously committed state intact.
	Commit(ctx context.Context, repository string, keys []string, scannedAt time.Time) error

	// SaveOpportunities caches surfaced issues so reports can be re-rendered
	// without a fresh scan.
	SaveOpportunities(ctx context.Context, issues []types.ScoredIssue, surfacedAt time.Time) error

	// TopOpportunities returns the highest-scoring cached opportunities,
	// ordered by score descending then earliest created_at.
	TopOpportunities(ctx context.Context, limit int) ([]types.ScoredIssue, error)

	// Reset forgets everything recorded for a repository, re-surfacing its
	// issues on the next pass.
	Reset(ctx context.Context, repository string) error

	Close() error
}
