// Package scan drives one full pass over the target catalog: fetch, score,
// filter against history, commit, and assemble a ranked ScanResult.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/radarhq/radar/internal/catalog"
	"github.com/radarhq/radar/internal/history"
	"github.com/radarhq/radar/internal/scoring"
	"github.com/radarhq/radar/internal/source"
	"github.com/radarhq/radar/internal/types"
)

// Config controls a pass.
type Config struct {
	// MaxItemsPerRepo caps how many issues are consumed per repository.
	// Default: 50.
	MaxItemsPerRepo int

	// Concurrency bounds how many repositories are fetched at once.
	// Scoring and the history commit for a repository always happen after
	// that repository's fetch completes. Default: 4.
	Concurrency int

	// DryRun previews a pass without committing history or caching
	// opportunities.
	DryRun bool
}

// DefaultConfig returns the default pass configuration.
func DefaultConfig() Config {
	return Config{
		MaxItemsPerRepo: 50,
		Concurrency:     4,
	}
}

// Orchestrator coordinates the scan pipeline:
//   - fetches raw issues per repository (bounded concurrency)
//   - scores them with the catalog's weights
//   - filters out previously surfaced issue keys
//   - commits the pass's keys back to the history store
//   - assembles the ranked ScanResult
//
// One repository's fetch failure never aborts the pass; it is recorded in
// the result instead. History store failures are fatal and abort the pass.
type Orchestrator struct {
	source  source.IssueSource
	history history.Store
	weights scoring.Weights
	cfg     Config

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// New creates an orchestrator.
func New(src source.IssueSource, store history.Store, weights scoring.Weights, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxItemsPerRepo <= 0 {
		cfg.MaxItemsPerRepo = def.MaxItemsPerRepo
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	return &Orchestrator{
		source:  src,
		history: store,
		weights: weights,
		cfg:     cfg,
		now:     time.Now,
	}
}

// outcome is the per-repository result slot, indexed by catalog position so
// failures keep their catalog order without cross-goroutine coordination.
type outcome struct {
	fresh   []types.ScoredIssue
	seen    int
	failure *types.RepoFailure
	scanned bool
}

// RunPass scans every target independently and returns the assembled result.
// The returned error is non-nil only for fatal failures (history store I/O);
// per-repository fetch failures are data in the result.
func (o *Orchestrator) RunPass(ctx context.Context, targets []catalog.Target) (*types.ScanResult, error) {
	startedAt := o.now()
	outcomes := make([]outcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			return o.scanRepository(gctx, target, &outcomes[i])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &types.ScanResult{
		PassID:    uuid.NewString(),
		StartedAt: startedAt,
	}
	for _, out := range outcomes {
		if out.failure != nil {
			result.FailedRepositories = append(result.FailedRepositories, *out.failure)
			continue
		}
		if out.scanned {
			result.ReposScanned++
			result.IssuesSeen += out.seen
			result.NewOpportunities = append(result.NewOpportunities, out.fresh...)
		}
	}
	scoring.Sort(result.NewOpportunities)
	result.FinishedAt = o.now()

	if !o.cfg.DryRun && len(result.NewOpportunities) > 0 {
		if err := o.history.SaveOpportunities(context.WithoutCancel(ctx), result.NewOpportunities, result.FinishedAt); err != nil {
			return nil, fmt.Errorf("caching opportunities: %w", err)
		}
	}

	return result, nil
}

// scanRepository handles one target end to end. Fetch failures fill the
// outcome's failure slot and return nil; history errors propagate as fatal.
func (o *Orchestrator) scanRepository(ctx context.Context, target catalog.Target, out *outcome) error {
	issues, err := o.source.FetchIssues(ctx, target.Identifier, o.cfg.MaxItemsPerRepo)
	if err != nil {
		out.failure = &types.RepoFailure{
			Identifier: target.Identifier,
			ErrorKind:  source.KindOf(err),
			Detail:     err.Error(),
		}
		return nil
	}

	// Cancellation is scoped to the fetch wait. Once a repository's issues
	// are in hand, its history load and commit run to completion even if
	// the pass was cancelled mid-flight; otherwise a cancel arriving after
	// a successful fetch would abort the pass as a fatal store failure and
	// leave it half-scanned.
	storeCtx := context.WithoutCancel(ctx)

	record, err := o.history.Load(storeCtx, target.Identifier)
	if err != nil {
		return fmt.Errorf("loading history for %s: %w", target.Identifier, err)
	}

	// Keys are committed whether or not they were already seen; the union
	// is a no-op for known keys. Duplicate keys within a single fetch are
	// collapsed so an issue never appears twice in one result.
	keys := make([]string, 0, len(issues))
	inPass := make(map[string]bool, len(issues))
	for _, raw := range issues {
		key := raw.Key()
		if inPass[key] {
			continue
		}
		inPass[key] = true
		keys = append(keys, key)

		if record.IsNew(key) {
			out.fresh = append(out.fresh, scoring.Score(raw, target.Category, o.weights))
		}
	}
	out.seen = len(keys)

	if !o.cfg.DryRun {
		if err := o.history.Commit(storeCtx, target.Identifier, keys, o.now()); err != nil {
			return fmt.Errorf("committing history for %s: %w", target.Identifier, err)
		}
	}

	out.scanned = true
	return nil
}
