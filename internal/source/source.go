// Package source fetches open issues from the source-control host. It is the
// engine's only network dependency; everything downstream of it is
// deterministic.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/radarhq/radar/internal/types"
)

// IssueSource yields raw open issues for a repository, capped at maxItems.
// Implementations are rate-limited and fallible; failures carry an ErrorKind
// so the orchestrator can report why a repository was skipped.
type IssueSource interface {
	FetchIssues(ctx context.Context, repository string, maxItems int) ([]types.RawIssue, error)
}

// Error is a fetch failure classified for the scan result.
type Error struct {
	Kind       types.ErrorKind
	Repository string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetching issues for %s: %s: %v", e.Repository, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from a fetch failure. Anything that is not
// a classified source error (including context cancellation mid-fetch)
// counts as transient.
func KindOf(err error) types.ErrorKind {
	var srcErr *Error
	if errors.As(err, &srcErr) {
		return srcErr.Kind
	}
	return types.ErrorKindTransient
}
