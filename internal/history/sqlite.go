package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/radarhq/radar/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_issues (
    repository TEXT NOT NULL,
    issue_key TEXT NOT NULL,
    first_seen_at TEXT NOT NULL,
    PRIMARY KEY (repository, issue_key)
);

CREATE TABLE IF NOT EXISTS repo_scans (
    repository TEXT PRIMARY KEY,
    last_scanned_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
    issue_key TEXT PRIMARY KEY,
    repository TEXT NOT NULL,
    number INTEGER NOT NULL,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    labels TEXT NOT NULL DEFAULT '[]',
    comment_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    category TEXT NOT NULL,
    score INTEGER NOT NULL,
    tier TEXT NOT NULL,
    surfaced_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_score ON opportunities(score DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_seen_issues_repo ON seen_issues(repository);
`

// timeLayout is a fixed-width UTC format so the stored strings order
// lexicographically. RFC3339Nano trims trailing zeros, which breaks the
// SQL comparisons on last_scanned_at and created_at: "...:00Z" would sort
// after "...:00.5Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a single SQLite database file.
// Commits run inside transactions, which gives the load-modify-publish
// atomicity the no-regression invariant needs: a crash mid-commit rolls
// back and the seen set is never smaller than any committed state.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens the history database at path.
// The special path ":memory:" creates an in-memory database for tests.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the repository's history record. A repository with no rows
// yields an empty record; an unparseable timestamp is treated as "never
// scanned" rather than an error.
func (s *SQLiteStore) Load(ctx context.Context, repository string) (Record, error) {
	rec := Record{
		Repository:    repository,
		SeenIssueKeys: make(map[string]struct{}),
	}

	var scannedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_scanned_at FROM repo_scans WHERE repository = ?`, repository,
	).Scan(&scannedAt)
	switch {
	case err == sql.ErrNoRows:
		// never scanned
	case err != nil:
		return Record{}, fmt.Errorf("loading scan record for %s: %w", repository, err)
	default:
		if ts, perr := time.Parse(time.RFC3339Nano, scannedAt); perr == nil {
			rec.LastScannedAt = ts
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_key FROM seen_issues WHERE repository = ?`, repository)
	if err != nil {
		return Record{}, fmt.Errorf("loading seen issues for %s: %w", repository, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return Record{}, fmt.Errorf("scanning seen issue row: %w", err)
		}
		rec.SeenIssueKeys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterating seen issues for %s: %w", repository, err)
	}

	return rec, nil
}

// Commit unions keys into the seen set and advances last_scanned_at, all in
// one transaction. The timestamp update is guarded so it only moves forward.
func (s *SQLiteStore) Commit(ctx context.Context, repository string, keys []string, scannedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit for %s: %w", repository, err)
	}
	defer tx.Rollback()

	now := scannedAt.UTC().Format(timeLayout)

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO seen_issues (repository, issue_key, first_seen_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing seen-issue insert: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, repository, key, now); err != nil {
			return fmt.Errorf("recording issue %s: %w", key, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO repo_scans (repository, last_scanned_at) VALUES (?, ?)
		ON CONFLICT(repository) DO UPDATE SET last_scanned_at = excluded.last_scanned_at
		WHERE excluded.last_scanned_at > repo_scans.last_scanned_at`,
		repository, now)
	if err != nil {
		return fmt.Errorf("recording scan time for %s: %w", repository, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history for %s: %w", repository, err)
	}
	return nil
}

// SaveOpportunities upserts surfaced issues into the report cache.
func (s *SQLiteStore) SaveOpportunities(ctx context.Context, issues []types.ScoredIssue, surfacedAt time.Time) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning opportunity save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO opportunities
		(issue_key, repository, number, title, url, labels, comment_count, created_at, category, score, tier, surfaced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing opportunity insert: %w", err)
	}
	defer stmt.Close()

	for _, issue := range issues {
		labels, err := json.Marshal(issue.Labels)
		if err != nil {
			return fmt.Errorf("encoding labels for %s: %w", issue.Key(), err)
		}
		_, err = stmt.ExecContext(ctx,
			issue.Key(), issue.Repository, issue.Number, issue.Title, issue.URL,
			string(labels), issue.CommentCount,
			issue.CreatedAt.UTC().Format(timeLayout),
			string(issue.Category), issue.Score, string(issue.Tier),
			surfacedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("saving opportunity %s: %w", issue.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing opportunities: %w", err)
	}
	return nil
}

// TopOpportunities returns the best cached opportunities, ranked the same
// way a pass ranks fresh ones.
func (s *SQLiteStore) TopOpportunities(ctx context.Context, limit int) ([]types.ScoredIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT repository, number, title, url, labels, comment_count, created_at, category, score, tier
		FROM opportunities
		ORDER BY score DESC, created_at ASC, issue_key ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var out []types.ScoredIssue
	for rows.Next() {
		var (
			issue     types.ScoredIssue
			labels    string
			createdAt string
		)
		err := rows.Scan(&issue.Repository, &issue.Number, &issue.Title, &issue.URL,
			&labels, &issue.CommentCount, &createdAt, &issue.Category, &issue.Score, &issue.Tier)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity row: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &issue.Labels); err != nil {
			return nil, fmt.Errorf("decoding labels for %s: %w", issue.Key(), err)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			issue.CreatedAt = ts
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opportunities: %w", err)
	}
	return out, nil
}

// Reset deletes all history for a repository. Its issues count as new again
// on the next pass.
func (s *SQLiteStore) Reset(ctx context.Context, repository string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset for %s: %w", repository, err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM seen_issues WHERE repository = ?`,
		`DELETE FROM repo_scans WHERE repository = ?`,
		`DELETE FROM opportunities WHERE repository = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, repository); err != nil {
			return fmt.Errorf("resetting history for %s: %w", repository, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset for %s: %w", repository, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
