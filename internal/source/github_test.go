package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarhq/radar/internal/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	cfg.InitialBackoff = time.Millisecond
	return NewClient(cfg)
}

func issueJSON(number int, title string, labels []string, comments int, pr bool) map[string]any {
	doc := map[string]any{
		"number":     number,
		"title":      title,
		"html_url":   fmt.Sprintf("https://github.com/o/r/issues/%d", number),
		"comments":   comments,
		"created_at": time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(number) * time.Hour),
		"body":       "details",
		"user":       map[string]any{"login": "someone"},
	}
	ls := make([]map[string]string, len(labels))
	for i, l := range labels {
		ls[i] = map[string]string{"name": l}
	}
	doc["labels"] = ls
	if pr {
		doc["pull_request"] = map[string]any{}
	}
	return doc
}

func TestFetchIssues(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owasp/wstg/issues", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))

		json.NewEncoder(w).Encode([]map[string]any{
			issueJSON(1, "Broken link", []string{"documentation", "help wanted"}, 0, false),
			issueJSON(2, "Some PR", nil, 3, true),
			issueJSON(3, "Crash on load", []string{"bug"}, 5, false),
		})
	})

	issues, err := client.FetchIssues(context.Background(), "owasp/wstg", 10)
	require.NoError(t, err)
	require.Len(t, issues, 2, "pull requests are not issues")

	assert.Equal(t, "owasp/wstg#1", issues[0].Key())
	assert.Equal(t, "Broken link", issues[0].Title)
	assert.Equal(t, []string{"documentation", "help wanted"}, issues[0].Labels)
	assert.Equal(t, 0, issues[0].CommentCount)
	assert.Equal(t, "someone", issues[0].Author)
	assert.Equal(t, "https://github.com/o/r/issues/1", issues[0].URL)
	assert.Equal(t, 3, issues[1].Number)
}

func TestFetchIssuesPaginates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		require.LessOrEqual(t, perPage, 100)

		var docs []map[string]any
		if page == 1 {
			for i := 1; i <= perPage; i++ {
				docs = append(docs, issueJSON(i, "issue", nil, 1, false))
			}
		} else {
			docs = append(docs, issueJSON(perPage+1, "issue", nil, 1, false))
		}
		json.NewEncoder(w).Encode(docs)
	})

	issues, err := client.FetchIssues(context.Background(), "o/r", 101)
	require.NoError(t, err)
	assert.Len(t, issues, 101)
}

func TestFetchIssuesRespectsCap(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		var docs []map[string]any
		for i := 1; i <= perPage; i++ {
			docs = append(docs, issueJSON(i, "issue", nil, 1, false))
		}
		json.NewEncoder(w).Encode(docs)
	})

	issues, err := client.FetchIssues(context.Background(), "o/r", 5)
	require.NoError(t, err)
	assert.Len(t, issues, 5)
}

func TestFetchIssuesErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   types.ErrorKind
	}{
		{"rate limited", http.StatusForbidden, types.ErrorKindRateLimited},
		{"secondary rate limit", http.StatusTooManyRequests, types.ErrorKindRateLimited},
		{"not found", http.StatusNotFound, types.ErrorKindNotFound},
		{"server error", http.StatusBadGateway, types.ErrorKindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := client.FetchIssues(context.Background(), "o/r", 10)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))

			var srcErr *Error
			require.True(t, errors.As(err, &srcErr))
			assert.Equal(t, "o/r", srcErr.Repository)
		})
	}
}

func TestFetchIssuesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{issueJSON(1, "ok now", nil, 0, false)})
	})

	issues, err := client.FetchIssues(context.Background(), "o/r", 10)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchIssuesDoesNotRetryRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limit exceeded", http.StatusForbidden)
	})

	_, err := client.FetchIssues(context.Background(), "o/r", 10)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchIssuesCancelledContext(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchIssues(ctx, "o/r", 10)
	require.Error(t, err)
	assert.Equal(t, types.ErrorKindTransient, KindOf(err))
}

func TestFetchIssuesTruncatesBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		doc := issueJSON(1, "long body", nil, 0, false)
		doc["body"] = strings.Repeat("x", 2000)
		json.NewEncoder(w).Encode([]map[string]any{doc})
	})

	issues, err := client.FetchIssues(context.Background(), "o/r", 1)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Len(t, issues[0].BodyExcerpt, bodyExcerptLen)
}

func TestFetchIssuesTruncatesBodyOnRuneBoundary(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		doc := issueJSON(1, "multibyte body", nil, 0, false)
		// Three-byte runes misaligned with the byte cap, so a byte slice
		// would cut mid-rune.
		doc["body"] = strings.Repeat("☃", 400)
		json.NewEncoder(w).Encode([]map[string]any{doc})
	})

	issues, err := client.FetchIssues(context.Background(), "o/r", 1)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	excerpt := issues[0].BodyExcerpt
	assert.True(t, utf8.ValidString(excerpt), "excerpt must remain valid UTF-8")
	assert.LessOrEqual(t, len(excerpt), bodyExcerptLen)
	assert.True(t, strings.HasSuffix(excerpt, "☃"))
}

func TestKindOfUnclassifiedError(t *testing.T) {
	assert.Equal(t, types.ErrorKindTransient, KindOf(errors.New("boom")))
}
