package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/radarhq/radar/internal/types"
)

const (
	defaultBaseURL = "https://api.github.com"
	maxPerPage     = 100
	bodyExcerptLen = 500
)

// ClientConfig configures the GitHub issue client.
type ClientConfig struct {
	// BaseURL of the REST API. Default: https://api.github.com
	BaseURL string

	// Token is an optional bearer token; without it the API allows only 60
	// requests per hour.
	Token string

	// RequestsPerSecond caps the client-side request rate so a pass stays
	// inside the host's rate-limit budget. Default: 1.
	RequestsPerSecond float64

	// Timeout applies per HTTP request. Default: 30s.
	Timeout time.Duration

	// MaxRetries bounds retries of transient failures (5xx, network).
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the first retry delay; it doubles per attempt.
	// Default: 500ms.
	InitialBackoff time.Duration
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           defaultBaseURL,
		RequestsPerSecond: 1,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
	}
}

// Client fetches open issues through the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
}

var _ IssueSource = (*Client)(nil)

// NewClient creates a GitHub issue client.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retries: cfg.MaxRetries,
		backoff: cfg.InitialBackoff,
	}
}

// issueDoc mirrors the fields of the REST issue object the engine consumes.
type issueDoc struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	Body      string    `json:"body"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	User *struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// FetchIssues lists open issues for "owner/name", newest first, up to
// maxItems. Pull requests (which the issues endpoint also returns) are
// skipped and do not count against the cap.
func (c *Client) FetchIssues(ctx context.Context, repository string, maxItems int) ([]types.RawIssue, error) {
	if maxItems <= 0 {
		return nil, nil
	}

	// per_page stays constant across pages; varying it would shift the
	// host's pagination windows and return duplicates.
	perPage := maxItems
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var issues []types.RawIssue
	for page := 1; len(issues) < maxItems; page++ {
		docs, err := c.listPage(ctx, repository, page, perPage)
		if err != nil {
			return nil, err
		}

		for _, doc := range docs {
			if doc.PullRequest != nil {
				continue
			}
			issues = append(issues, toRawIssue(repository, doc))
			if len(issues) == maxItems {
				break
			}
		}

		if len(docs) < perPage {
			break // last page
		}
	}

	return issues, nil
}

func (c *Client) listPage(ctx context.Context, repository string, page, perPage int) ([]issueDoc, error) {
	q := url.Values{}
	q.Set("state", "open")
	q.Set("sort", "created")
	q.Set("direction", "desc")
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("page", fmt.Sprint(page))

	u := fmt.Sprintf("%s/repos/%s/issues?%s", c.baseURL, repository, q.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: types.ErrorKindTransient, Repository: repository, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: types.ErrorKindTransient, Repository: repository, Err: err}
		}

		docs, retryable, err := c.doList(ctx, repository, u)
		if err == nil {
			return docs, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// doList performs one request. The second return value reports whether the
// failure is worth retrying (5xx and network errors are; 403/404 are not).
func (c *Client) doList(ctx context.Context, repository, u string) ([]issueDoc, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, &Error{Kind: types.ErrorKindTransient, Repository: repository, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, &Error{Kind: types.ErrorKindTransient, Repository: repository, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var docs []issueDoc
		if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
			return nil, false, &Error{Kind: types.ErrorKindTransient, Repository: repository,
				Err: fmt.Errorf("decoding response: %w", err)}
		}
		return docs, false, nil

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, &Error{Kind: types.ErrorKindRateLimited, Repository: repository,
			Err: statusError(resp)}

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &Error{Kind: types.ErrorKindNotFound, Repository: repository,
			Err: statusError(resp)}

	case resp.StatusCode >= 500:
		return nil, true, &Error{Kind: types.ErrorKindTransient, Repository: repository,
			Err: statusError(resp)}

	default:
		return nil, false, &Error{Kind: types.ErrorKindTransient, Repository: repository,
			Err: statusError(resp)}
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("api status %d", resp.StatusCode)
	}
	return fmt.Errorf("api status %d: %s", resp.StatusCode, msg)
}

func toRawIssue(repository string, doc issueDoc) types.RawIssue {
	labels := make([]string, len(doc.Labels))
	for i, l := range doc.Labels {
		labels[i] = l.Name
	}

	author := ""
	if doc.User != nil {
		author = doc.User.Login
	}

	body := doc.Body
	if len(body) > bodyExcerptLen {
		cut := bodyExcerptLen
		// Back up to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	return types.RawIssue{
		Repository:   repository,
		Number:       doc.Number,
		Title:        doc.Title,
		Labels:       labels,
		CommentCount: doc.Comments,
		CreatedAt:    doc.CreatedAt,
		URL:          doc.HTMLURL,
		Author:       author,
		BodyExcerpt:  body,
	}
}
