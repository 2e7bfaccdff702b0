// Package notify pushes pass summaries to a Discord webhook. Notification
// failures are reported to the caller but never abort a pass.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/radarhq/radar/internal/types"
)

// Discord's content field caps out at 2000 characters.
const maxMessageLen = 2000

// Notifier delivers a pass summary to an external channel.
type Notifier interface {
	NotifyResult(ctx context.Context, result *types.ScanResult) error
}

// DiscordNotifier posts pass summaries to a Discord webhook URL.
type DiscordNotifier struct {
	webhookURL string
	http       *http.Client
}

// NewDiscord creates a notifier for the given webhook URL.
func NewDiscord(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyResult posts a summary of the pass. Passes with no new opportunities
// are skipped; nobody wants an empty ping.
func (n *DiscordNotifier) NotifyResult(ctx context.Context, result *types.ScanResult) error {
	if n.webhookURL == "" {
		return fmt.Errorf("discord: missing webhook url")
	}
	if len(result.NewOpportunities) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]any{"content": FormatMessage(result)})
	if err != nil {
		return fmt.Errorf("discord: encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord: webhook status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}

// FormatMessage renders the pass summary as a Discord message, truncated to
// the platform limit.
func FormatMessage(result *types.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%d new opportunities** (%d repos, %d issues seen)\n",
		len(result.NewOpportunities), result.ReposScanned, result.IssuesSeen)

	for _, issue := range result.NewOpportunities {
		line := fmt.Sprintf("`%2d` [%s] %s", issue.Score, issue.Tier, issue.Key())
		if issue.URL != "" {
			line += " <" + issue.URL + ">"
		}
		line += "\n"
		if b.Len()+len(line) > maxMessageLen-32 {
			fmt.Fprintf(&b, "… and more\n")
			break
		}
		b.WriteString(line)
	}

	if n := len(result.FailedRepositories); n > 0 {
		fmt.Fprintf(&b, "%d repositories failed this pass\n", n)
	}

	return b.String()
}
