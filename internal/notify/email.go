package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/radarhq/radar/internal/types"
)

// EmailConfig configures the SMTP digest.
type EmailConfig struct {
	// Host and Port of the SMTP server. Port defaults to 587.
	Host string
	Port int

	// Username and Password authenticate against the server. Username is
	// also the From address.
	Username string
	Password string

	// To is the recipient address.
	To string
}

// EmailNotifier sends pass digests over SMTP.
type EmailNotifier struct {
	cfg EmailConfig

	// send is a test seam; defaults to smtp.SendMail, which upgrades to
	// STARTTLS when the server offers it.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates an SMTP notifier.
func NewEmail(cfg EmailConfig) *EmailNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail}
}

// NotifyResult emails an HTML digest of the pass. Passes with no new
// opportunities are skipped.
func (n *EmailNotifier) NotifyResult(ctx context.Context, result *types.ScanResult) error {
	if n.cfg.Host == "" || n.cfg.Username == "" || n.cfg.To == "" {
		return fmt.Errorf("email: smtp host, username, and recipient are required")
	}
	if len(result.NewOpportunities) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	msg := buildMessage(n.cfg.Username, n.cfg.To, result)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.Username, []string{n.cfg.To}, msg); err != nil {
		return fmt.Errorf("email: sending digest: %w", err)
	}
	return nil
}

// buildMessage assembles the RFC 5322 message with an HTML digest body.
func buildMessage(from, to string, result *types.ScanResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Opportunity Radar Digest - %s\r\n", result.StartedAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: text/html; charset=utf-8\r\n")
	fmt.Fprintf(&b, "\r\n")

	fmt.Fprintf(&b, "<h2>%d new opportunities</h2>\n", len(result.NewOpportunities))
	fmt.Fprintf(&b, "<p>%d repositories scanned, %d issues seen, pass took %v.</p>\n",
		result.ReposScanned, result.IssuesSeen,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	fmt.Fprintf(&b, "<table border=\"1\" cellpadding=\"4\">\n")
	fmt.Fprintf(&b, "<tr><th>Score</th><th>Tier</th><th>Category</th><th>Issue</th><th>Title</th></tr>\n")
	for _, issue := range result.NewOpportunities {
		link := html.EscapeString(issue.Key())
		if issue.URL != "" {
			link = fmt.Sprintf("<a href=\"%s\">%s</a>",
				html.EscapeString(issue.URL), html.EscapeString(issue.Key()))
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			issue.Score, issue.Tier, issue.Category, link, html.EscapeString(issue.Title))
	}
	fmt.Fprintf(&b, "</table>\n")

	if len(result.FailedRepositories) > 0 {
		fmt.Fprintf(&b, "<p>%d repositories failed this pass.</p>\n", len(result.FailedRepositories))
	}

	return []byte(b.String())
}
