package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmailNotifier(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *EmailNotifier {
	n := NewEmail(EmailConfig{
		Host:     "smtp.example.com",
		Username: "radar@example.com",
		Password: "hunter2",
		To:       "dev@example.com",
	})
	n.send = send
	return n
}

func TestEmailNotifyResult(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	n := testEmailNotifier(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a, "password configured, auth expected")
		return nil
	})

	issue := scored("owasp/wstg", 42, 47)
	issue.Title = "Docs <need> work"
	err := n.NotifyResult(context.Background(), resultWith(issue))
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "radar@example.com", gotFrom)
	assert.Equal(t, []string{"dev@example.com"}, gotTo)

	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Opportunity Radar Digest - 2025-06-01")
	assert.Contains(t, body, "Content-Type: text/html")
	assert.Contains(t, body, "owasp/wstg#42")
	assert.Contains(t, body, "Docs &lt;need&gt; work", "titles are HTML-escaped")
}

func TestEmailNotifyResultSkipsEmptyPass(t *testing.T) {
	called := false
	n := testEmailNotifier(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	})

	require.NoError(t, n.NotifyResult(context.Background(), resultWith()))
	assert.False(t, called)
}

func TestEmailNotifyResultIncompleteConfig(t *testing.T) {
	n := NewEmail(EmailConfig{Host: "smtp.example.com"})
	err := n.NotifyResult(context.Background(), resultWith(scored("a/a", 1, 15)))
	assert.Error(t, err)
}

func TestEmailNotifyResultSendFailure(t *testing.T) {
	n := testEmailNotifier(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	})

	err := n.NotifyResult(context.Background(), resultWith(scored("a/a", 1, 15)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmailNotifyResultNoAuthWithoutPassword(t *testing.T) {
	n := NewEmail(EmailConfig{
		Host:     "localhost",
		Username: "radar@example.com",
		To:       "dev@example.com",
	})
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, n.NotifyResult(context.Background(), resultWith(scored("a/a", 1, 15))))
}
