package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/finreact/config"
)

func TestBuildMessage(t *testing.T) {
	date := time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC)
	msg := string(BuildMessage("bot@example.com", "ann@example.com", "Daily Stock Update for 2024-03-15", "Good Evening!\n\nline two", date))

	assert.True(t, strings.HasPrefix(msg, "From: bot@example.com\r\nTo: ann@example.com\r\n"))
	assert.Contains(t, msg, "Subject: Daily Stock Update for 2024-03-15\r\n")
	assert.Contains(t, msg, "Date: Fri, 15 Mar 2024 17:00:00 +0000\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nGood Evening!\r\n\r\nline two"))
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(BuildMessage("bot@example.com", "ann@example.com", "hi\r\nBcc: evil@example.com", "body", time.Now()))
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Contains(t, msg, "Subject: hi Bcc: evil@example.com\r\n")
}

func TestBuildMessageEncodesNonASCIISubject(t *testing.T) {
	msg := string(BuildMessage("a@example.com", "b@example.com", "📈 gains", "body", time.Now()))
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}

func TestSendWithoutCredentialsReportsFailure(t *testing.T) {
	m := New(&config.Config{SMTP: config.SMTPConfig{Host: "127.0.0.1", Port: 1}}, nil)
	res := m.Send(context.Background(), "ann@example.com", "s", "b")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "credentials")
}

func TestSendInvalidRecipientReportsFailure(t *testing.T) {
	m := New(&config.Config{SMTP: config.SMTPConfig{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p"}}, nil)
	res := m.Send(context.Background(), "not-an-address", "s", "b")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "invalid recipient")
}

func TestSendUnreachableServerReportsFailure(t *testing.T) {
	m := New(&config.Config{SMTP: config.SMTPConfig{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p", Timeout: time.Second}}, nil)
	res := m.Send(context.Background(), "ann@example.com", "s", "b")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Failed to send email")
}
