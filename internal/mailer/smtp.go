package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
)

// Result is the {success, message} outcome of a send. Send never returns an
// error; transport failures are reported here.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) Result
}

// SMTPMailer opens one SMTP session per message: STARTTLS, then PLAIN auth.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func New(cfg *config.Config, log *logger.Logger) *SMTPMailer {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.SMTP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPMailer{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		from:     cfg.SMTP.From,
		timeout:  timeout,
		log:      log.Component("mailer"),
		now:      time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) Result {
	if err := m.send(ctx, to, subject, body); err != nil {
		m.log.Warnw("email send failed", "to", to, "subject", subject, "error", err)
		return Result{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}
	m.log.Infow("email sent", "to", to, "subject", subject)
	return Result{Success: true, Message: fmt.Sprintf("Email sent successfully to %s", to)}
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if m.username == "" || m.password == "" {
		return errors.New("smtp credentials not configured")
	}
	rcpt, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	from := m.from
	if from == "" {
		from = m.username
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("%s does not offer STARTTLS", addr)
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(rcpt.Address); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(BuildMessage(from, rcpt.Address, subject, body, m.now())); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish body: %w", err)
	}
	return c.Quit()
}

// BuildMessage renders a plain-text RFC 5322 message with CRLF line endings.
func BuildMessage(from, to, subject, body string, date time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue(from) + "\r\n")
	b.WriteString("To: " + headerValue(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", headerValue(subject)) + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
