package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/frontdeskai/frontdesk/internal/config"
)

// SMTPTransport delivers notifications over SMTP with STARTTLS and plain
// auth (Gmail app-password style).
type SMTPTransport struct {
	host     string
	port     string
	sender   string
	password string
}

// NewSMTPTransport creates a transport from the SMTP configuration.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.Host,
		port:     cfg.Port,
		sender:   cfg.Sender,
		password: cfg.Password,
	}
}

// Deliver sends one message. Network-level failures and 4xx SMTP codes come
// back as transient; auth failures and 5xx codes as fatal.
func (t *SMTPTransport) Deliver(ctx context.Context, destination, subject, body string) error {
	if destination == "" || !strings.Contains(destination, "@") {
		return Fatal(fmt.Errorf("invalid destination address %q", destination))
	}

	msg := buildMessage(t.sender, destination, subject, body)
	addr := net.JoinHostPort(t.host, t.port)
	auth := smtp.PlainAuth("", t.sender, t.password, t.host)

	// net/smtp has no context support, so the send runs in a goroutine and
	// the select enforces the caller's deadline. An abandoned send finishes
	// in the background; its result is discarded.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, t.sender, []string{destination}, msg)
	}()

	select {
	case <-ctx.Done():
		return Transient(fmt.Errorf("smtp send: %w", ctx.Err()))
	case err := <-done:
		if err == nil {
			return nil
		}
		return classifySMTPError(err)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// classifySMTPError maps an smtp.SendMail failure to a transport error kind.
func classifySMTPError(err error) *TransportError {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		// 4xx: server asks us to come back later. 5xx: rejected for good
		// (535 bad credentials, 550 unknown mailbox, ...).
		if protoErr.Code >= 400 && protoErr.Code < 500 {
			return Transient(err)
		}
		return Fatal(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(err)
	}

	// Unrecognized failure: retry, the budget bounds the damage.
	return Transient(err)
}

// LogTransport is used when SMTP is not configured: it logs the notification
// instead of sending it, so development setups never fail dispatch.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Deliver logs the message and reports success.
func (t *LogTransport) Deliver(_ context.Context, destination, subject, body string) error {
	t.logger.Info("email transport not configured, logging notification instead",
		"to", destination, "subject", subject, "body_length", len(body))
	return nil
}

var (
	_ Transport = (*SMTPTransport)(nil)
	_ Transport = (*LogTransport)(nil)
)
