// Package dispatch formats and delivers lead notifications with bounded
// retries.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/frontdeskai/frontdesk/internal/config"
	"github.com/frontdeskai/frontdesk/internal/domain"
)

// FailureKind distinguishes retryable delivery failures from permanent ones.
type FailureKind int

const (
	// FailureTransient covers network errors and timeouts; worth retrying.
	FailureTransient FailureKind = iota
	// FailureFatal covers auth failures and invalid destinations; retrying
	// cannot help.
	FailureFatal
)

func (k FailureKind) String() string {
	if k == FailureFatal {
		return "fatal"
	}
	return "transient"
}

// TransportError wraps a delivery failure with its kind.
type TransportError struct {
	Kind FailureKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s delivery failure: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable transport error.
func Transient(err error) *TransportError {
	return &TransportError{Kind: FailureTransient, Err: err}
}

// Fatal wraps err as a non-retryable transport error.
func Fatal(err error) *TransportError {
	return &TransportError{Kind: FailureFatal, Err: err}
}

// Transport is the outbound delivery contract.
type Transport interface {
	Deliver(ctx context.Context, destination, subject, body string) error
}

// Dispatcher sends lead notifications through a Transport, retrying
// transient failures with exponential backoff up to an overall deadline.
// The dispatcher does not deduplicate sends; the caller's dispatch guard is
// responsible for at-most-once semantics per lead.
type Dispatcher struct {
	transport Transport
	cfg       config.DispatchConfig
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher over transport.
func NewDispatcher(transport Transport, cfg config.DispatchConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{transport: transport, cfg: cfg, logger: logger}
}

// Send formats and delivers the notification for lead. A nil return means
// the notification was accepted by the transport. A non-nil return means
// the retry budget was exhausted or the failure was fatal.
func (d *Dispatcher) Send(ctx context.Context, p *domain.ClientProfile, lead *domain.LeadRecord) error {
	subject, body := Format(p, lead)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.InitialBackoff
	bo.MaxInterval = d.cfg.MaxBackoff
	bo.MaxElapsedTime = d.cfg.MaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()

		err := d.transport.Deliver(sctx, p.NotificationEmail, subject, body)
		if err == nil {
			return nil
		}

		var te *TransportError
		if errors.As(err, &te) && te.Kind == FailureFatal {
			return backoff.Permanent(err)
		}

		d.logger.Warn("lead notification attempt failed, will retry",
			"client_id", p.ClientID, "lead_id", lead.LeadID,
			"attempt", attempt, "error", err)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("deliver lead %s after %d attempts: %w", lead.LeadID, attempt, err)
	}
	return nil
}

// Format builds the deterministic subject and body for a lead notification.
// Fields appear in the client's required-field order; any extras follow
// alphabetically.
func Format(p *domain.ClientProfile, lead *domain.LeadRecord) (subject, body string) {
	name := lead.Field("name")
	if name == "" {
		name = "your website"
	}
	subject = fmt.Sprintf("New website lead from %s", name)

	var b strings.Builder
	fmt.Fprintf(&b, "New lead for %s:\n\n", p.DisplayName)

	seen := make(map[string]bool, len(lead.Fields))
	for _, f := range p.RequiredFields {
		if v, ok := lead.Fields[f]; ok {
			fmt.Fprintf(&b, "%s: %s\n", fieldLabel(f), v)
			seen[f] = true
		}
	}

	var extras []string
	for f := range lead.Fields {
		if !seen[f] {
			extras = append(extras, f)
		}
	}
	sort.Strings(extras)
	for _, f := range extras {
		fmt.Fprintf(&b, "%s: %s\n", fieldLabel(f), lead.Fields[f])
	}

	fmt.Fprintf(&b, "\nReceived at: %s\n", lead.CreatedAt.Format(time.RFC3339))
	return subject, b.String()
}

func fieldLabel(field string) string {
	field = strings.ReplaceAll(field, "_", " ")
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
