package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/frontdeskai/frontdesk/internal/config"
	"github.com/frontdeskai/frontdesk/internal/domain"
)

type scriptedTransport struct {
	errs     []error
	attempts int
	subjects []string
}

func (t *scriptedTransport) Deliver(_ context.Context, _, subject, _ string) error {
	t.attempts++
	t.subjects = append(t.subjects, subject)
	if t.attempts <= len(t.errs) {
		return t.errs[t.attempts-1]
	}
	return nil
}

func testDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxElapsed:     200 * time.Millisecond,
		SendTimeout:    50 * time.Millisecond,
	}
}

func testLead() (*domain.ClientProfile, *domain.LeadRecord) {
	p := &domain.ClientProfile{
		ClientID:          "dental-east",
		DisplayName:       "East Side Dental",
		RequiredFields:    []string{"name", "phone", "reason"},
		NotificationEmail: "owner@example.com",
	}
	lead := &domain.LeadRecord{
		LeadID:   "lead-1",
		ClientID: "dental-east",
		Fields: map[string]string{
			"name":   "Jane Doe",
			"phone":  "5551234567",
			"reason": "tooth pain",
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	return p, lead
}

func TestDispatcher_RetriesTransientThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{errs: []error{
		Transient(errors.New("connection refused")),
		Transient(errors.New("connection refused")),
	}}
	d := NewDispatcher(transport, testDispatchConfig(), nil)
	p, lead := testLead()

	if err := d.Send(context.Background(), p, lead); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if transport.attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", transport.attempts)
	}
}

func TestDispatcher_FatalFailureDoesNotRetry(t *testing.T) {
	transport := &scriptedTransport{errs: []error{
		Fatal(errors.New("invalid recipient")),
		nil,
	}}
	d := NewDispatcher(transport, testDispatchConfig(), nil)
	p, lead := testLead()

	err := d.Send(context.Background(), p, lead)
	if err == nil {
		t.Fatal("Expected error for fatal failure")
	}
	if transport.attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", transport.attempts)
	}
}

func TestDispatcher_ExhaustsRetryBudget(t *testing.T) {
	failing := errors.New("connection refused")
	transport := &scriptedTransport{}
	// Fail forever: errs longer than any plausible attempt count.
	for i := 0; i < 1000; i++ {
		transport.errs = append(transport.errs, Transient(failing))
	}
	d := NewDispatcher(transport, testDispatchConfig(), nil)
	p, lead := testLead()

	err := d.Send(context.Background(), p, lead)
	if err == nil {
		t.Fatal("Expected error after exhausted budget")
	}
	if !errors.Is(err, failing) {
		t.Errorf("Expected wrapped transport error, got %v", err)
	}
	if transport.attempts < 2 {
		t.Errorf("Expected multiple attempts before giving up, got %d", transport.attempts)
	}
}

func TestFormat(t *testing.T) {
	p, lead := testLead()
	lead.Fields["referral"] = "google"

	subject, body := Format(p, lead)

	if subject != "New website lead from Jane Doe" {
		t.Errorf("Unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "New lead for East Side Dental:") {
		t.Errorf("Expected client display name in body:\n%s", body)
	}

	// Required fields in profile order, extras after.
	nameIdx := strings.Index(body, "Name: Jane Doe")
	phoneIdx := strings.Index(body, "Phone: 5551234567")
	reasonIdx := strings.Index(body, "Reason: tooth pain")
	extraIdx := strings.Index(body, "Referral: google")
	if nameIdx == -1 || phoneIdx == -1 || reasonIdx == -1 || extraIdx == -1 {
		t.Fatalf("Missing field lines in body:\n%s", body)
	}
	if !(nameIdx < phoneIdx && phoneIdx < reasonIdx && reasonIdx < extraIdx) {
		t.Errorf("Fields out of order:\n%s", body)
	}

	if !strings.Contains(body, "Received at: 2026-03-01T12:00:00Z") {
		t.Errorf("Expected RFC3339 timestamp in body:\n%s", body)
	}
}

func TestFormat_MissingNameFallsBack(t *testing.T) {
	p, lead := testLead()
	delete(lead.Fields, "name")

	subject, _ := Format(p, lead)
	if subject != "New website lead from your website" {
		t.Errorf("Unexpected subject: %q", subject)
	}
}
