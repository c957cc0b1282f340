package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frontdeskai/frontdesk/internal/config"
	"github.com/frontdeskai/frontdesk/internal/domain"
	"github.com/frontdeskai/frontdesk/internal/lead"
	"github.com/frontdeskai/frontdesk/internal/profile"
	"github.com/frontdeskai/frontdesk/internal/session"
	"github.com/go-chi/chi/v5"
)

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, clientID string) (*domain.ClientProfile, error) {
	if clientID != "dental-east" {
		return nil, profile.ErrUnknownClient
	}
	return &domain.ClientProfile{
		ClientID:          clientID,
		DisplayName:       "East Side Dental",
		FAQText:           "We are open 9-5.",
		RequiredFields:    []string{"name", "phone", "reason"},
		NotificationEmail: "owner@example.com",
	}, nil
}

type fakeRepo struct {
	leads    []*domain.LeadRecord
	failures []*domain.LeadRecord
	pingErr  error
}

func (r *fakeRepo) SaveLead(_ context.Context, lead *domain.LeadRecord) error {
	r.leads = append(r.leads, lead)
	return nil
}

func (r *fakeRepo) RecentLeads(_ context.Context, clientID string, limit int) ([]*domain.LeadRecord, error) {
	var out []*domain.LeadRecord
	for i := len(r.leads) - 1; i >= 0 && len(out) < limit; i-- {
		if r.leads[i].ClientID == clientID {
			out = append(out, r.leads[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) RecordDispatchFailure(_ context.Context, lead *domain.LeadRecord, _ string) error {
	r.failures = append(r.failures, lead)
	return nil
}

func (r *fakeRepo) UnresolvedDispatchFailures(_ context.Context, limit int) ([]*domain.LeadRecord, error) {
	if limit > len(r.failures) {
		limit = len(r.failures)
	}
	return r.failures[:limit], nil
}

func (r *fakeRepo) Ping(_ context.Context) error { return r.pingErr }

func (r *fakeRepo) Close() error { return nil }

type fakeAnswerer struct{}

func (fakeAnswerer) Answer(_ context.Context, _ *domain.ClientProfile, _ []domain.Message, _ string) string {
	return "We are open 9-5."
}

type fakeSender struct {
	err   error
	sends int
}

func (s *fakeSender) Send(_ context.Context, _ *domain.ClientProfile, _ *domain.LeadRecord) error {
	s.sends++
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 600, Burst: 100},
		Lead:      config.LeadConfig{PhoneMinDigits: 7, PhoneMaxDigits: 15, HistoryLimit: 20},
	}
}

func newTestServer(repo *fakeRepo, sender *fakeSender) *httptest.Server {
	cfg := testConfig()
	policy := lead.FieldPolicy{PhoneMinDigits: 7, PhoneMaxDigits: 15}
	machine := lead.NewMachine(nil, fakeAnswerer{}, sender, repo, policy, 20, nil)
	h := NewHandler(profile.NewStore(fakeLoader{}), session.NewRegistry(), machine, sender, policy, repo, cfg)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return httptest.NewServer(r)
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func TestHandleChat_Validation(t *testing.T) {
	srv := newTestServer(&fakeRepo{}, &fakeSender{})
	defer srv.Close()

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing message", map[string]string{"client_id": "dental-east", "session_id": "s1"}},
		{"missing client_id", map[string]string{"message": "hi", "session_id": "s1"}},
		{"missing session_id", map[string]string{"message": "hi", "client_id": "dental-east"}},
	}
	for _, tt := range tests {
		resp := postJSON(t, srv.URL+"/api/chat", tt.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.name, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestHandleChat_UnknownClient(t *testing.T) {
	srv := newTestServer(&fakeRepo{}, &fakeSender{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/chat", map[string]string{
		"message": "hi", "client_id": "ghost", "session_id": "s1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown client, got %d", resp.StatusCode)
	}
}

func TestHandleChat_FullLeadFlow(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{}
	srv := newTestServer(repo, sender)
	defer srv.Close()

	turn := func(msg string) ChatResponse {
		resp := postJSON(t, srv.URL+"/api/chat", map[string]string{
			"message": msg, "client_id": "dental-east", "session_id": "s1",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200 for %q, got %d", msg, resp.StatusCode)
		}
		var out ChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		return out
	}

	if out := turn("What are your hours?"); out.Phase != "browsing" {
		t.Errorf("Expected browsing, got %s", out.Phase)
	}
	if out := turn("take my info"); out.Phase != "collecting" {
		t.Errorf("Expected collecting, got %s", out.Phase)
	}
	turn("Jane Doe, 555-123-4567")
	out := turn("tooth pain")

	if out.Phase != "dispatched" {
		t.Errorf("Expected dispatched, got %s", out.Phase)
	}
	if !out.LeadDispatched {
		t.Error("Expected lead_dispatched=true")
	}
	if sender.sends != 1 {
		t.Errorf("Expected 1 notification, got %d", sender.sends)
	}
	if len(repo.leads) != 1 {
		t.Fatalf("Expected 1 archived lead, got %d", len(repo.leads))
	}
	if repo.leads[0].Fields["phone"] != "5551234567" {
		t.Errorf("Expected normalized phone, got %q", repo.leads[0].Fields["phone"])
	}
}

func TestHandleChat_RateLimit(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{}
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1}

	policy := lead.FieldPolicy{PhoneMinDigits: 7, PhoneMaxDigits: 15}
	machine := lead.NewMachine(nil, fakeAnswerer{}, sender, repo, policy, 20, nil)
	h := NewHandler(profile.NewStore(fakeLoader{}), session.NewRegistry(), machine, sender, policy, repo, cfg)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	body := map[string]string{"message": "hi", "client_id": "dental-east", "session_id": "s1"}

	resp := postJSON(t, srv.URL+"/api/chat", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/chat", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for second request, got %d", resp.StatusCode)
	}
}

func TestHandleLeadSubmit(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{}
	srv := newTestServer(repo, sender)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/lead", map[string]interface{}{
		"client_id": "dental-east",
		"fields": map[string]string{
			"name": "Jane Doe", "phone": "555-123-4567", "reason": "checkup",
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var out LeadSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !out.Dispatched {
		t.Error("Expected dispatched=true")
	}
	if len(repo.leads) != 1 {
		t.Fatalf("Expected 1 lead saved, got %d", len(repo.leads))
	}
	if repo.leads[0].Fields["phone"] != "5551234567" {
		t.Errorf("Expected normalized phone, got %q", repo.leads[0].Fields["phone"])
	}
}

func TestHandleLeadSubmit_Invalid(t *testing.T) {
	srv := newTestServer(&fakeRepo{}, &fakeSender{})
	defer srv.Close()

	badBodies := []map[string]interface{}{
		{"fields": map[string]string{"name": "Jane"}},
		{"client_id": "dental-east"},
		{"client_id": "dental-east", "fields": map[string]string{"name": "Jane", "phone": "abc", "reason": "x"}},
		{"client_id": "dental-east", "fields": map[string]string{"name": "Jane", "phone": "555-123-4567"}},
	}
	for i, body := range badBodies {
		resp := postJSON(t, srv.URL+"/api/lead", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Case %d: expected 400, got %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestHandleLeadSubmit_DispatchFailureRecorded(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{err: errors.New("smtp down")}
	srv := newTestServer(repo, sender)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/lead", map[string]interface{}{
		"client_id": "dental-east",
		"fields": map[string]string{
			"name": "Jane Doe", "phone": "555-123-4567", "reason": "checkup",
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var out LeadSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.Dispatched {
		t.Error("Expected dispatched=false")
	}
	if len(repo.failures) != 1 {
		t.Errorf("Expected 1 failure record, got %d", len(repo.failures))
	}
}

func TestHandleRecentLeads(t *testing.T) {
	repo := &fakeRepo{}
	repo.leads = append(repo.leads,
		&domain.LeadRecord{LeadID: "l1", ClientID: "dental-east", Fields: map[string]string{"name": "A"}},
		&domain.LeadRecord{LeadID: "l2", ClientID: "other", Fields: map[string]string{"name": "B"}},
		&domain.LeadRecord{LeadID: "l3", ClientID: "dental-east", Fields: map[string]string{"name": "C"}},
	)
	srv := newTestServer(repo, &fakeSender{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/leads?client_id=dental-east")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Leads []LeadSummary `json:"leads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(out.Leads) != 2 {
		t.Fatalf("Expected 2 leads, got %d", len(out.Leads))
	}
	if out.Leads[0].LeadID != "l3" {
		t.Errorf("Expected newest lead first, got %s", out.Leads[0].LeadID)
	}

	resp2, err := http.Get(srv.URL + "/api/leads")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without client_id, got %d", resp2.StatusCode)
	}
}

func TestHandleDispatchFailures(t *testing.T) {
	repo := &fakeRepo{}
	repo.failures = append(repo.failures,
		&domain.LeadRecord{LeadID: "f1", ClientID: "dental-east", Fields: map[string]string{"name": "A"}},
		&domain.LeadRecord{LeadID: "f2", ClientID: "other", Fields: map[string]string{"name": "B"}},
	)
	srv := newTestServer(repo, &fakeSender{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/dispatch-failures")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Failures []LeadSummary `json:"failures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(out.Failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d", len(out.Failures))
	}
	if out.Failures[0].LeadID != "f1" {
		t.Errorf("Expected oldest failure first, got %s", out.Failures[0].LeadID)
	}

	resp2, err := http.Get(srv.URL + "/api/dispatch-failures?limit=0")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", resp2.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(repo, &fakeSender{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	repo.pingErr = errors.New("db gone")
	resp, err = http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when db is down, got %d", resp.StatusCode)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}
