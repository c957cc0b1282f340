package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frontdeskai/frontdesk/internal/domain"
	"github.com/frontdeskai/frontdesk/internal/lead"
	"github.com/frontdeskai/frontdesk/internal/profile"
	"github.com/google/uuid"
)

// LeadSubmitRequest is a direct lead submission, bypassing the conversation.
// Used by contact forms rendered alongside the chat widget.
type LeadSubmitRequest struct {
	ClientID string            `json:"client_id"`
	Fields   map[string]string `json:"fields"`
}

// LeadSubmitResponse reports the stored lead and whether notification
// delivery succeeded.
type LeadSubmitResponse struct {
	LeadID     string `json:"lead_id"`
	Dispatched bool   `json:"dispatched"`
}

// HandleLeadSubmit handles POST /api/lead requests.
func (h *Handler) HandleLeadSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req LeadSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ClientID == "" {
		Error(w, http.StatusBadRequest, "client_id is required")
		return
	}
	if len(req.Fields) == 0 {
		Error(w, http.StatusBadRequest, "fields are required")
		return
	}

	p, err := h.profiles.Get(r.Context(), req.ClientID)
	if err != nil {
		if errors.Is(err, profile.ErrUnknownClient) {
			Error(w, http.StatusNotFound, "unknown client")
			return
		}
		slog.Error("failed to load client profile", "client_id", req.ClientID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load client profile")
		return
	}

	fields := make(map[string]string, len(req.Fields))
	for name, value := range req.Fields {
		if lead.KindOf(name) == lead.KindPhone {
			normalized, ok := h.policy.NormalizePhone(value)
			if !ok {
				Error(w, http.StatusBadRequest, "invalid phone number")
				return
			}
			value = normalized
		}
		fields[name] = value
	}
	for _, name := range p.RequiredFields {
		if fields[name] == "" {
			Error(w, http.StatusBadRequest, "missing required field: "+name)
			return
		}
	}

	rec := &domain.LeadRecord{
		LeadID:    uuid.NewString(),
		ClientID:  req.ClientID,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.SaveLead(r.Context(), rec); err != nil {
		slog.Error("failed to save lead", "lead_id", rec.LeadID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save lead")
		return
	}

	// Delivery must not be abandoned if the submitter disconnects.
	dctx := context.WithoutCancel(r.Context())
	dispatched := true
	if err := h.notifier.Send(dctx, p, rec); err != nil {
		dispatched = false
		slog.Error("lead notification failed", "lead_id", rec.LeadID, "client_id", rec.ClientID, "error", err)
		if rerr := h.repo.RecordDispatchFailure(dctx, rec, err.Error()); rerr != nil {
			slog.Error("failed to record dispatch failure", "lead_id", rec.LeadID, "error", rerr)
		}
	}

	JSON(w, http.StatusCreated, LeadSubmitResponse{
		LeadID:     rec.LeadID,
		Dispatched: dispatched,
	})
}

// LeadSummary is one lead in a listing response.
type LeadSummary struct {
	LeadID    string            `json:"lead_id"`
	ClientID  string            `json:"client_id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

// HandleRecentLeads handles GET /api/leads?client_id= requests.
func (h *Handler) HandleRecentLeads(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		Error(w, http.StatusBadRequest, "client_id is required")
		return
	}

	if _, err := h.profiles.Get(r.Context(), clientID); err != nil {
		if errors.Is(err, profile.ErrUnknownClient) {
			Error(w, http.StatusNotFound, "unknown client")
			return
		}
		slog.Error("failed to load client profile", "client_id", clientID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load client profile")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	leads, err := h.repo.RecentLeads(r.Context(), clientID, limit)
	if err != nil {
		slog.Error("failed to list leads", "client_id", clientID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	out := make([]LeadSummary, 0, len(leads))
	for _, rec := range leads {
		out = append(out, LeadSummary{
			LeadID:    rec.LeadID,
			ClientID:  rec.ClientID,
			Fields:    rec.Fields,
			CreatedAt: rec.CreatedAt,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{"leads": out})
}

// HandleDispatchFailures handles GET /api/dispatch-failures requests. It
// lists leads whose notification never went out, oldest first, for
// out-of-band follow-up.
func (h *Handler) HandleDispatchFailures(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	failures, err := h.repo.UnresolvedDispatchFailures(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list dispatch failures", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list dispatch failures")
		return
	}

	out := make([]LeadSummary, 0, len(failures))
	for _, rec := range failures {
		out = append(out, LeadSummary{
			LeadID:    rec.LeadID,
			ClientID:  rec.ClientID,
			Fields:    rec.Fields,
			CreatedAt: rec.CreatedAt,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{"failures": out})
}
