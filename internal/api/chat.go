package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frontdeskai/frontdesk/internal/identity"
	"github.com/frontdeskai/frontdesk/internal/profile"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ChatRequest is one inbound visitor turn.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to one turn.
type ChatResponse struct {
	Reply          string `json:"reply"`
	SessionID      string `json:"session_id"`
	Phase          string `json:"phase"`
	LeadDispatched bool   `json:"lead_dispatched"`
}

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ClientID == "" {
		Error(w, http.StatusBadRequest, "client_id is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = identity.SessionIDFromContext(r.Context())
	}
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	limitKey := identity.VisitorIDFromContext(r.Context())
	if limitKey == "" {
		limitKey = sessionID
	}
	if !h.limiter.Allow(limitKey) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
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

	slog.Info("chat turn",
		"client_id", req.ClientID,
		"session_id", sessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	sess := h.registry.GetOrCreate(sessionID, req.ClientID)
	result := h.machine.ProcessTurn(r.Context(), p, sess, req.Message)

	JSON(w, http.StatusOK, ChatResponse{
		Reply:          result.Reply,
		SessionID:      sessionID,
		Phase:          result.Phase.String(),
		LeadDispatched: result.LeadDispatched,
	})
}

// RegisterRoutes registers the chat and lead API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Post("/lead", h.HandleLeadSubmit)
		r.Get("/leads", h.HandleRecentLeads)
		r.Get("/dispatch-failures", h.HandleDispatchFailures)
		r.Get("/health", h.HandleHealth)
	})
}
