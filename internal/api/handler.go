// Package api provides HTTP handlers for the frontdesk API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/frontdeskai/frontdesk/internal/config"
	"github.com/frontdeskai/frontdesk/internal/lead"
	"github.com/frontdeskai/frontdesk/internal/profile"
	"github.com/frontdeskai/frontdesk/internal/session"
	"github.com/frontdeskai/frontdesk/internal/store"
)

// maxRequestBodySize is the maximum allowed request body size (64KB). Chat
// turns are short; anything larger is abuse.
const maxRequestBodySize = 64 << 10

// Handler bundles the dependencies shared by all API endpoints.
type Handler struct {
	profiles *profile.Store
	registry *session.Registry
	machine  *lead.Machine
	notifier lead.Notifier
	policy   lead.FieldPolicy
	repo     store.Repository
	limiter  *RateLimiter
	cfg      *config.Config
}

// NewHandler creates an API handler with its dependencies.
func NewHandler(profiles *profile.Store, registry *session.Registry, machine *lead.Machine, notifier lead.Notifier, policy lead.FieldPolicy, repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{
		profiles: profiles,
		registry: registry,
		machine:  machine,
		notifier: notifier,
		policy:   policy,
		repo:     repo,
		limiter:  NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		cfg:      cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
