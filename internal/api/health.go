package api

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthResponse reports server and storage health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
	Time     string `json:"time"`
}

// HandleHealth handles GET /api/health requests. Unlike the bare /health
// heartbeat, this checks the database connection.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Sessions: h.registry.Len(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := h.repo.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, resp)
}
