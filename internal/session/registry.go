// Package session provides the process-wide registry of active
// conversations and their lifecycle.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frontdeskai/frontdesk/internal/domain"
)

// Registry maps conversations to their state. Sessions are keyed by
// (clientID, sessionID) so two tenants can never share a conversation even
// if a widget reuses session ids. Sessions are created on first use and
// reclaimed after a period of inactivity. Mutation of an individual session
// is serialized through the session's own mutex; the registry lock only
// guards the map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
	}
}

func key(clientID, sessionID string) string {
	return clientID + "/" + sessionID
}

// GetOrCreate returns the session for (clientID, sessionID), creating it if
// it does not exist yet.
func (r *Registry) GetOrCreate(sessionID, clientID string) *domain.Session {
	k := key(clientID, sessionID)

	r.mu.RLock()
	s, ok := r.sessions[k]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[k]; ok {
		return s
	}

	now := time.Now()
	s = &domain.Session{
		SessionID:      sessionID,
		ClientID:       clientID,
		Phase:          domain.PhaseBrowsing,
		Collected:      make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	r.sessions[k] = s
	slog.Debug("session created", "session_id", sessionID, "client_id", clientID)
	return s
}

// Get returns the session for (clientID, sessionID), or nil if none exists.
func (r *Registry) Get(sessionID, clientID string) *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[key(clientID, sessionID)]
}

// Touch updates the session's last-activity timestamp.
func (r *Registry) Touch(sessionID, clientID string) {
	s := r.Get(sessionID, clientID)
	if s == nil {
		return
	}
	s.Mu.Lock()
	s.LastActivityAt = time.Now()
	s.Mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reclaim evicts sessions idle for at least ttl and returns how many were
// removed. Each candidate's mutex is acquired before eviction so a sweep
// never races an in-flight turn, and idleness is re-checked under the lock.
func (r *Registry) Reclaim(ttl time.Duration) int {
	r.mu.RLock()
	candidates := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	reclaimed := 0
	for _, s := range candidates {
		s.Mu.Lock()
		if s.IdleFor(ttl) {
			k := key(s.ClientID, s.SessionID)
			r.mu.Lock()
			// The map entry may have been replaced while we waited.
			if r.sessions[k] == s {
				delete(r.sessions, k)
				reclaimed++
			}
			r.mu.Unlock()
		}
		s.Mu.Unlock()
	}

	if reclaimed > 0 {
		slog.Info("reclaimed idle sessions", "count", reclaimed, "ttl", ttl)
	}
	return reclaimed
}

// StartSweeper runs a background goroutine that periodically reclaims idle
// sessions until ctx is canceled.
func (r *Registry) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				r.Reclaim(ttl)
			case <-ctx.Done():
				slog.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
