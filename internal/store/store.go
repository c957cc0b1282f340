// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/frontdeskai/frontdesk/internal/domain"
)

// Repository defines the interface for persisting leads and dispatch
// failures. Conversation history is deliberately not persisted; only
// completed leads and their delivery outcomes are.
type Repository interface {
	// SaveLead archives a completed lead record.
	SaveLead(ctx context.Context, lead *domain.LeadRecord) error

	// RecentLeads returns the newest archived leads for a client, newest
	// first, up to limit.
	RecentLeads(ctx context.Context, clientID string, limit int) ([]*domain.LeadRecord, error)

	// RecordDispatchFailure stores a permanently failed notification for
	// out-of-band follow-up. At most one record exists per lead.
	RecordDispatchFailure(ctx context.Context, lead *domain.LeadRecord, cause string) error

	// UnresolvedDispatchFailures returns leads whose notification never went
	// out, oldest first.
	UnresolvedDispatchFailures(ctx context.Context, limit int) ([]*domain.LeadRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
