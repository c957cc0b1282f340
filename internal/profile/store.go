// Package profile loads and caches per-client configuration bundles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/frontdeskai/frontdesk/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownClient is returned when no bundle is registered for a client id.
var ErrUnknownClient = errors.New("unknown client")

// Loader fetches a client bundle from its backing source.
type Loader interface {
	Load(ctx context.Context, clientID string) (*domain.ClientProfile, error)
}

// Store caches client profiles in front of a Loader. Repeated Get calls for
// the same id return the identical cached profile; concurrent first loads
// collapse into a single Loader call.
type Store struct {
	loader Loader

	mu    sync.RWMutex
	cache map[string]*domain.ClientProfile
	group singleflight.Group
}

// NewStore creates a profile store backed by loader.
func NewStore(loader Loader) *Store {
	return &Store{
		loader: loader,
		cache:  make(map[string]*domain.ClientProfile),
	}
}

// Get returns the profile for clientID, loading and caching it on first use.
// Returns ErrUnknownClient when the loader has no bundle for the id.
func (s *Store) Get(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	if clientID == "" {
		return nil, ErrUnknownClient
	}

	s.mu.RLock()
	cached, ok := s.cache[clientID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(clientID, func() (interface{}, error) {
		// Re-check under the flight: another caller may have populated the
		// cache between the RUnlock above and this closure running.
		s.mu.RLock()
		cached, ok := s.cache[clientID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		p, err := s.loader.Load(ctx, clientID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[clientID] = p
		s.mu.Unlock()
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownClient) {
			return nil, fmt.Errorf("profile %q: %w", clientID, ErrUnknownClient)
		}
		return nil, fmt.Errorf("load profile %q: %w", clientID, err)
	}

	return v.(*domain.ClientProfile), nil
}

// Invalidate drops the cached profile for clientID so the next Get reloads
// it. This is the reload trigger for config changes.
func (s *Store) Invalidate(clientID string) {
	s.mu.Lock()
	delete(s.cache, clientID)
	s.mu.Unlock()
}
