package view

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown or expired view id.
var ErrNotFound = errors.New("view not found")

// Store keeps the mounted views. Views idle longer than the TTL are
// discarded by Sweep.
type Store struct {
	deps Deps
	ttl  time.Duration

	mu    sync.RWMutex
	views map[string]*MapView
}

// NewStore creates an empty store.
func NewStore(deps Deps, ttl time.Duration) *Store {
	return &Store{
		deps:  deps,
		ttl:   ttl,
		views: make(map[string]*MapView),
	}
}

// Create mounts a new view and registers it under a fresh id.
func (s *Store) Create(opts Options) (*MapView, error) {
	v, err := New(uuid.NewString(), opts, s.deps)
	if err != nil {
		return nil, fmt.Errorf("mount view: %w", err)
	}

	s.mu.Lock()
	s.views[v.ID()] = v
	n := len(s.views)
	s.mu.Unlock()

	s.deps.Metrics.ActiveViews.Set(float64(n))
	s.deps.Logger.Info("view mounted",
		"view_id", v.ID(),
		"renderer", v.Snapshot().Renderer,
		"active_views", n,
	)
	return v, nil
}

// Get returns the view registered under id.
func (s *Store) Get(id string) (*MapView, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return v, nil
}

// Delete unmounts the view, discarding all of its state.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.views[id]
	delete(s.views, id)
	n := len(s.views)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.deps.Metrics.ActiveViews.Set(float64(n))
	s.deps.Logger.Info("view unmounted", "view_id", id, "active_views", n)
	return nil
}

// Sweep removes views whose last operation is older than the TTL and
// returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.deps.Clock.Now().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for id, v := range s.views {
		if v.LastSeen().Before(cutoff) {
			expired = append(expired, id)
			delete(s.views, id)
		}
	}
	n := len(s.views)
	s.mu.Unlock()

	s.deps.Metrics.ActiveViews.Set(float64(n))
	if len(expired) > 0 {
		s.deps.Logger.Info("idle views swept", "removed", len(expired), "active_views", n)
	}
	return len(expired)
}

// Len returns the number of mounted views.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}
