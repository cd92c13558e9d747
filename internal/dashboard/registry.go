package dashboard

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"penguindash/internal/penguins"
)

// DefaultMaxSessions bounds the registry when no size is configured.
const DefaultMaxSessions = 1024

// Registry holds the most recently used sessions. The oldest session is
// dropped once the bound is reached.
type Registry struct {
	dataset *penguins.Dataset
	mu      sync.Mutex
	cache   *lru.Cache[string, *Session]
	onEvict []func(*Session)
	onBuild []func(Snapshot)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEvictHook registers fn to run when a session is dropped.
func WithEvictHook(fn func(*Session)) RegistryOption {
	return func(r *Registry) { r.onEvict = append(r.onEvict, fn) }
}

// WithBuildHook registers fn to run after any session builds a snapshot.
func WithBuildHook(fn func(Snapshot)) RegistryOption {
	return func(r *Registry) { r.onBuild = append(r.onBuild, fn) }
}

// NewRegistry returns a registry holding at most size sessions.
func NewRegistry(ds *penguins.Dataset, size int, opts ...RegistryOption) (*Registry, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	r := &Registry{dataset: ds}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.NewWithEvict(size, func(_ string, s *Session) {
		for _, fn := range r.onEvict {
			fn(s)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Create starts a session under a fresh random id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.dataset, r.onBuild...)
	r.cache.Add(s.ID(), s)
	return s
}

// Get returns the session for id and marks it recently used.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return r.cache.Get(id)
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// Unknown ids are never adopted; the new session gets its own id.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.Get(id); ok {
		return s, false
	}
	return r.Create(), true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int { return r.cache.Len() }
