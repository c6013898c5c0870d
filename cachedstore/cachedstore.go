// Package cachedstore wraps a slow httpsig.ClientStore with a small
// in-process cache. Concurrent misses for the same client id share one
// backend lookup.
package cachedstore

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vitalvas/sigauth/httpsig"
)

const DefaultTTL = time.Minute

type entry struct {
	client  *httpsig.Client
	expires time.Time
}

// Store is an httpsig.ClientStore that caches lookups of another store.
type Store struct {
	backend httpsig.ClientStore
	ttl     time.Duration
	clock   httpsig.Clock

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

type Option func(*Store)

// WithTTL sets how long a resolved client is served from the cache.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the clock used for cache expiry.
func WithClock(clock httpsig.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New wraps backend.
func New(backend httpsig.ClientStore, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, httpsig.ErrNoClientStore
	}

	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		clock:   httpsig.SystemClock{},
		entries: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Register writes through to the backend and drops the cached entry.
func (s *Store) Register(ctx context.Context, client *httpsig.Client) error {
	if err := s.backend.Register(ctx, client); err != nil {
		return err
	}

	s.Invalidate(client.ID)

	return nil
}

// Get returns a cached client or resolves it from the backend. Lookup
// errors, including httpsig.ErrClientNotFound, are not cached.
func (s *Store) Get(ctx context.Context, id string) (*httpsig.Client, error) {
	now := s.clock.Now()

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if ok && now.Before(e.expires) {
		return e.client, nil
	}

	v, err, _ := s.group.Do(id, func() (any, error) {
		s.mu.RLock()
		e, ok := s.entries[id]
		s.mu.RUnlock()

		if ok && s.clock.Now().Before(e.expires) {
			return e.client, nil
		}

		client, err := s.backend.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.entries[id] = entry{client: client, expires: s.clock.Now().Add(s.ttl)}
		s.mu.Unlock()

		return client, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*httpsig.Client), nil
}

// Invalidate drops the cached entry for id.
func (s *Store) Invalidate(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	s.group.Forget(id)
}

// Warm resolves ids concurrently and fills the cache. The first lookup
// error cancels the remaining ones and is returned.
func (s *Store) Warm(ctx context.Context, ids ...string) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		g.Go(func() error {
			_, err := s.Get(gctx, id)
			return err
		})
	}

	return g.Wait()
}

// Len returns the number of cached entries, including stale ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

var _ httpsig.ClientStore = (*Store)(nil)
