// Package memstore provides in-memory implementations of httpsig.ClientStore
// and httpsig.NonceStore.
//
// Both stores are safe for concurrent use. Nonces live only as long as the
// process, so a multi-instance deployment should use a shared store such as
// redisstore instead.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitalvas/sigauth/httpsig"
)

// ClientStore keeps registered clients in a map keyed by client id.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*httpsig.Client
}

// NewClientStore creates a ClientStore pre-populated with clients.
func NewClientStore(clients ...*httpsig.Client) (*ClientStore, error) {
	s := &ClientStore{clients: make(map[string]*httpsig.Client, len(clients))}

	for _, c := range clients {
		if err := s.Register(context.Background(), c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Register adds or replaces a client. The store owns the client's
// algorithm from then on; a replaced client's algorithm is disposed unless
// the new client shares it.
func (s *ClientStore) Register(_ context.Context, client *httpsig.Client) error {
	if client == nil {
		return httpsig.ErrNilArgument
	}

	if client.ID == "" {
		return fmt.Errorf("%w: client id must not be empty", httpsig.ErrNilArgument)
	}

	s.mu.Lock()
	prev, ok := s.clients[client.ID]
	s.clients[client.ID] = client
	s.mu.Unlock()

	if ok && prev.Algorithm != nil && prev.Algorithm != client.Algorithm {
		prev.Algorithm.Dispose()
	}

	return nil
}

// Get returns the client registered under id, or httpsig.ErrClientNotFound.
func (s *ClientStore) Get(_ context.Context, id string) (*httpsig.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", httpsig.ErrClientNotFound, id)
	}

	return c, nil
}

// Delete removes the client registered under id and disposes its
// algorithm. It reports whether a client was removed.
func (s *ClientStore) Delete(_ context.Context, id string) bool {
	s.mu.Lock()
	c, ok := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()

	if ok && c.Algorithm != nil {
		c.Algorithm.Dispose()
	}

	return ok
}

// Len returns the number of registered clients.
func (s *ClientStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.clients)
}

type nonceKey struct {
	clientID string
	value    string
}

// NonceStore keeps presented nonces in memory until they are pruned.
type NonceStore struct {
	mu     sync.Mutex
	nonces map[nonceKey]httpsig.Nonce
}

// NewNonceStore creates an empty NonceStore.
func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[nonceKey]httpsig.Nonce)}
}

// Register inserts or replaces the nonce keyed by (ClientID, Value).
func (s *NonceStore) Register(_ context.Context, nonce httpsig.Nonce) error {
	if nonce.ClientID == "" || nonce.Value == "" {
		return fmt.Errorf("%w: nonce client id and value must not be empty", httpsig.ErrNilArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[nonceKey{nonce.ClientID, nonce.Value}] = nonce

	return nil
}

// Get returns the nonce for (clientID, value), or httpsig.ErrNonceNotFound.
// Expired entries that were not pruned yet are returned as well.
func (s *NonceStore) Get(_ context.Context, clientID, value string) (*httpsig.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nonces[nonceKey{clientID, value}]
	if !ok {
		return nil, httpsig.ErrNonceNotFound
	}

	return &n, nil
}

// Prune removes every nonce that is expired at now and returns how many
// were removed.
func (s *NonceStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for k, n := range s.nonces {
		if n.Expired(now) {
			delete(s.nonces, k)
			removed++
		}
	}

	return removed
}

// StartPruning prunes expired nonces every interval until ctx is done.
// clock may be nil to use the system clock.
func (s *NonceStore) StartPruning(ctx context.Context, interval time.Duration, clock httpsig.Clock) {
	if clock == nil {
		clock = httpsig.SystemClock{}
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Prune(clock.Now())
			}
		}
	}()
}

// Len returns the number of stored nonces, including expired ones.
func (s *NonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.nonces)
}

var (
	_ httpsig.ClientStore = (*ClientStore)(nil)
	_ httpsig.NonceStore  = (*NonceStore)(nil)
)
