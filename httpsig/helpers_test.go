package httpsig

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1582539614, 0)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

type testClientStore struct {
	mu      sync.Mutex
	clients map[string]*Client
	err     error
}

func newTestClientStore(clients ...*Client) *testClientStore {
	s := &testClientStore{clients: make(map[string]*Client)}
	for _, c := range clients {
		s.clients[c.ID] = c
	}

	return s
}

func (s *testClientStore) Register(_ context.Context, c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.ID] = c

	return nil
}

func (s *testClientStore) Get(_ context.Context, id string) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	c, ok := s.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}

	return c, nil
}

type testNonceStore struct {
	mu     sync.Mutex
	nonces map[string]Nonce
	err    error
}

func newTestNonceStore() *testNonceStore {
	return &testNonceStore{nonces: make(map[string]Nonce)}
}

func (s *testNonceStore) Register(_ context.Context, n Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.nonces[n.ClientID+"|"+n.Value] = n

	return nil
}

func (s *testNonceStore) Get(_ context.Context, clientID, value string) (*Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	n, ok := s.nonces[clientID+"|"+value]
	if !ok {
		return nil, ErrNonceNotFound
	}

	return &n, nil
}

func newHMACClient(t *testing.T, id string, opts ...ClientOption) *Client {
	t.Helper()

	alg, err := NewHMACAlgorithm(HashSHA256, []byte("secret-for-"+id))
	require.NoError(t, err)

	client, err := NewClient(id, "Client "+id, alg, opts...)
	require.NoError(t, err)

	return client
}
