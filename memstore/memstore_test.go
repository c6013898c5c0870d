package memstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/sigauth/httpsig"
)

func newClient(t *testing.T, id string) *httpsig.Client {
	t.Helper()

	alg, err := httpsig.NewHMACAlgorithm(httpsig.HashSHA256, []byte("secret-"+id))
	require.NoError(t, err)

	c, err := httpsig.NewClient(id, "Client "+id, alg)
	require.NoError(t, err)

	return c
}

func TestClientStore(t *testing.T) {
	ctx := context.Background()

	t.Run("register and get", func(t *testing.T) {
		s, err := NewClientStore(newClient(t, "app1"))
		require.NoError(t, err)

		c, err := s.Get(ctx, "app1")
		require.NoError(t, err)
		assert.Equal(t, "app1", c.ID)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("unknown client", func(t *testing.T) {
		s, err := NewClientStore()
		require.NoError(t, err)

		_, err = s.Get(ctx, "ghost")
		assert.ErrorIs(t, err, httpsig.ErrClientNotFound)
	})

	t.Run("register replaces", func(t *testing.T) {
		s, err := NewClientStore(newClient(t, "app1"))
		require.NoError(t, err)

		replacement := newClient(t, "app1")
		replacement.Name = "Renamed"
		require.NoError(t, s.Register(ctx, replacement))

		c, err := s.Get(ctx, "app1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", c.Name)
	})

	t.Run("register disposes the replaced algorithm", func(t *testing.T) {
		original := newClient(t, "app1")
		sig, err := original.Algorithm.Sign("message")
		require.NoError(t, err)

		s, err := NewClientStore(original)
		require.NoError(t, err)
		require.NoError(t, s.Register(ctx, newClient(t, "app1")))

		assert.False(t, original.Algorithm.Verify("message", sig))
	})

	t.Run("register keeps a shared algorithm", func(t *testing.T) {
		original := newClient(t, "app1")
		sig, err := original.Algorithm.Sign("message")
		require.NoError(t, err)

		s, err := NewClientStore(original)
		require.NoError(t, err)

		renamed, err := httpsig.NewClient("app1", "Renamed", original.Algorithm)
		require.NoError(t, err)
		require.NoError(t, s.Register(ctx, renamed))

		assert.True(t, original.Algorithm.Verify("message", sig))
	})

	t.Run("invalid clients", func(t *testing.T) {
		s, err := NewClientStore()
		require.NoError(t, err)

		assert.ErrorIs(t, s.Register(ctx, nil), httpsig.ErrNilArgument)
		assert.ErrorIs(t, s.Register(ctx, &httpsig.Client{}), httpsig.ErrNilArgument)

		_, err = NewClientStore(nil)
		assert.ErrorIs(t, err, httpsig.ErrNilArgument)
	})

	t.Run("delete", func(t *testing.T) {
		original := newClient(t, "app1")
		sig, err := original.Algorithm.Sign("message")
		require.NoError(t, err)

		s, err := NewClientStore(original)
		require.NoError(t, err)

		assert.True(t, s.Delete(ctx, "app1"))
		assert.False(t, s.Delete(ctx, "app1"))
		assert.False(t, original.Algorithm.Verify("message", sig))

		_, err = s.Get(ctx, "app1")
		assert.ErrorIs(t, err, httpsig.ErrClientNotFound)
	})

	t.Run("concurrent access", func(t *testing.T) {
		s, err := NewClientStore()
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				id := fmt.Sprintf("app%d", i%5)
				assert.NoError(t, s.Register(ctx, newClient(t, id)))

				_, err := s.Get(ctx, id)
				assert.NoError(t, err)
			}(i)
		}

		wg.Wait()
		assert.Equal(t, 5, s.Len())
	})
}

func TestNonceStore(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1582539614, 0)

	t.Run("register and get", func(t *testing.T) {
		s := NewNonceStore()
		require.NoError(t, s.Register(ctx, httpsig.Nonce{ClientID: "app1", Value: "n1", Expiration: now}))

		n, err := s.Get(ctx, "app1", "n1")
		require.NoError(t, err)
		assert.True(t, n.Expiration.Equal(now))

		_, err = s.Get(ctx, "app2", "n1")
		assert.ErrorIs(t, err, httpsig.ErrNonceNotFound)
	})

	t.Run("expired entries are returned until pruned", func(t *testing.T) {
		s := NewNonceStore()
		require.NoError(t, s.Register(ctx, httpsig.Nonce{ClientID: "app1", Value: "old", Expiration: now.Add(-time.Second)}))
		require.NoError(t, s.Register(ctx, httpsig.Nonce{ClientID: "app1", Value: "new", Expiration: now.Add(time.Minute)}))

		n, err := s.Get(ctx, "app1", "old")
		require.NoError(t, err)
		assert.True(t, n.Expired(now))

		assert.Equal(t, 1, s.Prune(now))
		assert.Equal(t, 1, s.Len())

		_, err = s.Get(ctx, "app1", "old")
		assert.ErrorIs(t, err, httpsig.ErrNonceNotFound)
	})

	t.Run("invalid nonce", func(t *testing.T) {
		s := NewNonceStore()
		assert.ErrorIs(t, s.Register(ctx, httpsig.Nonce{Value: "n"}), httpsig.ErrNilArgument)
	})

	t.Run("background pruning", func(t *testing.T) {
		s := NewNonceStore()
		require.NoError(t, s.Register(ctx, httpsig.Nonce{ClientID: "app1", Value: "n1", Expiration: now}))

		pruneCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		clock := httpsig.ClockFunc(func() time.Time { return now.Add(time.Hour) })
		s.StartPruning(pruneCtx, time.Millisecond, clock)

		assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	})
}

func TestVerifierWithMemoryStores(t *testing.T) {
	client := newClient(t, "app1")

	clients, err := NewClientStore(client)
	require.NoError(t, err)

	v, err := httpsig.NewVerifier(httpsig.VerifierConfig{Clients: clients, Nonces: NewNonceStore()})
	require.NoError(t, err)

	cfg := httpsig.SignConfig{KeyID: "app1", Algorithm: client.Algorithm, GenerateNonce: true}

	r := httptest.NewRequest(http.MethodGet, "https://example.com/items?limit=10", nil)
	require.NoError(t, httpsig.SignRequest(r, cfg))

	authenticate := func() *httpsig.Result {
		req, err := httpsig.NewRequest(r)
		require.NoError(t, err)

		result, err := v.Authenticate(context.Background(), req, r.Header.Get("Authorization"))
		require.NoError(t, err)

		return result
	}

	first := authenticate()
	require.True(t, first.Succeeded(), "%v", first.Failure)
	assert.Equal(t, "app1", first.Identity().ClientID)

	replayed := authenticate()
	require.False(t, replayed.Succeeded())
	assert.Equal(t, httpsig.CodeInvalidNonce, replayed.Failure.Code)
}
