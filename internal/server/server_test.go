package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/sigauth/httpsig"
	"github.com/vitalvas/sigauth/memstore"
)

type fixture struct {
	handler http.Handler
	sign    httpsig.SignConfig
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, maxBody int64) *fixture {
	t.Helper()

	alg, err := httpsig.NewHMACAlgorithm(httpsig.HashSHA256, []byte("server-secret"))
	require.NoError(t, err)

	client, err := httpsig.NewClient("app1", "App One", alg, httpsig.WithClaims(httpsig.Claim{Type: "scope", Value: "read"}))
	require.NoError(t, err)

	clients, err := memstore.NewClientStore(client)
	require.NoError(t, err)

	verifier, err := httpsig.NewVerifier(httpsig.VerifierConfig{Clients: clients, Nonces: memstore.NewNonceStore()})
	require.NoError(t, err)

	logs := &bytes.Buffer{}

	handler, err := NewHandler(Config{
		Verifier:     verifier,
		Realm:        "test",
		MaxBodyBytes: maxBody,
		Logger:       zerolog.New(logs),
	})
	require.NoError(t, err)

	return &fixture{
		handler: handler,
		sign:    httpsig.SignConfig{KeyID: "app1", Algorithm: alg},
		logs:    logs,
	}
}

func TestNewHandler(t *testing.T) {
	t.Run("authenticated request echoes identity", func(t *testing.T) {
		f := newFixture(t, 1024)

		r := httptest.NewRequest(http.MethodPost, "https://example.com/items", strings.NewReader(`{"a":1}`))
		require.NoError(t, httpsig.SignRequest(r, f.sign))

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

		var body identityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "app1", body.ClientID)
		assert.Equal(t, "App One", body.ClientName)
		assert.Contains(t, body.Claims, httpsig.Claim{Type: "scope", Value: "read"})
		assert.Equal(t, w.Header().Get(RequestIDHeader), body.RequestID)
	})

	t.Run("unsigned request is challenged", func(t *testing.T) {
		f := newFixture(t, 1024)

		r := httptest.NewRequest(http.MethodGet, "https://example.com/items", nil)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `SignedHttpRequest realm="test"`, w.Header().Get("WWW-Authenticate"))

		var body failureResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, httpsig.CodeInvalidSignature.String(), body.Code)
		assert.Contains(t, f.logs.String(), "request rejected")
	})

	t.Run("tampered body fails digest check", func(t *testing.T) {
		f := newFixture(t, 1024)

		r := httptest.NewRequest(http.MethodPost, "https://example.com/items", strings.NewReader("original"))
		require.NoError(t, httpsig.SignRequest(r, f.sign))

		tampered := httptest.NewRequest(http.MethodPost, "https://example.com/items", strings.NewReader("tampered"))
		tampered.Header = r.Header.Clone()

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, tampered)

		require.Equal(t, http.StatusUnauthorized, w.Code)

		var body failureResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, httpsig.CodeInvalidDigestHeader.String(), body.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		f := newFixture(t, 4)

		r := httptest.NewRequest(http.MethodPost, "https://example.com/items", strings.NewReader("too large"))
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("oversized body without content length", func(t *testing.T) {
		f := newFixture(t, 4)

		r := httptest.NewRequest(http.MethodPost, "https://example.com/items", strings.NewReader("too large"))
		r.ContentLength = -1

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("health check skips authentication", func(t *testing.T) {
		f := newFixture(t, 1024)

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("incoming request id is kept", func(t *testing.T) {
		f := newFixture(t, 1024)

		id := "0190a8b4-6c2a-7d3e-8f10-123456789abc"
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set(RequestIDHeader, id)

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	})

	t.Run("malformed request id is replaced", func(t *testing.T) {
		f := newFixture(t, 1024)

		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set(RequestIDHeader, "not a uuid\r\n")

		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		assert.NotEqual(t, "not a uuid\r\n", w.Header().Get(RequestIDHeader))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewHandler(Config{})
		assert.ErrorIs(t, err, ErrInvalidMaxBody)

		_, err = NewHandler(Config{MaxBodyBytes: 1})
		assert.ErrorIs(t, err, httpsig.ErrNoVerifier)
	})
}

func TestRecovery(t *testing.T) {
	logs := &bytes.Buffer{}

	h := requestID(zerolog.New(logs))(recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "handler panicked")
	assert.Contains(t, logs.String(), "boom")
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}), time.Second, time.Second, zerolog.Nop())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
