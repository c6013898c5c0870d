// Package server exposes a signature-protected HTTP endpoint that echoes the
// authenticated identity. It backs the serve command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalvas/sigauth/httpsig"
)

var ErrInvalidMaxBody = errors.New("server: max body size must be greater than zero")

// Config configures the handler built by NewHandler.
type Config struct {
	// Verifier authenticates requests. Required.
	Verifier *httpsig.Verifier

	// Realm is announced in WWW-Authenticate challenges.
	Realm string

	// MaxBodyBytes limits request bodies. Required.
	MaxBodyBytes int64

	// Logger receives access and failure logs.
	Logger zerolog.Logger
}

// identityResponse is the JSON body returned for authenticated requests.
type identityResponse struct {
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	Claims     []httpsig.Claim `json:"claims"`
	RequestID  string          `json:"request_id"`
}

type failureResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// NewHandler returns the server handler. GET /healthz is served without
// authentication; every other path requires a valid signature and answers
// with the authenticated identity.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.MaxBodyBytes <= 0 {
		return nil, ErrInvalidMaxBody
	}

	realm := cfg.Realm
	if realm == "" {
		realm = httpsig.DefaultRealm
	}

	var challenge string
	if cfg.Verifier != nil {
		challenge = fmt.Sprintf("%s realm=%q", cfg.Verifier.Scheme(), realm)
	}

	authenticate, err := httpsig.Middleware(httpsig.MiddlewareConfig{
		Verifier: cfg.Verifier,
		Realm:    realm,
		OnFailure: func(w http.ResponseWriter, r *http.Request, failure *httpsig.Failure) {
			zerolog.Ctx(r.Context()).Info().
				Str("code", failure.Code.String()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request rejected")

			w.Header().Set("WWW-Authenticate", challenge)
			writeJSON(w, http.StatusUnauthorized, failureResponse{
				Code:      failure.Code.String(),
				Message:   failure.Message,
				RequestID: RequestIDFromContext(r.Context()),
			})
		},
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}

			zerolog.Ctx(r.Context()).Error().Err(err).Msg("signature verification failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("/", authenticate(http.HandlerFunc(identityHandler)))

	var h http.Handler = mux
	h = limitBody(cfg.MaxBodyBytes)(h)
	h = recovery(h)
	h = requestID(cfg.Logger)(h)

	return h, nil
}

func identityHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpsig.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	zerolog.Ctx(r.Context()).Debug().
		Str("client", identity.ClientID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request authenticated")

	writeJSON(w, http.StatusOK, identityResponse{
		ClientID:   identity.ClientID,
		ClientName: identity.ClientName,
		Claims:     identity.Claims,
		RequestID:  RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves handler on addr until ctx is done, then shuts down within
// shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, readTimeout, shutdownTimeout time.Duration, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return serve(ctx, ln, handler, readTimeout, shutdownTimeout, logger)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, readTimeout, shutdownTimeout time.Duration, logger zerolog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		BaseContext:       func(net.Listener) context.Context { return logger.WithContext(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info().Msg("shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
