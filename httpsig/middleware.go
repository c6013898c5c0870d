package httpsig

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultRealm is the realm advertised in WWW-Authenticate challenges when
// MiddlewareConfig.Realm is empty.
const DefaultRealm = "sigauth"

// MiddlewareConfig configures the server-side signature verification
// middleware.
type MiddlewareConfig struct {
	// Verifier authenticates incoming requests. Required.
	Verifier *Verifier

	// Realm is advertised in the WWW-Authenticate challenge.
	Realm string

	// OnFailure is called when a request is rejected. When nil, a 401
	// Unauthorized response with a WWW-Authenticate challenge is sent.
	OnFailure func(w http.ResponseWriter, r *http.Request, failure *Failure)

	// OnError is called when a collaborator fails. When nil, a plain 500
	// Internal Server Error response is sent.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

type identityKey struct{}

// Middleware returns an http middleware that verifies HTTP signatures on
// incoming requests. Authenticated requests reach next with their Identity
// stored in the request context.
//
// It returns ErrNoVerifier if MiddlewareConfig.Verifier is nil.
func Middleware(cfg MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Verifier == nil {
		return nil, ErrNoVerifier
	}

	realm := cfg.Realm
	if realm == "" {
		realm = DefaultRealm
	}

	onFailure := cfg.OnFailure
	if onFailure == nil {
		challenge := fmt.Sprintf("%s realm=%q", cfg.Verifier.Scheme(), realm)
		onFailure = func(w http.ResponseWriter, _ *http.Request, _ *Failure) {
			w.Header().Set("WWW-Authenticate", challenge)
			w.WriteHeader(http.StatusUnauthorized)
		}
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	verifier := cfg.Verifier

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := NewRequest(r)
			if err != nil {
				onError(w, r, err)
				return
			}

			result, err := verifier.Authenticate(r.Context(), req, r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}

			if !result.Succeeded() {
				onFailure(w, r, result.Failure)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, result.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// defaultOnError writes a 500 Internal Server Error response with no body.
func defaultOnError(w http.ResponseWriter, _ *http.Request, _ error) {
	w.WriteHeader(http.StatusInternalServerError)
}
