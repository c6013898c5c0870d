package httpsig

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// DefaultScheme is the authentication scheme expected in the Authorization
// header when VerifierConfig.Scheme is empty.
const DefaultScheme = "SignedHttpRequest"

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Clients resolves key ids to registered clients. Required.
	Clients ClientStore

	// Nonces remembers presented nonces. Required.
	Nonces NonceStore

	// Clock provides the current time. Defaults to SystemClock.
	Clock Clock

	// Scheme is the expected authentication scheme. Defaults to
	// DefaultScheme.
	Scheme string

	// Tasks overrides the verification pipeline. Defaults to
	// DefaultTasks(Clock, Nonces).
	Tasks []Task

	// Logger receives debug logs for rejected requests and error logs for
	// collaborator failures. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Verifier authenticates requests by running the verification pipeline
// against the client resolved from the signature's key id.
type Verifier struct {
	clients ClientStore
	scheme  string
	tasks   []Task
	logger  zerolog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Clients == nil {
		return nil, ErrNoClientStore
	}

	if cfg.Nonces == nil {
		return nil, ErrNoNonceStore
	}

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}

	tasks := cfg.Tasks
	if len(tasks) == 0 {
		tasks = DefaultTasks(clockOrSystem(cfg.Clock), cfg.Nonces)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "httpsig").Logger()
	}

	return &Verifier{
		clients: cfg.Clients,
		scheme:  scheme,
		tasks:   tasks,
		logger:  logger,
	}, nil
}

// Scheme returns the expected authentication scheme.
func (v *Verifier) Scheme() string {
	return v.scheme
}

// VerifySignature runs the pipeline in order and returns the first failure.
// A nil failure and nil error mean the signature is valid. Errors are only
// returned for collaborator failures and are never failures themselves.
func (v *Verifier) VerifySignature(ctx context.Context, req *Request, sig *Signature, client *Client) (*Failure, error) {
	if req == nil || sig == nil || client == nil || client.Algorithm == nil {
		return nil, ErrNilArgument
	}

	for _, task := range v.tasks {
		failure, err := task.Verify(ctx, req, sig, client)
		if err != nil {
			return nil, err
		}

		if failure != nil {
			return failure, nil
		}
	}

	return nil, nil
}

// Authenticate parses the authorization header value, resolves the client
// and verifies the signature. Rejections are reported in the Result;
// an error is returned only when a collaborator fails.
func (v *Verifier) Authenticate(ctx context.Context, req *Request, authorization string) (*Result, error) {
	if req == nil {
		return nil, ErrNilArgument
	}

	sig, err := ParseAuthorizationHeader(authorization, v.scheme)
	if err != nil {
		failure := newFailure(CodeInvalidSignature, "the signature could not be parsed").withCause(err)
		v.logFailure(nil, nil, failure)

		return &Result{Failure: failure}, nil
	}

	client, err := v.clients.Get(ctx, sig.KeyID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			failure := newFailure(CodeInvalidClient, "no client is registered with id %q", sig.KeyID).withCause(err)
			v.logFailure(sig, nil, failure)

			return &Result{Signature: sig, Failure: failure}, nil
		}

		v.logger.Error().Err(err).Str("key_id", sig.KeyID).Msg("client lookup failed")

		return nil, err
	}

	sig = sanitizeSignature(sig, client)

	failure, err := v.VerifySignature(ctx, req, sig, client)
	if err != nil {
		v.logger.Error().Err(err).Str("key_id", sig.KeyID).Msg("signature verification errored")
		return nil, err
	}

	if failure != nil {
		v.logFailure(sig, client, failure)
		return &Result{Client: client, Signature: sig, Failure: failure}, nil
	}

	v.logger.Debug().Str("key_id", client.ID).Msg("signature verified")

	return &Result{Client: client, Signature: sig}, nil
}

func (v *Verifier) logFailure(sig *Signature, client *Client, failure *Failure) {
	ev := v.logger.Debug().Str("code", failure.Code.String())
	if sig != nil {
		ev = ev.Str("key_id", sig.KeyID)
	}

	if client != nil {
		ev = ev.Str("client", client.Name)
	}

	if failure.Err != nil {
		ev = ev.Err(failure.Err)
	}

	ev.Msg(failure.Message)
}

// sanitizeSignature returns a copy of sig whose Headers are filtered and,
// when empty, replaced by the defaults for client.
func sanitizeSignature(sig *Signature, client *Client) *Signature {
	out := *sig
	out.Headers = FilterHeaderNames(sig.Headers)

	if len(out.Headers) > 0 {
		return &out
	}

	switch {
	case len(client.DefaultHeaders) > 0:
		out.Headers = FilterHeaderNames(client.DefaultHeaders)
	case sig.Created != nil:
		out.Headers = []HeaderName{HeaderCreated}
	default:
		out.Headers = []HeaderName{HeaderDate}
	}

	return &out
}
