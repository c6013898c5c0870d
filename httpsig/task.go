package httpsig

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// Task is one independent verification check. It returns a non-nil
// *Failure to reject the request, and a non-nil error only when a
// collaborator fails unexpectedly.
type Task interface {
	Verify(ctx context.Context, req *Request, sig *Signature, client *Client) (*Failure, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context, req *Request, sig *Signature, client *Client) (*Failure, error)

// Verify calls f.
func (f TaskFunc) Verify(ctx context.Context, req *Request, sig *Signature, client *Client) (*Failure, error) {
	return f(ctx, req, sig, client)
}

// DefaultTasks returns the verification tasks in their fixed order. Cheap
// checks run before store access and cryptography.
func DefaultTasks(clock Clock, nonces NonceStore) []Task {
	return []Task{
		KnownAlgorithmTask{},
		MatchingAlgorithmTask{},
		CreatedHeaderGuardTask{},
		ExpiresHeaderGuardTask{},
		AllHeadersPresentTask{},
		CreationTimeTask{Clock: clock},
		ExpirationTimeTask{Clock: clock},
		DigestTask{},
		NonceTask{Clock: clock, Store: nonces},
		MatchingSignatureStringTask{Clock: clock},
	}
}

// KnownAlgorithmTask accepts an absent or hs2019 algorithm, or a
// "<family>-<hash>" name with a known family and hash.
type KnownAlgorithmTask struct{}

func (KnownAlgorithmTask) Verify(_ context.Context, _ *Request, sig *Signature, _ *Client) (*Failure, error) {
	if isUnifiedAlgorithmName(sig.Algorithm) {
		return nil, nil
	}

	family, hash, ok := splitAlgorithmName(sig.Algorithm)
	if !ok {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the algorithm %q is not of the form <family>-<hash>", sig.Algorithm), nil
	}

	if !family.IsLegacy() {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the signature algorithm family %q is not supported", family), nil
	}

	if !hash.IsSupported() {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the hash algorithm %q is not supported", hash), nil
	}

	return nil, nil
}

// MatchingAlgorithmTask requires a declared algorithm to name the family
// and hash of the client's configured algorithm.
type MatchingAlgorithmTask struct{}

func (MatchingAlgorithmTask) Verify(_ context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if isUnifiedAlgorithmName(sig.Algorithm) {
		return nil, nil
	}

	family, hash, ok := splitAlgorithmName(sig.Algorithm)
	if !ok {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the algorithm %q is not of the form <family>-<hash>", sig.Algorithm), nil
	}

	if !strings.EqualFold(family.String(), client.Algorithm.Family().String()) {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the signature algorithm family %q does not match the one registered for client %q", family, client.ID), nil
	}

	if hash != NormalizeHashName(client.Algorithm.Hash().String()) {
		return newFailure(CodeInvalidSignatureAlgorithm,
			"the hash algorithm %q does not match the one registered for client %q", hash, client.ID), nil
	}

	return nil, nil
}

// disallowsCreatedAndExpires reports whether a legacy algorithm name is in
// use for a client with a legacy family.
func disallowsCreatedAndExpires(sig *Signature, client *Client) bool {
	return client.Algorithm.Family().IsLegacy() && !allowsCreatedAndExpires(sig.Algorithm)
}

// CreatedHeaderGuardTask rejects a covered (created) value combined with a
// legacy per-algorithm name.
type CreatedHeaderGuardTask struct{}

func (CreatedHeaderGuardTask) Verify(_ context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if !containsHeader(sig.Headers, HeaderCreated) || sig.Created == nil {
		return nil, nil
	}

	if disallowsCreatedAndExpires(sig, client) {
		return newFailure(CodeInvalidCreatedHeader,
			"the %s header is not allowed with algorithm %q", HeaderCreated, sig.Algorithm), nil
	}

	return nil, nil
}

// ExpiresHeaderGuardTask rejects a covered (expires) value combined with a
// legacy per-algorithm name.
type ExpiresHeaderGuardTask struct{}

func (ExpiresHeaderGuardTask) Verify(_ context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if !containsHeader(sig.Headers, HeaderExpires) || sig.Expires == nil {
		return nil, nil
	}

	if disallowsCreatedAndExpires(sig, client) {
		return newFailure(CodeInvalidExpiresHeader,
			"the %s header is not allowed with algorithm %q", HeaderExpires, sig.Algorithm), nil
	}

	return nil, nil
}

// AllHeadersPresentTask requires every covered ordinary header to be present
// in the request. (request-target), date, (created) and (expires) are
// recommended only, so their absence is tolerated.
type AllHeadersPresentTask struct{}

func (AllHeadersPresentTask) Verify(_ context.Context, req *Request, sig *Signature, _ *Client) (*Failure, error) {
	for _, h := range FilterHeaderNames(sig.Headers) {
		switch h {
		case HeaderRequestTarget, HeaderDate, HeaderCreated, HeaderExpires:
			continue
		}

		if !hasHeader(req.Header, h) {
			return newFailure(CodeHeaderMissing,
				"the signature covers header %q, which is not present in the request", h), nil
		}
	}

	return nil, nil
}

// CreationTimeTask rejects signatures created after now plus the client's
// clock skew, and covered (created) without a value.
type CreationTimeTask struct {
	Clock Clock
}

func (t CreationTimeTask) Verify(_ context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if sig.Created == nil {
		if containsHeader(sig.Headers, HeaderCreated) {
			return newFailure(CodeInvalidCreatedHeader,
				"the signature covers %s but has no created value", HeaderCreated), nil
		}

		return nil, nil
	}

	limit := clockOrSystem(t.Clock).Now().Add(client.ClockSkew)
	if sig.Created.After(limit) {
		return newFailure(CodeInvalidCreatedHeader,
			"the signature was created in the future (%d > %d)", sig.Created.Unix(), limit.Unix()), nil
	}

	return nil, nil
}

// ExpirationTimeTask rejects signatures that expired before now minus the
// client's clock skew, and covered (expires) without a value.
type ExpirationTimeTask struct {
	Clock Clock
}

func (t ExpirationTimeTask) Verify(_ context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if sig.Expires == nil {
		if containsHeader(sig.Headers, HeaderExpires) {
			return newFailure(CodeHeaderMissing,
				"the signature covers %s but has no expires value", HeaderExpires), nil
		}

		return nil, nil
	}

	limit := clockOrSystem(t.Clock).Now().Add(-client.ClockSkew)
	if sig.Expires.Before(limit) {
		return newFailure(CodeSignatureExpired,
			"the signature expired at %d", sig.Expires.Unix()), nil
	}

	return nil, nil
}

// DigestTask checks a covered digest header against the request body.
type DigestTask struct{}

func (DigestTask) Verify(_ context.Context, req *Request, sig *Signature, _ *Client) (*Failure, error) {
	if !containsHeader(sig.Headers, HeaderDigest) {
		return nil, nil
	}

	values := headerValues(req.Header, HeaderDigest)
	if len(values) == 0 {
		return newFailure(CodeHeaderMissing,
			"the signature covers %s, but the request has no %s header", HeaderDigest, DigestHeader), nil
	}

	if req.Body == nil {
		return newFailure(CodeInvalidDigestHeader,
			"the request has a %s header but no body", DigestHeader), nil
	}

	hash, expected, err := ParseDigest(strings.Join(values, ","))
	if err != nil {
		return newFailure(CodeInvalidDigestHeader,
			"the %s header is invalid", DigestHeader).withCause(err), nil
	}

	ok, err := digestMatches(req.Body, hash, expected)
	if err != nil {
		return newFailure(CodeInvalidDigestHeader,
			"the %s header cannot be verified", DigestHeader).withCause(err), nil
	}

	if !ok {
		return newFailure(CodeInvalidDigestHeader,
			"the %s header does not match the request body", DigestHeader), nil
	}

	return nil, nil
}

// NonceTask rejects a nonce that was already presented by the client within
// its lifetime, and registers it otherwise.
type NonceTask struct {
	Clock Clock
	Store NonceStore
}

func (t NonceTask) Verify(ctx context.Context, _ *Request, sig *Signature, client *Client) (*Failure, error) {
	if sig.Nonce == "" {
		return nil, nil
	}

	if t.Store == nil {
		return nil, ErrNoNonceStore
	}

	now := clockOrSystem(t.Clock).Now()

	previous, err := t.Store.Get(ctx, client.ID, sig.Nonce)
	if err != nil && !errors.Is(err, ErrNonceNotFound) {
		return nil, err
	}

	if err == nil && previous != nil && !previous.Expired(now) {
		return newFailure(CodeInvalidNonce,
			"the nonce was already used by client %q and is valid until %d", client.ID, previous.Expiration.Unix()), nil
	}

	nonce := Nonce{
		ClientID:   client.ID,
		Value:      sig.Nonce,
		Expiration: now.Add(client.NonceLifetime),
	}

	if err := t.Store.Register(ctx, nonce); err != nil {
		return nil, err
	}

	return nil, nil
}

// MatchingSignatureStringTask recomposes the signing string and verifies the
// signature value with the client's algorithm.
type MatchingSignatureStringTask struct {
	Clock Clock
}

func (t MatchingSignatureStringTask) Verify(_ context.Context, req *Request, sig *Signature, client *Client) (*Failure, error) {
	signature, err := base64.StdEncoding.DecodeString(sig.String)
	if err != nil {
		return newFailure(CodeInvalidSignatureString,
			"the signature value is not valid base64").withCause(err), nil
	}

	timeOfComposing := clockOrSystem(t.Clock).Now()
	if sig.Created != nil {
		timeOfComposing = *sig.Created
	}

	in := ComposeInput{
		Request:         req,
		Headers:         sig.Headers,
		TimeOfComposing: timeOfComposing,
		Escaping:        client.RequestTargetEscaping,
		Algorithm:       sig.Algorithm,
		DigestAlgorithm: requestDigestAlgorithm(req, client),
	}

	if sig.Expires != nil {
		in.Expires = sig.Expires.Sub(timeOfComposing)
	}

	signingString, err := ComposeSigningString(in)
	if err != nil {
		return newFailure(CodeInvalidSignatureString,
			"the signing string cannot be composed").withCause(err), nil
	}

	if !client.Algorithm.Verify(signingString, signature) {
		return newFailure(CodeInvalidSignatureString,
			"the signature does not match the signing string"), nil
	}

	return nil, nil
}

// requestDigestAlgorithm returns the hash named by the request's digest
// header, falling back to the client's hash.
func requestDigestAlgorithm(req *Request, client *Client) HashName {
	if values := headerValues(req.Header, HeaderDigest); len(values) > 0 {
		if hash, _, err := ParseDigest(strings.Join(values, ",")); err == nil {
			return hash
		}
	}

	return client.Algorithm.Hash()
}

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}

	return c
}
