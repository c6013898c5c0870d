package httpsig

import (
	"encoding/base64"
	"net/http"
	"time"
)

// DefaultSignatureExpiry is the (expires) offset used when SignConfig.Expires
// is zero but (expires) is covered.
const DefaultSignatureExpiry = 5 * time.Minute

// SignConfig configures request signing.
type SignConfig struct {
	// KeyID identifies the signer to the verifier. Required.
	KeyID string

	// Algorithm produces signatures. Required. The caller keeps ownership
	// and disposes it.
	Algorithm SignatureAlgorithm

	// Headers lists the covered headers. When empty, (request-target) is
	// covered, followed by (created) and (expires) for hs2019 or date for
	// legacy names, and digest when the request carries a body.
	Headers []HeaderName

	// Expires is the signature lifetime rendered in (expires). Zero means
	// DefaultSignatureExpiry when (expires) is covered and no expires
	// parameter otherwise.
	Expires time.Duration

	// Nonce is included in the signature when set.
	Nonce string

	// GenerateNonce, when true and Nonce is empty, sets a random nonce.
	GenerateNonce bool

	// LegacyAlgorithmName declares the per-algorithm name (e.g.
	// "hmac-sha256") instead of "hs2019". Legacy names cannot cover
	// (created) or (expires).
	LegacyAlgorithmName bool

	// Escaping selects the (request-target) path escaping.
	Escaping RequestTargetEscaping

	// DigestAlgorithm is used for the Digest header. Defaults to SHA-256.
	DigestAlgorithm HashName

	// Scheme is the authentication scheme. Defaults to DefaultScheme.
	Scheme string

	// Clock provides the signing time. Defaults to SystemClock.
	Clock Clock
}

// Sign computes the signature for req. When date or digest are covered but
// missing from req.Header, Sign adds them first so the verifier can
// reconstruct the same signing string.
func Sign(req *Request, cfg SignConfig) (*Signature, error) {
	if req == nil {
		return nil, ErrNilArgument
	}

	if cfg.Algorithm == nil {
		return nil, ErrNoAlgorithm
	}

	if cfg.KeyID == "" {
		return nil, ErrNoKeyID
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}

	algorithmName := AlgorithmHS2019
	if cfg.LegacyAlgorithmName {
		algorithmName = AlgorithmName(cfg.Algorithm)
	}

	headers := FilterHeaderNames(cfg.Headers)
	if len(headers) == 0 {
		headers = defaultSigningHeaders(req, cfg.LegacyAlgorithmName)
	}

	digestAlg := cfg.DigestAlgorithm
	if digestAlg == "" {
		digestAlg = HashSHA256
	}

	now := clockOrSystem(cfg.Clock).Now().Truncate(time.Second)

	if err := ensureHeaders(req, headers, now, digestAlg); err != nil {
		return nil, err
	}

	expires := cfg.Expires
	if expires == 0 && containsHeader(headers, HeaderExpires) {
		expires = DefaultSignatureExpiry
	}

	signingString, err := ComposeSigningString(ComposeInput{
		Request:         req,
		Headers:         headers,
		TimeOfComposing: now,
		Expires:         expires,
		Escaping:        cfg.Escaping,
		Algorithm:       algorithmName,
		DigestAlgorithm: digestAlg,
	})
	if err != nil {
		return nil, err
	}

	raw, err := cfg.Algorithm.Sign(signingString)
	if err != nil {
		return nil, err
	}

	sig := &Signature{
		KeyID:     cfg.KeyID,
		Algorithm: algorithmName,
		Headers:   headers,
		Nonce:     cfg.Nonce,
		String:    base64.StdEncoding.EncodeToString(raw),
	}

	if sig.Nonce == "" && cfg.GenerateNonce {
		sig.Nonce = GenerateNonce()
	}

	if allowsCreatedAndExpires(algorithmName) {
		sig.Created = timePtr(now)
		if expires > 0 {
			sig.Expires = timePtr(now.Add(expires))
		}
	}

	return sig, nil
}

// SignRequest signs r in place: it adds any missing Date and Digest headers
// and sets the Authorization header to "<scheme> <params>".
func SignRequest(r *http.Request, cfg SignConfig) error {
	req, err := NewRequest(r)
	if err != nil {
		return err
	}

	sig, err := Sign(req, cfg)
	if err != nil {
		return err
	}

	for _, name := range []string{"Date", DigestHeader} {
		if v := req.Header.Get(name); v != "" && r.Header.Get(name) == "" {
			r.Header.Set(name, v)
		}
	}

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}

	r.Header.Set("Authorization", sig.AuthorizationValue(scheme))

	return nil
}

func defaultSigningHeaders(req *Request, legacy bool) []HeaderName {
	headers := []HeaderName{HeaderRequestTarget}

	if legacy {
		headers = append(headers, HeaderDate)
	} else {
		headers = append(headers, HeaderCreated, HeaderExpires)
	}

	if req.Body != nil && methodHasBody(req.Method) {
		headers = append(headers, HeaderDigest)
	}

	return headers
}

// ensureHeaders adds the Date and Digest headers when they are covered but
// absent.
func ensureHeaders(req *Request, headers []HeaderName, now time.Time, digestAlg HashName) error {
	if containsHeader(headers, HeaderDate) && !hasHeader(req.Header, HeaderDate) {
		req.Header.Set("Date", now.UTC().Format(http.TimeFormat))
	}

	if containsHeader(headers, HeaderDigest) && !hasHeader(req.Header, HeaderDigest) &&
		req.Body != nil && methodHasBody(req.Method) {
		value, err := ComputeDigest(req.Body, digestAlg)
		if err != nil {
			return err
		}

		req.Header.Set(DigestHeader, value)
	}

	return nil
}
