package httpsig

import "errors"

// Argument errors.
var (
	// ErrNilArgument is returned when a required argument is nil.
	ErrNilArgument = errors.New("httpsig: required argument must not be nil")
)

// Signing errors.
var (
	// ErrNoAlgorithm is returned when SignConfig has no Algorithm configured.
	ErrNoAlgorithm = errors.New("httpsig: signature algorithm must not be nil")

	// ErrNoKeyID is returned when SignConfig has an empty KeyID.
	ErrNoKeyID = errors.New("httpsig: key id must not be empty")

	// ErrCreatedNotAllowed is returned when (created) is covered by a
	// signature that declares a legacy rsa, hmac or ecdsa algorithm name.
	ErrCreatedNotAllowed = errors.New("httpsig: (created) is not allowed for this algorithm")

	// ErrExpiresNotAllowed is returned when (expires) is covered by a
	// signature that declares a legacy rsa, hmac or ecdsa algorithm name.
	ErrExpiresNotAllowed = errors.New("httpsig: (expires) is not allowed for this algorithm")

	// ErrInvalidRequest is returned when the request cannot be composed,
	// e.g. a relative URL without a resolvable host.
	ErrInvalidRequest = errors.New("httpsig: invalid request")

	// ErrSigningNotSupported is returned by verification-only algorithms.
	ErrSigningNotSupported = errors.New("httpsig: algorithm has no private key for signing")
)

// Verification errors.
var (
	// ErrNoClientStore is returned when VerifierConfig has no ClientStore.
	ErrNoClientStore = errors.New("httpsig: client store must not be nil")

	// ErrNoNonceStore is returned when VerifierConfig has no NonceStore.
	ErrNoNonceStore = errors.New("httpsig: nonce store must not be nil")

	// ErrNoVerifier is returned when MiddlewareConfig has no Verifier.
	ErrNoVerifier = errors.New("httpsig: verifier must not be nil")

	// ErrMalformedHeader is returned when an authorization header or
	// its signature parameters cannot be parsed.
	ErrMalformedHeader = errors.New("httpsig: malformed signature header")

	// ErrSchemeMismatch is returned when the authorization header uses a
	// scheme other than the expected one.
	ErrSchemeMismatch = errors.New("httpsig: authentication scheme mismatch")

	// ErrInvalidSignature is returned by Signature.Validate when required
	// fields are missing.
	ErrInvalidSignature = errors.New("httpsig: invalid signature")
)

// Store errors.
var (
	// ErrClientNotFound is returned by a ClientStore when no client is
	// registered for the requested key id.
	ErrClientNotFound = errors.New("httpsig: client not found")

	// ErrNonceNotFound is returned by a NonceStore when no nonce is
	// registered for the requested client and value.
	ErrNonceNotFound = errors.New("httpsig: nonce not found")
)

// Key material errors.
var (
	// ErrInvalidKey is returned when key material is invalid (nil, empty,
	// unsupported curve, insufficient size, etc.).
	ErrInvalidKey = errors.New("httpsig: invalid key material")

	// ErrUnsupportedHash is returned when a hash algorithm name is not
	// supported.
	ErrUnsupportedHash = errors.New("httpsig: unsupported hash algorithm")
)

// Digest errors.
var (
	// ErrMalformedDigest is returned when a Digest header value cannot be
	// parsed as <algorithm>=<base64>.
	ErrMalformedDigest = errors.New("httpsig: malformed digest header")

	// ErrUnsupportedDigest is returned when the digest algorithm is not
	// supported.
	ErrUnsupportedDigest = errors.New("httpsig: unsupported digest algorithm")
)
