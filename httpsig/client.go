package httpsig

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by NewClient.
const (
	DefaultClockSkew     = 1 * time.Minute
	DefaultNonceLifetime = 5 * time.Minute
)

// Claim is an identity claim attached to a successfully verified request.
type Claim struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Client is the verifier's trust record for a signing party, keyed by its
// key id. A Client must not be modified while a verification uses it.
type Client struct {
	// ID is the key id presented in signatures.
	ID string

	// Name is a display name.
	Name string

	// Algorithm verifies this client's signatures.
	Algorithm SignatureAlgorithm

	// ClockSkew is the tolerance for clock drift between signer and
	// verifier.
	ClockSkew time.Duration

	// NonceLifetime is how long a presented nonce blocks replays.
	NonceLifetime time.Duration

	// RequestTargetEscaping selects the (request-target) path escaping.
	RequestTargetEscaping RequestTargetEscaping

	// DefaultHeaders are the covered headers assumed when a signature
	// does not list any. When empty, (created) is assumed if the
	// signature carries a created value and date otherwise.
	DefaultHeaders []HeaderName

	// Claims are attached to the identity on success.
	Claims []Claim
}

// ClientOption configures a Client built by NewClient.
type ClientOption func(*Client)

// WithClockSkew sets the clock skew tolerance.
func WithClockSkew(d time.Duration) ClientOption {
	return func(c *Client) { c.ClockSkew = d }
}

// WithNonceLifetime sets the nonce replay window.
func WithNonceLifetime(d time.Duration) ClientOption {
	return func(c *Client) { c.NonceLifetime = d }
}

// WithRequestTargetEscaping sets the (request-target) escaping mode.
func WithRequestTargetEscaping(e RequestTargetEscaping) ClientOption {
	return func(c *Client) { c.RequestTargetEscaping = e }
}

// WithDefaultHeaders sets the headers assumed when a signature lists none.
func WithDefaultHeaders(headers ...HeaderName) ClientOption {
	return func(c *Client) { c.DefaultHeaders = FilterHeaderNames(headers) }
}

// WithClaims attaches claims to the identity of this client.
func WithClaims(claims ...Claim) ClientOption {
	return func(c *Client) { c.Claims = append(c.Claims, claims...) }
}

// NewClient creates a Client with default clock skew, nonce lifetime and
// RFC 3986 escaping.
func NewClient(id, name string, alg SignatureAlgorithm, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: client id must not be empty", ErrNilArgument)
	}

	if alg == nil {
		return nil, ErrNoAlgorithm
	}

	c := &Client{
		ID:                    id,
		Name:                  name,
		Algorithm:             alg,
		ClockSkew:             DefaultClockSkew,
		NonceLifetime:         DefaultNonceLifetime,
		RequestTargetEscaping: EscapingRFC3986,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.ClockSkew < 0 || c.NonceLifetime < 0 {
		return nil, fmt.Errorf("httpsig: client %q: durations must not be negative", id)
	}

	return c, nil
}

// ClientStore resolves registered clients. Caching, locking and persistence
// are the store's concern.
type ClientStore interface {
	// Register adds or replaces a client.
	Register(ctx context.Context, client *Client) error

	// Get returns the client registered under id, or ErrClientNotFound.
	Get(ctx context.Context, id string) (*Client, error)
}
