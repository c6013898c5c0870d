package httpsig

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Nonce records a presented nonce value for a client.
type Nonce struct {
	ClientID   string
	Value      string
	Expiration time.Time
}

// Expired reports whether the nonce no longer blocks replays at now.
func (n Nonce) Expired(now time.Time) bool {
	return !n.Expiration.After(now)
}

// NonceStore remembers presented nonces. It is the only component that
// mutates nonce records; concurrent registrations of the same key may
// resolve last-write-wins.
type NonceStore interface {
	// Register inserts or replaces the nonce keyed by (ClientID, Value).
	Register(ctx context.Context, nonce Nonce) error

	// Get returns the nonce for (clientID, value) or ErrNonceNotFound.
	// Expired records may be returned; the caller decides relevance.
	Get(ctx context.Context, clientID, value string) (*Nonce, error)
}

// GenerateNonce returns a random nonce suitable for SignConfig.Nonce.
func GenerateNonce() string {
	return uuid.NewString()
}
