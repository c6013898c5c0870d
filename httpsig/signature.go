package httpsig

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature is the wire representation of an HTTP signature.
type Signature struct {
	// KeyID identifies the client. Required.
	KeyID string

	// Algorithm is the declared algorithm, e.g. "hs2019" or "rsa-sha256".
	// Empty when absent.
	Algorithm string

	// Created is the signature creation time, if any.
	Created *time.Time

	// Expires is the signature expiration time, if any.
	Expires *time.Time

	// Headers lists the covered headers in order. Nil or empty means the
	// defaults apply.
	Headers []HeaderName

	// Nonce is an optional replay-protection value.
	Nonce string

	// String is the base64 encoded signature value. Required.
	String string
}

// Validate checks that the required fields are present.
func (s *Signature) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: signature is nil", ErrInvalidSignature)
	}

	if strings.TrimSpace(s.KeyID) == "" {
		return fmt.Errorf("%w: keyId is required", ErrInvalidSignature)
	}

	if strings.TrimSpace(s.String) == "" {
		return fmt.Errorf("%w: signature is required", ErrInvalidSignature)
	}

	return nil
}

// Params renders the signature as a comma separated parameter list, the
// part of the authorization header that follows the scheme:
//
//	keyId="app1",algorithm="hs2019",created=1582539614,headers="(request-target) (created)",signature="..."
func (s *Signature) Params() string {
	var b strings.Builder
	b.Grow(256 + len(s.String))

	b.WriteString("keyId=")
	b.WriteString(quoteParam(s.KeyID))

	if s.Algorithm != "" {
		b.WriteString(",algorithm=")
		b.WriteString(quoteParam(s.Algorithm))
	}

	if s.Created != nil {
		b.WriteString(",created=")
		b.WriteString(strconv.FormatInt(s.Created.Unix(), 10))
	}

	if s.Expires != nil {
		b.WriteString(",expires=")
		b.WriteString(strconv.FormatInt(s.Expires.Unix(), 10))
	}

	if headers := FilterHeaderNames(s.Headers); len(headers) > 0 {
		b.WriteString(",headers=")
		b.WriteString(quoteParam(joinHeaderNames(headers)))
	}

	if s.Nonce != "" {
		b.WriteString(",nonce=")
		b.WriteString(quoteParam(s.Nonce))
	}

	b.WriteString(",signature=")
	b.WriteString(quoteParam(s.String))

	return b.String()
}

// AuthorizationValue renders "<scheme> <params>".
func (s *Signature) AuthorizationValue(scheme string) string {
	return scheme + " " + s.Params()
}

func timePtr(t time.Time) *time.Time {
	return &t
}
