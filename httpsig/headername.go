package httpsig

import (
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// HeaderName identifies a covered header or pseudo-header. Names are stored
// lower-cased, so comparison and map lookups are case-insensitive.
type HeaderName string

// Well-known header names.
const (
	// HeaderEmpty is the empty sentinel. It is never processed.
	HeaderEmpty HeaderName = ""

	HeaderRequestTarget HeaderName = "(request-target)"
	HeaderCreated       HeaderName = "(created)"
	HeaderExpires       HeaderName = "(expires)"
	HeaderDate          HeaderName = "date"
	HeaderDigest        HeaderName = "digest"
)

// NewHeaderName returns the case-folded HeaderName for s.
func NewHeaderName(s string) HeaderName {
	return HeaderName(strings.ToLower(strings.TrimSpace(s)))
}

// ParseHeaderName returns the HeaderName for s after checking that it is
// either a known pseudo-header or a valid HTTP field name.
func ParseHeaderName(s string) (HeaderName, error) {
	h := NewHeaderName(s)

	switch {
	case h == HeaderEmpty:
		return HeaderEmpty, nil
	case h.IsPseudo():
		return h, nil
	case strings.HasPrefix(string(h), "("):
		return HeaderEmpty, fmt.Errorf("%w: unknown pseudo-header %q", ErrMalformedHeader, s)
	case !httpguts.ValidHeaderFieldName(string(h)):
		return HeaderEmpty, fmt.Errorf("%w: invalid header name %q", ErrMalformedHeader, s)
	}

	return h, nil
}

// String returns the lower-case name.
func (h HeaderName) String() string {
	return string(h)
}

// Equal reports whether h and other name the same header, ignoring case.
func (h HeaderName) Equal(other HeaderName) bool {
	return strings.EqualFold(string(h), string(other))
}

// IsPseudo reports whether h is one of the synthetic pseudo-headers.
func (h HeaderName) IsPseudo() bool {
	switch NewHeaderName(string(h)) {
	case HeaderRequestTarget, HeaderCreated, HeaderExpires:
		return true
	default:
		return false
	}
}

// FilterHeaderNames returns names with every HeaderEmpty entry removed and
// every remaining entry case-folded.
func FilterHeaderNames(names []HeaderName) []HeaderName {
	out := make([]HeaderName, 0, len(names))
	for _, h := range names {
		h = NewHeaderName(string(h))
		if h == HeaderEmpty {
			continue
		}

		out = append(out, h)
	}

	return out
}

func containsHeader(names []HeaderName, h HeaderName) bool {
	for _, n := range names {
		if n.Equal(h) {
			return true
		}
	}

	return false
}

func joinHeaderNames(names []HeaderName) string {
	parts := make([]string, 0, len(names))
	for _, h := range FilterHeaderNames(names) {
		parts = append(parts, h.String())
	}

	return strings.Join(parts, " ")
}
