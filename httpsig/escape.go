package httpsig

import (
	"fmt"
	"net/url"
	"strings"
)

// RequestTargetEscaping selects how the path in (request-target) is escaped.
type RequestTargetEscaping int

const (
	// EscapingRFC3986 percent-encodes everything except RFC 3986 unreserved
	// characters and the "/" segment separator.
	EscapingRFC3986 RequestTargetEscaping = iota

	// EscapingRFC2396 percent-encodes everything except RFC 2396 unreserved
	// characters (which include !*'()) and "/".
	EscapingRFC2396

	// EscapingUnescaped uses the fully decoded path.
	EscapingUnescaped

	// EscapingOriginalString uses the path exactly as it was sent.
	EscapingOriginalString
)

var escapingNames = map[RequestTargetEscaping]string{
	EscapingRFC3986:        "RFC3986",
	EscapingRFC2396:        "RFC2396",
	EscapingUnescaped:      "Unescaped",
	EscapingOriginalString: "OriginalString",
}

// String returns the configuration name of e.
func (e RequestTargetEscaping) String() string {
	if s, ok := escapingNames[e]; ok {
		return s
	}

	return fmt.Sprintf("RequestTargetEscaping(%d)", int(e))
}

// ParseRequestTargetEscaping parses a configuration name, ignoring case.
// The empty string selects EscapingRFC3986.
func ParseRequestTargetEscaping(s string) (RequestTargetEscaping, error) {
	if strings.TrimSpace(s) == "" {
		return EscapingRFC3986, nil
	}

	for e, name := range escapingNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return e, nil
		}
	}

	return 0, fmt.Errorf("httpsig: unknown request target escaping %q", s)
}

// escapePath renders the path of u according to e. Path casing is
// preserved; the query string is never included.
func escapePath(u *url.URL, e RequestTargetEscaping) string {
	var path string

	switch e {
	case EscapingOriginalString:
		path = u.EscapedPath()
	case EscapingUnescaped:
		path = u.Path
	case EscapingRFC2396:
		path = escapeSegments(u.Path, isUnreservedRFC2396)
	default:
		path = escapeSegments(u.Path, isUnreservedRFC3986)
	}

	if path == "" {
		return "/"
	}

	return path
}

// escapeSegments percent-encodes every byte of the decoded path except "/"
// and the bytes accepted by unreserved.
func escapeSegments(decoded string, unreserved func(byte) bool) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(decoded))

	for i := 0; i < len(decoded); i++ {
		c := decoded[i]
		if c == '/' || unreserved(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}

	return b.String()
}

func isAlphaNum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isUnreservedRFC3986(c byte) bool {
	if isAlphaNum(c) {
		return true
	}

	switch c {
	case '-', '.', '_', '~':
		return true
	}

	return false
}

func isUnreservedRFC2396(c byte) bool {
	if isAlphaNum(c) {
		return true
	}

	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}

	return false
}
