package httpsig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature parameter names.
const (
	paramKeyID     = "keyId"
	paramAlgorithm = "algorithm"
	paramCreated   = "created"
	paramExpires   = "expires"
	paramHeaders   = "headers"
	paramNonce     = "nonce"
	paramSignature = "signature"
)

// ParseError describes why an authorization header could not be turned into
// a Signature.
type ParseError struct {
	// Reason is a human readable description.
	Reason string

	// Err is the underlying cause. It wraps one of ErrMalformedHeader,
	// ErrSchemeMismatch or ErrInvalidSignature.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "httpsig: cannot parse signature: " + e.Reason
	}

	return "httpsig: cannot parse signature: " + e.Reason + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseFailure(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}

// ParseAuthorizationHeader parses "<scheme> key1="v1",key2=v2,...". When
// scheme is non-empty the header scheme must match it, ignoring case.
// Failures are returned as *ParseError.
func ParseAuthorizationHeader(value, scheme string) (*Signature, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, parseFailure("missing authorization header", ErrMalformedHeader)
	}

	gotScheme, params, _ := strings.Cut(value, " ")
	if gotScheme == "" {
		return nil, parseFailure("missing authentication scheme", ErrMalformedHeader)
	}

	if scheme != "" && !strings.EqualFold(gotScheme, scheme) {
		return nil, parseFailure(
			fmt.Sprintf("expected scheme %q, got %q", scheme, gotScheme),
			ErrSchemeMismatch,
		)
	}

	if strings.TrimSpace(params) == "" {
		return nil, parseFailure("missing signature parameters", ErrMalformedHeader)
	}

	return ParseSignatureParams(params)
}

// ParseSignatureParams parses a comma separated signature parameter list.
// Unknown parameters are ignored; a repeated known parameter is an error.
// Non-numeric created or expires values are left nil for the verification
// tasks to judge. The result must pass Signature.Validate.
func ParseSignatureParams(params string) (*Signature, error) {
	seen := make(map[string]bool, 7)
	sig := &Signature{}

	for _, entry := range splitQuoteAware(params, ',') {
		key, raw, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, parseFailure(fmt.Sprintf("parameter %q has no value", entry), ErrMalformedHeader)
		}

		key = strings.TrimSpace(key)
		value := unquote(strings.TrimSpace(raw))

		switch key {
		case paramKeyID, paramAlgorithm, paramCreated, paramExpires, paramHeaders, paramNonce, paramSignature:
		default:
			continue
		}

		if seen[key] {
			return nil, parseFailure(fmt.Sprintf("duplicate parameter %q", key), ErrMalformedHeader)
		}
		seen[key] = true

		switch key {
		case paramKeyID:
			sig.KeyID = value
		case paramAlgorithm:
			sig.Algorithm = value
		case paramCreated:
			sig.Created = parseEpoch(value)
		case paramExpires:
			sig.Expires = parseEpoch(value)
		case paramNonce:
			sig.Nonce = value
		case paramSignature:
			sig.String = value
		case paramHeaders:
			sig.Headers = parseHeaderList(value)
		}
	}

	if err := sig.Validate(); err != nil {
		return nil, parseFailure("signature is structurally invalid", err)
	}

	return sig, nil
}

// parseHeaderList splits the headers parameter. Names are only case-folded;
// a name the request cannot resolve is judged by AllHeadersPresentTask.
func parseHeaderList(value string) []HeaderName {
	fields := strings.Fields(value)
	headers := make([]HeaderName, 0, len(fields))

	for _, f := range fields {
		headers = append(headers, NewHeaderName(f))
	}

	return headers
}

// maxEpoch is 9999-12-31T23:59:59Z.
const maxEpoch = 253402300799

// parseEpoch parses decimal Unix seconds in [0, maxEpoch]. A fractional
// part of digits is truncated. Any other value yields nil.
func parseEpoch(value string) *time.Time {
	whole, frac, hasFrac := strings.Cut(value, ".")
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) {
		return nil
	}

	ts, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || ts > maxEpoch {
		return nil
	}

	return timePtr(time.Unix(ts, 0))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// IsParseError reports whether err is a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// splitQuoteAware splits s on delim while respecting "..." quoted regions.
// Backslash-escaped quotes (\") inside quoted strings are handled. Each
// resulting part is trimmed of whitespace and empty parts are skipped.
func splitQuoteAware(s string, delim byte) []string {
	var result []string
	var part strings.Builder
	inQuote := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inQuote {
			if ch == '\\' && i+1 < len(s) {
				part.WriteByte(ch)
				i++
				part.WriteByte(s[i])
				continue
			}

			if ch == '"' {
				inQuote = false
			}

			part.WriteByte(ch)
			continue
		}

		if ch == '"' {
			inQuote = true
			part.WriteByte(ch)
			continue
		}

		if ch == delim {
			if p := strings.TrimSpace(part.String()); p != "" {
				result = append(result, p)
			}

			part.Reset()
			continue
		}

		part.WriteByte(ch)
	}

	if p := strings.TrimSpace(part.String()); p != "" {
		result = append(result, p)
	}

	return result
}

// quoteParam produces a quoted-string, escaping backslash and double-quote.
func quoteParam(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}

		b.WriteByte(ch)
	}

	b.WriteByte('"')

	return b.String()
}

// unquote removes surrounding double quotes and unescapes \\ and \".
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}

		b.WriteByte(s[i])
	}

	return b.String()
}
