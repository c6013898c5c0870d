package httpsig

import (
	"strings"
	"time"
)

// ComposeInput holds everything needed to build a canonical signing string.
type ComposeInput struct {
	// Request is the request being signed or verified. Required.
	Request *Request

	// Headers lists the covered headers in order. HeaderEmpty entries are
	// ignored.
	Headers []HeaderName

	// TimeOfComposing is the value rendered for (created).
	TimeOfComposing time.Time

	// Expires is added to TimeOfComposing to render (expires).
	Expires time.Duration

	// Escaping selects how the (request-target) path is escaped.
	Escaping RequestTargetEscaping

	// Algorithm is the algorithm name declared in the signature. Legacy
	// names (e.g. "rsa-sha256") forbid (created) and (expires); the empty
	// string and "hs2019" allow them.
	Algorithm string

	// DigestAlgorithm is used for the digest header. Defaults to SHA-256.
	DigestAlgorithm HashName
}

// ComposeSigningString builds the exact string that is signed and verified.
//
// Every covered header contributes "\n<name>: <value>", in order, with no
// trailing newline. Headers that resolve to nothing still contribute their
// name with an empty value.
func ComposeSigningString(in ComposeInput) (string, error) {
	if in.Request == nil {
		return "", ErrNilArgument
	}

	var b strings.Builder
	b.Grow(256)

	for _, name := range FilterHeaderNames(in.Headers) {
		value, err := componentFor(name)(&in, name)
		if err != nil {
			return "", err
		}

		b.WriteByte('\n')
		b.WriteString(name.String())
		b.WriteString(": ")
		b.WriteString(value)
	}

	return b.String(), nil
}
