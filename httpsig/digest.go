package httpsig

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DigestHeader is the RFC 3230 instance digest header name.
const DigestHeader = "Digest"

// ComputeDigest hashes body with the given algorithm and returns the
// Digest header value, e.g. "SHA-256=47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=".
func ComputeDigest(body []byte, hash HashName) (string, error) {
	sum, err := computeDigest(body, hash)
	if err != nil {
		return "", err
	}

	return NormalizeHashName(string(hash)).DigestName() + "=" + base64.StdEncoding.EncodeToString(sum), nil
}

// SetDigestHeader reads the request body, computes its digest and sets the
// Digest header. The body is replaced so it can be read again.
func SetDigestHeader(r *http.Request, hash HashName) error {
	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	value, err := ComputeDigest(body, hash)
	if err != nil {
		return err
	}

	r.Header.Set(DigestHeader, value)

	return nil
}

// ParseDigest parses a Digest header value of the form
// <algorithm>=<base64>. When the header lists several comma-separated
// digests, the first one with a supported algorithm is returned.
func ParseDigest(value string) (HashName, []byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil, fmt.Errorf("%w: empty value", ErrMalformedDigest)
	}

	var sawEntry bool
	for entry := range strings.SplitSeq(value, ",") {
		algStr, encoded, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || algStr == "" || encoded == "" {
			continue
		}

		sawEntry = true

		hash := NormalizeHashName(algStr)
		if !hash.IsSupported() {
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return "", nil, fmt.Errorf("%w: invalid base64 in digest", ErrMalformedDigest)
		}

		return hash, decoded, nil
	}

	if !sawEntry {
		return "", nil, fmt.Errorf("%w: expected <algorithm>=<base64>", ErrMalformedDigest)
	}

	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedDigest, value)
}

// digestMatches reports whether expected is the digest of body under hash.
func digestMatches(body []byte, hash HashName, expected []byte) (bool, error) {
	actual, err := computeDigest(body, hash)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// computeDigest computes the hash of data using the specified algorithm.
func computeDigest(data []byte, hash HashName) ([]byte, error) {
	ch, err := hash.cryptoHash()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDigest, hash)
	}

	h := ch.New()
	h.Write(data)

	return h.Sum(nil), nil
}
