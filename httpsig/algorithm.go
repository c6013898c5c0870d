package httpsig

import (
	"crypto"
	_ "crypto/sha256" // registers crypto.SHA256
	_ "crypto/sha512" // registers crypto.SHA384 and crypto.SHA512
	"fmt"
	"strings"
)

// AlgorithmHS2019 is the unified algorithm name. Signatures declaring it (or
// declaring no algorithm at all) let the verifier derive the algorithm from
// the client configuration.
const AlgorithmHS2019 = "hs2019"

// Family identifies a signature algorithm family.
type Family string

const (
	// FamilyHMAC is a keyed-hash message authentication code.
	FamilyHMAC Family = "hmac"

	// FamilyRSA is RSASSA-PKCS1-v1_5.
	FamilyRSA Family = "rsa"

	// FamilyECDSA is the Elliptic Curve Digital Signature Algorithm.
	FamilyECDSA Family = "ecdsa"
)

// String returns the lower-case family name.
func (f Family) String() string {
	return string(f)
}

// IsLegacy reports whether f is one of the families with per-algorithm
// names in the legacy draft (rsa, hmac, ecdsa). Those names may not be
// combined with (created) or (expires).
func (f Family) IsLegacy() bool {
	switch Family(strings.ToLower(string(f))) {
	case FamilyHMAC, FamilyRSA, FamilyECDSA:
		return true
	default:
		return false
	}
}

// HashName identifies a hash algorithm in its canonical lower-case,
// dash-free form (e.g. "sha256").
type HashName string

const (
	HashSHA256 HashName = "sha256"
	HashSHA384 HashName = "sha384"
	HashSHA512 HashName = "sha512"
)

// NormalizeHashName folds the common spellings "SHA-256", "sha-256" and
// "sha256" to the canonical HashName.
func NormalizeHashName(s string) HashName {
	return HashName(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", ""))
}

// String returns the canonical name.
func (h HashName) String() string {
	return string(h)
}

// DigestName returns the name used in Digest headers (e.g. "SHA-256").
func (h HashName) DigestName() string {
	s := strings.ToUpper(string(h))
	if strings.HasPrefix(s, "SHA") && len(s) > 3 {
		return "SHA-" + s[3:]
	}

	return s
}

// cryptoHash maps h to its crypto.Hash.
func (h HashName) cryptoHash() (crypto.Hash, error) {
	switch NormalizeHashName(string(h)) {
	case HashSHA256:
		return crypto.SHA256, nil
	case HashSHA384:
		return crypto.SHA384, nil
	case HashSHA512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedHash, h)
	}
}

// IsSupported reports whether h maps to a supported hash function.
func (h HashName) IsSupported() bool {
	_, err := h.cryptoHash()
	return err == nil
}

// SignatureAlgorithm signs and verifies canonical signing strings. The set of
// implementations is closed: HMAC, RSA, ECDSA and the custom family created
// by the constructors in this package.
//
// Whoever constructs an algorithm owns its key material and must call
// Dispose when it is no longer needed.
type SignatureAlgorithm interface {
	// Family returns the algorithm family.
	Family() Family

	// Hash returns the hash algorithm used for signing.
	Hash() HashName

	// Sign produces a signature over the UTF-8 bytes of content.
	Sign(content string) ([]byte, error)

	// Verify reports whether signature is valid for content. A mismatch
	// is reported as false, never as a panic.
	Verify(content string, signature []byte) bool

	// Dispose releases key material. The algorithm must not be used
	// afterwards.
	Dispose()

	sealed()
}

// AlgorithmName returns the legacy per-algorithm name for alg, e.g.
// "hmac-sha256".
func AlgorithmName(alg SignatureAlgorithm) string {
	return alg.Family().String() + "-" + alg.Hash().String()
}

// splitAlgorithmName splits a declared "<family>-<hash>" algorithm name.
func splitAlgorithmName(name string) (Family, HashName, bool) {
	family, hash, ok := strings.Cut(strings.TrimSpace(name), "-")
	if !ok || family == "" || hash == "" {
		return "", "", false
	}

	return Family(strings.ToLower(family)), NormalizeHashName(hash), true
}

// isUnifiedAlgorithmName reports whether the declared algorithm defers to the
// client configuration (absent or hs2019).
func isUnifiedAlgorithmName(name string) bool {
	return name == "" || strings.EqualFold(name, AlgorithmHS2019)
}

// allowsCreatedAndExpires reports whether a signature declaring the given
// algorithm name may cover (created) and (expires).
func allowsCreatedAndExpires(declared string) bool {
	if isUnifiedAlgorithmName(declared) {
		return true
	}

	family, _, _ := strings.Cut(declared, "-")

	return !Family(family).IsLegacy()
}
