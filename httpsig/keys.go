package httpsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"strings"
)

// Minimum RSA key size in bits.
const minRSAKeyBits = 2048

func hashContent(h crypto.Hash, content string) []byte {
	d := h.New()
	d.Write([]byte(content))

	return d.Sum(nil)
}

// --- HMAC ---

type hmacAlgorithm struct {
	key  []byte
	hash HashName
	ch   crypto.Hash
}

// NewHMACAlgorithm creates an HMAC SignatureAlgorithm over a shared secret.
// The secret is copied; Dispose zeroes the copy.
func NewHMACAlgorithm(hash HashName, secret []byte) (SignatureAlgorithm, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: hmac secret must not be empty", ErrInvalidKey)
	}

	ch, err := hash.cryptoHash()
	if err != nil {
		return nil, err
	}

	keyCopy := make([]byte, len(secret))
	copy(keyCopy, secret)

	return &hmacAlgorithm{key: keyCopy, hash: NormalizeHashName(string(hash)), ch: ch}, nil
}

func (a *hmacAlgorithm) Family() Family { return FamilyHMAC }
func (a *hmacAlgorithm) Hash() HashName { return a.hash }
func (a *hmacAlgorithm) sealed()        {}

func (a *hmacAlgorithm) Sign(content string) ([]byte, error) {
	mac := hmac.New(a.ch.New, a.key)
	mac.Write([]byte(content))

	return mac.Sum(nil), nil
}

func (a *hmacAlgorithm) Verify(content string, signature []byte) bool {
	expected, _ := a.Sign(content)
	return hmac.Equal(expected, signature)
}

func (a *hmacAlgorithm) Dispose() {
	clear(a.key)
}

// --- RSA ---

type rsaAlgorithm struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	hash    HashName
	ch      crypto.Hash
}

// NewRSAAlgorithm creates an RSASSA-PKCS1-v1_5 SignatureAlgorithm that can
// both sign and verify.
func NewRSAAlgorithm(hash HashName, key *rsa.PrivateKey) (SignatureAlgorithm, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: rsa private key must not be nil", ErrInvalidKey)
	}

	a, err := newRSAAlgorithm(hash, &key.PublicKey)
	if err != nil {
		return nil, err
	}

	a.private = key

	return a, nil
}

// NewRSAVerificationAlgorithm creates a verify-only RSA SignatureAlgorithm
// from a public key. Sign returns ErrSigningNotSupported.
func NewRSAVerificationAlgorithm(hash HashName, key *rsa.PublicKey) (SignatureAlgorithm, error) {
	return newRSAAlgorithm(hash, key)
}

func newRSAAlgorithm(hash HashName, key *rsa.PublicKey) (*rsaAlgorithm, error) {
	if key == nil || key.N == nil {
		return nil, fmt.Errorf("%w: rsa public key must not be nil", ErrInvalidKey)
	}

	if key.N.BitLen() < minRSAKeyBits {
		return nil, fmt.Errorf("%w: rsa key must be at least %d bits", ErrInvalidKey, minRSAKeyBits)
	}

	ch, err := hash.cryptoHash()
	if err != nil {
		return nil, err
	}

	return &rsaAlgorithm{public: key, hash: NormalizeHashName(string(hash)), ch: ch}, nil
}

func (a *rsaAlgorithm) Family() Family { return FamilyRSA }
func (a *rsaAlgorithm) Hash() HashName { return a.hash }
func (a *rsaAlgorithm) sealed()        {}

func (a *rsaAlgorithm) Sign(content string) ([]byte, error) {
	if a.private == nil {
		return nil, ErrSigningNotSupported
	}

	return rsa.SignPKCS1v15(rand.Reader, a.private, a.ch, hashContent(a.ch, content))
}

func (a *rsaAlgorithm) Verify(content string, signature []byte) bool {
	if a.public == nil {
		return false
	}

	return rsa.VerifyPKCS1v15(a.public, a.ch, hashContent(a.ch, content), signature) == nil
}

func (a *rsaAlgorithm) Dispose() {
	a.private = nil
	a.public = nil
}

// --- ECDSA ---

type ecdsaAlgorithm struct {
	private *ecdsa.PrivateKey
	public  *ecdsa.PublicKey
	hash    HashName
	ch      crypto.Hash
}

// NewECDSAAlgorithm creates an ECDSA SignatureAlgorithm that can both sign
// and verify. Signatures are ASN.1 DER encoded.
func NewECDSAAlgorithm(hash HashName, key *ecdsa.PrivateKey) (SignatureAlgorithm, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: ecdsa private key must not be nil", ErrInvalidKey)
	}

	a, err := newECDSAAlgorithm(hash, &key.PublicKey)
	if err != nil {
		return nil, err
	}

	a.private = key

	return a, nil
}

// NewECDSAVerificationAlgorithm creates a verify-only ECDSA
// SignatureAlgorithm from a public key.
func NewECDSAVerificationAlgorithm(hash HashName, key *ecdsa.PublicKey) (SignatureAlgorithm, error) {
	return newECDSAAlgorithm(hash, key)
}

func newECDSAAlgorithm(hash HashName, key *ecdsa.PublicKey) (*ecdsaAlgorithm, error) {
	if key == nil || key.Curve == nil {
		return nil, fmt.Errorf("%w: ecdsa public key must not be nil", ErrInvalidKey)
	}

	ch, err := hash.cryptoHash()
	if err != nil {
		return nil, err
	}

	return &ecdsaAlgorithm{public: key, hash: NormalizeHashName(string(hash)), ch: ch}, nil
}

func (a *ecdsaAlgorithm) Family() Family { return FamilyECDSA }
func (a *ecdsaAlgorithm) Hash() HashName { return a.hash }
func (a *ecdsaAlgorithm) sealed()        {}

func (a *ecdsaAlgorithm) Sign(content string) ([]byte, error) {
	if a.private == nil {
		return nil, ErrSigningNotSupported
	}

	return ecdsa.SignASN1(rand.Reader, a.private, hashContent(a.ch, content))
}

func (a *ecdsaAlgorithm) Verify(content string, signature []byte) bool {
	if a.public == nil {
		return false
	}

	return ecdsa.VerifyASN1(a.public, hashContent(a.ch, content), signature)
}

func (a *ecdsaAlgorithm) Dispose() {
	a.private = nil
	a.public = nil
}

// --- Custom ---

type customAlgorithm struct {
	family Family
	hash   HashName
	ch     crypto.Hash
}

// NewCustomAlgorithm creates an algorithm with an arbitrary family name.
// It "signs" by hashing the content and offers no authenticity; it exists
// to exercise algorithm negotiation.
func NewCustomAlgorithm(family string, hash HashName) (SignatureAlgorithm, error) {
	family = strings.ToLower(strings.TrimSpace(family))
	if family == "" || strings.Contains(family, "-") {
		return nil, fmt.Errorf("%w: invalid custom family %q", ErrInvalidKey, family)
	}

	ch, err := hash.cryptoHash()
	if err != nil {
		return nil, err
	}

	return &customAlgorithm{family: Family(family), hash: NormalizeHashName(string(hash)), ch: ch}, nil
}

func (a *customAlgorithm) Family() Family { return a.family }
func (a *customAlgorithm) Hash() HashName { return a.hash }
func (a *customAlgorithm) sealed()        {}

func (a *customAlgorithm) Sign(content string) ([]byte, error) {
	return hashContent(a.ch, content), nil
}

func (a *customAlgorithm) Verify(content string, signature []byte) bool {
	return subtle.ConstantTimeCompare(hashContent(a.ch, content), signature) == 1
}

func (a *customAlgorithm) Dispose() {}
