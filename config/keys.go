package config

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/vitalvas/sigauth/httpsig"
)

// familyAndHash resolves the algorithm family and hash, accepting both
// "rsa" with a separate hash and the combined "rsa-sha256" form.
func (c *ClientConfig) familyAndHash() (httpsig.Family, httpsig.HashName, error) {
	name := strings.ToLower(strings.TrimSpace(c.Algorithm))
	hash := c.Hash

	if family, h, ok := strings.Cut(name, "-"); ok {
		name = family
		if hash == "" {
			hash = h
		}
	}

	if hash == "" {
		hash = string(httpsig.HashSHA256)
	}

	family := httpsig.Family(name)
	if !family.IsLegacy() {
		return "", "", fmt.Errorf("%w: %q: unsupported algorithm %q", ErrInvalidClient, c.ID, c.Algorithm)
	}

	return family, httpsig.NormalizeHashName(hash), nil
}

func (c *ClientConfig) hasPublicKey() bool {
	return c.PublicKey != "" || c.PublicKeyFile != ""
}

func (c *ClientConfig) hasPrivateKey() bool {
	return c.PrivateKey != "" || c.PrivateKeyFile != ""
}

// Build creates the verifier-side client, inheriting unset durations and
// escaping from defaults. The returned client owns its algorithm.
func (c *ClientConfig) Build(defaults DefaultsConfig) (*httpsig.Client, error) {
	alg, err := c.algorithm(false)
	if err != nil {
		return nil, err
	}

	escaping := c.Escaping
	if escaping == "" {
		escaping = defaults.Escaping
	}

	esc, err := httpsig.ParseRequestTargetEscaping(escaping)
	if err != nil {
		alg.Dispose()
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
	}

	opts := []httpsig.ClientOption{
		httpsig.WithClockSkew(firstPositive(c.ClockSkew, defaults.ClockSkew, httpsig.DefaultClockSkew)),
		httpsig.WithNonceLifetime(firstPositive(c.NonceLifetime, defaults.NonceLifetime, httpsig.DefaultNonceLifetime)),
		httpsig.WithRequestTargetEscaping(esc),
		httpsig.WithClaims(c.Claims...),
	}

	if len(c.DefaultHeaders) > 0 {
		headers := make([]httpsig.HeaderName, 0, len(c.DefaultHeaders))
		for _, h := range c.DefaultHeaders {
			name, err := httpsig.ParseHeaderName(h)
			if err != nil {
				alg.Dispose()
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
			}
			headers = append(headers, name)
		}

		opts = append(opts, httpsig.WithDefaultHeaders(headers...))
	}

	name := c.Name
	if name == "" {
		name = c.ID
	}

	client, err := httpsig.NewClient(c.ID, name, alg, opts...)
	if err != nil {
		alg.Dispose()
		return nil, err
	}

	return client, nil
}

// SigningAlgorithm creates an algorithm able to sign for this client. RSA
// and ECDSA clients need a private key.
func (c *ClientConfig) SigningAlgorithm() (httpsig.SignatureAlgorithm, error) {
	return c.algorithm(true)
}

func (c *ClientConfig) algorithm(signing bool) (httpsig.SignatureAlgorithm, error) {
	family, hash, err := c.familyAndHash()
	if err != nil {
		return nil, err
	}

	if family == httpsig.FamilyHMAC {
		secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Secret))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: secret is not valid base64: %w", ErrInvalidClient, c.ID, err)
		}

		return httpsig.NewHMACAlgorithm(hash, secret)
	}

	if c.hasPrivateKey() {
		data, err := readPEM(c.PrivateKey, c.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
		}

		key, err := ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
		}

		return privateAlgorithm(family, hash, key)
	}

	if signing {
		return nil, fmt.Errorf("%w: %q: signing requires a private key", ErrInvalidClient, c.ID)
	}

	data, err := readPEM(c.PublicKey, c.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
	}

	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClient, c.ID, err)
	}

	return publicAlgorithm(family, hash, key)
}

func privateAlgorithm(family httpsig.Family, hash httpsig.HashName, key crypto.PrivateKey) (httpsig.SignatureAlgorithm, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if family == httpsig.FamilyRSA {
			return httpsig.NewRSAAlgorithm(hash, k)
		}
	case *ecdsa.PrivateKey:
		if family == httpsig.FamilyECDSA {
			return httpsig.NewECDSAAlgorithm(hash, k)
		}
	}

	return nil, fmt.Errorf("%w: %T does not match algorithm %s", httpsig.ErrInvalidKey, key, family)
}

func publicAlgorithm(family httpsig.Family, hash httpsig.HashName, key crypto.PublicKey) (httpsig.SignatureAlgorithm, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		if family == httpsig.FamilyRSA {
			return httpsig.NewRSAVerificationAlgorithm(hash, k)
		}
	case *ecdsa.PublicKey:
		if family == httpsig.FamilyECDSA {
			return httpsig.NewECDSAVerificationAlgorithm(hash, k)
		}
	}

	return nil, fmt.Errorf("%w: %T does not match algorithm %s", httpsig.ErrInvalidKey, key, family)
}

// readPEM returns inline PEM data, or the contents of file.
func readPEM(inline, file string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	return data, nil
}

// ParsePublicKey decodes the first PEM block of data as a PKIX or PKCS #1
// public key, or takes the public key of a certificate.
func ParsePublicKey(data []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", httpsig.ErrInvalidKey)
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", httpsig.ErrInvalidKey, err)
		}
		return key, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", httpsig.ErrInvalidKey, err)
		}
		return key, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", httpsig.ErrInvalidKey, err)
		}
		return cert.PublicKey, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", httpsig.ErrInvalidKey, block.Type)
	}
}

// ParsePrivateKey decodes the first PEM block of data as a PKCS #1, SEC 1
// or PKCS #8 private key.
func ParsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", httpsig.ErrInvalidKey)
	}

	var (
		key crypto.PrivateKey
		err error
	)

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", httpsig.ErrInvalidKey, block.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpsig.ErrInvalidKey, err)
	}

	return key, nil
}

func firstPositive[T ~int64](values ...T) T {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}

	return 0
}
