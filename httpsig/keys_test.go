package httpsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMAC(t *testing.T) {
	secret := []byte("test-secret-key-for-hmac")

	t.Run("sign and verify round trip", func(t *testing.T) {
		alg, err := NewHMACAlgorithm(HashSHA256, secret)
		require.NoError(t, err)

		sig, err := alg.Sign("test message")
		require.NoError(t, err)
		assert.Len(t, sig, 32)

		assert.True(t, alg.Verify("test message", sig))
		assert.Equal(t, FamilyHMAC, alg.Family())
		assert.Equal(t, HashSHA256, alg.Hash())
	})

	t.Run("wrong message fails verification", func(t *testing.T) {
		alg, err := NewHMACAlgorithm(HashSHA512, secret)
		require.NoError(t, err)

		sig, err := alg.Sign("original")
		require.NoError(t, err)

		assert.False(t, alg.Verify("tampered", sig))
	})

	t.Run("different secrets disagree", func(t *testing.T) {
		a, err := NewHMACAlgorithm(HashSHA256, []byte("one"))
		require.NoError(t, err)

		b, err := NewHMACAlgorithm(HashSHA256, []byte("two"))
		require.NoError(t, err)

		sig, err := a.Sign("message")
		require.NoError(t, err)

		assert.False(t, b.Verify("message", sig))
	})

	t.Run("secret is copied", func(t *testing.T) {
		key := []byte("mutable")
		alg, err := NewHMACAlgorithm(HashSHA256, key)
		require.NoError(t, err)

		sig, err := alg.Sign("m")
		require.NoError(t, err)

		key[0] = 'X'
		assert.True(t, alg.Verify("m", sig))
	})

	t.Run("dispose clears the secret", func(t *testing.T) {
		alg, err := NewHMACAlgorithm(HashSHA256, secret)
		require.NoError(t, err)

		alg.Dispose()
		assert.Equal(t, make([]byte, len(secret)), alg.(*hmacAlgorithm).key)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewHMACAlgorithm(HashSHA256, nil)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("unsupported hash", func(t *testing.T) {
		_, err := NewHMACAlgorithm("md5", secret)
		assert.ErrorIs(t, err, ErrUnsupportedHash)
	})
}

func TestRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	t.Run("sign and verify round trip", func(t *testing.T) {
		alg, err := NewRSAAlgorithm(HashSHA256, key)
		require.NoError(t, err)

		sig, err := alg.Sign("test message")
		require.NoError(t, err)

		assert.True(t, alg.Verify("test message", sig))
		assert.Equal(t, FamilyRSA, alg.Family())
	})

	t.Run("verification-only key", func(t *testing.T) {
		signer, err := NewRSAAlgorithm(HashSHA512, key)
		require.NoError(t, err)

		verifier, err := NewRSAVerificationAlgorithm(HashSHA512, &key.PublicKey)
		require.NoError(t, err)

		sig, err := signer.Sign("message")
		require.NoError(t, err)

		assert.True(t, verifier.Verify("message", sig))
		assert.False(t, verifier.Verify("other", sig))

		_, err = verifier.Sign("message")
		assert.ErrorIs(t, err, ErrSigningNotSupported)
	})

	t.Run("garbage signature is rejected", func(t *testing.T) {
		alg, err := NewRSAAlgorithm(HashSHA256, key)
		require.NoError(t, err)

		assert.False(t, alg.Verify("message", []byte("garbage")))
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := NewRSAAlgorithm(HashSHA256, nil)
		assert.ErrorIs(t, err, ErrInvalidKey)

		_, err = NewRSAVerificationAlgorithm(HashSHA256, nil)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("key too small", func(t *testing.T) {
		small, err := rsa.GenerateKey(rand.Reader, 1024)
		require.NoError(t, err)

		_, err = NewRSAAlgorithm(HashSHA256, small)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("dispose drops key material", func(t *testing.T) {
		alg, err := NewRSAAlgorithm(HashSHA256, key)
		require.NoError(t, err)

		alg.Dispose()

		_, err = alg.Sign("message")
		assert.ErrorIs(t, err, ErrSigningNotSupported)
		assert.False(t, alg.Verify("message", []byte("x")))
	})
}

func TestECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	t.Run("sign and verify round trip", func(t *testing.T) {
		alg, err := NewECDSAAlgorithm(HashSHA256, key)
		require.NoError(t, err)

		sig, err := alg.Sign("test message")
		require.NoError(t, err)

		assert.True(t, alg.Verify("test message", sig))
		assert.False(t, alg.Verify("tampered", sig))
		assert.Equal(t, FamilyECDSA, alg.Family())
	})

	t.Run("p384 with sha384", func(t *testing.T) {
		key384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)

		signer, err := NewECDSAAlgorithm(HashSHA384, key384)
		require.NoError(t, err)

		verifier, err := NewECDSAVerificationAlgorithm(HashSHA384, &key384.PublicKey)
		require.NoError(t, err)

		sig, err := signer.Sign("message")
		require.NoError(t, err)

		assert.True(t, verifier.Verify("message", sig))

		_, err = verifier.Sign("message")
		assert.ErrorIs(t, err, ErrSigningNotSupported)
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := NewECDSAAlgorithm(HashSHA256, nil)
		assert.ErrorIs(t, err, ErrInvalidKey)

		_, err = NewECDSAVerificationAlgorithm(HashSHA256, &ecdsa.PublicKey{})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestCustomAlgorithm(t *testing.T) {
	t.Run("hash based round trip", func(t *testing.T) {
		alg, err := NewCustomAlgorithm("Custom", HashSHA256)
		require.NoError(t, err)

		sig, err := alg.Sign("message")
		require.NoError(t, err)

		assert.True(t, alg.Verify("message", sig))
		assert.False(t, alg.Verify("other", sig))
		assert.Equal(t, Family("custom"), alg.Family())
		assert.Equal(t, "custom-sha256", AlgorithmName(alg))
	})

	t.Run("invalid family", func(t *testing.T) {
		_, err := NewCustomAlgorithm("", HashSHA256)
		assert.ErrorIs(t, err, ErrInvalidKey)

		_, err = NewCustomAlgorithm("a-b", HashSHA256)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestSingleByteChangesFailVerification(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	hmacAlg, err := NewHMACAlgorithm(HashSHA256, []byte("test-secret-key-for-hmac"))
	require.NoError(t, err)

	rsaAlg, err := NewRSAAlgorithm(HashSHA256, rsaKey)
	require.NoError(t, err)

	ecAlg, err := NewECDSAAlgorithm(HashSHA256, ecKey)
	require.NoError(t, err)

	const message = "\n(request-target): post /api/resource/id1\ndate: Mon, 24 Feb 2020 10:20:14 GMT"

	for _, alg := range []SignatureAlgorithm{hmacAlg, rsaAlg, ecAlg} {
		t.Run(AlgorithmName(alg), func(t *testing.T) {
			sig, err := alg.Sign(message)
			require.NoError(t, err)
			require.True(t, alg.Verify(message, sig))

			for _, i := range []int{0, len(sig) / 2, len(sig) - 1} {
				flipped := append([]byte(nil), sig...)
				flipped[i] ^= 0x01
				assert.False(t, alg.Verify(message, flipped), "signature byte %d", i)
			}

			for _, i := range []int{0, len(message) / 2, len(message) - 1} {
				changed := []byte(message)
				changed[i] ^= 0x01
				assert.False(t, alg.Verify(string(changed), sig), "content byte %d", i)
			}
		})
	}
}
