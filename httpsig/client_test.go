package httpsig

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	alg, err := NewHMACAlgorithm(HashSHA256, []byte("secret"))
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient("app1", "App One", alg)
		require.NoError(t, err)

		assert.Equal(t, DefaultClockSkew, c.ClockSkew)
		assert.Equal(t, DefaultNonceLifetime, c.NonceLifetime)
		assert.Equal(t, EscapingRFC3986, c.RequestTargetEscaping)
		assert.Empty(t, c.DefaultHeaders)
	})

	t.Run("options", func(t *testing.T) {
		c, err := NewClient("app1", "App One", alg,
			WithClockSkew(10*time.Second),
			WithNonceLifetime(time.Hour),
			WithRequestTargetEscaping(EscapingOriginalString),
			WithDefaultHeaders("", "Date", HeaderRequestTarget),
			WithClaims(Claim{Type: "scope", Value: "read"}),
		)
		require.NoError(t, err)

		assert.Equal(t, 10*time.Second, c.ClockSkew)
		assert.Equal(t, time.Hour, c.NonceLifetime)
		assert.Equal(t, EscapingOriginalString, c.RequestTargetEscaping)
		assert.Equal(t, []HeaderName{HeaderDate, HeaderRequestTarget}, c.DefaultHeaders)
		assert.Equal(t, []Claim{{Type: "scope", Value: "read"}}, c.Claims)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := NewClient(" ", "x", alg)
		assert.ErrorIs(t, err, ErrNilArgument)

		_, err = NewClient("app1", "x", nil)
		assert.ErrorIs(t, err, ErrNoAlgorithm)

		_, err = NewClient("app1", "x", alg, WithClockSkew(-time.Second))
		assert.Error(t, err)
	})
}

func TestFailure(t *testing.T) {
	t.Run("error message", func(t *testing.T) {
		f := newFailure(CodeInvalidNonce, "nonce %q reused", "n1")
		assert.Equal(t, `httpsig: INVALID_NONCE: nonce "n1" reused`, f.Error())

		f = newFailure(CodeInvalidDigestHeader, "bad").withCause(ErrMalformedDigest)
		assert.Equal(t, "httpsig: INVALID_DIGEST_HEADER: bad: httpsig: malformed digest header", f.Error())
	})

	t.Run("matches by code", func(t *testing.T) {
		var err error = fmt.Errorf("wrapped: %w", newFailure(CodeSignatureExpired, "late"))

		assert.True(t, errors.Is(err, &Failure{Code: CodeSignatureExpired}))
		assert.False(t, errors.Is(err, &Failure{Code: CodeInvalidNonce}))
		assert.Equal(t, CodeSignatureExpired, FailureCodeOf(err))
		assert.Equal(t, FailureCode(""), FailureCodeOf(errors.New("plain")))
	})
}

func TestNonceExpired(t *testing.T) {
	n := Nonce{Expiration: testNow}

	assert.True(t, n.Expired(testNow))
	assert.True(t, n.Expired(testNow.Add(time.Second)))
	assert.False(t, n.Expired(testNow.Add(-time.Second)))
}

func TestResult(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.Succeeded())
	assert.Nil(t, nilResult.Identity())

	failed := &Result{Failure: newFailure(CodeInvalidClient, "x")}
	assert.False(t, failed.Succeeded())

	client := newHMACClient(t, "app1")
	ok := &Result{Client: client}
	require.True(t, ok.Succeeded())

	name, found := ok.Identity().Claim(ClaimClientName)
	assert.True(t, found)
	assert.Equal(t, "Client app1", name)

	_, found = ok.Identity().Claim("missing")
	assert.False(t, found)
}
