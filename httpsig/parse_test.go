package httpsig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorizationHeader(t *testing.T) {
	t.Run("full header", func(t *testing.T) {
		value := `SignedHttpRequest keyId="app1",algorithm="hs2019",created=1582539614,expires=1582539914,` +
			`headers="(request-target) (created) (expires) Dalion-App-Id",nonce="abc123",signature="c2lnbmF0dXJl"`

		sig, err := ParseAuthorizationHeader(value, DefaultScheme)
		require.NoError(t, err)

		assert.Equal(t, "app1", sig.KeyID)
		assert.Equal(t, "hs2019", sig.Algorithm)
		require.NotNil(t, sig.Created)
		assert.Equal(t, int64(1582539614), sig.Created.Unix())
		require.NotNil(t, sig.Expires)
		assert.Equal(t, int64(1582539914), sig.Expires.Unix())
		assert.Equal(t, []HeaderName{HeaderRequestTarget, HeaderCreated, HeaderExpires, "dalion-app-id"}, sig.Headers)
		assert.Equal(t, "abc123", sig.Nonce)
		assert.Equal(t, "c2lnbmF0dXJl", sig.String)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		sig, err := ParseAuthorizationHeader(`signedhttprequest keyId="a",signature="b"`, DefaultScheme)
		require.NoError(t, err)
		assert.Equal(t, "a", sig.KeyID)
	})

	t.Run("empty scheme accepts any", func(t *testing.T) {
		_, err := ParseAuthorizationHeader(`Signature keyId="a",signature="b"`, "")
		assert.NoError(t, err)
	})

	t.Run("scheme mismatch", func(t *testing.T) {
		_, err := ParseAuthorizationHeader(`Bearer keyId="a",signature="b"`, DefaultScheme)
		assert.ErrorIs(t, err, ErrSchemeMismatch)
		assert.True(t, IsParseError(err))
	})

	t.Run("malformed inputs", func(t *testing.T) {
		for _, value := range []string{
			"",
			"   ",
			"SignedHttpRequest",
			"SignedHttpRequest   ",
		} {
			_, err := ParseAuthorizationHeader(value, DefaultScheme)
			assert.ErrorIs(t, err, ErrMalformedHeader, value)
		}
	})
}

func TestParseSignatureParams(t *testing.T) {
	t.Run("unquoted and spaced values", func(t *testing.T) {
		sig, err := ParseSignatureParams(` keyId = "k1" , signature=abc , created=1582539614 `)
		require.NoError(t, err)
		assert.Equal(t, "k1", sig.KeyID)
		assert.Equal(t, "abc", sig.String)
		require.NotNil(t, sig.Created)
	})

	t.Run("commas inside quotes", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a,b",signature="x=="`)
		require.NoError(t, err)
		assert.Equal(t, "a,b", sig.KeyID)
		assert.Equal(t, "x==", sig.String)
	})

	t.Run("escaped quotes", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="say \"hi\"",signature="s"`)
		require.NoError(t, err)
		assert.Equal(t, `say "hi"`, sig.KeyID)
	})

	t.Run("unknown parameters are ignored", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a",extra="1",signature="b"`)
		require.NoError(t, err)
		assert.Equal(t, "a", sig.KeyID)
	})

	t.Run("duplicate parameter", func(t *testing.T) {
		_, err := ParseSignatureParams(`keyId="a",keyId="b",signature="c"`)
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("parameter without value", func(t *testing.T) {
		_, err := ParseSignatureParams(`keyId="a",broken,signature="c"`)
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("missing key id", func(t *testing.T) {
		_, err := ParseSignatureParams(`signature="c"`)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := ParseSignatureParams(`keyId="a"`)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown header names are kept", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a",headers="(Bogus) X-App-Id",signature="c"`)
		require.NoError(t, err)
		assert.Equal(t, []HeaderName{"(bogus)", "x-app-id"}, sig.Headers)
	})

	t.Run("fractional epoch is truncated", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a",created=1582539614.75,signature="c"`)
		require.NoError(t, err)
		require.NotNil(t, sig.Created)
		assert.Equal(t, int64(1582539614), sig.Created.Unix())
	})

	t.Run("out of range epochs are nil", func(t *testing.T) {
		for _, value := range []string{
			"1e300",
			"1e3",
			"-1",
			"+1582539614",
			"9223372036854775807",
			"9223372036854775000",
			"253402300800",
			"99999999999999999999",
			".5",
			"1582539614.",
			"1582539614.5e3",
		} {
			sig, err := ParseSignatureParams(`keyId="a",created=` + value + `,expires=` + value + `,signature="c"`)
			require.NoError(t, err, value)
			assert.Nil(t, sig.Created, value)
			assert.Nil(t, sig.Expires, value)
		}
	})

	t.Run("epoch upper bound", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a",expires=253402300799,signature="c"`)
		require.NoError(t, err)
		require.NotNil(t, sig.Expires)
		assert.Equal(t, int64(253402300799), sig.Expires.Unix())
	})

	t.Run("non-numeric epoch is nil", func(t *testing.T) {
		sig, err := ParseSignatureParams(`keyId="a",created="yesterday",expires=NaN,signature="c"`)
		require.NoError(t, err)
		assert.Nil(t, sig.Created)
		assert.Nil(t, sig.Expires)
	})
}

func TestSignatureParams(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		created := time.Unix(1582539614, 0)
		expires := created.Add(5 * time.Minute)

		sig := &Signature{
			KeyID:     `key "1"`,
			Algorithm: AlgorithmHS2019,
			Created:   &created,
			Expires:   &expires,
			Headers:   []HeaderName{HeaderRequestTarget, HeaderCreated, HeaderExpires},
			Nonce:     "n1",
			String:    "c2ln",
		}

		parsed, err := ParseAuthorizationHeader(sig.AuthorizationValue(DefaultScheme), DefaultScheme)
		require.NoError(t, err)

		assert.Equal(t, sig.KeyID, parsed.KeyID)
		assert.Equal(t, sig.Algorithm, parsed.Algorithm)
		assert.True(t, sig.Created.Equal(*parsed.Created))
		assert.True(t, sig.Expires.Equal(*parsed.Expires))
		assert.Equal(t, sig.Headers, parsed.Headers)
		assert.Equal(t, sig.Nonce, parsed.Nonce)
		assert.Equal(t, sig.String, parsed.String)
	})

	t.Run("optional fields are omitted", func(t *testing.T) {
		sig := &Signature{KeyID: "a", String: "b"}
		assert.Equal(t, `keyId="a",signature="b"`, sig.Params())
	})

	t.Run("validate", func(t *testing.T) {
		var nilSig *Signature
		assert.ErrorIs(t, nilSig.Validate(), ErrInvalidSignature)
		assert.ErrorIs(t, (&Signature{KeyID: " ", String: "x"}).Validate(), ErrInvalidSignature)
		assert.NoError(t, (&Signature{KeyID: "a", String: "x"}).Validate())
	})
}
