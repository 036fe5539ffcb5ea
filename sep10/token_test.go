package sep10

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-ramp/sdk-go/errors"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeToken(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	expires := issued.Add(24 * time.Hour)

	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "GABC",
		Issuer:    "https://anchor.example.com/auth",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	claims, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "GABC", claims.Subject)
	assert.Equal(t, "https://anchor.example.com/auth", claims.Issuer)
	assert.True(t, claims.IssuedAt.Equal(issued))
	assert.True(t, claims.ExpiresAt.Equal(expires))
}

func TestDecodeTokenRejectsWrongSegmentCount(t *testing.T) {
	for _, token := range []string{"", "one", "one.two", "one.two.three.four"} {
		_, err := DecodeToken(token)
		require.Error(t, err)

		var re *errors.RampError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, errors.TOKEN_MALFORMED, re.Code)
	}
}

func TestDecodeTokenRejectsUndecodablePayload(t *testing.T) {
	_, err := DecodeToken("aaa.!!!.ccc")
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.TOKEN_MALFORMED, re.Code)
}

func TestIsTokenExpired(t *testing.T) {
	fresh := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	assert.False(t, IsTokenExpired(fresh, DefaultExpiryBuffer))

	stale := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	assert.True(t, IsTokenExpired(stale, DefaultExpiryBuffer))
}

func TestIsTokenExpiredHonorsBuffer(t *testing.T) {
	// Expires in 30s: valid with no buffer, expired with a 60s buffer.
	token := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Second)),
	})
	assert.False(t, IsTokenExpired(token, 0))
	assert.True(t, IsTokenExpired(token, time.Minute))
}

func TestIsTokenExpiredFailsClosed(t *testing.T) {
	// Undecodable tokens and tokens without an exp claim count as expired.
	assert.True(t, IsTokenExpired("garbage", DefaultExpiryBuffer))

	noExp := signedToken(t, jwt.RegisteredClaims{Subject: "GABC"})
	assert.True(t, IsTokenExpired(noExp, DefaultExpiryBuffer))
}
