package sep10

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stellar-ramp/sdk-go/errors"
)

// DefaultExpiryBuffer is subtracted from a token's remaining lifetime when
// checking expiry, so calls made near the boundary do not arrive with a
// just-expired token.
const DefaultExpiryBuffer = 60 * time.Second

// TokenClaims are the decoded claims of an anchor-issued bearer token.
// The token is treated as opaque beyond these fields; its signature is the
// anchor's concern and is never verified here.
type TokenClaims struct {
	Subject   string // Authenticated Stellar account
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// DecodeToken decodes a bearer token's payload without verifying its
// signature. Tokens without exactly three dot-separated segments fail with a
// format error.
func DecodeToken(token string) (*TokenClaims, error) {
	if len(strings.Split(token, ".")) != 3 {
		return nil, errors.NewValidationError(errors.TOKEN_MALFORMED,
			"invalid token format: expected 3 segments", nil)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.NewValidationError(errors.TOKEN_MALFORMED,
			"failed to decode token payload", err)
	}

	decoded := &TokenClaims{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}
	return decoded, nil
}

// IsTokenExpired reports whether the token is expired or will expire within
// the buffer. It fails closed: any decode failure, or a missing exp claim,
// counts as expired.
func IsTokenExpired(token string, buffer time.Duration) bool {
	claims, err := DecodeToken(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return claims.ExpiresAt.Before(time.Now().Add(buffer))
}
