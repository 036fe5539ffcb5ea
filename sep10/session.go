package sep10

import "time"

// Session represents an authenticated connection to an anchor. It holds the
// bearer token used in Authorization headers for subsequent calls. Sessions
// live in memory for the lifetime of a login and are discarded on logout or
// expiry; they never persist key material.
type Session struct {
	// HomeDomain is the anchor's domain (e.g. "testanchor.stellar.org").
	HomeDomain string

	// Account is the Stellar account address (G...) that was authenticated.
	Account string

	// Token is the bearer token for Authorization: Bearer headers.
	Token string

	// ExpiresAt is the token's decoded expiry instant.
	ExpiresAt time.Time
}

// Valid reports whether the session token is still usable, applying the
// default expiry buffer. It gates every authenticated call.
func (s *Session) Valid() bool {
	return !IsTokenExpired(s.Token, DefaultExpiryBuffer)
}
