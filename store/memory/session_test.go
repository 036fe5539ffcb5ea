package memory

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-ramp/sdk-go/sep10"
)

func testSession(t *testing.T, homeDomain, account string, ttl time.Duration) *sep10.Session {
	t.Helper()
	expires := time.Now().Add(ttl)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   account,
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	return &sep10.Session{
		HomeDomain: homeDomain,
		Account:    account,
		Token:      token,
		ExpiresAt:  expires,
	}
}

func TestSessionStorePutGet(t *testing.T) {
	store := NewSessionStore()
	session := testSession(t, "anchor.example.com", "GABC", time.Hour)

	store.Put(session)
	assert.Equal(t, session, store.Get("anchor.example.com", "GABC"))
	assert.Nil(t, store.Get("other.example.com", "GABC"))
	assert.Nil(t, store.Get("anchor.example.com", "GXYZ"))
}

func TestSessionStoreKeysByDomainAndAccount(t *testing.T) {
	store := NewSessionStore()
	a := testSession(t, "anchor-a.example.com", "GABC", time.Hour)
	b := testSession(t, "anchor-b.example.com", "GABC", time.Hour)

	store.Put(a)
	store.Put(b)
	assert.Equal(t, a, store.Get("anchor-a.example.com", "GABC"))
	assert.Equal(t, b, store.Get("anchor-b.example.com", "GABC"))
}

func TestSessionStoreGetValid(t *testing.T) {
	store := NewSessionStore()

	fresh := testSession(t, "anchor.example.com", "GABC", time.Hour)
	store.Put(fresh)
	assert.NotNil(t, store.GetValid("anchor.example.com", "GABC"))

	stale := testSession(t, "anchor.example.com", "GXYZ", -time.Hour)
	store.Put(stale)
	assert.Nil(t, store.GetValid("anchor.example.com", "GXYZ"))
	// The raw session is still retrievable; only validity filtering hides it.
	assert.NotNil(t, store.Get("anchor.example.com", "GXYZ"))
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore()
	store.Put(testSession(t, "anchor.example.com", "GABC", time.Hour))
	store.Put(testSession(t, "anchor.example.com", "GXYZ", time.Hour))

	store.Clear("anchor.example.com", "GABC")
	assert.Nil(t, store.Get("anchor.example.com", "GABC"))
	assert.NotNil(t, store.Get("anchor.example.com", "GXYZ"))

	store.ClearAll()
	assert.Nil(t, store.Get("anchor.example.com", "GXYZ"))
}
