package toml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToml = `# Sample anchor stellar.toml
NETWORK_PASSPHRASE = "Test SDF Network ; September 2015"
SIGNING_KEY = "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"
WEB_AUTH_ENDPOINT = "https://anchor.example.com/auth"
TRANSFER_SERVER = "https://anchor.example.com/sep24"

[DOCUMENTATION]
ORG_NAME = "Example Anchor"

[[CURRENCIES]]
code = "USDC"
SIGNING_KEY = "not-the-real-one"
`

func TestParse(t *testing.T) {
	info := parse(sampleToml)

	assert.Equal(t, "Test SDF Network ; September 2015", info.NetworkPassphrase)
	assert.Equal(t, "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5", info.SigningKey)
	assert.Equal(t, "https://anchor.example.com/auth", info.WebAuthEndpoint)
	assert.Equal(t, "https://anchor.example.com/sep24", info.TransferServer)
}

func TestParseIgnoresSectionKeys(t *testing.T) {
	// A SIGNING_KEY inside a table section must not shadow the top-level one.
	info := parse("[[CURRENCIES]]\nSIGNING_KEY = \"GFAKE\"\n")
	assert.Empty(t, info.SigningKey)
}

func TestResolveCaches(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, "/.well-known/stellar.toml", r.URL.Path)
		w.Write([]byte(sampleToml))
	}))
	defer ts.Close()

	resolver := NewResolver()
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ts.URL)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, ts.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestResolveRejectsBadSigningKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("SIGNING_KEY = \"SECRETKEYNOTASIGNINGKEY\"\n"))
	}))
	defer ts.Close()

	_, err := NewResolver().Resolve(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNING_KEY")
}

func TestResolveSurfacesHTTPFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := NewResolver().Resolve(context.Background(), ts.URL)
	require.Error(t, err)
}
