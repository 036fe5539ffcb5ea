// Package toml fetches and parses stellar.toml files as specified in SEP-1.
// The SDK consumes it to discover an anchor's SEP-10 endpoint and signing key.
package toml

// AnchorInfo is the subset of a stellar.toml file the SDK consumes.
type AnchorInfo struct {
	// NETWORK_PASSPHRASE identifies the Stellar network (testnet/mainnet).
	NetworkPassphrase string

	// SIGNING_KEY is the anchor's public key used for SEP-10 authentication.
	// When empty, challenge validation degrades to the opt-in trust-reduction
	// path (see sep10.Authenticator).
	SigningKey string

	// WEB_AUTH_ENDPOINT is the URL for SEP-10 Stellar Web Authentication.
	WebAuthEndpoint string

	// TransferServer is the URL for programmatic deposit/withdrawal.
	TransferServer string
}
