package signers

import (
	"context"

	stellarramp "github.com/stellar-ramp/sdk-go"
)

// callbackSigner wraps a custom signing function for external signing services.
type callbackSigner struct {
	publicKey string
	signFunc  func(ctx context.Context, xdr string, networkPassphrase string) (string, error)
}

// FromCallback creates a Signer from a public key and an arbitrary signing function.
// Intended for wrapping HSMs, custodial APIs, wallet extensions, or any
// external signing service.
func FromCallback(
	publicKey string,
	signFunc func(ctx context.Context, xdr string, networkPassphrase string) (string, error),
) stellarramp.Signer {
	return &callbackSigner{
		publicKey: publicKey,
		signFunc:  signFunc,
	}
}

// PublicKey returns the Stellar address (G...) for this signer.
func (s *callbackSigner) PublicKey() string {
	return s.publicKey
}

// SignTransaction delegates to the callback function and returns the signed
// envelope as base64 XDR.
func (s *callbackSigner) SignTransaction(ctx context.Context, xdr string, networkPassphrase string) (string, error) {
	return s.signFunc(ctx, xdr, networkPassphrase)
}
