// Package signers provides ready-made stellarramp.Signer implementations.
// The SDK never holds key material itself; these are the integration points
// where callers decide how signing happens.
package signers

import (
	"context"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/errors"
)

// keypairSigner signs envelopes with an in-memory stellar/go keypair.
type keypairSigner struct {
	kp *keypair.Full
}

// FromSecret creates a Signer from a Stellar secret key (S...). Intended for
// server-side use (exchanges, backends, bots) where holding the raw seed is
// acceptable.
func FromSecret(secret string) (stellarramp.Signer, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID,
			"invalid Stellar secret key", err)
	}
	return &keypairSigner{kp: kp}, nil
}

// PublicKey returns the Stellar address (G...) for this keypair.
func (s *keypairSigner) PublicKey() string {
	return s.kp.Address()
}

// SignTransaction parses the envelope (base64 XDR), signs its hash for the
// given network, and returns the signed envelope as base64 XDR. Fee bump
// envelopes are rejected; providers hand out plain transactions.
func (s *keypairSigner) SignTransaction(ctx context.Context, xdr string, networkPassphrase string) (string, error) {
	parsed, err := txnbuild.TransactionFromXDR(xdr)
	if err != nil {
		return "", errors.NewStateError(errors.SIGNER_ERROR,
			"failed to parse transaction envelope", err)
	}

	tx, ok := parsed.Transaction()
	if !ok {
		return "", errors.NewStateError(errors.SIGNER_ERROR,
			"fee bump envelopes cannot be signed here", nil)
	}

	signedTx, err := tx.Sign(networkPassphrase, s.kp)
	if err != nil {
		return "", errors.NewStateError(errors.SIGNER_ERROR,
			"failed to sign transaction", err)
	}

	return signedTx.Base64()
}
