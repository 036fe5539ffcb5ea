// Package network submits signed transaction envelopes to the Stellar network
// through Horizon. It serves off-ramps whose provider hands the signable
// payload to the client and expects the client to broadcast it.
package network

import (
	"context"

	"github.com/stellar/go/clients/horizonclient"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/errors"
)

// HorizonSubmitter implements stellarramp.NetworkSubmitter against a Horizon
// server.
type HorizonSubmitter struct {
	client *horizonclient.Client
}

var _ stellarramp.NetworkSubmitter = (*HorizonSubmitter)(nil)

// NewHorizonSubmitter creates a submitter backed by the given Horizon URL.
func NewHorizonSubmitter(horizonURL string) *HorizonSubmitter {
	return &HorizonSubmitter{
		client: &horizonclient.Client{HorizonURL: horizonURL},
	}
}

// SubmitTransaction broadcasts a signed envelope (base64 XDR) and returns the
// resulting transaction hash.
func (s *HorizonSubmitter) SubmitTransaction(ctx context.Context, signedXDR string) (string, error) {
	resp, err := s.client.SubmitTransactionXDR(signedXDR)
	if err != nil {
		return "", errors.NewStateError(errors.SUBMIT_FAILED,
			"horizon rejected the transaction", err)
	}
	return resp.Hash, nil
}
