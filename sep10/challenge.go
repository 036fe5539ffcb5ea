// Package sep10 implements the client side of SEP-10 Stellar Web
// Authentication: challenge validation, the challenge/sign/submit exchange,
// and bearer-token expiry checks.
package sep10

import (
	"fmt"
	"time"

	"github.com/stellar/go/txnbuild"

	"github.com/stellar-ramp/sdk-go/errors"
)

// ChallengeParams are the expected properties of a server-issued challenge.
type ChallengeParams struct {
	// ServerSigningKey is the anchor's SIGNING_KEY (G...). The challenge
	// transaction's source account must equal it.
	ServerSigningKey string

	// NetworkPassphrase identifies the Stellar network the challenge is for.
	NetworkPassphrase string

	// HomeDomain is the anchor's domain; the first operation's key must be
	// exactly "<home_domain> auth".
	HomeDomain string

	// Account is the end user's account the challenge must be bound to.
	Account string
}

// ValidateChallenge verifies a received challenge transaction against the
// protocol rules. It returns nil when the challenge is valid; every violated
// rule is a hard failure with a validation error. Parse failures are reported
// as invalid, never raised as panics.
//
// The checks run in order: transaction source equals the server signing key,
// sequence number is zero, the first operation is a manage_data op named
// "<home_domain> auth" whose effective source is the user's account, and the
// expiry time bound (when present) has not passed.
func ValidateChallenge(challengeXDR string, params ChallengeParams) error {
	parsed, err := txnbuild.TransactionFromXDR(challengeXDR)
	if err != nil {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"failed to parse challenge transaction", err)
	}

	tx, ok := parsed.Transaction()
	if !ok {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"challenge transaction must not be a fee bump", nil)
	}

	if tx.SourceAccount().AccountID != params.ServerSigningKey {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"challenge source account must be the server signing key", nil)
	}

	if seq := tx.SourceAccount().Sequence; seq != 0 {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			fmt.Sprintf("challenge sequence number must be 0, got %d", seq), nil)
	}

	operations := tx.Operations()
	if len(operations) == 0 {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"challenge transaction has no operations", nil)
	}

	firstOp, ok := operations[0].(*txnbuild.ManageData)
	if !ok {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"first operation must be manage_data", nil)
	}

	if firstOp.Name != params.HomeDomain+" auth" {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			fmt.Sprintf("first operation key must be %q, got %q",
				params.HomeDomain+" auth", firstOp.Name), nil)
	}

	// The operation's effective source falls back to the transaction source.
	opSource := firstOp.SourceAccount
	if opSource == "" {
		opSource = tx.SourceAccount().AccountID
	}
	if opSource != params.Account {
		return errors.NewValidationError(errors.CHALLENGE_INVALID,
			"first operation source account must be the authenticating account", nil)
	}

	if maxTime := tx.Timebounds().MaxTime; maxTime != 0 {
		if time.Unix(maxTime, 0).Before(time.Now()) {
			return errors.NewValidationError(errors.CHALLENGE_EXPIRED,
				"challenge transaction has expired", nil)
		}
	}

	return nil
}
