// Package ramp drives on-ramp and off-ramp transactions from quote
// acquisition through creation, optional client-side signing, and status
// polling to a terminal state. The lifecycle is shared across providers;
// every behavioral difference is a capability-descriptor lookup, never a
// provider-name comparison.
package ramp

import (
	"fmt"

	"github.com/stellar-ramp/sdk-go/errors"
)

// Phase is the engine-side lifecycle state of a ramp transaction. It is
// distinct from the canonical TransactionStatus, which reflects the
// provider's view; Phase tracks what the engine is doing locally.
//
// The pre-creation phases (PhaseIdle, PhaseQuoteRequested, PhaseQuoted) model
// the quoting steps for callers that track lifecycle state across quoting and
// creation themselves. A Process begins at PhaseCreated: the engine quotes
// before any Process exists.
type Phase string

const (
	// PhaseIdle is the initial state before a quote is requested.
	PhaseIdle Phase = "idle"

	// PhaseQuoteRequested means prerequisite resources are resolved and a
	// quote request is in flight.
	PhaseQuoteRequested Phase = "quote_requested"

	// PhaseQuoted means a quote is held and has not expired.
	PhaseQuoted Phase = "quoted"

	// PhaseCreated means the provider accepted the transaction.
	PhaseCreated Phase = "created"

	// PhaseAwaitingSignable means the provider prepares the signable payload
	// out-of-band and the engine is polling for it to appear.
	PhaseAwaitingSignable Phase = "awaiting_signable"

	// PhaseSigning means the payload has been handed to the external signer.
	PhaseSigning Phase = "signing"

	// PhaseSubmitted means the signed payload was delivered, either back to
	// the anchor or directly to the Stellar network.
	PhaseSubmitted Phase = "submitted"

	// PhasePolling means the engine is polling the provider for a terminal
	// canonical status.
	PhasePolling Phase = "polling"

	// PhaseDone means a terminal canonical status was reached.
	PhaseDone Phase = "done"
)

// legalTransitions defines the allowed lifecycle transitions. Each key is a
// "from" phase, the value the set of valid "to" phases.
//
// Quoted may return to QuoteRequested: an expired quote is re-quoted rather
// than silently reused. PhaseDone has no outgoing transitions.
var legalTransitions = map[Phase]map[Phase]bool{
	PhaseIdle: {
		PhaseQuoteRequested: true,
	},
	PhaseQuoteRequested: {
		PhaseQuoted: true,
	},
	PhaseQuoted: {
		PhaseQuoteRequested: true,
		PhaseCreated:        true,
	},
	PhaseCreated: {
		PhaseAwaitingSignable: true,
		PhaseSigning:          true,
		PhasePolling:          true,
	},
	PhaseAwaitingSignable: {
		PhaseSigning: true,
	},
	PhaseSigning: {
		PhaseSubmitted: true,
	},
	PhaseSubmitted: {
		PhasePolling: true,
	},
	PhasePolling: {
		PhaseDone: true,
	},
	PhaseDone: {},
}

// ValidateTransition checks whether moving from one phase to another is
// legal. Returns nil when valid, or a TRANSITION_INVALID error otherwise.
func ValidateTransition(from, to Phase) error {
	validToStates, exists := legalTransitions[from]
	if !exists {
		return errors.NewStateError(
			errors.TRANSITION_INVALID,
			fmt.Sprintf("unknown source phase: %s", from),
			nil,
		)
	}

	if !validToStates[to] {
		return errors.NewStateError(
			errors.TRANSITION_INVALID,
			fmt.Sprintf("illegal transition from %s to %s", from, to),
			nil,
		)
	}

	return nil
}
