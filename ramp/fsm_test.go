package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-ramp/sdk-go/errors"
)

func TestValidateTransitionLegalPaths(t *testing.T) {
	legal := [][2]Phase{
		{PhaseIdle, PhaseQuoteRequested},
		{PhaseQuoteRequested, PhaseQuoted},
		{PhaseQuoted, PhaseCreated},
		{PhaseQuoted, PhaseQuoteRequested}, // re-quote after expiry
		{PhaseCreated, PhaseAwaitingSignable},
		{PhaseCreated, PhaseSigning},
		{PhaseCreated, PhasePolling},
		{PhaseAwaitingSignable, PhaseSigning},
		{PhaseSigning, PhaseSubmitted},
		{PhaseSubmitted, PhasePolling},
		{PhasePolling, PhaseDone},
	}
	for _, tr := range legal {
		assert.NoError(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestValidateTransitionIllegalPaths(t *testing.T) {
	illegal := [][2]Phase{
		{PhaseIdle, PhaseCreated},
		{PhaseQuoted, PhasePolling},
		{PhaseCreated, PhaseSubmitted},
		{PhaseAwaitingSignable, PhasePolling},
		{PhaseSigning, PhasePolling},
		{PhasePolling, PhaseSigning},
		{PhaseDone, PhasePolling},
		{PhaseDone, PhaseIdle},
	}
	for _, tr := range illegal {
		err := ValidateTransition(tr[0], tr[1])
		require.Error(t, err, "%s -> %s", tr[0], tr[1])

		var re *errors.RampError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, errors.TRANSITION_INVALID, re.Code)
	}
}

func TestValidateTransitionUnknownPhase(t *testing.T) {
	err := ValidateTransition(Phase("bogus"), PhaseDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source phase")
}
