package stellarramp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCapabilitiesKnownProviders(t *testing.T) {
	alfred, ok := LookupCapabilities("alfredpay")
	require.True(t, ok)
	assert.True(t, alfred.RequiresTOS)
	assert.True(t, alfred.RequiresAnchorPayoutSubmission)

	blind, ok := LookupCapabilities("blindpay")
	require.True(t, ok)
	assert.True(t, blind.CompositeQuoteCustomerID)
	assert.True(t, blind.RequiresBlockchainWalletRegistration)
	assert.False(t, blind.RequiresAnchorPayoutSubmission)

	ether, ok := LookupCapabilities("etherfuse")
	require.True(t, ok)
	assert.True(t, ether.RequiresBankBeforeQuote)
	assert.True(t, ether.RequiresOffRampSigning)

	_, ok = LookupCapabilities("unknown")
	assert.False(t, ok)
}

func TestRegisterCapabilitiesIsWriteOnce(t *testing.T) {
	caps := Capabilities{KYCFlow: KYCFlowIframe, RequiresTOS: true}
	require.True(t, RegisterCapabilities("customprovider", caps))

	// Re-registration is rejected; the original descriptor stays intact.
	assert.False(t, RegisterCapabilities("customprovider", Capabilities{}))
	got, ok := LookupCapabilities("customprovider")
	require.True(t, ok)
	assert.Equal(t, caps, got)

	assert.False(t, RegisterCapabilities("etherfuse", Capabilities{}))
}

func TestTransactionStatusTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		StatusCompleted, StatusFailed, StatusExpired, StatusCancelled, StatusRefunded,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, TransactionStatus("").Terminal())
}

func TestQuoteExpired(t *testing.T) {
	now := time.Now()
	q := &Quote{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, q.Expired(now))
	// The boundary instant counts as expired.
	assert.True(t, q.Expired(now.Add(time.Minute)))
	assert.True(t, q.Expired(now.Add(2*time.Minute)))
}
