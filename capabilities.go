package stellarramp

import "sync"

// KYCFlow identifies how a provider collects KYC from the end user.
type KYCFlow string

const (
	// KYCFlowIframe embeds the provider's KYC form in the caller's UI.
	KYCFlowIframe KYCFlow = "iframe"

	// KYCFlowRedirect sends the user to a provider-hosted KYC page.
	KYCFlowRedirect KYCFlow = "redirect"

	// KYCFlowForm collects KYC fields in the caller's own form and submits
	// them to the provider.
	KYCFlowForm KYCFlow = "form"
)

// Capabilities is the immutable per-provider descriptor consulted at every
// branch point of the ramp lifecycle. It replaces inline provider-name
// comparisons: every "if this provider then do X" decision is a flag lookup.
// Descriptors are created at provider-registration time and never mutated.
type Capabilities struct {
	KYCFlow KYCFlow

	// RequiresTOS gates transaction creation on terms-of-service acceptance.
	RequiresTOS bool

	// RequiresBankBeforeQuote means off-ramp quoting needs a registered fiat
	// account whose id is folded into the quote request.
	RequiresBankBeforeQuote bool

	// RequiresBlockchainWalletRegistration means on-ramp quoting needs the
	// Stellar address registered with the provider first.
	RequiresBlockchainWalletRegistration bool

	// RequiresAnchorPayoutSubmission routes signed off-ramp payloads back to
	// the anchor instead of the Stellar network.
	RequiresAnchorPayoutSubmission bool

	// RequiresOffRampSigning means off-ramps produce a signable transaction
	// the end user must sign before funds move.
	RequiresOffRampSigning bool

	// CompositeQuoteCustomerID means quote requests carry a colon-joined
	// "customerId:resourceId" string rather than a bare customer id.
	CompositeQuoteCustomerID bool

	// Sandbox marks a non-production provider environment.
	Sandbox bool
}

var (
	capabilityMu sync.RWMutex

	// capabilityTable is the static registry of known providers. Engine
	// branch points read flags from here (via the adapter), never provider
	// names.
	capabilityTable = map[string]Capabilities{
		"alfredpay": {
			KYCFlow:                        KYCFlowRedirect,
			RequiresTOS:                    true,
			RequiresOffRampSigning:         true,
			RequiresAnchorPayoutSubmission: true,
		},
		"blindpay": {
			KYCFlow:                              KYCFlowIframe,
			RequiresBankBeforeQuote:              true,
			RequiresBlockchainWalletRegistration: true,
			CompositeQuoteCustomerID:             true,
			Sandbox:                              true,
		},
		"etherfuse": {
			KYCFlow:                 KYCFlowForm,
			RequiresBankBeforeQuote: true,
			RequiresOffRampSigning:  true,
		},
	}
)

// RegisterCapabilities adds a descriptor for a custom provider. Registration
// is write-once; re-registering an existing name is rejected so descriptors
// stay immutable.
func RegisterCapabilities(provider string, caps Capabilities) bool {
	capabilityMu.Lock()
	defer capabilityMu.Unlock()

	if _, exists := capabilityTable[provider]; exists {
		return false
	}
	capabilityTable[provider] = caps
	return true
}

// LookupCapabilities returns the registered descriptor for a provider.
func LookupCapabilities(provider string) (Capabilities, bool) {
	capabilityMu.RLock()
	defer capabilityMu.RUnlock()

	caps, ok := capabilityTable[provider]
	return caps, ok
}
