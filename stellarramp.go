// Package stellarramp provides a Go SDK for converting between fiat currency
// and Stellar-network assets through third-party anchor payment providers.
// It handles SEP-10 web authentication, quote normalization, and a
// capability-driven ramp transaction lifecycle engine while delegating key
// signing and provider business logic to the developer.
package stellarramp

import (
	"context"
	"time"
)

// Signer is the minimal contract for proving identity and authorizing actions.
// The SDK does not manage keys, wallet connections, or signing infrastructure.
// The caller provides a Signer; the SDK uses it.
type Signer interface {
	// PublicKey returns the Stellar address (G...) identifying this signer.
	PublicKey() string

	// SignTransaction signs a Stellar transaction envelope (base64 XDR).
	// The networkPassphrase is required for computing the correct transaction hash.
	// Returns the signed envelope as base64 XDR.
	SignTransaction(ctx context.Context, xdr string, networkPassphrase string) (string, error)
}

// NetworkSubmitter submits a signed transaction envelope directly to the
// Stellar network. It is used for off-ramps whose provider does not require
// anchor-side payout submission.
type NetworkSubmitter interface {
	// SubmitTransaction submits the signed envelope (base64 XDR) and returns
	// the resulting transaction hash.
	SubmitTransaction(ctx context.Context, signedXDR string) (string, error)
}

// RampKind distinguishes on-ramps (fiat to asset) from off-ramps (asset to fiat).
type RampKind string

const (
	// KindOnRamp is a fiat to digital asset conversion.
	KindOnRamp RampKind = "onramp"

	// KindOffRamp is a digital asset to fiat conversion.
	KindOffRamp RampKind = "offramp"
)

// TransactionStatus is the canonical status vocabulary for ramp transactions.
// Providers each speak their own status dialect; adapters expose a StatusTable
// that the engine consults to map provider statuses onto these values.
type TransactionStatus string

const (
	// StatusPending means the transaction is created and waiting on an external
	// action (fiat payment, KYC, signable preparation).
	StatusPending TransactionStatus = "pending"

	// StatusProcessing means the provider is actively processing the transaction.
	StatusProcessing TransactionStatus = "processing"

	// StatusCompleted is a terminal state indicating successful completion.
	StatusCompleted TransactionStatus = "completed"

	// StatusFailed is a terminal state indicating an unrecoverable error.
	StatusFailed TransactionStatus = "failed"

	// StatusExpired is a terminal state indicating the transaction timed out
	// before completion.
	StatusExpired TransactionStatus = "expired"

	// StatusCancelled is a terminal state indicating the transaction was
	// cancelled by the user or the provider.
	StatusCancelled TransactionStatus = "cancelled"

	// StatusRefunded is a terminal state indicating funds were returned to
	// the sender.
	StatusRefunded TransactionStatus = "refunded"
)

// Terminal reports whether the status ends the transaction lifecycle.
// Polling never resumes past a terminal state.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// StatusTable maps a provider's native status strings to canonical statuses.
// Every adapter supplies its own table; there is no universal vocabulary.
type StatusTable map[string]TransactionStatus

// Map resolves a provider-native status. The second return is false when the
// provider emitted a value the table does not cover; callers must handle that
// explicitly rather than defaulting silently.
func (t StatusTable) Map(providerStatus string) (TransactionStatus, bool) {
	status, ok := t[providerStatus]
	return status, ok
}

// KycStatus is the canonical KYC verification state for a customer.
// It moves monotonically toward approved or rejected but may cycle back
// to update_required.
type KycStatus string

const (
	KycNotStarted     KycStatus = "not_started"
	KycPending        KycStatus = "pending"
	KycApproved       KycStatus = "approved"
	KycRejected       KycStatus = "rejected"
	KycUpdateRequired KycStatus = "update_required"
)

// Quote is the canonical quote shape. Every provider response is normalized
// into this form with a single total fee and an expiry instant.
type Quote struct {
	ID           string
	FromCurrency string
	ToCurrency   string
	FromAmount   string // Decimal string
	ToAmount     string // Decimal string
	ExchangeRate string // Destination units per 1 source unit
	Fee          string // Sum of all provider fee line items
	ExpiresAt    time.Time
	CreatedAt    time.Time

	// FiatAccountID and WalletID record prerequisite resources resolved while
	// quoting, so callers can carry them into transaction creation without
	// re-deriving or re-registering them.
	FiatAccountID string
	WalletID      string
}

// Expired reports whether the quote can no longer be used. Expiry is always
// honored client-side: an expired quote must fail fast, never be submitted.
func (q *Quote) Expired(now time.Time) bool {
	return !q.ExpiresAt.After(now)
}

// Customer is a provider-side customer record, created once per provider
// per wallet address.
type Customer struct {
	ID                 string
	Email              string
	KycStatus          KycStatus
	BankAccountID      string // Optional
	BlockchainWalletID string // Optional
}

// PaymentInstructions tell the user how to complete the fiat leg of an
// on-ramp (for example a CLABE number for an SPEI transfer).
type PaymentInstructions struct {
	Method    string // e.g. "spei", "wire", "pix"
	Reference string // Account identifier the user must pay into (CLABE, etc.)
	Amount    string
	Currency  string
	Memo      string
}

// FiatAccount is a registered fiat payout destination for off-ramps.
type FiatAccount struct {
	ID            string
	Currency      string
	BankName      string
	AccountNumber string // CLABE, IBAN, or local account number
	HolderName    string
}

// RampTransaction is the canonical on-ramp or off-ramp transaction record.
//
// SignableTransaction is present only during a well-defined window: for most
// providers immediately after creation, for deferred-signing providers it
// appears asynchronously post-creation. It is irrelevant once the transaction
// reaches a terminal status.
type RampTransaction struct {
	ID             string
	Kind           RampKind
	CustomerID     string
	QuoteID        string
	Status         TransactionStatus
	ProviderStatus string // Raw provider status string, mapped via StatusTable
	FromAmount     string
	FromCurrency   string
	ToAmount       string
	ToCurrency     string
	StellarAddress string

	SignableTransaction string               // base64 XDR, empty when absent
	PaymentInstructions *PaymentInstructions // On-ramp fiat rail, optional
	FiatAccountID       string               // Off-ramp payout destination, optional
	StellarTxHash       string
	StatusPage          string // Provider-hosted status/KYC page, optional
}

// QuoteRequest is the canonical quote request handed to a provider adapter.
// CustomerRef carries the bare customer id, or "customerId:resourceId" for
// providers with composite quote customer ids.
type QuoteRequest struct {
	Kind           RampKind
	CustomerRef    string
	FromCurrency   string
	ToCurrency     string
	FromAmount     string
	StellarAddress string
	FiatAccountID  string // Set when the provider requires a bank before quoting
	WalletID       string // Set when the provider requires wallet registration
}

// CreateTransactionRequest carries everything an adapter needs to create a
// ramp transaction. Creation always carries the quote id.
type CreateTransactionRequest struct {
	QuoteID        string
	CustomerID     string
	StellarAddress string
	FiatAccountID  string
}

// FiatAccountRequest registers a fiat payout destination with a provider.
type FiatAccountRequest struct {
	CustomerID    string
	Currency      string
	BankName      string
	AccountNumber string
	HolderName    string
}

// PayoutSubmission returns a signed payload to the anchor, keyed by quote id
// and source address. This is a different trust model from submitting to the
// network directly and is dispatched on the provider's capability descriptor.
type PayoutSubmission struct {
	QuoteID           string
	SourceAddress     string
	SignedTransaction string // base64 XDR
}

// ProviderAdapter translates the ramp engine's canonical calls into one
// provider's REST shape. The engine never branches on provider names; all
// behavioral differences are expressed through Capabilities and StatusTable.
//
// Single-resource lookups (GetOnRampTransaction, GetOffRampTransaction) must
// propagate transport errors as-is; the engine converts not-found errors to
// nil results.
type ProviderAdapter interface {
	// Name returns the provider's registry name (e.g. "etherfuse").
	Name() string

	// Capabilities returns the provider's immutable capability descriptor.
	Capabilities() Capabilities

	// StatusTable returns the provider's status mapping table.
	StatusTable() StatusTable

	CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error)

	CreateOnRamp(ctx context.Context, req CreateTransactionRequest) (*RampTransaction, error)
	CreateOffRamp(ctx context.Context, req CreateTransactionRequest) (*RampTransaction, error)

	GetOnRampTransaction(ctx context.Context, id string) (*RampTransaction, error)
	GetOffRampTransaction(ctx context.Context, id string) (*RampTransaction, error)

	RegisterFiatAccount(ctx context.Context, req FiatAccountRequest) (*FiatAccount, error)

	// RegisterBlockchainWallet registers a Stellar address with the provider
	// and returns the provider's wallet identifier.
	RegisterBlockchainWallet(ctx context.Context, customerID, stellarAddress string) (string, error)

	// SubmitPayout sends a signed off-ramp payload back to the anchor. Only
	// called for providers with RequiresAnchorPayoutSubmission set.
	SubmitPayout(ctx context.Context, sub PayoutSubmission) error

	GetKycStatus(ctx context.Context, customerID string) (KycStatus, error)
}

// CustomerFinder is an optional adapter extension for providers that support
// customer lookup by email. Invoking email lookup through the engine against
// an adapter that does not implement it yields a capability error.
type CustomerFinder interface {
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
}
