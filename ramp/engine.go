package ramp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/errors"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollCeiling  = 10 * time.Minute
)

// Engine drives ramp transactions through a single provider adapter. It is
// provider-agnostic: every branch point consults the adapter's capability
// descriptor and status table rather than its name.
type Engine struct {
	adapter           stellarramp.ProviderAdapter
	caps              stellarramp.Capabilities
	statusTable       stellarramp.StatusTable
	signer            stellarramp.Signer
	submitter         stellarramp.NetworkSubmitter
	networkPassphrase string
	poller            *Poller
	logger            logrus.FieldLogger
	pollInterval      time.Duration
	pollCeiling       time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithSigner sets the external signer used for signable payloads.
func WithSigner(signer stellarramp.Signer) Option {
	return func(e *Engine) {
		e.signer = signer
	}
}

// WithSubmitter sets the network submitter used for off-ramps whose provider
// does not take anchor-side payout submission.
func WithSubmitter(submitter stellarramp.NetworkSubmitter) Option {
	return func(e *Engine) {
		e.submitter = submitter
	}
}

// WithNetworkPassphrase sets the Stellar network passphrase handed to the
// signer alongside signable payloads.
func WithNetworkPassphrase(passphrase string) Option {
	return func(e *Engine) {
		e.networkPassphrase = passphrase
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPollInterval sets the fixed polling interval (default: 5s).
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.pollInterval = d
	}
}

// WithPollCeiling sets the default polling ceiling applied when the caller's
// context carries no deadline (default: 10m). Hitting the ceiling is a hard
// failure, not a retry.
func WithPollCeiling(d time.Duration) Option {
	return func(e *Engine) {
		e.pollCeiling = d
	}
}

// NewEngine creates an engine for one provider adapter. The adapter's
// capability descriptor and status table are captured once at construction.
func NewEngine(adapter stellarramp.ProviderAdapter, opts ...Option) *Engine {
	e := &Engine{
		adapter:      adapter,
		caps:         adapter.Capabilities(),
		statusTable:  adapter.StatusTable(),
		logger:       logrus.StandardLogger(),
		pollInterval: defaultPollInterval,
		pollCeiling:  defaultPollCeiling,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.poller = NewPoller(e.pollInterval, e.logger)
	return e
}

// Capabilities returns the provider's descriptor.
func (e *Engine) Capabilities() stellarramp.Capabilities {
	return e.caps
}

// QuoteInput is the caller-facing quote request. Prerequisite resources
// (fiat account, blockchain wallet) are resolved by the engine according to
// the provider's capabilities and folded into the provider request.
type QuoteInput struct {
	Kind           stellarramp.RampKind
	CustomerID     string
	FromCurrency   string
	ToCurrency     string
	FromAmount     string
	StellarAddress string

	// FiatAccountID is an already-registered payout destination. When empty
	// and the provider requires a bank before quoting, FiatAccount is
	// registered to obtain one.
	FiatAccountID string
	FiatAccount   *stellarramp.FiatAccountRequest

	// WalletID is an already-registered blockchain wallet identifier.
	WalletID string
}

// GetQuote resolves provider prerequisites and requests a quote.
//
// For off-ramps against providers requiring a bank before quoting, the fiat
// account is resolved or registered first and its id folded into the request.
// For on-ramps against providers requiring blockchain wallet registration,
// the Stellar address is registered first. Providers with composite quote
// customer ids receive "customerId:resourceId" instead of a bare customer id.
func (e *Engine) GetQuote(ctx context.Context, in QuoteInput) (*stellarramp.Quote, error) {
	if in.CustomerID == "" {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID, "customer id is required", nil)
	}
	if in.Kind != stellarramp.KindOnRamp && in.Kind != stellarramp.KindOffRamp {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID,
			fmt.Sprintf("unknown ramp kind %q", in.Kind), nil)
	}

	req := stellarramp.QuoteRequest{
		Kind:           in.Kind,
		FromCurrency:   in.FromCurrency,
		ToCurrency:     in.ToCurrency,
		FromAmount:     in.FromAmount,
		StellarAddress: in.StellarAddress,
	}

	var resourceID string

	if in.Kind == stellarramp.KindOffRamp && e.caps.RequiresBankBeforeQuote {
		fiatAccountID := in.FiatAccountID
		if fiatAccountID == "" && in.FiatAccount != nil {
			account, err := e.adapter.RegisterFiatAccount(ctx, *in.FiatAccount)
			if err != nil {
				return nil, err
			}
			fiatAccountID = account.ID
		}
		if fiatAccountID == "" {
			return nil, errors.NewValidationError(errors.CONFIG_INVALID,
				"provider requires a registered fiat account before quoting an off-ramp", nil)
		}
		req.FiatAccountID = fiatAccountID
		resourceID = fiatAccountID
	}

	if in.Kind == stellarramp.KindOnRamp && e.caps.RequiresBlockchainWalletRegistration {
		walletID := in.WalletID
		if walletID == "" {
			if in.StellarAddress == "" {
				return nil, errors.NewValidationError(errors.CONFIG_INVALID,
					"provider requires a registered blockchain wallet before quoting an on-ramp", nil)
			}
			registered, err := e.adapter.RegisterBlockchainWallet(ctx, in.CustomerID, in.StellarAddress)
			if err != nil {
				return nil, err
			}
			walletID = registered
		}
		req.WalletID = walletID
		resourceID = walletID
	}

	req.CustomerRef = in.CustomerID
	if e.caps.CompositeQuoteCustomerID && resourceID != "" {
		req.CustomerRef = in.CustomerID + ":" + resourceID
	}

	q, err := e.adapter.CreateQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	// Surface the resolved prerequisites so callers can reuse them at
	// creation time instead of re-registering.
	q.FiatAccountID = req.FiatAccountID
	q.WalletID = req.WalletID
	return q, nil
}

// TransactionInput carries a held quote into transaction creation.
type TransactionInput struct {
	Quote *stellarramp.Quote

	// QuoteInput, when set, lets the engine re-quote if Quote has expired.
	// When nil, an expired quote fails fast before any provider call.
	QuoteInput *QuoteInput

	CustomerID     string
	StellarAddress string

	// FiatAccountID is the off-ramp payout destination. When empty, the id
	// resolved during quoting (Quote.FiatAccountID) is used.
	FiatAccountID string

	// TOSAccepted records that the user accepted the provider's terms.
	// Required when the provider's descriptor gates on ToS.
	TOSAccepted bool
}

// CreateOnRamp creates a fiat-to-asset transaction and returns a Process for
// driving it to a terminal state.
func (e *Engine) CreateOnRamp(ctx context.Context, in TransactionInput) (*Process, error) {
	return e.createTransaction(ctx, stellarramp.KindOnRamp, in)
}

// CreateOffRamp creates an asset-to-fiat transaction and returns a Process
// for driving it to a terminal state.
func (e *Engine) CreateOffRamp(ctx context.Context, in TransactionInput) (*Process, error) {
	return e.createTransaction(ctx, stellarramp.KindOffRamp, in)
}

func (e *Engine) createTransaction(ctx context.Context, kind stellarramp.RampKind, in TransactionInput) (*Process, error) {
	if in.Quote == nil {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID, "a quote is required", nil)
	}
	if e.caps.RequiresTOS && !in.TOSAccepted {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID,
			"provider requires terms-of-service acceptance before creating a transaction", nil)
	}

	// Quote expiry is honored client-side: an expired quote is never
	// submitted. With a quote input on hand the engine re-quotes; without
	// one it fails fast.
	quote := in.Quote
	if quote.Expired(time.Now()) {
		if in.QuoteInput == nil {
			return nil, errors.NewValidationError(errors.QUOTE_EXPIRED,
				fmt.Sprintf("quote %s expired at %s; request a new quote",
					quote.ID, quote.ExpiresAt.Format(time.RFC3339)), nil)
		}
		fresh, err := e.GetQuote(ctx, *in.QuoteInput)
		if err != nil {
			return nil, err
		}
		e.logger.WithFields(logrus.Fields{
			"stale_quote": quote.ID,
			"fresh_quote": fresh.ID,
		}).Info("quote expired; re-quoted before creation")
		quote = fresh
	}

	fiatAccountID := in.FiatAccountID
	if fiatAccountID == "" {
		fiatAccountID = quote.FiatAccountID
	}

	req := stellarramp.CreateTransactionRequest{
		QuoteID:        quote.ID,
		CustomerID:     in.CustomerID,
		StellarAddress: in.StellarAddress,
		FiatAccountID:  fiatAccountID,
	}

	var tx *stellarramp.RampTransaction
	var err error
	if kind == stellarramp.KindOnRamp {
		tx, err = e.adapter.CreateOnRamp(ctx, req)
	} else {
		tx, err = e.adapter.CreateOffRamp(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	tx.Kind = kind
	e.canonicalize(tx, "")

	return newProcess(e, kind, tx), nil
}

// GetOnRampTransaction fetches one on-ramp transaction in canonical form.
// A provider 404 is returned as (nil, nil), never as an error; callers branch
// on nil for "not found" and on errors for everything else.
func (e *Engine) GetOnRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return e.getTransaction(ctx, stellarramp.KindOnRamp, id)
}

// GetOffRampTransaction fetches one off-ramp transaction in canonical form,
// with the same nil-for-404 contract as GetOnRampTransaction.
func (e *Engine) GetOffRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return e.getTransaction(ctx, stellarramp.KindOffRamp, id)
}

func (e *Engine) getTransaction(ctx context.Context, kind stellarramp.RampKind, id string) (*stellarramp.RampTransaction, error) {
	var tx *stellarramp.RampTransaction
	var err error
	if kind == stellarramp.KindOnRamp {
		tx, err = e.adapter.GetOnRampTransaction(ctx, id)
	} else {
		tx, err = e.adapter.GetOffRampTransaction(ctx, id)
	}
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	tx.Kind = kind
	e.canonicalize(tx, "")
	return tx, nil
}

// RegisterFiatAccount registers a fiat payout destination with the provider.
func (e *Engine) RegisterFiatAccount(ctx context.Context, req stellarramp.FiatAccountRequest) (*stellarramp.FiatAccount, error) {
	return e.adapter.RegisterFiatAccount(ctx, req)
}

// GetKycStatus returns the provider's KYC state for a customer.
func (e *Engine) GetKycStatus(ctx context.Context, customerID string) (stellarramp.KycStatus, error) {
	return e.adapter.GetKycStatus(ctx, customerID)
}

// FindCustomerByEmail looks a customer up by email on providers that support
// it. Providers without the capability yield a fixed "not supported" error.
func (e *Engine) FindCustomerByEmail(ctx context.Context, email string) (*stellarramp.Customer, error) {
	finder, ok := e.adapter.(stellarramp.CustomerFinder)
	if !ok {
		return nil, errors.NewCapabilityError(e.adapter.Name(), "customer lookup by email")
	}
	return finder.FindCustomerByEmail(ctx, email)
}

// StopPolling cancels any active polling loop for a transaction id.
func (e *Engine) StopPolling(txID string) {
	e.poller.Stop(txID)
}

// canonicalize maps the provider's raw status onto the canonical vocabulary
// using the provider's table. Unmapped values never silently default: they
// are logged and the previous canonical status is retained.
func (e *Engine) canonicalize(tx *stellarramp.RampTransaction, prev stellarramp.TransactionStatus) {
	fallback := prev
	if fallback == "" {
		if tx.Status != "" {
			fallback = tx.Status
		} else {
			fallback = stellarramp.StatusPending
		}
	}

	if tx.ProviderStatus == "" {
		if tx.Status == "" {
			tx.Status = fallback
		}
		return
	}

	status, ok := e.statusTable.Map(tx.ProviderStatus)
	if !ok {
		e.logger.WithFields(logrus.Fields{
			"provider":        e.adapter.Name(),
			"provider_status": tx.ProviderStatus,
			"transaction_id":  tx.ID,
		}).Warn("unmapped provider status; retaining previous canonical status")
		tx.Status = fallback
		return
	}
	tx.Status = status
}

// withCeiling applies the engine's polling ceiling when the caller's context
// has no deadline of its own.
func (e *Engine) withCeiling(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.pollCeiling)
}
