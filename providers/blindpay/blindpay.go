// Package blindpay adapts the BlindPay API (USD/BRL/MXN <-> Stellar assets)
// to the canonical provider contract. BlindPay keys quotes to a composite
// "receiverId:bankAccountId" reference, requires both the payout bank account
// and the blockchain wallet to be registered up front, hosts KYC in an
// embedded iframe, and quotes its exchange rate as source units per
// destination unit, which is inverted during normalization.
package blindpay

import (
	"context"
	"strings"
	"time"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/core/net"
	"github.com/stellar-ramp/sdk-go/errors"
	"github.com/stellar-ramp/sdk-go/quote"
)

const providerName = "blindpay"

// statusTable maps BlindPay tracking statuses to the canonical vocabulary.
// BlindPay reports a refund as the terminal outcome of a cancelled payout,
// so REFUNDED maps to cancelled rather than refunded.
var statusTable = stellarramp.StatusTable{
	"CREATED":    stellarramp.StatusPending,
	"PENDING":    stellarramp.StatusPending,
	"ON_HOLD":    stellarramp.StatusProcessing,
	"PROCESSING": stellarramp.StatusProcessing,
	"COMPLETED":  stellarramp.StatusCompleted,
	"FAILED":     stellarramp.StatusFailed,
	"EXPIRED":    stellarramp.StatusExpired,
	"CANCELED":   stellarramp.StatusCancelled,
	"REFUNDED":   stellarramp.StatusCancelled,
}

var kycStatusMap = map[string]stellarramp.KycStatus{
	"not_started":     stellarramp.KycNotStarted,
	"verifying":       stellarramp.KycPending,
	"approved":        stellarramp.KycApproved,
	"rejected":        stellarramp.KycRejected,
	"update_required": stellarramp.KycUpdateRequired,
}

// Adapter is the BlindPay provider adapter. All routes are scoped to one
// instance; the sandbox and production instances differ only by id and key.
type Adapter struct {
	apiKey     string
	instanceID string
	baseURL    string
	http       *net.Client
}

var _ stellarramp.ProviderAdapter = (*Adapter)(nil)

// New creates a BlindPay adapter scoped to an instance.
func New(apiKey, instanceID, baseURL string) *Adapter {
	return &Adapter{
		apiKey:     apiKey,
		instanceID: instanceID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       net.NewClient(),
	}
}

// Name returns the provider registry name.
func (a *Adapter) Name() string {
	return providerName
}

// Capabilities returns the provider's descriptor.
func (a *Adapter) Capabilities() stellarramp.Capabilities {
	caps, _ := stellarramp.LookupCapabilities(providerName)
	return caps
}

// StatusTable returns the provider's status mapping.
func (a *Adapter) StatusTable() stellarramp.StatusTable {
	return statusTable
}

func (a *Adapter) route(path string) string {
	return a.baseURL + "/v1/instances/" + a.instanceID + path
}

// splitRef splits the engine's composite "receiverId:resourceId" quote
// reference. A bare reference yields an empty resource id.
func splitRef(ref string) (receiverID, resourceID string) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return ref, ""
}

type quoteRequest struct {
	ReceiverID     string `json:"receiver_id"`
	BankAccountID  string `json:"bank_account_id,omitempty"`
	WalletID       string `json:"blockchain_wallet_id,omitempty"`
	Direction      string `json:"direction"`
	SourceCurrency string `json:"source_currency"`
	TargetCurrency string `json:"target_currency"`
	RequestAmount  string `json:"request_amount"`
	CoverFees      bool   `json:"cover_fees"`
}

type quoteResponse struct {
	ID              string `json:"id"`
	SourceAmount    string `json:"source_amount"`
	TargetAmount    string `json:"target_amount"`
	CommercialQuote string `json:"commercial_quotation"`
	FlatFee         string `json:"flat_fee"`
	PercentageFee   string `json:"percentage_fee"`
	ExpiresAt       int64  `json:"expires_at"`
	CreatedAt       string `json:"created_at"`
}

// CreateQuote requests a quote. The composite customer reference carries the
// receiver id plus the bank account id (off-ramps) or blockchain wallet id
// (on-ramps) the quote must be pinned to.
func (a *Adapter) CreateQuote(ctx context.Context, req stellarramp.QuoteRequest) (*stellarramp.Quote, error) {
	receiverID, resourceID := splitRef(req.CustomerRef)

	body := quoteRequest{
		ReceiverID:     receiverID,
		Direction:      string(req.Kind),
		SourceCurrency: req.FromCurrency,
		TargetCurrency: req.ToCurrency,
		RequestAmount:  req.FromAmount,
	}
	if req.Kind == stellarramp.KindOffRamp {
		body.BankAccountID = req.FiatAccountID
		if body.BankAccountID == "" {
			body.BankAccountID = resourceID
		}
	} else {
		body.WalletID = req.WalletID
		if body.WalletID == "" {
			body.WalletID = resourceID
		}
	}

	var resp quoteResponse
	if err := a.http.PostJSON(ctx, a.route("/quotes"), a.apiKey, body, &resp); err != nil {
		return nil, err
	}

	createdAt, _ := time.Parse(time.RFC3339, resp.CreatedAt)

	return quote.Normalize(quote.ProviderQuote{
		ID:           resp.ID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   resp.SourceAmount,
		ToAmount:     resp.TargetAmount,
		Rate:         resp.CommercialQuote,
		Fees: []quote.FeeItem{
			{Type: "flat", Amount: resp.FlatFee},
			{Type: "percentage", Amount: resp.PercentageFee},
		},
		ExpiresAt: time.UnixMilli(resp.ExpiresAt),
		CreatedAt: createdAt,
	}, quote.Rules{Convention: quote.RateSourcePerDest})
}

type payinRequest struct {
	QuoteID       string `json:"quote_id"`
	PaymentMethod string `json:"payment_method"`
}

type payinResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	MemoCode        string `json:"memo_code"`
	DepositAccount  string `json:"deposit_account"`
	DepositCurrency string `json:"deposit_currency"`
	DepositAmount   string `json:"deposit_amount"`
	TrackingPageURL string `json:"tracking_page_url"`
}

// CreateOnRamp creates a payin. The response carries the deposit account and
// memo code the user must reference on the fiat transfer.
func (a *Adapter) CreateOnRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	body := payinRequest{
		QuoteID:       req.QuoteID,
		PaymentMethod: "transfer",
	}

	var resp payinResponse
	if err := a.http.PostJSON(ctx, a.route("/payins"), a.apiKey, body, &resp); err != nil {
		return nil, err
	}

	tx := &stellarramp.RampTransaction{
		ID:             resp.ID,
		Kind:           stellarramp.KindOnRamp,
		CustomerID:     req.CustomerID,
		QuoteID:        req.QuoteID,
		ProviderStatus: resp.Status,
		StellarAddress: req.StellarAddress,
		StatusPage:     resp.TrackingPageURL,
	}
	if resp.DepositAccount != "" {
		tx.PaymentInstructions = &stellarramp.PaymentInstructions{
			Method:    "transfer",
			Reference: resp.DepositAccount,
			Amount:    resp.DepositAmount,
			Currency:  resp.DepositCurrency,
			Memo:      resp.MemoCode,
		}
	}
	return tx, nil
}

type payoutRequest struct {
	QuoteID       string `json:"quote_id"`
	SenderAddress string `json:"sender_wallet_address"`
}

type payoutResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	UnsignedXdr     string `json:"unsigned_transaction"`
	TrackingPageURL string `json:"tracking_page_url"`
}

// CreateOffRamp creates a payout. The signable payload is returned inline;
// the caller signs it and submits it to the Stellar network directly.
func (a *Adapter) CreateOffRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	body := payoutRequest{
		QuoteID:       req.QuoteID,
		SenderAddress: req.StellarAddress,
	}

	var resp payoutResponse
	if err := a.http.PostJSON(ctx, a.route("/payouts"), a.apiKey, body, &resp); err != nil {
		return nil, err
	}

	return &stellarramp.RampTransaction{
		ID:                  resp.ID,
		Kind:                stellarramp.KindOffRamp,
		CustomerID:          req.CustomerID,
		QuoteID:             req.QuoteID,
		ProviderStatus:      resp.Status,
		StellarAddress:      req.StellarAddress,
		FiatAccountID:       req.FiatAccountID,
		SignableTransaction: resp.UnsignedXdr,
		StatusPage:          resp.TrackingPageURL,
	}, nil
}

type trackingResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	QuoteID         string `json:"quote_id"`
	SourceAmount    string `json:"source_amount"`
	SourceCurrency  string `json:"source_currency"`
	TargetAmount    string `json:"target_amount"`
	TargetCurrency  string `json:"target_currency"`
	TransactionHash string `json:"transaction_hash"`
	TrackingPageURL string `json:"tracking_page_url"`
}

// GetOnRampTransaction fetches one payin.
func (a *Adapter) GetOnRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getTracking(ctx, stellarramp.KindOnRamp, "/payins/"+id)
}

// GetOffRampTransaction fetches one payout.
func (a *Adapter) GetOffRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getTracking(ctx, stellarramp.KindOffRamp, "/payouts/"+id)
}

func (a *Adapter) getTracking(ctx context.Context, kind stellarramp.RampKind, path string) (*stellarramp.RampTransaction, error) {
	var resp trackingResponse
	if err := a.http.GetJSON(ctx, a.route(path), a.apiKey, &resp); err != nil {
		return nil, err
	}

	return &stellarramp.RampTransaction{
		ID:             resp.ID,
		Kind:           kind,
		QuoteID:        resp.QuoteID,
		ProviderStatus: resp.Status,
		FromAmount:     resp.SourceAmount,
		FromCurrency:   resp.SourceCurrency,
		ToAmount:       resp.TargetAmount,
		ToCurrency:     resp.TargetCurrency,
		StellarTxHash:  resp.TransactionHash,
		StatusPage:     resp.TrackingPageURL,
	}, nil
}

type bankAccountRequest struct {
	ReceiverID    string `json:"receiver_id"`
	Currency      string `json:"currency"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"beneficiary_name"`
}

type bankAccountResponse struct {
	ID string `json:"id"`
}

// RegisterFiatAccount registers a payout bank account under the receiver.
// Quotes for off-ramps cannot be created without one.
func (a *Adapter) RegisterFiatAccount(ctx context.Context, req stellarramp.FiatAccountRequest) (*stellarramp.FiatAccount, error) {
	body := bankAccountRequest{
		ReceiverID:    req.CustomerID,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	}

	var resp bankAccountResponse
	path := "/receivers/" + req.CustomerID + "/bank-accounts"
	if err := a.http.PostJSON(ctx, a.route(path), a.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return &stellarramp.FiatAccount{
		ID:            resp.ID,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	}, nil
}

type walletRequest struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

type walletResponse struct {
	ID string `json:"id"`
}

// RegisterBlockchainWallet registers a Stellar address under the receiver and
// returns the wallet id quotes must reference.
func (a *Adapter) RegisterBlockchainWallet(ctx context.Context, customerID, stellarAddress string) (string, error) {
	body := walletRequest{
		Network: "stellar",
		Address: stellarAddress,
	}

	var resp walletResponse
	path := "/receivers/" + customerID + "/blockchain-wallets"
	if err := a.http.PostJSON(ctx, a.route(path), a.apiKey, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SubmitPayout is not part of the BlindPay flow; signed payloads go directly
// to the Stellar network.
func (a *Adapter) SubmitPayout(ctx context.Context, sub stellarramp.PayoutSubmission) error {
	return errors.NewCapabilityError(providerName, "anchor payout submission")
}

type receiverResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	KycStatus string `json:"kyc_status"`
}

// GetKycStatus checks the receiver's KYC verification state.
func (a *Adapter) GetKycStatus(ctx context.Context, customerID string) (stellarramp.KycStatus, error) {
	var resp receiverResponse
	if err := a.http.GetJSON(ctx, a.route("/receivers/"+customerID), a.apiKey, &resp); err != nil {
		return "", err
	}

	status, ok := kycStatusMap[resp.KycStatus]
	if !ok {
		return "", errors.NewValidationError(errors.STATUS_UNMAPPED,
			"unknown KYC status "+resp.KycStatus, nil)
	}
	return status, nil
}
