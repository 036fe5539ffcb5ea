// Package alfredpay adapts the Alfred Pay API (LATAM fiat <-> Stellar assets)
// to the canonical provider contract. Alfred gates transaction creation on
// terms-of-service acceptance, hosts KYC on a redirect URL, prepares off-ramp
// signable payloads asynchronously, and takes signed payloads back through its
// own payout endpoint rather than having the client submit to the network.
package alfredpay

import (
	"context"
	"net/url"
	"strings"
	"time"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/core/net"
	"github.com/stellar-ramp/sdk-go/errors"
	"github.com/stellar-ramp/sdk-go/quote"
)

const providerName = "alfredpay"

// statusTable maps Alfred transaction statuses to the canonical vocabulary.
var statusTable = stellarramp.StatusTable{
	"PENDING":          stellarramp.StatusPending,
	"AWAITING_PAYMENT": stellarramp.StatusPending,
	"IN_REVIEW":        stellarramp.StatusProcessing,
	"PROCESSING":       stellarramp.StatusProcessing,
	"SETTLING":         stellarramp.StatusProcessing,
	"COMPLETED":        stellarramp.StatusCompleted,
	"FAILED":           stellarramp.StatusFailed,
	"EXPIRED":          stellarramp.StatusExpired,
	"CANCELLED":        stellarramp.StatusCancelled,
	"REFUNDED":         stellarramp.StatusRefunded,
}

var kycStatusMap = map[string]stellarramp.KycStatus{
	"NOT_STARTED":     stellarramp.KycNotStarted,
	"IN_REVIEW":       stellarramp.KycPending,
	"APPROVED":        stellarramp.KycApproved,
	"REJECTED":        stellarramp.KycRejected,
	"UPDATE_REQUIRED": stellarramp.KycUpdateRequired,
}

// Adapter is the Alfred Pay provider adapter.
type Adapter struct {
	apiKey  string
	baseURL string
	http    *net.Client
}

var _ stellarramp.ProviderAdapter = (*Adapter)(nil)
var _ stellarramp.CustomerFinder = (*Adapter)(nil)

// New creates an Alfred Pay adapter. The API key is sent as a bearer token.
func New(apiKey, baseURL string) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    net.NewClient(),
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

type quoteRequest struct {
	CustomerID     string `json:"customerId"`
	Type           string `json:"type"`
	SourceCurrency string `json:"sourceCurrency"`
	TargetCurrency string `json:"targetCurrency"`
	SourceAmount   string `json:"sourceAmount"`
}

type feeLine struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type quoteResponse struct {
	QuoteID        string    `json:"quoteId"`
	SourceAmount   string    `json:"sourceAmount"`
	TargetAmount   string    `json:"targetAmount"`
	Rate           string    `json:"rate"`
	Fees           []feeLine `json:"fees"`
	ExpirationDate time.Time `json:"expirationDate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateQuote requests a quote. Alfred reports fees as separate line items
// (commission, processing, tax); they are summed during normalization.
func (a *Adapter) CreateQuote(ctx context.Context, req stellarramp.QuoteRequest) (*stellarramp.Quote, error) {
	body := quoteRequest{
		CustomerID:     req.CustomerRef,
		Type:           string(req.Kind),
		SourceCurrency: req.FromCurrency,
		TargetCurrency: req.ToCurrency,
		SourceAmount:   req.FromAmount,
	}

	var resp quoteResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/v1/quotes", a.apiKey, body, &resp); err != nil {
		return nil, err
	}

	fees := make([]quote.FeeItem, 0, len(resp.Fees))
	for _, f := range resp.Fees {
		fees = append(fees, quote.FeeItem{Type: f.Type, Amount: f.Amount})
	}

	return quote.Normalize(quote.ProviderQuote{
		ID:           resp.QuoteID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   resp.SourceAmount,
		ToAmount:     resp.TargetAmount,
		Rate:         resp.Rate,
		Fees:         fees,
		ExpiresAt:    resp.ExpirationDate,
		CreatedAt:    resp.CreatedAt,
	}, quote.Rules{Convention: quote.RateDestPerSource})
}

type transactionRequest struct {
	QuoteID       string `json:"quoteId"`
	CustomerID    string `json:"customerId"`
	WalletAddress string `json:"walletAddress"`
	BankAccountID string `json:"bankAccountId,omitempty"`
	TOSAccepted   bool   `json:"tosAccepted"`
}

type paymentDetails struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Memo      string `json:"memo"`
}

type transactionResponse struct {
	TransactionID  string          `json:"transactionId"`
	QuoteID        string          `json:"quoteId"`
	CustomerID     string          `json:"customerId"`
	Status         string          `json:"status"`
	SourceAmount   string          `json:"sourceAmount"`
	SourceCurrency string          `json:"sourceCurrency"`
	TargetAmount   string          `json:"targetAmount"`
	TargetCurrency string          `json:"targetCurrency"`
	WalletAddress  string          `json:"walletAddress"`
	UnsignedXdr    string          `json:"unsignedXdr"`
	Payment        *paymentDetails `json:"payment"`
	StatusPageURL  string          `json:"statusPageUrl"`
}

// CreateOnRamp creates a fiat-to-asset transaction. The response carries the
// fiat payment instructions the user must follow.
func (a *Adapter) CreateOnRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	return a.createTransaction(ctx, stellarramp.KindOnRamp, "/v1/transactions/onramp", req)
}

// CreateOffRamp creates an asset-to-fiat transaction. The signable payload is
// prepared asynchronously after creation.
func (a *Adapter) CreateOffRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	return a.createTransaction(ctx, stellarramp.KindOffRamp, "/v1/transactions/offramp", req)
}

func (a *Adapter) createTransaction(ctx context.Context, kind stellarramp.RampKind, path string, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	body := transactionRequest{
		QuoteID:       req.QuoteID,
		CustomerID:    req.CustomerID,
		WalletAddress: req.StellarAddress,
		BankAccountID: req.FiatAccountID,
		TOSAccepted:   true,
	}

	var resp transactionResponse
	if err := a.http.PostJSON(ctx, a.baseURL+path, a.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return a.toTransaction(kind, &resp), nil
}

// GetOnRampTransaction fetches one on-ramp transaction.
func (a *Adapter) GetOnRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getTransaction(ctx, stellarramp.KindOnRamp, id)
}

// GetOffRampTransaction fetches one off-ramp transaction.
func (a *Adapter) GetOffRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getTransaction(ctx, stellarramp.KindOffRamp, id)
}

func (a *Adapter) getTransaction(ctx context.Context, kind stellarramp.RampKind, id string) (*stellarramp.RampTransaction, error) {
	var resp transactionResponse
	if err := a.http.GetJSON(ctx, a.baseURL+"/v1/transactions/"+id, a.apiKey, &resp); err != nil {
		return nil, err
	}
	return a.toTransaction(kind, &resp), nil
}

func (a *Adapter) toTransaction(kind stellarramp.RampKind, resp *transactionResponse) *stellarramp.RampTransaction {
	tx := &stellarramp.RampTransaction{
		ID:                  resp.TransactionID,
		Kind:                kind,
		CustomerID:          resp.CustomerID,
		QuoteID:             resp.QuoteID,
		ProviderStatus:      resp.Status,
		FromAmount:          resp.SourceAmount,
		FromCurrency:        resp.SourceCurrency,
		ToAmount:            resp.TargetAmount,
		ToCurrency:          resp.TargetCurrency,
		StellarAddress:      resp.WalletAddress,
		SignableTransaction: resp.UnsignedXdr,
		StatusPage:          resp.StatusPageURL,
	}
	if resp.Payment != nil {
		tx.PaymentInstructions = &stellarramp.PaymentInstructions{
			Method:    resp.Payment.Method,
			Reference: resp.Payment.Reference,
			Amount:    resp.Payment.Amount,
			Currency:  resp.Payment.Currency,
			Memo:      resp.Payment.Memo,
		}
	}
	return tx
}

type bankAccountRequest struct {
	CustomerID    string `json:"customerId"`
	Currency      string `json:"currency"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName"`
}

type bankAccountResponse struct {
	BankAccountID string `json:"bankAccountId"`
}

// RegisterFiatAccount registers a fiat payout destination.
func (a *Adapter) RegisterFiatAccount(ctx context.Context, req stellarramp.FiatAccountRequest) (*stellarramp.FiatAccount, error) {
	body := bankAccountRequest{
		CustomerID:    req.CustomerID,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	}

	var resp bankAccountResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/v1/bank-accounts", a.apiKey, body, &resp); err != nil {
		return nil, err
	}
	return &stellarramp.FiatAccount{
		ID:            resp.BankAccountID,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	}, nil
}

// RegisterBlockchainWallet is not part of the Alfred flow; wallet addresses
// ride on each transaction instead.
func (a *Adapter) RegisterBlockchainWallet(ctx context.Context, customerID, stellarAddress string) (string, error) {
	return "", errors.NewCapabilityError(providerName, "blockchain wallet registration")
}

type payoutRequest struct {
	QuoteID       string `json:"quoteId"`
	SourceAddress string `json:"sourceAddress"`
	SignedXdr     string `json:"signedXdr"`
}

// SubmitPayout returns the signed off-ramp payload to Alfred, which submits
// it to the network itself.
func (a *Adapter) SubmitPayout(ctx context.Context, sub stellarramp.PayoutSubmission) error {
	body := payoutRequest{
		QuoteID:       sub.QuoteID,
		SourceAddress: sub.SourceAddress,
		SignedXdr:     sub.SignedTransaction,
	}
	return a.http.PostJSON(ctx, a.baseURL+"/v1/transactions/payout", a.apiKey, body, nil)
}

type kycStatusResponse struct {
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
	KycURL     string `json:"kycUrl"`
}

// GetKycStatus checks the KYC verification state for a customer.
func (a *Adapter) GetKycStatus(ctx context.Context, customerID string) (stellarramp.KycStatus, error) {
	var resp kycStatusResponse
	if err := a.http.GetJSON(ctx, a.baseURL+"/v1/customers/"+customerID+"/kyc", a.apiKey, &resp); err != nil {
		return "", err
	}

	status, ok := kycStatusMap[resp.Status]
	if !ok {
		return "", errors.NewValidationError(errors.STATUS_UNMAPPED,
			"unknown KYC status "+resp.Status, nil)
	}
	return status, nil
}

type customerResponse struct {
	CustomerID string `json:"customerId"`
	Email      string `json:"email"`
	KycStatus  string `json:"kycStatus"`
}

// FindCustomerByEmail looks up an existing customer record by email.
// A missing customer is a transport-level not-found, which the engine turns
// into a nil result.
func (a *Adapter) FindCustomerByEmail(ctx context.Context, email string) (*stellarramp.Customer, error) {
	query := url.Values{}
	query.Set("email", email)

	var resp customerResponse
	if err := a.http.GetJSON(ctx, a.baseURL+"/v1/customers?"+query.Encode(), a.apiKey, &resp); err != nil {
		return nil, err
	}

	kyc := kycStatusMap[resp.KycStatus]
	if kyc == "" {
		kyc = stellarramp.KycNotStarted
	}
	return &stellarramp.Customer{
		ID:        resp.CustomerID,
		Email:     resp.Email,
		KycStatus: kyc,
	}, nil
}
