// Package etherfuse adapts the Etherfuse FX Ramp API (MXN <-> Stellar assets)
// to the canonical provider contract. Etherfuse identifies customers and bank
// accounts by deterministic ids derived from the Stellar account, requires a
// registered bank account before quoting, and prepares off-ramp signable
// payloads asynchronously after order creation.
package etherfuse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/core/net"
	"github.com/stellar-ramp/sdk-go/errors"
	"github.com/stellar-ramp/sdk-go/quote"
)

const providerName = "etherfuse"

// statusTable maps Etherfuse order statuses to the canonical vocabulary.
var statusTable = stellarramp.StatusTable{
	"pending_deposit": stellarramp.StatusPending,
	"awaiting_funds":  stellarramp.StatusPending,
	"funds_received":  stellarramp.StatusProcessing,
	"processing":      stellarramp.StatusProcessing,
	"completed":       stellarramp.StatusCompleted,
	"failed":          stellarramp.StatusFailed,
	"expired":         stellarramp.StatusExpired,
	"cancelled":       stellarramp.StatusCancelled,
	"refunded":        stellarramp.StatusRefunded,
}

// kycStatusMap maps Etherfuse KYC statuses to the canonical vocabulary.
// "proposed" means documents are submitted and under review.
var kycStatusMap = map[string]stellarramp.KycStatus{
	"not_started": stellarramp.KycNotStarted,
	"proposed":    stellarramp.KycPending,
	"approved":    stellarramp.KycApproved,
	"rejected":    stellarramp.KycRejected,
}

// Adapter is the Etherfuse provider adapter.
type Adapter struct {
	baseURL string
	http    *net.Client
}

var _ stellarramp.ProviderAdapter = (*Adapter)(nil)

// New creates an Etherfuse adapter. The API key is sent raw in the
// Authorization header, without a Bearer prefix.
func New(apiKey, baseURL string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    net.NewClient(net.WithHeader("Authorization", apiKey)),
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

// CustomerID derives the deterministic customer id for a Stellar account.
// The same account always maps to the same Etherfuse customer.
func CustomerID(stellarAccount string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(stellarAccount)).String()
}

// BankAccountID derives the deterministic bank account id for a Stellar
// account. It is keyed by the account's customer id, so it always matches the
// id RegisterFiatAccount sends for that customer.
func BankAccountID(stellarAccount string) string {
	return bankAccountIDFor(CustomerID(stellarAccount))
}

func bankAccountIDFor(customerID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(customerID)).String()
}

type quoteAssets struct {
	Type        string `json:"type"`
	SourceAsset string `json:"sourceAsset"`
	TargetAsset string `json:"targetAsset"`
}

type quoteRequest struct {
	QuoteID      string      `json:"quoteId"`
	CustomerID   string      `json:"customerId"`
	Blockchain   string      `json:"blockchain"`
	QuoteAssets  quoteAssets `json:"quoteAssets"`
	SourceAmount string      `json:"sourceAmount"`
}

type quoteResponse struct {
	QuoteID                   string `json:"quoteId"`
	SourceAmount              string `json:"sourceAmount"`
	DestinationAmount         string `json:"destinationAmount"`
	ExchangeRate              string `json:"exchangeRate"`
	FeeBps                    string `json:"feeBps"`
	FeeAmount                 string `json:"feeAmount"`
	DestinationAmountAfterFee string `json:"destinationAmountAfterFee"`
	ExpiresAt                 string `json:"expiresAt"`
}

// CreateQuote requests a quote. The quote id is generated client-side; quotes
// expire two minutes after creation.
func (a *Adapter) CreateQuote(ctx context.Context, req stellarramp.QuoteRequest) (*stellarramp.Quote, error) {
	body := quoteRequest{
		QuoteID:    uuid.NewString(),
		CustomerID: req.CustomerRef,
		Blockchain: "stellar",
		QuoteAssets: quoteAssets{
			Type:        string(req.Kind),
			SourceAsset: req.FromCurrency,
			TargetAsset: req.ToCurrency,
		},
		SourceAmount: req.FromAmount,
	}

	var resp quoteResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/ramp/quote", "", body, &resp); err != nil {
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID,
			fmt.Sprintf("unparseable quote expiry %q", resp.ExpiresAt), err)
	}

	return quote.Normalize(quote.ProviderQuote{
		ID:           resp.QuoteID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   resp.SourceAmount,
		ToAmount:     resp.DestinationAmountAfterFee,
		Rate:         resp.ExchangeRate,
		Fees:         []quote.FeeItem{{Type: "fee", Amount: resp.FeeAmount}},
		ExpiresAt:    expiresAt,
	}, quote.Rules{Convention: quote.RateDestPerSource})
}

type orderRequest struct {
	OrderID       string `json:"orderId"`
	BankAccountID string `json:"bankAccountId"`
	PublicKey     string `json:"publicKey"`
	QuoteID       string `json:"quoteId"`
}

type onrampOrderResult struct {
	OrderID       string `json:"orderId"`
	DepositClabe  string `json:"depositClabe"`
	DepositAmount string `json:"depositAmount"`
}

type offrampOrderResult struct {
	OrderID string `json:"orderId"`
}

// orderResponse is the discriminated union returned by POST /ramp/order.
type orderResponse struct {
	Onramp  *onrampOrderResult  `json:"onramp,omitempty"`
	Offramp *offrampOrderResult `json:"offramp,omitempty"`
}

// CreateOnRamp creates a deposit order. The result carries the CLABE the user
// must pay MXN into via SPEI.
func (a *Adapter) CreateOnRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	body := orderRequest{
		OrderID:       uuid.NewString(),
		BankAccountID: req.FiatAccountID,
		PublicKey:     req.StellarAddress,
		QuoteID:       req.QuoteID,
	}

	var resp orderResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/ramp/order", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Onramp == nil {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID,
			"order response is missing the onramp result", nil)
	}

	return &stellarramp.RampTransaction{
		ID:             resp.Onramp.OrderID,
		Kind:           stellarramp.KindOnRamp,
		CustomerID:     req.CustomerID,
		QuoteID:        req.QuoteID,
		Status:         stellarramp.StatusPending,
		ProviderStatus: "pending_deposit",
		StellarAddress: req.StellarAddress,
		PaymentInstructions: &stellarramp.PaymentInstructions{
			Method:    "spei",
			Reference: resp.Onramp.DepositClabe,
			Amount:    resp.Onramp.DepositAmount,
			Currency:  "MXN",
		},
	}, nil
}

// CreateOffRamp creates a withdrawal order. The signable payload is prepared
// asynchronously; the order is fetched until it appears.
func (a *Adapter) CreateOffRamp(ctx context.Context, req stellarramp.CreateTransactionRequest) (*stellarramp.RampTransaction, error) {
	body := orderRequest{
		OrderID:       uuid.NewString(),
		BankAccountID: req.FiatAccountID,
		PublicKey:     req.StellarAddress,
		QuoteID:       req.QuoteID,
	}

	var resp orderResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/ramp/order", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Offramp == nil {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID,
			"order response is missing the offramp result", nil)
	}

	return &stellarramp.RampTransaction{
		ID:             resp.Offramp.OrderID,
		Kind:           stellarramp.KindOffRamp,
		CustomerID:     req.CustomerID,
		QuoteID:        req.QuoteID,
		Status:         stellarramp.StatusPending,
		ProviderStatus: "pending_deposit",
		StellarAddress: req.StellarAddress,
		FiatAccountID:  req.FiatAccountID,
	}, nil
}

type orderStatusResponse struct {
	OrderID           string `json:"orderId"`
	Status            string `json:"status"`
	QuoteID           string `json:"quoteId"`
	PublicKey         string `json:"publicKey"`
	SourceAmount      string `json:"sourceAmount"`
	DestinationAmount string `json:"destinationAmount"`
	UnsignedXdr       string `json:"unsignedXdr"`
	TransactionHash   string `json:"transactionHash"`
	DepositClabe      string `json:"depositClabe"`
	DepositAmount     string `json:"depositAmount"`
}

// GetOnRampTransaction fetches one deposit order.
func (a *Adapter) GetOnRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getOrder(ctx, stellarramp.KindOnRamp, id)
}

// GetOffRampTransaction fetches one withdrawal order.
func (a *Adapter) GetOffRampTransaction(ctx context.Context, id string) (*stellarramp.RampTransaction, error) {
	return a.getOrder(ctx, stellarramp.KindOffRamp, id)
}

func (a *Adapter) getOrder(ctx context.Context, kind stellarramp.RampKind, id string) (*stellarramp.RampTransaction, error) {
	var resp orderStatusResponse
	if err := a.http.GetJSON(ctx, a.baseURL+"/ramp/order/"+id, "", &resp); err != nil {
		return nil, err
	}

	tx := &stellarramp.RampTransaction{
		ID:                  resp.OrderID,
		Kind:                kind,
		QuoteID:             resp.QuoteID,
		ProviderStatus:      resp.Status,
		FromAmount:          resp.SourceAmount,
		ToAmount:            resp.DestinationAmount,
		StellarAddress:      resp.PublicKey,
		SignableTransaction: resp.UnsignedXdr,
		StellarTxHash:       resp.TransactionHash,
	}
	if kind == stellarramp.KindOnRamp && resp.DepositClabe != "" {
		tx.PaymentInstructions = &stellarramp.PaymentInstructions{
			Method:    "spei",
			Reference: resp.DepositClabe,
			Amount:    resp.DepositAmount,
			Currency:  "MXN",
		}
	}
	return tx, nil
}

type bankAccountRequest struct {
	BankAccountID string `json:"bankAccountId"`
	CustomerID    string `json:"customerId"`
	Clabe         string `json:"clabe"`
	BankName      string `json:"bankName"`
	HolderName    string `json:"holderName"`
}

type bankAccountResponse struct {
	BankAccountID string `json:"bankAccountId"`
}

// RegisterFiatAccount registers a CLABE payout destination. The bank account
// id is deterministic per customer, so re-registration is idempotent.
func (a *Adapter) RegisterFiatAccount(ctx context.Context, req stellarramp.FiatAccountRequest) (*stellarramp.FiatAccount, error) {
	body := bankAccountRequest{
		BankAccountID: bankAccountIDFor(req.CustomerID),
		CustomerID:    req.CustomerID,
		Clabe:         req.AccountNumber,
		BankName:      req.BankName,
		HolderName:    req.HolderName,
	}

	var resp bankAccountResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/ramp/bank-account", "", body, &resp); err != nil {
		return nil, err
	}

	id := resp.BankAccountID
	if id == "" {
		id = body.BankAccountID
	}
	return &stellarramp.FiatAccount{
		ID:            id,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	}, nil
}

// RegisterBlockchainWallet is not part of the Etherfuse flow; wallets are
// implied by the Stellar public key on each order.
func (a *Adapter) RegisterBlockchainWallet(ctx context.Context, customerID, stellarAddress string) (string, error) {
	return "", errors.NewCapabilityError(providerName, "blockchain wallet registration")
}

// SubmitPayout is not part of the Etherfuse flow; signed off-ramp payloads go
// directly to the Stellar network.
func (a *Adapter) SubmitPayout(ctx context.Context, sub stellarramp.PayoutSubmission) error {
	return errors.NewCapabilityError(providerName, "anchor payout submission")
}

type kycStatusResponse struct {
	CustomerID             string `json:"customerId"`
	WalletPublicKey        string `json:"walletPublicKey"`
	Status                 string `json:"status"`
	CurrentRejectionReason string `json:"currentRejectionReason"`
}

// GetKycStatus checks the KYC verification state for a customer. The customer
// id encodes the Stellar account, which the endpoint also requires; callers
// pass "customerId/publicKey" when the raw account is not recoverable.
func (a *Adapter) GetKycStatus(ctx context.Context, customerID string) (stellarramp.KycStatus, error) {
	var resp kycStatusResponse
	if err := a.http.GetJSON(ctx, a.baseURL+"/ramp/customer/"+customerID+"/kyc", "", &resp); err != nil {
		return "", err
	}

	status, ok := kycStatusMap[resp.Status]
	if !ok {
		return "", errors.NewValidationError(errors.STATUS_UNMAPPED,
			fmt.Sprintf("unknown KYC status %q", resp.Status), nil)
	}
	return status, nil
}

type onboardingURLRequest struct {
	CustomerID    string `json:"customerId"`
	BankAccountID string `json:"bankAccountId"`
	PublicKey     string `json:"publicKey"`
	Blockchain    string `json:"blockchain"`
}

type onboardingURLResponse struct {
	PresignedURL string `json:"presigned_url"`
}

// OnboardingURL generates a presigned KYC form URL for customer onboarding.
// The URL is valid for 15 minutes.
func (a *Adapter) OnboardingURL(ctx context.Context, customerID, bankAccountID, publicKey string) (string, error) {
	body := onboardingURLRequest{
		CustomerID:    customerID,
		BankAccountID: bankAccountID,
		PublicKey:     publicKey,
		Blockchain:    "stellar",
	}
	var resp onboardingURLResponse
	if err := a.http.PostJSON(ctx, a.baseURL+"/ramp/onboarding-url", "", body, &resp); err != nil {
		return "", err
	}
	return resp.PresignedURL, nil
}

// Asset is one rampable Stellar asset as reported by the provider.
type Asset struct {
	Symbol     string `json:"symbol"`
	Identifier string `json:"identifier"` // "CODE:ISSUER"
	Name       string `json:"name"`
}

type assetsResponse struct {
	Assets []Asset `json:"assets"`
}

// Assets returns the rampable Stellar assets for a wallet.
func (a *Adapter) Assets(ctx context.Context, wallet string) ([]Asset, error) {
	url := a.baseURL + "/ramp/assets?blockchain=stellar&currency=mxn&wallet=" + wallet
	var resp assetsResponse
	if err := a.http.GetJSON(ctx, url, "", &resp); err != nil {
		return nil, err
	}
	return resp.Assets, nil
}
