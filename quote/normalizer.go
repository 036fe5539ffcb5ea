// Package quote normalizes provider-specific quote responses into the
// canonical Quote shape: one total fee, one exchange rate expressed as
// destination units per source unit, and an expiry instant.
package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/errors"
)

// RateConvention describes how a provider expresses its exchange rate.
// Directionality is inconsistent across providers and must be verified per
// provider against its documentation, never assumed uniform.
type RateConvention int

const (
	// RateDestPerSource means the provider's rate is already "destination
	// units per 1 source unit" (the canonical convention).
	RateDestPerSource RateConvention = iota

	// RateSourcePerDest means the provider's rate is the literal inverse
	// and must be inverted before storing.
	RateSourcePerDest
)

// Rules are the per-provider normalization rules, fixed at adapter
// construction time.
type Rules struct {
	Convention RateConvention
}

// FeeItem is one fee line from a provider response (commission, processing,
// tax, network, partner, billing - whichever subset the provider exposes).
type FeeItem struct {
	Type   string
	Amount string
}

// ProviderQuote is the provider-agnostic intermediate an adapter fills from
// its native response before normalization.
type ProviderQuote struct {
	ID           string
	FromCurrency string
	ToCurrency   string
	FromAmount   string
	ToAmount     string
	Rate         string
	Fees         []FeeItem
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

const (
	fiatDecimals    int32 = 2
	onChainDecimals int32 = 7
)

// fiatCurrencies are the fiat codes the supported providers ramp between.
// Anything else is treated as an on-chain asset.
var fiatCurrencies = map[string]bool{
	"USD": true,
	"MXN": true,
	"BRL": true,
	"EUR": true,
	"COP": true,
	"ARS": true,
}

// decimalsFor returns the conventional display precision for a currency:
// 2 for fiat, up to 7 for on-chain assets. On-chain assets are identified by
// a "CODE:ISSUER" identifier or by not being a known fiat code.
func decimalsFor(currency string) int32 {
	if strings.Contains(currency, ":") {
		return onChainDecimals
	}
	if fiatCurrencies[strings.ToUpper(currency)] {
		return fiatDecimals
	}
	return onChainDecimals
}

// Normalize converts a provider quote into the canonical shape.
//
// The total fee is the sum of every fee line item the provider reports,
// formatted to the source currency's conventional precision. The exchange
// rate is inverted when the provider's convention is source-per-destination.
func Normalize(pq ProviderQuote, rules Rules) (*stellarramp.Quote, error) {
	if pq.ID == "" {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID, "provider quote has no id", nil)
	}
	if pq.ExpiresAt.IsZero() {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID, "provider quote has no expiry", nil)
	}

	fee := decimal.Zero
	for _, item := range pq.Fees {
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			return nil, errors.NewValidationError(errors.QUOTE_INVALID,
				fmt.Sprintf("invalid %s fee amount %q", item.Type, item.Amount), err)
		}
		fee = fee.Add(amount)
	}

	rate, err := decimal.NewFromString(pq.Rate)
	if err != nil {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID,
			fmt.Sprintf("invalid exchange rate %q", pq.Rate), err)
	}
	if rate.IsZero() {
		return nil, errors.NewValidationError(errors.QUOTE_INVALID, "exchange rate is zero", nil)
	}
	if rules.Convention == RateSourcePerDest {
		rate = decimal.New(1, 0).DivRound(rate, onChainDecimals)
	}

	createdAt := pq.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &stellarramp.Quote{
		ID:           pq.ID,
		FromCurrency: pq.FromCurrency,
		ToCurrency:   pq.ToCurrency,
		FromAmount:   pq.FromAmount,
		ToAmount:     pq.ToAmount,
		ExchangeRate: rate.String(),
		Fee:          fee.StringFixed(decimalsFor(pq.FromCurrency)),
		ExpiresAt:    pq.ExpiresAt,
		CreatedAt:    createdAt,
	}, nil
}
