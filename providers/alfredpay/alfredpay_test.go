package alfredpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stellarramp "github.com/stellar-ramp/sdk-go"
)

func TestCapabilities(t *testing.T) {
	caps := New("key", "https://api.example.com").Capabilities()

	assert.Equal(t, stellarramp.KYCFlowRedirect, caps.KYCFlow)
	assert.True(t, caps.RequiresTOS)
	assert.True(t, caps.RequiresOffRampSigning)
	assert.True(t, caps.RequiresAnchorPayoutSubmission)
	assert.False(t, caps.RequiresBankBeforeQuote)
}

func TestStatusTableMapsRefundedToRefunded(t *testing.T) {
	table := New("key", "url").StatusTable()

	status, ok := table.Map("REFUNDED")
	require.True(t, ok)
	assert.Equal(t, stellarramp.StatusRefunded, status)

	status, ok = table.Map("IN_REVIEW")
	require.True(t, ok)
	assert.Equal(t, stellarramp.StatusProcessing, status)
}

func TestCreateQuoteSumsFeeLineItems(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/quotes", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"quoteId":      "q-1",
			"sourceAmount": "100",
			"targetAmount": "97.40",
			"rate":         "0.974",
			"fees": []map[string]string{
				{"type": "commission", "amount": "2.00"},
				{"type": "processing", "amount": "0.50"},
				{"type": "tax", "amount": "0.10"},
			},
			"expirationDate": time.Now().Add(2 * time.Minute).Format(time.RFC3339),
			"createdAt":      time.Now().Format(time.RFC3339),
		})
	}))
	defer ts.Close()

	adapter := New("test-key", ts.URL)
	quote, err := adapter.CreateQuote(context.Background(), stellarramp.QuoteRequest{
		Kind:         stellarramp.KindOnRamp,
		CustomerRef:  "cust-1",
		FromCurrency: "USD",
		ToCurrency:   "USDC:GISSUER",
		FromAmount:   "100",
	})
	require.NoError(t, err)
	assert.Equal(t, "q-1", quote.ID)
	assert.Equal(t, "2.60", quote.Fee)
	assert.Equal(t, "0.974", quote.ExchangeRate)
}

func TestSubmitPayout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transactions/payout", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "q-1", body["quoteId"])
		assert.Equal(t, "GUSER", body["sourceAddress"])
		assert.Equal(t, "signed-xdr", body["signedXdr"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	adapter := New("test-key", ts.URL)
	err := adapter.SubmitPayout(context.Background(), stellarramp.PayoutSubmission{
		QuoteID:           "q-1",
		SourceAddress:     "GUSER",
		SignedTransaction: "signed-xdr",
	})
	require.NoError(t, err)
}

func TestFindCustomerByEmail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "user@example.com", r.URL.Query().Get("email"))
		json.NewEncoder(w).Encode(map[string]string{
			"customerId": "cust-1",
			"email":      "user@example.com",
			"kycStatus":  "APPROVED",
		})
	}))
	defer ts.Close()

	adapter := New("test-key", ts.URL)
	customer, err := adapter.FindCustomerByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", customer.ID)
	assert.Equal(t, stellarramp.KycApproved, customer.KycStatus)
}

func TestGetTransactionMapsFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transactions/tx-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"transactionId":  "tx-1",
			"quoteId":        "q-1",
			"status":         "PENDING",
			"sourceAmount":   "100",
			"sourceCurrency": "USDC:GISSUER",
			"targetAmount":   "97.40",
			"targetCurrency": "COP",
			"unsignedXdr":    "xdr-payload",
			"statusPageUrl":  "https://alfred.example.com/tx/tx-1",
		})
	}))
	defer ts.Close()

	adapter := New("test-key", ts.URL)
	tx, err := adapter.GetOffRampTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, stellarramp.KindOffRamp, tx.Kind)
	assert.Equal(t, "PENDING", tx.ProviderStatus)
	assert.Equal(t, "xdr-payload", tx.SignableTransaction)
	assert.Equal(t, "https://alfred.example.com/tx/tx-1", tx.StatusPage)
}
