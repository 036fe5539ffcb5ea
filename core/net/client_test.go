package net

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-ramp/sdk-go/errors"
)

func TestGetJSONDecodesResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "q-1"})
	}))
	defer ts.Close()

	var out struct {
		ID string `json:"id"`
	}
	client := NewClient()
	require.NoError(t, client.GetJSON(context.Background(), ts.URL, "tok", &out))
	assert.Equal(t, "q-1", out.ID)
}

func TestNotFoundBecomesNotFoundError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	err := NewClient().GetJSON(context.Background(), ts.URL+"/tx/missing", "", nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestProviderErrorCarriesStatusAndBodyVerbatim(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"quote expired"}`))
	}))
	defer ts.Close()

	err := NewClient().PostJSON(context.Background(), ts.URL, "", map[string]string{}, nil)
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.PROVIDER_REJECTED, re.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, re.HTTPStatus)
	assert.Equal(t, `{"error":"quote expired"}`, re.Message)
}

func TestServerErrorsAreRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "ok"})
	}))
	defer ts.Close()

	client := NewClient(WithMaxRetries(3), WithRetryBackoff(time.Millisecond))
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, client.GetJSON(context.Background(), ts.URL, "", &out))
	assert.Equal(t, "ok", out.ID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(WithMaxRetries(3), WithRetryBackoff(time.Millisecond))
	err := client.GetJSON(context.Background(), ts.URL, "", nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestPostBodyIsReplayedOnRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])

		if atomic.AddInt32(&hits, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewClient(WithMaxRetries(2), WithRetryBackoff(time.Millisecond))
	err := client.PostJSON(context.Background(), ts.URL, "", map[string]string{"key": "value"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestFixedHeadersAreApplied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "raw-api-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewClient(WithHeader("Authorization", "raw-api-key"))
	require.NoError(t, client.GetJSON(context.Background(), ts.URL, "", nil))
}

func TestMalformedJSONIsRaised(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": `))
	}))
	defer ts.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := NewClient().GetJSON(context.Background(), ts.URL, "", &out)
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.NETWORK_ERROR, re.Code)
}
