// Package net provides HTTP client functionality with retry, timeout, and
// circuit breaker patterns for talking to anchor provider APIs.
//
// The Client buffers request bodies so retries can replay them, retries
// network failures and 5xx responses with exponential backoff, and converts
// non-2xx responses into the SDK error taxonomy: 404 becomes a not-found
// error (which single-resource lookups translate to nil), everything else a
// transport error carrying the provider's status code and body verbatim.
//
// Example usage:
//
//	client := net.NewClient(
//	    net.WithTimeout(20*time.Second),
//	    net.WithMaxRetries(5),
//	)
//	var quote quoteResponse
//	err := client.GetJSON(ctx, url, token, &quote)
package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stellar-ramp/sdk-go/errors"
)

// Default configuration values
const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultBackoff      = 1 * time.Second
	defaultFailureLimit = 5
	defaultResetTimeout = 60 * time.Second
)

// Client is an HTTP client with retry, timeout, and circuit breaker capabilities.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	retryBackoff   time.Duration
	headers        map[string]string
	circuitBreaker *circuitBreaker
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout (default: 30s).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts (default: 3).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the base duration for exponential backoff (default: 1s).
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

// WithHeader sets a header applied to every request (e.g. a provider API key).
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultBackoff,
		headers:      make(map[string]string),
		circuitBreaker: &circuitBreaker{
			failureLimit: defaultFailureLimit,
			resetTimeout: defaultResetTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetJSON performs a GET request and decodes a 2xx JSON response into out.
// bearer is optional; when non-empty it is sent as an Authorization header.
func (c *Client) GetJSON(ctx context.Context, url, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewTransportError(0, "failed to create GET request", err)
	}
	return c.doJSON(req, bearer, out)
}

// PostJSON marshals body, performs a POST request, and decodes a 2xx JSON
// response into out. out may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, url, bearer string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.NewTransportError(0, "failed to marshal request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return errors.NewTransportError(0, "failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, bearer, out)
}

// doJSON executes the request and applies the response contract: 404 becomes
// a not-found error, other non-2xx statuses a transport error with the body
// verbatim, and 2xx bodies are decoded into out. Deserialization failures are
// raised, never swallowed.
func (c *Client) doJSON(req *http.Request, bearer string, out any) error {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTransportError(resp.StatusCode, "failed to read response body", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewNotFoundError("resource", req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewProviderError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.NewTransportError(resp.StatusCode, "failed to decode response JSON", err)
		}
	}
	return nil
}

// do executes the HTTP request with retry logic and circuit breaker.
// Network failures and 5xx responses are retried; 4xx responses are returned
// to the caller for taxonomy conversion.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if !c.circuitBreaker.allowRequest() {
		return nil, errors.NewTransportError(0, "circuit breaker is open", nil)
	}

	// Buffer the request body so it can be replayed on retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, errors.NewTransportError(0, "failed to read request body", err)
		}
		req.Body.Close()
	}

	var lastErr error
	var lastStatus int
	var lastBody string
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		select {
		case <-req.Context().Done():
			return nil, errors.NewTransportError(0, "request cancelled", req.Context().Err())
		default:
		}

		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				c.backoff(attempt)
				continue
			}
			c.circuitBreaker.recordFailure()
			return nil, errors.NewTransportError(0,
				fmt.Sprintf("request failed after %d attempts", attempt+1), err)
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastStatus = resp.StatusCode
			lastBody = strings.TrimSpace(string(body))
			lastErr = fmt.Errorf("server error: %s", resp.Status)
			if attempt < c.maxRetries {
				c.backoff(attempt)
				continue
			}
			c.circuitBreaker.recordFailure()
			return nil, errors.NewProviderError(lastStatus, lastBody)
		}

		c.circuitBreaker.recordSuccess()
		return resp, nil
	}

	return nil, errors.NewTransportError(0, "unexpected retry exhaustion", lastErr)
}

// backoff implements exponential backoff with the formula: backoff * 2^attempt
func (c *Client) backoff(attempt int) {
	time.Sleep(c.retryBackoff * (1 << uint(attempt)))
}

// circuitBreaker implements a simple circuit breaker pattern.
type circuitBreaker struct {
	mu           sync.RWMutex
	failures     int
	lastFailTime time.Time
	failureLimit int
	resetTimeout time.Duration
	state        circuitState
}

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
)

// allowRequest checks if the circuit breaker allows the request to proceed.
func (cb *circuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.state == stateClosed {
		return true
	}
	return time.Since(cb.lastFailTime) > cb.resetTimeout
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailTime = time.Now()

	if cb.failures >= cb.failureLimit {
		cb.state = stateOpen
	}
}
