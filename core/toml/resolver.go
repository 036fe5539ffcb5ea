package toml

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stellar-ramp/sdk-go/errors"
)

const (
	defaultCacheTTL = 5 * time.Minute
	wellKnownPath   = "/.well-known/stellar.toml"
	maxTomlSize     = 1024 * 1024
)

type cacheEntry struct {
	info      *AnchorInfo
	fetchedAt time.Time
}

// Resolver fetches and caches stellar.toml files from anchor domains.
type Resolver struct {
	httpClient *http.Client
	cache      map[string]*cacheEntry
	cacheTTL   time.Duration
	mu         sync.RWMutex
}

// NewResolver creates a resolver with a 5-minute cache.
func NewResolver() *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      make(map[string]*cacheEntry),
		cacheTTL:   defaultCacheTTL,
	}
}

// Resolve fetches the stellar.toml for a home domain, serving cached entries
// while fresh.
func (r *Resolver) Resolve(ctx context.Context, domain string) (*AnchorInfo, error) {
	r.mu.RLock()
	entry, exists := r.cache[domain]
	r.mu.RUnlock()

	if exists && time.Since(entry.fetchedAt) < r.cacheTTL {
		return entry.info, nil
	}

	// A bare domain is fetched over HTTPS; an explicit scheme is kept so
	// local anchors can be reached over plain HTTP.
	url := domain
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	url = strings.TrimSuffix(url, "/") + wellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewTransportError(0, "failed to create stellar.toml request", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(0, fmt.Sprintf("failed to fetch stellar.toml from %s", domain), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError(resp.StatusCode, fmt.Sprintf("stellar.toml fetch from %s failed", domain))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTomlSize))
	if err != nil {
		return nil, errors.NewTransportError(resp.StatusCode, "failed to read stellar.toml response", err)
	}

	info := parse(string(body))
	if info.SigningKey != "" && !strings.HasPrefix(info.SigningKey, "G") {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID,
			fmt.Sprintf("invalid SIGNING_KEY format: %s", info.SigningKey), nil)
	}

	r.mu.Lock()
	r.cache[domain] = &cacheEntry{info: info, fetchedAt: time.Now()}
	r.mu.Unlock()

	return info, nil
}

// parse extracts the top-level keys the SDK consumes. Table sections
// ([[CURRENCIES]], [DOCUMENTATION], ...) are skipped.
func parse(content string) *AnchorInfo {
	info := &AnchorInfo{}
	inSection := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inSection = true
			continue
		}
		if inSection {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		switch key {
		case "NETWORK_PASSPHRASE":
			info.NetworkPassphrase = value
		case "SIGNING_KEY":
			info.SigningKey = value
		case "WEB_AUTH_ENDPOINT":
			info.WebAuthEndpoint = value
		case "TRANSFER_SERVER":
			info.TransferServer = value
		}
	}

	return info
}
