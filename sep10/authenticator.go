package sep10

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/core/net"
	"github.com/stellar-ramp/sdk-go/core/toml"
	"github.com/stellar-ramp/sdk-go/errors"
)

// Authenticator orchestrates the SEP-10 exchange: fetch a challenge, validate
// it, delegate signing to an external signer, submit the signed transaction,
// and receive a bearer token. It never holds key material; the only place a
// private key is used is the caller-provided Signer.
type Authenticator struct {
	endpoint          string
	homeDomain        string
	networkPassphrase string
	serverSigningKey  string
	httpClient        *net.Client
	logger            logrus.FieldLogger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the underlying HTTP client for the auth endpoint.
func WithHTTPClient(client *net.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// NewAuthenticator creates an Authenticator for a known auth endpoint.
//
// serverSigningKey may be empty, in which case challenge validation is
// skipped. That is a deliberate trust-reduction path callers may opt into
// but should avoid in production; it is logged on every authentication.
func NewAuthenticator(endpoint, homeDomain, networkPassphrase, serverSigningKey string, opts ...Option) *Authenticator {
	a := &Authenticator{
		endpoint:          strings.TrimRight(endpoint, "/"),
		homeDomain:        homeDomain,
		networkPassphrase: networkPassphrase,
		serverSigningKey:  serverSigningKey,
		httpClient:        net.NewClient(),
		logger:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAuthenticatorFromDomain discovers the anchor's WEB_AUTH_ENDPOINT and
// SIGNING_KEY via its stellar.toml (SEP-1) and builds an Authenticator.
func NewAuthenticatorFromDomain(ctx context.Context, resolver *toml.Resolver, homeDomain string, opts ...Option) (*Authenticator, error) {
	info, err := resolver.Resolve(ctx, homeDomain)
	if err != nil {
		return nil, err
	}
	if info.WebAuthEndpoint == "" {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID,
			"anchor "+homeDomain+" does not provide WEB_AUTH_ENDPOINT in stellar.toml", nil)
	}
	return NewAuthenticator(info.WebAuthEndpoint, homeDomain, info.NetworkPassphrase, info.SigningKey, opts...), nil
}

// AuthRequest identifies who is authenticating.
type AuthRequest struct {
	// Account is the end user's Stellar account (G...).
	Account string

	// Memo distinguishes users sharing a custodial account. Optional.
	Memo string

	// ClientDomain requests client-domain verification. Optional.
	ClientDomain string
}

// challengeResponse is the GET <auth> response body.
type challengeResponse struct {
	Transaction       string `json:"transaction"`
	NetworkPassphrase string `json:"network_passphrase"`
}

// tokenResponse is the POST <auth> response body.
type tokenResponse struct {
	Token string `json:"token"`
}

// Authenticate performs the full SEP-10 exchange and returns an authenticated
// Session. A validation failure aborts before any signing request: the user
// is never asked to sign a bad challenge. HTTP failures carry the provider's
// status code and error message verbatim.
func (a *Authenticator) Authenticate(ctx context.Context, req AuthRequest, signer stellarramp.Signer) (*Session, error) {
	if strings.TrimSpace(req.Account) == "" {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID, "account is required", nil)
	}
	if signer == nil {
		return nil, errors.NewValidationError(errors.CONFIG_INVALID, "signer is required", nil)
	}

	// Exactly one challenge is outstanding per attempt; it is fetched,
	// exchanged once, and never reused.
	challenge, err := a.fetchChallenge(ctx, req)
	if err != nil {
		return nil, err
	}

	if a.serverSigningKey == "" {
		a.logger.WithField("home_domain", a.homeDomain).
			Warn("no server signing key configured; skipping challenge validation")
	} else {
		err := ValidateChallenge(challenge, ChallengeParams{
			ServerSigningKey:  a.serverSigningKey,
			NetworkPassphrase: a.networkPassphrase,
			HomeDomain:        a.homeDomain,
			Account:           req.Account,
		})
		if err != nil {
			return nil, err
		}
	}

	signedXDR, err := signer.SignTransaction(ctx, challenge, a.networkPassphrase)
	if err != nil {
		return nil, errors.NewStateError(errors.SIGNER_ERROR,
			"failed to sign challenge transaction", err)
	}

	var tokenResp tokenResponse
	body := map[string]string{"transaction": signedXDR}
	if err := a.httpClient.PostJSON(ctx, a.endpoint, "", body, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.Token == "" {
		return nil, errors.NewStateError(errors.AUTH_REJECTED,
			"anchor returned an empty token", nil)
	}

	claims, err := DecodeToken(tokenResp.Token)
	if err != nil {
		return nil, err
	}

	return &Session{
		HomeDomain: a.homeDomain,
		Account:    req.Account,
		Token:      tokenResp.Token,
		ExpiresAt:  claims.ExpiresAt,
	}, nil
}

// fetchChallenge requests a challenge transaction and checks that it is bound
// to the expected network.
func (a *Authenticator) fetchChallenge(ctx context.Context, req AuthRequest) (string, error) {
	query := url.Values{}
	query.Set("account", req.Account)
	query.Set("home_domain", a.homeDomain)
	if req.Memo != "" {
		query.Set("memo", req.Memo)
	}
	if req.ClientDomain != "" {
		query.Set("client_domain", req.ClientDomain)
	}

	var resp challengeResponse
	if err := a.httpClient.GetJSON(ctx, a.endpoint+"?"+query.Encode(), "", &resp); err != nil {
		return "", err
	}
	if resp.Transaction == "" {
		return "", errors.NewStateError(errors.CHALLENGE_FETCH_FAILED,
			"anchor returned an empty challenge", nil)
	}
	if resp.NetworkPassphrase != "" && resp.NetworkPassphrase != a.networkPassphrase {
		return "", errors.NewValidationError(errors.CHALLENGE_INVALID,
			"network passphrase mismatch: expected "+a.networkPassphrase+", got "+resp.NetworkPassphrase, nil)
	}
	return resp.Transaction, nil
}
