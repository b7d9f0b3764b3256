// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/hashicorp/connect/jwt"
	sdkHttp "github.com/hashicorp/connect/sdk/http"
)

// Client is a relying party of one OIDC provider. It's built once from a
// Config and holds no mutable state, so it's safe for concurrent use. Every
// operation uses the Config, provider configuration and signing key the
// Client was created with.
type Client struct {
	config      *Config
	provider    *ProviderConfiguration
	signingKey  interface{}
	expectedAlg jwt.Alg
	httpClient  *http.Client

	accessVerifier *AccessTokenVerifier
	idVerifier     *IDTokenVerifier

	clock  Clock
	logger hclog.Logger
}

// NewClient creates a Client for the provider in cfg. Unless
// WithProviderConfiguration and WithSigningKey are supplied it makes http
// requests to the issuer for discovery and its jwks_uri for the signing key.
//
// Supported options: WithLogger, WithClock, WithHTTPClient,
// WithProviderConfiguration, WithSigningKey, WithExpectedIDTokenAlg,
// WithIntrospectionRateLimit
func NewClient(ctx context.Context, cfg *Config, opt ...Option) (*Client, error) {
	const op = "NewClient"
	if cfg == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	opts := getClientOpts(opt...)

	httpClient := opts.withHTTPClient
	if httpClient == nil {
		var err error
		if httpClient, err = cfg.HTTPClient(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	pc := opts.withProviderConfiguration
	if pc == nil {
		var err error
		discoverCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
		defer cancel()
		if pc, err = Discover(discoverCtx, cfg.Issuer, httpClient); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := opts.withSigningKey
	if key == nil {
		keyCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
		defer cancel()
		jwk, err := FetchSigningKey(keyCtx, pc.JWKSURI, httpClient)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		key = jwk
	}

	introspectorOpts := []Option{
		WithHTTPClient(httpClient),
		WithTimeout(cfg.timeout()),
		WithLogger(opts.withLogger.Named("introspector")),
	}
	if opts.withRateLimit > 0 {
		introspectorOpts = append(introspectorOpts, WithIntrospectionRateLimit(float64(opts.withRateLimit), opts.withRateBurst))
	}
	introspector, err := NewIntrospector(introspectorOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	accessVerifier, err := NewAccessTokenVerifier(
		WithIntrospector(introspector),
		WithClock(opts.withClock),
		WithLogger(opts.withLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{
		config:         cfg,
		provider:       pc,
		signingKey:     key,
		expectedAlg:    opts.withExpectedIDTokenAlg,
		httpClient:     httpClient,
		accessVerifier: accessVerifier,
		idVerifier:     NewIDTokenVerifier(WithClock(opts.withClock), WithLogger(opts.withLogger)),
		clock:          opts.withClock,
		logger:         opts.withLogger,
	}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.config
}

// ProviderConfiguration returns the provider configuration the client uses.
func (c *Client) ProviderConfiguration() *ProviderConfiguration {
	return c.provider
}

// AccessTokenPolicy returns the policy VerifyAccessToken applies.
//
// Supported options: WithAudiences, WithRequiredScope
func (c *Client) AccessTokenPolicy(opt ...Option) AccessTokenPolicy {
	opts := getVerifyOpts(opt...)
	auds := c.config.Audiences
	if opts.withAudiences != nil {
		auds = opts.withAudiences
	}
	return AccessTokenPolicy{
		Issuer:        c.config.Issuer,
		Audience:      auds,
		Key:           c.signingKey,
		RequiredScope: opts.withRequiredScope,
		Credentials:   c.config.Credentials(),
	}
}

// IDTokenPolicy returns the policy VerifyIDToken applies.
//
// Supported options: WithNonce
func (c *Client) IDTokenPolicy(opt ...Option) IDTokenPolicy {
	opts := getVerifyOpts(opt...)
	return IDTokenPolicy{
		Issuer:      c.config.Issuer,
		Audience:    c.config.ClientID,
		Key:         c.signingKey,
		ExpectedAlg: c.expectedAlg,
		Nonce:       opts.withNonce,
	}
}

// VerifyAccessToken verifies a self-contained or opaque access token issued
// by the client's provider. Expected failures are returned as a *Rejection.
//
// Supported options: WithAudiences, WithRequiredScope
func (c *Client) VerifyAccessToken(ctx context.Context, raw string, opt ...Option) (jwt.Claims, error) {
	return c.accessVerifier.Verify(ctx, raw, c.AccessTokenPolicy(opt...))
}

// VerifyIDToken verifies an id_token issued to the client. Expected failures
// are returned as a *Rejection.
//
// Supported options: WithNonce
func (c *Client) VerifyIDToken(raw string, opt ...Option) (jwt.Claims, error) {
	tk, err := c.idVerifier.Verify(raw, c.IDTokenPolicy(opt...))
	if err != nil {
		return nil, err
	}
	return tk.Claims, nil
}

// UserInfo gets the UserInfo claims from the provider's userinfo endpoint
// using the access token, and unmarshals them into claims.
func (c *Client) UserInfo(ctx context.Context, accessToken AccessToken, claims interface{}) error {
	const op = "Client.UserInfo"
	if accessToken == "" {
		return fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if c.provider.UserinfoEndpoint == "" {
		return fmt.Errorf("%s: userinfo_endpoint: %w", op, ErrMissingEndpoint)
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()
	oidcCtx := sdkHttp.OidcClientContext(ctx, c.httpClient)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(accessToken), TokenType: "Bearer"})
	userinfo, err := c.provider.oidcProvider(oidcCtx).UserInfo(oidcCtx, ts)
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed: %w: %w", op, ErrUserInfoFailed, err)
	}
	if err := userinfo.Claims(claims); err != nil {
		return fmt.Errorf("%s: failed to get UserInfo claims: %w: %w", op, ErrUserInfoFailed, err)
	}
	return nil
}

// ExtractIssuer returns the "iss" claim of a self-contained token without
// verifying it. It's useful for selecting which Client should verify a
// token, never for trusting it.
func ExtractIssuer(raw string) (string, error) {
	const op = "ExtractIssuer"
	claims, err := jwt.UnverifiedClaims(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	iss := claims.Issuer()
	if iss == "" {
		return "", fmt.Errorf("%s: token has no issuer: %w", op, ErrInvalidIssuer)
	}
	return iss, nil
}

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withLogger                hclog.Logger
	withClock                 Clock
	withHTTPClient            *http.Client
	withProviderConfiguration *ProviderConfiguration
	withSigningKey            interface{}
	withExpectedIDTokenAlg    jwt.Alg
	withRateLimit             rate.Limit
	withRateBurst             int
}

// clientDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func clientDefaults() clientOptions {
	return clientOptions{
		withLogger:             hclog.NewNullLogger(),
		withExpectedIDTokenAlg: jwt.DefaultIDTokenAlg,
	}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithProviderConfiguration provides the provider configuration for
// NewClient, which then skips discovery.
func WithProviderConfiguration(pc *ProviderConfiguration) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && pc != nil {
			o.withProviderConfiguration = pc
		}
	}
}

// WithSigningKey provides the provider's verification key for NewClient,
// which then skips fetching the jwks_uri. See jwt.Decode for the accepted
// key types.
func WithSigningKey(key interface{}) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && key != nil {
			o.withSigningKey = key
		}
	}
}

// WithExpectedIDTokenAlg provides the alg id_tokens must be signed with for
// NewClient. Defaults to jwt.DefaultIDTokenAlg.
func WithExpectedIDTokenAlg(alg jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && alg != "" {
			o.withExpectedIDTokenAlg = alg
		}
	}
}

// verifyOptions is the set of available options for a single verification
type verifyOptions struct {
	withRequiredScope string
	withAudiences     []string
	withNonce         string
}

func verifyDefaults() verifyOptions {
	return verifyOptions{}
}

func getVerifyOpts(opt ...Option) verifyOptions {
	opts := verifyDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithRequiredScope provides a scope the access token must carry for:
// Client.VerifyAccessToken
func WithRequiredScope(scope string) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifyOptions); ok {
			o.withRequiredScope = scope
		}
	}
}
