// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/oauth2"

	"github.com/hashicorp/connect/jwt"
	sdkHttp "github.com/hashicorp/connect/sdk/http"
)

// SignoutPath is the provider's session termination endpoint, relative to
// the authorization endpoint's origin. It's used when discovery doesn't
// advertise an end_session_endpoint.
const SignoutPath = "/signout"

// ProviderConfiguration is the subset of the provider's discovery document
// the client relies on.
//
// See: https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type ProviderConfiguration struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RegistrationEndpoint  string `json:"registration_endpoint,omitempty"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri"`

	// IDTokenSigningAlgs are the algs the provider may sign id_tokens with.
	IDTokenSigningAlgs []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// Discover fetches {issuer}/.well-known/openid-configuration. The document's
// issuer must match the requested one.
func Discover(ctx context.Context, issuer string, client *http.Client) (*ProviderConfiguration, error) {
	const op = "Discover"
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if client == nil {
		return nil, fmt.Errorf("%s: http client is nil: %w", op, ErrNilParameter)
	}
	p, err := oidc.NewProvider(sdkHttp.OidcClientContext(ctx, client), issuer) // makes http req to issuer for discovery
	if err != nil {
		if strings.Contains(err.Error(), "did not match the issuer") {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidIssuer, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrDiscoveryFailed, err)
	}
	var pc ProviderConfiguration
	if err := p.Claims(&pc); err != nil {
		return nil, fmt.Errorf("%s: unable to decode discovery document: %w: %w", op, ErrDiscoveryFailed, err)
	}
	return &pc, nil
}

// Validate returns an error when an endpoint the client needs is missing.
func (pc *ProviderConfiguration) Validate() error {
	const op = "ProviderConfiguration.Validate"
	switch {
	case pc == nil:
		return fmt.Errorf("%s: provider configuration is nil: %w", op, ErrNilParameter)
	case pc.Issuer == "":
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	case pc.TokenEndpoint == "":
		return fmt.Errorf("%s: token_endpoint: %w", op, ErrMissingEndpoint)
	}
	return nil
}

// endpoint returns the oauth2 endpoints of the provider. Client credentials
// are always sent with HTTP Basic auth.
func (pc *ProviderConfiguration) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   pc.AuthorizationEndpoint,
		TokenURL:  pc.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

// signoutEndpoint returns the end_session_endpoint or, failing that,
// SignoutPath at the authorization endpoint's origin.
func (pc *ProviderConfiguration) signoutEndpoint() (string, error) {
	const op = "ProviderConfiguration.signoutEndpoint"
	if pc.EndSessionEndpoint != "" {
		return pc.EndSessionEndpoint, nil
	}
	base := pc.AuthorizationEndpoint
	if base == "" {
		base = pc.Issuer
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%s: unable to derive signout endpoint: %w", op, ErrMissingEndpoint)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: SignoutPath}).String(), nil
}

// oidcProvider builds a go-oidc provider from the configuration without a
// second discovery round trip.
func (pc *ProviderConfiguration) oidcProvider(ctx context.Context) *oidc.Provider {
	return (&oidc.ProviderConfig{
		IssuerURL:   pc.Issuer,
		AuthURL:     pc.AuthorizationEndpoint,
		TokenURL:    pc.TokenEndpoint,
		UserInfoURL: pc.UserinfoEndpoint,
		JWKSURL:     pc.JWKSURI,
		Algorithms:  pc.IDTokenSigningAlgs,
	}).NewProvider(ctx)
}

// FetchSigningKey downloads the provider's JSON Web Key Set and returns its
// active verification key.
func FetchSigningKey(ctx context.Context, jwksURI string, client *http.Client) (*jose.JSONWebKey, error) {
	const op = "FetchSigningKey"
	if jwksURI == "" {
		return nil, fmt.Errorf("%s: jwks_uri: %w", op, ErrMissingEndpoint)
	}
	if client == nil {
		return nil, fmt.Errorf("%s: http client is nil: %w", op, ErrNilParameter)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeysFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: jwks endpoint returned %d: %w", op, resp.StatusCode, ErrKeysFailed)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectionBody))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeysFailed, err)
	}
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%s: unable to decode key set: %w: %w", op, ErrKeysFailed, err)
	}
	key, err := jwt.SigningKey(&set)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeysFailed, err)
	}
	return key, nil
}
