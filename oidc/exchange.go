// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	sdkHttp "github.com/hashicorp/connect/sdk/http"
)

// GrantType selects how Exchange obtains tokens from the token endpoint.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
)

// ClientAccessTokenScope is the scope ClientAccessToken requests: access to
// the provider's own administrative API.
const ClientAccessTokenScope = "realm"

// Grant holds the parameters of one token exchange.
type Grant struct {
	// Type defaults to GrantAuthorizationCode.
	Type GrantType

	// Code is the authorization code. When empty, it's taken from the "code"
	// parameter of CallbackURL.
	Code string

	// CallbackURL is the redirect the provider sent the user agent back to at
	// the end of the authorization request.
	CallbackURL string

	// State, when set, must equal the "state" parameter of CallbackURL.
	State string

	// RedirectURL overrides the Config's RedirectURL.
	RedirectURL string

	// Scope overrides the Config's scopes for client_credentials.
	Scope string

	// RefreshToken is required for GrantRefreshToken.
	RefreshToken RefreshToken

	// Nonce, when set, must equal the id_token's "nonce" claim.
	Nonce string
}

// exchange states, as logged
const (
	stateRequesting = "requesting"
	stateVerifying  = "verifying"
	stateVerified   = "verified"
	stateRejected   = "rejected"
)

// Exchange requests tokens from the provider's token endpoint and verifies
// them before returning the bundle.
//
// For an authorization_code grant both the id_token and the access_token are
// required and must verify. A client_credentials grant only carries an
// access_token; no id_token is expected or verified. A refresh_token grant
// re-verifies the new access_token, and the id_token when the provider
// returned one.
//
// The two verifications run concurrently. When both fail, the id_token
// rejection is returned. Token endpoint errors are ProviderError rejections;
// network failures and timeouts are TransportError rejections. Nothing is
// retried.
func (c *Client) Exchange(ctx context.Context, g Grant) (*TokenBundle, error) {
	const op = "Client.Exchange"
	if g.Type == "" {
		g.Type = GrantAuthorizationCode
	}
	logger := c.logger.With("op", op, "grant_type", g.Type)

	logger.Debug("token exchange", "state", stateRequesting)
	tk, err := c.requestToken(ctx, g)
	if err != nil {
		logger.Debug("token exchange", "state", stateRejected, "error", err)
		return nil, err
	}

	idToken, _ := tk.Extra("id_token").(string)
	bundle := &TokenBundle{
		AccessToken:  AccessToken(tk.AccessToken),
		IDToken:      IDToken(idToken),
		RefreshToken: RefreshToken(tk.RefreshToken),
		TokenType:    tk.TokenType,
		Expiry:       tk.Expiry,
	}
	verifyID := g.Type == GrantAuthorizationCode || (g.Type == GrantRefreshToken && idToken != "")

	logger.Debug("token exchange", "state", stateVerifying, "verify_id_token", verifyID)
	if err := c.verifyBundle(ctx, bundle, verifyID, g.Nonce); err != nil {
		logger.Debug("token exchange", "state", stateRejected, "error", err)
		return nil, err
	}
	logger.Debug("token exchange", "state", stateVerified)
	return bundle, nil
}

// Refresh exchanges a refresh token for a freshly verified access token.
func (c *Client) Refresh(ctx context.Context, rt RefreshToken) (*TokenBundle, error) {
	return c.Exchange(ctx, Grant{Type: GrantRefreshToken, RefreshToken: rt})
}

// ClientAccessToken obtains an access token for the client itself with the
// client_credentials grant and ClientAccessTokenScope.
func (c *Client) ClientAccessToken(ctx context.Context) (*TokenBundle, error) {
	return c.Exchange(ctx, Grant{Type: GrantClientCredentials, Scope: ClientAccessTokenScope})
}

// verifyBundle verifies the tokens concurrently and waits for both. The
// bundle's claim fields are each written by a single goroutine.
func (c *Client) verifyBundle(ctx context.Context, b *TokenBundle, verifyID bool, nonce string) error {
	var idErr, accessErr error
	g, gctx := errgroup.WithContext(ctx)
	if verifyID {
		g.Go(func() error {
			b.IDClaims, idErr = c.VerifyIDToken(string(b.IDToken), WithNonce(nonce))
			return idErr
		})
	}
	g.Go(func() error {
		b.AccessClaims, accessErr = c.VerifyAccessToken(gctx, string(b.AccessToken))
		return accessErr
	})
	_ = g.Wait()

	switch {
	case idErr != nil:
		return idErr
	case accessErr != nil:
		return accessErr
	}
	return nil
}

// requestToken performs the grant specific token endpoint request.
func (c *Client) requestToken(ctx context.Context, g Grant) (*oauth2.Token, error) {
	const op = "Client.requestToken"
	redirectURL := c.config.RedirectURL
	if g.RedirectURL != "" {
		redirectURL = g.RedirectURL
	}
	oauth2Config := oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: string(c.config.ClientSecret),
		RedirectURL:  redirectURL,
		Endpoint:     c.provider.endpoint(),
		Scopes:       c.config.Scopes,
	}

	var code string
	switch g.Type {
	case GrantAuthorizationCode:
		var err error
		if code, err = authorizationCode(g); err != nil {
			return nil, err
		}
		if redirectURL == "" {
			return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
		}
	case GrantRefreshToken:
		if g.RefreshToken == "" {
			return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
		}
	case GrantClientCredentials:
	default:
		return nil, fmt.Errorf("%s: unsupported grant type %q: %w", op, g.Type, ErrInvalidParameter)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()
	oidcCtx := sdkHttp.OidcClientContext(ctx, c.httpClient)

	var tk *oauth2.Token
	var err error
	switch g.Type {
	case GrantAuthorizationCode:
		tk, err = oauth2Config.Exchange(oidcCtx, code)
	case GrantRefreshToken:
		tk, err = oauth2Config.TokenSource(oidcCtx, &oauth2.Token{RefreshToken: string(g.RefreshToken)}).Token()
	case GrantClientCredentials:
		scope := c.config.Scope()
		if g.Scope != "" {
			scope = g.Scope
		}
		ccConfig := clientcredentials.Config{
			ClientID:     c.config.ClientID,
			ClientSecret: string(c.config.ClientSecret),
			TokenURL:     c.provider.TokenEndpoint,
			Scopes:       strings.Fields(scope),
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		tk, err = ccConfig.Token(oidcCtx)
	}
	if err != nil {
		return nil, tokenEndpointError(err)
	}
	if tk.AccessToken == "" {
		return nil, newRejection(KindInvalidToken, "An access token is required", nil)
	}
	return tk, nil
}

// authorizationCode returns the grant's code, taking it from the callback
// URL when needed. An error the provider reported in the callback is a
// ProviderError.
func authorizationCode(g Grant) (string, error) {
	const op = "authorizationCode"
	if g.Code != "" {
		return g.Code, nil
	}
	if g.CallbackURL == "" {
		return "", fmt.Errorf("%s: authorization code or callback URL is required: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(g.CallbackURL)
	if err != nil {
		return "", fmt.Errorf("%s: unable to parse callback URL: %w: %w", op, ErrInvalidParameter, err)
	}
	q := u.Query()
	if code := q.Get("error"); code != "" {
		return "", &Rejection{
			Kind:        KindProviderError,
			Code:        code,
			Description: q.Get("error_description"),
			StatusCode:  http.StatusBadRequest,
		}
	}
	if g.State != "" && q.Get("state") != g.State {
		return "", fmt.Errorf("%s: callback state doesn't match: %w", op, ErrInvalidParameter)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%s: callback URL has no code: %w", op, ErrInvalidParameter)
	}
	return code, nil
}

// tokenEndpointError classifies a failed token request: errors the provider
// asserted become ProviderError, everything else is a TransportError.
func tokenEndpointError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		if errors.Is(err, context.DeadlineExceeded) {
			return newTransportError("token request timed out", err)
		}
		return newTransportError("token request failed", err)
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if status >= http.StatusInternalServerError {
		return newTransportError(fmt.Sprintf("token endpoint returned %d", status), err)
	}
	code := re.ErrorCode
	if code == "" {
		code = "invalid_grant"
	}
	desc := re.ErrorDescription
	if desc == "" {
		desc = fmt.Sprintf("token endpoint returned %d", status)
	}
	if status == 0 {
		status = http.StatusBadRequest
	}
	return &Rejection{
		Kind:        KindProviderError,
		Code:        code,
		Description: desc,
		StatusCode:  status,
		Wrapped:     err,
	}
}
