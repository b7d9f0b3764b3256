// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/hashicorp/connect/jwt"
	sdkHttp "github.com/hashicorp/connect/sdk/http"
)

// IntrospectionPath is appended to the issuer to form the provider's token
// verification endpoint.
const IntrospectionPath = "/token/verify"

// maxIntrospectionBody bounds how much of a provider response is read.
const maxIntrospectionBody = 1 << 20

// Introspector asks the issuer to verify opaque access tokens.
type Introspector struct {
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  hclog.Logger
}

// NewIntrospector creates an Introspector.
//
// Supported options: WithHTTPClient, WithTimeout, WithIntrospectionRateLimit,
// WithLogger
func NewIntrospector(opt ...Option) (*Introspector, error) {
	const op = "NewIntrospector"
	opts := getIntrospectorOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = sdkHttp.NewClient("", opts.withTimeout); err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	i := &Introspector{
		client:  client,
		timeout: opts.withTimeout,
		logger:  opts.withLogger,
	}
	if opts.withRateLimit > 0 {
		i.limiter = rate.NewLimiter(opts.withRateLimit, opts.withRateBurst)
	}
	return i, nil
}

// introspectionRequest is the body POSTed to the verification endpoint.
type introspectionRequest struct {
	AccessToken string `json:"access_token"`
}

// Introspect submits the token to {issuer}/token/verify, authenticating with
// the client credentials, and returns the claims the provider asserts.
//
// An error asserted by the provider is a ProviderError rejection. Network
// failures, timeouts and unreadable responses are TransportError rejections
// carrying the underlying cause.
func (i *Introspector) Introspect(ctx context.Context, issuer string, creds ClientCredentials, token string) (jwt.Claims, error) {
	const op = "Introspector.Introspect"
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, newTransportError("introspection rate limit wait failed", err)
		}
	}

	body, err := json.Marshal(introspectionRequest{AccessToken: token})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	// an issuer may be configured with a trailing slash; the endpoint
	// must not end up with "//token/verify"
	endpoint := strings.TrimSuffix(issuer, "/") + IntrospectionPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.SetBasicAuth(creds.ClientID, string(creds.ClientSecret))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		i.logger.Warn("introspection request failed", "op", op, "endpoint", endpoint, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newTransportError("introspection request timed out", err)
		}
		return nil, newTransportError("introspection request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectionBody))
	if err != nil {
		return nil, newTransportError("unable to read introspection response", err)
	}
	return i.parseResponse(resp.StatusCode, raw)
}

func (i *Introspector) parseResponse(status int, raw []byte) (jwt.Claims, error) {
	const op = "Introspector.parseResponse"
	if status >= http.StatusInternalServerError {
		return nil, newTransportError(fmt.Sprintf("introspection endpoint returned %d", status), nil)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var claims jwt.Claims
	decodeErr := dec.Decode(&claims)
	if decodeErr == nil {
		if code, _ := claims["error"].(string); code != "" {
			desc, _ := claims["error_description"].(string)
			if desc == "" {
				desc = "the provider rejected the token"
			}
			// the provider's 401 means the token is unknown to it; any other
			// assertion is treated as a policy rejection.
			rejStatus := http.StatusForbidden
			if status == http.StatusUnauthorized {
				rejStatus = http.StatusUnauthorized
			}
			i.logger.Debug("provider rejected opaque token", "op", op, "error", code, "status", status)
			return nil, &Rejection{
				Kind:        KindProviderError,
				Code:        code,
				Description: desc,
				StatusCode:  rejStatus,
			}
		}
	}
	switch {
	case status >= http.StatusBadRequest:
		return nil, &Rejection{
			Kind:        KindProviderError,
			Code:        KindInvalidToken.OAuthCode(),
			Description: fmt.Sprintf("introspection endpoint returned %d", status),
			StatusCode:  status,
		}
	case decodeErr != nil:
		return nil, newTransportError("unable to decode introspection response", decodeErr)
	case claims == nil:
		return nil, newTransportError("introspection response is empty", nil)
	}
	if err := jwt.IntrospectionSchema.Validate(claims); err != nil {
		return nil, newRejection(KindInvalidToken, "introspection response is incomplete", err)
	}
	return claims, nil
}

// introspectorOptions is the set of available options for Introspector
type introspectorOptions struct {
	withHTTPClient *http.Client
	withTimeout    time.Duration
	withRateLimit  rate.Limit
	withRateBurst  int
	withLogger     hclog.Logger
}

// introspectorDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func introspectorDefaults() introspectorOptions {
	return introspectorOptions{
		withTimeout: sdkHttp.DefaultTimeout,
		withLogger:  hclog.NewNullLogger(),
	}
}

func getIntrospectorOpts(opt ...Option) introspectorOptions {
	opts := introspectorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithIntrospectionRateLimit bounds the rate of introspection requests sent
// to the provider for: Introspector, Client. Requests wait for a slot until
// their deadline; a wait that can't be satisfied is a TransportError.
func WithIntrospectionRateLimit(perSecond float64, burst int) Option {
	return func(o interface{}) {
		if burst < 1 {
			burst = 1
		}
		switch v := o.(type) {
		case *introspectorOptions:
			v.withRateLimit = rate.Limit(perSecond)
			v.withRateBurst = burst
		case *clientOptions:
			v.withRateLimit = rate.Limit(perSecond)
			v.withRateBurst = burst
		}
	}
}
