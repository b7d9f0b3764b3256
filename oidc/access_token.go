// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc/internal/strutils"
)

// AccessTokenVerifier decides whether an access token may be trusted.
// Self-contained tokens are verified offline with the policy's key; opaque
// tokens are sent to the issuer's introspection endpoint. Either way the
// resulting claims are checked against the same policy.
//
// An AccessTokenVerifier holds no mutable state and is safe for concurrent
// use.
type AccessTokenVerifier struct {
	introspector *Introspector
	clock        Clock
	logger       hclog.Logger
}

// NewAccessTokenVerifier creates an AccessTokenVerifier.
//
// Supported options: WithIntrospector, WithClock, WithLogger
func NewAccessTokenVerifier(opt ...Option) (*AccessTokenVerifier, error) {
	const op = "NewAccessTokenVerifier"
	opts := getVerifierOpts(opt...)
	i := opts.withIntrospector
	if i == nil {
		var err error
		if i, err = NewIntrospector(WithLogger(opts.withLogger)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &AccessTokenVerifier{
		introspector: i,
		clock:        opts.withClock,
		logger:       opts.withLogger,
	}, nil
}

// Verify returns the token's claims when it satisfies the policy. Expected
// validation failures are returned as a *Rejection; an invalid policy is
// reported as ErrInvalidParameter.
//
// Checks are applied in order and the first failure wins: issuer, audience,
// expiry, scope.
func (v *AccessTokenVerifier) Verify(ctx context.Context, raw string, p AccessTokenPolicy) (jwt.Claims, error) {
	const op = "AccessTokenVerifier.Verify"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, newRejection(KindInvalidToken, "An access token is required", nil)
	}
	selfContained := jwt.IsSelfContained(raw)
	if err := p.validate(selfContained); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var claims jwt.Claims
	if selfContained {
		tk, err := jwt.Decode(raw, p.Key, jwt.WithSchema(jwt.AccessTokenSchema))
		if err != nil {
			v.logger.Debug("unable to decode access token", "op", op, "error", err)
			return nil, newRejection(KindInvalidToken, "Invalid access token", err)
		}
		claims = tk.Claims
	} else {
		var err error
		claims, err = v.introspector.Introspect(ctx, p.Issuer, p.Credentials, raw)
		if err != nil {
			return nil, err
		}
	}

	if err := v.checkPolicy(claims, p); err != nil {
		v.logger.Debug("access token rejected", "op", op, "kind", err.Kind, "self_contained", selfContained)
		return nil, err
	}
	return claims, nil
}

func (v *AccessTokenVerifier) checkPolicy(claims jwt.Claims, p AccessTokenPolicy) *Rejection {
	if claims.Issuer() != p.Issuer {
		return newRejection(KindMismatchingIssuer, "Mismatching issuer", nil)
	}
	if len(p.Audience) > 0 && !audienceAccepted(claims, p.Audience) {
		return newRejection(KindMismatchingAudience, "Mismatching audience", nil)
	}
	exp, ok := claims.Expiry()
	if !ok || exp < v.clock.Unix() {
		return newRejection(KindExpiredToken, "Expired access token", nil)
	}
	if p.RequiredScope != "" && !claims.HasScope(p.RequiredScope) {
		return newRejection(KindInsufficientScope, "Insufficient scope", nil)
	}
	return nil
}

// audienceAccepted reports whether any of the token's audiences is an
// acceptable one.
func audienceAccepted(claims jwt.Claims, acceptable []string) bool {
	for _, aud := range claims.Audience() {
		if strutils.StrListContains(acceptable, aud) {
			return true
		}
	}
	return false
}

// verifierOptions is the set of available options for AccessTokenVerifier
// and IDTokenVerifier
type verifierOptions struct {
	withIntrospector *Introspector
	withClock        Clock
	withLogger       hclog.Logger
}

// verifierDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func verifierDefaults() verifierOptions {
	return verifierOptions{
		withClock:  Clock(nil),
		withLogger: hclog.NewNullLogger(),
	}
}

func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithIntrospector provides the Introspector an AccessTokenVerifier uses
// for opaque tokens.
func WithIntrospector(i *Introspector) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok && i != nil {
			o.withIntrospector = i
		}
	}
}
