// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/connect/jwt"
)

// IDTokenVerifier verifies id_tokens returned by an authorization code
// exchange. It's stateless and safe for concurrent use.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
type IDTokenVerifier struct {
	clock  Clock
	logger hclog.Logger
}

// NewIDTokenVerifier creates an IDTokenVerifier.
//
// Supported options: WithClock, WithLogger
func NewIDTokenVerifier(opt ...Option) *IDTokenVerifier {
	opts := getVerifierOpts(opt...)
	return &IDTokenVerifier{
		clock:  opts.withClock,
		logger: opts.withLogger,
	}
}

// Verify decodes the id_token and checks, in order: issuer, audience,
// signing algorithm, expiry and (when the policy has one) nonce. Expected
// validation failures are returned as a *Rejection.
func (v *IDTokenVerifier) Verify(raw string, p IDTokenPolicy) (*jwt.Token, error) {
	const op = "IDTokenVerifier.Verify"
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if raw == "" {
		return nil, newRejection(KindInvalidToken, "Invalid ID Token", ErrMissingIdToken)
	}

	tk, err := jwt.Decode(raw, p.Key, jwt.WithSchema(jwt.IDTokenSchema))
	if err != nil {
		v.logger.Debug("unable to decode id_token", "op", op, "error", err)
		return nil, newRejection(KindInvalidToken, "Invalid ID Token", err)
	}

	claims := tk.Claims
	alg := p.expectedAlg()
	var rej *Rejection
	switch exp, _ := claims.Expiry(); {
	case claims.Issuer() != p.Issuer:
		rej = newRejection(KindMismatchingIssuer, "Mismatching issuer", nil)
	case !claims.HasAudience(p.Audience):
		rej = newRejection(KindMismatchingAudience, "Mismatching audience", nil)
	case tk.Header.Algorithm != alg:
		rej = newRejection(KindMismatchingAlgorithm, fmt.Sprintf("Expected %s signature", alg), nil)
	case exp < v.clock.Unix():
		rej = newRejection(KindExpiredToken, "Expired token", nil)
	case p.Nonce != "" && claims.Nonce() != p.Nonce:
		rej = newRejection(KindInvalidToken, "Mismatching nonce", nil)
	}
	if rej != nil {
		v.logger.Debug("id_token rejected", "op", op, "kind", rej.Kind)
		return nil, rej
	}
	return tk, nil
}
