// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/connect/jwt"
)

// ClientCredentials authenticate the client to the provider's token and
// introspection endpoints.
type ClientCredentials struct {
	ClientID     string
	ClientSecret ClientSecret
}

// AccessTokenPolicy are the trust parameters for one access token
// verification.
type AccessTokenPolicy struct {
	// Issuer must equal the token's "iss" claim exactly. Opaque tokens are
	// introspected at Issuer + "/token/verify".
	Issuer string

	// Audience is the optional set of acceptable "aud" values.
	Audience []string

	// Key verifies the signature of self-contained tokens. See jwt.Decode for
	// the accepted key types.
	Key interface{}

	// RequiredScope is optional; when set the token's scope must contain it.
	RequiredScope string

	// Credentials authenticate introspection requests for opaque tokens.
	Credentials ClientCredentials
}

func (p AccessTokenPolicy) validate(selfContained bool) error {
	const op = "AccessTokenPolicy.validate"
	if p.Issuer == "" {
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	switch {
	case selfContained && p.Key == nil:
		return fmt.Errorf("%s: key is required to verify self-contained tokens: %w", op, ErrInvalidParameter)
	case !selfContained && p.Credentials.ClientID == "":
		return fmt.Errorf("%s: client credentials are required to introspect opaque tokens: %w", op, ErrInvalidParameter)
	}
	return nil
}

// IDTokenPolicy are the trust parameters for one id_token verification.
type IDTokenPolicy struct {
	// Issuer must equal the token's "iss" claim exactly.
	Issuer string

	// Audience is the client id which must be one of the token's audiences.
	Audience string

	// Key verifies the token's signature.
	Key interface{}

	// ExpectedAlg is the alg the token's header must declare. Defaults to
	// jwt.DefaultIDTokenAlg.
	ExpectedAlg jwt.Alg

	// Nonce is optional; when set the token's "nonce" claim must equal it.
	Nonce string
}

func (p IDTokenPolicy) validate() error {
	const op = "IDTokenPolicy.validate"
	switch {
	case p.Issuer == "":
		return fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	case p.Audience == "":
		return fmt.Errorf("%s: audience is empty: %w", op, ErrInvalidParameter)
	case p.Key == nil:
		return fmt.Errorf("%s: key is nil: %w", op, ErrNilParameter)
	}
	if p.ExpectedAlg != "" {
		if err := jwt.SupportedSigningAlgorithm(p.ExpectedAlg); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
		}
	}
	return nil
}

func (p IDTokenPolicy) expectedAlg() jwt.Alg {
	if p.ExpectedAlg == "" {
		return jwt.DefaultIDTokenAlg
	}
	return p.ExpectedAlg
}
