// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/connect/sdk/id"
)

// Schema describes the claims a kind of token must carry.
type Schema struct {
	// Name is used in error messages.
	Name string

	// Required claims must be present and well formed.
	Required []string

	// defaults fills in absent claims when a token is issued.
	defaults func(c Claims, now time.Time) error
}

// AccessTokenSchema is the schema of a self-contained access token. A "jti"
// is generated when one is issued without it.
var AccessTokenSchema = Schema{
	Name:     "access_token",
	Required: []string{ClaimIssuer, ClaimSubject, ClaimAudience, ClaimIssuedAt, ClaimExpiry, ClaimScope},
	defaults: func(c Claims, now time.Time) error {
		if _, ok := c[ClaimID]; !ok {
			jti, err := id.New("")
			if err != nil {
				return err
			}
			c[ClaimID] = jti
		}
		if _, ok := c[ClaimIssuedAt]; !ok {
			c[ClaimIssuedAt] = now.Unix()
		}
		return nil
	},
}

// IDTokenSchema is the schema of an OIDC id_token. When issuing, "exp"
// defaults to one day after "iat".
var IDTokenSchema = Schema{
	Name:     "id_token",
	Required: []string{ClaimIssuer, ClaimSubject, ClaimAudience, ClaimIssuedAt, ClaimExpiry},
	defaults: func(c Claims, now time.Time) error {
		if _, ok := c[ClaimIssuedAt]; !ok {
			c[ClaimIssuedAt] = now.Unix()
		}
		if _, ok := c[ClaimExpiry]; !ok {
			c[ClaimExpiry] = now.Add(24 * time.Hour).Unix()
		}
		return nil
	},
}

// IntrospectionSchema is the minimum a provider must assert about an opaque
// token for its claims to be checked.
var IntrospectionSchema = Schema{
	Name:     "introspection",
	Required: []string{ClaimIssuer, ClaimExpiry},
}

var (
	stringClaims  = []string{ClaimID, ClaimIssuer, ClaimSubject, ClaimScope, ClaimNonce, ClaimACR, ClaimAtHash}
	numericClaims = []string{ClaimIssuedAt, ClaimExpiry, ClaimNotBefore}
)

// Validate checks that every required claim is present and that registered
// claims have the expected shape.
func (s Schema) Validate(c Claims) error {
	const op = "jwt.(Schema).Validate"
	for _, name := range s.Required {
		if _, ok := c[name]; !ok {
			return fmt.Errorf("%s: %s %q: %w", op, s.Name, name, ErrMissingClaim)
		}
	}
	for _, name := range stringClaims {
		if v, ok := c[name]; ok {
			if _, isStr := v.(string); !isStr {
				return fmt.Errorf("%s: %s %q must be a string: %w", op, s.Name, name, ErrInvalidClaim)
			}
		}
	}
	for _, name := range numericClaims {
		if _, ok := c[name]; ok {
			if _, isNum := c.numeric(name); !isNum {
				return fmt.Errorf("%s: %s %q must be a number: %w", op, s.Name, name, ErrInvalidClaim)
			}
			if n, isNumber := c[name].(json.Number); isNumber {
				if _, err := n.Int64(); err != nil {
					return fmt.Errorf("%s: %s %q must be an integer: %w", op, s.Name, name, ErrInvalidClaim)
				}
			}
		}
	}
	if _, ok := c[ClaimAudience]; ok {
		aud, err := c.audience()
		switch {
		case err != nil:
			return fmt.Errorf("%s: %s %q must be a string or list of strings: %w", op, s.Name, ClaimAudience, ErrInvalidClaim)
		case len(aud) == 0:
			return fmt.Errorf("%s: %s %q is an empty list: %w", op, s.Name, ClaimAudience, ErrInvalidClaim)
		}
	}
	return nil
}
