// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"encoding/json"
	"strings"

	josejwt "github.com/go-jose/go-jose/v4/jwt"
)

// Registered claim names used by access tokens and id_tokens.
const (
	ClaimID        = "jti"
	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimAudience  = "aud"
	ClaimIssuedAt  = "iat"
	ClaimExpiry    = "exp"
	ClaimNotBefore = "nbf"
	ClaimScope     = "scope"
	ClaimNonce     = "nonce"
	ClaimACR       = "acr"
	ClaimAtHash    = "at_hash"
)

// Claims is the decoded payload of a token. Numeric claims are held as
// json.Number so integer seconds survive decoding without float rounding.
//
// A Claims value returned by Decode must be treated as read-only; callers
// that need to modify claims should Clone them first.
type Claims map[string]interface{}

// Clone returns a shallow copy of the claims.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func (c Claims) str(name string) string {
	s, _ := c[name].(string)
	return s
}

// ID returns the "jti" claim.
func (c Claims) ID() string { return c.str(ClaimID) }

// Issuer returns the "iss" claim.
func (c Claims) Issuer() string { return c.str(ClaimIssuer) }

// Subject returns the "sub" claim.
func (c Claims) Subject() string { return c.str(ClaimSubject) }

// Scope returns the space-delimited "scope" claim.
func (c Claims) Scope() string { return c.str(ClaimScope) }

// Nonce returns the "nonce" claim.
func (c Claims) Nonce() string { return c.str(ClaimNonce) }

// ACR returns the "acr" claim.
func (c Claims) ACR() string { return c.str(ClaimACR) }

// AtHash returns the "at_hash" claim.
func (c Claims) AtHash() string { return c.str(ClaimAtHash) }

// Scopes returns the "scope" claim split on whitespace.
func (c Claims) Scopes() []string { return strings.Fields(c.Scope()) }

// HasScope reports whether scope appears as a whitespace-delimited token of
// the "scope" claim.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// Audience returns the "aud" claim as a list, whether it was encoded as a
// single string or as an array. It's nil when the claim is absent or has any
// other shape.
func (c Claims) Audience() []string {
	aud, err := c.audience()
	if err != nil {
		return nil
	}
	return aud
}

// HasAudience reports whether aud is one of the token's audiences.
func (c Claims) HasAudience(aud string) bool {
	auds, err := c.audience()
	if err != nil {
		return false
	}
	return auds.Contains(aud)
}

func (c Claims) audience() (josejwt.Audience, error) {
	v, ok := c[ClaimAudience]
	if !ok {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var aud josejwt.Audience
	if err := aud.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return aud, nil
}

// Expiry returns the "exp" claim in seconds since the epoch. ok is false when
// the claim is absent or not a number.
func (c Claims) Expiry() (exp int64, ok bool) { return c.numeric(ClaimExpiry) }

// IssuedAt returns the "iat" claim in seconds since the epoch.
func (c Claims) IssuedAt() (iat int64, ok bool) { return c.numeric(ClaimIssuedAt) }

func (c Claims) numeric(name string) (int64, bool) {
	d, ok := c.numericDate(name)
	if !ok {
		return 0, false
	}
	return int64(d), true
}

// numericDate reads a NumericDate claim. Integer json.Numbers are read
// exactly; fractional seconds are truncated.
func (c Claims) numericDate(name string) (josejwt.NumericDate, bool) {
	switch v := c[name].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return josejwt.NumericDate(i), true
		}
		var d josejwt.NumericDate
		if err := d.UnmarshalJSON([]byte(v)); err != nil {
			return 0, false
		}
		return d, true
	case float64:
		return josejwt.NumericDate(v), true
	case int64:
		return josejwt.NumericDate(v), true
	case int:
		return josejwt.NumericDate(v), true
	default:
		return 0, false
	}
}
