// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaims_Audience(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		aud  interface{}
		want []string
	}{
		{name: "string", aud: "client1", want: []string{"client1"}},
		{name: "string-list", aud: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "decoded-list", aud: []interface{}{"a", "b"}, want: []string{"a", "b"}},
		{name: "mixed-list", aud: []interface{}{"a", 1, "b"}, want: nil},
		{name: "missing", aud: nil, want: nil},
		{name: "wrong-type", aud: 42, want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Claims{}
			if tt.aud != nil {
				c[ClaimAudience] = tt.aud
			}
			assert.Equal(t, tt.want, c.Audience())
		})
	}
}

func TestClaims_HasAudience(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := Claims{ClaimAudience: []interface{}{"a", "client1"}}
	assert.True(c.HasAudience("client1"))
	assert.False(c.HasAudience("client"))
	assert.False(Claims{}.HasAudience(""))
	assert.False(Claims{ClaimAudience: []interface{}{"client1", 1}}.HasAudience("client1"))
}

func TestClaims_HasScope(t *testing.T) {
	t.Parallel()
	c := Claims{ClaimScope: "openid  profile\temail"}
	tests := []struct {
		scope string
		want  bool
	}{
		{scope: "openid", want: true},
		{scope: "profile", want: true},
		{scope: "email", want: true},
		{scope: "prof", want: false},
		{scope: "admin", want: false},
		{scope: "openid profile", want: false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, c.HasScope(tt.scope), "scope %q", tt.scope)
	}
	assert.Equal(t, []string{"openid", "profile", "email"}, c.Scopes())
	assert.False(t, Claims{}.HasScope("openid"))
}

func TestClaims_Numeric(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		exp    interface{}
		want   int64
		wantOk bool
	}{
		{name: "json-number", exp: json.Number("1700000000"), want: 1700000000, wantOk: true},
		{name: "json-number-float", exp: json.Number("1700000000.5"), want: 1700000000, wantOk: true},
		{name: "json-number-exponent", exp: json.Number("1.7e9"), want: 1700000000, wantOk: true},
		{name: "float64", exp: float64(1700000000), want: 1700000000, wantOk: true},
		{name: "int64", exp: int64(1700000000), want: 1700000000, wantOk: true},
		{name: "int", exp: 1700000000, want: 1700000000, wantOk: true},
		{name: "string", exp: "1700000000"},
		{name: "bad-number", exp: json.Number("soon")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Claims{ClaimExpiry: tt.exp}.Expiry()
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	_, ok := Claims{}.IssuedAt()
	assert.False(t, ok)
}

func TestClaims_Clone(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := Claims{ClaimIssuer: "iss"}
	cp := c.Clone()
	cp[ClaimIssuer] = "other"
	assert.Equal("iss", c.Issuer())
	assert.Equal("other", cp.Issuer())
}

func TestClaims_Accessors(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := Claims{
		ClaimID:      "jti",
		ClaimSubject: "sub",
		ClaimNonce:   "nonce",
		ClaimACR:     "acr",
		ClaimAtHash:  "hash",
		ClaimIssuer:  42,
	}
	assert.Equal("jti", c.ID())
	assert.Equal("sub", c.Subject())
	assert.Equal("nonce", c.Nonce())
	assert.Equal("acr", c.ACR())
	assert.Equal("hash", c.AtHash())
	assert.Empty(c.Issuer())
}
