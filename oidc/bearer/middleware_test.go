// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bearer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc"
)

type verifierFunc func(ctx context.Context, raw string, opt ...oidc.Option) (jwt.Claims, error)

func (f verifierFunc) VerifyAccessToken(ctx context.Context, raw string, opt ...oidc.Option) (jwt.Claims, error) {
	return f(ctx, raw, opt...)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	pub, priv := oidc.TestGenerateKeys(t, jwt.RS256)
	cfg, err := oidc.NewConfig("https://idp.example", "client1", "secret", "")
	require.NoError(t, err)
	client, err := oidc.NewClient(context.Background(), cfg,
		oidc.WithProviderConfiguration(&oidc.ProviderConfiguration{
			Issuer:        "https://idp.example",
			TokenEndpoint: "https://idp.example/token",
		}),
		oidc.WithSigningKey(pub),
	)
	require.NoError(t, err)

	sign := func(iss string, exp time.Time) string {
		return oidc.TestSignJWT(t, priv, jwt.RS256, jwt.Claims{
			jwt.ClaimIssuer:   iss,
			jwt.ClaimSubject:  "u1",
			jwt.ClaimAudience: "client1",
			jwt.ClaimScope:    "openid profile",
			jwt.ClaimExpiry:   exp.Unix(),
		}, jwt.WithSchema(jwt.AccessTokenSchema))
	}
	valid := sign("https://idp.example", time.Now().Add(time.Hour))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(claims.Subject()))
	})

	tests := []struct {
		name          string
		verifier      Verifier
		opt           []Option
		auth          string
		target        string
		wantStatus    int
		wantCode      string
		wantChallenge string
		wantBody      string
	}{
		{
			name:       "valid",
			verifier:   client,
			auth:       "Bearer " + valid,
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:       "valid-with-scope",
			verifier:   client,
			opt:        []Option{WithRequiredScope("profile")},
			auth:       "Bearer " + valid,
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:          "missing-token",
			verifier:      client,
			wantStatus:    http.StatusBadRequest,
			wantCode:      "invalid_request",
			wantChallenge: `Bearer realm="user", error="invalid_request", error_description="An access token is required"`,
		},
		{
			name:       "ambiguous-token",
			verifier:   client,
			auth:       "Bearer " + valid,
			target:     "/?access_token=abc123",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:          "malformed-token",
			verifier:      client,
			auth:          "Bearer a.b.c",
			wantStatus:    http.StatusUnauthorized,
			wantCode:      "invalid_token",
			wantChallenge: `Bearer realm="user", error="invalid_token", error_description="Invalid access token"`,
		},
		{
			name:       "expired",
			verifier:   client,
			auth:       "Bearer " + sign("https://idp.example", time.Now().Add(-time.Minute)),
			wantStatus: http.StatusForbidden,
			wantCode:   "invalid_token",
		},
		{
			name:       "foreign-issuer",
			verifier:   client,
			auth:       "Bearer " + sign("https://evil.example", time.Now().Add(time.Hour)),
			wantStatus: http.StatusForbidden,
			wantCode:   "invalid_token",
		},
		{
			name:          "insufficient-scope",
			verifier:      client,
			opt:           []Option{WithRequiredScope("admin"), WithRealm("api")},
			auth:          "Bearer " + valid,
			wantStatus:    http.StatusForbidden,
			wantCode:      "insufficient_scope",
			wantChallenge: `Bearer realm="api", error="insufficient_scope", error_description="Insufficient scope", scope="admin"`,
		},
		{
			name: "provider-error",
			verifier: verifierFunc(func(context.Context, string, ...oidc.Option) (jwt.Claims, error) {
				return nil, &oidc.Rejection{Kind: oidc.KindProviderError, Code: "invalid_token", Description: "revoked", StatusCode: http.StatusForbidden}
			}),
			auth:       "Bearer abc123",
			wantStatus: http.StatusForbidden,
			wantCode:   "invalid_token",
		},
		{
			name: "transport-error",
			verifier: verifierFunc(func(context.Context, string, ...oidc.Option) (jwt.Claims, error) {
				return nil, &oidc.Rejection{Kind: oidc.KindTransportError, Code: "temporarily_unavailable", Description: "timed out"}
			}),
			auth:       "Bearer abc123",
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "temporarily_unavailable",
		},
		{
			name: "unexpected-error",
			verifier: verifierFunc(func(context.Context, string, ...oidc.Option) (jwt.Claims, error) {
				return nil, errors.New("boom")
			}),
			auth:       "Bearer abc123",
			wantStatus: http.StatusInternalServerError,
			wantCode:   "server_error",
		},
		{
			name: "header-only",
			verifier: verifierFunc(func(_ context.Context, raw string, _ ...oidc.Option) (jwt.Claims, error) {
				return jwt.Claims{jwt.ClaimSubject: raw}, nil
			}),
			opt:        []Option{WithStrategies(FromHeader)},
			auth:       "Bearer abc123",
			target:     "/?access_token=def",
			wantStatus: http.StatusOK,
			wantBody:   "abc123",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			target := tt.target
			if target == "" {
				target = "/"
			}
			r := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			Middleware(tt.verifier, tt.opt...)(next).ServeHTTP(w, r)

			require.Equal(tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(tt.wantBody, w.Body.String())
				assert.Empty(w.Header().Get("WWW-Authenticate"))
				return
			}
			if tt.wantChallenge != "" {
				assert.Equal(tt.wantChallenge, w.Header().Get("WWW-Authenticate"))
			} else {
				assert.Contains(w.Header().Get("WWW-Authenticate"), `error="`+tt.wantCode+`"`)
			}
			var body errorBody
			require.NoError(json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(tt.wantCode, body.Error)
		})
	}
}

func TestContextWithClaims(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	_, ok := ClaimsFromContext(context.Background())
	assert.False(ok)

	ctx := ContextWithClaims(context.Background(), jwt.Claims{jwt.ClaimSubject: "u1"})
	c, ok := ClaimsFromContext(ctx)
	assert.True(ok)
	assert.Equal("u1", c.Subject())
}
