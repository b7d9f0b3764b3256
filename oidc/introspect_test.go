// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/connect/jwt"
)

func TestIntrospector_Introspect(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	clientID, clientSecret := tp.ClientCreds()
	creds := ClientCredentials{ClientID: clientID, ClientSecret: clientSecret}

	tp.AddOpaqueToken("abc123", tp.AccessTokenClaims("openid profile"))
	incomplete := tp.AccessTokenClaims("openid")
	delete(incomplete, jwt.ClaimExpiry)
	tp.AddOpaqueToken("incomplete", incomplete)

	i, err := NewIntrospector(WithHTTPClient(tp.HTTPClient()))
	require.NoError(t, err)

	tests := []struct {
		name       string
		issuer     string
		creds      ClientCredentials
		token      string
		wantErr    error
		wantKind   Kind
		wantCode   string
		wantStatus int
	}{
		{
			name:   "valid",
			issuer: tp.Addr(),
			creds:  creds,
			token:  "abc123",
		},
		{
			name:   "issuer-with-trailing-slash",
			issuer: tp.Addr() + "/",
			creds:  creds,
			token:  "abc123",
		},
		{
			name:       "unknown-token",
			issuer:     tp.Addr(),
			creds:      creds,
			token:      "not-issued",
			wantKind:   KindProviderError,
			wantCode:   "invalid_token",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "bad-credentials",
			issuer:     tp.Addr(),
			creds:      ClientCredentials{ClientID: clientID, ClientSecret: "wrong"},
			token:      "abc123",
			wantKind:   KindProviderError,
			wantCode:   "invalid_client",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "incomplete-response",
			issuer:     tp.Addr(),
			creds:      creds,
			token:      "incomplete",
			wantKind:   KindInvalidToken,
			wantCode:   "invalid_token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "missing-issuer",
			creds:   creds,
			token:   "abc123",
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "missing-client-id",
			issuer:  tp.Addr(),
			token:   "abc123",
			wantErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			claims, err := i.Introspect(context.Background(), tt.issuer, tt.creds, tt.token)
			switch {
			case tt.wantErr != nil:
				require.Error(err)
				assert.ErrorIs(err, tt.wantErr)
				return
			case tt.wantKind != "":
				require.Error(err)
				rej, ok := AsRejection(err)
				require.True(ok)
				assert.Equal(tt.wantKind, rej.Kind)
				assert.Equal(tt.wantCode, rej.Code)
				assert.Equal(tt.wantStatus, rej.StatusCode)
				return
			}
			require.NoError(err)
			assert.Equal(tp.Addr(), claims.Issuer())
			assert.True(claims.HasScope("profile"))
			_, ok := claims.Expiry()
			assert.True(ok)
		})
	}
}

func TestIntrospector_ResponseClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantStatus int
	}{
		{name: "server-error", status: http.StatusBadGateway, body: "upstream down", wantKind: KindTransportError},
		{name: "server-error-with-body", status: http.StatusServiceUnavailable, body: `{"error":"temporarily_unavailable"}`, wantKind: KindTransportError},
		{name: "error-body", status: http.StatusBadRequest, body: `{"error":"invalid_token","error_description":"revoked"}`, wantKind: KindProviderError, wantStatus: http.StatusForbidden},
		{name: "client-error-without-body", status: http.StatusNotFound, body: "", wantKind: KindProviderError, wantStatus: http.StatusNotFound},
		{name: "undecodable", status: http.StatusOK, body: "not json", wantKind: KindTransportError},
		{name: "empty-object", status: http.StatusOK, body: "null", wantKind: KindTransportError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(IntrospectionPath, r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			i, err := NewIntrospector(WithHTTPClient(srv.Client()))
			require.NoError(err)
			_, err = i.Introspect(context.Background(), srv.URL, ClientCredentials{ClientID: "c", ClientSecret: "s"}, "abc123")
			require.Error(err)
			rej, ok := AsRejection(err)
			require.True(ok)
			assert.Equal(tt.wantKind, rej.Kind)
			assert.Equal(tt.wantStatus, rej.StatusCode)
		})
	}
}

func TestIntrospector_Timeout(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	tp.AddOpaqueToken("abc123", tp.AccessTokenClaims("openid"))
	tp.SetResponseDelay(2 * time.Second)
	clientID, clientSecret := tp.ClientCreds()

	i, err := NewIntrospector(WithHTTPClient(tp.HTTPClient()), WithTimeout(50*time.Millisecond))
	require.NoError(err)
	_, err = i.Introspect(context.Background(), tp.Addr(), ClientCredentials{ClientID: clientID, ClientSecret: clientSecret}, "abc123")
	require.Error(err)
	assert.ErrorIs(err, ErrTransport)
	rej, ok := AsRejection(err)
	require.True(ok)
	assert.Equal(0, rej.StatusCode)
	assert.ErrorIs(err, context.DeadlineExceeded)
}

func TestIntrospector_RateLimit(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	tp.AddOpaqueToken("abc123", tp.AccessTokenClaims("openid"))
	clientID, clientSecret := tp.ClientCreds()
	creds := ClientCredentials{ClientID: clientID, ClientSecret: clientSecret}

	i, err := NewIntrospector(
		WithHTTPClient(tp.HTTPClient()),
		WithTimeout(100*time.Millisecond),
		WithIntrospectionRateLimit(0.01, 1),
	)
	require.NoError(err)

	_, err = i.Introspect(context.Background(), tp.Addr(), creds, "abc123")
	require.NoError(err)

	// the next slot is 100s away, well past the request deadline
	_, err = i.Introspect(context.Background(), tp.Addr(), creds, "abc123")
	require.Error(err)
	assert.ErrorIs(err, ErrTransport)
}
