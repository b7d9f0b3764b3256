// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func testOfflineClient(t *testing.T, pc *ProviderConfiguration, redirectURL string) *Client {
	t.Helper()
	pub, _ := TestGenerateKeys(t, "RS256")
	cfg, err := NewConfig(pc.Issuer, "client1", "secret", redirectURL)
	require.NoError(t, err)
	c, err := NewClient(context.Background(), cfg, WithProviderConfiguration(pc), WithSigningKey(pub))
	require.NoError(t, err)
	return c
}

func TestClient_AuthURL(t *testing.T) {
	t.Parallel()
	pc := &ProviderConfiguration{
		Issuer:                "https://idp.example",
		AuthorizationEndpoint: "https://idp.example/authorize",
		TokenEndpoint:         "https://idp.example/token",
	}
	c := testOfflineClient(t, pc, "https://app.example/callback")
	s, err := NewState(time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		opt        []Option
		want       url.Values
		wantAbsent []string
		wantIsErr  error
	}{
		{
			name: "defaults",
			want: url.Values{
				"response_type": {"code"},
				"client_id":     {"client1"},
				"redirect_uri":  {"https://app.example/callback"},
				"scope":         {"openid profile"},
			},
			wantAbsent: []string{"state", "nonce", "prompt"},
		},
		{
			name: "with-state",
			opt:  []Option{WithState(s)},
			want: url.Values{
				"state": {s.ID()},
				"nonce": {s.Nonce()},
			},
		},
		{
			name: "all-parameters",
			opt: []Option{
				WithNonce("n_1"),
				WithScopes("openid email"),
				WithRedirectURL("https://app.example/other"),
				WithPrompts(PromptLogin, PromptConsent),
				WithDisplay(DisplayPopup),
				WithMaxAge(0),
				WithUILocales(language.AmericanEnglish, language.French),
				WithLoginHint("alice@example.com"),
				WithIDTokenHint("header.payload.sig"),
				WithACRValues("phr", "phrh"),
			},
			want: url.Values{
				"nonce":         {"n_1"},
				"scope":         {"openid email"},
				"redirect_uri":  {"https://app.example/other"},
				"prompt":        {"login consent"},
				"display":       {"popup"},
				"max_age":       {"0"},
				"ui_locales":    {"en-US fr"},
				"login_hint":    {"alice@example.com"},
				"id_token_hint": {"header.payload.sig"},
				"acr_values":    {"phr phrh"},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := c.AuthURL(tt.opt...)
			if tt.wantIsErr != nil {
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			u, err := url.Parse(got)
			require.NoError(err)
			assert.Equal("idp.example", u.Host)
			assert.Equal("/authorize", u.Path)
			q := u.Query()
			for k, v := range tt.want {
				assert.Equal(v, q[k], k)
			}
			for _, k := range tt.wantAbsent {
				assert.NotContains(q, k)
			}
		})
	}

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		_, err := c.AuthURL(WithState(s), WithNonce(s.ID()))
		assert.ErrorIs(err, ErrInvalidParameter)

		noRedirect := testOfflineClient(t, pc, "")
		_, err = noRedirect.AuthURL()
		assert.ErrorIs(err, ErrInvalidParameter)

		noAuthEndpoint := testOfflineClient(t, &ProviderConfiguration{
			Issuer:        "https://idp.example",
			TokenEndpoint: "https://idp.example/token",
		}, "https://app.example/callback")
		_, err = noAuthEndpoint.AuthURL()
		assert.ErrorIs(err, ErrMissingEndpoint)
	})
}

func TestClient_AuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	tp := StartTestProvider(t)
	c := testClient(t, tp, nil)

	s, err := NewState(time.Minute)
	require.NoError(err)
	tp.SetExpectedAuthNonce(s.Nonce())

	authURL, err := c.AuthURL(WithState(s))
	require.NoError(err)

	// act as the user agent, stopping at the redirect back to the client
	ua := *tp.HTTPClient()
	ua.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := ua.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	callback := resp.Header.Get("Location")
	require.NotEmpty(callback)

	g, err := s.Grant(callback)
	require.NoError(err)
	bundle, err := c.Exchange(ctx, g)
	require.NoError(err)
	assert.Equal(s.Nonce(), bundle.IDClaims.Nonce())
	assert.Equal("alice@example.com", bundle.IDClaims.Subject())

	signout, err := c.SignoutURL(bundle.IDToken, "https://example.com/bye")
	require.NoError(err)
	u, err := url.Parse(signout)
	require.NoError(err)
	assert.Equal(SignoutPath, u.Path)
	assert.Equal(string(bundle.IDToken), u.Query().Get("id_token_hint"))
	assert.Equal("https://example.com/bye", u.Query().Get("post_logout_redirect_uri"))
}

func TestClient_SignoutURL(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	c := testOfflineClient(t, &ProviderConfiguration{
		Issuer:                "https://idp.example/realms/a",
		AuthorizationEndpoint: "https://login.idp.example/realms/a/authorize",
		TokenEndpoint:         "https://idp.example/realms/a/token",
	}, "")
	got, err := c.SignoutURL("id-token", "")
	require.NoError(err)
	assert.Equal("https://login.idp.example/signout?id_token_hint=id-token", got)

	c = testOfflineClient(t, &ProviderConfiguration{
		Issuer:             "https://idp.example",
		TokenEndpoint:      "https://idp.example/token",
		EndSessionEndpoint: "https://idp.example/logout?tenant=1",
	}, "")
	got, err = c.SignoutURL("id-token", "https://app.example/")
	require.NoError(err)
	u, err := url.Parse(got)
	require.NoError(err)
	assert.Equal("/logout", u.Path)
	assert.Equal("1", u.Query().Get("tenant"))
	assert.Equal("https://app.example/", u.Query().Get("post_logout_redirect_uri"))

	_, err = c.SignoutURL("", "")
	assert.ErrorIs(err, ErrInvalidParameter)
}
