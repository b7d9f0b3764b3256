// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc/internal/strutils"
	"github.com/hashicorp/connect/sdk/id"
)

// TestProvider is a local OIDC provider which makes writing tests much
// easier. It serves discovery, a JWKS, the authorization endpoint, the token
// endpoint for the authorization_code, refresh_token and client_credentials
// grants, the token verification (introspection) endpoint and userinfo.
//
// Tokens are signed with an RS256 key unless StartTestProvider is given
// another alg. The provider's issuer is its Addr.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	alg        jwt.Alg
	publicKey  crypto.PublicKey
	privateKey crypto.PrivateKey
	jwks       *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	allowedRedirectURIs []string
	expectedAuthCode    string
	expectedAuthNonce   string
	refreshToken        string
	replySubject        string
	replyUserinfo       map[string]interface{}
	customClaims        map[string]interface{}
	customAudience      string
	tokenTTL            time.Duration
	omitIDToken         bool
	opaqueAccessTokens  bool
	opaqueTokens        map[string]jwt.Claims
	responseDelay       time.Duration
	tokenErrorCode      string
	tokenErrorStatus    int
}

// StartTestProvider creates a disposable TestProvider which is stopped by
// t.Cleanup. An optional alg selects the signing algorithm.
func StartTestProvider(t *testing.T, alg ...jwt.Alg) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		alg:                 jwt.RS256,
		clientID:            "test-client-id",
		clientSecret:        "test-client-secret",
		allowedRedirectURIs: []string{"https://example.com/callback"},
		expectedAuthCode:    "test-auth-code",
		refreshToken:        "test-refresh-token",
		replySubject:        "alice@example.com",
		replyUserinfo: map[string]interface{}{
			"color":       "red",
			"temperature": "76",
			"flavor":      "umami",
		},
		tokenTTL:     5 * time.Minute,
		opaqueTokens: map[string]jwt.Claims{},
	}
	if len(alg) > 0 && alg[0] != "" {
		p.alg = alg[0]
	}
	p.publicKey, p.privateKey = TestGenerateKeys(t, p.alg)
	p.jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{Key: p.publicKey, KeyID: "test-key", Algorithm: string(p.alg), Use: "sig"},
		},
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver, which is also its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns a client which trusts the test provider.
func (p *TestProvider) HTTPClient() *http.Client { return p.httpServer.Client() }

// SigningKeys returns the keys used to sign tokens.
func (p *TestProvider) SigningKeys() (crypto.PublicKey, crypto.PrivateKey) {
	return p.publicKey, p.privateKey
}

// SigningAlg returns the alg used to sign tokens.
func (p *TestProvider) SigningAlg() jwt.Alg { return p.alg }

// ClientCreds returns the client credentials the provider accepts.
func (p *TestProvider) ClientCreds() (clientID string, clientSecret ClientSecret) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, ClientSecret(p.clientSecret)
}

// SetClientCreds configures the client credentials the token and
// verification endpoints accept.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetAllowedRedirectURIs configures the redirect URIs accepted by /authorize
// and /token.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetExpectedAuthCode configures the auth code returned from /authorize and
// accepted by /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedAuthNonce configures the nonce value required by /authorize. The
// nonce is also put in issued id_tokens.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetRefreshToken configures the refresh token issued and accepted.
func (p *TestProvider) SetRefreshToken(rt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshToken = rt
}

// SetCustomClaims adds claims to every issued token.
func (p *TestProvider) SetCustomClaims(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// SetCustomAudience replaces the client id as the audience of issued tokens.
func (p *TestProvider) SetCustomAudience(aud string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = aud
}

// SetTokenTTL configures the lifetime of issued tokens. A negative ttl
// issues expired tokens.
func (p *TestProvider) SetTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenTTL = ttl
}

// OmitIDTokens turns off the id_token in authorization_code responses.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// SetOpaqueAccessTokens makes /token issue opaque access tokens which only
// /token/verify can resolve.
func (p *TestProvider) SetOpaqueAccessTokens(opaque bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opaqueAccessTokens = opaque
}

// AddOpaqueToken registers an opaque token and the claims /token/verify
// returns for it.
func (p *TestProvider) AddOpaqueToken(token string, claims jwt.Claims) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opaqueTokens[token] = claims
}

// SetResponseDelay delays every /token and /token/verify response.
func (p *TestProvider) SetResponseDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseDelay = d
}

// SetTokenError makes /token fail with the error code and status. An empty
// code clears it.
func (p *TestProvider) SetTokenError(status int, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenErrorStatus = status
	p.tokenErrorCode = code
}

// AccessTokenClaims returns the claims of an access token the provider
// would issue now for the scope.
func (p *TestProvider) AccessTokenClaims(scope string) jwt.Claims {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessTokenClaims(scope)
}

// IssueAccessToken signs claims as a self-contained access token.
func (p *TestProvider) IssueAccessToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	return TestSignJWT(t, p.privateKey, p.alg, claims, jwt.WithKeyID("test-key"))
}

func (p *TestProvider) accessTokenClaims(scope string) jwt.Claims {
	now := time.Now()
	jti, _ := id.New("")
	c := jwt.Claims{
		jwt.ClaimID:       jti,
		jwt.ClaimIssuer:   p.Addr(),
		jwt.ClaimSubject:  p.replySubject,
		jwt.ClaimAudience: p.audience(),
		jwt.ClaimIssuedAt: now.Unix(),
		jwt.ClaimExpiry:   now.Add(p.tokenTTL).Unix(),
		jwt.ClaimScope:    scope,
	}
	for k, v := range p.customClaims {
		c[k] = v
	}
	return c
}

func (p *TestProvider) idTokenClaims() jwt.Claims {
	now := time.Now()
	c := jwt.Claims{
		jwt.ClaimIssuer:   p.Addr(),
		jwt.ClaimSubject:  p.replySubject,
		jwt.ClaimAudience: p.audience(),
		jwt.ClaimIssuedAt: now.Unix(),
		jwt.ClaimExpiry:   now.Add(p.tokenTTL).Unix(),
	}
	if p.expectedAuthNonce != "" {
		c[jwt.ClaimNonce] = p.expectedAuthNonce
	}
	for k, v := range p.customClaims {
		c[k] = v
	}
	return c
}

func (p *TestProvider) audience() string {
	if p.customAudience != "" {
		return p.customAudience
	}
	return p.clientID
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

func (p *TestProvider) writeErrorResponse(w http.ResponseWriter, status int, code, desc string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: code,
		Desc: desc,
	}
	p.writeJSON(w, status, &body)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, code, desc string) {
	qv := req.URL.Query()
	v := url.Values{}
	v.Set("state", qv.Get("state"))
	v.Set("error", code)
	if desc != "" {
		v.Set("error_description", desc)
	}
	http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)
}

func (p *TestProvider) authenticated(req *http.Request) bool {
	id, secret, ok := req.BasicAuth()
	return ok && id == p.clientID && secret == p.clientSecret
}

// wait applies the response delay, returning early when the client goes
// away.
func (p *TestProvider) wait(req *http.Request) {
	p.mu.Lock()
	d := p.responseDelay
	p.mu.Unlock()
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-req.Context().Done():
	}
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/token", IntrospectionPath:
		p.wait(req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.writeJSON(w, http.StatusOK, &ProviderConfiguration{
			Issuer:                p.Addr(),
			AuthorizationEndpoint: p.Addr() + "/authorize",
			TokenEndpoint:         p.Addr() + "/token",
			RegistrationEndpoint:  p.Addr() + "/register",
			UserinfoEndpoint:      p.Addr() + "/userinfo",
			JWKSURI:               p.Addr() + "/certs",
			IDTokenSigningAlgs:    []string{string(p.alg)},
		})

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
		case !strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
		case p.expectedAuthNonce != "" && qv.Get("nonce") != p.expectedAuthNonce:
			p.writeAuthErrorResponse(w, req, "access_denied", "unexpected nonce")
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
		case !strutils.StrListContains(p.allowedRedirectURIs, qv.Get("redirect_uri")):
			w.WriteHeader(http.StatusBadRequest)
		default:
			v := url.Values{}
			v.Set("state", qv.Get("state"))
			v.Set("code", p.expectedAuthCode)
			http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)
		}

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.writeJSON(w, http.StatusOK, p.jwks)

	case "/token":
		p.serveToken(w, req)

	case IntrospectionPath:
		p.serveIntrospection(w, req)

	case "/userinfo":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
			p.writeErrorResponse(w, http.StatusUnauthorized, "invalid_token", "")
			return
		}
		reply := map[string]interface{}{"sub": p.replySubject}
		for k, v := range p.replyUserinfo {
			reply[k] = v
		}
		p.writeJSON(w, http.StatusOK, reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) serveToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if p.tokenErrorCode != "" {
		p.writeErrorResponse(w, p.tokenErrorStatus, p.tokenErrorCode, "configured token error")
		return
	}
	if !p.authenticated(req) {
		p.writeErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	reply := struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token,omitempty"`
		RefreshToken string `json:"refresh_token,omitempty"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}{
		TokenType: "Bearer",
		ExpiresIn: int64(p.tokenTTL / time.Second),
	}

	scope := "openid profile"
	switch req.FormValue("grant_type") {
	case string(GrantAuthorizationCode):
		switch {
		case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			p.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			p.writeErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		}
		if !p.omitIDToken {
			idToken, err := jwt.Encode(p.idTokenClaims(), p.privateKey, p.alg, jwt.WithKeyID("test-key"))
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			reply.IDToken = idToken
		}
		reply.RefreshToken = p.refreshToken
	case string(GrantRefreshToken):
		if req.FormValue("refresh_token") != p.refreshToken {
			p.writeErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
			return
		}
		reply.RefreshToken = p.refreshToken
	case string(GrantClientCredentials):
		scope = req.FormValue("scope")
	default:
		p.writeErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	claims := p.accessTokenClaims(scope)
	if p.opaqueAccessTokens {
		token, err := id.New("")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		p.opaqueTokens[token] = claims
		reply.AccessToken = token
	} else {
		token, err := jwt.Encode(claims, p.privateKey, p.alg, jwt.WithKeyID("test-key"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		reply.AccessToken = token
	}
	p.writeJSON(w, http.StatusOK, &reply)
}

func (p *TestProvider) serveIntrospection(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !p.authenticated(req) {
		p.writeErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}
	var body introspectionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		p.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	claims, ok := p.opaqueTokens[body.AccessToken]
	if !ok {
		p.writeErrorResponse(w, http.StatusBadRequest, "invalid_token", "unknown token")
		return
	}
	p.writeJSON(w, http.StatusOK, claims)
}
