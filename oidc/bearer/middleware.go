// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bearer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc"
)

// DefaultRealm is the realm sent in WWW-Authenticate challenges.
const DefaultRealm = "user"

// Verifier verifies access tokens. *oidc.Client is a Verifier.
type Verifier interface {
	VerifyAccessToken(ctx context.Context, raw string, opt ...oidc.Option) (jwt.Claims, error)
}

type ctxKey struct{}

// ClaimsFromContext returns the verified claims the Middleware stored in the
// request context.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(jwt.Claims)
	return c, ok
}

// ContextWithClaims returns a copy of ctx carrying the claims.
func ContextWithClaims(ctx context.Context, c jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// Middleware returns an http middleware which only lets requests carrying a
// valid access token through. The verified claims are available to the next
// handler with ClaimsFromContext.
//
// A missing or ambiguous token is answered with 400 invalid_request. A
// rejected token is answered with the rejection's status and its OAuth2
// error code, both in the WWW-Authenticate challenge and in a JSON body. A
// TransportError is answered with 503 since the token itself may be valid.
//
// Supported options: WithStrategies, WithRequiredScope, WithRealm, WithLogger
func Middleware(v Verifier, opt ...Option) func(http.Handler) http.Handler {
	opts := getOpts(opt...)
	var verifyOpts []oidc.Option
	if opts.withRequiredScope != "" {
		verifyOpts = append(verifyOpts, oidc.WithRequiredScope(opts.withRequiredScope))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := Extract(r, opts.withStrategies...)
			if err != nil {
				desc := "An access token is required"
				if errors.Is(err, ErrAmbiguousToken) {
					desc = "Multiple access tokens in request"
				}
				writeError(w, opts, http.StatusBadRequest, "invalid_request", desc)
				return
			}

			claims, err := v.VerifyAccessToken(r.Context(), raw, verifyOpts...)
			if err != nil {
				rej, ok := oidc.AsRejection(err)
				if !ok {
					opts.withLogger.Error("access token verification failed", "error", err)
					writeError(w, opts, http.StatusInternalServerError, "server_error", "")
					return
				}
				status := rej.StatusCode
				if rej.Kind == oidc.KindTransportError || status == 0 {
					opts.withLogger.Warn("access token verification unavailable", "error", err)
					status = http.StatusServiceUnavailable
				} else {
					opts.withLogger.Debug("access token rejected", "kind", rej.Kind, "description", rej.Description)
				}
				writeError(w, opts, status, rej.Code, rej.Description)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// errorBody is the JSON body of an error response.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, opts options, status int, code, desc string) {
	params := []string{fmt.Sprintf("realm=%q", opts.withRealm)}
	if code != "" {
		params = append(params, fmt.Sprintf("error=%q", code))
	}
	if desc != "" {
		params = append(params, fmt.Sprintf("error_description=%q", desc))
	}
	if code == oidc.KindInsufficientScope.OAuthCode() && opts.withRequiredScope != "" {
		params = append(params, fmt.Sprintf("scope=%q", opts.withRequiredScope))
	}
	w.Header().Set("WWW-Authenticate", "Bearer "+strings.Join(params, ", "))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, ErrorDescription: desc})
}
