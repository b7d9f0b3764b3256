// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package bearer extracts OAuth 2.0 bearer tokens from requests (RFC 6750)
// and provides an http middleware which verifies them with an oidc.Client.
package bearer

import (
	"errors"
	"mime"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken means no strategy found a token in the request.
	ErrMissingToken = errors.New("an access token is required")

	// ErrAmbiguousToken means more than one strategy found a token in the
	// request.
	ErrAmbiguousToken = errors.New("multiple access tokens in request")
)

// AccessTokenParam is the query and form parameter carrying a bearer token.
const AccessTokenParam = "access_token"

// Strategy looks for a bearer token in one part of a request.
type Strategy func(r *http.Request) (string, bool)

// DefaultStrategies are used when no strategies are given: the
// Authorization header, the query string and the form body, in that order.
var DefaultStrategies = []Strategy{FromHeader, FromQuery, FromBody}

// FromHeader finds a token in an "Authorization: Bearer <token>" header. The
// scheme is matched case-insensitively.
func FromHeader(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// FromQuery finds a token in the access_token query parameter.
func FromQuery(r *http.Request) (string, bool) {
	token := r.URL.Query().Get(AccessTokenParam)
	return token, token != ""
}

// FromBody finds a token in the access_token parameter of a form encoded
// body. Other content types are ignored.
func FromBody(r *http.Request) (string, bool) {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return "", false
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/x-www-form-urlencoded" {
		return "", false
	}
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	token := r.PostForm.Get(AccessTokenParam)
	return token, token != ""
}

// Extract returns the single token found by the strategies. It returns
// ErrMissingToken when none finds one and ErrAmbiguousToken when more than
// one does. Without strategies DefaultStrategies are used.
func Extract(r *http.Request, strategies ...Strategy) (string, error) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	var found []string
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if token, ok := s(r); ok {
			found = append(found, token)
		}
	}
	switch len(found) {
	case 0:
		return "", ErrMissingToken
	case 1:
		return found[0], nil
	default:
		return "", ErrAmbiguousToken
	}
}
