// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrInvalidIssuer     = errors.New("invalid issuer")
	ErrIdGeneratorFailed = errors.New("id generation failed")
	ErrExpiredState      = errors.New("state is expired")
	ErrMissingIdToken    = errors.New("id_token is missing")
	ErrMissingEndpoint   = errors.New("provider endpoint is missing")
	ErrUserInfoFailed    = errors.New("user info failed")
	ErrDiscoveryFailed   = errors.New("provider discovery failed")
	ErrKeysFailed        = errors.New("provider keys request failed")
)

// Rejection kind sentinels. A *Rejection matches the sentinel of its Kind
// with errors.Is.
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrMismatchingIssuer    = errors.New("mismatching issuer")
	ErrMismatchingAudience  = errors.New("mismatching audience")
	ErrMismatchingAlgorithm = errors.New("mismatching algorithm")
	ErrExpiredToken         = errors.New("expired token")
	ErrInsufficientScope    = errors.New("insufficient scope")
	ErrTransport            = errors.New("transport error")
	ErrProvider             = errors.New("provider error")
)

// Kind classifies why a token or exchange was rejected.
type Kind string

const (
	// KindInvalidToken is a malformed, unsigned or wrongly signed token.
	KindInvalidToken Kind = "InvalidToken"
	// KindMismatchingIssuer is a token from an unexpected issuer.
	KindMismatchingIssuer Kind = "MismatchingIssuer"
	// KindMismatchingAudience is a token not intended for this client.
	KindMismatchingAudience Kind = "MismatchingAudience"
	// KindMismatchingAlgorithm is an id_token signed with an unexpected alg.
	KindMismatchingAlgorithm Kind = "MismatchingAlgorithm"
	// KindExpiredToken is a token whose exp is in the past.
	KindExpiredToken Kind = "ExpiredToken"
	// KindInsufficientScope is a token lacking the required scope.
	KindInsufficientScope Kind = "InsufficientScope"
	// KindTransportError is a network failure or timeout talking to the
	// provider. It says nothing about the token, so callers may retry.
	KindTransportError Kind = "TransportError"
	// KindProviderError is an error the provider asserted in a response,
	// such as an introspection or token endpoint error body.
	KindProviderError Kind = "ProviderError"
)

var kindSentinels = map[Kind]error{
	KindInvalidToken:         ErrInvalidToken,
	KindMismatchingIssuer:    ErrMismatchingIssuer,
	KindMismatchingAudience:  ErrMismatchingAudience,
	KindMismatchingAlgorithm: ErrMismatchingAlgorithm,
	KindExpiredToken:         ErrExpiredToken,
	KindInsufficientScope:    ErrInsufficientScope,
	KindTransportError:       ErrTransport,
	KindProviderError:        ErrProvider,
}

// StatusCode is the HTTP status a resource server should answer with for the
// kind: 401 when the request is unauthenticated, 403 when a well formed token
// violates policy. TransportError has no fixed status and returns 0.
func (k Kind) StatusCode() int {
	switch k {
	case KindInvalidToken:
		return http.StatusUnauthorized
	case KindTransportError:
		return 0
	default:
		return http.StatusForbidden
	}
}

// OAuthCode is the RFC 6750 bearer token error code for the kind.
func (k Kind) OAuthCode() string {
	switch k {
	case KindInsufficientScope:
		return "insufficient_scope"
	case KindTransportError:
		return "temporarily_unavailable"
	default:
		return "invalid_token"
	}
}

// Rejection is the typed outcome of a failed verification or exchange.
// Callers pattern-match on Kind (or use errors.Is with the kind sentinels)
// to decide how to respond.
type Rejection struct {
	// Kind classifies the rejection.
	Kind Kind

	// Code is an OAuth2 error code, e.g. "invalid_token". For provider
	// errors it's the code the provider returned.
	Code string

	// Description is human readable.
	Description string

	// StatusCode is an HTTP-style status. It's 0 for transport errors.
	StatusCode int

	// Wrapped is the underlying cause, if any.
	Wrapped error
}

// ensure that Rejection implements error
var _ error = (*Rejection)(nil)

func newRejection(k Kind, description string, cause error) *Rejection {
	return &Rejection{
		Kind:        k,
		Code:        k.OAuthCode(),
		Description: description,
		StatusCode:  k.StatusCode(),
		Wrapped:     cause,
	}
}

func newTransportError(description string, cause error) *Rejection {
	return newRejection(KindTransportError, description, cause)
}

// Error satisfies the error interface.
func (r *Rejection) Error() string {
	if r == nil {
		return "unknown rejection"
	}
	msg := fmt.Sprintf("%s: %s", r.Kind, r.Description)
	if r.Code != "" && r.Kind == KindProviderError {
		msg = fmt.Sprintf("%s (%s)", msg, r.Code)
	}
	if r.Wrapped != nil {
		msg = fmt.Sprintf("%s: %s", msg, r.Wrapped.Error())
	}
	return msg
}

// Unwrap returns the underlying cause.
func (r *Rejection) Unwrap() error {
	if r == nil {
		return nil
	}
	return r.Wrapped
}

// Is matches the sentinel for the rejection's Kind.
func (r *Rejection) Is(target error) bool {
	if r == nil {
		return false
	}
	return kindSentinels[r.Kind] == target
}

// AsRejection returns the *Rejection in err's chain, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
