// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional logger for: Client, Introspector,
// AccessTokenVerifier, IDTokenVerifier
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *clientOptions:
			v.withLogger = l
		case *introspectorOptions:
			v.withLogger = l
		case *verifierOptions:
			v.withLogger = l
		}
	}
}

// WithClock provides an optional time source for: Client,
// AccessTokenVerifier, IDTokenVerifier, NewState
func WithClock(c Clock) Option {
	return func(o interface{}) {
		if c == nil {
			return
		}
		switch v := o.(type) {
		case *clientOptions:
			v.withClock = c
		case *verifierOptions:
			v.withClock = c
		case *stateOptions:
			v.withClock = c
		}
	}
}

// WithHTTPClient provides an optional http client for: Client, Introspector.
// It replaces the client built from the Config.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if c == nil {
			return
		}
		switch v := o.(type) {
		case *clientOptions:
			v.withHTTPClient = c
		case *introspectorOptions:
			v.withHTTPClient = c
		}
	}
}

// WithTimeout provides an optional bound on every outbound request for:
// Config, Introspector
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withTimeout = d
		case *introspectorOptions:
			v.withTimeout = d
		}
	}
}

// WithAudiences provides the acceptable access token audiences for: Config,
// Client.VerifyAccessToken (overriding the Config)
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withAudiences = auds
		case *verifyOptions:
			v.withAudiences = auds
		}
	}
}

// WithNonce provides an optional nonce for: Client.AuthURL (sent as the
// nonce parameter), Client.VerifyIDToken (the id_token must carry it)
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *authURLOptions:
			v.withNonce = nonce
		case *verifyOptions:
			v.withNonce = nonce
		}
	}
}
