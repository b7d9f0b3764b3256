// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"
)

// DefaultStateExpirySkew defines a default time skew when checking a State's
// expiration.
const DefaultStateExpirySkew = 1 * time.Second

// State represents one authorization code flow for a user. Its ID is sent as
// the "state" parameter and must come back in the callback; its Nonce is
// sent as the "nonce" parameter and must come back in the id_token. The ID
// and Nonce are never equal.
type State struct {
	id         string
	nonce      string
	expiration time.Time
	clock      Clock
}

// NewState creates a new State which expires after expireIn.
//
// Supported options: WithClock
func NewState(expireIn time.Duration, opt ...Option) (*State, error) {
	const op = "NewState"
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getStateOpts(opt...)
	nonce, err := NewID("n")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's nonce: %w", op, err)
	}
	id, err := NewID("st")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's id: %w", op, err)
	}
	return &State{
		id:         id,
		nonce:      nonce,
		expiration: opts.withClock.Now().Add(expireIn),
		clock:      opts.withClock,
	}, nil
}

func (s *State) ID() string    { return s.id }
func (s *State) Nonce() string { return s.nonce }

// Expiration returns the time the State expires.
func (s *State) Expiration() time.Time { return s.expiration }

// IsExpired returns true if the state has expired. Supports the
// WithExpirySkew option and if none is provided it will use the
// DefaultStateExpirySkew.
func (s *State) IsExpired(opt ...Option) bool {
	opts := getStateOpts(opt...)
	return s.expiration.Before(s.clock.Now().Add(opts.withExpirySkew))
}

// Grant returns an authorization code Grant for the callback the provider
// redirected to, bound to the State's ID and Nonce.
func (s *State) Grant(callbackURL string) (Grant, error) {
	const op = "State.Grant"
	if s.IsExpired() {
		return Grant{}, fmt.Errorf("%s: %w", op, ErrExpiredState)
	}
	return Grant{
		Type:        GrantAuthorizationCode,
		CallbackURL: callbackURL,
		State:       s.id,
		Nonce:       s.nonce,
	}, nil
}

// stateOptions is the set of available options for State functions
type stateOptions struct {
	withExpirySkew time.Duration
	withClock      Clock
}

// stateDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func stateDefaults() stateOptions {
	return stateOptions{
		withExpirySkew: DefaultStateExpirySkew,
	}
}

// getStateOpts gets the state defaults and applies the opt overrides passed in
func getStateOpts(opt ...Option) stateOptions {
	opts := stateDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithExpirySkew provides an optional skew for: State.IsExpired
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*stateOptions); ok {
			o.withExpirySkew = d
		}
	}
}
