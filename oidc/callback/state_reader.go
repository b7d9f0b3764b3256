// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"errors"

	"github.com/hashicorp/connect/oidc"
)

// ErrStateNotFound means a StateReader has no State for the callback's
// "state" parameter.
var ErrStateNotFound = errors.New("auth code state not found")

// StateReader defines an interface for finding and reading an oidc.State
// Implementations must be concurrently safe, since the reader will likely be
// used within a concurrent http.Handler
type StateReader interface {
	// Read an existing State entry. The returned state's ID()
	// must match the stateID used to look it up.
	Read(ctx context.Context, stateID string) (*oidc.State, error)
}

// SingleStateReader implements the StateReader interface for a single state.
// It is concurrently safe.
type SingleStateReader struct {
	State *oidc.State
}

// Read will return its single state if the stateID matches its ID(),
// otherwise it returns an error of ErrStateNotFound.
func (s *SingleStateReader) Read(_ context.Context, stateID string) (*oidc.State, error) {
	if s.State == nil || s.State.ID() != stateID {
		return nil, ErrStateNotFound
	}
	return s.State, nil
}
