// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/connect/oidc"
)

// StateCache is an in-memory StateReader for the States of pending
// authentication attempts. Read removes the State it returns, so each State
// completes at most one callback. It is concurrently safe.
type StateCache struct {
	m sync.Mutex
	c map[string]*oidc.State
}

// NewStateCache creates an empty StateCache.
func NewStateCache() *StateCache {
	return &StateCache{
		c: map[string]*oidc.State{},
	}
}

// Add stores the State until it's read. Expired States are dropped.
func (sc *StateCache) Add(s *oidc.State) {
	sc.m.Lock()
	defer sc.m.Unlock()
	for id, cached := range sc.c {
		if cached.IsExpired() {
			delete(sc.c, id)
		}
	}
	sc.c[s.ID()] = s
}

// Read implements the StateReader interface and will delete the state
// before returning.
func (sc *StateCache) Read(_ context.Context, stateID string) (*oidc.State, error) {
	const op = "StateCache.Read"
	sc.m.Lock()
	defer sc.m.Unlock()
	s, ok := sc.c[stateID]
	if !ok {
		return nil, fmt.Errorf("%s: state %s: %w", op, stateID, ErrStateNotFound)
	}
	delete(sc.c, stateID)
	return s, nil
}

// Len returns the number of cached States.
func (sc *StateCache) Len() int {
	sc.m.Lock()
	defer sc.m.Unlock()
	return len(sc.c)
}
