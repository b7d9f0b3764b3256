// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/connect/oidc"
)

func TestStateCache(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	sc := NewStateCache()

	s, err := oidc.NewState(time.Minute)
	require.NoError(err)
	sc.Add(s)
	assert.Equal(1, sc.Len())

	got, err := sc.Read(ctx, s.ID())
	require.NoError(err)
	assert.Equal(s, got)

	_, err = sc.Read(ctx, s.ID())
	assert.ErrorIs(err, ErrStateNotFound, "a state is only read once")
	assert.Equal(0, sc.Len())

	expired, err := oidc.NewState(time.Nanosecond)
	require.NoError(err)
	sc.Add(expired)
	sc.Add(s)
	assert.Equal(1, sc.Len(), "expired states are dropped")
}

func TestStateCache_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sc := NewStateCache()
	s, err := oidc.NewState(time.Minute)
	require.NoError(t, err)
	sc.Add(s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reads := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sc.Read(ctx, s.ID()); err == nil {
				mu.Lock()
				reads++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, reads)
}
