// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	clock := Clock(func() time.Time { return now })

	tests := []struct {
		name      string
		expireIn  time.Duration
		opt       []Option
		wantExp   time.Time
		wantIsErr error
	}{
		{name: "valid", expireIn: time.Minute, opt: []Option{WithClock(clock)}, wantExp: now.Add(time.Minute)},
		{name: "zero-expiry", expireIn: 0, wantIsErr: ErrInvalidParameter},
		{name: "negative-expiry", expireIn: -time.Second, wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			s, err := NewState(tt.expireIn, tt.opt...)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.True(strings.HasPrefix(s.ID(), "st_"))
			assert.True(strings.HasPrefix(s.Nonce(), "n_"))
			assert.NotEqual(s.ID(), s.Nonce())
			assert.Equal(tt.wantExp, s.Expiration())
		})
	}
}

func TestState_IsExpired(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	now := time.Unix(1_700_000_000, 0)
	clock := Clock(func() time.Time { return now })

	s, err := NewState(time.Minute, WithClock(clock))
	require.NoError(err)
	assert.False(s.IsExpired())

	now = now.Add(time.Minute - 500*time.Millisecond)
	assert.True(s.IsExpired(), "expires within the default skew")
	assert.False(s.IsExpired(WithExpirySkew(0)))

	now = now.Add(time.Second)
	assert.True(s.IsExpired(WithExpirySkew(0)))
}

func TestState_Grant(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	now := time.Unix(1_700_000_000, 0)
	clock := Clock(func() time.Time { return now })

	s, err := NewState(time.Minute, WithClock(clock))
	require.NoError(err)
	g, err := s.Grant("https://app.example/callback?code=c&state=" + s.ID())
	require.NoError(err)
	assert.Equal(GrantAuthorizationCode, g.Type)
	assert.Equal(s.ID(), g.State)
	assert.Equal(s.Nonce(), g.Nonce)

	code, err := authorizationCode(g)
	require.NoError(err)
	assert.Equal("c", code)

	now = now.Add(time.Hour)
	_, err = s.Grant("https://app.example/callback?code=c&state=" + s.ID())
	assert.ErrorIs(err, ErrExpiredState)
}
