// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		caPEM       string
		timeout     time.Duration
		wantTimeout time.Duration
		wantErr     error
	}{
		{
			name:        "system-ca-default-timeout",
			wantTimeout: DefaultTimeout,
		},
		{
			name:        "custom-timeout",
			timeout:     time.Second,
			wantTimeout: time.Second,
		},
		{
			name:    "invalid-ca",
			caPEM:   "not a pem",
			wantErr: ErrInvalidCertificatePem,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			c, err := NewClient(tt.caPEM, tt.timeout)
			if tt.wantErr != nil {
				require.ErrorIs(err, tt.wantErr)
				assert.Nil(c)
				return
			}
			require.NoError(err)
			assert.Equal(tt.wantTimeout, c.Timeout)
			assert.NotNil(c.Transport)
		})
	}
}

func TestOidcClientContext(t *testing.T) {
	t.Parallel()
	c := &http.Client{}
	ctx := OidcClientContext(context.Background(), c)
	got, ok := ctx.Value(oauth2.HTTPClient).(*http.Client)
	require.True(t, ok)
	assert.Same(t, c, got)
}
