// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicKeyPEM(t *testing.T) {
	t.Parallel()
	rsaKey := testRSAKey(t)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pkixPEM := func(pub interface{}) []byte {
		der, err := x509.MarshalPKIXPublicKey(pub)
		require.NoError(t, err)
		return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &ecKey.PublicKey, ecKey)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tests := []struct {
		name      string
		data      []byte
		want      interface{}
		wantIsErr error
	}{
		{name: "rsa", data: pkixPEM(&rsaKey.PublicKey), want: &rsaKey.PublicKey},
		{name: "ecdsa", data: pkixPEM(&ecKey.PublicKey), want: &ecKey.PublicKey},
		{name: "ed25519", data: pkixPEM(edPub), want: edPub},
		{name: "certificate", data: certPEM, want: &ecKey.PublicKey},
		{name: "not-pem", data: []byte("not a pem"), wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePublicKeyPEM(tt.data)
			if tt.wantIsErr != nil {
				assert.ErrorIs(t, err, tt.wantIsErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("garbage-block", func(t *testing.T) {
		t.Parallel()
		_, err := ParsePublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte("junk")}))
		assert.Error(t, err)
	})
}

func TestSigningKey(t *testing.T) {
	t.Parallel()
	k := func(kid, use string) jose.JSONWebKey {
		return jose.JSONWebKey{KeyID: kid, Use: use}
	}
	tests := []struct {
		name    string
		set     *jose.JSONWebKeySet
		wantKid string
		wantErr bool
	}{
		{name: "nil", wantErr: true},
		{name: "empty", set: &jose.JSONWebKeySet{}, wantErr: true},
		{name: "first-sig", set: &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k("enc", "enc"), k("sig1", "sig"), k("sig2", "sig")}}, wantKid: "sig1"},
		{name: "no-use", set: &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k("enc", "enc"), k("any", "")}}, wantKid: "any"},
		{name: "sig-beats-no-use", set: &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k("any", ""), k("sig", "sig")}}, wantKid: "sig"},
		{name: "only-enc", set: &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k("enc", "enc")}}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SigningKey(tt.set)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoKeys)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKid, got.KeyID)
		})
	}
}
