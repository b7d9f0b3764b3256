// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// ParsePublicKeyPEM is used to parse RSA, ECDSA and Ed25519 public keys from
// PEMs. The PEM may hold a PKIX public key or an x509 certificate.
func ParsePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	const op = "jwt.ParsePublicKeyPEM"
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: data does not contain a PEM block: %w", op, ErrInvalidParameter)
	}
	var rawKey interface{}
	var err error
	if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		cert, certErr := x509.ParseCertificate(block.Bytes)
		if certErr != nil {
			return nil, fmt.Errorf("%s: %w", op, errors.Join(err, certErr))
		}
		rawKey = cert.PublicKey
	}

	switch k := rawKey.(type) {
	case *rsa.PublicKey:
		return k, nil
	case *ecdsa.PublicKey:
		return k, nil
	case ed25519.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%s: data does not contain any valid RSA, ECDSA or Ed25519 public keys: %w", op, ErrInvalidParameter)
	}
}

// SigningKey returns the single active verification key of a JSON Web Key
// Set: the first key whose use is "sig", or the first key when none declare a
// use. Key rotation and kid selection are left to the caller.
func SigningKey(set *jose.JSONWebKeySet) (*jose.JSONWebKey, error) {
	const op = "jwt.SigningKey"
	if set == nil || len(set.Keys) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoKeys)
	}
	for i := range set.Keys {
		if set.Keys[i].Use == "sig" {
			return &set.Keys[i], nil
		}
	}
	for i := range set.Keys {
		if set.Keys[i].Use == "" {
			return &set.Keys[i], nil
		}
	}
	return nil, fmt.Errorf("%s: no signature key in set: %w", op, ErrNoKeys)
}
