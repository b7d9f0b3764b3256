// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/connect/jwt"
)

// TestGenerateKeys will generate a test pub/priv key pair suitable for the
// alg: RSA 2048 for RS* and PS*, the matching curve for ES*, Ed25519 for
// EdDSA. HS* algs get the same random secret as both keys.
func TestGenerateKeys(t *testing.T, alg jwt.Alg) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	require := require.New(t)

	switch alg {
	case jwt.RS256, jwt.RS384, jwt.RS512, jwt.PS256, jwt.PS384, jwt.PS512:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(err)
		return &priv.PublicKey, priv
	case jwt.ES256, jwt.ES384, jwt.ES512:
		curve := map[jwt.Alg]elliptic.Curve{
			jwt.ES256: elliptic.P256(),
			jwt.ES384: elliptic.P384(),
			jwt.ES512: elliptic.P521(),
		}[alg]
		priv, err := ecdsa.GenerateKey(curve, rand.Reader)
		require.NoError(err)
		return &priv.PublicKey, priv
	case jwt.EdDSA:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(err)
		return pub, priv
	case jwt.HS256, jwt.HS384, jwt.HS512:
		secret := make([]byte, 64)
		_, err := rand.Read(secret)
		require.NoError(err)
		return secret, secret
	default:
		require.FailNowf("unsupported alg", "%q", alg)
		return nil, nil
	}
}

// TestPublicKeyPEM will PEM encode a public key from TestGenerateKeys.
func TestPublicKeyPEM(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	derBytes, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: derBytes}))
}

// TestSignJWT will sign the claims with the private key and alg. Supports
// the jwt.Encode options, so jwt.WithSchema fills in issuance defaults.
func TestSignJWT(t *testing.T, priv crypto.PrivateKey, alg jwt.Alg, claims jwt.Claims, opt ...jwt.Option) string {
	t.Helper()
	raw, err := jwt.Encode(claims, priv, alg, opt...)
	require.NoError(t, err)
	return raw
}

// TestGenerateCA will generate a test x509 CA cert encoded in a PEM format.
func TestGenerateCA(t *testing.T, hosts []string) string {
	t.Helper()
	require := require.New(t)

	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(err)

	notBefore := time.Now()
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(err)

	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{Organization: []string{"Connect Test"}},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(2 * time.Minute),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes}))
}
