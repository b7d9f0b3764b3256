// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// separator splits the header, payload and signature of a compact token.
const separator = "."

// Header is the decoded JOSE header of a token.
type Header struct {
	Algorithm Alg    `json:"alg"`
	KeyID     string `json:"kid,omitempty"`
	Type      string `json:"typ,omitempty"`
}

// Token is a decoded and signature-verified token.
type Token struct {
	Header Header
	Claims Claims
	Raw    string
}

// IsSelfContained reports whether raw has the structure of a signed token
// whose claims can be verified offline. Tokens without a separator are
// opaque references which only their issuer can resolve.
func IsSelfContained(raw string) bool {
	return strings.Contains(raw, separator)
}

// Decode parses a compact signed token, verifies its signature with key using
// the algorithm declared in its header and returns the decoded header and
// claims. A header declaring an algorithm outside the supported set (such as
// "none") fails to parse. The key may be any verification key go-jose accepts: an RSA, ECDSA
// or Ed25519 public key, a *jose.JSONWebKey, or a []byte HMAC secret.
//
// Supported options: WithSchema, WithAllowedAlgs
func Decode(raw string, key interface{}, opt ...Option) (*Token, error) {
	const op = "jwt.Decode"
	if key == nil {
		return nil, fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	opts := getCodecOpts(opt...)

	jws, err := jose.ParseSignedCompact(raw, joseAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	hdr := headerOf(jws)
	if len(opts.withAlgs) > 0 && !algListContains(opts.withAlgs, hdr.Algorithm) {
		return nil, fmt.Errorf("%s: %q is not an allowed algorithm: %w", op, hdr.Algorithm, ErrUnsupportedAlg)
	}
	payload, err := jws.Verify(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}

	claims, err := unmarshalClaims(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: payload: %w", op, err)
	}
	if opts.withSchema != nil {
		if err := opts.withSchema.Validate(claims); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &Token{
		Header: hdr,
		Claims: claims,
		Raw:    raw,
	}, nil
}

// Encode signs the claims with key using alg and returns the compact
// serialization. The given claims are not modified.
//
// Supported options: WithSchema (fills issuance defaults, then validates),
// WithNow, WithKeyID
func Encode(claims Claims, key interface{}, alg Alg, opt ...Option) (string, error) {
	const op = "jwt.Encode"
	if key == nil {
		return "", fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	if err := SupportedSigningAlgorithm(alg); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	opts := getCodecOpts(opt...)

	c := claims.Clone()
	if s := opts.withSchema; s != nil {
		if s.defaults != nil {
			if err := s.defaults(c, opts.withNow()); err != nil {
				return "", fmt.Errorf("%s: unable to set default claims: %w", op, err)
			}
		}
		if err := s.Validate(c); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	sOpts := (&jose.SignerOptions{}).WithType("JWT")
	if opts.withKeyID != "" {
		sOpts = sOpts.WithHeader(jose.HeaderKey("kid"), opts.withKeyID)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key}, sOpts)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create signer: %w", op, err)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("%s: unable to marshal claims: %w", op, err)
	}
	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign: %w", op, err)
	}
	raw, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize: %w", op, err)
	}
	return raw, nil
}

// UnverifiedClaims returns the claims of raw without verifying its signature.
// The result must never be trusted; it is only useful for routing, such as
// finding which issuer's keys should verify the token.
func UnverifiedClaims(raw string) (Claims, error) {
	const op = "jwt.UnverifiedClaims"
	jws, err := jose.ParseSignedCompact(raw, joseAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}
	claims, err := unmarshalClaims(jws.UnsafePayloadWithoutVerification())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

func unmarshalClaims(b []byte) (Claims, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var c Claims
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if c == nil {
		return nil, fmt.Errorf("claims are empty: %w", ErrMalformedToken)
	}
	return c, nil
}

// headerOf returns the header of a compact token, which carries exactly one
// signature.
func headerOf(jws *jose.JSONWebSignature) Header {
	h := jws.Signatures[0].Header
	typ, _ := h.ExtraHeaders[jose.HeaderType].(string)
	return Header{
		Algorithm: Alg(h.Algorithm),
		KeyID:     h.KeyID,
		Type:      typ,
	}
}

func algListContains(algs []Alg, a Alg) bool {
	for _, v := range algs {
		if v == a {
			return true
		}
	}
	return false
}
