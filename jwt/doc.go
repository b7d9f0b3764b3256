// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt encodes and decodes the compact signed tokens issued by an OpenID
Connect provider.

Decode verifies a token's signature with the caller's key using the algorithm
declared in its header and, given a Schema, checks that the registered claims
are present and well formed. It does no I/O and reads no clock: whether a
token is expired or meant for a given audience is a policy decision left to
the caller (see package oidc).

	tk, err := jwt.Decode(raw, pub, jwt.WithSchema(jwt.AccessTokenSchema))
	if err != nil {
		// errors.Is(err, jwt.ErrInvalidSignature), jwt.ErrMissingClaim, ...
	}
	fmt.Println(tk.Claims.Issuer(), tk.Claims.Scopes())

Encode issues tokens and is mostly useful for tests and tooling.
*/
package jwt
