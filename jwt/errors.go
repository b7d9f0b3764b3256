// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnsupportedAlg   = errors.New("unsupported signing algorithm")
	ErrMissingClaim     = errors.New("missing required claim")
	ErrInvalidClaim     = errors.New("invalid claim")
	ErrNoKeys           = errors.New("no keys")
)
