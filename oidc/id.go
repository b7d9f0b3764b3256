// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/connect/sdk/id"
)

// NewID generates an ID with an optional prefix. The ID generated is suitable
// for a State ID or Nonce.
func NewID(optionalPrefix string) (string, error) {
	const op = "NewID"
	v, err := id.New(optionalPrefix)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIdGeneratorFailed, err)
	}
	return v, nil
}
