// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// Len is the length of a generated ID, excluding any prefix.
const Len = 32

// New generates a random ID with an optional prefix. IDs are suitable for
// use as an oidc state, nonce or token "jti".
func New(optionalPrefix string) (string, error) {
	u, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := strings.ReplaceAll(u, "-", "")
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
