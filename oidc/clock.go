// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "time"

// Clock supplies the current wall clock time. Token "exp" and "iat" claims
// are whole seconds since the epoch, so comparisons always go through Unix.
type Clock func() time.Time

// Unix returns the current time in seconds since the epoch. A nil Clock uses
// time.Now.
func (c Clock) Unix() int64 {
	if c == nil {
		return time.Now().Unix()
	}
	return c().Unix()
}

// Now returns the current time. A nil Clock uses time.Now.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
