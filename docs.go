// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// connect provides the packages an OpenID Connect relying party needs:
// token encoding and verification (jwt), the client, its verifiers and the
// authorization code flow (oidc), and a bearer token middleware
// (oidc/bearer).
package connect
