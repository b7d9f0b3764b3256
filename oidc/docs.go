// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for writing OpenID Connect relying parties: services which
send users to a provider to authenticate, exchange grants for tokens and
decide whether the tokens they are presented with may be trusted.

# Primary types provided by the package

* Config: the immutable configuration of a client of one provider (issuer,
client id/secret, redirect URL, scopes, acceptable audiences, CA and request
timeout).

* Client: built once from a Config with NewClient, which discovers the
provider and fetches its signing key. A Client is safe for concurrent use and
provides AuthURL, Exchange, Refresh, ClientAccessToken, VerifyAccessToken,
VerifyIDToken, UserInfo and SignoutURL.

* AccessTokenVerifier and IDTokenVerifier: stateless verifiers which apply an
AccessTokenPolicy or IDTokenPolicy to a token. Self-contained access tokens
are verified offline; opaque ones are sent to the issuer's verification
endpoint by an Introspector.

* Rejection: the typed outcome of a failed verification or exchange. Its Kind
(InvalidToken, MismatchingIssuer, MismatchingAudience, MismatchingAlgorithm,
ExpiredToken, InsufficientScope, TransportError, ProviderError) maps to an
HTTP status and an OAuth2 error code.

* State: one authorization code flow for a user, carrying the state and nonce
sent to the provider.

* TokenBundle: the verified tokens of an exchange. AccessToken, IDToken and
RefreshToken redact themselves when printed or marshaled.

# The oidc/bearer package

The bearer package extracts bearer tokens from requests and provides an
http middleware which answers unauthenticated requests the way RFC 6750
describes.

# The connect CLI

cmd/connect wraps Discover, Client.Exchange and the verifiers in a command
line for trying a provider out.
*/
package oidc
