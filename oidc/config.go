// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/connect/oidc/internal/strutils"
	sdkHttp "github.com/hashicorp/connect/sdk/http"
)

// DefaultScopes are always requested by a Config.
var DefaultScopes = []string{"openid", "profile"}

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration of a client of one OIDC provider. A
// Config is immutable once created; Client never modifies it.
type Config struct {
	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.
	Issuer string

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// RedirectURL is the default redirect_uri for authorization requests and
	// authorization code exchanges. It may be empty for clients which only
	// use the client_credentials grant.
	RedirectURL string

	// Scopes requested of the provider. Always includes DefaultScopes.
	Scopes []string

	// Audiences is an optional list of acceptable access token "aud" values.
	Audiences []string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string

	// Timeout bounds every request made to the provider.
	Timeout time.Duration
}

// NewConfig composes a new config for a provider.
//
// Supported options: WithScopes, WithAudiences, WithProviderCA, WithTimeout
func NewConfig(issuer string, clientID string, clientSecret ClientSecret, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:       issuer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       strutils.RemoveDuplicatesStable(append(append([]string{}, DefaultScopes...), opts.withScopes...), false),
		Audiences:    opts.withAudiences,
		ProviderCA:   opts.withProviderCA,
		Timeout:      opts.withTimeout,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration. Every problem found is reported. It
// verifies the issuer is a http(s) URL, but it doesn't verify the Issuer is
// discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter))
	} else if err := validateHTTPURL(c.Issuer); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: issuer %q: %w", op, c.Issuer, err))
	}
	if c.RedirectURL != "" {
		if err := validateHTTPURL(c.RedirectURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: redirect URL %q: %w", op, c.RedirectURL, err))
		}
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: timeout is negative: %w", op, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("scheme is not http or https: %w", ErrInvalidParameter)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %w", ErrInvalidParameter)
	}
	return nil
}

// Scope returns the configured scopes as a space-delimited string.
func (c *Config) Scope() string {
	return strings.Join(c.Scopes, " ")
}

// Credentials returns the client's credentials.
func (c *Config) Credentials() ClientCredentials {
	return ClientCredentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret}
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// timeout returns the configured timeout or the default.
func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return sdkHttp.DefaultTimeout
}

// configOptions is the set of available options
type configOptions struct {
	withScopes     []string
	withAudiences  []string
	withProviderCA string
	withTimeout    time.Duration
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides additional scopes for: Config (merged with
// DefaultScopes), Client.AuthURL (replacing the configured scopes). Each
// value may itself be a space-delimited list.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		split := strings.Fields(strings.Join(scopes, " "))
		switch v := o.(type) {
		case *configOptions:
			v.withScopes = split
		case *authURLOptions:
			v.withScopes = split
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
