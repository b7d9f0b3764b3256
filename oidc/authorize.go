// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
)

// Prompt is a value of the authorization request "prompt" parameter.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
type Prompt string

const (
	PromptNone          Prompt = "none"
	PromptLogin         Prompt = "login"
	PromptConsent       Prompt = "consent"
	PromptSelectAccount Prompt = "select_account"
)

// Display is a value of the authorization request "display" parameter.
type Display string

const (
	DisplayPage  Display = "page"
	DisplayPopup Display = "popup"
	DisplayTouch Display = "touch"
	DisplayWAP   Display = "wap"
)

// AuthURL returns the URL the user agent is sent to to start an
// authorization code flow. It always carries response_type, client_id,
// redirect_uri and scope; the options add the optional request parameters.
//
// Supported options: WithState, WithNonce, WithScopes, WithRedirectURL,
// WithPrompts, WithDisplay, WithMaxAge, WithUILocales, WithLoginHint,
// WithIDTokenHint, WithACRValues
func (c *Client) AuthURL(opt ...Option) (string, error) {
	const op = "Client.AuthURL"
	if c.provider.AuthorizationEndpoint == "" {
		return "", fmt.Errorf("%s: authorization_endpoint: %w", op, ErrMissingEndpoint)
	}
	opts := getAuthURLOpts(opt...)
	if opts.withState != "" && opts.withState == opts.withNonce {
		return "", fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	redirectURL := c.config.RedirectURL
	if opts.withRedirectURL != "" {
		redirectURL = opts.withRedirectURL
	}
	if redirectURL == "" {
		return "", fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	scopes := c.config.Scopes
	if len(opts.withScopes) > 0 {
		scopes = opts.withScopes
	}

	oauth2Config := oauth2.Config{
		ClientID:    c.config.ClientID,
		RedirectURL: redirectURL,
		Endpoint:    c.provider.endpoint(),
		Scopes:      scopes,
	}
	var params []oauth2.AuthCodeOption
	if opts.withNonce != "" {
		params = append(params, oidc.Nonce(opts.withNonce))
	}
	if len(opts.withPrompts) > 0 {
		prompts := make([]string, 0, len(opts.withPrompts))
		for _, p := range opts.withPrompts {
			prompts = append(prompts, string(p))
		}
		params = append(params, oauth2.SetAuthURLParam("prompt", strings.Join(prompts, " ")))
	}
	if opts.withDisplay != "" {
		params = append(params, oauth2.SetAuthURLParam("display", string(opts.withDisplay)))
	}
	if opts.withMaxAge != nil {
		params = append(params, oauth2.SetAuthURLParam("max_age", strconv.FormatUint(uint64(*opts.withMaxAge), 10)))
	}
	if len(opts.withUILocales) > 0 {
		locales := make([]string, 0, len(opts.withUILocales))
		for _, l := range opts.withUILocales {
			locales = append(locales, l.String())
		}
		params = append(params, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	if opts.withLoginHint != "" {
		params = append(params, oauth2.SetAuthURLParam("login_hint", opts.withLoginHint))
	}
	if opts.withIDTokenHint != "" {
		params = append(params, oauth2.SetAuthURLParam("id_token_hint", string(opts.withIDTokenHint)))
	}
	if len(opts.withACRValues) > 0 {
		params = append(params, oauth2.SetAuthURLParam("acr_values", strings.Join(opts.withACRValues, " ")))
	}
	return oauth2Config.AuthCodeURL(opts.withState, params...), nil
}

// SignoutURL returns the URL that ends the user's session at the provider.
// The id_token is sent as the id_token_hint; postLogoutRedirectURI is
// optional and must be registered with the provider.
func (c *Client) SignoutURL(idToken IDToken, postLogoutRedirectURI string) (string, error) {
	const op = "Client.SignoutURL"
	if idToken == "" {
		return "", fmt.Errorf("%s: id_token is required for signout: %w", op, ErrInvalidParameter)
	}
	endpoint, err := c.provider.signoutEndpoint()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	q := u.Query()
	q.Set("id_token_hint", string(idToken))
	if postLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// authURLOptions is the set of available options for Client.AuthURL
type authURLOptions struct {
	withState       string
	withNonce       string
	withScopes      []string
	withRedirectURL string
	withPrompts     []Prompt
	withDisplay     Display
	withMaxAge      *uint
	withUILocales   []language.Tag
	withLoginHint   string
	withIDTokenHint IDToken
	withACRValues   []string
}

func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithState provides the State whose ID and Nonce are sent as the "state"
// and "nonce" parameters for: Client.AuthURL
func WithState(s *State) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok && s != nil {
			o.withState = s.ID()
			o.withNonce = s.Nonce()
		}
	}
}

// WithRedirectURL overrides the Config's RedirectURL for: Client.AuthURL
func WithRedirectURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withRedirectURL = u
		}
	}
}

// WithPrompts provides the "prompt" parameter for: Client.AuthURL
func WithPrompts(prompts ...Prompt) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withPrompts = prompts
		}
	}
}

// WithDisplay provides the "display" parameter for: Client.AuthURL
func WithDisplay(d Display) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withDisplay = d
		}
	}
}

// WithMaxAge provides the "max_age" parameter, in seconds, for:
// Client.AuthURL
func WithMaxAge(seconds uint) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withMaxAge = &seconds
		}
	}
}

// WithUILocales provides the "ui_locales" parameter for: Client.AuthURL
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithLoginHint provides the "login_hint" parameter for: Client.AuthURL
func WithLoginHint(hint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withLoginHint = hint
		}
	}
}

// WithIDTokenHint provides the "id_token_hint" parameter for: Client.AuthURL
func WithIDTokenHint(t IDToken) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withIDTokenHint = t
		}
	}
}

// WithACRValues provides the "acr_values" parameter for: Client.AuthURL
func WithACRValues(values ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withACRValues = values
		}
	}
}
