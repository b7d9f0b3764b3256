// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc"
)

const (
	flagGrant        = "grant"
	flagCode         = "code"
	flagCallbackURL  = "callback-url"
	flagRefreshToken = "refresh-token"
	flagGrantScope   = "grant-scope"
)

// tokenOutput is what the token command prints. Tokens are printed in the
// clear on purpose; TokenBundle would redact them.
type tokenOutput struct {
	AccessToken  string     `json:"access_token"`
	IDToken      string     `json:"id_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	AccessClaims jwt.Claims `json:"access_claims,omitempty"`
	IDClaims     jwt.Claims `json:"id_claims,omitempty"`
}

func newTokenOutput(b *oidc.TokenBundle) tokenOutput {
	out := tokenOutput{
		AccessToken:  string(b.AccessToken),
		IDToken:      string(b.IDToken),
		RefreshToken: string(b.RefreshToken),
		TokenType:    b.TokenType,
		AccessClaims: b.AccessClaims,
		IDClaims:     b.IDClaims,
	}
	if !b.Expiry.IsZero() {
		out.Expiry = &b.Expiry
	}
	return out
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange a grant for verified tokens",
		Long: "Exchange an authorization code, a refresh token or the client's credentials " +
			"at the provider's token endpoint and verify the returned tokens.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd, v)
			c, err := newClient(cmd.Context(), v, logger)
			if err != nil {
				return err
			}
			bundle, err := c.Exchange(cmd.Context(), oidc.Grant{
				Type:         oidc.GrantType(v.GetString(flagGrant)),
				Code:         v.GetString(flagCode),
				CallbackURL:  v.GetString(flagCallbackURL),
				RefreshToken: oidc.RefreshToken(v.GetString(flagRefreshToken)),
				Scope:        v.GetString(flagGrantScope),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, newTokenOutput(bundle))
		},
	}
	flags := cmd.Flags()
	flags.String(flagGrant, string(oidc.GrantClientCredentials), "grant type: authorization_code, client_credentials or refresh_token")
	flags.String(flagCode, "", "authorization code")
	flags.String(flagCallbackURL, "", "callback URL carrying the authorization code")
	flags.String(flagRefreshToken, "", "refresh token")
	flags.String(flagGrantScope, "", "scope requested with the client_credentials grant")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}
