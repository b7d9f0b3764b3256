// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc"
)

const (
	flagIDToken       = "id-token"
	flagRequiredScope = "required-scope"
	flagNonce         = "nonce"
)

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify an access token or id_token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd, v)
			c, err := newClient(cmd.Context(), v, logger)
			if err != nil {
				return err
			}
			var claims jwt.Claims
			if v.GetBool(flagIDToken) {
				claims, err = c.VerifyIDToken(args[0], oidc.WithNonce(v.GetString(flagNonce)))
			} else {
				claims, err = c.VerifyAccessToken(cmd.Context(), args[0], oidc.WithRequiredScope(v.GetString(flagRequiredScope)))
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, claims)
		},
	}
	flags := cmd.Flags()
	flags.Bool(flagIDToken, false, "verify the token as an id_token")
	flags.String(flagRequiredScope, "", "scope the access token must carry")
	flags.String(flagNonce, "", "nonce the id_token must carry")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}
