// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hashicorp/connect/oidc"
)

func newDiscoverCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Print the provider's discovery document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			client, err := cfg.HTTPClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), client.Timeout)
			defer cancel()
			pc, err := oidc.Discover(ctx, cfg.Issuer, client)
			if err != nil {
				return err
			}
			return printJSON(cmd, pc)
		},
	}
}
