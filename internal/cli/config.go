// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hashicorp/connect/jwt"
	"github.com/hashicorp/connect/oidc"
)

const (
	flagIssuer       = "issuer"
	flagClientID     = "client-id"
	flagClientSecret = "client-secret"
	flagRedirectURL  = "redirect-url"
	flagScopes       = "scopes"
	flagAudiences    = "audiences"
	flagProviderCA   = "provider-ca"
	flagTimeout      = "timeout"
	flagLogLevel     = "log-level"
	flagKeyFile      = "key-file"
)

// loadConfig builds an oidc.Config from flags and CONNECT_* environment
// variables.
func loadConfig(v *viper.Viper) (*oidc.Config, error) {
	const op = "cli.loadConfig"
	var ca string
	if path := v.GetString(flagProviderCA); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read provider CA: %w", op, err)
		}
		ca = string(b)
	}
	cfg, err := oidc.NewConfig(
		v.GetString(flagIssuer),
		v.GetString(flagClientID),
		oidc.ClientSecret(v.GetString(flagClientSecret)),
		v.GetString(flagRedirectURL),
		oidc.WithScopes(v.GetStringSlice(flagScopes)...),
		oidc.WithAudiences(v.GetStringSlice(flagAudiences)...),
		oidc.WithProviderCA(ca),
		oidc.WithTimeout(v.GetDuration(flagTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// newClient creates an oidc.Client, using the PEM key in --key-file instead
// of the provider's JWKS when given.
func newClient(ctx context.Context, v *viper.Viper, logger hclog.Logger) (*oidc.Client, error) {
	const op = "cli.newClient"
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	opts := []oidc.Option{oidc.WithLogger(logger)}
	if path := v.GetString(flagKeyFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read key file: %w", op, err)
		}
		key, err := jwt.ParsePublicKeyPEM(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts = append(opts, oidc.WithSigningKey(key))
	}
	c, err := oidc.NewClient(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
