// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package cli implements the connect command line: provider discovery, token
// exchange and token verification against one OIDC provider.
package cli

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables bound to flags, e.g.
// CONNECT_CLIENT_ID for --client-id.
const EnvPrefix = "CONNECT"

// BuildVersion is set at link time.
var BuildVersion = "dev"

// NewRootCmd builds the connect command tree. Every invocation gets its own
// viper instance; nothing is shared between command trees.
func NewRootCmd() *cobra.Command {
	v := newViper()
	root := &cobra.Command{
		Use:           "connect",
		Short:         "OpenID Connect relying party CLI",
		Long:          "Discover an OpenID Connect provider, exchange grants for tokens and verify tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(flagIssuer, "", "issuer URL of the provider")
	flags.String(flagClientID, "", "client id")
	flags.String(flagClientSecret, "", "client secret")
	flags.String(flagRedirectURL, "", "redirect URL registered with the provider")
	flags.StringSlice(flagScopes, nil, "additional scopes to request")
	flags.StringSlice(flagAudiences, nil, "acceptable access token audiences")
	flags.String(flagProviderCA, "", "path to a PEM CA certificate for the provider")
	flags.Duration(flagTimeout, 0, "timeout of every request to the provider")
	flags.String(flagKeyFile, "", "PEM public key verifying tokens instead of the provider's JWKS")
	flags.String(flagLogLevel, "warn", "log level: trace, debug, info, warn, error")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		newDiscoverCmd(v),
		newTokenCmd(v),
		newVerifyCmd(v),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(
		viper.EnvKeyReplacer(strings.NewReplacer("-", "_")),
	)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func newLogger(cmd *cobra.Command, v *viper.Viper) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "connect",
		Level:  hclog.LevelFromString(v.GetString(flagLogLevel)),
		Output: cmd.ErrOrStderr(),
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of connect",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	}
}
