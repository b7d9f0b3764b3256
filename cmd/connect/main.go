// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/connect/internal/cli"
	"github.com/hashicorp/connect/oidc"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		// the provider was unreachable, distinct from a rejected token
		if rej, ok := oidc.AsRejection(err); ok && rej.Kind == oidc.KindTransportError {
			return 3
		}
		return 1
	}
	return 0
}
