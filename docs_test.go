// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package connect_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/connect/oidc"
	"github.com/hashicorp/connect/oidc/bearer"
)

func Example_bearer() {
	ctx := context.Background()
	cfg, err := oidc.NewConfig("https://your-issuer.com", "your_client_id", "your_client_secret", "")
	if err != nil {
		// handle error
	}
	c, err := oidc.NewClient(ctx, cfg)
	if err != nil {
		// handle error
	}

	hello := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := bearer.ClaimsFromContext(r.Context())
		fmt.Fprintf(w, "hello %s", claims.Subject())
	})
	http.Handle("/hello", bearer.Middleware(c, bearer.WithRequiredScope("profile"))(hello))
	_ = http.ListenAndServe(":8080", nil)
}
