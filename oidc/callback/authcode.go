// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/connect/oidc"
)

// AuthCode creates an oidc authorization code callback handler which
// uses a StateReader to read existing oidc.State(s) via the request's
// oidc "state" parameter as a key for the lookup. The code is exchanged with
// the Client, which verifies the returned tokens against the State's nonce.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
func AuthCode(c *oidc.Client, sr StateReader, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case c == nil:
		return nil, fmt.Errorf("%s: client is nil: %w", op, oidc.ErrInvalidParameter)
	case sr == nil:
		return nil, fmt.Errorf("%s: state reader is nil: %w", op, oidc.ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oidc.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oidc.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found
		reqState := req.FormValue("state")

		if err := req.FormValue("error"); err != "" {
			reqError := &AuthenErrorResponse{
				Error:       err,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			eFn(reqState, reqError, nil, w, req)
			return
		}

		state, err := sr.Read(req.Context(), reqState)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to read auth code state: %w", op, err), w, req)
			return
		}
		if state == nil {
			// could have expired or it could be invalid... no way to known for sure
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, ErrStateNotFound), w, req)
			return
		}
		if reqState != state.ID() {
			// the reader didn't return the correct state for the key given
			eFn(reqState, nil, fmt.Errorf("%s: authen state and response state are not equal: %w", op, ErrStateNotFound), w, req)
			return
		}

		g, err := state.Grant("")
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		if g.Code = req.FormValue("code"); g.Code == "" {
			eFn(reqState, nil, fmt.Errorf("%s: missing authorization code: %w", op, oidc.ErrInvalidParameter), w, req)
			return
		}

		bundle, err := c.Exchange(req.Context(), g)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		sFn(reqState, bundle, w, req)
	}, nil
}
