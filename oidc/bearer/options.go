// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bearer

import "github.com/hashicorp/go-hclog"

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// options is the set of available options for Middleware
type options struct {
	withStrategies    []Strategy
	withRequiredScope string
	withRealm         string
	withLogger        hclog.Logger
}

func getDefaults() options {
	return options{
		withStrategies: DefaultStrategies,
		withRealm:      DefaultRealm,
		withLogger:     hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStrategies replaces DefaultStrategies.
func WithStrategies(s ...Strategy) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && len(s) > 0 {
			o.withStrategies = s
		}
	}
}

// WithRequiredScope provides a scope every token must carry.
func WithRequiredScope(scope string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withRequiredScope = scope
		}
	}
}

// WithRealm provides the realm of WWW-Authenticate challenges.
func WithRealm(realm string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && realm != "" {
			o.withRealm = realm
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}
