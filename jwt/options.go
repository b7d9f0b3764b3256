// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "time"

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

type codecOptions struct {
	withSchema *Schema
	withAlgs   []Alg
	withNow    func() time.Time
	withKeyID  string
}

func codecDefaults() codecOptions {
	return codecOptions{
		withNow: time.Now,
	}
}

// getCodecOpts gets the defaults and applies the opt overrides passed in.
func getCodecOpts(opt ...Option) codecOptions {
	opts := codecDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithSchema validates decoded claims against (or fills issuance defaults
// from) the given schema.
func WithSchema(s Schema) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withSchema = &s
		}
	}
}

// WithAllowedAlgs restricts the header algorithms Decode accepts. By default
// every supported algorithm is allowed and the key type decides.
func WithAllowedAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withAlgs = algs
		}
	}
}

// WithNow provides the clock Encode uses for issuance defaults.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok && now != nil {
			o.withNow = now
		}
	}
}

// WithKeyID sets the "kid" header of an encoded token.
func WithKeyID(kid string) Option {
	return func(o interface{}) {
		if o, ok := o.(*codecOptions); ok {
			o.withKeyID = kid
		}
	}
}
