package clog

import "io"

// Options holds configuration options for the clog logger instance.
type Options struct {
	// Namespace is the root namespace for the logger, typically the tool name.
	Namespace string

	// AnnotationWriter receives workflow annotation lines when Config.Annotations
	// is set. Defaults to stdout.
	AnnotationWriter io.Writer
}

// Option defines a function type for configuring clog options.
type Option func(*Options)

// WithNamespace sets the namespace for the logger.
//
// Example:
//
//	logger, err := clog.New(ctx, config, clog.WithNamespace("build-number"))
func WithNamespace(namespace string) Option {
	return func(opts *Options) {
		opts.Namespace = namespace
	}
}

// WithAnnotationWriter redirects workflow annotation lines, mainly for tests.
func WithAnnotationWriter(w io.Writer) Option {
	return func(opts *Options) {
		opts.AnnotationWriter = w
	}
}

// ParseOptions applies the provided options and returns a configured Options struct.
func ParseOptions(opts ...Option) *Options {
	result := &Options{}
	for _, opt := range opts {
		opt(result)
	}
	return result
}
