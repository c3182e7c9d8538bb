package refstore

import (
	"net/http"

	"github.com/ceyewan/build-number/clog"
)

// Options holds optional dependencies of a Store.
type Options struct {
	Logger     clog.Logger
	HTTPClient *http.Client
}

// Option configures a Store.
type Option func(*Options)

// WithLogger provides a logger for the store.
func WithLogger(logger clog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHTTPClient overrides the HTTP client of the github backend.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}
