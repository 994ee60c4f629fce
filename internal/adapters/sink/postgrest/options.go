package postgrest

import (
	"net/http"
	"time"
)

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	debug     bool
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithDebug logs requests and responses through resty.
func WithDebug(on bool) Option {
	return func(o *options) {
		o.debug = on
	}
}
