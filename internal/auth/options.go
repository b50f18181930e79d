package auth

import (
	"io"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/okian/seasonpoints/pkg/logger"
)

// Option applies a configuration option to the Flow.
type Option func(*Flow)

// WithHTTPClient sets the client used for the token and user calls.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Flow) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithClock sets the clock used for token expiry.
func WithClock(c clockwork.Clock) Option {
	return func(f *Flow) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithRandom sets the entropy source for verifiers and states.
func WithRandom(r io.Reader) Option {
	return func(f *Flow) {
		if r != nil {
			f.random = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}
