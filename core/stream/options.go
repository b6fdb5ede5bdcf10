package stream

import "log/slog"

// Option configures a Provider.
type Option func(*Provider)

// WithBufferSize sets how many undelivered messages each stream holds before
// Push suspends. Zero makes every push wait for the consumer. Default is 1.
func WithBufferSize(n int) Option {
	return func(p *Provider) {
		if n >= 0 {
			p.bufferSize = n
		}
	}
}

// WithLogger configures structured logging for stream lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}
