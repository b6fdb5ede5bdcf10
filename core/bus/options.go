package bus

import (
	"log/slog"
	"reflect"
)

// Option configures a Bus.
type Option func(*Bus)

// WithLogger configures structured logging for dispatch operations.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMiddleware wraps every subscriber invocation.
// Middleware are applied left-to-right (first middleware wraps innermost).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bus) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithMessageTypes declares the types whose values returned by repliers are
// republished instead of being returned to the publisher. A returned value is
// a message when it is assignable to one of these types; slices of such values
// are republished element by element. Envelopes are always messages.
//
// Example:
//
//	bus.New(bus.WithMessageTypes(message.TypeOf[Event](), message.TypeOf[Command]()))
func WithMessageTypes(types ...reflect.Type) Option {
	return func(b *Bus) {
		for _, t := range types {
			if t != nil {
				b.messageTypes = append(b.messageTypes, t)
			}
		}
	}
}

// WithReturnValueHandlers adds handlers consulted before the built-in ones.
func WithReturnValueHandlers(handlers ...ReturnValueHandler) Option {
	return func(b *Bus) {
		for _, h := range handlers {
			if h != nil {
				b.returnHandlers = append(b.returnHandlers, h)
			}
		}
	}
}

// WithScope sets the scope used by scoped subscribers when the publish
// context carries none.
func WithScope(scope Scope) Option {
	return func(b *Bus) {
		b.scope = scope
	}
}

// WithConfig applies settings loaded from the environment or built in code.
func WithConfig(cfg Config) Option {
	return func(b *Bus) {
		b.cfg = cfg
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithSubscriptions registers subscriptions at construction.
func WithSubscriptions(subs ...*Subscription) Option {
	return func(b *Bus) {
		b.pending = append(b.pending, subs...)
	}
}

// WithServices registers the subscriptions of each service at construction.
func WithServices(svcs ...Service) Option {
	return func(b *Bus) {
		for _, svc := range svcs {
			if svc != nil {
				b.pending = append(b.pending, svc.Subscriptions()...)
			}
		}
	}
}

// WithMaxRepublishDepth bounds recursive republishing. Zero means unlimited.
func WithMaxRepublishDepth(n int) Option {
	return func(b *Bus) {
		if n >= 0 {
			b.cfg.MaxRepublishDepth = n
		}
	}
}

// WithResolverCacheSize sets how many message types have their matching
// subscriptions memoized.
func WithResolverCacheSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.cfg.ResolverCacheSize = n
		}
	}
}
