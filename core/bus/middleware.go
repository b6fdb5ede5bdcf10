package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/msgbus/core/logger"
)

// Handler is the uniform invocation every subscription is adapted to.
// msg is the value delivered to the subscriber: the message, a typed batch
// slice, or a *stream.Stream. The result is the subscriber's return value.
type Handler func(ctx context.Context, msg any) (any, error)

// Middleware wraps a Handler to add additional functionality.
type Middleware func(Handler) Handler

// chainMiddleware applies middleware in order.
// Middleware are applied left-to-right (first middleware wraps innermost).
func chainMiddleware(h Handler, middleware ...[]Middleware) Handler {
	for _, mws := range middleware {
		for _, mw := range mws {
			if mw != nil {
				h = mw(h)
			}
		}
	}
	return h
}

// LoggingMiddleware logs subscriber execution with timing.
// Logs start, completion, and errors for every invocation. Elapsed time is
// measured from StartProcessingTime when the bus set it.
//
// Example:
//
//	b, err := bus.New(
//	    bus.WithMiddleware(bus.LoggingMiddleware(logger)),
//	)
func LoggingMiddleware(log *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg any) (any, error) {
			start := StartProcessingTime(ctx)
			if start.IsZero() {
				start = time.Now()
			}
			name := SubscriptionName(ctx)

			log.DebugContext(ctx, "subscriber started",
				logger.PublishID(PublishID(ctx)),
				logger.Subscription(name),
				logger.MessageType(msg))

			result, err := next(ctx, msg)

			if err != nil {
				log.ErrorContext(ctx, "subscriber failed",
					logger.PublishID(PublishID(ctx)),
					logger.Subscription(name),
					logger.MessageType(msg),
					logger.Elapsed(start),
					logger.Error(err))
			} else {
				log.DebugContext(ctx, "subscriber completed",
					logger.PublishID(PublishID(ctx)),
					logger.Subscription(name),
					logger.MessageType(msg),
					logger.Elapsed(start))
			}

			return result, err
		}
	}
}
