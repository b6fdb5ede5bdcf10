package bus

import (
	"context"
	"fmt"
	"time"
)

// WithRetry wraps a handler to retry on errors up to maxRetries times.
// Returns the last error if all retries fail.
//
// Retrying a subscriber is a local decision; the dispatcher itself never
// retries or skips failures.
func WithRetry(handler Handler, maxRetries int) Handler {
	return func(ctx context.Context, msg any) (any, error) {
		var lastErr error

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}

			result, err := handler(ctx, msg)
			if err == nil {
				return result, nil
			}

			lastErr = err
		}

		return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
	}
}

// WithBackoff wraps a handler with exponential backoff retry logic.
// The delay starts at initialDelay, doubles after each attempt and is capped at maxDelay.
func WithBackoff(handler Handler, maxRetries int, initialDelay, maxDelay time.Duration) Handler {
	return func(ctx context.Context, msg any) (any, error) {
		var lastErr error
		delay := initialDelay

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}

				delay *= 2
				if delay > maxDelay {
					delay = maxDelay
				}
			}

			result, err := handler(ctx, msg)
			if err == nil {
				return result, nil
			}

			lastErr = err
		}

		return nil, fmt.Errorf("failed after %d retries with backoff: %w", maxRetries, lastErr)
	}
}

// WithTimeout cancels the handler's context after timeout.
// The handler keeps running until it observes the cancellation; its late
// result is discarded.
func WithTimeout(handler Handler, timeout time.Duration) Handler {
	return func(ctx context.Context, msg any) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type outcome struct {
			result any
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			result, err := safeCall(ctx, handler, msg)
			done <- outcome{result, err}
		}()

		select {
		case o := <-done:
			return o.result, o.err
		case <-ctx.Done():
			return nil, fmt.Errorf("handler timeout after %s: %w", timeout, ctx.Err())
		}
	}
}

// Retry returns a Middleware that wraps a handler with retry logic.
//
// Example:
//
//	sub := bus.NewSubscriber(notifyWebhook,
//	    bus.WithSubscriptionMiddleware(bus.Retry(3)),
//	)
func Retry(maxRetries int) Middleware {
	return func(h Handler) Handler {
		return WithRetry(h, maxRetries)
	}
}

// Backoff returns a Middleware that wraps a handler with exponential backoff retry logic.
func Backoff(maxRetries int, initialDelay, maxDelay time.Duration) Middleware {
	return func(h Handler) Handler {
		return WithBackoff(h, maxRetries, initialDelay, maxDelay)
	}
}

// Timeout returns a Middleware that wraps a handler with timeout logic.
func Timeout(timeout time.Duration) Middleware {
	return func(h Handler) Handler {
		return WithTimeout(h, timeout)
	}
}
