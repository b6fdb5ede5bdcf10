package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/pkg/async"
)

// Publish delivers msg to every matching subscription and waits for all of
// them. It returns the non-nil results that were not republished, or a
// *DispatchError carrying every failure once all started invocations have
// finished. Publishing with no matching subscription is not an error.
// A context that is already done fails the call with ctx.Err() and nothing
// is delivered.
func (b *Bus) Publish(ctx context.Context, msg any) ([]any, error) {
	if message.IsNil(msg) {
		return nil, ErrNilMessage
	}

	return b.publish(ctx, "single", func(r *resolver) []call {
		return r.resolveSingle(msg)
	})
}

// PublishAsync is Publish without blocking the caller. The returned future
// completes with the same results or error Publish would return.
func (b *Bus) PublishAsync(ctx context.Context, msg any) *async.Future[[]any] {
	return async.Go(ctx, func(ctx context.Context) ([]any, error) {
		return b.Publish(ctx, msg)
	})
}

// PublishBatch delivers a batch. Batch subscriptions whose element type
// accepts every message are invoked once with the whole batch; other
// subscriptions are invoked once per matching message, in batch order unless
// they are Parallel. An empty batch invokes nothing.
func (b *Bus) PublishBatch(ctx context.Context, msgs []any) ([]any, error) {
	for i, m := range msgs {
		if message.IsNil(m) {
			return nil, fmt.Errorf("%w at batch index %d", ErrNilMessage, i)
		}
	}

	return b.publish(ctx, "batch", func(r *resolver) []call {
		return r.resolveBatch(msgs)
	})
}

// PublishBatchAsync is PublishBatch without blocking the caller.
func (b *Bus) PublishBatchAsync(ctx context.Context, msgs []any) *async.Future[[]any] {
	return async.Go(ctx, func(ctx context.Context) ([]any, error) {
		return b.PublishBatch(ctx, msgs)
	})
}

func (b *Bus) publish(ctx context.Context, kind string, resolve func(*resolver) []call) (results []any, err error) {
	st, err := b.built()
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	depth := Depth(ctx)
	if limit := b.cfg.MaxRepublishDepth; limit > 0 && depth > limit {
		return nil, fmt.Errorf("%w: depth %d, limit %d", ErrRepublishDepthExceeded, depth, limit)
	}

	id := uuid.New().String()
	ctx = withPublishID(ctx, id)
	start := time.Now()

	b.publishes.Add(1)
	defer func() {
		if err != nil {
			b.publishFailures.Add(1)
		}
		b.metrics.observePublish(kind, err)
	}()

	calls := resolve(st.resolver)
	if err := bindDependencies(ctx, calls, b.scope); err != nil {
		return nil, err
	}

	results, err = b.dispatch(ctx, st, calls)

	failure := logger.Error(err)
	var de *DispatchError
	if errors.As(err, &de) {
		failure = logger.Errors(de.Errors...)
	}

	b.logger.DebugContext(ctx, "message published",
		logger.PublishID(id),
		logger.Depth(depth),
		logger.Count("subscriptions", len(calls)),
		logger.Count("results", len(results)),
		logger.Duration(time.Since(start)),
		logger.Result(resultLabel(err)),
		failure)

	return results, err
}

// Batch converts a typed slice for PublishBatch.
//
//	results, err := b.PublishBatch(ctx, bus.Batch(orders))
func Batch[T any](items []T) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// PublishFor publishes msg and returns the results of type R.
// Results of other types are dropped.
//
// Example:
//
//	quotes, err := bus.PublishFor[Quote](ctx, b, GetQuote{Symbol: "ACME"})
func PublishFor[R any](ctx context.Context, b *Bus, msg any) ([]R, error) {
	results, err := b.Publish(ctx, msg)
	if err != nil {
		return nil, err
	}

	out := make([]R, 0, len(results))
	for _, r := range results {
		if v, ok := r.(R); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
