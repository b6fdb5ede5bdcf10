package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/stream"
	"github.com/dmitrymomot/msgbus/pkg/async"
)

// streamCall is one matched stream subscription with its stream.
type streamCall struct {
	call
	stream *stream.Stream
}

// PublishStream starts every stream subscription related to the provider's
// element type, each on its own stream, and returns one pending handle per
// subscriber without waiting. Streams exist before PublishStream returns, so
// every message pushed afterwards reaches them.
//
// A handle fails with *StreamFault when its subscriber returns an error.
// A subscriber that returns before its stream ends aborts only its own stream.
// Exclusive and Parallel options do not apply to stream subscriptions.
func (b *Bus) PublishStream(ctx context.Context, p *stream.Provider) ([]*async.ExecFuture, error) {
	if p == nil {
		return nil, ErrNilMessage
	}

	st, err := b.built()
	if err != nil {
		return nil, err
	}

	ctx = withPublishID(ctx, uuid.New().String())
	b.publishes.Add(1)

	calls := st.resolver.resolveStream(p.ElementType())
	if err := bindDependencies(ctx, calls, b.scope); err != nil {
		b.publishFailures.Add(1)
		b.metrics.observePublish("stream", err)
		return nil, err
	}

	scs := make([]streamCall, 0, len(calls))
	for _, c := range calls {
		s, err := p.CreateStream(c.sub.filter)
		if err != nil {
			for _, created := range scs {
				created.stream.Abort(err)
			}
			b.publishFailures.Add(1)
			b.metrics.observePublish("stream", err)
			return nil, fmt.Errorf("create stream for %q: %w", c.sub.name, err)
		}
		scs = append(scs, streamCall{call: c, stream: s})
	}
	b.metrics.observePublish("stream", nil)

	b.logger.DebugContext(ctx, "stream published",
		logger.PublishID(PublishID(ctx)),
		logger.Count("subscriptions", len(scs)))

	// Subscribers must always run so their streams reach a terminal state,
	// even when ctx is already canceled; they observe ctx themselves.
	handles := make([]*async.ExecFuture, 0, len(scs))
	for _, sc := range scs {
		handles = append(handles, async.Exec(context.WithoutCancel(ctx), sc,
			func(_ context.Context, sc streamCall) error {
				return b.consume(ctx, st, sc)
			}))
	}

	return handles, nil
}

// consume runs one stream subscriber and settles its stream.
func (b *Bus) consume(ctx context.Context, st *buildState, sc streamCall) error {
	start := time.Now()
	name := sc.sub.name
	s := sc.stream

	ctx = withDependency(ctx, sc.dep)
	ctx = withStartProcessingTime(withSubscriptionName(ctx, name), start)

	b.activeInvocations.Add(1)
	_, err := safeCall(ctx, st.handlers[sc.index], s)
	b.activeInvocations.Add(-1)
	b.invocations.Add(1)
	b.lastActivityAt.Store(time.Now().UnixNano())

	// Reading an aborted stream to its end is a normal way to finish.
	if err != nil && errors.Is(err, stream.ErrAborted) && s.State() == stream.Aborted {
		err = nil
	}
	b.metrics.observeInvocation(name, time.Since(start), err)

	if err != nil {
		s.Fault(err)
		b.invocationFailures.Add(1)
		b.metrics.observeStream(name, stream.Faulted.String())
		b.logger.ErrorContext(ctx, "stream subscriber failed", append([]any{
			logger.PublishID(PublishID(ctx)),
			logger.Subscription(name),
			logger.StreamID(s.ID()),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		}, panicAttrs(err)...)...)
		return &StreamFault{Subscription: name, StreamID: s.ID(), Err: err}
	}

	if s.State() == stream.Active {
		s.Abort(stream.ErrConsumerReturned)
	}
	b.metrics.observeStream(name, s.State().String())
	return nil
}

// PublishSequence publishes items as a stream: it creates a provider of E,
// publishes it, pushes every item, completes it and waits for every stream
// subscriber. The returned error joins all stream faults.
//
// Example:
//
//	err := bus.PublishSequence[Command](ctx, b, []Command{CreateOrder{}, ShipOrder{}})
func PublishSequence[E any](ctx context.Context, b *Bus, items []E, opts ...stream.Option) error {
	opts = append([]stream.Option{
		stream.WithBufferSize(b.cfg.StreamBufferSize),
		stream.WithLogger(b.logger),
	}, opts...)
	p := stream.NewProvider[E](opts...)

	handles, err := b.PublishStream(ctx, p)
	if err != nil {
		return err
	}

	var pushErr error
	for _, it := range items {
		if pushErr = p.Push(ctx, it); pushErr != nil {
			p.Abort(pushErr)
			break
		}
	}
	if pushErr == nil {
		p.Complete()
	}

	return errors.Join(pushErr, async.ExecAll(handles...))
}
