package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
)

// collector accumulates the outcome of one dispatch.
type collector struct {
	mu      sync.Mutex
	results []any
	errs    []error
	failed  atomic.Bool
}

func (c *collector) add(results ...any) {
	if len(results) == 0 {
		return
	}
	c.mu.Lock()
	c.results = append(c.results, results...)
	c.mu.Unlock()
}

func (c *collector) fail(err error) {
	c.failed.Store(true)
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// partition splits calls into runs: each exclusive call alone, consecutive
// non-exclusive calls together.
func partition(calls []call) [][]call {
	var runs [][]call
	start := -1
	for i, c := range calls {
		if c.sub.options.Exclusive {
			if start >= 0 {
				runs = append(runs, calls[start:i])
				start = -1
			}
			runs = append(runs, calls[i:i+1])
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		runs = append(runs, calls[start:])
	}
	return runs
}

// dispatch executes resolved calls run by run and returns every non-nil
// result, or a *DispatchError once all started invocations have finished.
// After a failure no further run starts.
func (b *Bus) dispatch(ctx context.Context, st *buildState, calls []call) ([]any, error) {
	col := &collector{}

	for _, run := range partition(calls) {
		if col.failed.Load() {
			break
		}

		if len(run) == 1 {
			b.runCall(ctx, st, run[0], col)
			continue
		}

		var g errgroup.Group
		for _, c := range run {
			g.Go(func() error {
				b.runCall(ctx, st, c, col)
				return nil
			})
		}
		_ = g.Wait()
	}

	if len(col.errs) > 0 {
		return nil, &DispatchError{PublishID: PublishID(ctx), Errors: col.errs}
	}
	return col.results, nil
}

// runCall performs every invocation of one resolved subscription.
// A failed invocation prevents the subscription's remaining elements from starting.
func (b *Bus) runCall(ctx context.Context, st *buildState, c call, col *collector) {
	ctx = withDependency(ctx, c.dep)

	if !c.sub.options.Parallel || len(c.args) == 1 {
		for _, arg := range c.args {
			if !b.invoke(ctx, st, c, arg, col) {
				return
			}
		}
		return
	}

	limit := c.sub.options.MaxDegreeOfParallelism
	if limit == 0 {
		limit = b.cfg.DefaultMaxParallelism
	}

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, arg := range c.args {
		if failed.Load() {
			break
		}
		g.Go(func() error {
			if !failed.Load() && !b.invoke(ctx, st, c, arg, col) {
				failed.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// invoke runs one subscriber invocation and feeds its result through the
// return-value chain. It reports whether the invocation succeeded.
func (b *Bus) invoke(ctx context.Context, st *buildState, c call, arg any, col *collector) bool {
	start := time.Now()
	ctx = withStartProcessingTime(withSubscriptionName(ctx, c.sub.name), start)

	b.activeInvocations.Add(1)
	result, err := safeCall(ctx, st.handlers[c.index], arg)
	b.activeInvocations.Add(-1)
	b.invocations.Add(1)
	b.lastActivityAt.Store(time.Now().UnixNano())
	b.metrics.observeInvocation(c.sub.name, time.Since(start), err)

	if err != nil {
		b.invocationFailures.Add(1)
		b.logger.ErrorContext(ctx, "subscriber failed", append([]any{
			logger.PublishID(PublishID(ctx)),
			logger.Subscription(c.sub.name),
			logger.MessageType(arg),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		}, panicAttrs(err)...)...)
		col.fail(&SubscriberError{
			Subscription: c.sub.name,
			MessageType:  message.Name(arg),
			Err:          err,
		})
		return false
	}

	if message.IsNil(result) {
		return true
	}

	out, err := b.handleResult(ctx, st, c.index, result)
	if err != nil {
		col.fail(err)
		return false
	}
	col.add(out...)
	return true
}

// handleResult passes a subscriber result to the first accepting
// return-value handler. Republishing happens one level deeper.
func (b *Bus) handleResult(ctx context.Context, st *buildState, index int, result any) ([]any, error) {
	h := st.returns.handlerFor(index, result)
	return h.Handle(withDepth(ctx, Depth(ctx)+1), b, result)
}

// panicError is a panic recovered from a subscriber, with the stack at the
// point of recovery.
type panicError struct {
	value any
	stack slog.Attr
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSubscriberPanicked, e.value)
}

func (e *panicError) Unwrap() error { return ErrSubscriberPanicked }

// panicAttrs returns the panic value and stack of err, if err carries a recovered panic.
func panicAttrs(err error) []any {
	var pe *panicError
	if !errors.As(err, &pe) {
		return nil
	}
	return []any{logger.Panic(pe.value), pe.stack}
}

// safeCall converts a panic in h into an error wrapping ErrSubscriberPanicked.
func safeCall(ctx context.Context, h Handler, msg any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &panicError{value: r, stack: logger.Stack()}
		}
	}()
	return h(ctx, msg)
}
