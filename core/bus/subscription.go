package bus

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"github.com/dmitrymomot/msgbus/core/stream"
)

type shape int

const (
	shapeSingle shape = iota
	shapeBatch
	shapeStream
)

func (s shape) String() string {
	switch s {
	case shapeBatch:
		return "batch"
	case shapeStream:
		return "stream"
	default:
		return "single"
	}
}

// invokeFunc is the uniform form every subscriber delegate is adapted to.
// dep is nil unless the subscription is scoped.
type invokeFunc func(ctx context.Context, arg, dep any) (any, error)

// SubscriptionOptions controls how the dispatcher schedules a subscription.
type SubscriptionOptions struct {
	// Exclusive subscriptions never run concurrently with other subscriptions
	// of the same publish call.
	Exclusive bool

	// Parallel invokes the subscription concurrently for each element of a batch.
	Parallel bool

	// MaxDegreeOfParallelism bounds Parallel invocations. Zero means unbounded.
	MaxDegreeOfParallelism int
}

// Subscription binds a message filter to a subscriber delegate.
// Subscriptions are immutable once registered.
type Subscription struct {
	name       string
	filter     reflect.Type
	shape      shape
	returnType reflect.Type
	depType    reflect.Type
	options    SubscriptionOptions
	middleware []Middleware
	invoke     invokeFunc
	nilFn      bool
}

// SubscriptionOption configures a Subscription.
type SubscriptionOption func(*Subscription)

// Name returns the subscription name used in logs, metrics and errors.
func (s *Subscription) Name() string { return s.name }

// MessageType returns the filter type. For batch and stream subscriptions it
// is the element type.
func (s *Subscription) MessageType() reflect.Type { return s.filter }

// Options returns the scheduling options.
func (s *Subscription) Options() SubscriptionOptions { return s.options }

// NewSubscriber subscribes fn to every message assignable to T.
// Batches fan out to one invocation per matching element.
//
// Example:
//
//	sub := bus.NewSubscriber(func(ctx context.Context, e OrderPlaced) error {
//		return mailer.SendConfirmation(ctx, e.OrderID)
//	})
func NewSubscriber[T any](fn func(context.Context, T) error, opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeSingle, nil, nil,
		func(ctx context.Context, arg, _ any) (any, error) {
			return nil, fn(ctx, arg.(T))
		}, opts)
}

// NewReplier subscribes fn to every message assignable to T. Its result is
// passed to the return-value handlers: messages are republished, anything
// else is returned to the publisher.
func NewReplier[T, R any](fn func(context.Context, T) (R, error), opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeSingle, reflect.TypeFor[R](), nil,
		func(ctx context.Context, arg, _ any) (any, error) {
			return fn(ctx, arg.(T))
		}, opts)
}

// NewBatchSubscriber subscribes fn to published batches whose elements are all
// assignable to T. A single published message arrives as a one-element batch.
func NewBatchSubscriber[T any](fn func(context.Context, []T) error, opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeBatch, nil, nil,
		func(ctx context.Context, arg, _ any) (any, error) {
			return nil, fn(ctx, arg.([]T))
		}, opts)
}

// NewBatchReplier is the batch form of NewReplier.
func NewBatchReplier[T, R any](fn func(context.Context, []T) (R, error), opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeBatch, reflect.TypeFor[R](), nil,
		func(ctx context.Context, arg, _ any) (any, error) {
			return fn(ctx, arg.([]T))
		}, opts)
}

// NewStreamSubscriber subscribes fn to stream providers published with
// PublishStream whose element type is related to T. The stream yields only
// the pushed messages assignable to T. It never matches Publish or PublishBatch.
//
// Returning before the stream ends aborts the stream. Returning an error
// faults it.
func NewStreamSubscriber[T any](fn func(context.Context, *stream.Typed[T]) error, opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeStream, nil, nil,
		func(ctx context.Context, arg, _ any) (any, error) {
			return nil, fn(ctx, stream.As[T](arg.(*stream.Stream)))
		}, opts)
}

// NewScopedSubscriber is NewSubscriber with an extra dependency of type D
// resolved from the publish scope for each publish call.
func NewScopedSubscriber[T, D any](fn func(context.Context, T, D) error, opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeSingle, nil, reflect.TypeFor[D](),
		func(ctx context.Context, arg, dep any) (any, error) {
			return nil, fn(ctx, arg.(T), dep.(D))
		}, opts)
}

// NewScopedReplier is NewReplier with an extra dependency of type D.
func NewScopedReplier[T, D, R any](fn func(context.Context, T, D) (R, error), opts ...SubscriptionOption) *Subscription {
	return newSubscription[T](fn, fn == nil, shapeSingle, reflect.TypeFor[R](), reflect.TypeFor[D](),
		func(ctx context.Context, arg, dep any) (any, error) {
			return fn(ctx, arg.(T), dep.(D))
		}, opts)
}

func newSubscription[T any](fn any, nilFn bool, sh shape, ret, dep reflect.Type, invoke invokeFunc, opts []SubscriptionOption) *Subscription {
	s := &Subscription{
		filter:     reflect.TypeFor[T](),
		shape:      sh,
		returnType: ret,
		depType:    dep,
		invoke:     invoke,
		nilFn:      nilFn,
	}
	if !nilFn {
		s.name = funcName(fn)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Subscription) validate() error {
	switch {
	case s == nil:
		return &ConfigurationError{Reason: "nil subscription"}
	case s.nilFn:
		return &ConfigurationError{Subscription: s.name, Reason: "nil subscriber function"}
	case s.options.MaxDegreeOfParallelism < 0:
		return &ConfigurationError{Subscription: s.name, Reason: "negative max degree of parallelism"}
	}
	return nil
}

// funcName derives a readable name from a function value.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// WithExclusive makes the subscription run alone: no other subscription of the
// same publish call overlaps with it.
func WithExclusive() SubscriptionOption {
	return func(s *Subscription) {
		s.options.Exclusive = true
	}
}

// WithParallel invokes the subscription concurrently for the elements of a batch.
func WithParallel() SubscriptionOption {
	return func(s *Subscription) {
		s.options.Parallel = true
	}
}

// WithMaxDegreeOfParallelism enables Parallel and bounds it to n concurrent
// invocations. Zero means unbounded; negative values are rejected on Subscribe.
func WithMaxDegreeOfParallelism(n int) SubscriptionOption {
	return func(s *Subscription) {
		s.options.Parallel = true
		s.options.MaxDegreeOfParallelism = n
	}
}

// WithSubscriptionOptions replaces all scheduling options at once.
func WithSubscriptionOptions(o SubscriptionOptions) SubscriptionOption {
	return func(s *Subscription) {
		s.options = o
	}
}

// WithSubscriptionName overrides the name derived from the subscriber function.
func WithSubscriptionName(name string) SubscriptionOption {
	return func(s *Subscription) {
		if name != "" {
			s.name = name
		}
	}
}

// WithSubscriptionMiddleware wraps this subscription's invocations.
// It runs inside the bus-level middleware.
func WithSubscriptionMiddleware(mw ...Middleware) SubscriptionOption {
	return func(s *Subscription) {
		s.middleware = append(s.middleware, mw...)
	}
}

// Service groups subscriptions built from the methods of one value.
// Method values are bound once, when the service is subscribed.
//
// Example:
//
//	func (s *Billing) Subscriptions() []*bus.Subscription {
//		return []*bus.Subscription{
//			bus.NewSubscriber(s.OnOrderPlaced),
//			bus.NewReplier(s.QuoteOrder, bus.WithExclusive()),
//		}
//	}
type Service interface {
	Subscriptions() []*Subscription
}
