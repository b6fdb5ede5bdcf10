package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/msgbus/core/logger"
)

// Bus delivers published messages to the subscriptions registered with it.
type Bus struct {
	logger         *slog.Logger
	middleware     []Middleware
	messageTypes   []reflect.Type
	returnHandlers []ReturnValueHandler
	scope          Scope
	metrics        *Metrics
	cfg            Config
	pending        []*Subscription

	reg       registry
	buildOnce sync.Once
	buildErr  error
	state     atomic.Pointer[buildState]

	publishes          atomic.Int64
	publishFailures    atomic.Int64
	invocations        atomic.Int64
	invocationFailures atomic.Int64
	activeInvocations  atomic.Int32
	lastActivityAt     atomic.Int64
}

// buildState is the immutable dispatch table created by Build.
type buildState struct {
	subs     []*Subscription
	handlers []Handler
	resolver *resolver
	returns  *returnChain
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	Subscriptions      int
	Built              bool
	Publishes          int64
	PublishFailures    int64
	Invocations        int64
	InvocationFailures int64
	ActiveInvocations  int32
	LastActivityAt     time.Time
}

// New creates a bus with the given options.
//
// Example:
//
//	b, err := bus.New(
//	    bus.WithLogger(logger),
//	    bus.WithMessageTypes(message.TypeOf[Event]()),
//	    bus.WithSubscriptions(
//	        bus.NewSubscriber(onOrderPlaced),
//	    ),
//	)
func New(opts ...Option) (*Bus, error) {
	b := &Bus{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:    DefaultConfig(),
	}

	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logger.Component("bus"))

	if b.cfg.ResolverCacheSize <= 0 {
		b.cfg.ResolverCacheSize = DefaultConfig().ResolverCacheSize
	}
	if b.cfg.StreamBufferSize < 0 {
		b.cfg.StreamBufferSize = DefaultConfig().StreamBufferSize
	}
	if b.cfg.MaxRepublishDepth < 0 {
		b.cfg.MaxRepublishDepth = 0
	}
	if b.cfg.DefaultMaxParallelism < 0 {
		b.cfg.DefaultMaxParallelism = 0
	}

	if err := b.reg.add(b.pending...); err != nil {
		return nil, err
	}
	b.pending = nil

	return b, nil
}

// Subscribe registers subscriptions in order. Registration order breaks ties
// between subscriptions matching the same message. It fails with
// ErrRegistryBuilt once the bus has been built or has published.
func (b *Bus) Subscribe(subs ...*Subscription) error {
	return b.reg.add(subs...)
}

// SubscribeService registers the subscriptions of each service.
func (b *Bus) SubscribeService(svcs ...Service) error {
	var subs []*Subscription
	for _, svc := range svcs {
		if svc == nil {
			return &ConfigurationError{Reason: "nil service"}
		}
		subs = append(subs, svc.Subscriptions()...)
	}
	return b.reg.add(subs...)
}

// Build freezes the registry. It runs implicitly on the first publish;
// calling it explicitly surfaces errors at startup.
func (b *Bus) Build() error {
	_, err := b.built()
	return err
}

func (b *Bus) built() (*buildState, error) {
	b.buildOnce.Do(func() {
		subs := b.reg.freeze()

		res, err := newResolver(subs, b.cfg.ResolverCacheSize, b.metrics)
		if err != nil {
			b.buildErr = err
			return
		}

		handlers := make([]Handler, len(subs))
		for i, s := range subs {
			handlers[i] = chainMiddleware(baseHandler(s), s.middleware, b.middleware)
		}

		b.state.Store(&buildState{
			subs:     subs,
			handlers: handlers,
			resolver: res,
			returns:  newReturnChain(b.returnHandlers, b.messageTypes, subs),
		})

		b.logger.Debug("bus built", logger.Count("subscriptions", len(subs)))
	})

	if b.buildErr != nil {
		return nil, b.buildErr
	}
	return b.state.Load(), nil
}

// baseHandler adapts the subscription delegate to a Handler. The scoped
// dependency travels in the context so the chain can be built once.
func baseHandler(s *Subscription) Handler {
	return func(ctx context.Context, msg any) (any, error) {
		return s.invoke(ctx, msg, dependency(ctx))
	}
}

// Stats returns current bus statistics for observability and monitoring.
func (b *Bus) Stats() Stats {
	lastActivity := b.lastActivityAt.Load()
	var lastActivityTime time.Time
	if lastActivity > 0 {
		lastActivityTime = time.Unix(0, lastActivity)
	}

	return Stats{
		Subscriptions:      b.reg.len(),
		Built:              b.reg.isBuilt(),
		Publishes:          b.publishes.Load(),
		PublishFailures:    b.publishFailures.Load(),
		Invocations:        b.invocations.Load(),
		InvocationFailures: b.invocationFailures.Load(),
		ActiveInvocations:  b.activeInvocations.Load(),
		LastActivityAt:     lastActivityTime,
	}
}

// Healthcheck validates that the bus can dispatch messages.
// Returns nil if healthy, or an error describing the health issue.
func (b *Bus) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	if b.Stats().Subscriptions == 0 {
		return errors.Join(ErrHealthcheckFailed, ErrNoSubscriptions)
	}
	return nil
}
