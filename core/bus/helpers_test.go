package bus_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/bus"
)

type Event interface {
	EventName() string
}

type OrderPlaced struct{ ID int }

func (OrderPlaced) EventName() string { return "order.placed" }

type OrderShipped struct{ ID int }

func (OrderShipped) EventName() string { return "order.shipped" }

type Command interface {
	CommandName() string
}

type CommandA struct{ N int }

func (CommandA) CommandName() string { return "a" }

type CommandB struct{ N int }

func (CommandB) CommandName() string { return "b" }

type GetQuote struct{ Symbol string }

type Quote struct{ Price int }

// recorder collects values from concurrent subscribers.
type recorder struct {
	mu    sync.Mutex
	items []any
}

func (r *recorder) add(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.items...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func record[T any](r *recorder, opts ...bus.SubscriptionOption) *bus.Subscription {
	return bus.NewSubscriber(func(_ context.Context, v T) error {
		r.add(v)
		return nil
	}, opts...)
}

func newBus(t *testing.T, opts ...bus.Option) *bus.Bus {
	t.Helper()
	b, err := bus.New(opts...)
	require.NoError(t, err)
	return b
}

func onOrderPlaced(context.Context, OrderPlaced) error { return nil }
