package bus_test

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/bus"
)

type Store interface {
	Save(id int)
}

type memoryStore struct{ saved recorder }

func (s *memoryStore) Save(id int) { s.saved.add(id) }

type otherStore struct{}

func (otherStore) Save(int) {}

func saveOrder(_ context.Context, o OrderPlaced, s Store) error {
	s.Save(o.ID)
	return nil
}

func TestScopedSubscriber(t *testing.T) {
	t.Parallel()

	t.Run("dependency from context scope", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		b := newBus(t, bus.WithSubscriptions(bus.NewScopedSubscriber(saveOrder)))

		ctx := bus.ContextWithScope(context.Background(), bus.NewServices(store))
		_, err := b.Publish(ctx, OrderPlaced{ID: 3})
		require.NoError(t, err)
		assert.Equal(t, []any{3}, store.saved.all())
	})

	t.Run("context scope wins over bus scope", func(t *testing.T) {
		t.Parallel()

		fallback, scoped := &memoryStore{}, &memoryStore{}
		b := newBus(t,
			bus.WithScope(bus.NewServices(fallback)),
			bus.WithSubscriptions(bus.NewScopedSubscriber(saveOrder)),
		)

		_, err := b.Publish(context.Background(), OrderPlaced{ID: 1})
		require.NoError(t, err)
		_, err = b.Publish(bus.ContextWithScope(context.Background(), bus.NewServices(scoped)), OrderPlaced{ID: 2})
		require.NoError(t, err)

		assert.Equal(t, []any{1}, fallback.saved.all())
		assert.Equal(t, []any{2}, scoped.saved.all())
	})

	t.Run("scoped replier", func(t *testing.T) {
		t.Parallel()

		b := newBus(t,
			bus.WithScope(bus.NewServices(map[string]int{"ACME": 12})),
			bus.WithSubscriptions(bus.NewScopedReplier(
				func(_ context.Context, q GetQuote, prices map[string]int) (Quote, error) {
					return Quote{Price: prices[q.Symbol]}, nil
				})),
		)

		quotes, err := bus.PublishFor[Quote](context.Background(), b, GetQuote{Symbol: "ACME"})
		require.NoError(t, err)
		assert.Equal(t, []Quote{{Price: 12}}, quotes)
	})

	t.Run("missing dependency is a configuration error", func(t *testing.T) {
		t.Parallel()

		var plain recorder
		b := newBus(t, bus.WithSubscriptions(
			record[OrderPlaced](&plain),
			bus.NewScopedSubscriber(saveOrder),
		))

		_, err := b.Publish(context.Background(), OrderPlaced{ID: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, bus.ErrConfiguration)
		assert.ErrorIs(t, err, bus.ErrServiceNotFound)
		assert.Zero(t, plain.len(), "nothing runs when resolution fails")

		_, err = b.Publish(bus.ContextWithScope(context.Background(), bus.NewServices("unrelated")), OrderPlaced{ID: 1})
		assert.ErrorIs(t, err, bus.ErrServiceNotFound)
	})

	t.Run("ambiguous dependency is a configuration error", func(t *testing.T) {
		t.Parallel()

		b := newBus(t, bus.WithSubscriptions(bus.NewScopedSubscriber(saveOrder)))
		ctx := bus.ContextWithScope(context.Background(), bus.NewServices(&memoryStore{}, otherStore{}))

		_, err := b.Publish(ctx, OrderPlaced{})
		var cfgErr *bus.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorIs(t, err, bus.ErrAmbiguousService)
		assert.NotEmpty(t, cfgErr.Subscription)
	})
}

func TestServices_Resolve(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	other := otherStore{}
	s := bus.NewServices(store, other, nil)

	v, err := s.Resolve(reflect.TypeFor[*memoryStore]())
	require.NoError(t, err)
	assert.Same(t, store, v)

	v, err = s.Resolve(reflect.TypeFor[otherStore]())
	require.NoError(t, err)
	assert.Equal(t, other, v)

	_, err = s.Resolve(reflect.TypeFor[Store]())
	assert.ErrorIs(t, err, bus.ErrAmbiguousService)

	_, err = s.Resolve(reflect.TypeFor[string]())
	assert.ErrorIs(t, err, bus.ErrServiceNotFound)

	assert.Nil(t, bus.ScopeFrom(context.Background()))
	assert.Equal(t, s, bus.ScopeFrom(bus.ContextWithScope(context.Background(), s)))
}

type ledger struct{ entries recorder }

// scopeFunc adapts a function to bus.Scope.
type scopeFunc func(reflect.Type) (any, error)

func (f scopeFunc) Resolve(t reflect.Type) (any, error) { return f(t) }

func TestScopedSubscriber_NilDependency(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	scope := scopeFunc(func(t reflect.Type) (any, error) {
		if t == reflect.TypeFor[Store]() {
			return store, nil
		}
		return nil, nil
	})

	var posted atomic.Int32
	b := newBus(t,
		eventTypes,
		bus.WithScope(scope),
		bus.WithSubscriptions(
			bus.NewScopedReplier(func(_ context.Context, o OrderPlaced, s Store) (OrderShipped, error) {
				s.Save(o.ID)
				return OrderShipped(o), nil
			}),
			bus.NewScopedSubscriber(func(_ context.Context, o OrderShipped, l *ledger) error {
				posted.Add(1)
				l.entries.add(o.ID)
				return nil
			}),
		),
	)

	_, err := b.Publish(context.Background(), OrderPlaced{ID: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, bus.ErrConfiguration)
	assert.ErrorIs(t, err, bus.ErrServiceNotFound)
	assert.NotErrorIs(t, err, bus.ErrSubscriberPanicked, "the outer dependency must not leak into the nested call")
	assert.Equal(t, []any{4}, store.saved.all())
	assert.Zero(t, posted.Load())
}
