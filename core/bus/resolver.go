package bus

import (
	"context"
	"fmt"
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dmitrymomot/msgbus/core/message"
)

type cacheKey struct {
	msgType     reflect.Type
	payloadType reflect.Type
	shape       shape
}

// call is one resolved subscription with the arguments to invoke it with.
// Each element of args is one invocation.
type call struct {
	index int
	sub   *Subscription
	args  []any
	dep   any
}

// resolver maps message types to the subscriptions accepting them.
type resolver struct {
	subs    []*Subscription
	cache   *lru.Cache[cacheKey, []int]
	metrics *Metrics
}

func newResolver(subs []*Subscription, size int, metrics *Metrics) (*resolver, error) {
	cache, err := lru.New[cacheKey, []int](size)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	return &resolver{subs: subs, cache: cache, metrics: metrics}, nil
}

// lookup returns, in registration order, the indexes of the plain (single or
// batch) subscriptions whose element filter accepts msg.
func (r *resolver) lookup(msg any) []int {
	key := cacheKey{msgType: reflect.TypeOf(msg), payloadType: message.PayloadType(msg), shape: shapeSingle}
	if idx, ok := r.cache.Get(key); ok {
		r.metrics.observeCache(true)
		return idx
	}
	r.metrics.observeCache(false)

	var idx []int
	for i, s := range r.subs {
		if s.shape == shapeStream {
			continue
		}
		if ok, _ := message.MatchType(key.msgType, key.payloadType, s.filter); ok {
			idx = append(idx, i)
		}
	}

	r.cache.Add(key, idx)
	return idx
}

// lookupStream returns the stream subscriptions related to a provider element type.
func (r *resolver) lookupStream(elem reflect.Type) []int {
	key := cacheKey{msgType: elem, shape: shapeStream}
	if idx, ok := r.cache.Get(key); ok {
		r.metrics.observeCache(true)
		return idx
	}
	r.metrics.observeCache(false)

	var idx []int
	for i, s := range r.subs {
		if s.shape == shapeStream && message.Related(elem, s.filter) {
			idx = append(idx, i)
		}
	}

	r.cache.Add(key, idx)
	return idx
}

// resolveSingle resolves a single published message. Batch subscriptions
// receive it as a one-element batch.
func (r *resolver) resolveSingle(msg any) []call {
	idx := r.lookup(msg)
	calls := make([]call, 0, len(idx))

	for _, i := range idx {
		s := r.subs[i]
		v, _ := message.Match(msg, s.filter)

		arg := v
		if s.shape == shapeBatch {
			arg = typedSlice(s.filter, []any{v})
		}
		calls = append(calls, call{index: i, sub: s, args: []any{arg}})
	}

	return calls
}

// resolveBatch resolves a published batch. Single subscriptions get one
// invocation per matching element, in batch order; batch subscriptions get
// the whole batch once, when every element matches.
func (r *resolver) resolveBatch(msgs []any) []call {
	if len(msgs) == 0 {
		return nil
	}

	// matched[i] holds the delivered value of every element for subscription i.
	matched := make(map[int][]any)
	for _, m := range msgs {
		for _, i := range r.lookup(m) {
			v, _ := message.Match(m, r.subs[i].filter)
			matched[i] = append(matched[i], v)
		}
	}

	var calls []call
	for i, s := range r.subs {
		values, ok := matched[i]
		if !ok {
			continue
		}

		switch s.shape {
		case shapeSingle:
			calls = append(calls, call{index: i, sub: s, args: values})
		case shapeBatch:
			if len(values) == len(msgs) {
				calls = append(calls, call{index: i, sub: s, args: []any{typedSlice(s.filter, values)}})
			}
		}
	}

	return calls
}

func (r *resolver) resolveStream(elem reflect.Type) []call {
	idx := r.lookupStream(elem)
	calls := make([]call, 0, len(idx))
	for _, i := range idx {
		calls = append(calls, call{index: i, sub: r.subs[i]})
	}
	return calls
}

// bindDependencies resolves the extra parameter of scoped subscriptions.
// The scope attached to ctx wins over the bus default.
func bindDependencies(ctx context.Context, calls []call, fallback Scope) error {
	scope := ScopeFrom(ctx)
	if scope == nil {
		scope = fallback
	}

	for i := range calls {
		dt := calls[i].sub.depType
		if dt == nil {
			continue
		}
		if scope == nil {
			return &ConfigurationError{
				Subscription: calls[i].sub.name,
				Reason:       fmt.Sprintf("no scope to resolve %s", dt),
				Err:          ErrServiceNotFound,
			}
		}

		dep, err := scope.Resolve(dt)
		if err == nil && message.IsNil(dep) {
			err = fmt.Errorf("%w: scope returned nil for %s", ErrServiceNotFound, dt)
		}
		if err != nil {
			return &ConfigurationError{
				Subscription: calls[i].sub.name,
				Reason:       fmt.Sprintf("cannot resolve %s", dt),
				Err:          err,
			}
		}
		calls[i].dep = dep
	}

	return nil
}

// typedSlice converts values into a []T where T is elem.
func typedSlice(elem reflect.Type, values []any) any {
	s := reflect.MakeSlice(reflect.SliceOf(elem), len(values), len(values))
	for i, v := range values {
		s.Index(i).Set(reflect.ValueOf(v))
	}
	return s.Interface()
}
