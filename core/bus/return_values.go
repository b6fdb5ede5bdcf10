package bus

import (
	"context"
	"reflect"
	"sync"

	"github.com/dmitrymomot/msgbus/core/message"
)

// Publisher is the part of the bus available to return-value handlers.
type Publisher interface {
	Publish(ctx context.Context, msg any) ([]any, error)
	PublishBatch(ctx context.Context, msgs []any) ([]any, error)
}

// ReturnValueHandler processes a non-nil subscriber result.
// CanHandle is asked once per declared result type, or once per dynamic type
// when the declared type is an interface. The first handler accepting a type
// handles every value of it. Handle returns the values to add to the
// publisher's results.
type ReturnValueHandler interface {
	CanHandle(t reflect.Type) bool
	Handle(ctx context.Context, p Publisher, value any) ([]any, error)
}

// messageSet decides which types are republishable messages.
type messageSet []reflect.Type

func (m messageSet) contains(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(message.EnvelopeType()) {
		return true
	}
	for _, mt := range m {
		if t.AssignableTo(mt) {
			return true
		}
	}
	return false
}

// republishMessages republishes each element of a slice of messages, in order.
type republishMessages struct{ messages messageSet }

func (h republishMessages) CanHandle(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && h.messages.contains(t.Elem())
}

func (h republishMessages) Handle(ctx context.Context, p Publisher, value any) ([]any, error) {
	rv := reflect.ValueOf(value)
	for i := range rv.Len() {
		el := rv.Index(i).Interface()
		if message.IsNil(el) {
			continue
		}
		if _, err := p.Publish(ctx, el); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// republishMessage republishes a single returned message.
type republishMessage struct{ messages messageSet }

func (h republishMessage) CanHandle(t reflect.Type) bool {
	return h.messages.contains(t)
}

func (h republishMessage) Handle(ctx context.Context, p Publisher, value any) ([]any, error) {
	_, err := p.Publish(ctx, value)
	return nil, err
}

// terminalResult returns the value to the publisher.
type terminalResult struct{}

func (terminalResult) CanHandle(reflect.Type) bool { return true }

func (terminalResult) Handle(_ context.Context, _ Publisher, value any) ([]any, error) {
	return []any{value}, nil
}

// returnChain selects the handler of a subscription result.
type returnChain struct {
	handlers []ReturnValueHandler

	// static holds the handler chosen for each subscription with a concrete
	// declared result type, indexed like the registry.
	static []ReturnValueHandler

	// dynamic caches the choice per dynamic type for interface result types.
	dynamic sync.Map // reflect.Type -> ReturnValueHandler
}

func newReturnChain(user []ReturnValueHandler, messages messageSet, subs []*Subscription) *returnChain {
	c := &returnChain{
		handlers: append(append([]ReturnValueHandler{}, user...),
			republishMessages{messages},
			republishMessage{messages},
			terminalResult{},
		),
		static: make([]ReturnValueHandler, len(subs)),
	}

	for i, s := range subs {
		if s.returnType != nil && s.returnType.Kind() != reflect.Interface {
			c.static[i] = c.match(s.returnType)
		}
	}

	return c
}

func (c *returnChain) match(t reflect.Type) ReturnValueHandler {
	for _, h := range c.handlers {
		if h.CanHandle(t) {
			return h
		}
	}
	return terminalResult{}
}

// handlerFor returns the handler for a result of subscription index.
func (c *returnChain) handlerFor(index int, value any) ReturnValueHandler {
	if h := c.static[index]; h != nil {
		return h
	}

	t := reflect.TypeOf(value)
	if h, ok := c.dynamic.Load(t); ok {
		return h.(ReturnValueHandler)
	}
	h := c.match(t)
	c.dynamic.Store(t, h)
	return h
}
