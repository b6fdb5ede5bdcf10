package bus

import (
	"fmt"
	"reflect"

	"github.com/dmitrymomot/msgbus/core/message"
)

// Scope resolves the extra dependency of scoped subscribers.
type Scope interface {
	Resolve(t reflect.Type) (any, error)
}

// Services is a Scope backed by a fixed set of values.
type Services struct {
	values []any
}

// NewServices creates a scope holding values. Nil values are ignored.
//
// Example:
//
//	scope := bus.NewServices(repo, mailer)
//	ctx = bus.ContextWithScope(ctx, scope)
func NewServices(values ...any) *Services {
	s := &Services{values: make([]any, 0, len(values))}
	for _, v := range values {
		if !message.IsNil(v) {
			s.values = append(s.values, v)
		}
	}
	return s
}

// Resolve returns the value whose type is exactly t, or else the single value
// assignable to t.
func (s *Services) Resolve(t reflect.Type) (any, error) {
	var (
		found any
		count int
	)
	for _, v := range s.values {
		vt := reflect.TypeOf(v)
		if vt == t {
			return v, nil
		}
		if vt.AssignableTo(t) {
			found = v
			count++
		}
	}

	switch count {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, t)
	case 1:
		return found, nil
	default:
		return nil, fmt.Errorf("%w: %d values implement %s", ErrAmbiguousService, count, t)
	}
}
