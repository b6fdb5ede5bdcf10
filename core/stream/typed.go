package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/dmitrymomot/msgbus/core/message"
)

// Typed is a statically typed view of a Stream.
type Typed[T any] struct {
	s   *Stream
	err error
}

// As returns a typed view of s. Values that are not T are reported as ErrElementType.
func As[T any](s *Stream) *Typed[T] {
	return &Typed[T]{s: s}
}

// Stream returns the underlying stream.
func (t *Typed[T]) Stream() *Stream { return t.s }

// ID returns the underlying stream identifier.
func (t *Typed[T]) ID() string { return t.s.ID() }

// Next returns the next message as T. See Stream.Next.
func (t *Typed[T]) Next(ctx context.Context) (T, error) {
	var zero T
	v, err := t.s.Next(ctx)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %s", ErrElementType, message.Name(v))
	}
	return tv, nil
}

// All iterates over the stream until it ends. After the loop, Err reports
// why iteration stopped early, or nil when the stream completed.
//
//	for msg := range ts.All(ctx) {
//		handle(msg)
//	}
//	if err := ts.Err(); err != nil {
//		return err
//	}
func (t *Typed[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := t.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.err = err
				}
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Err returns the error that ended the last All iteration.
func (t *Typed[T]) Err() error {
	return t.err
}
