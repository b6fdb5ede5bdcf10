package stream

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stream is one consumer's view of a Provider's sequence.
// A stream has a single reader; Next must not be called concurrently.
type Stream struct {
	id       string
	filter   reflect.Type
	provider *Provider

	// ch is written only under provider.pushMu and closed by Complete.
	ch     chan any
	closed bool

	stop     chan struct{} // closed on Aborted or Faulted
	done     chan struct{} // closed on any terminal state
	stopOnce sync.Once

	state atomic.Int32
	mu    sync.Mutex
	err   error
}

func newStream(p *Provider, filter reflect.Type, size int) *Stream {
	return &Stream{
		id:       uuid.New().String(),
		filter:   filter,
		provider: p,
		ch:       make(chan any, size),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the stream identifier.
func (s *Stream) ID() string { return s.id }

// Filter returns the type of the messages this stream accepts.
func (s *Stream) Filter() reflect.Type { return s.filter }

// State returns the current lifecycle state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Done returns a channel closed when the stream reaches a terminal state.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the abort or fault cause, or nil while the stream is active or completed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next returns the next message. It returns io.EOF once the provider has
// completed and every buffered message has been read, and an error wrapping
// ErrAborted (or the fault cause) when the stream was stopped.
func (s *Stream) Next(ctx context.Context) (any, error) {
	select {
	case <-s.stop:
		return nil, s.Err()
	default:
	}

	select {
	case v, ok := <-s.ch:
		if !ok {
			if !s.finish(Completed, nil) && s.State() != Completed {
				return nil, s.Err()
			}
			return nil, io.EOF
		}
		return v, nil
	case <-s.stop:
		return nil, s.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Abort stops the stream from the consumer side. Siblings are unaffected.
// The returned error of later Next calls wraps both ErrAborted and reason.
func (s *Stream) Abort(reason error) {
	err := ErrAborted
	if reason != nil {
		err = fmt.Errorf("%w: %w", ErrAborted, reason)
	}
	s.finish(Aborted, err)
}

// Fault marks the stream as failed with err. Siblings are unaffected.
func (s *Stream) Fault(err error) {
	if err == nil {
		err = errFaulted
	}
	s.finish(Faulted, err)
}

// finish moves an active stream to a terminal state. Terminal states are final.
func (s *Stream) finish(state State, err error) bool {
	if !s.state.CompareAndSwap(int32(Active), int32(state)) {
		return false
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	if state != Completed {
		s.stopOnce.Do(func() { close(s.stop) })
	}
	close(s.done)
	s.provider.remove(s)
	return true
}

// deliver sends v to the consumer. Called with provider.pushMu held.
func (s *Stream) deliver(ctx context.Context, v any) error {
	if s.closed || s.State() != Active {
		return nil
	}

	select {
	case s.ch <- v:
		return nil
	case <-s.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeInput closes the channel. Called with provider.pushMu held.
func (s *Stream) closeInput() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
