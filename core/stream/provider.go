package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
)

const defaultBufferSize = 1

type providerState int

const (
	providerActive providerState = iota
	providerCompleted
	providerAborted
)

// Provider distributes pushed messages to every stream created from it.
// Each stream receives the messages accepted by its filter, in push order.
// Push suspends while any matching stream's buffer is full, so the slowest
// consumer sets the pace.
type Provider struct {
	elemType   reflect.Type
	bufferSize int
	logger     *slog.Logger

	// pushMu serializes Push and Complete. It is the only writer lock for
	// stream channels.
	pushMu sync.Mutex

	mu      sync.Mutex
	state   providerState
	streams []*Stream
}

// NewProvider creates a provider whose elements are of type E.
//
// Example:
//
//	p := stream.NewProvider[Event](stream.WithBufferSize(16))
func NewProvider[E any](opts ...Option) *Provider {
	return NewProviderOf(reflect.TypeFor[E](), opts...)
}

// NewProviderOf creates a provider for a runtime element type.
func NewProviderOf(elemType reflect.Type, opts ...Option) *Provider {
	p := &Provider{
		elemType:   elemType,
		bufferSize: defaultBufferSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("stream"))

	return p
}

// ElementType returns the declared element type.
func (p *Provider) ElementType() reflect.Type {
	return p.elemType
}

// Len returns the number of streams that have not reached a terminal state.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.streams)
}

// CreateStream registers a new stream receiving the messages accepted by filter.
// Messages pushed before the stream was created are not replayed.
func (p *Provider) CreateStream(filter reflect.Type) (*Stream, error) {
	if filter == nil || !message.Related(p.elemType, filter) {
		return nil, fmt.Errorf("%w: %s cannot carry %s", ErrElementType,
			message.TypeName(p.elemType), message.TypeName(filter))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case providerCompleted:
		return nil, ErrCompleted
	case providerAborted:
		return nil, ErrAborted
	}

	s := newStream(p, filter, p.bufferSize)
	p.streams = append(p.streams, s)

	p.logger.Debug("stream created",
		logger.StreamID(s.id),
		slog.String("filter", message.TypeName(filter)))

	return s, nil
}

// Push delivers msg to every active stream whose filter accepts it.
// Pushing after Abort is a no-op; pushing after Complete returns ErrCompleted.
// If ctx is done while waiting for a slow consumer, Push returns ctx.Err()
// and streams not yet reached do not receive msg.
func (p *Provider) Push(ctx context.Context, msg any) error {
	if message.IsNil(msg) {
		return fmt.Errorf("%w: nil element", ErrElementType)
	}
	if t := reflect.TypeOf(msg); !t.AssignableTo(p.elemType) {
		return fmt.Errorf("%w: %s is not %s", ErrElementType,
			message.TypeName(t), message.TypeName(p.elemType))
	}

	p.pushMu.Lock()
	defer p.pushMu.Unlock()

	p.mu.Lock()
	state := p.state
	streams := slices.Clone(p.streams)
	p.mu.Unlock()

	switch state {
	case providerAborted:
		return nil
	case providerCompleted:
		return ErrCompleted
	}

	for _, s := range streams {
		v, ok := message.Match(msg, s.filter)
		if !ok {
			continue
		}
		if err := s.deliver(ctx, v); err != nil {
			return err
		}
	}

	return nil
}

// Complete ends the sequence. Streams become Completed once their consumers
// have read every buffered message. Calling Complete more than once, or after
// Abort, has no effect.
func (p *Provider) Complete() {
	p.pushMu.Lock()
	defer p.pushMu.Unlock()

	p.mu.Lock()
	if p.state != providerActive {
		p.mu.Unlock()
		return
	}
	p.state = providerCompleted
	streams := slices.Clone(p.streams)
	p.mu.Unlock()

	for _, s := range streams {
		s.closeInput()
	}

	p.logger.Debug("stream provider completed", logger.Count("streams", len(streams)))
}

// Abort stops the sequence. Every stream that has not reached a terminal
// state becomes Aborted immediately and later pushes are ignored.
// Abort does not wait for a blocked Push; the push is released instead.
func (p *Provider) Abort(reason error) {
	p.mu.Lock()
	p.state = providerAborted
	streams := slices.Clone(p.streams)
	p.mu.Unlock()

	for _, s := range streams {
		s.Abort(reason)
	}

	p.logger.Debug("stream provider aborted",
		logger.Count("streams", len(streams)),
		logger.Error(reason))
}

func (p *Provider) remove(s *Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = slices.DeleteFunc(p.streams, func(other *Stream) bool {
		return other == s
	})
}
