package stream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type Event interface {
	EventName() string
}

type OrderPlaced struct{ ID int }

func (OrderPlaced) EventName() string { return "order.placed" }

type OrderCancelled struct{ ID int }

func (OrderCancelled) EventName() string { return "order.cancelled" }

// collect drains s in the background and returns a function waiting for the result.
func collect(ctx context.Context, s *stream.Stream) func() ([]any, error) {
	var (
		values []any
		err    error
		wg     sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			v, nextErr := s.Next(ctx)
			if nextErr != nil {
				if !errors.Is(nextErr, io.EOF) {
					err = nextErr
				}
				return
			}
			values = append(values, v)
		}
	}()
	return func() ([]any, error) {
		wg.Wait()
		return values, err
	}
}

func TestProvider_FiltersByType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[Event]()
	all, err := p.CreateStream(message.TypeOf[Event]())
	require.NoError(t, err)
	placed, err := p.CreateStream(message.TypeOf[OrderPlaced]())
	require.NoError(t, err)
	cancelled, err := p.CreateStream(message.TypeOf[OrderCancelled]())
	require.NoError(t, err)

	waitAll := collect(ctx, all)
	waitPlaced := collect(ctx, placed)
	waitCancelled := collect(ctx, cancelled)

	require.NoError(t, p.Push(ctx, OrderPlaced{ID: 1}))
	require.NoError(t, p.Push(ctx, OrderCancelled{ID: 2}))
	require.NoError(t, p.Push(ctx, OrderPlaced{ID: 3}))
	p.Complete()

	got, err := waitAll()
	require.NoError(t, err)
	assert.Equal(t, []any{OrderPlaced{ID: 1}, OrderCancelled{ID: 2}, OrderPlaced{ID: 3}}, got)

	got, err = waitPlaced()
	require.NoError(t, err)
	assert.Equal(t, []any{OrderPlaced{ID: 1}, OrderPlaced{ID: 3}}, got)

	got, err = waitCancelled()
	require.NoError(t, err)
	assert.Equal(t, []any{OrderCancelled{ID: 2}}, got)

	for _, s := range []*stream.Stream{all, placed, cancelled} {
		assert.Equal(t, stream.Completed, s.State())
		assert.NoError(t, s.Err())
	}
	assert.Zero(t, p.Len())
}

func TestProvider_NoReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[int](stream.WithBufferSize(4))
	require.NoError(t, p.Push(ctx, 1), "push without streams is accepted")

	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)
	require.NoError(t, p.Push(ctx, 2))
	p.Complete()

	v, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestProvider_BackPressure(t *testing.T) {
	t.Parallel()

	p := stream.NewProvider[int]()
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	require.NoError(t, p.Push(context.Background(), 1), "first push fits the buffer")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Push(ctx, 2), context.DeadlineExceeded, "second push waits for the consumer")

	pushed := make(chan error, 1)
	go func() {
		pushed <- p.Push(context.Background(), 3)
	}()

	v, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, <-pushed)
	v, err = s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	p.Abort(nil)
}

func TestProvider_UnmatchedStreamDoesNotBlock(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p := stream.NewProvider[Event]()
	idle, err := p.CreateStream(message.TypeOf[OrderCancelled]())
	require.NoError(t, err)

	for i := range 10 {
		require.NoError(t, p.Push(ctx, OrderPlaced{ID: i}))
	}
	p.Complete()

	_, err = idle.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, stream.Completed, idle.State())
}

func TestProvider_CompleteDrainsBuffer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[string](stream.WithBufferSize(2))
	s, err := p.CreateStream(message.TypeOf[string]())
	require.NoError(t, err)

	require.NoError(t, p.Push(ctx, "a"))
	require.NoError(t, p.Push(ctx, "b"))
	p.Complete()
	p.Complete()

	assert.Equal(t, stream.Active, s.State(), "stream completes only after draining")

	ts := stream.As[string](s)
	var got []string
	for v := range ts.All(ctx) {
		got = append(got, v)
	}
	require.NoError(t, ts.Err())
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, stream.Completed, s.State())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after completion")
	}

	assert.ErrorIs(t, p.Push(ctx, "c"), stream.ErrCompleted)
	_, err = p.CreateStream(message.TypeOf[string]())
	assert.ErrorIs(t, err, stream.ErrCompleted)
}

func TestProvider_Abort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reason := errors.New("source lost")

	p := stream.NewProvider[int]()
	s1, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)
	s2, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	require.NoError(t, p.Push(ctx, 1))

	blocked := make(chan error, 1)
	go func() {
		blocked <- p.Push(ctx, 2)
	}()

	p.Abort(reason)

	select {
	case err := <-blocked:
		assert.NoError(t, err, "abort releases a suspended push")
	case <-time.After(time.Second):
		t.Fatal("push was not released by abort")
	}

	for _, s := range []*stream.Stream{s1, s2} {
		assert.Equal(t, stream.Aborted, s.State())
		_, err := s.Next(ctx)
		assert.ErrorIs(t, err, stream.ErrAborted)
		assert.ErrorIs(t, err, reason)
	}

	assert.NoError(t, p.Push(ctx, 3), "pushes after abort are ignored")
	assert.Zero(t, p.Len())

	_, err = p.CreateStream(message.TypeOf[int]())
	assert.ErrorIs(t, err, stream.ErrAborted)
}

func TestProvider_AbortAfterComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[int]()
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	require.NoError(t, p.Push(ctx, 1))
	p.Complete()
	p.Abort(nil)

	assert.Equal(t, stream.Aborted, s.State(), "an undrained stream can still be aborted")
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, stream.ErrAborted)
}

func TestStream_FaultIsIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	failure := errors.New("consumer failed")

	p := stream.NewProvider[int]()
	faulty, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)
	healthy, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	faulty.Fault(failure)
	assert.Equal(t, stream.Faulted, faulty.State())
	assert.ErrorIs(t, faulty.Err(), failure)

	wait := collect(ctx, healthy)
	for i := range 3 {
		require.NoError(t, p.Push(ctx, i))
	}
	p.Complete()

	got, err := wait()
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, got)
	assert.Equal(t, stream.Completed, healthy.State())

	_, err = faulty.Next(ctx)
	assert.ErrorIs(t, err, failure)

	faulty.Abort(nil)
	assert.Equal(t, stream.Faulted, faulty.State(), "terminal states are final")
}

func TestStream_ConsumerAbort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[int]()
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	s.Abort(stream.ErrConsumerReturned)
	assert.ErrorIs(t, s.Err(), stream.ErrAborted)
	assert.ErrorIs(t, s.Err(), stream.ErrConsumerReturned)

	for i := range 5 {
		require.NoError(t, p.Push(ctx, i), "aborted streams do not hold back the provider")
	}
	p.Complete()
}

func TestStream_NextHonorsContext(t *testing.T) {
	t.Parallel()

	p := stream.NewProvider[int]()
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, stream.Active, s.State())

	p.Abort(nil)
}

func TestProvider_ElementType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[Event]()
	assert.Equal(t, message.TypeOf[Event](), p.ElementType())

	assert.ErrorIs(t, p.Push(ctx, "not an event"), stream.ErrElementType)
	assert.ErrorIs(t, p.Push(ctx, nil), stream.ErrElementType)

	_, err := p.CreateStream(message.TypeOf[string]())
	assert.ErrorIs(t, err, stream.ErrElementType)
	_, err = p.CreateStream(nil)
	assert.ErrorIs(t, err, stream.ErrElementType)
}

func TestProvider_EnvelopeUnwrapping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[message.Envelope]()
	orders, err := p.CreateStream(message.TypeOf[OrderPlaced]())
	require.NoError(t, err)
	envelopes, err := p.CreateStream(message.EnvelopeType())
	require.NoError(t, err)

	waitOrders := collect(ctx, orders)
	waitEnvelopes := collect(ctx, envelopes)

	first := message.NewEnvelope(OrderPlaced{ID: 1}, nil)
	second := message.NewEnvelope(OrderCancelled{ID: 2}, nil)
	require.NoError(t, p.Push(ctx, first))
	require.NoError(t, p.Push(ctx, second))
	p.Complete()

	got, err := waitOrders()
	require.NoError(t, err)
	assert.Equal(t, []any{OrderPlaced{ID: 1}}, got)

	got, err = waitEnvelopes()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
}

func TestTyped_AllStopsOnAbort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := stream.NewProvider[int]()
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)
	ts := stream.As[int](s)
	assert.Equal(t, s.ID(), ts.ID())
	assert.Same(t, s, ts.Stream())

	go func() {
		_ = p.Push(ctx, 1)
		p.Abort(nil)
	}()

	var got []int
	for v := range ts.All(ctx) {
		got = append(got, v)
	}

	assert.ErrorIs(t, ts.Err(), stream.ErrAborted)
	assert.LessOrEqual(t, len(got), 1)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "active", stream.Active.String())
	assert.Equal(t, "completed", stream.Completed.String())
	assert.Equal(t, "aborted", stream.Aborted.String())
	assert.Equal(t, "faulted", stream.Faulted.String())
	assert.False(t, stream.Active.IsTerminal())
	assert.True(t, stream.Faulted.IsTerminal())
}

func TestProvider_Logging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := stream.NewProvider[int](stream.WithLogger(log))
	s, err := p.CreateStream(message.TypeOf[int]())
	require.NoError(t, err)
	p.Complete()

	out := buf.String()
	assert.Contains(t, out, `"component":"stream"`)
	assert.Contains(t, out, `"stream_id":"`+s.ID()+`"`)
	assert.Contains(t, out, `"msg":"stream provider completed"`)
}
