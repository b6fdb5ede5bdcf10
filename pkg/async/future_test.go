package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	f := async.Go(context.Background(), func(ctx context.Context) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "done", nil
	})

	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.True(t, f.IsComplete())
}

func TestGo_Error(t *testing.T) {
	t.Parallel()
	expectedErr := errors.New("failed")

	f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		return 0, expectedErr
	})

	_, err := f.Await()
	assert.ErrorIs(t, err, expectedErr)
}

func TestGo_Panic(t *testing.T) {
	t.Parallel()

	f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})

	_, err := f.Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestGo_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := async.Go(ctx, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuture_AwaitWithTimeout(t *testing.T) {
	t.Parallel()

	f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 1, nil
	})

	_, err := f.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)

	v, err := f.AwaitWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_AwaitContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.AwaitContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.IsComplete())

	close(release)
	<-f.Done()
	v, err := f.AwaitContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
