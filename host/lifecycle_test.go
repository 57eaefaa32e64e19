package host

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterWindowOpenRunsOnSignal(t *testing.T) {
	l := NewLifecycle()

	ran := false
	l.AfterWindowOpen(func() { ran = true })
	require.False(t, ran)

	l.SignalWindowOpen()
	assert.True(t, ran)
}

func TestAfterWindowOpenLateRegistrationRunsImmediately(t *testing.T) {
	l := NewLifecycle()
	l.SignalWindowOpen()

	ran := false
	l.AfterWindowOpen(func() { ran = true })
	assert.True(t, ran)
}

func TestSignalWindowOpenIsIdempotent(t *testing.T) {
	l := NewLifecycle()

	var calls atomic.Int32
	l.AfterWindowOpen(func() { calls.Add(1) })

	l.SignalWindowOpen()
	l.SignalWindowOpen()
	assert.Equal(t, int32(1), calls.Load())
}

func TestShutdownWaitsForJoins(t *testing.T) {
	l := NewLifecycle()

	var flushed atomic.Bool
	l.OnWillShutdown(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		flushed.Store(true)
		return nil
	})

	require.NoError(t, l.Shutdown(context.Background()))
	assert.True(t, flushed.Load())
}

func TestShutdownCollectsJoinErrors(t *testing.T) {
	l := NewLifecycle()

	boom := errors.New("flush failed")
	l.OnWillShutdown(func(ctx context.Context) error { return boom })
	l.OnWillShutdown(func(ctx context.Context) error { return nil })

	err := l.Shutdown(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestShutdownIsIdempotent(t *testing.T) {
	l := NewLifecycle()

	var calls atomic.Int32
	l.OnWillShutdown(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, l.Shutdown(context.Background()))
	require.NoError(t, l.Shutdown(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestShutdownHonoursContextDeadline(t *testing.T) {
	l := NewLifecycle()

	release := make(chan struct{})
	defer close(release)
	l.OnWillShutdown(func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Shutdown(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestJoinRegisteredAfterShutdownIsIgnored(t *testing.T) {
	l := NewLifecycle()
	require.NoError(t, l.Shutdown(context.Background()))

	var calls atomic.Int32
	l.OnWillShutdown(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, l.Shutdown(context.Background()))
	assert.Equal(t, int32(0), calls.Load())
}
