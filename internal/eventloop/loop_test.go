package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, opts ...Option) *Loop {
	t.Helper()
	l := New(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return l
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 50; i++ {
		l.Post(func() { got = append(got, i) })
	}

	var n int
	require.NoError(t, l.Do(context.Background(), func() { n = len(got) }))
	require.Equal(t, 50, n)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestLoopTimerFiresOnLoop(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := startLoop(t, WithClock(fc))

	var fired atomic.Int32
	l.Post(func() {
		l.AfterFunc(500*time.Millisecond, func() { fired.Add(1) })
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	fc.Advance(499 * time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() {}))
	require.Equal(t, int32(0), fired.Load())

	fc.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
}

func TestLoopStoppedTimerNeverRuns(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := startLoop(t, WithClock(fc))

	var fired atomic.Int32
	var timer Timer
	require.NoError(t, l.Do(context.Background(), func() {
		timer = l.AfterFunc(time.Second, func() { fired.Add(1) })
	}))

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	fc.Advance(2 * time.Second)
	require.NoError(t, l.Do(context.Background(), func() {}))
	require.Equal(t, int32(0), fired.Load())
}

func TestLoopRecoversPanics(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	require.True(t, ran)
}

func TestLoopDoAfterStop(t *testing.T) {
	l := New()
	l.Stop()
	l.Stop()

	err := l.Do(context.Background(), func() {})
	require.True(t, errors.Is(err, ErrStopped))

	// Post after Stop must not block.
	l.Post(func() {})
}

func TestLoopRunReturnsContextError(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Run(ctx), context.Canceled)

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
}
