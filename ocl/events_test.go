package ocl_test

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goclx/gocl/ocl"
	"github.com/goclx/gocl/ocl/clfake"
)

func newTestQueue(t *testing.T) (*clfake.Driver, *ocl.Context, *ocl.Queue) {
	t.Helper()
	drv := clfake.New()
	ctx, err := ocl.NewContext(drv, ocl.DeviceTypeGPU)
	require.NoError(t, err)
	q, err := ocl.NewQueue(ctx.DeviceByIndex(0), 0)
	require.NoError(t, err)
	return drv, ctx, q
}

func startLoop(t *testing.T) *ocl.Loop {
	t.Helper()
	l := ocl.NewLoop()
	go l.Run()
	t.Cleanup(l.Quit)
	return l
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	_, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)
	ev.Then(l, func(err error) {
		require.NoError(t, err)
		close(done)
	})
	waitSignal(t, done, "write completion")

	got := make([]byte, 4)
	require.NoError(t, buf.ReadSync(q, got, 0, nil))
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestThenBeforeCompletionFiresExactlyOnce(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.Block()
	ev := buf.Write(q, []byte{9, 9, 9, 9}, 0, nil)

	var calls atomic.Int32
	done := make(chan struct{})
	ev.Then(l, func(err error) {
		require.NoError(t, err)
		calls.Add(1)
		close(done)
	})

	// Still pending: the callback must not have fired.
	select {
	case <-done:
		t.Fatal("callback fired before the device operation completed")
	case <-time.After(50 * time.Millisecond):
	}
	require.EqualValues(t, 0, calls.Load())

	drv.Unblock()
	waitSignal(t, done, "write completion")
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
}

func TestRegistrationOrderDelivery(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.Block()
	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)

	var got []int
	done := make(chan struct{})
	for i := 1; i <= 3; i++ {
		last := i == 3
		ev.Then(l, func(err error) {
			require.NoError(t, err)
			got = append(got, i)
			if last {
				close(done)
			}
		})
	}
	drv.Unblock()
	waitSignal(t, done, "all three continuations")
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestThenOnResolvedEventDeliversAsynchronously(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.FailNext("EnqueueWriteBuffer", ocl.OutOfResources)
	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)

	// Register from a task running on the loop: the callback is dispatched
	// to the same loop, so it must run after the registering task returned,
	// never inline within Then.
	registered := false
	inline := false
	done := make(chan struct{})
	l.Dispatch(func() {
		ev.Then(l, func(err error) {
			require.Error(t, err)
			if !registered {
				inline = true
			}
			close(done)
		})
		registered = true
	})
	waitSignal(t, done, "continuation on resolved event")
	require.False(t, inline, "callback ran synchronously within Then")
}

func TestSubmissionFailureShortCircuitsWaiting(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.FailNext("EnqueueWriteBuffer", ocl.OutOfResources)
	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)
	require.Zero(t, ev.Handle())

	done := make(chan struct{})
	ev.Then(l, func(err error) {
		require.Error(t, err)
		require.Equal(t, ocl.OutOfResources, ocl.StatusOf(err))
		require.Contains(t, err.Error(), "Out of resources")
		close(done)
	})
	waitSignal(t, done, "error delivery")

	// The event was never pending, so no background wait may have started.
	require.Zero(t, drv.WaitCalls())
}

func TestSingleWaiterPerEvent(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.Block()
	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)

	var fired atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		ev.Then(l, func(err error) {
			require.NoError(t, err)
			if fired.Add(1) == 3 {
				close(done)
			}
		})
	}
	drv.Unblock()
	waitSignal(t, done, "all continuations")
	require.Equal(t, 1, drv.WaitCalls(), "multiple registrations must share one waiter")
}

func TestStealResolverExactlyOnce(t *testing.T) {
	_, _, q := newTestQueue(t)

	ev := ocl.NewEvent(q, 0)
	resolve := ev.StealResolver()
	require.NotNil(t, resolve)
	require.Nil(t, ev.StealResolver())
}

func TestResolveTwicePanics(t *testing.T) {
	_, _, q := newTestQueue(t)

	ev := ocl.NewEvent(q, 0)
	resolve := ev.StealResolver()
	resolve(nil)
	require.Panics(t, func() { resolve(nil) })
}

func TestThenWithoutNativeHandlePanics(t *testing.T) {
	_, _, q := newTestQueue(t)

	// Pending event whose submission never produced a handle: registering a
	// continuation has nothing to wait on and flags a dispatch-op bug.
	ev := ocl.NewEvent(q, 0)
	require.Panics(t, func() { ev.Then(nil, func(error) {}) })
	require.Panics(t, func() { ev.Then(nil, nil) })
}

func TestResolvedErrorDeliveredToEveryContinuation(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.FailNext("EnqueueReadBuffer", ocl.InvalidCommandQueue)
	ev := buf.Read(q, make([]byte, 4), 0, nil)

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		ev.Then(l, func(err error) {
			require.Equal(t, ocl.InvalidCommandQueue, ocl.StatusOf(err))
			done <- struct{}{}
		})
	}
	for i := 0; i < 2; i++ {
		waitSignal(t, done, "error delivery")
	}
}

func TestEventSurvivesDroppedReferences(t *testing.T) {
	drv, ctx, q := newTestQueue(t)
	l := startLoop(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	drv.Block()
	done := make(chan struct{})
	ev := buf.Write(q, []byte{5, 6, 7, 8}, 0, nil)
	ev.Then(l, func(err error) {
		require.NoError(t, err)
		close(done)
	})
	ev = nil
	_ = ev
	runtime.GC()
	runtime.GC()

	drv.Unblock()
	waitSignal(t, done, "continuation after dropping the event reference")
}

func TestEventAccessorsAndDestroy(t *testing.T) {
	_, ctx, q := newTestQueue(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	ev := buf.Write(q, []byte{1, 2, 3, 4}, 0, nil)
	require.Same(t, q, ev.Queue())
	require.NotZero(t, ev.Handle())
	require.NoError(t, q.Finish())

	require.NoError(t, ev.Destroy())
	require.Zero(t, ev.Handle())
	require.NoError(t, ev.Destroy())
}
