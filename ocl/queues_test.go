package ocl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goclx/gocl/ocl"
)

func TestQueueProperties(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	q, err := ocl.NewQueue(dev, ocl.QueueOutOfOrder|ocl.QueueProfiling)
	require.NoError(t, err)
	require.Equal(t, ocl.QueueOutOfOrder|ocl.QueueProfiling, q.Flags())
	require.Same(t, dev, q.Device())
	require.Same(t, ctx, q.Context())
	require.NotZero(t, q.Handle())
}

func TestQueueFinishOrdersWrites(t *testing.T) {
	_, ctx, q := newTestQueue(t)

	buf, err := ctx.NewBuffer(ocl.MemReadWrite, 4, nil)
	require.NoError(t, err)

	// Fire-and-forget async write; Finish makes its effect visible without
	// touching the returned event.
	_ = buf.Write(q, []byte{7, 7, 7, 7}, 0, nil)
	require.NoError(t, q.Finish())

	got := make([]byte, 4)
	require.NoError(t, buf.ReadAllSync(q, got))
	require.Equal(t, []byte{7, 7, 7, 7}, got)
}

func TestQueueFlush(t *testing.T) {
	_, _, q := newTestQueue(t)
	require.NoError(t, q.Flush())
}

func TestQueueDestroyIdempotent(t *testing.T) {
	_, ctx, _ := newTestQueue(t)

	q, err := ocl.NewQueue(ctx.DeviceByIndex(0), 0)
	require.NoError(t, err)
	require.NoError(t, q.Destroy())
	require.Zero(t, q.Handle())
	require.NoError(t, q.Destroy())

	require.Equal(t, ocl.InvalidCommandQueue, ocl.StatusOf(q.Finish()))
}

func TestDeviceDefaultQueueCached(t *testing.T) {
	_, ctx, _ := newTestQueue(t)
	dev := ctx.DeviceByIndex(0)

	q1, err := dev.DefaultQueue()
	require.NoError(t, err)
	q2, err := dev.DefaultQueue()
	require.NoError(t, err)
	require.Same(t, q1, q2)
	require.Zero(t, q1.Flags(), "default queue is in-order")
}
