package ocl

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// Queue is a command submission channel on one device. It owns exactly one
// native queue handle, released exactly once at destruction. Its flags and
// device are fixed at creation, so a Queue is safe to share by reference
// among any number of in-flight events; it holds no completion state of
// its own.
type Queue struct {
	ctx   *Context
	dev   *Device
	flags QueueFlags

	mu     sync.Mutex
	handle QueueHandle
}

// NewQueue creates a command queue for device. In-order execution is the
// default; pass QueueOutOfOrder and/or QueueProfiling to change that.
func NewQueue(dev *Device, flags QueueFlags) (*Queue, error) {
	ctx := dev.ctx
	handle, st := ctx.drv.CreateQueue(ctx.Handle(), dev.handle, flags)
	if st != Success {
		return nil, statusErr(st)
	}
	q := &Queue{ctx: ctx, dev: dev, flags: flags, handle: handle}
	runtime.SetFinalizer(q, func(q *Queue) {
		if err := q.Destroy(); err != nil {
			klog.Errorf("Queue.Destroy failed: %+v", err)
		}
	})
	return q, nil
}

func (q *Queue) driver() Driver { return q.ctx.drv }

// Context returns the context the queue was created in.
func (q *Queue) Context() *Context { return q.ctx }

// Device returns the device the queue submits to.
func (q *Queue) Device() *Device { return q.dev }

// Flags returns the properties the queue was created with.
func (q *Queue) Flags() QueueFlags { return q.flags }

// Handle returns the native queue handle, or zero after destruction.
func (q *Queue) Handle() QueueHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handle
}

// Flush submits any buffered commands to the device without waiting for
// them to complete.
func (q *Queue) Flush() error {
	return checkStatus(q.ctx.drv.Flush(q.Handle()))
}

// Finish blocks until every command submitted on the queue has completed.
func (q *Queue) Finish() error {
	return checkStatus(q.ctx.drv.Finish(q.Handle()))
}

// Destroy releases the native queue handle. Idempotent and nil-safe;
// automatically invoked when the queue is garbage collected.
func (q *Queue) Destroy() error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	handle := q.handle
	q.handle = 0
	q.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(q.ctx.drv.ReleaseQueue(handle))
}
