package ocl

import (
	"sync"
)

// Kernel is one entry point of a built program. Arguments are set with the
// SetArg* methods, then the kernel is dispatched with Run (asynchronous,
// yields a completion Event) or RunSync (blocks until the execution
// finished).
//
// A Kernel is not safe for concurrent dispatch from multiple goroutines:
// argument state lives in the native object.
type Kernel struct {
	prog *Program
	name string

	mu     sync.Mutex
	handle KernelHandle
}

// Name returns the kernel's entry-point name.
func (k *Kernel) Name() string { return k.name }

// Program returns the program the kernel belongs to.
func (k *Kernel) Program() *Program { return k.prog }

// Handle returns the native kernel handle, or zero after destruction.
func (k *Kernel) Handle() KernelHandle {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handle
}

// SetArgBuffer binds buffer to the kernel argument at index.
func (k *Kernel) SetArgBuffer(index int, buffer *Buffer) error {
	return checkStatus(k.driver().SetKernelArgBuffer(k.Handle(), index, buffer.Handle()))
}

// SetArgInt32 sets the kernel argument at index to the given int32
// value(s).
func (k *Kernel) SetArgInt32(index int, values ...int32) error {
	return checkStatus(k.driver().SetKernelArgInt32(k.Handle(), index, values))
}

// SetArgFloat32 sets the kernel argument at index to the given float32
// value(s).
func (k *Kernel) SetArgFloat32(index int, values ...float32) error {
	return checkStatus(k.driver().SetKernelArgFloat32(k.Handle(), index, values))
}

// Run asynchronously enqueues the kernel on the device's default queue.
// global is the work size per dimension; local is the work-group size per
// dimension and may be nil to let the driver choose. Execution begins
// after every event in waitList has completed.
func (k *Kernel) Run(device *Device, global, local []int, waitList []*Event) *Event {
	q, err := device.DefaultQueue()
	if err != nil {
		return failedEventErr(nil, err)
	}
	evHandle, st := k.driver().EnqueueKernel(
		q.Handle(), k.Handle(), global, local, waitListHandles(waitList))
	if st != Success {
		return failedEvent(q, st)
	}
	return NewEvent(q, evHandle)
}

// RunSync enqueues the kernel on the device's default queue and blocks
// until the execution finished. The transient native completion handle is
// waited on and released before returning.
func (k *Kernel) RunSync(device *Device, global, local []int) error {
	q, err := device.DefaultQueue()
	if err != nil {
		return err
	}
	evHandle, st := k.driver().EnqueueKernel(q.Handle(), k.Handle(), global, local, nil)
	if st != Success {
		return statusErr(st)
	}
	return awaitAndRelease(q, evHandle)
}

// Destroy releases the native kernel handle. Idempotent and nil-safe;
// automatically invoked when the kernel is garbage collected.
func (k *Kernel) Destroy() error {
	if k == nil {
		return nil
	}
	k.mu.Lock()
	handle := k.handle
	k.handle = 0
	k.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(k.driver().ReleaseKernel(handle))
}

func (k *Kernel) driver() Driver { return k.prog.ctx.drv }
