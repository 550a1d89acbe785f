package ocl

import (
	"sync"
)

// Buffer is a device memory region. Created with Context.NewBuffer; its
// flags and size are fixed at creation, and the native memory handle is
// released exactly once at destruction.
//
// Read and Write are dispatch operations: the async forms return a
// completion Event immediately (already resolved with the error if the
// native enqueue itself failed), the Sync forms block the calling
// goroutine for the duration of the native transfer.
type Buffer struct {
	ctx   *Context
	flags MemFlags
	size  int

	mu     sync.Mutex
	handle MemHandle
}

// Context returns the context the buffer was created in.
func (b *Buffer) Context() *Context { return b.ctx }

// Flags returns the flags used when creating the buffer.
func (b *Buffer) Flags() MemFlags { return b.flags }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// Handle returns the native memory handle, or zero after destruction.
func (b *Buffer) Handle() MemHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// Read asynchronously copies len(dst) bytes of the buffer, starting at
// offset, into dst. The transfer begins after every event in waitList has
// completed. dst must stay valid until the returned event resolves.
func (b *Buffer) Read(q *Queue, dst []byte, offset int, waitList []*Event) *Event {
	evHandle, st := b.ctx.drv.EnqueueReadBuffer(
		q.Handle(), b.Handle(), false, offset, len(dst), dst, waitListHandles(waitList))
	if st != Success {
		return failedEvent(q, st)
	}
	return NewEvent(q, evHandle)
}

// ReadSync copies len(dst) bytes of the buffer, starting at offset, into
// dst, blocking until the transfer finished.
func (b *Buffer) ReadSync(q *Queue, dst []byte, offset int, waitList []*Event) error {
	_, st := b.ctx.drv.EnqueueReadBuffer(
		q.Handle(), b.Handle(), true, offset, len(dst), dst, waitListHandles(waitList))
	return statusErr(st)
}

// ReadAllSync reads the whole buffer into dst, which must be at least
// Size() bytes long, blocking until the transfer finished.
func (b *Buffer) ReadAllSync(q *Queue, dst []byte) error {
	return b.ReadSync(q, dst[:b.size], 0, nil)
}

// Write asynchronously copies src into the buffer starting at offset. The
// transfer begins after every event in waitList has completed. src must
// stay valid and unmodified until the returned event resolves.
func (b *Buffer) Write(q *Queue, src []byte, offset int, waitList []*Event) *Event {
	evHandle, st := b.ctx.drv.EnqueueWriteBuffer(
		q.Handle(), b.Handle(), false, offset, len(src), src, waitListHandles(waitList))
	if st != Success {
		return failedEvent(q, st)
	}
	return NewEvent(q, evHandle)
}

// WriteSync copies src into the buffer starting at offset, blocking until
// the transfer finished.
func (b *Buffer) WriteSync(q *Queue, src []byte, offset int, waitList []*Event) error {
	_, st := b.ctx.drv.EnqueueWriteBuffer(
		q.Handle(), b.Handle(), true, offset, len(src), src, waitListHandles(waitList))
	return statusErr(st)
}

// Destroy releases the native memory handle. Idempotent and nil-safe;
// automatically invoked when the buffer is garbage collected.
func (b *Buffer) Destroy() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	handle := b.handle
	b.handle = 0
	b.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(b.ctx.drv.ReleaseMem(handle))
}
