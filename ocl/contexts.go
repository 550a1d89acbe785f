package ocl

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Context owns one native context handle and the devices it was created
// for. All other objects (buffers, programs, queues) are created through
// or under a context.
type Context struct {
	drv     Driver
	devices []*Device

	mu     sync.Mutex
	handle ContextHandle
}

// NewContext creates a context for all devices of the given type known to
// the driver.
func NewContext(drv Driver, devType DeviceType) (*Context, error) {
	handle, devHandles, st := drv.CreateContext(devType)
	if st != Success {
		return nil, statusErr(st)
	}
	if len(devHandles) == 0 {
		return nil, errors.Errorf("ocl: context created with no devices (device type %#x)", uint64(devType))
	}
	c := &Context{drv: drv, handle: handle}
	c.devices = make([]*Device, len(devHandles))
	for i, dh := range devHandles {
		c.devices[i] = &Device{ctx: c, handle: dh}
	}
	runtime.SetFinalizer(c, func(c *Context) {
		if err := c.Destroy(); err != nil {
			klog.Errorf("Context.Destroy failed: %+v", err)
		}
	})
	return c, nil
}

// Cached default contexts, one per driver, created on first use.
var (
	defaultCtxMu  sync.Mutex
	defaultCtxGPU = map[Driver]*Context{}
	defaultCtxCPU = map[Driver]*Context{}
)

// DefaultGPU returns the driver's shared GPU context, creating it on the
// first call.
func DefaultGPU(drv Driver) (*Context, error) {
	return defaultContext(drv, DeviceTypeGPU, defaultCtxGPU)
}

// DefaultCPU returns the driver's shared CPU context, creating it on the
// first call.
func DefaultCPU(drv Driver) (*Context, error) {
	return defaultContext(drv, DeviceTypeCPU, defaultCtxCPU)
}

func defaultContext(drv Driver, devType DeviceType, cache map[Driver]*Context) (*Context, error) {
	defaultCtxMu.Lock()
	defer defaultCtxMu.Unlock()
	if c, ok := cache[drv]; ok {
		return c, nil
	}
	c, err := NewContext(drv, devType)
	if err != nil {
		return nil, err
	}
	cache[drv] = c
	return c, nil
}

// Driver returns the driver the context was created on.
func (c *Context) Driver() Driver { return c.drv }

// Handle returns the native context handle, or zero after destruction.
func (c *Context) Handle() ContextHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// NumDevices returns how many devices the context spans.
func (c *Context) NumDevices() int { return len(c.devices) }

// DeviceByIndex returns the idx-th device of the context.
func (c *Context) DeviceByIndex(idx int) *Device { return c.devices[idx] }

// Devices returns the context's devices. The returned slice is shared;
// callers must not modify it.
func (c *Context) Devices() []*Device { return c.devices }

// NewBuffer creates a device memory buffer of size bytes in the context.
// hostData may be nil; when MemUseHostPtr or MemCopyHostPtr is set it is
// the host memory the buffer is built from.
func (c *Context) NewBuffer(flags MemFlags, size int, hostData []byte) (*Buffer, error) {
	handle, st := c.drv.CreateBuffer(c.Handle(), flags, size, hostData)
	if st != Success {
		return nil, statusErr(st)
	}
	b := &Buffer{ctx: c, flags: flags, size: size, handle: handle}
	runtime.SetFinalizer(b, func(b *Buffer) {
		if err := b.Destroy(); err != nil {
			klog.Errorf("Buffer.Destroy failed: %+v", err)
		}
	})
	return b, nil
}

// Destroy releases the native context handle. Idempotent and nil-safe;
// automatically invoked when the context is garbage collected.
func (c *Context) Destroy() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	handle := c.handle
	c.handle = 0
	c.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(c.drv.ReleaseContext(handle))
}
