package ocl

import (
	"slices"
	"strings"
	"sync"
)

// Device is one compute device of a context. Devices are enumerated when
// the context is created and live exactly as long as it; they carry no
// native resource of their own beyond the identifier.
type Device struct {
	ctx    *Context
	handle DeviceHandle

	mu               sync.Mutex
	queue            *Queue
	maxWorkGroupSize int
}

// Context returns the context the device belongs to.
func (d *Device) Context() *Context { return d.ctx }

// Handle returns the native device identifier.
func (d *Device) Handle() DeviceHandle { return d.handle }

// DefaultQueue returns the device's shared in-order command queue,
// creating it on the first call. Operations that take no explicit queue
// submit here.
func (d *Device) DefaultQueue() (*Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		q, err := NewQueue(d, 0)
		if err != nil {
			return nil, err
		}
		d.queue = q
	}
	return d.queue, nil
}

// MaxWorkGroupSize returns the maximum number of work items per work
// group the device supports. The value is queried once and cached.
func (d *Device) MaxWorkGroupSize() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maxWorkGroupSize == 0 {
		size, st := d.ctx.drv.DeviceMaxWorkGroupSize(d.handle)
		if err := checkStatus(st); err != nil {
			return 0, err
		}
		d.maxWorkGroupSize = size
	}
	return d.maxWorkGroupSize, nil
}

// MaxComputeUnits returns the number of parallel compute units on the
// device.
func (d *Device) MaxComputeUnits() (int, error) {
	units, st := d.ctx.drv.DeviceMaxComputeUnits(d.handle)
	if err := checkStatus(st); err != nil {
		return 0, err
	}
	return units, nil
}

// HasExtension reports whether the device advertises the named extension
// (e.g. "cl_khr_gl_sharing").
func (d *Device) HasExtension(name string) (bool, error) {
	extensions, st := d.ctx.drv.DeviceExtensions(d.handle)
	if err := checkStatus(st); err != nil {
		return false, err
	}
	return slices.Contains(strings.Fields(extensions), name), nil
}

// ReadBufferSync reads size bytes of buffer starting at offset into dst,
// blocking on the device's default queue. A convenience over
// Buffer.ReadSync for callers that have no queue of their own.
func (d *Device) ReadBufferSync(buffer *Buffer, offset int, dst []byte) error {
	q, err := d.DefaultQueue()
	if err != nil {
		return err
	}
	return buffer.ReadSync(q, dst, offset, nil)
}
