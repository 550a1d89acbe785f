package ocl

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// Image is a memory object created from an OpenGL texture shared with the
// compute context. Before kernels may use a shared object the device must
// acquire it from GL, and release it back when done; both are dispatch
// operations producing completion events.
type Image struct {
	ctx     *Context
	flags   MemFlags
	target  uint32
	texture uint32

	mu     sync.Mutex
	handle MemHandle
}

// NewImageFromGLTexture creates an image from a GL texture object. The GL
// context the texture lives in must be shared with ctx, and the platform
// must support the cl_khr_gl_sharing extension.
func NewImageFromGLTexture(ctx *Context, flags MemFlags, target, texture uint32) (*Image, error) {
	handle, st := ctx.drv.CreateFromGLTexture(ctx.Handle(), flags, target, texture)
	if st != Success {
		return nil, statusErr(st)
	}
	im := &Image{ctx: ctx, flags: flags, target: target, texture: texture, handle: handle}
	runtime.SetFinalizer(im, func(im *Image) {
		if err := im.Destroy(); err != nil {
			klog.Errorf("Image.Destroy failed: %+v", err)
		}
	})
	return im, nil
}

// Context returns the context the image was created in.
func (im *Image) Context() *Context { return im.ctx }

// Flags returns the flags used when creating the image.
func (im *Image) Flags() MemFlags { return im.flags }

// GLTexture returns the GL texture name the image was created from.
func (im *Image) GLTexture() uint32 { return im.texture }

// Handle returns the native memory handle, or zero after destruction.
func (im *Image) Handle() MemHandle {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.handle
}

// AcquireGL asynchronously acquires the image from OpenGL for use by
// kernels, after every event in waitList has completed.
func (im *Image) AcquireGL(q *Queue, waitList []*Event) *Event {
	return AcquireGLObjects(q, []*Image{im}, waitList)
}

// ReleaseGL asynchronously releases the image back to OpenGL, after every
// event in waitList has completed.
func (im *Image) ReleaseGL(q *Queue, waitList []*Event) *Event {
	return ReleaseGLObjects(q, []*Image{im}, waitList)
}

// AcquireGLSync acquires the image from OpenGL and blocks until the
// transition completed.
func (im *Image) AcquireGLSync(q *Queue) error {
	evHandle, st := q.driver().EnqueueAcquireGLObjects(q.Handle(), imageHandles([]*Image{im}), nil)
	if st != Success {
		return statusErr(st)
	}
	return awaitAndRelease(q, evHandle)
}

// ReleaseGLSync releases the image back to OpenGL and blocks until the
// transition completed.
func (im *Image) ReleaseGLSync(q *Queue) error {
	evHandle, st := q.driver().EnqueueReleaseGLObjects(q.Handle(), imageHandles([]*Image{im}), nil)
	if st != Success {
		return statusErr(st)
	}
	return awaitAndRelease(q, evHandle)
}

// Destroy releases the native memory handle. Idempotent and nil-safe;
// automatically invoked when the image is garbage collected.
func (im *Image) Destroy() error {
	if im == nil {
		return nil
	}
	im.mu.Lock()
	handle := im.handle
	im.handle = 0
	im.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(im.ctx.drv.ReleaseMem(handle))
}

// AcquireGLObjects asynchronously acquires a group of shared GL objects
// for compute use in one command. All images must belong to the queue's
// context.
func AcquireGLObjects(q *Queue, images []*Image, waitList []*Event) *Event {
	evHandle, st := q.driver().EnqueueAcquireGLObjects(
		q.Handle(), imageHandles(images), waitListHandles(waitList))
	if st != Success {
		return failedEvent(q, st)
	}
	return NewEvent(q, evHandle)
}

// ReleaseGLObjects asynchronously releases a group of shared GL objects
// back to OpenGL in one command.
func ReleaseGLObjects(q *Queue, images []*Image, waitList []*Event) *Event {
	evHandle, st := q.driver().EnqueueReleaseGLObjects(
		q.Handle(), imageHandles(images), waitListHandles(waitList))
	if st != Success {
		return failedEvent(q, st)
	}
	return NewEvent(q, evHandle)
}

func imageHandles(images []*Image) []MemHandle {
	handles := make([]MemHandle, len(images))
	for i, im := range images {
		handles[i] = im.Handle()
	}
	return handles
}
