//go:build cl

package cldrv

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <stdlib.h>
#include <CL/cl.h>
#include <CL/cl_gl.h>
*/
import "C"

import (
	"unsafe"

	"github.com/goclx/gocl/ocl"

	"github.com/pkg/errors"
)

// Driver talks to the first OpenCL platform that exposes devices of the
// requested type. All handles it issues are the native object pointers.
type Driver struct{}

var _ ocl.Driver = (*Driver)(nil)

// New returns a driver bound to the system OpenCL library. It fails if no
// OpenCL platform is installed.
func New() (*Driver, error) {
	var count C.cl_uint
	if st := C.clGetPlatformIDs(0, nil, &count); st != C.CL_SUCCESS {
		return nil, errors.Errorf("clGetPlatformIDs failed with code %d", int(st))
	}
	if count == 0 {
		return nil, errors.New("no OpenCL platforms found")
	}
	return &Driver{}, nil
}

func (d *Driver) CreateContext(devType ocl.DeviceType) (ocl.ContextHandle, []ocl.DeviceHandle, ocl.Status) {
	var numPlatforms C.cl_uint
	if st := C.clGetPlatformIDs(0, nil, &numPlatforms); st != C.CL_SUCCESS {
		return 0, nil, ocl.Status(st)
	}
	if numPlatforms == 0 {
		return 0, nil, ocl.DeviceNotFound
	}
	platforms := make([]C.cl_platform_id, int(numPlatforms))
	if st := C.clGetPlatformIDs(numPlatforms, &platforms[0], nil); st != C.CL_SUCCESS {
		return 0, nil, ocl.Status(st)
	}

	// First platform with at least one matching device wins.
	var devices []C.cl_device_id
	for _, pid := range platforms {
		var numDevices C.cl_uint
		st := C.clGetDeviceIDs(pid, C.cl_device_type(devType), 0, nil, &numDevices)
		if st == C.CL_DEVICE_NOT_FOUND || numDevices == 0 {
			continue
		}
		if st != C.CL_SUCCESS {
			return 0, nil, ocl.Status(st)
		}
		devices = make([]C.cl_device_id, int(numDevices))
		if st := C.clGetDeviceIDs(pid, C.cl_device_type(devType), numDevices, &devices[0], nil); st != C.CL_SUCCESS {
			return 0, nil, ocl.Status(st)
		}
		break
	}
	if len(devices) == 0 {
		return 0, nil, ocl.DeviceNotFound
	}

	var status C.cl_int
	cctx := C.clCreateContext(nil, C.cl_uint(len(devices)), &devices[0], nil, nil, &status)
	if status != C.CL_SUCCESS {
		return 0, nil, ocl.Status(status)
	}
	handles := make([]ocl.DeviceHandle, len(devices))
	for i, dev := range devices {
		handles[i] = ocl.DeviceHandle(uintptr(unsafe.Pointer(dev)))
	}
	return ocl.ContextHandle(uintptr(unsafe.Pointer(cctx))), handles, ocl.Success
}

func (d *Driver) ReleaseContext(ctx ocl.ContextHandle) ocl.Status {
	return ocl.Status(C.clReleaseContext(clContext(ctx)))
}

func (d *Driver) DeviceMaxWorkGroupSize(dev ocl.DeviceHandle) (int, ocl.Status) {
	var size C.size_t
	st := C.clGetDeviceInfo(clDevice(dev), C.CL_DEVICE_MAX_WORK_GROUP_SIZE,
		C.size_t(unsafe.Sizeof(size)), unsafe.Pointer(&size), nil)
	return int(size), ocl.Status(st)
}

func (d *Driver) DeviceMaxComputeUnits(dev ocl.DeviceHandle) (int, ocl.Status) {
	var units C.cl_uint
	st := C.clGetDeviceInfo(clDevice(dev), C.CL_DEVICE_MAX_COMPUTE_UNITS,
		C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
	return int(units), ocl.Status(st)
}

func (d *Driver) DeviceExtensions(dev ocl.DeviceHandle) (string, ocl.Status) {
	var size C.size_t
	if st := C.clGetDeviceInfo(clDevice(dev), C.CL_DEVICE_EXTENSIONS, 0, nil, &size); st != C.CL_SUCCESS {
		return "", ocl.Status(st)
	}
	if size == 0 {
		return "", ocl.Success
	}
	buf := make([]byte, int(size))
	if st := C.clGetDeviceInfo(clDevice(dev), C.CL_DEVICE_EXTENSIONS, size, unsafe.Pointer(&buf[0]), nil); st != C.CL_SUCCESS {
		return "", ocl.Status(st)
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf), ocl.Success
}

func (d *Driver) CreateQueue(ctx ocl.ContextHandle, dev ocl.DeviceHandle, flags ocl.QueueFlags) (ocl.QueueHandle, ocl.Status) {
	var status C.cl_int
	q := C.clCreateCommandQueue(clContext(ctx), clDevice(dev),
		C.cl_command_queue_properties(flags), &status)
	if status != C.CL_SUCCESS {
		return 0, ocl.Status(status)
	}
	return ocl.QueueHandle(uintptr(unsafe.Pointer(q))), ocl.Success
}

func (d *Driver) ReleaseQueue(q ocl.QueueHandle) ocl.Status {
	return ocl.Status(C.clReleaseCommandQueue(clQueue(q)))
}

func (d *Driver) Flush(q ocl.QueueHandle) ocl.Status {
	return ocl.Status(C.clFlush(clQueue(q)))
}

func (d *Driver) Finish(q ocl.QueueHandle) ocl.Status {
	return ocl.Status(C.clFinish(clQueue(q)))
}

func (d *Driver) CreateBuffer(ctx ocl.ContextHandle, flags ocl.MemFlags, size int, hostData []byte) (ocl.MemHandle, ocl.Status) {
	var hostPtr unsafe.Pointer
	if len(hostData) > 0 {
		hostPtr = unsafe.Pointer(&hostData[0])
	}
	var status C.cl_int
	mem := C.clCreateBuffer(clContext(ctx), C.cl_mem_flags(flags), C.size_t(size), hostPtr, &status)
	if status != C.CL_SUCCESS {
		return 0, ocl.Status(status)
	}
	return ocl.MemHandle(uintptr(unsafe.Pointer(mem))), ocl.Success
}

func (d *Driver) CreateFromGLTexture(ctx ocl.ContextHandle, flags ocl.MemFlags, target, texture uint32) (ocl.MemHandle, ocl.Status) {
	var status C.cl_int
	mem := C.clCreateFromGLTexture(clContext(ctx), C.cl_mem_flags(flags),
		C.cl_GLenum(target), 0, C.cl_GLuint(texture), &status)
	if status != C.CL_SUCCESS {
		return 0, ocl.Status(status)
	}
	return ocl.MemHandle(uintptr(unsafe.Pointer(mem))), ocl.Success
}

func (d *Driver) ReleaseMem(mem ocl.MemHandle) ocl.Status {
	return ocl.Status(C.clReleaseMemObject(clMem(mem)))
}

func (d *Driver) CreateProgramWithSource(ctx ocl.ContextHandle, sources []string) (ocl.ProgramHandle, ocl.Status) {
	if len(sources) == 0 {
		return 0, ocl.InvalidValue
	}
	cstrs := make([]*C.char, len(sources))
	lengths := make([]C.size_t, len(sources))
	for i, src := range sources {
		cstrs[i] = C.CString(src)
		lengths[i] = C.size_t(len(src))
	}
	defer func() {
		for _, s := range cstrs {
			C.free(unsafe.Pointer(s))
		}
	}()
	var status C.cl_int
	p := C.clCreateProgramWithSource(clContext(ctx), C.cl_uint(len(sources)),
		&cstrs[0], &lengths[0], &status)
	if status != C.CL_SUCCESS {
		return 0, ocl.Status(status)
	}
	return ocl.ProgramHandle(uintptr(unsafe.Pointer(p))), ocl.Success
}

func (d *Driver) BuildProgram(p ocl.ProgramHandle, options string) ocl.Status {
	var copts *C.char
	if options != "" {
		copts = C.CString(options)
		defer C.free(unsafe.Pointer(copts))
	}
	return ocl.Status(C.clBuildProgram(clProgram(p), 0, nil, copts, nil, nil))
}

func (d *Driver) ProgramBuildStatus(p ocl.ProgramHandle, dev ocl.DeviceHandle) (ocl.BuildStatus, ocl.Status) {
	var status C.cl_build_status
	st := C.clGetProgramBuildInfo(clProgram(p), clDevice(dev), C.CL_PROGRAM_BUILD_STATUS,
		C.size_t(unsafe.Sizeof(status)), unsafe.Pointer(&status), nil)
	if st != C.CL_SUCCESS {
		return ocl.BuildNone, ocl.Status(st)
	}
	return ocl.BuildStatus(status), ocl.Success
}

func (d *Driver) ProgramBuildLog(p ocl.ProgramHandle, dev ocl.DeviceHandle) (string, ocl.Status) {
	var size C.size_t
	if st := C.clGetProgramBuildInfo(clProgram(p), clDevice(dev), C.CL_PROGRAM_BUILD_LOG, 0, nil, &size); st != C.CL_SUCCESS {
		return "", ocl.Status(st)
	}
	if size == 0 {
		return "", ocl.Success
	}
	buf := make([]byte, int(size))
	if st := C.clGetProgramBuildInfo(clProgram(p), clDevice(dev), C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil); st != C.CL_SUCCESS {
		return "", ocl.Status(st)
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf), ocl.Success
}

func (d *Driver) ReleaseProgram(p ocl.ProgramHandle) ocl.Status {
	return ocl.Status(C.clReleaseProgram(clProgram(p)))
}

func (d *Driver) CreateKernel(p ocl.ProgramHandle, name string) (ocl.KernelHandle, ocl.Status) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var status C.cl_int
	k := C.clCreateKernel(clProgram(p), cname, &status)
	if status != C.CL_SUCCESS {
		return 0, ocl.Status(status)
	}
	return ocl.KernelHandle(uintptr(unsafe.Pointer(k))), ocl.Success
}

func (d *Driver) SetKernelArgBuffer(k ocl.KernelHandle, index int, mem ocl.MemHandle) ocl.Status {
	cmem := clMem(mem)
	return ocl.Status(C.clSetKernelArg(clKernel(k), C.cl_uint(index),
		C.size_t(unsafe.Sizeof(cmem)), unsafe.Pointer(&cmem)))
}

func (d *Driver) SetKernelArgInt32(k ocl.KernelHandle, index int, values []int32) ocl.Status {
	if len(values) == 0 {
		return ocl.InvalidArgValue
	}
	return ocl.Status(C.clSetKernelArg(clKernel(k), C.cl_uint(index),
		C.size_t(4*len(values)), unsafe.Pointer(&values[0])))
}

func (d *Driver) SetKernelArgFloat32(k ocl.KernelHandle, index int, values []float32) ocl.Status {
	if len(values) == 0 {
		return ocl.InvalidArgValue
	}
	return ocl.Status(C.clSetKernelArg(clKernel(k), C.cl_uint(index),
		C.size_t(4*len(values)), unsafe.Pointer(&values[0])))
}

func (d *Driver) ReleaseKernel(k ocl.KernelHandle) ocl.Status {
	return ocl.Status(C.clReleaseKernel(clKernel(k)))
}

func (d *Driver) EnqueueReadBuffer(q ocl.QueueHandle, mem ocl.MemHandle, blocking bool, offset, size int, dst []byte, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	wl, nwl := clWaitList(waitList)
	var ev C.cl_event
	evPtr := &ev
	if blocking {
		evPtr = nil
	}
	if len(dst) == 0 {
		return 0, ocl.InvalidValue
	}
	st := C.clEnqueueReadBuffer(clQueue(q), clMem(mem), clBool(blocking),
		C.size_t(offset), C.size_t(size), unsafe.Pointer(&dst[0]), nwl, wl, evPtr)
	if st != C.CL_SUCCESS {
		return 0, ocl.Status(st)
	}
	return clEventHandle(ev), ocl.Success
}

func (d *Driver) EnqueueWriteBuffer(q ocl.QueueHandle, mem ocl.MemHandle, blocking bool, offset, size int, src []byte, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	wl, nwl := clWaitList(waitList)
	var ev C.cl_event
	evPtr := &ev
	if blocking {
		evPtr = nil
	}
	if len(src) == 0 {
		return 0, ocl.InvalidValue
	}
	st := C.clEnqueueWriteBuffer(clQueue(q), clMem(mem), clBool(blocking),
		C.size_t(offset), C.size_t(size), unsafe.Pointer(&src[0]), nwl, wl, evPtr)
	if st != C.CL_SUCCESS {
		return 0, ocl.Status(st)
	}
	return clEventHandle(ev), ocl.Success
}

func (d *Driver) EnqueueKernel(q ocl.QueueHandle, k ocl.KernelHandle, globalSize, localSize []int, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if len(globalSize) == 0 {
		return 0, ocl.InvalidWorkDimension
	}
	global := make([]C.size_t, len(globalSize))
	for i, v := range globalSize {
		global[i] = C.size_t(v)
	}
	var localPtr *C.size_t
	if len(localSize) > 0 {
		local := make([]C.size_t, len(localSize))
		for i, v := range localSize {
			local[i] = C.size_t(v)
		}
		localPtr = &local[0]
	}
	wl, nwl := clWaitList(waitList)
	var ev C.cl_event
	st := C.clEnqueueNDRangeKernel(clQueue(q), clKernel(k), C.cl_uint(len(global)),
		nil, &global[0], localPtr, nwl, wl, &ev)
	if st != C.CL_SUCCESS {
		return 0, ocl.Status(st)
	}
	return clEventHandle(ev), ocl.Success
}

func (d *Driver) EnqueueAcquireGLObjects(q ocl.QueueHandle, mems []ocl.MemHandle, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if len(mems) == 0 {
		return 0, ocl.InvalidValue
	}
	objs := clMems(mems)
	wl, nwl := clWaitList(waitList)
	var ev C.cl_event
	st := C.clEnqueueAcquireGLObjects(clQueue(q), C.cl_uint(len(objs)), &objs[0], nwl, wl, &ev)
	if st != C.CL_SUCCESS {
		return 0, ocl.Status(st)
	}
	return clEventHandle(ev), ocl.Success
}

func (d *Driver) EnqueueReleaseGLObjects(q ocl.QueueHandle, mems []ocl.MemHandle, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if len(mems) == 0 {
		return 0, ocl.InvalidValue
	}
	objs := clMems(mems)
	wl, nwl := clWaitList(waitList)
	var ev C.cl_event
	st := C.clEnqueueReleaseGLObjects(clQueue(q), C.cl_uint(len(objs)), &objs[0], nwl, wl, &ev)
	if st != C.CL_SUCCESS {
		return 0, ocl.Status(st)
	}
	return clEventHandle(ev), ocl.Success
}

func (d *Driver) WaitForEvents(events []ocl.EventHandle) ocl.Status {
	if len(events) == 0 {
		return ocl.Success
	}
	list := make([]C.cl_event, len(events))
	for i, ev := range events {
		list[i] = clEvent(ev)
	}
	return ocl.Status(C.clWaitForEvents(C.cl_uint(len(list)), &list[0]))
}

func (d *Driver) ReleaseEvent(ev ocl.EventHandle) ocl.Status {
	return ocl.Status(C.clReleaseEvent(clEvent(ev)))
}

// Handle conversions. Native OpenCL objects are pointers; the wrapper
// layer carries them as uintptr-sized opaque handles.

func clContext(h ocl.ContextHandle) C.cl_context {
	return C.cl_context(unsafe.Pointer(uintptr(h)))
}

func clDevice(h ocl.DeviceHandle) C.cl_device_id {
	return C.cl_device_id(unsafe.Pointer(uintptr(h)))
}

func clQueue(h ocl.QueueHandle) C.cl_command_queue {
	return C.cl_command_queue(unsafe.Pointer(uintptr(h)))
}

func clMem(h ocl.MemHandle) C.cl_mem {
	return C.cl_mem(unsafe.Pointer(uintptr(h)))
}

func clProgram(h ocl.ProgramHandle) C.cl_program {
	return C.cl_program(unsafe.Pointer(uintptr(h)))
}

func clKernel(h ocl.KernelHandle) C.cl_kernel {
	return C.cl_kernel(unsafe.Pointer(uintptr(h)))
}

func clEvent(h ocl.EventHandle) C.cl_event {
	return C.cl_event(unsafe.Pointer(uintptr(h)))
}

func clBool(b bool) C.cl_bool {
	if b {
		return C.CL_TRUE
	}
	return C.CL_FALSE
}

func clEventHandle(ev C.cl_event) ocl.EventHandle {
	return ocl.EventHandle(uintptr(unsafe.Pointer(ev)))
}

func clMems(mems []ocl.MemHandle) []C.cl_mem {
	out := make([]C.cl_mem, len(mems))
	for i, m := range mems {
		out[i] = clMem(m)
	}
	return out
}

func clWaitList(waitList []ocl.EventHandle) (*C.cl_event, C.cl_uint) {
	if len(waitList) == 0 {
		return nil, 0
	}
	list := make([]C.cl_event, len(waitList))
	for i, ev := range waitList {
		list[i] = clEvent(ev)
	}
	return &list[0], C.cl_uint(len(list))
}
