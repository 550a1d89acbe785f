package ocl

// Opaque native handles. A zero handle means "no object". Handles are only
// meaningful to the Driver that issued them.
type (
	ContextHandle uintptr
	DeviceHandle  uintptr
	QueueHandle   uintptr
	MemHandle     uintptr
	ProgramHandle uintptr
	KernelHandle  uintptr
	EventHandle   uintptr
)

// DeviceType selects the class of device a context is created for.
type DeviceType uint64

const (
	DeviceTypeDefault     DeviceType = 1 << 0
	DeviceTypeCPU         DeviceType = 1 << 1
	DeviceTypeGPU         DeviceType = 1 << 2
	DeviceTypeAccelerator DeviceType = 1 << 3
	DeviceTypeAll         DeviceType = 0xFFFFFFFF
)

// MemFlags control how a buffer or image may be accessed by kernels and
// how it is allocated.
type MemFlags uint64

const (
	MemReadWrite    MemFlags = 1 << 0
	MemWriteOnly    MemFlags = 1 << 1
	MemReadOnly     MemFlags = 1 << 2
	MemUseHostPtr   MemFlags = 1 << 3
	MemAllocHostPtr MemFlags = 1 << 4
	MemCopyHostPtr  MemFlags = 1 << 5
)

// BuildStatus is the per-device state of a program build.
type BuildStatus int32

const (
	BuildSuccess    BuildStatus = 0
	BuildNone       BuildStatus = -1
	BuildError      BuildStatus = -2
	BuildInProgress BuildStatus = -3
)

// QueueFlags are the properties of a command queue, fixed at creation.
type QueueFlags uint64

const (
	// QueueOutOfOrder enables out-of-order execution of commands.
	QueueOutOfOrder QueueFlags = 1 << 0
	// QueueProfiling enables profiling of commands.
	QueueProfiling QueueFlags = 1 << 1
)

// Driver abstracts the native OpenCL entry points the wrapper layer uses.
// Every method mirrors one driver call: it returns a Status (plus any out
// values) and never panics. The production implementation is a cgo binding
// (package ocl/cldrv, build tag "cl"); package ocl/clfake provides an
// in-memory implementation for tests and examples.
//
// Enqueue methods follow the native calling convention: with blocking=true
// the call does not return until the operation finished and no completion
// event is produced; otherwise the call returns immediately and, on
// success, yields the completion event handle for the submitted command.
// Wait lists are passed through verbatim, preserving order, whether or not
// the referenced events are already known to be complete.
type Driver interface {
	// Contexts and devices.
	CreateContext(devType DeviceType) (ContextHandle, []DeviceHandle, Status)
	ReleaseContext(ctx ContextHandle) Status
	DeviceMaxWorkGroupSize(dev DeviceHandle) (int, Status)
	DeviceMaxComputeUnits(dev DeviceHandle) (int, Status)
	DeviceExtensions(dev DeviceHandle) (string, Status)

	// Command queues.
	CreateQueue(ctx ContextHandle, dev DeviceHandle, flags QueueFlags) (QueueHandle, Status)
	ReleaseQueue(q QueueHandle) Status
	Flush(q QueueHandle) Status
	Finish(q QueueHandle) Status

	// Memory objects.
	CreateBuffer(ctx ContextHandle, flags MemFlags, size int, hostData []byte) (MemHandle, Status)
	CreateFromGLTexture(ctx ContextHandle, flags MemFlags, target, texture uint32) (MemHandle, Status)
	ReleaseMem(mem MemHandle) Status

	// Programs and kernels.
	CreateProgramWithSource(ctx ContextHandle, sources []string) (ProgramHandle, Status)
	BuildProgram(p ProgramHandle, options string) Status
	ProgramBuildStatus(p ProgramHandle, dev DeviceHandle) (BuildStatus, Status)
	ProgramBuildLog(p ProgramHandle, dev DeviceHandle) (string, Status)
	ReleaseProgram(p ProgramHandle) Status
	CreateKernel(p ProgramHandle, name string) (KernelHandle, Status)
	SetKernelArgBuffer(k KernelHandle, index int, mem MemHandle) Status
	SetKernelArgInt32(k KernelHandle, index int, values []int32) Status
	SetKernelArgFloat32(k KernelHandle, index int, values []float32) Status
	ReleaseKernel(k KernelHandle) Status

	// Command submission.
	EnqueueReadBuffer(q QueueHandle, mem MemHandle, blocking bool, offset, size int, dst []byte, waitList []EventHandle) (EventHandle, Status)
	EnqueueWriteBuffer(q QueueHandle, mem MemHandle, blocking bool, offset, size int, src []byte, waitList []EventHandle) (EventHandle, Status)
	EnqueueKernel(q QueueHandle, k KernelHandle, globalSize, localSize []int, waitList []EventHandle) (EventHandle, Status)
	EnqueueAcquireGLObjects(q QueueHandle, mems []MemHandle, waitList []EventHandle) (EventHandle, Status)
	EnqueueReleaseGLObjects(q QueueHandle, mems []MemHandle, waitList []EventHandle) (EventHandle, Status)

	// Completion events.
	WaitForEvents(events []EventHandle) Status
	ReleaseEvent(ev EventHandle) Status
}
