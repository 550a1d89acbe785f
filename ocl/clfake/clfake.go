// Package clfake is an in-memory implementation of ocl.Driver used by
// tests and examples. It models the native driver faithfully enough to
// exercise the completion machinery: every queue runs its commands in
// submission order on its own worker goroutine, completion events signal
// through channels, wait lists defer execution until upstream events
// signal, and kernels are ordinary Go functions registered by name.
//
// Two test hooks exist beyond the Driver surface: FailNext injects a
// synchronous failure into the next call of a given driver entry point,
// and Block/Unblock gate command execution so a test can observe the
// pending side of an event deterministically.
package clfake

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goclx/gocl/ocl"
)

// KernelArg is one kernel argument as seen by a registered kernel
// function. Exactly one field is set, matching the SetKernelArg* call that
// bound the argument.
type KernelArg struct {
	// Buffer aliases the buffer's backing storage; writes are visible to
	// later reads of the buffer.
	Buffer   []byte
	Int32s   []int32
	Float32s []float32
}

// KernelFunc is the Go body of a fake kernel. It is invoked once per
// enqueued kernel command with the arguments bound at enqueue time.
type KernelFunc func(args []KernelArg, global, local []int)

// Driver is the fake driver. The zero value is not usable; construct with
// New. All methods are safe for concurrent use.
type Driver struct {
	// NumDevices is how many devices each created context reports.
	// Adjust before creating contexts; defaults to 1.
	NumDevices int

	// Extensions is the extension string every device advertises.
	Extensions string

	mu       sync.Mutex
	next     uintptr
	contexts map[ocl.ContextHandle]bool
	queues   map[ocl.QueueHandle]*queueState
	mems     map[ocl.MemHandle]*memState
	programs map[ocl.ProgramHandle]*programState
	kernels  map[ocl.KernelHandle]*kernelState
	events   map[ocl.EventHandle]*eventState

	kernelFuncs map[string]KernelFunc
	failNext    map[string]ocl.Status
	hold        chan struct{}

	waitCalls atomic.Int32
}

type queueState struct {
	commands chan *command
	done     chan struct{}
}

type memState struct {
	data []byte
}

type programState struct {
	sources     []string
	built       bool
	buildStatus ocl.BuildStatus
	buildLog    string
}

type kernelState struct {
	fn   KernelFunc
	args map[int]KernelArg
}

type eventState struct {
	done chan struct{}
}

type command struct {
	waitList []<-chan struct{}
	run      func()
	ev       *eventState
}

// New returns an empty fake driver with one device.
func New() *Driver {
	return &Driver{
		NumDevices:  1,
		Extensions:  "cl_khr_gl_sharing cl_khr_byte_addressable_store",
		next:        1,
		contexts:    map[ocl.ContextHandle]bool{},
		queues:      map[ocl.QueueHandle]*queueState{},
		mems:        map[ocl.MemHandle]*memState{},
		programs:    map[ocl.ProgramHandle]*programState{},
		kernels:     map[ocl.KernelHandle]*kernelState{},
		events:      map[ocl.EventHandle]*eventState{},
		kernelFuncs: map[string]KernelFunc{},
		failNext:    map[string]ocl.Status{},
	}
}

// DefineKernel registers fn as the body of the named kernel. Programs
// "compile" any source; CreateKernel succeeds only for registered names.
func (d *Driver) DefineKernel(name string, fn KernelFunc) {
	d.mu.Lock()
	d.kernelFuncs[name] = fn
	d.mu.Unlock()
}

// FailNext makes the next call of the named driver method (e.g.
// "EnqueueWriteBuffer") fail synchronously with st.
func (d *Driver) FailNext(method string, st ocl.Status) {
	d.mu.Lock()
	d.failNext[method] = st
	d.mu.Unlock()
}

// Block gates command execution: queue workers stall before running each
// command until Unblock is called. Commands are still accepted and their
// events stay pending.
func (d *Driver) Block() {
	d.mu.Lock()
	if d.hold == nil {
		d.hold = make(chan struct{})
	}
	d.mu.Unlock()
}

// Unblock releases workers stalled by Block.
func (d *Driver) Unblock() {
	d.mu.Lock()
	if d.hold != nil {
		close(d.hold)
		d.hold = nil
	}
	d.mu.Unlock()
}

// WaitCalls returns how many times WaitForEvents has been invoked. Used by
// tests to verify the single-waiter-per-event property.
func (d *Driver) WaitCalls() int {
	return int(d.waitCalls.Load())
}

func (d *Driver) takeFailure(method string) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.failNext[method]
	if !ok {
		return ocl.Success
	}
	delete(d.failNext, method)
	return st
}

func (d *Driver) newHandleLocked() uintptr {
	h := d.next
	d.next++
	return h
}

func (d *Driver) currentHold() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hold
}

// Contexts and devices.

func (d *Driver) CreateContext(devType ocl.DeviceType) (ocl.ContextHandle, []ocl.DeviceHandle, ocl.Status) {
	if st := d.takeFailure("CreateContext"); st != ocl.Success {
		return 0, nil, st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := ocl.ContextHandle(d.newHandleLocked())
	d.contexts[ctx] = true
	n := d.NumDevices
	if n <= 0 {
		n = 1
	}
	devs := make([]ocl.DeviceHandle, n)
	for i := range devs {
		devs[i] = ocl.DeviceHandle(d.newHandleLocked())
	}
	return ctx, devs, ocl.Success
}

func (d *Driver) ReleaseContext(ctx ocl.ContextHandle) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.contexts[ctx] {
		return ocl.InvalidContext
	}
	delete(d.contexts, ctx)
	return ocl.Success
}

func (d *Driver) DeviceMaxWorkGroupSize(ocl.DeviceHandle) (int, ocl.Status) {
	if st := d.takeFailure("DeviceMaxWorkGroupSize"); st != ocl.Success {
		return 0, st
	}
	return 1024, ocl.Success
}

func (d *Driver) DeviceMaxComputeUnits(ocl.DeviceHandle) (int, ocl.Status) {
	return 4, ocl.Success
}

func (d *Driver) DeviceExtensions(ocl.DeviceHandle) (string, ocl.Status) {
	return d.Extensions, ocl.Success
}

// Command queues.

func (d *Driver) CreateQueue(ctx ocl.ContextHandle, dev ocl.DeviceHandle, flags ocl.QueueFlags) (ocl.QueueHandle, ocl.Status) {
	if st := d.takeFailure("CreateQueue"); st != ocl.Success {
		return 0, st
	}
	d.mu.Lock()
	if !d.contexts[ctx] {
		d.mu.Unlock()
		return 0, ocl.InvalidContext
	}
	q := &queueState{commands: make(chan *command, 64), done: make(chan struct{})}
	handle := ocl.QueueHandle(d.newHandleLocked())
	d.queues[handle] = q
	d.mu.Unlock()
	go d.runQueue(q)
	return handle, ocl.Success
}

// runQueue executes queued commands in submission order, honoring wait
// lists and the Block/Unblock gate.
func (d *Driver) runQueue(q *queueState) {
	defer close(q.done)
	for cmd := range q.commands {
		for _, w := range cmd.waitList {
			<-w
		}
		if hold := d.currentHold(); hold != nil {
			<-hold
		}
		if cmd.run != nil {
			cmd.run()
		}
		if cmd.ev != nil {
			close(cmd.ev.done)
		}
	}
}

func (d *Driver) ReleaseQueue(q ocl.QueueHandle) ocl.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	delete(d.queues, q)
	d.mu.Unlock()
	if !ok {
		return ocl.InvalidCommandQueue
	}
	close(qs.commands)
	<-qs.done
	return ocl.Success
}

func (d *Driver) Flush(q ocl.QueueHandle) ocl.Status {
	d.mu.Lock()
	_, ok := d.queues[q]
	d.mu.Unlock()
	if !ok {
		return ocl.InvalidCommandQueue
	}
	return ocl.Success
}

func (d *Driver) Finish(q ocl.QueueHandle) ocl.Status {
	d.mu.Lock()
	qs, ok := d.queues[q]
	d.mu.Unlock()
	if !ok {
		return ocl.InvalidCommandQueue
	}
	marker := &eventState{done: make(chan struct{})}
	qs.commands <- &command{ev: marker}
	<-marker.done
	return ocl.Success
}

// Memory objects.

func (d *Driver) CreateBuffer(ctx ocl.ContextHandle, flags ocl.MemFlags, size int, hostData []byte) (ocl.MemHandle, ocl.Status) {
	if st := d.takeFailure("CreateBuffer"); st != ocl.Success {
		return 0, st
	}
	if size <= 0 {
		return 0, ocl.InvalidBufferSize
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.contexts[ctx] {
		return 0, ocl.InvalidContext
	}
	m := &memState{data: make([]byte, size)}
	if flags&(ocl.MemCopyHostPtr|ocl.MemUseHostPtr) != 0 {
		if hostData == nil {
			return 0, ocl.InvalidHostPtr
		}
		copy(m.data, hostData)
	}
	handle := ocl.MemHandle(d.newHandleLocked())
	d.mems[handle] = m
	return handle, ocl.Success
}

func (d *Driver) CreateFromGLTexture(ctx ocl.ContextHandle, flags ocl.MemFlags, target, texture uint32) (ocl.MemHandle, ocl.Status) {
	if st := d.takeFailure("CreateFromGLTexture"); st != ocl.Success {
		return 0, st
	}
	if texture == 0 {
		return 0, ocl.InvalidGLObject
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.contexts[ctx] {
		return 0, ocl.InvalidContext
	}
	handle := ocl.MemHandle(d.newHandleLocked())
	d.mems[handle] = &memState{}
	return handle, ocl.Success
}

func (d *Driver) ReleaseMem(mem ocl.MemHandle) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mems[mem]; !ok {
		return ocl.InvalidMemObject
	}
	delete(d.mems, mem)
	return ocl.Success
}

// Programs and kernels.

func (d *Driver) CreateProgramWithSource(ctx ocl.ContextHandle, sources []string) (ocl.ProgramHandle, ocl.Status) {
	if st := d.takeFailure("CreateProgramWithSource"); st != ocl.Success {
		return 0, st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.contexts[ctx] {
		return 0, ocl.InvalidContext
	}
	handle := ocl.ProgramHandle(d.newHandleLocked())
	d.programs[handle] = &programState{sources: sources, buildStatus: ocl.BuildNone}
	return handle, ocl.Success
}

func (d *Driver) BuildProgram(p ocl.ProgramHandle, options string) ocl.Status {
	if st := d.takeFailure("BuildProgram"); st != ocl.Success {
		return st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ps, ok := d.programs[p]
	if !ok {
		return ocl.InvalidProgram
	}
	// A source containing the marker fails to "compile", for tests that
	// need a build failure without fault injection.
	for _, src := range ps.sources {
		if strings.Contains(src, "@broken") {
			ps.buildStatus = ocl.BuildError
			ps.buildLog = "error: unexpected token '@broken'"
			return ocl.BuildProgramFailure
		}
	}
	ps.built = true
	ps.buildStatus = ocl.BuildSuccess
	ps.buildLog = ""
	return ocl.Success
}

func (d *Driver) ProgramBuildStatus(p ocl.ProgramHandle, dev ocl.DeviceHandle) (ocl.BuildStatus, ocl.Status) {
	if st := d.takeFailure("ProgramBuildStatus"); st != ocl.Success {
		return ocl.BuildNone, st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ps, ok := d.programs[p]
	if !ok {
		return ocl.BuildNone, ocl.InvalidProgram
	}
	return ps.buildStatus, ocl.Success
}

func (d *Driver) ProgramBuildLog(p ocl.ProgramHandle, dev ocl.DeviceHandle) (string, ocl.Status) {
	if st := d.takeFailure("ProgramBuildLog"); st != ocl.Success {
		return "", st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ps, ok := d.programs[p]
	if !ok {
		return "", ocl.InvalidProgram
	}
	return ps.buildLog, ocl.Success
}

func (d *Driver) ReleaseProgram(p ocl.ProgramHandle) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.programs[p]; !ok {
		return ocl.InvalidProgram
	}
	delete(d.programs, p)
	return ocl.Success
}

func (d *Driver) CreateKernel(p ocl.ProgramHandle, name string) (ocl.KernelHandle, ocl.Status) {
	if st := d.takeFailure("CreateKernel"); st != ocl.Success {
		return 0, st
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ps, ok := d.programs[p]
	if !ok {
		return 0, ocl.InvalidProgram
	}
	if !ps.built {
		return 0, ocl.InvalidProgramExecutable
	}
	fn, ok := d.kernelFuncs[name]
	if !ok {
		return 0, ocl.InvalidKernelName
	}
	handle := ocl.KernelHandle(d.newHandleLocked())
	d.kernels[handle] = &kernelState{fn: fn, args: map[int]KernelArg{}}
	return handle, ocl.Success
}

func (d *Driver) setKernelArg(k ocl.KernelHandle, index int, arg KernelArg) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	ks, ok := d.kernels[k]
	if !ok {
		return ocl.InvalidKernel
	}
	if index < 0 {
		return ocl.InvalidArgIndex
	}
	ks.args[index] = arg
	return ocl.Success
}

func (d *Driver) SetKernelArgBuffer(k ocl.KernelHandle, index int, mem ocl.MemHandle) ocl.Status {
	d.mu.Lock()
	ms, ok := d.mems[mem]
	d.mu.Unlock()
	if !ok {
		return ocl.InvalidMemObject
	}
	return d.setKernelArg(k, index, KernelArg{Buffer: ms.data})
}

func (d *Driver) SetKernelArgInt32(k ocl.KernelHandle, index int, values []int32) ocl.Status {
	return d.setKernelArg(k, index, KernelArg{Int32s: append([]int32(nil), values...)})
}

func (d *Driver) SetKernelArgFloat32(k ocl.KernelHandle, index int, values []float32) ocl.Status {
	return d.setKernelArg(k, index, KernelArg{Float32s: append([]float32(nil), values...)})
}

func (d *Driver) ReleaseKernel(k ocl.KernelHandle) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.kernels[k]; !ok {
		return ocl.InvalidKernel
	}
	delete(d.kernels, k)
	return ocl.Success
}

// Command submission.

// enqueue submits run on queue q after the waitList events, creating a
// completion event unless the caller asked for a blocking call.
func (d *Driver) enqueue(q ocl.QueueHandle, blocking bool, waitList []ocl.EventHandle, run func()) (ocl.EventHandle, ocl.Status) {
	d.mu.Lock()
	qs, ok := d.queues[q]
	if !ok {
		d.mu.Unlock()
		return 0, ocl.InvalidCommandQueue
	}
	waits := make([]<-chan struct{}, 0, len(waitList))
	for _, wh := range waitList {
		ws, ok := d.events[wh]
		if !ok {
			d.mu.Unlock()
			return 0, ocl.InvalidEventWaitList
		}
		waits = append(waits, ws.done)
	}
	ev := &eventState{done: make(chan struct{})}
	var handle ocl.EventHandle
	if !blocking {
		handle = ocl.EventHandle(d.newHandleLocked())
		d.events[handle] = ev
	}
	d.mu.Unlock()

	qs.commands <- &command{waitList: waits, run: run, ev: ev}
	if blocking {
		<-ev.done
	}
	return handle, ocl.Success
}

func (d *Driver) bufferRange(mem ocl.MemHandle, offset, size int) ([]byte, ocl.Status) {
	d.mu.Lock()
	ms, ok := d.mems[mem]
	d.mu.Unlock()
	if !ok {
		return nil, ocl.InvalidMemObject
	}
	if offset < 0 || size < 0 || offset+size > len(ms.data) {
		return nil, ocl.InvalidValue
	}
	return ms.data[offset : offset+size], ocl.Success
}

func (d *Driver) EnqueueReadBuffer(q ocl.QueueHandle, mem ocl.MemHandle, blocking bool, offset, size int, dst []byte, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if st := d.takeFailure("EnqueueReadBuffer"); st != ocl.Success {
		return 0, st
	}
	src, st := d.bufferRange(mem, offset, size)
	if st != ocl.Success {
		return 0, st
	}
	if len(dst) < size {
		return 0, ocl.InvalidValue
	}
	return d.enqueue(q, blocking, waitList, func() {
		copy(dst[:size], src)
	})
}

func (d *Driver) EnqueueWriteBuffer(q ocl.QueueHandle, mem ocl.MemHandle, blocking bool, offset, size int, src []byte, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if st := d.takeFailure("EnqueueWriteBuffer"); st != ocl.Success {
		return 0, st
	}
	dst, st := d.bufferRange(mem, offset, size)
	if st != ocl.Success {
		return 0, st
	}
	if len(src) < size {
		return 0, ocl.InvalidValue
	}
	return d.enqueue(q, blocking, waitList, func() {
		copy(dst, src[:size])
	})
}

func (d *Driver) EnqueueKernel(q ocl.QueueHandle, k ocl.KernelHandle, globalSize, localSize []int, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if st := d.takeFailure("EnqueueKernel"); st != ocl.Success {
		return 0, st
	}
	if len(globalSize) == 0 {
		return 0, ocl.InvalidWorkDimension
	}
	d.mu.Lock()
	ks, ok := d.kernels[k]
	if !ok {
		d.mu.Unlock()
		return 0, ocl.InvalidKernel
	}
	// Arguments are captured at enqueue time, like the native driver.
	args := make([]KernelArg, 0, len(ks.args))
	for i := 0; ; i++ {
		arg, ok := ks.args[i]
		if !ok {
			break
		}
		args = append(args, arg)
	}
	// A gap in the indices means some argument was never set.
	if len(args) != len(ks.args) {
		d.mu.Unlock()
		return 0, ocl.InvalidKernelArgs
	}
	fn := ks.fn
	d.mu.Unlock()

	global := append([]int(nil), globalSize...)
	local := append([]int(nil), localSize...)
	return d.enqueue(q, false, waitList, func() {
		fn(args, global, local)
	})
}

func (d *Driver) EnqueueAcquireGLObjects(q ocl.QueueHandle, mems []ocl.MemHandle, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if st := d.takeFailure("EnqueueAcquireGLObjects"); st != ocl.Success {
		return 0, st
	}
	return d.enqueueGLTransition(q, mems, waitList)
}

func (d *Driver) EnqueueReleaseGLObjects(q ocl.QueueHandle, mems []ocl.MemHandle, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	if st := d.takeFailure("EnqueueReleaseGLObjects"); st != ocl.Success {
		return 0, st
	}
	return d.enqueueGLTransition(q, mems, waitList)
}

func (d *Driver) enqueueGLTransition(q ocl.QueueHandle, mems []ocl.MemHandle, waitList []ocl.EventHandle) (ocl.EventHandle, ocl.Status) {
	d.mu.Lock()
	for _, mem := range mems {
		if _, ok := d.mems[mem]; !ok {
			d.mu.Unlock()
			return 0, ocl.InvalidGLObject
		}
	}
	d.mu.Unlock()
	// Ownership transitions have no observable data effect in the fake.
	return d.enqueue(q, false, waitList, nil)
}

// Completion events.

func (d *Driver) WaitForEvents(events []ocl.EventHandle) ocl.Status {
	d.waitCalls.Add(1)
	if st := d.takeFailure("WaitForEvents"); st != ocl.Success {
		return st
	}
	for _, handle := range events {
		d.mu.Lock()
		ev, ok := d.events[handle]
		d.mu.Unlock()
		if !ok {
			return ocl.InvalidEvent
		}
		<-ev.done
	}
	return ocl.Success
}

func (d *Driver) ReleaseEvent(ev ocl.EventHandle) ocl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[ev]; !ok {
		return ocl.InvalidEvent
	}
	delete(d.events, ev)
	return ocl.Success
}

var _ ocl.Driver = (*Driver)(nil)
