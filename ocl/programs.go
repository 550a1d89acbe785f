package ocl

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Program is a compute program built from source. Building can be done
// synchronously with BuildSync, or on a background goroutine with Build,
// which delivers its result through a Dispatcher like event continuations
// do.
type Program struct {
	ctx *Context

	mu     sync.Mutex
	handle ProgramHandle
}

// NewProgram creates a program in ctx from one or more source strings.
// The program still has to be built before kernels can be obtained.
func NewProgram(ctx *Context, sources ...string) (*Program, error) {
	if len(sources) == 0 {
		return nil, errors.New("ocl: NewProgram requires at least one source string")
	}
	handle, st := ctx.drv.CreateProgramWithSource(ctx.Handle(), sources)
	if st != Success {
		return nil, statusErr(st)
	}
	p := &Program{ctx: ctx, handle: handle}
	runtime.SetFinalizer(p, func(p *Program) {
		if err := p.Destroy(); err != nil {
			klog.Errorf("Program.Destroy failed: %+v", err)
		}
	})
	return p, nil
}

// NewProgramFromFile creates a program from the source file at path.
func NewProgramFromFile(ctx *Context, path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ocl: reading program source from %q", path)
	}
	return NewProgram(ctx, string(source))
}

// Context returns the context the program was created in.
func (p *Program) Context() *Context { return p.ctx }

// Handle returns the native program handle, or zero after destruction.
func (p *Program) Handle() ProgramHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// BuildSync compiles the program for all devices of its context, blocking
// until the build finished. options is a driver build-options string and
// may be empty.
func (p *Program) BuildSync(options string) error {
	return statusErr(p.ctx.drv.BuildProgram(p.Handle(), options))
}

// Build compiles the program on a background goroutine and delivers the
// result by calling cb(err) on d, never on the build goroutine. nil d
// selects GoDispatcher.
func (p *Program) Build(options string, d Dispatcher, cb Callback) {
	if cb == nil {
		panic("ocl: Build requires a callback")
	}
	if d == nil {
		d = GoDispatcher{}
	}
	go func() {
		err := p.BuildSync(options)
		d.Dispatch(func() {
			cb(err)
		})
	}()
}

// BuildStatus returns the state of the program's build for dev:
// BuildNone before any build was attempted, BuildSuccess or BuildError
// after.
func (p *Program) BuildStatus(dev *Device) (BuildStatus, error) {
	status, st := p.ctx.drv.ProgramBuildStatus(p.Handle(), dev.Handle())
	if err := checkStatus(st); err != nil {
		return BuildNone, err
	}
	return status, nil
}

// BuildLog returns the compiler output of the program's build for dev.
// After a failed build it carries the diagnostics; empty otherwise.
func (p *Program) BuildLog(dev *Device) (string, error) {
	log, st := p.ctx.drv.ProgramBuildLog(p.Handle(), dev.Handle())
	if err := checkStatus(st); err != nil {
		return "", err
	}
	return log, nil
}

// Kernel returns the named kernel entry point of the built program.
func (p *Program) Kernel(name string) (*Kernel, error) {
	handle, st := p.ctx.drv.CreateKernel(p.Handle(), name)
	if st != Success {
		return nil, statusErr(st)
	}
	k := &Kernel{prog: p, name: name, handle: handle}
	runtime.SetFinalizer(k, func(k *Kernel) {
		if err := k.Destroy(); err != nil {
			klog.Errorf("Kernel.Destroy failed: %+v", err)
		}
	})
	return k, nil
}

// Destroy releases the native program handle. Idempotent and nil-safe;
// automatically invoked when the program is garbage collected.
func (p *Program) Destroy() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	handle := p.handle
	p.handle = 0
	p.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(p.ctx.drv.ReleaseProgram(handle))
}
