package ocl

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// Callback is invoked exactly once when the event it was registered on
// resolves. err is the event's terminal error: nil if the operation was
// submitted and completed, or the translated submission error otherwise.
type Callback func(err error)

// ResolverFunc is the single-use capability to mark an event resolved,
// optionally with an error. It is extracted with Event.StealResolver by
// the dispatch operation that created the event; calling it on an event
// that already resolved panics.
type ResolverFunc func(err error)

// closure is one registered continuation: the callback plus the Dispatcher
// captured at registration time. It references the owning event so the
// event (and its native handle) stays reachable until the callback runs.
type closure struct {
	cb Callback
	d  Dispatcher
	ev *Event
}

// deliver schedules the callback on the closure's captured dispatcher,
// never inline on the current stack.
func (c *closure) deliver(err error) {
	c.d.Dispatch(func() {
		c.cb(err)
		runtime.KeepAlive(c.ev)
	})
}

// Event represents the eventual outcome of one enqueued device operation.
//
// An Event is created by a dispatch operation (Buffer.Read, Kernel.Run,
// Image.AcquireGL, ...): if the native submission succeeded it wraps the
// native completion handle and is pending; if the submission itself failed
// it is returned already resolved with the error attached, so callers
// never special-case whether the operation even started.
//
// Continuations are registered with Then and fire exactly once, in
// registration order, each on the Dispatcher captured when it was
// registered -- never on the goroutine that detected completion.
type Event struct {
	mu     sync.Mutex
	handle EventHandle
	queue  *Queue

	err      error
	resolved bool
	waiting  bool

	resolver ResolverFunc
	closures []*closure
}

// NewEvent creates an event for an operation submitted on queue. handle is
// the native completion handle, or zero when the submission itself failed
// and the creator will resolve the event with the error immediately. The
// event owns the resolver until StealResolver extracts it.
//
// Exported for implementers of additional dispatch operations; application
// code receives events from the operations themselves.
func NewEvent(queue *Queue, handle EventHandle) *Event {
	e := &Event{queue: queue, handle: handle}
	e.resolver = e.resolve
	runtime.SetFinalizer(e, func(e *Event) {
		if err := e.Destroy(); err != nil {
			klog.Errorf("Event.Destroy failed: %+v", err)
		}
	})
	return e
}

// failedEvent builds the already-resolved event a dispatch operation
// returns when the native enqueue call failed synchronously.
func failedEvent(queue *Queue, st Status) *Event {
	return failedEventErr(queue, statusErr(st))
}

func failedEventErr(queue *Queue, err error) *Event {
	e := NewEvent(queue, 0)
	resolve := e.StealResolver()
	resolve(err)
	return e
}

// Destroy releases the native completion handle, if any. Idempotent and
// nil-safe; automatically invoked when the event is garbage collected.
func (e *Event) Destroy() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	handle := e.handle
	e.handle = 0
	e.mu.Unlock()
	if handle == 0 {
		return nil
	}
	return statusErr(e.queue.driver().ReleaseEvent(handle))
}

// Queue returns the queue the operation was submitted on.
func (e *Event) Queue() *Queue {
	return e.queue
}

// Handle returns the native completion handle, or zero if the event has
// none (failed submission, or already destroyed).
func (e *Event) Handle() EventHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// StealResolver extracts the event's resolver capability. The first call
// returns it and clears it; any later call returns nil. Whoever extracts
// the resolver owns the exclusive right to resolve the event, which keeps
// double resolution impossible by construction.
func (e *Event) StealResolver() ResolverFunc {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.resolver
	e.resolver = nil
	return r
}

// resolve is the resolver bound to the event at creation. It may run at
// most once per event; a second resolution is a bug in the dispatch
// operation, not a recoverable condition.
func (e *Event) resolve(err error) {
	e.mu.Lock()
	if e.resolved {
		e.mu.Unlock()
		panic("ocl: event resolved twice")
	}
	e.resolved = true
	e.err = err
	closures := e.closures
	e.closures = nil
	e.mu.Unlock()
	for _, c := range closures {
		c.deliver(err)
	}
}

// Then registers cb to run once the event resolves. d is the dispatcher
// the callback will be delivered on; nil selects GoDispatcher. Delivery is
// always asynchronous, even when the event already resolved, so callers
// are never reentered from their own Then call.
//
// The first registration on a pending event starts the single background
// waiter for its native handle; later registrations share it. Callbacks
// fire in registration order.
func (e *Event) Then(d Dispatcher, cb Callback) {
	if cb == nil {
		panic("ocl: Then requires a callback")
	}
	if d == nil {
		d = GoDispatcher{}
	}
	c := &closure{cb: cb, d: d, ev: e}

	e.mu.Lock()
	if e.resolved {
		err := e.err
		e.mu.Unlock()
		c.deliver(err)
		return
	}
	e.closures = append(e.closures, c)
	if !e.waiting {
		if e.handle == 0 {
			e.mu.Unlock()
			panic("ocl: Then on a pending event without a native handle")
		}
		e.waiting = true
		go e.waitAndNotify(e.handle)
	}
	e.mu.Unlock()
}

// waitAndNotify is the event's waiter: it blocks until the native handle
// signals, marks the event resolved and hands every queued continuation to
// its captured dispatcher, preserving registration order. Exactly one
// waiter runs per event.
//
// The native wait primitive does not report operation failures at this
// layer (those surface synchronously at submission time), so completion
// resolves the event without error. A failure of the wait call itself is
// logged and otherwise ignored.
func (e *Event) waitAndNotify(handle EventHandle) {
	if st := e.queue.driver().WaitForEvents([]EventHandle{handle}); st != Success {
		klog.Errorf("ocl: waiting for event completion failed: %v", statusErr(st))
	}

	e.mu.Lock()
	e.resolved = true
	e.waiting = false
	err := e.err
	closures := e.closures
	e.closures = nil
	e.mu.Unlock()
	for _, c := range closures {
		c.deliver(err)
	}
}

// awaitAndRelease blocks on a transient native completion handle from a
// synchronous dispatch operation and releases it. A failure to release is
// logged, not returned, so the wait outcome is what the caller sees.
func awaitAndRelease(q *Queue, handle EventHandle) error {
	drv := q.driver()
	st := drv.WaitForEvents([]EventHandle{handle})
	if relSt := drv.ReleaseEvent(handle); relSt != Success {
		klog.Errorf("ocl: releasing transient completion event failed: %v", statusErr(relSt))
	}
	return statusErr(st)
}

// waitListHandles flattens upstream events into the native wait list for
// an enqueue call, preserving order. Events without a native handle (those
// that carried a failed submission) contribute nothing; all others are
// included whether or not they already completed.
func waitListHandles(events []*Event) []EventHandle {
	if len(events) == 0 {
		return nil
	}
	handles := make([]EventHandle, 0, len(events))
	for _, ev := range events {
		if h := ev.Handle(); h != 0 {
			handles = append(handles, h)
		}
	}
	return handles
}
