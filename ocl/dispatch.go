package ocl

// Dispatcher is the execution context a continuation is delivered on. It
// plays the role of the caller's main context: Then captures one per
// registration and the completion machinery hands the callback to it
// instead of invoking it from whatever goroutine detected completion.
//
// Dispatch must not run fn inline on the caller's stack; it schedules fn
// to run later, on whatever execution unit the dispatcher represents.
type Dispatcher interface {
	Dispatch(fn func())
}

// GoDispatcher runs every dispatched function on its own goroutine. It is
// the right choice for callers that do not need their callbacks
// serialized; use a Loop to get single-threaded, in-order delivery.
type GoDispatcher struct{}

func (GoDispatcher) Dispatch(fn func()) {
	go fn()
}
