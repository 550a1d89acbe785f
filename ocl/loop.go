package ocl

import (
	"sync"

	"github.com/eapache/queue"
)

// Loop is a single-threaded dispatcher: functions handed to Dispatch run
// one at a time, in FIFO order, on the goroutine that called Run. It is
// the Go analogue of the main loop the original callers parked their
// completion callbacks on, and what gives continuations their
// registration-order delivery guarantee.
type Loop struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks *queue.Queue
	quit  bool
}

func NewLoop() *Loop {
	l := &Loop{tasks: queue.New()}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Dispatch enqueues fn to run on the loop's goroutine. Safe to call from
// any goroutine, including from within a task running on the loop itself.
// Functions dispatched after Quit are silently dropped.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if !l.quit {
		l.tasks.Add(fn)
	}
	l.mu.Unlock()
	l.cond.Signal()
}

// Run executes dispatched functions until Quit is called. It blocks the
// calling goroutine; tasks still queued when Quit arrives are dropped.
func (l *Loop) Run() {
	for {
		l.mu.Lock()
		for l.tasks.Length() == 0 && !l.quit {
			l.cond.Wait()
		}
		if l.quit {
			l.mu.Unlock()
			return
		}
		fn := l.tasks.Remove().(func())
		l.mu.Unlock()
		fn()
	}
}

// Quit makes Run return. Callable from a task running on the loop or from
// any other goroutine.
func (l *Loop) Quit() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	l.cond.Broadcast()
}
