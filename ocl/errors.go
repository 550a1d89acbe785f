package ocl

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Error is a translated native status code. It is immutable once
// constructed: when the same failure has to reach several consumers (an
// event's terminal error and the process-wide last-error slot) each gets
// its own copy.
type Error struct {
	Code Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("opencl error (code=%d): %s", e.Code, e.Code.Description())
}

// statusErr translates a native status code to a Go error, with a stack
// trace (see github.com/pkg/errors). Returns nil for Success.
func statusErr(st Status) error {
	if st == Success {
		return nil
	}
	return errors.WithStack(&Error{Code: st})
}

// StatusOf unwraps err down to its *Error and returns the native status
// code, or Success if err is nil, or InvalidValue if err carries no status.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var clErr *Error
	if errors.As(err, &clErr) {
		return clErr.Code
	}
	return InvalidValue
}

// lastError is a process-wide diagnostic mirror of the most recent failure
// observed by an internal synchronous helper. It is secondary and
// non-authoritative: every call in the public API also reports its error
// explicitly. Retained for parity with the original implicit error channel.
var (
	lastErrorMu sync.Mutex
	lastError   *Error
)

// checkStatus is the internal helper for synchronous native calls: it
// clears the last-error slot, and on failure stores a copy there and
// returns the translated error.
func checkStatus(st Status) error {
	lastErrorMu.Lock()
	lastError = nil
	if st != Success {
		lastError = &Error{Code: st}
	}
	lastErrorMu.Unlock()
	return statusErr(st)
}

// LastError returns a copy of the error recorded by the most recent
// internal synchronous call, or nil if it succeeded.
func LastError() error {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if lastError == nil {
		return nil
	}
	errCopy := *lastError
	return &errCopy
}

// ClearLastError resets the process-wide last-error slot.
func ClearLastError() {
	lastErrorMu.Lock()
	lastError = nil
	lastErrorMu.Unlock()
}
