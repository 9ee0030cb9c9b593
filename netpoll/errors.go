package netpoll

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFiler is returned by Handle when the value exposes no descriptor.
	ErrNotFiler = errors.New("could not get file descriptor")
	// ErrBadDescriptor is returned for negative or out of range descriptors.
	ErrBadDescriptor = errors.New("file descriptor is out of range")
	// ErrClosed is returned by every method of a closed Poll.
	ErrClosed = errors.New("poller instance is closed")
	// ErrInvalidInterest is returned when interest has neither Readable nor
	// Writable set, or the trigger is unknown.
	ErrInvalidInterest = errors.New("interest must include readable or writable")
	// ErrAlreadyRegistered is returned by Register for a live registration.
	ErrAlreadyRegistered = errors.New("file descriptor is already registered in netpoll")
	// ErrNotRegistered is returned by Reregister and Deregister for unknown
	// descriptors.
	ErrNotRegistered = errors.New("file descriptor is not registered in netpoll")
	// ErrUnsupported is returned when the platform or the requested Backend
	// has no implementation.
	ErrUnsupported = errors.New("poller is not supported on this operating system")
)

// BackendError describes a failed call to the operating system readiness
// primitive. Err is usually an *os.SyscallError, so errors.Is matches the
// underlying errno.
type BackendError struct {
	// Op is the facade operation that failed, e.g. "register" or "wait".
	Op string
	// Fd is the descriptor involved, or -1 if the operation had none.
	Fd int
	// Fatal is set when the backend could not be initialized. A Poll is not
	// usable after a fatal error.
	Fatal bool
	Err   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("netpoll: fatal backend error: %v", e.Err)
	}
	if e.Fd < 0 {
		return fmt.Sprintf("netpoll: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("netpoll: %s fd %d: %v", e.Op, e.Fd, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is a fatal BackendError.
func IsFatal(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Fatal
}
