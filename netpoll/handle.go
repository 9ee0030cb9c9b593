package netpoll

import (
	"syscall"
)

// Resource describes an I/O object that is able to expose its raw file
// descriptor. *os.File implements it.
//
// netpoll never takes ownership of a Resource: closing it is the caller's
// responsibility, and it must be deregistered before it is closed.
type Resource interface {
	Fd() uintptr
}

// FD is a raw file descriptor used as a Resource.
type FD int

// Fd implements Resource.
func (fd FD) Fd() uintptr { return uintptr(fd) }

// Must is a helper that wraps a call to a function returning (FD, error).
// It panics if the error is non-nil and returns fd if not.
// It is intended for use in short Handle initializations.
func Must(fd FD, err error) FD {
	if err != nil {
		panic(err)
	}
	return fd
}

// Handle returns the descriptor of v for further use in Poll methods.
//
// v may be a Resource or a syscall.Conn, such as *net.TCPListener,
// *net.TCPConn or *net.UnixConn. Unlike File() on those types, the descriptor
// is neither duplicated nor switched to blocking mode, so the source keeps
// working and keeps owning it.
func Handle(v any) (FD, error) {
	switch x := v.(type) {
	case Resource:
		return toFD(x)

	case syscall.Conn:
		raw, err := x.SyscallConn()
		if err != nil {
			return -1, err
		}
		var fd uintptr
		if err = raw.Control(func(s uintptr) { fd = s }); err != nil {
			return -1, err
		}
		return toFD(FD(fd))

	default:
		return -1, ErrNotFiler
	}
}

// toFD converts the descriptor of r to a registry key.
func toFD(r Resource) (FD, error) {
	fd := int(r.Fd())
	if fd < 0 || int(int32(fd)) != fd {
		return -1, ErrBadDescriptor
	}
	return FD(fd), nil
}
