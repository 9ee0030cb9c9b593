package netpoll

import (
	"errors"
	"syscall"
	"time"
)

// Backend selects the readiness primitive used by a Poll.
type Backend uint8

const (
	// BackendDefault is the native primitive of the platform: epoll on
	// Linux, kqueue on Darwin and the BSDs, emulated poll(2) elsewhere.
	BackendDefault Backend = iota
	// BackendPoll is poll(2) with edge-triggering emulated in user space.
	// It is available on every unix.
	//
	// An emulated Edge registration reports a condition again only after
	// some Wait has seen it cleared.
	BackendPoll
)

// String returns a string representation of Backend.
func (b Backend) String() string {
	switch b {
	case BackendDefault:
		return "default"
	case BackendPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// maxWaitEventsBegin is the initial size of kernel event buffers.
const maxWaitEventsBegin = 1024

// rawEvent is the readiness of one descriptor as reported by a backend.
type rawEvent struct {
	fd    int
	ready Ready
}

// backend is the capability set every readiness primitive provides.
//
// Implementations handed to Poll honour all trigger modes. Primitives that
// are level-triggered only are wrapped with emulate.
//
// wait fills at most len(buf) events. Readiness that did not fit must be
// reported by a following wait. An interrupted wait reports zero events and
// no error.
type backend interface {
	subscribe(fd int, interest Ready, trigger Trigger) error
	modify(fd int, interest Ready, trigger Trigger) error
	unsubscribe(fd int) error
	wait(buf []rawEvent, timeout time.Duration) (int, error)
	close() error
}

func newBackend(kind Backend) (backend, error) {
	switch kind {
	case BackendDefault:
		return newNativeBackend()
	case BackendPoll:
		return newPollBackend()
	default:
		return nil, ErrUnsupported
	}
}

// msec converts timeout to milliseconds as expected by epoll_wait and
// poll. Positive timeouts are rounded up so that a short wait never turns
// into a busy loop.
func msec(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > (1<<31 - 1) {
		return 1<<31 - 1
	}
	return int(ms)
}

// remaining returns the time left until deadline, where a zero deadline means
// forever.
func remaining(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

func temporaryErr(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}
