//go:build linux

package netpoll

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// EpollEvent represents epoll events configuration bit mask.
type EpollEvent uint32

// EpollEvents that are mapped to epoll_event.events possible values.
const (
	EPOLLIN      EpollEvent = unix.EPOLLIN
	EPOLLOUT     EpollEvent = unix.EPOLLOUT
	EPOLLRDHUP   EpollEvent = unix.EPOLLRDHUP
	EPOLLPRI     EpollEvent = unix.EPOLLPRI
	EPOLLERR     EpollEvent = unix.EPOLLERR
	EPOLLHUP     EpollEvent = unix.EPOLLHUP
	EPOLLET      EpollEvent = unix.EPOLLET
	EPOLLONESHOT EpollEvent = unix.EPOLLONESHOT
)

// String returns a string representation of EpollEvent.
func (evt EpollEvent) String() (str string) {
	name := func(event EpollEvent, name string) {
		if evt&event == 0 {
			return
		}
		if str != "" {
			str += "|"
		}
		str += name
	}

	name(EPOLLIN, "EPOLLIN")
	name(EPOLLOUT, "EPOLLOUT")
	name(EPOLLRDHUP, "EPOLLRDHUP")
	name(EPOLLPRI, "EPOLLPRI")
	name(EPOLLERR, "EPOLLERR")
	name(EPOLLHUP, "EPOLLHUP")
	name(EPOLLET, "EPOLLET")
	name(EPOLLONESHOT, "EPOLLONESHOT")

	return
}

// epoll is a backend on top of a single epoll instance. Edge and oneshot
// triggering are provided by the kernel.
type epoll struct {
	fd     int
	events []unix.EpollEvent
}

func newEpoll() (*epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epoll{
		fd:     fd,
		events: make([]unix.EpollEvent, maxWaitEventsBegin),
	}, nil
}

func (ep *epoll) subscribe(fd int, interest Ready, trigger Trigger) error {
	return ep.ctl(fd, unix.EPOLL_CTL_ADD, toEpollEvent(interest, trigger))
}

func (ep *epoll) modify(fd int, interest Ready, trigger Trigger) error {
	return ep.ctl(fd, unix.EPOLL_CTL_MOD, toEpollEvent(interest, trigger))
}

func (ep *epoll) unsubscribe(fd int) error {
	if err := unix.EpollCtl(ep.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

func (ep *epoll) ctl(fd int, op int, events EpollEvent) error {
	ev := &unix.EpollEvent{
		Events: uint32(events),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(ep.fd, op, fd, ev); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

// wait asks the kernel for no more than len(buf) events, everything else
// stays queued in the epoll instance.
func (ep *epoll) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > len(ep.events) {
		ep.events = make([]unix.EpollEvent, len(buf))
	}

	n, err := unix.EpollWait(ep.fd, ep.events[:len(buf)], msec(timeout))
	if err != nil {
		if temporaryErr(err) {
			return 0, nil
		}
		return 0, os.NewSyscallError("epoll_wait", err)
	}

	for i := 0; i < n; i++ {
		buf[i] = rawEvent{
			fd:    int(ep.events[i].Fd),
			ready: fromEpollEvent(EpollEvent(ep.events[i].Events)),
		}
	}
	return n, nil
}

func (ep *epoll) close() error {
	if err := unix.Close(ep.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

func toEpollEvent(interest Ready, trigger Trigger) (ep EpollEvent) {
	if interest&Readable != 0 {
		ep |= EPOLLIN | EPOLLRDHUP
	}
	if interest&Writable != 0 {
		ep |= EPOLLOUT
	}
	switch trigger {
	case Edge:
		ep |= EPOLLET
	case OneShot:
		ep |= EPOLLET | EPOLLONESHOT
	}
	return ep
}

func fromEpollEvent(ep EpollEvent) (ready Ready) {
	if ep&(EPOLLIN|EPOLLPRI) != 0 {
		ready |= Readable
	}
	if ep&EPOLLOUT != 0 {
		ready |= Writable
	}
	if ep&(EPOLLHUP|EPOLLRDHUP) != 0 {
		ready |= Hup
	}
	if ep&EPOLLERR != 0 {
		ready |= Error
	}
	return ready
}
