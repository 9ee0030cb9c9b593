//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// kqueue is a backend on top of a kqueue instance. Each interest flag is a
// separate filter: EVFILT_READ for Readable and EVFILT_WRITE for Writable.
// Edge triggering uses EV_CLEAR, oneshot uses EV_ONESHOT.
type kqueue struct {
	fd      int
	filters map[int]kfilters
	changes []unix.Kevent_t
	events  []unix.Kevent_t
	merge   map[int]int

	// submit applies a change list; replaced in tests.
	submit func(changes []unix.Kevent_t) error
}

// kfilters are the filters installed for a descriptor.
type kfilters struct {
	interest Ready
	trigger  Trigger
}

func newKqueue() (*kqueue, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(fd)
	k := &kqueue{
		fd:      fd,
		filters: make(map[int]kfilters),
		events:  make([]unix.Kevent_t, maxWaitEventsBegin),
		merge:   make(map[int]int),
	}
	k.submit = k.control
	return k, nil
}

func (k *kqueue) subscribe(fd int, interest Ready, trigger Trigger) error {
	if _, has := k.filters[fd]; has {
		return os.NewSyscallError("kevent", unix.EEXIST)
	}
	if err := k.add(fd, interest, trigger); err != nil {
		return err
	}
	k.filters[fd] = kfilters{interest & (Readable | Writable), trigger}
	return nil
}

// modify installs the new filters before deleting the dropped ones. On
// failure the previous filters are restored, so the descriptor keeps its old
// subscription.
func (k *kqueue) modify(fd int, interest Ready, trigger Trigger) error {
	old, has := k.filters[fd]
	if !has {
		return os.NewSyscallError("kevent", unix.ENOENT)
	}
	interest &= Readable | Writable

	err := k.add(fd, interest, trigger)
	if err == nil {
		err = k.del(fd, old.interest&^interest)
	}
	if err != nil {
		_ = k.del(fd, interest&^old.interest)
		_ = k.add(fd, old.interest, old.trigger)
		return err
	}
	k.filters[fd] = kfilters{interest, trigger}
	return nil
}

func (k *kqueue) unsubscribe(fd int) error {
	old, has := k.filters[fd]
	if !has {
		return os.NewSyscallError("kevent", unix.ENOENT)
	}
	if err := k.del(fd, old.interest); err != nil {
		return err
	}
	delete(k.filters, fd)
	return nil
}

// add adds or re-adds filters of interest. Re-adding an existing filter
// modifies it and clears a pending oneshot state.
func (k *kqueue) add(fd int, interest Ready, trigger Trigger) error {
	flags := unix.EV_ADD | unix.EV_ENABLE
	switch trigger {
	case Edge:
		flags |= unix.EV_CLEAR
	case OneShot:
		flags |= unix.EV_CLEAR | unix.EV_ONESHOT
	}
	return k.apply(fd, interest, flags)
}

// del removes filters of interest. Filters dropped by the kernel already,
// e.g. after a oneshot delivery, are not an error.
func (k *kqueue) del(fd int, interest Ready) error {
	err := k.apply(fd, interest, unix.EV_DELETE)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}

func (k *kqueue) apply(fd int, interest Ready, flags int) error {
	k.changes = k.changes[:0]
	if interest&Readable != 0 {
		k.changes = append(k.changes, kevent(fd, unix.EVFILT_READ, flags))
	}
	if interest&Writable != 0 {
		k.changes = append(k.changes, kevent(fd, unix.EVFILT_WRITE, flags))
	}
	if len(k.changes) == 0 {
		return nil
	}
	return k.submit(k.changes)
}

func (k *kqueue) control(changes []unix.Kevent_t) error {
	for {
		_, err := unix.Kevent(k.fd, changes, nil, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("kevent", err)
		}
		return nil
	}
}

func kevent(fd int, filter int, flags int) (ev unix.Kevent_t) {
	unix.SetKevent(&ev, fd, filter, flags)
	return ev
}

// wait merges reports of both filters of a descriptor in one raw event, so
// no more than len(buf) events are produced.
func (k *kqueue) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > len(k.events) {
		k.events = make([]unix.Kevent_t, len(buf))
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	n, err := unix.Kevent(k.fd, nil, k.events[:len(buf)], ts)
	if err != nil {
		if temporaryErr(err) {
			return 0, nil
		}
		return 0, os.NewSyscallError("kevent", err)
	}

	clear(k.merge)
	var m int
	for i := 0; i < n; i++ {
		ev := &k.events[i]
		fd := int(ev.Ident)
		ready := fromKevent(ev)
		if j, ok := k.merge[fd]; ok {
			buf[j].ready |= ready
			continue
		}
		k.merge[fd] = m
		buf[m] = rawEvent{fd: fd, ready: ready}
		m++
	}
	return m, nil
}

func (k *kqueue) close() error {
	if err := unix.Close(k.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

func fromKevent(ev *unix.Kevent_t) (ready Ready) {
	switch int(ev.Filter) {
	case unix.EVFILT_READ:
		ready |= Readable
	case unix.EVFILT_WRITE:
		ready |= Writable
	}
	if int(ev.Flags)&unix.EV_EOF != 0 {
		ready |= Hup
	}
	if int(ev.Flags)&unix.EV_ERROR != 0 {
		ready |= Error
	}
	return ready
}
