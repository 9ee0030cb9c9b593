//go:build unix

package netpoll

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// poller is a level-triggered backend on top of poll(2). It keeps the
// pollfd array between calls; registration changes are O(1).
//
// A descriptor subscribed with an empty interest is parked: poll(2) ignores
// negative descriptors, so no condition (not even POLLHUP) is reported for it.
type poller struct {
	index map[int]int
	fds   []int
	pfds  []unix.PollFd
}

func newPoller() *poller {
	return &poller{
		index: make(map[int]int),
	}
}

// newPollBackend returns poll(2) wrapped with edge emulation.
func newPollBackend() (backend, error) {
	return emulate(newPoller()), nil
}

func (p *poller) subscribe(fd int, interest Ready, _ Trigger) error {
	if _, has := p.index[fd]; has {
		return os.NewSyscallError("poll", unix.EEXIST)
	}
	p.index[fd] = len(p.fds)
	p.fds = append(p.fds, fd)
	p.pfds = append(p.pfds, toPollFd(fd, interest))
	return nil
}

func (p *poller) modify(fd int, interest Ready, _ Trigger) error {
	i, has := p.index[fd]
	if !has {
		return os.NewSyscallError("poll", unix.ENOENT)
	}
	p.pfds[i] = toPollFd(fd, interest)
	return nil
}

func (p *poller) unsubscribe(fd int) error {
	i, has := p.index[fd]
	if !has {
		return os.NewSyscallError("poll", unix.ENOENT)
	}
	last := len(p.fds) - 1
	if i != last {
		p.fds[i] = p.fds[last]
		p.pfds[i] = p.pfds[last]
		p.index[p.fds[i]] = i
	}
	p.fds = p.fds[:last]
	p.pfds = p.pfds[:last]
	delete(p.index, fd)
	return nil
}

func (p *poller) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	n, err := unix.Poll(p.pfds, msec(timeout))
	if err != nil {
		if temporaryErr(err) {
			return 0, nil
		}
		return 0, os.NewSyscallError("poll", err)
	}

	var k int
	for i := 0; i < len(p.pfds) && n > 0 && k < len(buf); i++ {
		revents := p.pfds[i].Revents
		if revents == 0 {
			continue
		}
		n--
		p.pfds[i].Revents = 0
		buf[k] = rawEvent{
			fd:    p.fds[i],
			ready: fromPollEvents(revents),
		}
		k++
	}
	return k, nil
}

func (p *poller) close() error {
	p.index = nil
	p.fds = nil
	p.pfds = nil
	return nil
}

func toPollFd(fd int, interest Ready) unix.PollFd {
	if interest == 0 {
		return unix.PollFd{Fd: -1}
	}
	var events int16
	if interest&Readable != 0 {
		events |= unix.POLLIN | unix.POLLPRI
	}
	if interest&Writable != 0 {
		events |= unix.POLLOUT
	}
	return unix.PollFd{
		Fd:     int32(fd),
		Events: events,
	}
}

func fromPollEvents(revents int16) (ready Ready) {
	if revents&(unix.POLLIN|unix.POLLPRI) != 0 {
		ready |= Readable
	}
	if revents&unix.POLLOUT != 0 {
		ready |= Writable
	}
	if revents&unix.POLLHUP != 0 {
		ready |= Hup
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		ready |= Error
	}
	return ready
}
