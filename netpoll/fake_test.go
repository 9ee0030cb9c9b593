package netpoll

import (
	"maps"
	"os"
	"syscall"
	"time"
)

// fakeLevel is an in-memory level-triggered backend. Readiness of each
// descriptor is set by the test; wait reports it like poll(2) does: parked
// descriptors (empty mask) report nothing, others report the requested
// conditions plus Hup and Error.
type fakeLevel struct {
	order []int
	armed map[int]Ready
	ready map[int]Ready

	waits    int
	timeouts []time.Duration
	// lastBlock is the armed state seen by the last wait with a timeout.
	lastBlock map[int]Ready

	subscribeErr   error
	modifyErr      error
	unsubscribeErr error
	waitErr        error
	closed         bool
}

func newFakeLevel() *fakeLevel {
	return &fakeLevel{
		armed: make(map[int]Ready),
		ready: make(map[int]Ready),
	}
}

func (f *fakeLevel) set(fd int, r Ready) { f.ready[fd] = r }

func (f *fakeLevel) subscribe(fd int, interest Ready, _ Trigger) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	if _, has := f.armed[fd]; has {
		return os.NewSyscallError("fake", syscall.EEXIST)
	}
	f.order = append(f.order, fd)
	f.armed[fd] = interest
	return nil
}

func (f *fakeLevel) modify(fd int, interest Ready, _ Trigger) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	if _, has := f.armed[fd]; !has {
		return os.NewSyscallError("fake", syscall.ENOENT)
	}
	f.armed[fd] = interest
	return nil
}

func (f *fakeLevel) unsubscribe(fd int) error {
	if f.unsubscribeErr != nil {
		return f.unsubscribeErr
	}
	if _, has := f.armed[fd]; !has {
		return os.NewSyscallError("fake", syscall.ENOENT)
	}
	delete(f.armed, fd)
	for i, v := range f.order {
		if v == fd {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeLevel) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	f.waits++
	f.timeouts = append(f.timeouts, timeout)
	if timeout != 0 {
		f.lastBlock = maps.Clone(f.armed)
	}
	if f.waitErr != nil {
		return 0, f.waitErr
	}
	var n int
	for _, fd := range f.order {
		if n == len(buf) {
			break
		}
		armed := f.armed[fd]
		if armed == 0 {
			continue
		}
		r := f.ready[fd] & (armed | always)
		if r == 0 {
			continue
		}
		buf[n] = rawEvent{fd: fd, ready: r}
		n++
	}
	return n, nil
}

func (f *fakeLevel) close() error {
	f.closed = true
	return nil
}

// newFakePoll returns a Poll on top of the emulator wrapping f.
func newFakePoll(f *fakeLevel) *Poll {
	return &Poll{
		regs: newRegistry(),
		be:   emulate(f),
	}
}
