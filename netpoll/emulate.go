package netpoll

import (
	"os"
	"syscall"
	"time"
)

// emulator provides Edge and OneShot triggering on top of a level-triggered
// backend by remembering which conditions were already delivered.
//
// Every wait starts with a non-blocking probe of full interest masks. The
// probe forgets delivered conditions that have cleared and reports the ones
// newly asserted. When nothing is deliverable the emulator blocks with the
// delivered conditions disarmed, then probes again. A condition is marked
// delivered only once it fits into the caller's buffer.
type emulator struct {
	raw  backend
	regs map[int]*emulated
	buf  []rawEvent
}

type emulated struct {
	interest Ready
	trigger  Trigger

	// delivered holds edge conditions reported and not yet seen cleared.
	delivered Ready
	// armed is the mask currently subscribed in the raw backend.
	armed    Ready
	disabled bool

	observed Ready
	fresh    bool
}

func emulate(raw backend) *emulator {
	return &emulator{
		raw:  raw,
		regs: make(map[int]*emulated),
	}
}

func (e *emulator) subscribe(fd int, interest Ready, trigger Trigger) error {
	if _, has := e.regs[fd]; has {
		return os.NewSyscallError("subscribe", syscall.EEXIST)
	}
	full := interest | always
	if err := e.raw.subscribe(fd, full, Level); err != nil {
		return err
	}
	e.regs[fd] = &emulated{
		interest: interest,
		trigger:  trigger,
		armed:    full,
	}
	return nil
}

// modify replaces the interest of fd and forgets everything delivered, so
// the current readiness is evaluated from scratch.
func (e *emulator) modify(fd int, interest Ready, trigger Trigger) error {
	st, has := e.regs[fd]
	if !has {
		return os.NewSyscallError("modify", syscall.ENOENT)
	}
	full := interest | always
	if err := e.raw.modify(fd, full, Level); err != nil {
		return err
	}
	*st = emulated{
		interest: interest,
		trigger:  trigger,
		armed:    full,
	}
	return nil
}

func (e *emulator) unsubscribe(fd int) error {
	if _, has := e.regs[fd]; !has {
		return os.NewSyscallError("unsubscribe", syscall.ENOENT)
	}
	if err := e.raw.unsubscribe(fd); err != nil {
		return err
	}
	delete(e.regs, fd)
	return nil
}

func (e *emulator) close() error {
	e.regs = nil
	return e.raw.close()
}

func (e *emulator) wait(buf []rawEvent, timeout time.Duration) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		n, err := e.probe(buf)
		if err != nil || n > 0 {
			return n, err
		}
		left := remaining(deadline)
		if left == 0 {
			return 0, nil
		}
		if err = e.arm(true); err != nil {
			return 0, err
		}
		// The result is not used: the next probe will tell what changed.
		if _, err = e.raw.wait(e.scratch(), left); err != nil {
			return 0, err
		}
	}
}

// probe polls the full interest of every registration without blocking and
// fills buf with conditions that are deliverable now.
func (e *emulator) probe(buf []rawEvent) (int, error) {
	if err := e.arm(false); err != nil {
		return 0, err
	}
	raw := e.scratch()
	n, err := e.raw.wait(raw, 0)
	if err != nil {
		return 0, err
	}
	raw = raw[:n]

	for _, ev := range raw {
		if st, ok := e.regs[ev.fd]; ok {
			st.observed = ev.ready
			st.fresh = true
		}
	}
	for _, st := range e.regs {
		if st.fresh {
			st.delivered &= st.observed
			st.fresh = false
		} else {
			st.delivered = 0
		}
	}

	var k int
	for _, ev := range raw {
		if k == len(buf) {
			break
		}
		st, ok := e.regs[ev.fd]
		if !ok || st.disabled {
			continue
		}
		ready := ev.ready & (st.interest | always)
		if st.trigger.edge() {
			ready &^= st.delivered
			st.delivered |= ready
		}
		if ready == 0 {
			continue
		}
		if st.trigger == OneShot {
			st.disabled = true
		}
		buf[k] = rawEvent{fd: ev.fd, ready: ready}
		k++
	}
	return k, nil
}

// arm subscribes every registration with the mask wanted for the next raw
// wait. Before blocking, conditions already delivered to edge registrations
// are disarmed. Hup and Error are sticky, so a registration that had either
// delivered is parked until the next probe.
func (e *emulator) arm(blocking bool) error {
	for fd, st := range e.regs {
		want := st.interest | always
		switch {
		case st.disabled:
			want = 0
		case blocking && st.trigger.edge():
			if st.delivered&always != 0 {
				want = 0
			} else {
				want &^= st.delivered
			}
		}
		if want == st.armed {
			continue
		}
		if err := e.raw.modify(fd, want, Level); err != nil {
			return err
		}
		st.armed = want
	}
	return nil
}

func (e *emulator) scratch() []rawEvent {
	n := len(e.regs)
	if n == 0 {
		n = 1
	}
	if cap(e.buf) < n {
		e.buf = make([]rawEvent, n)
	}
	return e.buf[:n]
}
