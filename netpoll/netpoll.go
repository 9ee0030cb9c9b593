// Package netpoll provides readiness notification for file descriptors.
//
// A Poll watches registered resources and reports, on Wait, which of them
// became readable, writable, hung up or failed. Registrations are edge,
// level or oneshot triggered, independently of the platform primitive:
// epoll on Linux, kqueue on Darwin and the BSDs, poll(2) elsewhere.
//
// A Poll is not safe for concurrent use. It never closes the resources
// registered with it.
package netpoll

import (
	"time"

	"github.com/joeycumines/logiface"
)

// NoTimeout makes Wait block until at least one event is available.
const NoTimeout time.Duration = -1

// Config contains options for Poll instance configuration.
type Config struct {
	// Backend selects the readiness primitive. Default is BackendDefault.
	Backend Backend

	// Logger receives registration and backend failure records. Nil
	// disables logging.
	Logger *logiface.Logger[logiface.Event]
}

func (c *Config) withDefaults() (config Config) {
	if c != nil {
		config = *c
	}
	return config
}

// Poll is a readiness notification instance.
// Its methods are not goroutine safe.
type Poll struct {
	kind   Backend
	regs   *registry
	be     backend
	raw    []rawEvent
	log    *logiface.Logger[logiface.Event]
	closed bool
}

// New creates new Poll instance with given config.
// It fails only if the backend could not be initialized; such errors are
// fatal BackendErrors.
func New(c *Config) (*Poll, error) {
	config := c.withDefaults()

	be, err := newBackend(config.Backend)
	if err != nil {
		config.Logger.Err().
			Err(err).
			Str("backend", config.Backend.String()).
			Log("netpoll: backend init failed")
		return nil, &BackendError{Op: "new", Fd: -1, Fatal: true, Err: err}
	}

	config.Logger.Debug().
		Str("backend", config.Backend.String()).
		Log("netpoll: created")

	return &Poll{
		kind: config.Backend,
		regs: newRegistry(),
		be:   be,
		log:  config.Logger,
	}, nil
}

// Register starts watching r for interest, reporting events with token.
//
// Interest must contain Readable or Writable; Hup and Error are reported
// regardless. A resource may only be registered once, until Deregister.
func (p *Poll) Register(r Resource, token Token, interest Ready, trigger Trigger) error {
	if p.closed {
		return ErrClosed
	}
	if err := validate(interest, trigger); err != nil {
		return err
	}
	fd, err := toFD(r)
	if err != nil {
		return err
	}

	if err = p.regs.insert(int(fd), token, interest, trigger); err != nil {
		return err
	}
	if err = p.be.subscribe(int(fd), interest, trigger); err != nil {
		// Rollback.
		_ = p.regs.remove(int(fd))
		return p.fail("register", int(fd), err)
	}

	p.fields(p.log.Debug(), int(fd), token, interest, trigger).
		Log("netpoll: registered")
	return nil
}

// Reregister replaces token, interest and trigger of an existing
// registration of r. The next Wait judges the new interest by the current
// readiness of r, so a OneShot registration is re-enabled and an Edge one
// reports conditions that are still pending.
func (p *Poll) Reregister(r Resource, token Token, interest Ready, trigger Trigger) error {
	if p.closed {
		return ErrClosed
	}
	if err := validate(interest, trigger); err != nil {
		return err
	}
	fd, err := toFD(r)
	if err != nil {
		return err
	}

	if _, has := p.regs.get(int(fd)); !has {
		return ErrNotRegistered
	}
	if err = p.be.modify(int(fd), interest, trigger); err != nil {
		return p.fail("reregister", int(fd), err)
	}
	if err = p.regs.update(int(fd), token, interest, trigger); err != nil {
		return err
	}

	p.fields(p.log.Debug(), int(fd), token, interest, trigger).
		Log("netpoll: reregistered")
	return nil
}

// Deregister stops watching r. No event carrying its token is reported
// after Deregister returns.
//
// Note that it does not close r.
func (p *Poll) Deregister(r Resource) error {
	if p.closed {
		return ErrClosed
	}
	fd, err := toFD(r)
	if err != nil {
		return err
	}

	reg, has := p.regs.get(int(fd))
	if !has {
		return ErrNotRegistered
	}
	if err = p.be.unsubscribe(int(fd)); err != nil {
		return p.fail("deregister", int(fd), err)
	}
	if err = p.regs.remove(int(fd)); err != nil {
		return err
	}

	p.log.Debug().
		Int("fd", int(fd)).
		Uint64("token", uint64(reg.token)).
		Log("netpoll: deregistered")
	return nil
}

// Wait blocks until at least one event is available or timeout elapses, and
// fills events with no more than events.Cap() of them. The previous contents
// of events are discarded.
//
// A negative timeout (NoTimeout) blocks forever, zero only checks for
// readiness without blocking. Running out of time is not an error: Wait
// returns zero events.
//
// Resources ready beyond the capacity of events are reported by the next
// Wait; pending edge notifications are not lost.
func (p *Poll) Wait(events *Events, timeout time.Duration) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	events.Clear()
	if events.Cap() == 0 {
		return 0, nil
	}
	if len(p.raw) < events.Cap() {
		p.raw = make([]rawEvent, events.Cap())
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		n, err := p.be.wait(p.raw[:events.Cap()], remaining(deadline))
		if err != nil {
			return 0, p.fail("wait", -1, err)
		}

		p.deliver(events, p.raw[:n])

		p.log.Trace().
			Int("raw", n).
			Int("events", events.Len()).
			Log("netpoll: waited")

		if !events.IsEmpty() || remaining(deadline) == 0 {
			return events.Len(), nil
		}
	}
}

// deliver intersects raw readiness with the registrations and appends the
// resulting events.
func (p *Poll) deliver(events *Events, raw []rawEvent) {
	for _, ev := range raw {
		if events.full() {
			return
		}
		reg, ok := p.regs.get(ev.fd)
		if !ok || reg.disabled {
			continue
		}
		if reg.last != ev.ready {
			p.log.Trace().
				Int("fd", ev.fd).
				Stringer("from", reg.last).
				Stringer("to", ev.ready).
				Log("netpoll: readiness changed")
			reg.last = ev.ready
		}

		ready := ev.ready & reg.mask()
		if ready == 0 {
			continue
		}
		if reg.trigger == OneShot {
			reg.disabled = true
		}
		events.push(reg.token, ready)
	}
}

// Len returns the number of live registrations.
func (p *Poll) Len() int {
	return p.regs.len()
}

// Close releases the backend. It does not close registered resources.
func (p *Poll) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	if err := p.be.close(); err != nil {
		return p.fail("close", -1, err)
	}
	p.log.Debug().
		Str("backend", p.kind.String()).
		Log("netpoll: closed")
	return nil
}

func (p *Poll) fail(op string, fd int, err error) error {
	p.log.Err().
		Err(err).
		Str("op", op).
		Int("fd", fd).
		Log("netpoll: backend failed")
	return &BackendError{Op: op, Fd: fd, Err: err}
}

func (p *Poll) fields(b *logiface.Builder[logiface.Event], fd int, token Token, interest Ready, trigger Trigger) *logiface.Builder[logiface.Event] {
	return b.
		Int("fd", fd).
		Uint64("token", uint64(token)).
		Stringer("interest", interest).
		Stringer("trigger", trigger)
}
