package netpoll

// registration is the state kept for one registered descriptor.
type registration struct {
	token    Token
	interest Ready
	trigger  Trigger

	// last is the readiness most recently observed for the descriptor.
	last Ready
	// disabled is set after a OneShot registration delivered an event.
	disabled bool
}

// mask returns flags that may be delivered for r.
func (r *registration) mask() Ready {
	return r.interest | always
}

// registry maps descriptors to their registrations.
// Tokens are payload only; their uniqueness is up to the caller.
type registry struct {
	regs map[int]*registration
}

func newRegistry() *registry {
	return &registry{
		regs: make(map[int]*registration),
	}
}

func (r *registry) get(fd int) (*registration, bool) {
	reg, ok := r.regs[fd]
	return reg, ok
}

func (r *registry) insert(fd int, token Token, interest Ready, trigger Trigger) error {
	if _, has := r.regs[fd]; has {
		return ErrAlreadyRegistered
	}
	r.regs[fd] = &registration{
		token:    token,
		interest: interest,
		trigger:  trigger,
	}
	return nil
}

// update replaces the registration of fd. Bookkeeping is reset so that the
// new interest is judged by the current readiness only.
func (r *registry) update(fd int, token Token, interest Ready, trigger Trigger) error {
	reg, has := r.regs[fd]
	if !has {
		return ErrNotRegistered
	}
	*reg = registration{
		token:    token,
		interest: interest,
		trigger:  trigger,
	}
	return nil
}

func (r *registry) remove(fd int) error {
	if _, has := r.regs[fd]; !has {
		return ErrNotRegistered
	}
	delete(r.regs, fd)
	return nil
}

func (r *registry) len() int {
	return len(r.regs)
}
