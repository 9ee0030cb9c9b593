package netpoll

import "iter"

// Token is a caller chosen identifier of a registration.
// It carries no meaning outside of the Poll it was registered with.
type Token uint64

// Event is a readiness notification produced by Poll.Wait.
type Event struct {
	token Token
	ready Ready
}

// Token returns the token the resource was registered with.
func (e Event) Token() Token { return e.token }

// Readiness returns the delivered readiness flags.
func (e Event) Readiness() Ready { return e.ready }

// Events is a fixed capacity buffer of events filled by Poll.Wait.
// Its contents are replaced by every call to Wait.
type Events struct {
	list []Event
}

// NewEvents returns an Events buffer able to hold capacity events per Wait.
func NewEvents(capacity int) *Events {
	if capacity < 0 {
		capacity = 0
	}
	return &Events{
		list: make([]Event, 0, capacity),
	}
}

// Len returns the number of events filled by the last Wait.
func (e *Events) Len() int { return len(e.list) }

// Cap returns the maximum number of events a single Wait can deliver.
func (e *Events) Cap() int { return cap(e.list) }

// IsEmpty reports whether the last Wait delivered no events.
func (e *Events) IsEmpty() bool { return len(e.list) == 0 }

// Get returns the i-th event of the last Wait.
func (e *Events) Get(i int) (Event, bool) {
	if i < 0 || i >= len(e.list) {
		return Event{}, false
	}
	return e.list[i], true
}

// All returns an iterator over the events of the last Wait.
// It may be ranged over any number of times until the next Wait.
func (e *Events) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, ev := range e.list {
			if !yield(ev) {
				return
			}
		}
	}
}

// Clear empties the buffer, keeping its capacity.
func (e *Events) Clear() {
	e.list = e.list[:0]
}

func (e *Events) full() bool {
	return len(e.list) == cap(e.list)
}

func (e *Events) push(token Token, ready Ready) {
	e.list = append(e.list, Event{token: token, ready: ready})
}
