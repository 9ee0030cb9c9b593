package netpoll

import "fmt"

// Ready is a set of readiness flags. It is used both to describe what the
// caller is interested in and what was observed on a resource.
type Ready uint8

// Ready flags.
//
// Hup and Error are always reported once present, even if they were not
// requested: they signal a state the caller must observe.
const (
	Readable Ready = 1 << iota
	Writable
	Hup
	Error
)

// always holds flags delivered regardless of interest.
const always = Hup | Error

// IsReadable reports whether r contains Readable.
func (r Ready) IsReadable() bool { return r&Readable != 0 }

// IsWritable reports whether r contains Writable.
func (r Ready) IsWritable() bool { return r&Writable != 0 }

// IsHup reports whether r contains Hup.
func (r Ready) IsHup() bool { return r&Hup != 0 }

// IsError reports whether r contains Error.
func (r Ready) IsError() bool { return r&Error != 0 }

// Contains reports whether all flags of other are present in r.
func (r Ready) Contains(other Ready) bool { return r&other == other }

// String returns a string representation of Ready.
func (r Ready) String() (str string) {
	name := func(flag Ready, name string) {
		if r&flag == 0 {
			return
		}
		if str != "" {
			str += "|"
		}
		str += name
	}

	name(Readable, "Readable")
	name(Writable, "Writable")
	name(Hup, "Hup")
	name(Error, "Error")

	if str == "" {
		str = "None"
	}
	return
}

// Trigger controls how often a readiness condition is delivered.
type Trigger uint8

const (
	// Edge delivers a condition once per transition from not ready to ready.
	// The caller must consume the resource until it would block, otherwise it
	// will not be notified about the same condition again.
	Edge Trigger = iota
	// Level delivers a condition on every Wait for as long as it holds.
	Level
	// OneShot is like Edge, but the registration is disabled after the first
	// delivery. Reregister must be called to receive more events.
	OneShot
)

// String returns a string representation of Trigger.
func (t Trigger) String() string {
	switch t {
	case Edge:
		return "Edge"
	case Level:
		return "Level"
	case OneShot:
		return "OneShot"
	default:
		return fmt.Sprintf("Trigger(%d)", uint8(t))
	}
}

func (t Trigger) valid() bool { return t <= OneShot }

// edge reports whether t suppresses conditions already delivered.
func (t Trigger) edge() bool { return t == Edge || t == OneShot }

// validate checks interest and trigger of a register or reregister request.
func validate(interest Ready, trigger Trigger) error {
	if interest&(Readable|Writable) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterest, interest)
	}
	if !trigger.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidInterest, trigger)
	}
	return nil
}
