//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFromKevent(t *testing.T) {
	for _, test := range []struct {
		filter int
		flags  int
		exp    Ready
	}{
		{unix.EVFILT_READ, 0, Readable},
		{unix.EVFILT_WRITE, 0, Writable},
		{unix.EVFILT_READ, unix.EV_EOF, Readable | Hup},
		{unix.EVFILT_WRITE, unix.EV_ERROR, Writable | Error},
	} {
		ev := kevent(3, test.filter, test.flags)
		assert.Equal(t, test.exp, fromKevent(&ev))
	}
}

func TestKqueueMergesFilters(t *testing.T) {
	k, err := newKqueue()
	require.NoError(t, err)
	defer k.close()

	pair := socketPair(t)
	require.NoError(t, k.subscribe(pair[0], Readable|Writable, Level))
	write(t, pair[1], "x")

	buf := make([]rawEvent, 4)
	n, err := k.wait(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, rawEvent{fd: pair[0], ready: Readable | Writable}, buf[0])

	// Dropping a filter on modify.
	require.NoError(t, k.modify(pair[0], Writable, Level))
	n, err = k.wait(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, Writable, buf[0].ready)

	require.NoError(t, k.unsubscribe(pair[0]))
	assert.ErrorIs(t, k.unsubscribe(pair[0]), unix.ENOENT)
}

func TestKqueueModifyFailureRestoresFilters(t *testing.T) {
	k, err := newKqueue()
	require.NoError(t, err)
	defer k.close()

	pair := socketPair(t)
	require.NoError(t, k.subscribe(pair[0], Readable, Level))

	control := k.submit
	k.submit = func(changes []unix.Kevent_t) error {
		for _, ev := range changes {
			if int(ev.Filter) == unix.EVFILT_WRITE && int(ev.Flags)&unix.EV_ADD != 0 {
				return os.NewSyscallError("kevent", unix.ENOMEM)
			}
		}
		return control(changes)
	}

	err = k.modify(pair[0], Writable, Level)
	assert.ErrorIs(t, err, unix.ENOMEM)
	assert.Equal(t, kfilters{Readable, Level}, k.filters[pair[0]])

	k.submit = control
	write(t, pair[1], "x")
	buf := make([]rawEvent, 4)
	n, err := k.wait(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, rawEvent{fd: pair[0], ready: Readable}, buf[0])
}
