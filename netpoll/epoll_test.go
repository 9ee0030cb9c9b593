//go:build linux

package netpoll

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEpollEventString(t *testing.T) {
	for _, test := range []struct {
		ev  EpollEvent
		exp string
	}{
		{0, ""},
		{EPOLLIN, "EPOLLIN"},
		{EPOLLIN | EPOLLRDHUP | EPOLLET, "EPOLLIN|EPOLLRDHUP|EPOLLET"},
		{EPOLLOUT | EPOLLERR | EPOLLHUP, "EPOLLOUT|EPOLLERR|EPOLLHUP"},
		{EPOLLPRI | EPOLLONESHOT, "EPOLLPRI|EPOLLONESHOT"},
	} {
		assert.Equal(t, test.exp, test.ev.String())
	}
}

func TestToEpollEvent(t *testing.T) {
	for _, test := range []struct {
		interest Ready
		trigger  Trigger
		exp      EpollEvent
	}{
		{Readable, Level, EPOLLIN | EPOLLRDHUP},
		{Writable, Edge, EPOLLOUT | EPOLLET},
		{Readable | Writable, OneShot, EPOLLIN | EPOLLRDHUP | EPOLLOUT | EPOLLET | EPOLLONESHOT},
		{Readable | Hup, Edge, EPOLLIN | EPOLLRDHUP | EPOLLET},
	} {
		assert.Equal(t, test.exp, toEpollEvent(test.interest, test.trigger), "%s %s", test.interest, test.trigger)
	}
}

func TestFromEpollEvent(t *testing.T) {
	for _, test := range []struct {
		ev  EpollEvent
		exp Ready
	}{
		{EPOLLIN, Readable},
		{EPOLLPRI, Readable},
		{EPOLLOUT, Writable},
		{EPOLLIN | EPOLLRDHUP, Readable | Hup},
		{EPOLLHUP, Hup},
		{EPOLLERR | EPOLLOUT, Writable | Error},
		{EPOLLET, 0},
	} {
		assert.Equal(t, test.exp, fromEpollEvent(test.ev), "%s", test.ev)
	}
}

func TestEpollRegisterRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "plain"))
	require.NoError(t, err)
	defer f.Close()

	p, err := New(nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.Register(f, 1, Readable, Edge)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "register", be.Op)
	assert.ErrorIs(t, err, unix.EPERM)
	assert.Equal(t, 0, p.Len())
}

func TestEpollWaitBoundedByBuffer(t *testing.T) {
	ep, err := newEpoll()
	require.NoError(t, err)
	defer ep.close()

	var pairs [][2]int
	for i := 0; i < 3; i++ {
		pair := socketPair(t)
		pairs = append(pairs, pair)
		require.NoError(t, ep.subscribe(pair[0], Writable, Level))
	}

	buf := make([]rawEvent, 2)
	n, err := ep.wait(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf = make([]rawEvent, 2*maxWaitEventsBegin)
	n, err = ep.wait(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, ev := range buf[:n] {
		assert.Equal(t, Writable, ev.ready)
	}
}
