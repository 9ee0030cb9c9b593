//go:build unix

// Command echo is a single threaded echo server driven by netpoll.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/mailru/easypoll/netpoll"
	"golang.org/x/sys/unix"
)

var (
	addr    = flag.String("addr", "127.0.0.1:8080", "address to listen on")
	backend = flag.String("backend", "default", "readiness backend: default or poll")
	events  = flag.Int("events", 128, "events buffer capacity")
	verbose = flag.Bool("v", false, "log registrations")
)

const listenerToken netpoll.Token = 0

func main() {
	flag.Parse()

	level := logiface.LevelInformational
	if *verbose {
		level = logiface.LevelDebug
	}
	log := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	kind := netpoll.BackendDefault
	switch *backend {
	case "default":
	case "poll":
		kind = netpoll.BackendPoll
	default:
		log.Crit().Str("backend", *backend).Log("echo: unknown backend")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, kind); err != nil {
		log.Err().Err(err).Log("echo: stopped")
		os.Exit(1)
	}
}

type server struct {
	poll  *netpoll.Poll
	log   *logiface.Logger[logiface.Event]
	ln    netpoll.FD
	conns map[netpoll.Token]netpoll.FD
	next  netpoll.Token
	buf   []byte
}

func run(ctx context.Context, log *logiface.Logger[logiface.Event], kind netpoll.Backend) error {
	poll, err := netpoll.New(&netpoll.Config{
		Backend: kind,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	defer poll.Close()

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	defer listener.Close()

	s := &server{
		poll:  poll,
		log:   log,
		ln:    netpoll.Must(netpoll.Handle(listener)),
		conns: make(map[netpoll.Token]netpoll.FD),
		next:  listenerToken + 1,
		buf:   make([]byte, 4096),
	}
	if err = poll.Register(s.ln, listenerToken, netpoll.Readable, netpoll.Edge); err != nil {
		return err
	}
	defer s.closeAll()

	log.Info().
		Str("addr", listener.Addr().String()).
		Str("backend", kind.String()).
		Log("echo: listening")

	evs := netpoll.NewEvents(*events)
	for ctx.Err() == nil {
		if _, err = poll.Wait(evs, 200*time.Millisecond); err != nil {
			return err
		}
		for ev := range evs.All() {
			if ev.Token() == listenerToken {
				s.accept()
				continue
			}
			s.serve(ev)
		}
	}
	return nil
}

// accept takes every pending connection: the listener is edge triggered.
func (s *server) accept() {
	for {
		fd, _, err := unix.Accept(int(s.ln))
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ECONNABORTED) {
			return
		}
		if err != nil {
			s.log.Err().Err(err).Log("echo: accept failed")
			return
		}
		unix.CloseOnExec(fd)
		if err = unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			continue
		}

		token := s.next
		s.next++
		if err = s.poll.Register(netpoll.FD(fd), token, netpoll.Readable, netpoll.Level); err != nil {
			unix.Close(fd)
			continue
		}
		s.conns[token] = netpoll.FD(fd)
	}
}

func (s *server) serve(ev netpoll.Event) {
	fd, ok := s.conns[ev.Token()]
	if !ok {
		return
	}
	if ev.Readiness().IsReadable() {
		n, err := unix.Read(int(fd), s.buf)
		switch {
		case errors.Is(err, unix.EAGAIN):
		case err != nil || n == 0:
			s.drop(ev.Token())
			return
		default:
			if _, err = unix.Write(int(fd), s.buf[:n]); err != nil {
				s.drop(ev.Token())
				return
			}
		}
	}
	if ev.Readiness().IsHup() || ev.Readiness().IsError() {
		s.drop(ev.Token())
	}
}

// drop deregisters the connection before closing it.
func (s *server) drop(token netpoll.Token) {
	fd := s.conns[token]
	delete(s.conns, token)
	if err := s.poll.Deregister(fd); err != nil {
		s.log.Warning().Err(err).Log("echo: deregister failed")
	}
	unix.Close(int(fd))
}

func (s *server) closeAll() {
	for token := range s.conns {
		s.drop(token)
	}
	_ = s.poll.Deregister(s.ln)
}
