//go:build unix && !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package netpoll

// newNativeBackend falls back to emulated poll(2) where neither epoll nor
// kqueue exist.
func newNativeBackend() (backend, error) {
	return newPollBackend()
}
