//go:build linux

package netpoll

// newNativeBackend creates new epoll-based backend.
func newNativeBackend() (backend, error) {
	ep, err := newEpoll()
	if err != nil {
		return nil, err
	}
	return ep, nil
}
