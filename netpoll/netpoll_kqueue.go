//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

// newNativeBackend creates new kqueue-based backend.
func newNativeBackend() (backend, error) {
	kq, err := newKqueue()
	if err != nil {
		return nil, err
	}
	return kq, nil
}
