//go:build !unix

package netpoll

func newNativeBackend() (backend, error) {
	return nil, ErrUnsupported
}

func newPollBackend() (backend, error) {
	return nil, ErrUnsupported
}
