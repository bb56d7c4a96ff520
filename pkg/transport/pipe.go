package transport

import (
	"sync"
)

// PipeFramer is an in-memory Framer backed by a pair of channels. NewPipe
// returns two PipeFramers wired to each other so tests can drive a client
// Endpoint and a server Endpoint against one another without a real
// socket or stdio pair.
type PipeFramer struct {
	out       chan []byte
	in        chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewPipe creates a connected pair: frames written to a are readable from
// b, and vice versa.
func NewPipe() (a, b *PipeFramer) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	closedA := make(chan struct{})
	closedB := make(chan struct{})
	a = &PipeFramer{out: ab, in: ba, closed: closedA}
	b = &PipeFramer{out: ba, in: ab, closed: closedB}
	return a, b
}

func (p *PipeFramer) ReadFrame() ([]byte, error) {
	select {
	case frame, ok := <-p.in:
		if !ok {
			return nil, ErrClosed
		}
		return frame, nil
	case <-p.closed:
		return nil, ErrClosed
	}
}

func (p *PipeFramer) WriteFrame(frame []byte) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.out <- frame:
		return nil
	case <-p.closed:
		return ErrClosed
	}
}

func (p *PipeFramer) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	return nil
}
