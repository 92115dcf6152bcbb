package tppty

import (
	"io"
	"sync"
)

// PipeChannel is an in-memory ByteChannel backed by io.Pipe, used by
// tests (tppty's own and cmd/tppcat's) in place of a real PTY, per the
// design note that the PTY contract should be substitutable with a
// plain byte pipe.
type PipeChannel struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu         sync.Mutex
	terminated bool
}

// NewPipeChannelPair returns two PipeChannels wired so that writes to
// one are read from the other, like a local/remote pair of PTY
// endpoints talking to each other.
func NewPipeChannelPair() (a, b *PipeChannel) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	a = &PipeChannel{r: r1, w: w2}
	b = &PipeChannel{r: r2, w: w1}
	return a, b
}

func (p *PipeChannel) Send(buf []byte) error {
	if p.isTerminated() {
		return ErrTerminated
	}
	_, err := p.w.Write(buf)
	return err
}

func (p *PipeChannel) Receive(buf []byte) (int, error) {
	if p.isTerminated() {
		return 0, nil
	}
	n, err := p.r.Read(buf)
	if err != nil {
		if err == io.EOF || p.isTerminated() {
			p.setTerminated()
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Close terminates the channel: pending and future Receive calls
// return (0, nil), and Send returns ErrTerminated.
func (p *PipeChannel) Close() error {
	p.setTerminated()
	p.w.Close()
	return p.r.Close()
}

func (p *PipeChannel) isTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

func (p *PipeChannel) setTerminated() {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
}

var _ ByteChannel = (*PipeChannel)(nil)
