package tppty

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// UnixSlave is the controlled-side endpoint used inside the child
// process, reading its own controlling terminal's size via
// golang.org/x/term and watching SIGWINCH for resize notifications —
// the same signal the teacher's stm.handleWinCh watches on the
// client side.
type UnixSlave struct {
	fd   int
	file *os.File

	mu        sync.Mutex
	listeners map[int]ResizeFunc
	nextID    int

	sigCh  chan os.Signal
	stopCh chan struct{}
}

// NewUnixSlave builds a Slave reading the size of the terminal
// attached to fd (typically os.Stdin.Fd() inside the child).
func NewUnixSlave(fd int) *UnixSlave {
	s := &UnixSlave{
		fd:        fd,
		file:      os.NewFile(uintptr(fd), "tty"),
		listeners: make(map[int]ResizeFunc),
		sigCh:     make(chan os.Signal, 10),
		stopCh:    make(chan struct{}),
	}
	signal.Notify(s.sigCh, syscall.SIGWINCH)
	go s.watch()
	return s
}

func (s *UnixSlave) watch() {
	for {
		select {
		case <-s.sigCh:
			cols, rows := s.Size()
			s.mu.Lock()
			fns := make([]ResizeFunc, 0, len(s.listeners))
			for _, fn := range s.listeners {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(cols, rows)
			}
		case <-s.stopCh:
			signal.Stop(s.sigCh)
			return
		}
	}
}

// Close stops watching for SIGWINCH.
func (s *UnixSlave) Close() {
	close(s.stopCh)
}

func (s *UnixSlave) Send(buf []byte) error {
	n, err := s.file.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return ErrTerminated
	}
	return nil
}

func (s *UnixSlave) Receive(buf []byte) (int, error) {
	return s.file.Read(buf)
}

func (s *UnixSlave) Size() (cols, rows int) {
	w, h, err := term.GetSize(s.fd)
	if err != nil {
		return 0, 0
	}
	return w, h
}

func (s *UnixSlave) OnResize(fn ResizeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

var _ Slave = (*UnixSlave)(nil)
