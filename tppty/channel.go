// Package tppty defines the pseudoterminal byte-channel abstraction
// shared by master and slave endpoints, plus convenience wrappers for
// sending t++ sequences and responses over one.
//
// Concrete implementations: UnixMaster/UnixSlave, backed by
// github.com/creack/pty for a real child process, and PipeChannel, an
// in-memory stand-in used by tppty's and cmd/tppcat's tests —
// matching the design note that the PTY contract should be an
// abstract capability tests can substitute a byte pipe for.
package tppty

import (
	"errors"

	"github.com/tpp-project/tpp/tppseq"
)

// ErrTerminated is returned by Send once the channel has transitioned
// to terminated (Receive returns (0, nil) instead).
var ErrTerminated = errors.New("tppty: channel terminated")

// ErrNotTerminated is returned by ExitCode before the process has
// exited.
var ErrNotTerminated = errors.New("tppty: exit code requested before termination")

// ByteChannel is the base contract shared by master and slave
// endpoints: raw bytes in, raw bytes out.
type ByteChannel interface {
	// Send writes all of buf or fails; partial writes are never
	// exposed to the caller.
	Send(buf []byte) error

	// Receive blocks until at least one byte is available and
	// returns the count read into buf. It returns (0, nil)
	// immediately once the channel is terminated.
	Receive(buf []byte) (int, error)
}

// SendSequence wraps seq in the t++ outer frame and writes it to ch.
func SendSequence(ch ByteChannel, seq tppseq.Sequence) error {
	return ch.Send(tppseq.Emit(seq))
}

// SendResponse serialises whichever alternative r holds and writes it
// to ch.
func SendResponse[T tppseq.Sequence](ch ByteChannel, r tppseq.Response[T]) error {
	return ch.Send(tppseq.EmitResponse(r))
}
