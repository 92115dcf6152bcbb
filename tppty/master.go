package tppty

// Master is the controller-side endpoint of a pseudoterminal: it owns
// the child process and the OS descriptors backing the channel.
type Master interface {
	ByteChannel

	// Terminate requests the child exit. Idempotent.
	Terminate() error

	// Resize updates the terminal dimensions and propagates the
	// change to the slave side (the equivalent of a window-change
	// signal).
	Resize(cols, rows int) error

	// Terminated reports whether the child process has exited.
	Terminated() bool

	// ExitCode returns the child's exit code. It fails with
	// ErrNotTerminated if the process hasn't exited yet.
	ExitCode() (int32, error)
}
