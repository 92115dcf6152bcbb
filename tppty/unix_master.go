package tppty

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// UnixMaster spawns a child under a real pseudoterminal using
// github.com/creack/pty, matching the teacher's own PTY startup
// (pty.StartWithSize, Setsize) and reaping idiom
// (cmd.Process.Wait freezing the exit code under a mutex).
type UnixMaster struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu         sync.Mutex
	terminated bool
	exitCode   int32
}

// NewUnixMaster starts command with args and env under a PTY sized
// initialCols x initialRows, mirroring the PTY master factory named
// in the protocol's external interfaces: (command, args, env,
// initial_cols, initial_rows) -> master.
func NewUnixMaster(command string, args []string, env []string, initialCols, initialRows int) (*UnixMaster, error) {
	cmd := exec.Command(command, args...)
	if env != nil {
		cmd.Env = env
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(initialCols),
		Rows: uint16(initialRows),
	})
	if err != nil {
		return nil, fmt.Errorf("tppty: couldn't start pty: %w", err)
	}

	m := &UnixMaster{cmd: cmd, ptmx: ptmx}
	go m.reap()
	return m, nil
}

func (m *UnixMaster) reap() {
	state, _ := m.cmd.Process.Wait()
	var code int32
	if state != nil {
		code = int32(state.ExitCode())
	}
	m.mu.Lock()
	m.terminated = true
	m.exitCode = code
	m.mu.Unlock()
}

func (m *UnixMaster) Send(buf []byte) error {
	if m.Terminated() {
		return ErrTerminated
	}
	n, err := m.ptmx.Write(buf)
	if err != nil {
		return fmt.Errorf("tppty: write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("tppty: short write %d of %d bytes", n, len(buf))
	}
	return nil
}

func (m *UnixMaster) Receive(buf []byte) (int, error) {
	n, err := m.ptmx.Read(buf)
	if err != nil {
		if m.Terminated() {
			return 0, nil
		}
		return 0, fmt.Errorf("tppty: read: %w", err)
	}
	return n, nil
}

// Terminate signals the child to exit. Idempotent: repeated calls
// after the child has already exited are no-ops.
func (m *UnixMaster) Terminate() error {
	if m.Terminated() {
		return nil
	}
	if err := m.cmd.Process.Signal(syscall.SIGHUP); err != nil && !m.Terminated() {
		return fmt.Errorf("tppty: terminate: %w", err)
	}
	return nil
}

// Resize updates the PTY's window size, propagated to the slave side
// as a SIGWINCH.
func (m *UnixMaster) Resize(cols, rows int) error {
	return pty.Setsize(m.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (m *UnixMaster) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

func (m *UnixMaster) ExitCode() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.terminated {
		return 0, ErrNotTerminated
	}
	return m.exitCode, nil
}

// Close releases the PTY file descriptor. It does not wait for the
// child; call Terminate first if that's required.
func (m *UnixMaster) Close() error {
	return m.ptmx.Close()
}

var _ Master = (*UnixMaster)(nil)
