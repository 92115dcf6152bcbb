// Command tppcat is the driving CLI for the t++ protocol: it spawns a
// command under a pseudoterminal, puts its own controlling terminal
// into raw mode, and demultiplexes the child's output into raw
// terminal text, OSC escape sequences, and t++ frames.
//
// It is the minimal consumer spec.md leaves external: no rendering, no
// layout, just enough wiring to drive tppty/tppdemux/tppseq/ttyosc end
// to end. It follows the teacher's client/gosh-client.go shape (raw
// mode entry, flag-only configuration) adapted
// from a network-backed remote shell to a local PTY spawn.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/tpp-project/tpp/internal/tpplog"
	"github.com/tpp-project/tpp/internal/transfer"
	"github.com/tpp-project/tpp/internal/viewer"
	"github.com/tpp-project/tpp/tppdemux"
	"github.com/tpp-project/tpp/tppseq"
	"github.com/tpp-project/tpp/tppty"
	"github.com/tpp-project/tpp/ttyosc"
)

var (
	debug      = flag.Bool("debug", false, "If true, enable DEBUG log level for verbose log output.")
	logfile    = flag.String("logfile", "", "If set, logs will be written to this file.")
	initCols   = flag.Int("initial_cols", 80, "Number of columns to start the pty with.")
	initRows   = flag.Int("initial_rows", 24, "Number of rows to start the pty with.")
	copyText   = flag.String("copy", "", "If set, emit an OSC 52 clipboard-set sequence for this text on startup instead of spawning a command.")
	spoolDir   = flag.String("spool_dir", "", "Directory to write in-flight and completed file transfers to. Defaults to a temp dir.")
	viewerAddr = flag.String("viewer_addr", "localhost:8787", "Address the ViewRemoteFile websocket bridge listens on.")
)

func main() {
	flag.Parse()

	if err := tpplog.Setup(*logfile, *debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *copyText != "" {
		os.Stdout.Write(clipboardSequence(*copyText))
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		args = []string{shell}
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		slog.Error("stdin is not a terminal, refusing to enter raw mode")
		os.Exit(1)
	}

	orig, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		slog.Error("couldn't make terminal raw", "err", err)
		os.Exit(1)
	}
	defer term.Restore(int(os.Stdin.Fd()), orig)

	master, err := tppty.NewUnixMaster(args[0], args[1:], nil, *initCols, *initRows)
	if err != nil {
		slog.Error("couldn't start pty", "err", err)
		os.Exit(1)
	}

	dir := *spoolDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "tppcat-spool-")
		if err != nil {
			slog.Error("couldn't create spool dir", "err", err)
			os.Exit(1)
		}
	}

	src := viewer.NewFileSource()
	if _, err := viewer.WatchSpool(context.Background(), dir, src); err != nil {
		slog.Warn("couldn't watch spool dir for manifests", "err", err)
	}
	go serveViewer(src)

	d := &dispatcher{
		master: master,
		xfers:  transfer.NewRegistry(),
		spool:  dir,
		files:  make(map[uint64]*os.File),
		src:    src,
	}
	scanner := tppdemux.NewScanner(d)

	go watchResize(master)
	go copyStdinTo(master)

	buf := make([]byte, 4096)
	for {
		n, err := master.Receive(buf)
		if err != nil {
			slog.Error("pty read failed", "err", err)
			break
		}
		if n == 0 {
			break
		}
		scanner.Feed(buf[:n])
	}

	code, _ := master.ExitCode()
	os.Exit(int(code))
}

// dispatcher implements tppdemux.Dispatcher: raw text goes straight to
// stdout, OSC events are logged, and t++ sequences get the protocol
// responses the wire format demands (GetCapabilities -> Capabilities,
// OpenFileTransfer/Data/GetTransferStatus -> the transfer registry,
// ViewRemoteFile -> a pointer at the viewer bridge).
type dispatcher struct {
	master tppty.ByteChannel
	xfers  *transfer.Registry
	spool  string
	src    *viewer.FileSource

	mu    sync.Mutex
	files map[uint64]*os.File
}

func (d *dispatcher) RawText(p []byte) {
	os.Stdout.Write(p)
}

func (d *dispatcher) OSC(ev ttyosc.Event) {
	slog.Debug("osc event", "number", ev.Number, "values", ev.Values)
}

func (d *dispatcher) Sequence(seq tppseq.Sequence) {
	switch s := seq.(type) {
	case tppseq.GetCapabilities:
		caps := tppseq.Capabilities{Version: probeVersion()}
		if err := tppty.SendSequence(d.master, caps); err != nil {
			slog.Error("couldn't send capabilities response", "err", err)
		}
	case tppseq.OpenFileTransfer:
		d.openTransfer(s)
	case tppseq.Data:
		d.acceptData(s)
	case tppseq.GetTransferStatus:
		d.reportStatus(s)
	case tppseq.ViewRemoteFile:
		slog.Info("view requested", "id", s.ID, "viewer_addr", *viewerAddr)
	case tppseq.Invalid:
		slog.Warn("dropped malformed t++ frame", "reason", s.Reason)
	default:
		slog.Debug("t++ sequence", "kind", seq.Kind(), "value", seq)
	}
}

func (d *dispatcher) openTransfer(req tppseq.OpenFileTransfer) {
	id := d.xfers.Open(req)

	f, err := os.Create(filepath.Join(d.spool, fmt.Sprintf("transfer-%d", id)))
	if err != nil {
		slog.Error("couldn't open spool file", "id", id, "err", err)
		if serr := tppty.SendSequence(d.master, tppseq.NewNack(req, err.Error())); serr != nil {
			slog.Error("couldn't send nack", "err", serr)
		}
		return
	}

	d.mu.Lock()
	d.files[id] = f
	d.mu.Unlock()

	if err := tppty.SendSequence(d.master, tppseq.NewAck(req, id)); err != nil {
		slog.Error("couldn't ack OpenFileTransfer", "err", err)
	}
}

func (d *dispatcher) acceptData(data tppseq.Data) {
	d.mu.Lock()
	f := d.files[data.StreamID]
	d.mu.Unlock()
	if f == nil {
		slog.Warn("Data for unknown transfer", "stream_id", data.StreamID)
		return
	}

	if _, err := f.Write(data.Payload); err != nil {
		slog.Error("couldn't write transfer data", "stream_id", data.StreamID, "err", err)
		return
	}

	status, err := d.xfers.Accept(data.StreamID, data)
	if err != nil {
		slog.Error("couldn't record transfer progress", "stream_id", data.StreamID, "err", err)
		return
	}

	if status.Received < status.Size {
		return
	}

	path := f.Name()
	f.Close()
	d.mu.Lock()
	delete(d.files, data.StreamID)
	d.mu.Unlock()

	d.src.Register(data.StreamID, path)
	if err := transfer.WriteManifest(path+".json", transfer.Manifest{
		ID: data.StreamID, Size: status.Size, Received: status.Received,
	}); err != nil {
		slog.Error("couldn't write transfer manifest", "stream_id", data.StreamID, "err", err)
	}
	slog.Info("transfer complete", "id", data.StreamID, "path", path)
}

func (d *dispatcher) reportStatus(req tppseq.GetTransferStatus) {
	status, err := d.xfers.Status(req.ID)
	if err != nil {
		if serr := tppty.SendSequence(d.master, tppseq.NewNack(req, err.Error())); serr != nil {
			slog.Error("couldn't send nack", "err", serr)
		}
		return
	}
	if err := tppty.SendSequence(d.master, status); err != nil {
		slog.Error("couldn't send transfer status", "err", err)
	}
}

func serveViewer(src *viewer.FileSource) {
	if err := http.ListenAndServe(*viewerAddr, viewer.NewHandler(src)); err != nil {
		slog.Error("viewer bridge stopped", "err", err)
	}
}

// probeVersion decides which protocol version to advertise based on
// the local terminal's color capability, purely a demo policy: the
// wire Capabilities.Version field is an opaque number the spec doesn't
// define the meaning of beyond "protocol version".
func probeVersion() uint64 {
	profile := termenv.EnvColorProfile()
	dark := termenv.HasDarkBackground()
	slog.Info("probed terminal capabilities", "profile", profile, "dark_background", dark)

	if profile == termenv.TrueColor {
		return 2
	}
	return 1
}

func watchResize(master *tppty.UnixMaster) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	for range sig {
		w, h, err := term.GetSize(int(os.Stdin.Fd()))
		if err != nil {
			slog.Warn("couldn't read terminal size on resize", "err", err)
			continue
		}
		if err := master.Resize(w, h); err != nil {
			slog.Warn("couldn't propagate resize", "err", err)
		}
	}
}

func copyStdinTo(master *tppty.UnixMaster) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if err := master.Send(buf[:n]); err != nil {
				slog.Error("couldn't forward input", "err", err)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// clipboardSequence builds an OSC 52 clipboard-set escape sequence for
// text, the one concrete OSC sequence generator in the retrieval pack
// (go-osc52 arrives transitively via the teacher's termenv stack).
func clipboardSequence(text string) []byte {
	return buildOSC52(text)
}
