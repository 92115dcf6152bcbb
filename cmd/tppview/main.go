// Command tppview is the remote-file-viewing bridge client: it dials
// the internal/viewer websocket endpoint serving a completed t++ file
// transfer and copies the streamed bytes to stdout. It is the "some
// viewer" spec.md leaves undefined for ViewRemoteFile — no rendering
// happens here, only the bytes are delivered.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tpp-project/tpp/internal/tpplog"
	"github.com/tpp-project/tpp/internal/viewer"
)

var (
	addr    = flag.String("addr", "localhost:8787", "host:port of the tppcat viewer bridge.")
	id      = flag.Uint64("id", 0, "Transfer id to view, matching tppseq.ViewRemoteFile.ID.")
	logfile = flag.String("logfile", "", "If set, logs will be written to this file.")
	debug   = flag.Bool("debug", false, "If true, enable DEBUG log level.")
)

func main() {
	flag.Parse()

	if err := tpplog.Setup(*logfile, *debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	url := fmt.Sprintf("ws://%s/?id=%d", *addr, *id)
	if err := viewer.Dial(context.Background(), url, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
