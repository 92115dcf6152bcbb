// Package viewer bridges a completed t++ file transfer to a remote
// viewer over a websocket. ViewRemoteFile (tppseq.ViewRemoteFile) is
// defined by the protocol as a bare id; this package is the
// PTY-adjacent transport concern of actually serving the bytes that id
// refers to once a transfer has completed, since the UI-side rendering
// behavior remains out of scope.
//
// Grounded on gastownhall-tmux-adapter's wsbase.AcceptWebSocket
// pattern: websocket.Accept, then stream chunks as binary messages.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"nhooyr.io/websocket"
)

const chunkSize = 32 * 1024

// Source resolves a transfer id to the bytes of its completed
// transfer. FileSource is the concrete implementation used by
// cmd/tppcat; tests substitute their own.
type Source interface {
	Open(id uint64) (io.ReadCloser, error)
}

// FileSource serves completed transfers from local paths registered
// with Register, typically the spool file a completed transfer was
// written to (the path of its manifest without the ".json" suffix).
type FileSource struct {
	mu    sync.Mutex
	paths map[uint64]string
}

// NewFileSource returns an empty FileSource.
func NewFileSource() *FileSource {
	return &FileSource{paths: make(map[uint64]string)}
}

// Register associates id with the local file at path, making it
// available to subsequent viewer requests.
func (f *FileSource) Register(id uint64, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[id] = path
}

func (f *FileSource) Open(id uint64) (io.ReadCloser, error) {
	f.mu.Lock()
	path, ok := f.paths[id]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("viewer: no completed transfer for id %d", id)
	}
	return os.Open(path)
}

// Handler serves ViewRemoteFile requests over a websocket, streaming
// the resolved Source content as binary messages until EOF.
type Handler struct {
	src Source
}

// NewHandler returns a Handler resolving content through src.
func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

// ServeHTTP expects a "id" query parameter naming the transfer id
// (matching tppseq.ViewRemoteFile.ID) and upgrades the request to a
// websocket, then streams the file in chunkSize pieces.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad id %q: %v", idStr, err), http.StatusBadRequest)
		return
	}

	rc, err := h.src.Open(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer rc.Close()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("viewer: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	buf := make([]byte, chunkSize)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			if werr := conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
				slog.Error("viewer: write failed", "id", id, "err", werr)
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			slog.Error("viewer: read failed", "id", id, "err", err)
			conn.Close(websocket.StatusInternalError, "read failed")
			return
		}
	}
}

// manifestStub mirrors just the id field of transfer.Manifest. viewer
// does not import internal/transfer (doing so would not create an
// import cycle, since transfer doesn't need viewer), which keeps the
// watcher free of transfer's richer bookkeeping types and usable
// against any directory of "<path>.json" manifests.
type manifestStub struct {
	ID uint64 `json:"id"`
}

// WatchSpool watches dir for completed-transfer manifests
// ("<path>.json" files, as written by transfer.WriteManifest) and
// registers each one's underlying data file with src as it appears,
// plus adopts any manifests already present at call time. This lets a
// FileSource recover transfers completed by an earlier process
// instance, or registered by a sibling process sharing the same spool
// directory, without both needing to share in-process state.
//
// Grounded on gastownhall-tmux-adapter's conv.watchDirectories:
// fsnotify.NewWatcher, Add(dir), and a goroutine draining
// watcher.Events for fsnotify.Create.
func WatchSpool(ctx context.Context, dir string, src *FileSource) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("viewer: couldn't create spool watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("viewer: couldn't watch %q: %w", dir, err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			adoptManifest(filepath.Join(dir, e.Name()), src)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) && strings.HasSuffix(ev.Name, ".json") {
					adoptManifest(ev.Name, src)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("viewer: spool watch error", "err", err)
			}
		}
	}()

	return watcher, nil
}

func adoptManifest(manifestPath string, src *FileSource) {
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		slog.Warn("viewer: couldn't read manifest", "path", manifestPath, "err", err)
		return
	}
	var m manifestStub
	if err := json.Unmarshal(b, &m); err != nil {
		slog.Warn("viewer: couldn't parse manifest", "path", manifestPath, "err", err)
		return
	}
	src.Register(m.ID, strings.TrimSuffix(manifestPath, ".json"))
}

// Dial connects to a viewer endpoint and copies the streamed content to
// dst until the peer closes the connection, for use by cmd/tppview.
func Dial(ctx context.Context, url string, dst io.Writer) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("viewer: dial %q: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("viewer: read: %w", err)
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if _, err := dst.Write(data); err != nil {
			return fmt.Errorf("viewer: write to dst: %w", err)
		}
	}
}
