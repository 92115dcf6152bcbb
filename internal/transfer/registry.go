// Package transfer tracks in-flight t++ file transfers between the
// receipt of Data packets and a peer's GetTransferStatus query.
//
// The wire messages (OpenFileTransfer, Data, GetTransferStatus,
// TransferStatus) are defined by tppseq; this package supplies the
// bookkeeping an implementation needs to answer GetTransferStatus
// honestly, which spec.md scopes to the protocol core but does not
// itself define. It is grounded on the teacher's own in-flight
// bookkeeping idiom, fragmenter.Fragger: a registry keyed by id,
// storing partial state with a last-touched timestamp and a Clean-style
// sweep for stale entries.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tpp-project/tpp/tppseq"
)

// ErrUnknownTransfer is returned for any operation on an id that was
// never opened (or has already been swept).
var ErrUnknownTransfer = errors.New("transfer: unknown transfer id")

// ErrSizeMismatch is returned when a Data packet's declared size
// doesn't match its payload length. tppseq.ParseFrom already rejects
// this at the wire level (producing Invalid), so this only fires when
// Accept is called directly with a hand-built Data.
var ErrSizeMismatch = errors.New("transfer: Data.size does not match payload length")

type entry struct {
	req      tppseq.OpenFileTransfer
	received uint64
	last     time.Time
}

// Registry tracks transfers opened by OpenFileTransfer requests,
// accumulating bytes seen in Data packets until Received reaches the
// declared Size.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	txns   map[uint64]*entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{txns: make(map[uint64]*entry)}
}

// Open registers a newly requested transfer and returns the id future
// Data/GetTransferStatus calls must use to refer to it.
func (r *Registry) Open(req tppseq.OpenFileTransfer) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.txns[id] = &entry{req: req, last: time.Now()}
	return id
}

// Accept records a Data packet against id, returning the transfer's
// updated TransferStatus. It fails if id is unknown or if d's declared
// size disagrees with its payload length.
func (r *Registry) Accept(id uint64, d tppseq.Data) (tppseq.TransferStatus, error) {
	if d.Size != uint64(len(d.Payload)) {
		return tppseq.TransferStatus{}, ErrSizeMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.txns[id]
	if !ok {
		return tppseq.TransferStatus{}, fmt.Errorf("transfer %d: %w", id, ErrUnknownTransfer)
	}

	e.received += d.Size
	e.last = time.Now()

	return tppseq.TransferStatus{ID: id, Size: e.req.Size, Received: e.received}, nil
}

// Status reports the current progress of transfer id.
func (r *Registry) Status(id uint64) (tppseq.TransferStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.txns[id]
	if !ok {
		return tppseq.TransferStatus{}, fmt.Errorf("transfer %d: %w", id, ErrUnknownTransfer)
	}
	return tppseq.TransferStatus{ID: id, Size: e.req.Size, Received: e.received}, nil
}

// Complete reports whether transfer id has received its full declared
// size.
func (r *Registry) Complete(id uint64) (bool, error) {
	s, err := r.Status(id)
	if err != nil {
		return false, err
	}
	return s.Received >= s.Size, nil
}

// Close discards bookkeeping for id, returning the final status first.
// Callers typically call this once Complete reports true, after
// persisting a manifest with WriteManifest.
func (r *Registry) Close(id uint64) (tppseq.TransferStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.txns[id]
	if !ok {
		return tppseq.TransferStatus{}, fmt.Errorf("transfer %d: %w", id, ErrUnknownTransfer)
	}
	delete(r.txns, id)
	return tppseq.TransferStatus{ID: id, Size: e.req.Size, Received: e.received}, nil
}

// Sweep discards any transfer that hasn't seen a Data packet (or an
// Open) in more than maxAge, matching fragmenter.Fragger.Clean's
// staleness policy. It returns the number of transfers discarded.
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	swept := 0
	for id, e := range r.txns {
		if now.Sub(e.last) > maxAge {
			delete(r.txns, id)
			swept++
		}
	}
	return swept
}

// Manifest is the small, fixed-shape record persisted for a completed
// transfer. It is stdlib JSON by deliberate choice: nothing in the
// retrieval pack exercises a JSON field-patching library for a payload
// this small, so a throwaway struct plus encoding/json is the better
// fit than pulling in one for the sake of it.
type Manifest struct {
	ID         uint64 `json:"id"`
	RemoteHost string `json:"remote_host"`
	RemotePath string `json:"remote_path"`
	Size       uint64 `json:"size"`
	Received   uint64 `json:"received"`
}

// WriteManifest persists m as a JSON document at path.
func WriteManifest(path string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("transfer: couldn't marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("transfer: couldn't write manifest %q: %w", path, err)
	}
	return nil
}

// ReadManifest loads a previously written Manifest from path.
func ReadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("transfer: couldn't read manifest %q: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("transfer: couldn't parse manifest %q: %w", path, err)
	}
	return m, nil
}
