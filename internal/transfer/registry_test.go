package transfer

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tpp-project/tpp/tppseq"
)

func TestOpenAcceptStatus(t *testing.T) {
	r := NewRegistry()

	id := r.Open(tppseq.OpenFileTransfer{RemoteHost: "h", RemotePath: "/etc/motd", Size: 6})

	if _, err := r.Accept(id, tppseq.NewData(id, 0, []byte("abc"))); err != nil {
		t.Fatalf("Accept 1: %v", err)
	}
	status, err := r.Accept(id, tppseq.NewData(id, 1, []byte("def")))
	if err != nil {
		t.Fatalf("Accept 2: %v", err)
	}

	want := tppseq.TransferStatus{ID: id, Size: 6, Received: 6}
	if status != want {
		t.Errorf("status = %+v, want %+v", status, want)
	}

	complete, err := r.Complete(id)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !complete {
		t.Errorf("Complete = false, want true after receiving full size")
	}
}

func TestAcceptUnknownID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Accept(99, tppseq.NewData(99, 0, []byte("x"))); !errors.Is(err, ErrUnknownTransfer) {
		t.Errorf("err = %v, want ErrUnknownTransfer (wrapped)", err)
	}
}

func TestAcceptSizeMismatch(t *testing.T) {
	r := NewRegistry()
	id := r.Open(tppseq.OpenFileTransfer{Size: 10})

	bad := tppseq.Data{StreamID: id, Packet: 0, Size: 5, Payload: []byte("abc")}
	if _, err := r.Accept(id, bad); err != ErrSizeMismatch {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestSweep(t *testing.T) {
	r := NewRegistry()
	id := r.Open(tppseq.OpenFileTransfer{Size: 1})
	r.txns[id].last = time.Now().Add(-2 * time.Minute)

	if swept := r.Sweep(time.Minute); swept != 1 {
		t.Fatalf("Sweep = %d, want 1", swept)
	}
	if _, err := r.Status(id); err == nil {
		t.Errorf("Status after sweep succeeded, want an error")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transfer.json")

	want := Manifest{ID: 3, RemoteHost: "host", RemotePath: "/tmp/x", Size: 10, Received: 10}
	if err := WriteManifest(path, want); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got != want {
		t.Errorf("ReadManifest = %+v, want %+v", got, want)
	}
}
