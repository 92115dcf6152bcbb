package tppseq

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, seq Sequence) Sequence {
	t.Helper()
	emitted := Emit(seq)
	got, consumed, incomplete := ParseFrom(emitted)
	if incomplete {
		t.Fatalf("ParseFrom reported incomplete for a full frame: %q", emitted)
	}
	if consumed != len(emitted) {
		t.Fatalf("consumed %d, want %d (frame %q)", consumed, len(emitted), emitted)
	}
	return got
}

func TestRoundTripAllKinds(t *testing.T) {
	cases := []Sequence{
		Ack{Request: "foo", ID: 42},
		Nack{Request: "bar", Reason: "nope"},
		GetCapabilities{},
		Capabilities{Version: 3},
		NewData(1, 0, []byte("a`b")),
		OpenFileTransfer{RemoteHost: "host", RemotePath: "/etc/passwd", Size: 99},
		GetTransferStatus{ID: 7},
		TransferStatus{ID: 7, Size: 100, Received: 42},
		ViewRemoteFile{ID: 7},
	}

	for _, want := range cases {
		got := roundTrip(t, want)
		// Data holds a []byte, so it cannot be compared with != and is
		// checked field by field instead.
		if d, ok := want.(Data); ok {
			gd := got.(Data)
			if gd.StreamID != d.StreamID || gd.Packet != d.Packet || gd.Size != d.Size || !bytes.Equal(gd.Payload, d.Payload) {
				t.Errorf("Data round trip mismatch: got %+v, want %+v", gd, d)
			}
			continue
		}
		if got != want {
			t.Errorf("round trip mismatch: got %#v, want %#v", got, want)
		}
	}
}

func TestAckWireFormatMatchesSpecExample(t *testing.T) {
	seq := Ack{Request: "foo", ID: 42}
	got := Emit(seq)
	want := []byte{ESC, 'P', '+'}
	want = append(want, "0;3;foo;42"...)
	want = append(want, BEL)
	if !bytes.Equal(got, want) {
		t.Fatalf("Emit(Ack) = %q, want %q", got, want)
	}
}

func TestDataPayloadEscapesBacktick(t *testing.T) {
	seq := NewData(1, 0, []byte("a`b"))
	emitted := Emit(seq)
	if !bytes.Contains(emitted, []byte("a`60b")) {
		t.Fatalf("Emit(Data) = %q, want it to contain the escaped backtick a`60b", emitted)
	}
}

func TestDataPayloadFidelityWithBELAndBacktick(t *testing.T) {
	payload := []byte{'a', 0x07, '`', 'z'}
	seq := NewData(9, 1, payload)
	got := roundTrip(t, seq).(Data)
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("payload = %q, want %q", got.Payload, payload)
	}
}

func TestForwardCompatibilityIgnoresTrailingFields(t *testing.T) {
	seq := Capabilities{Version: 3}
	emitted := Emit(seq)
	// Splice ";99;99" in before the terminator, simulating a newer
	// sender that appended extra fields this receiver doesn't know
	// about.
	spliced := append([]byte{}, emitted[:len(emitted)-1]...)
	spliced = append(spliced, ";99;99"...)
	spliced = append(spliced, BEL)

	got, consumed, incomplete := ParseFrom(spliced)
	if incomplete {
		t.Fatalf("ParseFrom reported incomplete")
	}
	if consumed != len(spliced) {
		t.Fatalf("consumed %d, want %d", consumed, len(spliced))
	}
	cap, ok := got.(Capabilities)
	if !ok || cap.Version != 3 {
		t.Fatalf("got %#v, want Capabilities{Version: 3}", got)
	}
}

func TestForwardCompatibilityArbitrarySuffix(t *testing.T) {
	seq := GetTransferStatus{ID: 5}
	emitted := Emit(seq)
	for _, suffix := range [][]byte{[]byte(";extra"), []byte("junk-no-separator"), []byte(";;;")} {
		spliced := append([]byte{}, emitted[:len(emitted)-1]...)
		spliced = append(spliced, suffix...)
		spliced = append(spliced, BEL)

		got, consumed, incomplete := ParseFrom(spliced)
		if incomplete {
			t.Fatalf("incomplete for suffix %q", suffix)
		}
		if consumed != len(spliced) {
			t.Fatalf("consumed %d, want %d for suffix %q", consumed, len(spliced), suffix)
		}
		gs, ok := got.(GetTransferStatus)
		if !ok || gs.ID != 5 {
			t.Fatalf("got %#v for suffix %q, want GetTransferStatus{ID: 5}", got, suffix)
		}
	}
}

func TestParseFromTruncatedInput(t *testing.T) {
	// "ESC P + 1" with no terminator: the kind byte is there but the
	// frame hasn't ended yet.
	buf := append(append([]byte{}, LeadIn...), '1')
	seq, consumed, incomplete := ParseFrom(buf)
	if !incomplete {
		t.Fatalf("expected incomplete, got seq=%#v consumed=%d", seq, consumed)
	}
	if consumed != 0 {
		t.Fatalf("consumed = %d, want 0 on incomplete", consumed)
	}
}

func TestParseFromUnknownKindIsInvalid(t *testing.T) {
	buf := append(append([]byte{}, LeadIn...), "255"...)
	buf = append(buf, BEL)
	got, consumed, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("expected a complete (if invalid) frame")
	}
	if consumed != len(buf) {
		t.Fatalf("consumed %d, want %d", consumed, len(buf))
	}
	if got.Kind() != KindInvalid {
		t.Fatalf("got kind %v, want Invalid", got.Kind())
	}
}

func TestParseFromDataSizeMismatchIsProtocolError(t *testing.T) {
	seq := NewData(1, 0, []byte("abc"))
	emitted := Emit(seq)
	// Corrupt the size field (3 -> 9) while leaving the payload alone.
	corrupted := bytes.Replace(emitted, []byte("3;abc"), []byte("9;abc"), 1)
	got, _, incomplete := ParseFrom(corrupted)
	if incomplete {
		t.Fatalf("expected a complete (if invalid) frame")
	}
	if got.Kind() != KindInvalid {
		t.Fatalf("got kind %v, want Invalid on size mismatch", got.Kind())
	}
}

func TestFindSequenceStartIdempotent(t *testing.T) {
	buf := []byte("garbage before ")
	buf = append(buf, Emit(GetCapabilities{})...)
	start := FindSequenceStart(buf)
	if start == len(buf) {
		t.Fatalf("expected to find the lead-in")
	}
	again := FindSequenceStart(buf[start:])
	if again != 0 {
		t.Fatalf("FindSequenceStart on the located suffix = %d, want 0", again)
	}
}

func TestFindSequenceStartNoneFound(t *testing.T) {
	buf := []byte("plain terminal output, no lead-in here")
	if got := FindSequenceStart(buf); got != len(buf) {
		t.Fatalf("FindSequenceStart = %d, want %d", got, len(buf))
	}
}

func TestResponseAcceptAndDeny(t *testing.T) {
	ack := NewAck(GetCapabilities{}, 1)
	r := Accept[Ack](ack)
	if !r.Valid() || r.Result() != ack {
		t.Fatalf("Accept round trip failed")
	}
	if !bytes.Equal(EmitResponse(r), Emit(ack)) {
		t.Fatalf("EmitResponse(accepted) != Emit(ack)")
	}

	req := GetCapabilities{}
	denied := Deny[Ack](req, "no capabilities available")
	if denied.Valid() {
		t.Fatalf("Deny produced a valid response")
	}
	if !bytes.Equal(EmitResponse(denied), Emit(denied.Nack())) {
		t.Fatalf("EmitResponse(denied) != Emit(nack)")
	}
}

func TestPrettyPrintEscapesControlBytes(t *testing.T) {
	got := PrettyPrint([]byte{'a', '\n', 0x07, 'b', '\t'})
	want := `a\n\x07b\t`
	if got != want {
		t.Fatalf("PrettyPrint = %q, want %q", got, want)
	}
}
