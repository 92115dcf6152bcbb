// Package tppseq implements the t++ sequence layer: a discriminated
// union of message kinds, serialisation to the ESC P + ... BEL outer
// frame, and a streaming decoder that locates and parses frames in an
// arbitrary byte buffer.
//
// The wire format is fixed by the protocol spec: lead-in, decimal
// kind ordinal, per-kind fields encoded with the tppcodec primitives,
// terminator. Unknown higher ordinals and unrecognised trailing bytes
// within a known frame are tolerated so that newer senders can add
// fields without breaking older receivers. The exception is Data: its
// payload runs up to the terminator, so bytes appended after it become
// part of the payload and the frame fails the size check (Invalid).
package tppseq

import (
	"fmt"

	"github.com/tpp-project/tpp/tppcodec"
)

// ESC and BEL are the bytes that frame every t++ sequence.
const (
	ESC = 0x1B
	BEL = tppcodec.Terminator
)

// LeadIn is the three-byte prefix ("\x1bP+") that opens a t++ frame.
var LeadIn = []byte{ESC, 'P', '+'}

// Sequence is the common interface implemented by every message kind.
type Sequence interface {
	Kind() Kind
	appendFields(buf []byte) []byte
}

// Ack acknowledges a prior request.
type Ack struct {
	Request string
	ID      uint64
}

func (Ack) Kind() Kind { return KindAck }

func (a Ack) appendFields(buf []byte) []byte {
	buf = tppcodec.WriteString(buf, a.Request)
	return tppcodec.WriteUnsignedNoSep(buf, a.ID)
}

// NewAck builds an Ack in response to req, capturing req's serialised
// payload as the Request field.
func NewAck(req Sequence, id uint64) Ack {
	return Ack{Request: payloadString(req), ID: id}
}

// Nack negatively acknowledges a prior request, with a human-readable
// reason.
type Nack struct {
	Request string
	Reason  string
}

func (Nack) Kind() Kind { return KindNack }

func (n Nack) appendFields(buf []byte) []byte {
	buf = tppcodec.WriteString(buf, n.Request)
	return tppcodec.WriteString(buf, n.Reason)
}

// NewNack builds a Nack in response to req.
func NewNack(req Sequence, reason string) Nack {
	return Nack{Request: payloadString(req), Reason: reason}
}

// GetCapabilities requests the peer's capabilities. It carries no
// fields.
type GetCapabilities struct{}

func (GetCapabilities) Kind() Kind                      { return KindGetCapabilities }
func (GetCapabilities) appendFields(buf []byte) []byte  { return buf }

// Capabilities describes the peer's protocol version.
type Capabilities struct {
	Version uint64
}

func (Capabilities) Kind() Kind { return KindCapabilities }

func (c Capabilities) appendFields(buf []byte) []byte {
	return tppcodec.WriteUnsignedNoSep(buf, c.Version)
}

// Data carries a chunk of an in-progress transfer. Size must equal
// len(Payload); a receiver that finds otherwise treats the frame as a
// protocol error (see the Data sequence's duplicated size field note
// in the protocol design notes).
type Data struct {
	StreamID uint64
	Packet   uint64
	Size     uint64
	Payload  []byte
}

func (Data) Kind() Kind { return KindData }

func (d Data) appendFields(buf []byte) []byte {
	buf = tppcodec.WriteUnsigned(buf, d.StreamID)
	buf = tppcodec.WriteUnsigned(buf, d.Packet)
	buf = tppcodec.WriteUnsigned(buf, uint64(len(d.Payload)))
	return tppcodec.EncodeBuffer(buf, d.Payload)
}

// NewData builds a Data sequence whose Size field is derived from the
// payload, so the round-trip invariant holds by construction.
func NewData(streamID, packet uint64, payload []byte) Data {
	return Data{StreamID: streamID, Packet: packet, Size: uint64(len(payload)), Payload: payload}
}

// OpenFileTransfer requests that a remote file be transferred.
type OpenFileTransfer struct {
	RemoteHost string
	RemotePath string
	Size       uint64
}

func (OpenFileTransfer) Kind() Kind { return KindOpenFileTransfer }

func (o OpenFileTransfer) appendFields(buf []byte) []byte {
	buf = tppcodec.WriteString(buf, o.RemoteHost)
	buf = tppcodec.WriteString(buf, o.RemotePath)
	return tppcodec.WriteUnsignedNoSep(buf, o.Size)
}

// GetTransferStatus asks for the progress of transfer ID.
type GetTransferStatus struct {
	ID uint64
}

func (GetTransferStatus) Kind() Kind { return KindGetTransferStatus }

func (g GetTransferStatus) appendFields(buf []byte) []byte {
	return tppcodec.WriteUnsignedNoSep(buf, g.ID)
}

// TransferStatus reports the progress of a file transfer.
type TransferStatus struct {
	ID       uint64
	Size     uint64
	Received uint64
}

func (TransferStatus) Kind() Kind { return KindTransferStatus }

func (t TransferStatus) appendFields(buf []byte) []byte {
	buf = tppcodec.WriteUnsigned(buf, t.ID)
	buf = tppcodec.WriteUnsigned(buf, t.Size)
	return tppcodec.WriteUnsignedNoSep(buf, t.Received)
}

// ViewRemoteFile asks the peer to open a previously transferred file
// in view mode.
type ViewRemoteFile struct {
	ID uint64
}

func (ViewRemoteFile) Kind() Kind { return KindViewRemoteFile }

func (v ViewRemoteFile) appendFields(buf []byte) []byte {
	return tppcodec.WriteUnsignedNoSep(buf, v.ID)
}

// Invalid is the in-memory sentinel for a frame that failed to parse
// or whose ordinal isn't known. It is never produced by Emit.
type Invalid struct {
	// Reason is diagnostic only; it never reaches the wire.
	Reason string
}

func (Invalid) Kind() Kind                     { return KindInvalid }
func (Invalid) appendFields(buf []byte) []byte { return buf }

func encodePayload(seq Sequence) []byte {
	buf := []byte(fmt.Sprintf("%d", int(seq.Kind())))
	fields := seq.appendFields(nil)
	if len(fields) > 0 {
		buf = append(buf, tppcodec.Separator)
		buf = append(buf, fields...)
	}
	return buf
}

func payloadString(seq Sequence) string {
	return string(encodePayload(seq))
}

// Emit serialises seq into a complete t++ frame: lead-in, kind
// ordinal, fields, terminator.
func Emit(seq Sequence) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, LeadIn...)
	buf = append(buf, encodePayload(seq)...)
	return append(buf, BEL)
}

// FindSequenceStart returns the index of the earliest t++ lead-in
// (ESC P +) in buf, or len(buf) if none is present.
func FindSequenceStart(buf []byte) int {
	for i := 0; i+len(LeadIn) <= len(buf); i++ {
		if buf[i] == LeadIn[0] && buf[i+1] == LeadIn[1] && buf[i+2] == LeadIn[2] {
			return i
		}
	}
	return len(buf)
}

// FindSequenceEnd returns the index of the earliest BEL at or after
// offset, or len(buf) if the frame is incomplete.
func FindSequenceEnd(buf []byte, offset int) int {
	for i := offset; i < len(buf); i++ {
		if buf[i] == BEL {
			return i
		}
	}
	return len(buf)
}

// ParseFrom decodes a single t++ frame from the start of buf (buf[0:3]
// must be the lead-in; callers locate it first with
// FindSequenceStart). It returns the decoded sequence (or Invalid on
// a malformed frame), the number of bytes consumed, and whether the
// frame was incomplete — in which case consumed is 0 and the caller
// should read more bytes before retrying with the same buf.
func ParseFrom(buf []byte) (seq Sequence, consumed int, incomplete bool) {
	if len(buf) < len(LeadIn) {
		return nil, 0, true
	}
	belIdx := FindSequenceEnd(buf, len(LeadIn))
	if belIdx == len(buf) {
		return nil, 0, true
	}
	return decodeFrame(buf, len(LeadIn), belIdx), belIdx + 1, false
}

func decodeFrame(buf []byte, offset, belIdx int) Sequence {
	kindStart := offset
	for offset < belIdx && buf[offset] >= '0' && buf[offset] <= '9' {
		offset++
	}
	if offset == kindStart {
		return Invalid{Reason: "missing kind ordinal"}
	}
	n := 0
	for _, b := range buf[kindStart:offset] {
		n = n*10 + int(b-'0')
	}

	hasFields := false
	if offset < belIdx && buf[offset] == tppcodec.Separator {
		offset++
		hasFields = true
	}

	if n > int(maxKnownKind) {
		return Invalid{Reason: "unknown kind ordinal"}
	}
	k := Kind(n)

	if !hasFields {
		// Zero-field frame. Any kind that requires fields and
		// arrives with none is a malformed frame; kinds with no
		// fields are simply done (forward-compatible senders may
		// still have appended trailing junk without a separator,
		// but without one there is no way to find a field
		// boundary, so we only accept this shape for the
		// genuinely fieldless kind).
		if k == KindGetCapabilities {
			return GetCapabilities{}
		}
		return Invalid{Reason: "missing fields for " + k.String()}
	}

	switch k {
	case KindGetCapabilities:
		// Forward-compatible senders may attach junk fields to a
		// kind that has none; ignore them entirely.
		return GetCapabilities{}
	case KindAck:
		req, o, err := tppcodec.ReadString(buf, offset)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		id, _, err := tppcodec.ReadUnsignedOptionalSep(buf, o, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return Ack{Request: req, ID: id}
	case KindNack:
		req, o, err := tppcodec.ReadString(buf, offset)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		reason, _, err := tppcodec.ReadString(buf, o)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return Nack{Request: req, Reason: reason}
	case KindCapabilities:
		v, _, err := tppcodec.ReadUnsignedOptionalSep(buf, offset, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return Capabilities{Version: v}
	case KindData:
		streamID, o, err := tppcodec.ReadUnsigned(buf, offset)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		packet, o2, err := tppcodec.ReadUnsigned(buf, o)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		size, o3, err := tppcodec.ReadUnsigned(buf, o2)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		payload, err := tppcodec.DecodeBuffer(buf, o3, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		if uint64(len(payload)) != size {
			return Invalid{Reason: "Data size field does not match payload length"}
		}
		return Data{StreamID: streamID, Packet: packet, Size: size, Payload: payload}
	case KindOpenFileTransfer:
		host, o, err := tppcodec.ReadString(buf, offset)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		path, o2, err := tppcodec.ReadString(buf, o)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		size, _, err := tppcodec.ReadUnsignedOptionalSep(buf, o2, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return OpenFileTransfer{RemoteHost: host, RemotePath: path, Size: size}
	case KindGetTransferStatus:
		id, _, err := tppcodec.ReadUnsignedOptionalSep(buf, offset, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return GetTransferStatus{ID: id}
	case KindTransferStatus:
		id, o, err := tppcodec.ReadUnsigned(buf, offset)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		size, o2, err := tppcodec.ReadUnsigned(buf, o)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		received, _, err := tppcodec.ReadUnsignedOptionalSep(buf, o2, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return TransferStatus{ID: id, Size: size, Received: received}
	case KindViewRemoteFile:
		id, _, err := tppcodec.ReadUnsignedOptionalSep(buf, offset, belIdx)
		if err != nil {
			return Invalid{Reason: err.Error()}
		}
		return ViewRemoteFile{ID: id}
	default:
		return Invalid{Reason: "unhandled known kind"}
	}
}
