package tppseq

// Kind identifies the shape of a Sequence's payload. The on-wire
// representation is its zero-based ordinal encoded as decimal ASCII.
type Kind int

const (
	KindAck Kind = iota
	KindNack
	KindGetCapabilities
	KindCapabilities
	KindData
	KindOpenFileTransfer
	KindGetTransferStatus
	KindTransferStatus
	KindViewRemoteFile

	// KindInvalid is the sentinel for a frame that failed to parse,
	// or whose ordinal exceeds every known kind. It is never
	// produced by Emit.
	KindInvalid
)

// maxKnownKind is the highest ordinal with a defined payload shape.
// Anything above it is tolerated as KindInvalid for forward
// compatibility with newer senders.
const maxKnownKind = KindViewRemoteFile

func (k Kind) String() string {
	switch k {
	case KindAck:
		return "Ack"
	case KindNack:
		return "Nack"
	case KindGetCapabilities:
		return "GetCapabilities"
	case KindCapabilities:
		return "Capabilities"
	case KindData:
		return "Data"
	case KindOpenFileTransfer:
		return "OpenFileTransfer"
	case KindGetTransferStatus:
		return "GetTransferStatus"
	case KindTransferStatus:
		return "TransferStatus"
	case KindViewRemoteFile:
		return "ViewRemoteFile"
	default:
		return "Invalid"
	}
}
