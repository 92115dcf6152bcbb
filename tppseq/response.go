package tppseq

// Response is a two-alternative value: either a successful result T
// (one of the sequence kinds acting as a response — Ack, Capabilities,
// TransferStatus, and so on) or a Nack. It owns exactly one of the two
// alternatives.
//
// The wire never distinguishes a "bare" sequence from one carried
// inside a Response: Emit(r) serialises whichever alternative r holds
// exactly as that alternative would serialise on its own. The
// envelope exists purely for API clarity on the construction side.
type Response[T Sequence] struct {
	value T
	nack  Nack
	valid bool
}

// Accept builds a successful Response holding value.
func Accept[T Sequence](value T) Response[T] {
	return Response[T]{value: value, valid: true}
}

// Deny builds a Response holding a Nack built from req and reason.
func Deny[T Sequence](req Sequence, reason string) Response[T] {
	return Response[T]{nack: NewNack(req, reason)}
}

// Valid reports whether the Response holds a successful T rather than
// a Nack.
func (r Response[T]) Valid() bool { return r.valid }

// Result returns the held T. Callers must check Valid first; the zero
// value of T is returned otherwise.
func (r Response[T]) Result() T { return r.value }

// Nack returns the held Nack. Callers must check !Valid first; the
// zero value of Nack is returned otherwise.
func (r Response[T]) Nack() Nack { return r.nack }

// Sequence returns whichever alternative the Response holds, for
// serialisation or logging.
func (r Response[T]) Sequence() Sequence {
	if r.valid {
		return r.value
	}
	return r.nack
}

// EmitResponse serialises r's held alternative as a complete t++
// frame.
func EmitResponse[T Sequence](r Response[T]) []byte {
	return Emit(r.Sequence())
}
