// Package ttyosc implements a streaming parser for classical
// Operating System Command (OSC) escape sequences sharing the same
// byte stream as t++ frames and raw terminal output.
//
// Wire shape: ESC ] [<number> ;] <arg0> [; <arg1> ...] (BEL | ESC \)
package ttyosc

import "strconv"

// Sentinel values used in place of exceptions for "no number" and
// "need more bytes".
const (
	// NoNumber means the sequence had no leading decimal number.
	NoNumber = -1
	// Incomplete-ness is reported out of band via ParseFrom's third
	// return value rather than encoded into Number, but callers that
	// only have an Event (no incomplete flag) can use this sentinel
	// to recognise one that was never filled in.
	Incomplete = -2
)

const (
	esc = 0x1b
	bel = 0x07
)

// Event is one parsed OSC sequence: an optional command number and
// an ordered list of semicolon-separated string values.
type Event struct {
	Number int
	Values []string
}

// ParseFrom parses a single OSC sequence starting at the beginning of
// buf (buf[0:2] must be ESC ']'; callers locate that lead-in
// themselves, mirroring tppseq.FindSequenceStart). It returns the
// parsed event, the number of bytes consumed, and whether the buffer
// ended before a terminator was found — in which case consumed is 0,
// the event's Number is Incomplete, and the caller should read more
// bytes and retry with the same buf.
//
// Values are split on every ';'. There is no escape for a ';' inside
// a value, so senders must keep that byte out of values.
//
// An empty value list (terminator immediately after the number
// separator, or immediately after the lead-in if there was no number)
// yields a single empty string, matching the original parser's
// behaviour.
func ParseFrom(buf []byte) (event Event, consumed int, incomplete bool) {
	if len(buf) < 2 {
		return Event{Number: Incomplete}, 0, true
	}
	x := 2 // skip ESC ]
	if x == len(buf) {
		return Event{Number: Incomplete}, 0, true
	}

	number := NoNumber
	if isDigit(buf[x]) {
		start := x
		for x < len(buf) && isDigit(buf[x]) {
			x++
		}
		// The digits are consumed either way; if no ';' follows them
		// they are simply dropped rather than becoming part of the
		// first value, matching the reference parser.
		if x < len(buf) && buf[x] == ';' {
			n := 0
			for _, b := range buf[start:x] {
				n = n*10 + int(b-'0')
			}
			number = n
			x++
		}
	}

	valueStart := x
	var values []string
	for {
		if x == len(buf) {
			return Event{Number: Incomplete}, 0, true
		}
		switch {
		case buf[x] == bel:
			values = append(values, string(buf[valueStart:x]))
			return Event{Number: number, Values: values}, x + 1, false
		case buf[x] == esc && x+1 < len(buf) && buf[x+1] == '\\':
			values = append(values, string(buf[valueStart:x]))
			return Event{Number: number, Values: values}, x + 2, false
		case buf[x] == esc && x+1 == len(buf):
			// Might be the start of an ST that hasn't arrived yet.
			return Event{Number: Incomplete}, 0, true
		case buf[x] == ';':
			values = append(values, string(buf[valueStart:x]))
			x++
			valueStart = x
		default:
			x++
		}
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Emit serialises an Event back onto the wire, BEL-terminated. It is
// the inverse of ParseFrom for the well-behaved subset of inputs
// described by the OSC round-trip property: numbers >= 0 and values
// containing none of ';', BEL, or ESC.
func Emit(number int, values []string) []byte {
	buf := []byte{esc, ']'}
	if number >= 0 {
		buf = append(buf, strconv.Itoa(number)...)
		buf = append(buf, ';')
	}
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ';')
		}
		buf = append(buf, v...)
	}
	return append(buf, bel)
}
