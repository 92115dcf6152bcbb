// Package tppdemux demultiplexes a single byte stream that carries
// three kinds of content at once: classical terminal output, OSC
// escape sequences (ESC ]), and t++ frames (ESC P +). It generalizes
// the scan/dispatch shape of a VT parser (intermediate bytes
// collected, a dispatcher invoked per recognized unit) to the coarser
// grain spec.md calls for: the three lead-ins are fixed literal byte
// runs rather than a full escape-sequence state table, so the scanner
// only needs to find the earliest one and hand off to the matching
// parser.
package tppdemux

import (
	"github.com/tpp-project/tpp/tppseq"
	"github.com/tpp-project/tpp/ttyosc"
)

const esc = 0x1b

// Dispatcher receives the three kinds of content a Scanner can
// produce.
type Dispatcher interface {
	// RawText is called with a run of bytes that is plain terminal
	// output: neither an OSC nor a t++ frame.
	RawText(p []byte)
	// OSC is called with a fully parsed OSC event.
	OSC(ev ttyosc.Event)
	// Sequence is called with a fully parsed t++ sequence (or
	// tppseq.Invalid, if the frame was malformed).
	Sequence(seq tppseq.Sequence)
}

// Scanner consumes bytes fed via Feed and routes complete frames to a
// Dispatcher, retaining any incomplete trailing frame until more
// bytes arrive.
type Scanner struct {
	buf []byte
	d   Dispatcher
}

// NewScanner returns a Scanner that reports to d.
func NewScanner(d Dispatcher) *Scanner {
	return &Scanner{d: d}
}

// Feed appends p to the internal buffer and drains as many complete
// units as possible to the Dispatcher.
func (s *Scanner) Feed(p []byte) {
	s.buf = append(s.buf, p...)
	s.drain()
}

// Pending returns the bytes currently buffered awaiting completion of
// an in-flight frame (for diagnostics/tests only).
func (s *Scanner) Pending() []byte {
	return s.buf
}

func (s *Scanner) drain() {
	for len(s.buf) > 0 {
		pos, kind, partial := scanLeadIn(s.buf)
		if pos > 0 {
			s.d.RawText(s.buf[:pos])
		}
		if partial {
			s.buf = s.buf[pos:]
			return
		}
		if kind == leadNone {
			// No lead-in anywhere in the buffer; everything was
			// already flushed as raw text above.
			s.buf = nil
			return
		}

		rest := s.buf[pos:]
		switch kind {
		case leadOSC:
			ev, consumed, incomplete := ttyosc.ParseFrom(rest)
			if incomplete {
				s.buf = rest
				return
			}
			s.d.OSC(ev)
			s.buf = rest[consumed:]
		case leadSeq:
			seq, consumed, incomplete := tppseq.ParseFrom(rest)
			if incomplete {
				s.buf = rest
				return
			}
			s.d.Sequence(seq)
			s.buf = rest[consumed:]
		}
	}
}

type leadKind int

const (
	leadNone leadKind = iota
	leadOSC
	leadSeq
)

// scanLeadIn returns the position of the earliest recognized lead-in
// in buf. If the buffer ends with a byte run that could be the
// prefix of a lead-in still arriving (a lone ESC, or ESC 'P' without
// its '+'), it reports partial=true and pos pointing at the start of
// that run, so the caller holds those bytes back rather than treating
// them as raw text.
func scanLeadIn(buf []byte) (pos int, kind leadKind, partial bool) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != esc {
			continue
		}
		if i+1 == len(buf) {
			return i, leadNone, true
		}
		switch buf[i+1] {
		case ']':
			return i, leadOSC, false
		case 'P':
			if i+2 == len(buf) {
				return i, leadNone, true
			}
			if buf[i+2] == '+' {
				return i, leadSeq, false
			}
			// ESC 'P' without '+' is some other DCS sequence we
			// don't interpret; keep scanning past it.
		}
	}
	return len(buf), leadNone, false
}
