package ttyosc

import (
	"reflect"
	"testing"
)

func TestParseFromWithNumber(t *testing.T) {
	buf := []byte("\x1b]0;hello\x07")
	got, consumed, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	want := Event{Number: 0, Values: []string{"hello"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseFromSTTerminator(t *testing.T) {
	buf := []byte("\x1b]52;c;dGVzdA==\x1b\\")
	got, consumed, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	want := Event{Number: 52, Values: []string{"c", "dGVzdA=="}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseFromNoNumber(t *testing.T) {
	buf := []byte("\x1b]hello\x07")
	got, _, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	if got.Number != NoNumber {
		t.Fatalf("Number = %d, want NoNumber", got.Number)
	}
	if !reflect.DeepEqual(got.Values, []string{"hello"}) {
		t.Fatalf("Values = %v", got.Values)
	}
}

func TestParseFromEmptyValueList(t *testing.T) {
	buf := []byte("\x1b]7;\x07")
	got, _, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	want := Event{Number: 7, Values: []string{""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseFromIncomplete(t *testing.T) {
	for _, buf := range [][]byte{
		[]byte("\x1b]"),
		[]byte("\x1b]0;hello"),
		[]byte("\x1b]0;hello\x1b"),
	} {
		_, consumed, incomplete := ParseFrom(buf)
		if !incomplete {
			t.Fatalf("buf %q: expected incomplete", buf)
		}
		if consumed != 0 {
			t.Fatalf("buf %q: consumed = %d, want 0", buf, consumed)
		}
	}
}

func TestParseFromDigitsWithoutSemicolonAreDropped(t *testing.T) {
	// No ';' follows the leading digits, so the number is left
	// unparsed (NoNumber) and the digits themselves are consumed,
	// not folded into the first value.
	buf := []byte("\x1b]12hello\x07")
	got, _, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	if got.Number != NoNumber {
		t.Fatalf("Number = %d, want NoNumber", got.Number)
	}
	if !reflect.DeepEqual(got.Values, []string{"hello"}) {
		t.Fatalf("Values = %v, want [hello]", got.Values)
	}
}

func TestParseFromMultipleValues(t *testing.T) {
	buf := []byte("\x1b]4;0;rgb:ff/00/00\x07")
	got, _, incomplete := ParseFrom(buf)
	if incomplete {
		t.Fatalf("unexpected incomplete")
	}
	want := Event{Number: 4, Values: []string{"0", "rgb:ff/00/00"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRoundTripSimpleInputs(t *testing.T) {
	cases := []Event{
		{Number: 0, Values: []string{"hello"}},
		{Number: 52, Values: []string{"c", "dGVzdA=="}},
		{Number: NoNumber, Values: []string{"plain"}},
		{Number: 4, Values: []string{"0", "rgb:ff/00/00"}},
	}
	for _, want := range cases {
		emitted := Emit(want.Number, want.Values)
		got, consumed, incomplete := ParseFrom(emitted)
		if incomplete {
			t.Fatalf("round trip %+v: unexpected incomplete", want)
		}
		if consumed != len(emitted) {
			t.Fatalf("round trip %+v: consumed %d, want %d", want, consumed, len(emitted))
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}
