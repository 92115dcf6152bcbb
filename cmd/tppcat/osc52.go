package main

import (
	"github.com/aymanbagabas/go-osc52/v2"
)

// buildOSC52 renders an OSC 52 clipboard-set sequence for text using
// go-osc52, the one pack dependency that is itself an OSC sequence
// generator — the concrete "real OSC sequence in the wild" fixture
// backing ttyosc's round-trip property (see osc52_test.go).
func buildOSC52(text string) []byte {
	return []byte(osc52.New(text).Clipboard(osc52.SystemClipboard).String())
}
