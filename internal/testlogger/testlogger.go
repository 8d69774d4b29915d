// Package testlogger adapts testing.T to io.Writer, so that diagnostic
// output from a server or client under test is attributed to the test
// that produced it instead of going to stderr unconditionally.
package testlogger

import (
	"strings"
	"testing"
)

type writer struct {
	t *testing.T
}

func (w *writer) Write(p []byte) (int, error) {
	w.t.Logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// New returns an io.Writer that logs each write through t.Logf.
func New(t *testing.T) *writer {
	return &writer{t: t}
}
