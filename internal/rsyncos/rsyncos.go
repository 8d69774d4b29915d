// Package rsyncos is the host seam: the set of OS-level collaborators
// (the standard streams) a session needs but which the session
// itself never constructs, so tests and alternate hosts (daemon, CLI,
// in-process client) can supply their own.
package rsyncos

import "io"

// Std bundles the standard streams a transfer may write human-readable
// output to. Any field may be nil; callers check before writing.
type Std struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}
