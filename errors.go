package grsync

import (
	"errors"

	"github.com/opensync/grsync/internal/rsyncwire"
)

// Error kinds from §7 of the protocol design. Transport- and protocol-level
// errors are fatal to the session; per-file errors (a whole-file digest
// mismatch, a local filesystem error) are recorded by the caller and do not
// abort the transfer.
var (
	// ErrShortRead is returned when the stream ends or fails mid-record.
	ErrShortRead = rsyncwire.ErrShortRead

	// ErrFlistMalformed is returned when file-list wire bytes violate the
	// canonical-path or ordering rules.
	ErrFlistMalformed = rsyncwire.ErrFlistMalformed

	// ErrMuxFrame is returned for a malformed multiplex header or an
	// oversize out-of-band frame.
	ErrMuxFrame = rsyncwire.ErrMuxFrame

	// ErrProtocolVersion is returned when the peer advertises a protocol
	// version this implementation does not speak.
	ErrProtocolVersion = errors.New("rsync: protocol version mismatch")

	// ErrShortWrite names the short-write kind. No function in this module
	// returns it: the wire writers pass the underlying writer's error
	// through unwrapped.
	ErrShortWrite = errors.New("rsync: short write")

	// ErrDigestMismatch names the whole-file MD4 verification failure. No
	// function in this module returns it: the receiver logs a mismatch as
	// a per-file "file corruption" error and counts it.
	ErrDigestMismatch = errors.New("rsync: file corruption (digest mismatch)")

	// ErrPathUnsafe names the unsafe-path kind. No function in this module
	// returns it: a received path with a ".." component is rejected with
	// ErrFlistMalformed (see flist.CanonicalizePath).
	ErrPathUnsafe = errors.New("rsync: unsafe path")
)
