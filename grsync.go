// Package grsync implements the core of a wire-compatible rsync protocol
// version 27 client and server: the block-delta engine, the file-list
// codec, the framed transport and the sender/receiver/generator state
// machine described in rsync.samba.org/tech_report and implemented by the
// original tridge rsync and by openrsync.
//
// This package holds the types shared across every other package in this
// module (the wire header that precedes a file's block checksums, the
// protocol constants, and the error taxonomy); the actual mechanics live in
// the internal packages.
package grsync

import (
	"fmt"

	"github.com/opensync/grsync/internal/rsyncwire"
)

// ProtocolVersion is the only protocol version this implementation speaks.
// The handshake rejects any peer that does not also advertise 27.
const ProtocolVersion = 27

// MaxChunk caps the size of a single literal-run record in a token stream.
const MaxChunk = 32 * 1024

// Truncated strong-checksum lengths used during the two matching phases.
const (
	ChecksumLengthPhase1 = 2  // first pass: cheap, collision-tolerant
	ChecksumLengthPhase2 = 16 // retry pass: full MD4, collision-proof
)

// PhaseEnd is the sentinel file index (-1) that ends the request pass in
// the generator/sender exchange; this implementation runs a single pass,
// which the sender acknowledges with its own -1.
const PhaseEnd int32 = -1

// SumHead is the wire header that precedes a file's block checksum table
// (and, symmetrically, the header the sender echoes back before it starts
// streaming a token stream for that file; see internal/sender).
type SumHead struct {
	// ChecksumCount is the number of blocks, including a final short
	// remainder block ("blksz" in the spec; rsync calls it the chunk count).
	ChecksumCount int32

	// BlockLength is the nominal per-block length ("len" in the spec).
	BlockLength int32

	// ChecksumLength is the number of strong-checksum bytes carried per
	// block on the wire (2 during phase 1, 16 during phase 2).
	ChecksumLength int32

	// RemainderLength is the length of the final, possibly-short block
	// ("rem" in the spec); zero when the file size is an exact multiple
	// of BlockLength.
	RemainderLength int32
}

// ReadFrom decodes a SumHead from the wire. It is the strict inverse of
// WriteTo and rejects negative counts.
func (s *SumHead) ReadFrom(c *rsyncwire.Conn) error {
	var err error
	if s.ChecksumCount, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.BlockLength, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.ChecksumLength, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.RemainderLength, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.ChecksumCount < 0 || s.BlockLength < 0 || s.ChecksumLength < 0 || s.RemainderLength < 0 {
		return fmt.Errorf("%w: negative field in sum head %+v", ErrFlistMalformed, s)
	}
	return nil
}

// WriteTo encodes a SumHead to the wire.
func (s *SumHead) WriteTo(c *rsyncwire.Conn) error {
	if err := c.WriteInt32(s.ChecksumCount); err != nil {
		return err
	}
	if err := c.WriteInt32(s.BlockLength); err != nil {
		return err
	}
	if err := c.WriteInt32(s.ChecksumLength); err != nil {
		return err
	}
	if err := c.WriteInt32(s.RemainderLength); err != nil {
		return err
	}
	return nil
}
