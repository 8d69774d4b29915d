// Package rsyncchecksum implements the two hashing primitives the
// block-delta engine builds on: the rolling ("fast") checksum used to slide
// a window over the source file in O(1) per byte, and the strong MD4-based
// digest used to confirm block and whole-file identity.
package rsyncchecksum

import (
	"encoding/binary"

	"github.com/mmcloughlin/md4"
)

// mod is the modulus applied to both halves of the rolling checksum; it is
// 2^16, matching the classic rsync algorithm.
const mod = 1 << 16

// Rolling is the incremental state of the fast checksum: two 16-bit running
// sums, s1 = Σbuf[i] and s2 = Σ(len-i)·buf[i], combined on Value() as
// s1 | (s2 << 16). It supports O(1) updates as the matching window slides
// one byte at a time.
type Rolling struct {
	s1, s2 uint32
	n      int
}

// NewRolling computes the rolling checksum state for buf from scratch
// (hash_fast applied to a fresh window).
func NewRolling(buf []byte) Rolling {
	var r Rolling
	n := len(buf)
	for i, b := range buf {
		r.s1 += uint32(b)
		r.s2 += uint32(n-i) * uint32(b)
	}
	r.s1 %= mod
	r.s2 %= mod
	r.n = n
	return r
}

// Value returns the combined 32-bit fast checksum.
func (r Rolling) Value() uint32 {
	return (r.s1 & 0xffff) | (r.s2&0xffff)<<16
}

// Len reports the window length this state was computed over.
func (r Rolling) Len() int { return r.n }

// Roll advances the window by one byte: out leaves at the head, in arrives
// at the tail. The window length is unchanged. This is the O(1) update the
// sliding matcher relies on.
func (r Rolling) Roll(out, in byte) Rolling {
	n := uint32(r.n)
	r.s1 = (r.s1 - uint32(out) + uint32(in)) % mod
	r.s2 = (r.s2 - n*uint32(out) + r.s1) % mod
	return r
}

// Fast computes the rolling checksum of buf in one shot; equivalent to
// NewRolling(buf).Value() but without retaining the incremental state.
func Fast(buf []byte) uint32 {
	return NewRolling(buf).Value()
}

// Slow is hash_slow: MD4 of the session seed (as 4 little-endian bytes)
// followed by buf. Used for block-level strong checksums (truncated to the
// phase's checksum length on the wire) and for window candidate
// verification during matching.
func Slow(seed int32, buf []byte) [16]byte {
	h := md4.New()
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], uint32(seed))
	h.Write(seedBuf[:])
	h.Write(buf)
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// File is hash_file: MD4 of buf followed by the session seed (as 4
// little-endian bytes) — the reverse order from Slow. Used only for the
// whole-file verification digest that terminates a token stream.
func File(buf []byte, seed int32) [16]byte {
	h := md4.New()
	h.Write(buf)
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], uint32(seed))
	h.Write(seedBuf[:])
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// FileHasher computes the hash_file digest incrementally, as bytes are
// written (e.g. while the merger reconstructs a file). The seed is appended
// only when Sum is called, matching File's seed-after-buffer order.
type FileHasher struct {
	h    md4.MD4
	seed int32
}

// NewFileHasher returns a FileHasher ready to accept Write calls.
func NewFileHasher(seed int32) *FileHasher {
	return &FileHasher{h: md4.New(), seed: seed}
}

func (f *FileHasher) Write(p []byte) (int, error) {
	return f.h.Write(p)
}

// Sum finalizes the digest, appending the seed after all written data.
func (f *FileHasher) Sum() [16]byte {
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], uint32(f.seed))
	f.h.Write(seedBuf[:])
	var out [16]byte
	copy(out[:], f.h.Sum(nil))
	return out
}
