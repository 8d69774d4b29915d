// Package blockset computes and encodes the checksum block set the
// generator sends for each destination file: the division of a file into
// fixed-size blocks plus a fast and strong checksum per block, which the
// sender uses to find runs shared with its own copy of the file.
package blockset

import (
	"math"

	"github.com/opensync/grsync/internal/rsyncchecksum"
	"github.com/opensync/grsync/internal/rsyncwire"
)

// blockSizeFloor and blockSizeCeil bound the block length chosen by
// ChooseBlockLength. The floor keeps checksum overhead sane for small
// files; the ceiling (1<<17, "maximum for newer rsync") keeps individual
// blocks from growing unboundedly for huge files.
const (
	blockSizeFloor = 700
	blockSizeCeil  = 1 << 17
)

// ChooseBlockLength picks a block length for a file of the given size using
// the classic sqrt-of-size heuristic: block length grows with the square
// root of the file size, so checksum overhead stays roughly proportional to
// sqrt(size) regardless of how large the file is.
func ChooseBlockLength(size int64) int32 {
	if size <= 0 {
		return 0
	}
	bl := int64(math.Sqrt(float64(size)))
	if bl < blockSizeFloor {
		bl = blockSizeFloor
	}
	if bl > blockSizeCeil {
		bl = blockSizeCeil
	}
	return int32(bl)
}

// Block is one fixed-size chunk of a file along with its checksums.
type Block struct {
	Index      int32
	Offset     int64
	Length     int32
	FastSum    uint32
	StrongSum  []byte // truncated to the session's checksum length
}

// BlockSet is the ordered sequence of blocks covering a whole file, plus
// the parameters needed to reconstruct block boundaries from a wire index.
type BlockSet struct {
	FileLength     int64
	BlockLength    int32
	ChecksumLength int32
	RemainderLength int32
	Blocks         []Block
}

// Generate divides buf into blocks of the chosen length and computes both
// checksums for each block. seed is the session checksum seed and
// checksumLength the negotiated strong-checksum truncation (2 in a first
// pass, 16 in a retry pass; this implementation always passes 16).
func Generate(buf []byte, seed int32, checksumLength int32) BlockSet {
	size := int64(len(buf))
	blockLength := ChooseBlockLength(size)

	var count int32
	var remainder int32
	if size > 0 {
		count = int32(size / int64(blockLength))
		remainder = int32(size % int64(blockLength))
		if remainder != 0 {
			count++
		}
	}

	bs := BlockSet{
		FileLength:      size,
		BlockLength:     blockLength,
		ChecksumLength:  checksumLength,
		RemainderLength: remainder,
		Blocks:          make([]Block, 0, count),
	}

	var offset int64
	for i := int32(0); i < count; i++ {
		length := blockLength
		if i == count-1 && remainder != 0 {
			length = remainder
		}
		chunk := buf[offset : offset+int64(length)]
		strong := rsyncchecksum.Slow(seed, chunk)
		bs.Blocks = append(bs.Blocks, Block{
			Index:     i,
			Offset:    offset,
			Length:    length,
			FastSum:   rsyncchecksum.Fast(chunk),
			StrongSum: append([]byte(nil), strong[:checksumLength]...),
		})
		offset += int64(length)
	}
	return bs
}

// SumHead is the wire header describing a BlockSet without the per-block
// checksums: count, block length, checksum length and remainder length.
// The sender echoes this back to the receiver before streaming tokens, so
// the receiver (which never sees the generator's BlockSet directly) learns
// block boundaries.
type SumHead struct {
	ChecksumCount   int32
	BlockLength     int32
	ChecksumLength  int32
	RemainderLength int32
}

// Head extracts the SumHead of a BlockSet.
func (bs BlockSet) Head() SumHead {
	return SumHead{
		ChecksumCount:   int32(len(bs.Blocks)),
		BlockLength:     bs.BlockLength,
		ChecksumLength:  bs.ChecksumLength,
		RemainderLength: bs.RemainderLength,
	}
}

// WriteTo writes the SumHead followed by each block's fast and strong
// checksum, matching the generator's outbound checksum-set record.
func (bs BlockSet) WriteTo(c *rsyncwire.Conn) error {
	h := bs.Head()
	if err := h.WriteTo(c); err != nil {
		return err
	}
	for _, b := range bs.Blocks {
		if err := c.WriteInt32(int32(b.FastSum)); err != nil {
			return err
		}
		if err := c.WriteBuf(b.StrongSum); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes just the SumHead fields, in the wire order the generator
// uses: count, block length, checksum length, remainder length.
func (h SumHead) WriteTo(c *rsyncwire.Conn) error {
	if err := c.WriteInt32(h.ChecksumCount); err != nil {
		return err
	}
	if err := c.WriteInt32(h.BlockLength); err != nil {
		return err
	}
	if err := c.WriteInt32(h.ChecksumLength); err != nil {
		return err
	}
	return c.WriteInt32(h.RemainderLength)
}

// ReadSumHead reads a bare SumHead (no per-block checksums) from the wire.
func ReadSumHead(c *rsyncwire.Conn) (SumHead, error) {
	var h SumHead
	var err error
	if h.ChecksumCount, err = c.ReadInt32(); err != nil {
		return h, err
	}
	if h.BlockLength, err = c.ReadInt32(); err != nil {
		return h, err
	}
	if h.ChecksumLength, err = c.ReadInt32(); err != nil {
		return h, err
	}
	if h.RemainderLength, err = c.ReadInt32(); err != nil {
		return h, err
	}
	return h, nil
}

// ReadBlockSet reads a full checksum set (SumHead plus per-block checksums)
// from the wire, as the sender does upon receiving the generator's output.
func ReadBlockSet(c *rsyncwire.Conn) (BlockSet, error) {
	h, err := ReadSumHead(c)
	if err != nil {
		return BlockSet{}, err
	}
	bs := BlockSet{
		BlockLength:     h.BlockLength,
		ChecksumLength:  h.ChecksumLength,
		RemainderLength: h.RemainderLength,
		Blocks:          make([]Block, 0, h.ChecksumCount),
	}
	var offset int64
	for i := int32(0); i < h.ChecksumCount; i++ {
		fast, err := c.ReadInt32()
		if err != nil {
			return BlockSet{}, err
		}
		strong, err := c.ReadBuf(int(h.ChecksumLength))
		if err != nil {
			return BlockSet{}, err
		}
		length := h.BlockLength
		if i == h.ChecksumCount-1 && h.RemainderLength != 0 {
			length = h.RemainderLength
		}
		bs.Blocks = append(bs.Blocks, Block{
			Index:     i,
			Offset:    offset,
			Length:    length,
			FastSum:   uint32(fast),
			StrongSum: strong,
		})
		offset += int64(length)
	}
	bs.FileLength = offset
	return bs, nil
}

// BlockRange returns the byte offset and length of the block at idx,
// accounting for the shorter final (remainder) block.
func (bs BlockSet) BlockRange(idx int32) (offset int64, length int32) {
	b := bs.Blocks[idx]
	return b.Offset, b.Length
}
