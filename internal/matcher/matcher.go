// Package matcher implements the sender side of the block-delta algorithm:
// given a BlockSet describing the receiver's copy of a file and the
// sender's own copy, it slides a window over the sender's data to find
// runs that match existing blocks, emitting a token stream of literal runs
// and block references.
package matcher

import (
	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/rsyncchecksum"
)

// MaxChunk bounds a single literal token's length; longer literal runs are
// split across multiple tokens.
const MaxChunk = 32 * 1024

// Token is one element of the delta stream: either a literal run (Data
// non-nil) or a reference to block BlockIndex in the receiver's BlockSet
// (Data nil).
type Token struct {
	Data       []byte
	BlockIndex int32
}

// index speeds up candidate lookup: fast checksum -> candidate blocks,
// refined by checking the strong checksum of each candidate before
// accepting a match (tie-break: lowest block index wins among equal
// strong-checksum candidates).
type index struct {
	seed           int32
	checksumLength int32
	byFast         map[uint32][]blockset.Block
}

func newIndex(bs blockset.BlockSet, seed int32) *index {
	idx := &index{
		seed:           seed,
		checksumLength: bs.ChecksumLength,
		byFast:         make(map[uint32][]blockset.Block, len(bs.Blocks)),
	}
	for _, b := range bs.Blocks {
		idx.byFast[b.FastSum] = append(idx.byFast[b.FastSum], b)
	}
	return idx
}

// lookup returns the matching block (by strong checksum, lowest index on
// ties) for a window with the given fast checksum and content, or false.
func (idx *index) lookup(fast uint32, window []byte) (blockset.Block, bool) {
	candidates := idx.byFast[fast]
	if len(candidates) == 0 {
		return blockset.Block{}, false
	}
	var best blockset.Block
	found := false
	for _, cand := range candidates {
		if int(cand.Length) != len(window) {
			continue
		}
		strong := rsyncchecksum.Slow(idx.seed, window)
		if !bytesEqual(strong[:idx.checksumLength], cand.StrongSum) {
			continue
		}
		if !found || cand.Index < best.Index {
			best = cand
			found = true
		}
	}
	return best, found
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GenerateTokens runs the sliding-window matcher over buf against bs,
// returning the delta token stream. The block length used for windowing is
// bs.BlockLength, except the final (possibly shorter) block which is
// matched only at its exact trailing position.
func GenerateTokens(buf []byte, bs blockset.BlockSet, seed int32) []Token {
	if len(bs.Blocks) == 0 {
		return literalTokens(buf)
	}

	idx := newIndex(bs, seed)
	blockLen := int(bs.BlockLength)

	var tokens []Token
	var literalStart int
	i := 0
	n := len(buf)

	flushLiteral := func(end int) {
		for start := literalStart; start < end; start += MaxChunk {
			stop := start + MaxChunk
			if stop > end {
				stop = end
			}
			tokens = append(tokens, Token{Data: append([]byte(nil), buf[start:stop]...)})
		}
	}

	// roll holds the incremental rolling-checksum state for the window
	// ending at the current i, reused via Roll() as the window slides one
	// byte at a time. It is recomputed from scratch whenever the window
	// isn't a simple one-byte slide from the previous one: right after a
	// match (the next window starts at a new, non-adjacent position) and
	// at the final, shorter window a file's length isn't a multiple of
	// blockLen.
	var roll rsyncchecksum.Rolling
	haveRoll := false

	for i < n {
		winLen := blockLen
		if i+winLen > n {
			winLen = n - i
		}
		if winLen == 0 {
			break
		}
		window := buf[i : i+winLen]
		if haveRoll && roll.Len() == winLen {
			roll = roll.Roll(buf[i-1], window[winLen-1])
		} else {
			roll = rsyncchecksum.NewRolling(window)
			haveRoll = true
		}
		fast := roll.Value()
		if blk, ok := idx.lookup(fast, window); ok {
			flushLiteral(i)
			tokens = append(tokens, Token{BlockIndex: blk.Index})
			i += winLen
			literalStart = i
			haveRoll = false
			continue
		}
		i++
	}
	flushLiteral(n)
	return tokens
}

func literalTokens(buf []byte) []Token {
	var tokens []Token
	for start := 0; start < len(buf); start += MaxChunk {
		end := start + MaxChunk
		if end > len(buf) {
			end = len(buf)
		}
		tokens = append(tokens, Token{Data: append([]byte(nil), buf[start:end]...)})
	}
	return tokens
}
