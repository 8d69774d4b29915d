// Package merge reconstructs a file from a delta token stream: literal runs
// are copied verbatim, block references are copied from the receiver's
// existing copy of the file, and the whole-file digest is finalized once
// the stream ends.
package merge

import (
	"fmt"
	"io"

	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/matcher"
	"github.com/opensync/grsync/internal/rsyncchecksum"
	"github.com/opensync/grsync/internal/rsyncwire"
)

// Token is an alias of matcher.Token, so both sides of a delta share one
// token type.
type Token = matcher.Token

// Apply reconstructs the new file content in memory given old (the
// receiver's existing copy), bs (the block set old was generated from) and
// the token stream. It is the pure counterpart of the streaming merge
// Transfer uses against real files, kept for round-trip testing.
func Apply(tokens []Token, old []byte, bs blockset.BlockSet) []byte {
	var out []byte
	for _, t := range tokens {
		if t.Data != nil {
			out = append(out, t.Data...)
			continue
		}
		off, length := bs.BlockRange(t.BlockIndex)
		out = append(out, old[off:off+int64(length)]...)
	}
	return out
}

// Stream reads a token stream from c and writes the reconstructed file to
// w, reading block references from old at the offsets described by bs. It
// returns the hash_file whole-file digest computed over the reconstructed
// bytes, which the caller compares against the terminal digest the sender
// appends after the zero token.
func Stream(c *rsyncwire.Conn, w io.Writer, old io.ReaderAt, bs blockset.BlockSet, seed int32) ([16]byte, error) {
	fh := rsyncchecksum.NewFileHasher(seed)
	out := io.MultiWriter(w, fh)

	for {
		count, data, err := matcher.ReadToken(c)
		if err != nil {
			return [16]byte{}, err
		}
		if count == 0 {
			break
		}
		if count > 0 {
			if _, err := out.Write(data); err != nil {
				return [16]byte{}, err
			}
			continue
		}
		idx := -(count + 1)
		if int(idx) >= len(bs.Blocks) {
			return [16]byte{}, fmt.Errorf("rsync: token references block %d beyond block set of %d", idx, len(bs.Blocks))
		}
		off, length := bs.BlockRange(idx)
		buf := make([]byte, length)
		if _, err := old.ReadAt(buf, off); err != nil {
			return [16]byte{}, err
		}
		if _, err := out.Write(buf); err != nil {
			return [16]byte{}, err
		}
	}
	return fh.Sum(), nil
}
