package matcher

import (
	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/rsyncwire"
)

// WriteDelta streams GenerateTokens' output directly to the wire in the
// token-stream wire format: a positive count precedes that many literal
// bytes, a negative count -(blockIndex+1) references a block, and a zero
// count terminates the stream. The whole-file digest is written by the
// caller once the transfer completes, since it depends on data the
// receiver reconstructs rather than on the tokens themselves.
func WriteDelta(c *rsyncwire.Conn, buf []byte, bs blockset.BlockSet, seed int32) error {
	for _, tok := range GenerateTokens(buf, bs, seed) {
		if tok.Data != nil {
			if err := c.WriteInt32(int32(len(tok.Data))); err != nil {
				return err
			}
			if err := c.WriteBuf(tok.Data); err != nil {
				return err
			}
			continue
		}
		if err := c.WriteInt32(-(tok.BlockIndex + 1)); err != nil {
			return err
		}
	}
	return c.WriteInt32(0)
}

// ReadToken reads one token from the wire: count > 0 means count literal
// bytes follow, count < 0 decodes to a block index via -(count+1), count
// == 0 is the stream terminator.
func ReadToken(c *rsyncwire.Conn) (count int32, data []byte, err error) {
	count, err = c.ReadInt32()
	if err != nil {
		return 0, nil, err
	}
	if count <= 0 {
		return count, nil, nil
	}
	data, err = c.ReadBuf(int(count))
	return count, data, err
}
