// Package rsyncstats exchanges the end-of-session transfer statistics:
// total bytes read from and written to the network connection, and the
// total size of the files transferred.
package rsyncstats

import "github.com/opensync/grsync/internal/rsyncwire"

// TransferStats mirrors sess_stats: three long values exchanged once both
// sides have finished the main transfer loop.
type TransferStats struct {
	Read    int64
	Written int64
	Size    int64
}

// Send writes the stats in the order the protocol expects: read, written,
// size.
func (s TransferStats) Send(c *rsyncwire.Conn) error {
	if err := c.WriteInt64(s.Read); err != nil {
		return err
	}
	if err := c.WriteInt64(s.Written); err != nil {
		return err
	}
	return c.WriteInt64(s.Size)
}

// Recv reads a TransferStats record in the order Send writes it.
func Recv(c *rsyncwire.Conn) (TransferStats, error) {
	read, err := c.ReadInt64()
	if err != nil {
		return TransferStats{}, err
	}
	written, err := c.ReadInt64()
	if err != nil {
		return TransferStats{}, err
	}
	size, err := c.ReadInt64()
	if err != nil {
		return TransferStats{}, err
	}
	return TransferStats{Read: read, Written: written, Size: size}, nil
}
