package flist

import (
	"fmt"

	"github.com/opensync/grsync/internal/rsyncwire"
)

// Status byte bits for the delta-compressed entry encoding.
const (
	bitSamePrefix = 0x01
	bitSameMode   = 0x20
	bitSameMtime  = 0x40
)

const suffixLenEscape = 0xff

// sharedPrefixLen returns the number of leading bytes a and b have in
// common, capped at 255 (the wire field is one byte).
func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n > 255 {
		n = 255
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Send writes files to c in the version-27 delta-compressed wire format,
// terminated by a single zero status byte. files must already be sorted
// and deduplicated (see Sort/Dedupe); Send does not re-sort.
func Send(c *rsyncwire.Conn, files []File) error {
	var prev File
	havePrev := false

	for _, f := range files {
		status := byte(0)
		prefixLen := 0
		if havePrev {
			prefixLen = sharedPrefixLen(prev.Name, f.Name)
			if prefixLen > 0 {
				status |= bitSamePrefix
			}
			if f.Mode == prev.Mode {
				status |= bitSameMode
			}
			if f.ModTime == prev.ModTime {
				status |= bitSameMtime
			}
		}
		if status == 0 {
			// No sharing bit applies; set a bit Recv ignores so the entry is
			// not read as the terminating zero byte.
			status = 0x02
		}

		suffix := f.Name[prefixLen:]

		if err := c.WriteByte(status); err != nil {
			return err
		}
		if status&bitSamePrefix != 0 {
			if err := c.WriteByte(byte(prefixLen)); err != nil {
				return err
			}
		}

		if len(suffix) >= suffixLenEscape {
			if err := c.WriteByte(suffixLenEscape); err != nil {
				return err
			}
			if err := c.WriteInt32(int32(len(suffix))); err != nil {
				return err
			}
		} else {
			if err := c.WriteByte(byte(len(suffix))); err != nil {
				return err
			}
		}
		if err := c.WriteBuf([]byte(suffix)); err != nil {
			return err
		}

		// Length is always sent; mtime and mode are each sent independently
		// of the other, strictly gated by their own status bit (a peer
		// decodes the two bits separately, so the wire bytes must not
		// assume one bit implies anything about the other).
		if err := c.WriteInt64(f.Length); err != nil {
			return err
		}
		if status&bitSameMtime == 0 {
			if err := c.WriteInt32(int32(f.ModTime)); err != nil {
				return err
			}
		}
		if status&bitSameMode == 0 {
			if err := c.WriteInt32(f.Mode); err != nil {
				return err
			}
		}

		if f.IsSymlink() {
			if err := c.WriteInt32(int32(len(f.SymlinkTarget))); err != nil {
				return err
			}
			if err := c.WriteBuf([]byte(f.SymlinkTarget)); err != nil {
				return err
			}
		}

		prev = f
		havePrev = true
	}

	return c.WriteByte(0)
}

// Recv reads a file list from c until the terminating zero status byte.
func Recv(c *rsyncwire.Conn) ([]File, error) {
	var files []File
	var prev File
	havePrev := false

	for {
		status, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		if status == 0 {
			break
		}

		prefixLen := 0
		if status&bitSamePrefix != 0 {
			if !havePrev {
				return nil, fmt.Errorf("%w: shared-prefix bit set on first entry", rsyncwire.ErrFlistMalformed)
			}
			pl, err := c.ReadByte()
			if err != nil {
				return nil, err
			}
			prefixLen = int(pl)
			if prefixLen > len(prev.Name) {
				return nil, fmt.Errorf("%w: shared-prefix length %d exceeds previous name length %d", rsyncwire.ErrFlistMalformed, prefixLen, len(prev.Name))
			}
		}

		suffixLenByte, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		suffixLen := int(suffixLenByte)
		if suffixLenByte == suffixLenEscape {
			n, err := c.ReadSize()
			if err != nil {
				return nil, err
			}
			suffixLen = n
		}
		suffixBuf, err := c.ReadBuf(suffixLen)
		if err != nil {
			return nil, err
		}

		name := prev.Name[:prefixLen] + string(suffixBuf)
		if _, err := CanonicalizePath(name); err != nil {
			return nil, err
		}

		f := File{Name: name}
		length, err := c.ReadInt64()
		if err != nil {
			return nil, err
		}
		f.Length = length

		// mtime and mode are each read independently of the other,
		// mirroring Send: the bits are not nested.
		f.ModTime = prev.ModTime
		if status&bitSameMtime == 0 {
			mtime, err := c.ReadInt32()
			if err != nil {
				return nil, err
			}
			f.ModTime = int64(mtime)
		}
		f.Mode = prev.Mode
		if status&bitSameMode == 0 {
			mode, err := c.ReadInt32()
			if err != nil {
				return nil, err
			}
			f.Mode = mode
		}

		if f.IsSymlink() {
			n, err := c.ReadSize()
			if err != nil {
				return nil, err
			}
			target, err := c.ReadBuf(n)
			if err != nil {
				return nil, err
			}
			f.SymlinkTarget = string(target)
		}

		files = append(files, f)
		prev = f
		havePrev = true
	}

	return files, nil
}
