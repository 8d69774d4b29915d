// Package sender implements the sender role of the session driver (§4.7):
// it transmits the file list, answers block-set requests with a matched
// token stream for each requested file in a single request pass, and
// reports final transfer statistics.
package sender

import (
	"fmt"
	"os"

	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/flist"
	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/matcher"
	"github.com/opensync/grsync/internal/rsyncchecksum"
	"github.com/opensync/grsync/internal/rsyncopts"
	"github.com/opensync/grsync/internal/rsyncstats"
	"github.com/opensync/grsync/internal/rsyncwire"
)

// FilterList is the (always empty, in this protocol version) exclusion
// list exchanged before the file list.
type FilterList struct {
	Filters []string
}

// RecvFilterList reads the filter/exclusion list terminator. Real clients
// in this protocol version never send filter rules, only the terminating
// zero.
func RecvFilterList(c *rsyncwire.Conn) (FilterList, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return FilterList{}, err
	}
	if n != 0 {
		return FilterList{}, fmt.Errorf("%w: non-empty exclusion list received", rsyncwire.ErrFlistMalformed)
	}
	return FilterList{}, nil
}

// Transfer holds the state of one sender-side session.
type Transfer struct {
	Logger log.Logger
	Opts   *rsyncopts.Options
	Conn   *rsyncwire.Conn
	Seed   int32
}

// Do sends the file list for paths rooted at root, then answers block-set
// requests until the receiver signals the end of its single request pass.
func (st *Transfer) Do(crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, root string, paths []string, _ FilterList) (*rsyncstats.TransferStats, error) {
	var files []flist.File
	for _, p := range paths {
		fs, err := flist.GenerateLocal(p, st.Opts.Recursive(), st.Opts.PreserveLinks())
		if err != nil {
			return nil, err
		}
		files = append(files, fs...)
	}
	flist.Sort(files)
	files = flist.Dedupe(files)

	if err := flist.Send(st.Conn, files); err != nil {
		return nil, err
	}
	if st.Logger != nil {
		st.Logger.Printf("sent file list with %d entries", len(files))
	}

	// Zero int32 after the file list; receiver.Transfer.ReceiveFileList
	// reads it.
	if err := st.Conn.WriteInt32(0); err != nil {
		return nil, err
	}

	if err := st.phase(files, root); err != nil {
		return nil, err
	}

	stats := rsyncstats.TransferStats{
		Read:    crd.Bytes,
		Written: cwr.Bytes,
		Size:    totalSize(files),
	}
	if err := stats.Send(st.Conn); err != nil {
		return nil, err
	}

	if _, err := st.Conn.ReadInt32(); err != nil { // final goodbye from the receiver
		return nil, err
	}
	return &stats, nil
}

// phase answers block-set requests until the generator signals it has no
// more files to request in this session. A real rsync peer additionally
// supports a second, stronger-checksum retry pass for files whose weak
// checksum collided; this implementation always generates full 16-byte
// strong checksums (see blockset.Generate), making that retry pass
// unnecessary, so only a single pass runs here.
func (st *Transfer) phase(files []flist.File, root string) error {
	for {
		idx, err := st.Conn.ReadInt32()
		if err != nil {
			return err
		}
		if idx == -1 {
			return st.Conn.WriteInt32(-1)
		}

		bs, err := blockset.ReadBlockSet(st.Conn)
		if err != nil {
			return err
		}

		f := files[idx]
		if err := st.Conn.WriteInt32(idx); err != nil {
			return err
		}
		if err := bs.Head().WriteTo(st.Conn); err != nil {
			return err
		}

		if err := st.sendFile(f, root, bs); err != nil {
			return err
		}
	}
}

func (st *Transfer) sendFile(f flist.File, root string, bs blockset.BlockSet) error {
	if !f.IsRegular() {
		return matcher.WriteDelta(st.Conn, nil, blockset.BlockSet{}, st.Seed)
	}

	buf, err := os.ReadFile(root + "/" + f.Name)
	if err != nil {
		if st.Logger != nil {
			st.Logger.Printf("reading %s failed, sending as pure literal: %v", f.Name, err)
		}
		return matcher.WriteDelta(st.Conn, nil, blockset.BlockSet{}, st.Seed)
	}

	if err := matcher.WriteDelta(st.Conn, buf, bs, st.Seed); err != nil {
		return err
	}
	digest := rsyncchecksum.File(buf, st.Seed)
	return st.Conn.WriteBuf(digest[:])
}

func totalSize(files []flist.File) int64 {
	var total int64
	for _, f := range files {
		total += f.Length
	}
	return total
}
