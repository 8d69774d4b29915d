package receiver

import (
	"os"

	"github.com/opensync/grsync/internal/flist"
	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/rsyncos"
	"github.com/opensync/grsync/internal/rsyncwire"
)

// File is the receiver's view of one file-list entry.
type File = flist.File

// TransferOpts is the subset of session options the receiver/generator
// roles need, translated out of rsyncopts.Options at construction time so
// this package does not depend on the CLI flag parser.
type TransferOpts struct {
	DryRun bool
	Server bool
	Verbose bool

	DeleteMode       bool
	PreserveGid      bool
	PreserveUid      bool
	PreserveLinks    bool
	PreservePerms    bool
	PreserveDevices  bool
	PreserveSpecials bool
	PreserveTimes    bool
}

// Transfer holds the state of one receiver-side session: the generator
// (emits block-set requests) and the receiver (consumes token streams)
// run as two goroutines sharing this struct's read-only fields plus the
// Conn, which is safe for concurrent use by design (see rsyncwire).
type Transfer struct {
	Logger log.Logger
	Opts   *TransferOpts

	Dest     string
	DestRoot *os.Root

	Env  rsyncos.Std
	Conn *rsyncwire.Conn
	Seed int32

	IOErrors int
}

// ReceiveFileList reads the file list the sender transmits at the start
// of a session, and the zero int32 the sender writes right after the list
// (see sender.Transfer.Do). It also opens DestRoot if not already set,
// rooted at Dest.
func (rt *Transfer) ReceiveFileList() ([]*File, error) {
	if rt.DestRoot == nil {
		// os.OpenRoot requires the directory to already exist; a transfer
		// into a destination that doesn't exist yet (the common case for a
		// first sync) otherwise fails before a single file is received.
		if err := os.MkdirAll(rt.Dest, 0o755); err != nil {
			return nil, err
		}
		root, err := os.OpenRoot(rt.Dest)
		if err != nil {
			return nil, err
		}
		rt.DestRoot = root
	}

	files, err := flist.Recv(rt.Conn)
	if err != nil {
		return nil, err
	}
	if _, err := rt.Conn.ReadInt32(); err != nil {
		return nil, err
	}
	out := make([]*File, len(files))
	for i := range files {
		out[i] = &files[i]
	}
	return out, nil
}

func findInFileList(fileList []*File, name string) bool {
	for _, f := range fileList {
		if f.Name == name {
			return true
		}
	}
	return false
}
