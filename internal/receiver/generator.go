package receiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opensync/grsync/internal/blockset"
)

// checksumLength is the strong-checksum truncation used for every request
// this generator issues. Unlike upstream rsync, which falls back to a
// stronger checksum only when a shorter one collides, this implementation
// always computes the full 16-byte MD4 truncation up front (see
// blockset.Generate), so there is no need for a cheaper first pass.
const checksumLength = 16

// GenerateFiles walks fileList in order, creating directories and symlinks
// directly, and issuing a block-set request to the sender for every
// regular file so its content can be reconstructed from a delta. It runs
// concurrently with RecvFiles, sharing rt.Conn: this goroutine only writes,
// RecvFiles only reads.
func (rt *Transfer) GenerateFiles(fileList []*File) error {
	for idx, f := range fileList {
		switch {
		case f.IsDir():
			// mkdir never touches the wire, so a failure here is a local,
			// per-file problem: record it and keep going.
			if err := rt.mkdir(f); err != nil {
				rt.recordIOError(f, fmt.Errorf("creating directory: %w", err))
			}
		case f.IsSymlink():
			if err := rt.genSymlink(f); err != nil {
				rt.recordIOError(f, fmt.Errorf("creating symlink: %w", err))
			}
		default:
			if err := rt.requestFile(int32(idx), f); err != nil {
				return err
			}
		}
	}
	return rt.Conn.WriteInt32(-1)
}

func (rt *Transfer) mkdir(f *File) error {
	if rt.Opts.DryRun {
		return nil
	}
	if f.Name == "." {
		// rt.DestRoot is already rooted at rt.Dest (created, if needed, by
		// ReceiveFileList before the root handle was opened).
		return nil
	}
	return mkdirAllRoot(rt.DestRoot, f.Name)
}

// mkdirAllRoot is the os.Root-confined equivalent of os.MkdirAll: os.Root
// has no MkdirAll of its own, only Mkdir, so each path segment under root
// is created in turn, ignoring segments that already exist.
func mkdirAllRoot(root *os.Root, name string) error {
	name = filepath.Clean(name)
	if name == "." || name == "" {
		return nil
	}
	if err := mkdirAllRoot(root, filepath.Dir(name)); err != nil {
		return err
	}
	if err := root.Mkdir(name, 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

func (rt *Transfer) genSymlink(f *File) error {
	if rt.Opts.DryRun || !rt.Opts.PreserveLinks {
		return nil
	}
	// Root.Remove keeps the pre-existing-entry cleanup confined to Dest;
	// renameio.Symlink itself still takes a plain path below (see the
	// note in pending.go: renameio has no os.Root-scoped API yet).
	_ = rt.DestRoot.Remove(f.Name)
	local := filepath.Join(rt.Dest, f.Name)
	return symlink(f.SymlinkTarget, local)
}

// requestFile computes a block set from the receiver's current copy of f
// (empty if it does not exist yet) and sends it to the sender, which
// answers with a matched token stream RecvFiles will consume.
func (rt *Transfer) requestFile(idx int32, f *File) error {
	buf := rt.readLocalForBlockset(f)

	bs := blockset.Generate(buf, rt.Seed, checksumLength)
	if err := rt.Conn.WriteInt32(idx); err != nil {
		return err
	}
	return bs.WriteTo(rt.Conn)
}

// readLocalForBlockset reads the receiver's current copy of f, rooted at
// rt.DestRoot, so the basis block set never reads outside Dest. A missing
// or unreadable file is not an error here: it just means the sender gets
// an empty block set and transfers f as pure literal data.
func (rt *Transfer) readLocalForBlockset(f *File) []byte {
	in, err := rt.DestRoot.Open(f.Name)
	if err != nil {
		return nil
	}
	defer in.Close()
	buf, err := io.ReadAll(in)
	if err != nil {
		return nil
	}
	return buf
}
