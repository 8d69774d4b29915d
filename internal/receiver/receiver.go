package receiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/merge"
)

// RecvFiles consumes the sender's per-file token streams in flist order,
// terminated once the sender echoes back the generator's closing -1 index,
// mirroring the requests GenerateFiles issues.
func (rt *Transfer) RecvFiles(fileList []*File) error {
	for {
		idx, err := rt.Conn.ReadInt32()
		if err != nil {
			return err
		}
		if idx == -1 {
			break
		}
		if rt.Opts.Verbose {
			rt.Logger.Printf("receiving file idx=%d: %+v", idx, fileList[idx])
		}
		if err := rt.recvFile1(fileList[idx]); err != nil {
			return err
		}
	}
	if rt.Opts.Verbose {
		rt.Logger.Printf("recvFiles finished")
	}
	return nil
}

func (rt *Transfer) recvFile1(f *File) error {
	if rt.Opts.DryRun {
		if !rt.Opts.Server && rt.Env.Stdout != nil {
			fmt.Fprintln(rt.Env.Stdout, f.Name)
		}
		return nil
	}

	localFile, err := rt.openLocalFile(f)
	if err != nil && !os.IsNotExist(err) {
		rt.recordIOError(f, fmt.Errorf("opening local file: %w", err))
	}
	if localFile != nil {
		defer localFile.Close()
	}
	return rt.receiveData(f, localFile)
}

func (rt *Transfer) openLocalFile(f *File) (*os.File, error) {
	in, err := rt.DestRoot.Open(f.Name)
	if err != nil {
		return nil, err
	}

	st, err := in.Stat()
	if err != nil {
		in.Close()
		return nil, err
	}

	if st.IsDir() {
		in.Close()
		return nil, fmt.Errorf("%s is a directory", filepath.Join(rt.Dest, f.Name))
	}

	if !st.Mode().IsRegular() {
		in.Close()
		return nil, nil
	}

	if !rt.Opts.PreservePerms {
		// If the file exists already and we are not preserving permissions,
		// act as though the sender sent us the existing permissions.
		f.Mode = int32(st.Mode().Perm())
	}

	return in, nil
}

// receiveData reads the bare SumHead the sender echoes back, then the
// token stream for one file, merging it against localFile (the receiver's
// current, possibly-stale copy) and verifying the whole-file digest.
//
// A failure local to this one file — the destination can't be created,
// a write fails, the digest doesn't match, or the rename/chmod fails —
// is recorded against rt.IOErrors and does not abort the session: the
// token stream is still drained in full via a guardedWriter so the wire
// stays in sync for the files that follow. Only an error reading from
// rt.Conn itself is session-fatal, since at that point the two sides no
// longer agree on their place in the stream.
func (rt *Transfer) receiveData(f *File, localFile *os.File) error {
	sh, err := blockset.ReadSumHead(rt.Conn)
	if err != nil {
		return err
	}
	bs := blockset.BlockSet{
		BlockLength:     sh.BlockLength,
		ChecksumLength:  sh.ChecksumLength,
		RemainderLength: sh.RemainderLength,
	}
	for i := int32(0); i < sh.ChecksumCount; i++ {
		length := sh.BlockLength
		if i == sh.ChecksumCount-1 && sh.RemainderLength != 0 {
			length = sh.RemainderLength
		}
		bs.Blocks = append(bs.Blocks, blockset.Block{
			Index:  i,
			Offset: int64(i) * int64(sh.BlockLength),
			Length: length,
		})
	}

	local := filepath.Join(rt.Dest, f.Name)
	rt.Logger.Printf("creating %s", local)
	// TODO: use rt.DestRoot once renameio supports it.
	out, createErr := newPendingFile(local)
	if createErr != nil {
		rt.recordIOError(f, fmt.Errorf("creating %s: %w", local, createErr))
	}

	var old io.ReaderAt = emptyReaderAt{}
	if localFile != nil {
		old = localFile
	}

	gw := &guardedWriter{w: io.Discard}
	if out != nil {
		defer out.Cleanup()
		gw.w = out
	}

	digest, err := merge.Stream(rt.Conn, gw, old, bs, rt.Seed)
	if err != nil {
		return err
	}

	remoteSum, err := rt.Conn.ReadBuf(16)
	if err != nil {
		return err
	}

	if createErr != nil || gw.err != nil {
		rt.recordIOError(f, gw.err)
		return nil
	}

	var want [16]byte
	copy(want[:], remoteSum)
	if digest != want {
		rt.recordIOError(f, fmt.Errorf("file corruption in %s", f.Name))
		return nil
	}
	rt.Logger.Printf("checksum %x matches!", digest)

	if err := out.CloseAtomicallyReplace(); err != nil {
		rt.recordIOError(f, fmt.Errorf("replacing %s: %w", local, err))
		return nil
	}

	if err := rt.setPerms(f); err != nil {
		rt.recordIOError(f, fmt.Errorf("setting permissions on %s: %w", local, err))
	}
	return nil
}

// guardedWriter absorbs errors from the underlying writer so the caller
// can keep draining a token stream (to stay in sync with the sender)
// even after the local destination becomes unwritable. The first error is
// kept for the caller to inspect afterwards.
type guardedWriter struct {
	w   io.Writer
	err error
}

func (g *guardedWriter) Write(p []byte) (int, error) {
	if g.err != nil {
		return len(p), nil
	}
	n, err := g.w.Write(p)
	if err != nil {
		g.err = err
		return len(p), nil
	}
	return n, nil
}

type emptyReaderAt struct{}

func (emptyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("rsync: block reference against a nonexistent local file")
}
