// Package receiver_test exercises full client/server sessions end to end,
// one per scenario named by the six synchronization properties: an empty
// file, an already-identical large file, a prepended header, a single
// flipped byte, a symlink, and a deleted destination-only file; a seventh
// test covers a nested directory.
package receiver_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/rsyncopts"
	"github.com/opensync/grsync/rsyncclient"
	"github.com/opensync/grsync/rsyncd"
)

// runOnce drives one client/server session over an in-process io.Pipe()
// loopback: srv acts as the sender reading from src, the client acts as
// the receiver writing to dest.
func runOnce(t *testing.T, args []string, src, dest string) {
	t.Helper()

	mod := rsyncd.Module{Name: "data", Path: src, Writable: false}
	srv, err := rsyncd.NewServer([]rsyncd.Module{mod}, rsyncd.WithLogger(log.New(testWriter{t})))
	if err != nil {
		t.Fatal(err)
	}

	stdinRd, stdinWr := io.Pipe()
	stdoutRd, stdoutWr := io.Pipe()
	conn := srv.NewConnection(stdinRd, stdoutWr)

	serverArgs := append([]string{"--server", "--sender"}, args...)
	serverArgs = append(serverArgs, ".", "./")
	pc, err := rsyncopts.ParseArguments(serverArgs)
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		const negotiate = true
		errCh <- srv.HandleConn(&mod, conn, pc.RemainingArgs[1:], pc.Options, negotiate)
	}()

	client, err := rsyncclient.New(args, rsyncclient.WithLogger(log.New(testWriter{t})))
	if err != nil {
		t.Fatal(err)
	}
	rw := &struct {
		io.Reader
		io.Writer
	}{Reader: stdoutRd, Writer: stdinWr}
	if err := client.Run(context.Background(), rw, []string{dest}); err != nil {
		t.Fatal(err)
	}
	stdinWr.Close()
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func TestEmptyFile(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustWrite(t, filepath.Join(src, "empty"), nil)

	runOnce(t, []string{"-a"}, src, dest)

	got := mustRead(t, filepath.Join(dest, "empty"))
	if len(got) != 0 {
		t.Fatalf("empty file: got %d bytes, want 0", len(got))
	}
}

func TestIdenticalLargeFile(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustMkdir(t, dest)
	data := bytes.Repeat([]byte{0x42}, 1<<20)
	mustWrite(t, filepath.Join(src, "big"), data)
	mustWrite(t, filepath.Join(dest, "big"), data)

	runOnce(t, []string{"-a"}, src, dest)

	got := mustRead(t, filepath.Join(dest, "big"))
	if diff := cmp.Diff(data, got); diff != "" {
		t.Fatalf("unexpected contents: diff (-want +got):\n%s", diff)
	}
}

func TestPrependedHeader(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustMkdir(t, dest)
	body := bytes.Repeat([]byte{0x99}, 256*1024)
	mustWrite(t, filepath.Join(dest, "prefixed"), body)
	withHeader := append(bytes.Repeat([]byte{0x01}, 17), body...)
	mustWrite(t, filepath.Join(src, "prefixed"), withHeader)

	runOnce(t, []string{"-a"}, src, dest)

	got := mustRead(t, filepath.Join(dest, "prefixed"))
	if diff := cmp.Diff(withHeader, got); diff != "" {
		t.Fatalf("unexpected contents: diff (-want +got):\n%s", diff)
	}
}

func TestSingleByteFlip(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustMkdir(t, dest)
	data := bytes.Repeat([]byte{0x07}, 512*1024)
	mustWrite(t, filepath.Join(dest, "flipped"), data)
	changed := append([]byte(nil), data...)
	changed[len(changed)/2] ^= 0xff
	mustWrite(t, filepath.Join(src, "flipped"), changed)

	runOnce(t, []string{"-a"}, src, dest)

	got := mustRead(t, filepath.Join(dest, "flipped"))
	if diff := cmp.Diff(changed, got); diff != "" {
		t.Fatalf("unexpected contents: diff (-want +got):\n%s", diff)
	}
}

func TestSymlink(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustWrite(t, filepath.Join(src, "target"), []byte("hi"))
	if err := os.Symlink("target", filepath.Join(src, "link")); err != nil {
		t.Fatal(err)
	}

	runOnce(t, []string{"-a"}, src, dest)

	got, err := os.Readlink(filepath.Join(dest, "link"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "target" {
		t.Fatalf("unexpected link target: got %q, want %q", got, "target")
	}
}

func TestNestedDirectory(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, filepath.Join(src, "a", "b", "c"))
	mustWrite(t, filepath.Join(src, "a", "b", "c", "deep"), []byte("hi"))

	runOnce(t, []string{"-a"}, src, dest)

	got := mustRead(t, filepath.Join(dest, "a", "b", "c", "deep"))
	if string(got) != "hi" {
		t.Fatalf("unexpected contents: got %q, want %q", got, "hi")
	}
}

func TestDeleteExtraneous(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	mustMkdir(t, src)
	mustMkdir(t, dest)
	mustWrite(t, filepath.Join(src, "keep"), []byte("keep"))
	mustWrite(t, filepath.Join(dest, "keep"), []byte("keep"))
	mustWrite(t, filepath.Join(dest, "stale"), []byte("stale"))

	runOnce(t, []string{"-a", "--delete"}, src, dest)

	if _, err := os.Stat(filepath.Join(dest, "stale")); !os.IsNotExist(err) {
		t.Fatalf("expected stale to be deleted, got err=%v", err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
