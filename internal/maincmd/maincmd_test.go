package maincmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensync/grsync/internal/rsyncos"
)

func TestSplitHostSpec(t *testing.T) {
	cases := []struct {
		arg        string
		host, path string
		remote     bool
	}{
		{"relative/path", "", "relative/path", false},
		{"/abs/path", "", "/abs/path", false},
		{"./local:weird", "", "./local:weird", false},
		{"host:path", "host", "path", true},
		{"user@host:path/to/dir", "user@host", "path/to/dir", true},
		{"host:", "host", "", true},
	}
	for _, tc := range cases {
		host, path, remote := splitHostSpec(tc.arg)
		if host != tc.host || path != tc.path || remote != tc.remote {
			t.Errorf("splitHostSpec(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.arg, host, path, remote, tc.host, tc.path, tc.remote)
		}
	}
}

// TestMainLocalTransfer exercises Main's dispatch all the way through the
// "neither side is remote" calling convention, which never spawns a
// subprocess and instead loops a client and server back over io.Pipe().
func TestMainLocalTransfer(t *testing.T) {
	tmp := t.TempDir()
	src, dest := filepath.Join(tmp, "src"), filepath.Join(tmp, "dest")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "file"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	osenv := rsyncos.Std{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	if _, err := Main(context.Background(), osenv, []string{"-a", src, dest}); err != nil {
		t.Fatalf("Main: %v (stderr: %s)", err, stderr.String())
	}

	got, err := os.ReadFile(filepath.Join(dest, "file"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("dest content = %q, want %q", got, "hello")
	}
}
