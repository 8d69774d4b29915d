package flist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opensync/grsync/internal/flist"
)

func TestDeletionCandidatesDepthFirst(t *testing.T) {
	root := t.TempDir()
	mustMkdir := func(p string) {
		if err := os.MkdirAll(filepath.Join(root, p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	mustFile := func(p string) {
		if err := os.WriteFile(filepath.Join(root, p), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustMkdir("keep")
	mustFile("keep/a.txt")
	mustMkdir("stale")
	mustFile("stale/nested.txt")
	mustFile("stale-file.txt")

	fileList := []flist.File{
		{Name: "keep", Mode: flist.ModeDir},
		{Name: "keep/a.txt", Mode: flist.ModeRegular},
	}

	got, err := flist.DeletionCandidates(root, fileList)
	if err != nil {
		t.Fatal(err)
	}

	index := make(map[string]int, len(got))
	for i, n := range got {
		index[n] = i
	}
	for _, want := range []string{"stale", "stale/nested.txt", "stale-file.txt"} {
		if _, ok := index[want]; !ok {
			t.Fatalf("expected %q among deletion candidates, got %v", want, got)
		}
	}
	if index["stale/nested.txt"] >= index["stale"] {
		t.Fatalf("child %q must be deleted before parent %q; order was %v", "stale/nested.txt", "stale", got)
	}
	if _, ok := index["keep"]; ok {
		t.Fatal("kept entry incorrectly scheduled for deletion")
	}
}

func TestDeletionCandidatesMissingRoot(t *testing.T) {
	got, err := flist.DeletionCandidates(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("missing root should not error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates for a missing root, got %v", got)
	}
}
