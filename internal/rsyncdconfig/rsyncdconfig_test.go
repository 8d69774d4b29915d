package rsyncdconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opensync/grsync/internal/rsyncdconfig"
)

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rsyncd.toml")
	const contents = `
address = ":8730"

[[module]]
name = "backup"
path = "/srv/backup"
acl = ["allow 10.0.0.0/8", "deny all"]
writable = true

[[module]]
name = "ro"
path = "/srv/ro"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := rsyncdconfig.FromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := cfg.Address, ":8730"; got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(cfg.Modules))
	}

	backup := cfg.Modules[0]
	if got, want := backup.Name, "backup"; got != want {
		t.Errorf("Modules[0].Name = %q, want %q", got, want)
	}
	if got, want := backup.Path, "/srv/backup"; got != want {
		t.Errorf("Modules[0].Path = %q, want %q", got, want)
	}
	if !backup.Writable {
		t.Error("Modules[0].Writable = false, want true")
	}
	if got, want := len(backup.ACL), 2; got != want {
		t.Errorf("Modules[0].ACL has %d entries, want %d", got, want)
	}

	ro := cfg.Modules[1]
	if ro.Writable {
		t.Error("Modules[1].Writable = true, want false (field omitted)")
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := rsyncdconfig.FromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDropUIDGIDDefaults(t *testing.T) {
	var cfg rsyncdconfig.Config
	if got, want := cfg.DropUID(), 65534; got != want {
		t.Errorf("DropUID() = %d, want default %d", got, want)
	}
	if got, want := cfg.DropGID(), 65534; got != want {
		t.Errorf("DropGID() = %d, want default %d", got, want)
	}
}

func TestDropUIDGIDOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rsyncd.toml")
	if err := os.WriteFile(path, []byte("uid = 1000\ngid = 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := rsyncdconfig.FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.DropUID(), 1000; got != want {
		t.Errorf("DropUID() = %d, want %d", got, want)
	}
	if got, want := cfg.DropGID(), 1000; got != want {
		t.Errorf("DropGID() = %d, want %d", got, want)
	}
}
