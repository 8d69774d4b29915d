// Package flist implements the file-list protocol: canonical path
// encoding, the delta-compressed status-byte wire format, local directory
// traversal, and deletion-candidate computation.
package flist

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opensync/grsync/internal/rsyncwire"
)

// Mode bits recognized on the wire (S_IF* from the host filesystem ABI).
const (
	ModeDir     = 0o040000
	ModeRegular = 0o100000
	ModeSymlink = 0o120000
)

// File is one file-list entry.
type File struct {
	Name         string // canonical path, "/"-separated
	Length       int64
	ModTime      int64 // seconds since epoch
	Mode         int32
	SymlinkTarget string
}

func (f File) IsDir() bool     { return f.Mode&0o170000 == ModeDir }
func (f File) IsSymlink() bool { return f.Mode&0o170000 == ModeSymlink }
func (f File) IsRegular() bool { return f.Mode&0o170000 == ModeRegular }

// CanonicalizePath strips a leading "./", collapses consecutive slashes,
// and rejects any ".." path component. It does not make the path absolute;
// the root name itself is kept as the leading component.
func CanonicalizePath(p string) (string, error) {
	p = strings.TrimPrefix(p, "./")
	// Check the components before cleaning: path.Clean would resolve
	// "foo/../bar" to "bar" and drop a leading "..", hiding it.
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q escapes the transfer root", rsyncwire.ErrFlistMalformed, p)
		}
	}
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		cleaned = "."
	}
	return cleaned, nil
}

// Sort orders entries lexicographically by canonical name, as the sender
// must before transmission.
func Sort(files []File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

// Dedupe removes entries with a duplicate Name, keeping the first
// occurrence. files must already be sorted.
func Dedupe(files []File) []File {
	out := files[:0:0]
	for i, f := range files {
		if i > 0 && f.Name == files[i-1].Name {
			continue
		}
		out = append(out, f)
	}
	return out
}

// GenerateLocal walks root and returns its file list. When recursive is
// false, only the literal entry for root itself is returned (directories
// are recorded but not descended into). Symlinks are included only when
// preserveLinks is set; otherwise they are skipped entirely. Hardlinks,
// devices, sockets and fifos are not representable in this protocol
// version and are skipped.
func GenerateLocal(root string, recursive, preserveLinks bool) ([]File, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(root)

	var files []File
	top, err := entryFor(root, base, info, preserveLinks)
	if err != nil {
		return nil, err
	}
	if top != nil {
		files = append(files, *top)
	}
	if !info.IsDir() || !recursive {
		return files, nil
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := path.Join(base, filepath.ToSlash(rel))
		fi, err := d.Info()
		if err != nil {
			return err
		}
		e, err := entryFor(p, name, fi, preserveLinks)
		if err != nil {
			return err
		}
		if e != nil {
			files = append(files, *e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	Sort(files)
	return Dedupe(files), nil
}

func entryFor(fullPath, name string, info fs.FileInfo, preserveLinks bool) (*File, error) {
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		if !preserveLinks {
			return nil, nil
		}
		target, err := os.Readlink(fullPath)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:          name,
			ModTime:       info.ModTime().Unix(),
			Mode:          ModeSymlink | 0o777,
			SymlinkTarget: target,
		}, nil
	case mode.IsDir():
		return &File{
			Name:    name,
			ModTime: info.ModTime().Unix(),
			Mode:    ModeDir | int32(mode.Perm()),
		}, nil
	case mode.IsRegular():
		return &File{
			Name:    name,
			Length:  info.Size(),
			ModTime: info.ModTime().Unix(),
			Mode:    ModeRegular | int32(mode.Perm()),
		}, nil
	default:
		// Devices, sockets, and fifos are not representable; skip them.
		return nil, nil
	}
}
