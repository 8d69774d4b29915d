package flist

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DeletionCandidates walks the on-disk tree rooted at root and returns the
// paths present there but absent from fileList, ordered depth-first
// (children before parents) so a caller can unlink them in order without
// hitting ENOTEMPTY on a directory whose contents haven't been removed
// yet. Paths are returned relative to root in the same canonical form as
// File.Name; the root itself is never returned.
func DeletionCandidates(root string, fileList []File) ([]string, error) {
	present := make(map[string]bool, len(fileList))
	for _, f := range fileList {
		present[f.Name] = true
	}

	var names []string
	root = filepath.Clean(root)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
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
		name := filepath.ToSlash(rel)
		if !present[name] {
			names = append(names, name)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(names, func(i, j int) bool {
		di := strings.Count(names[i], "/")
		dj := strings.Count(names[j], "/")
		if di != dj {
			return di > dj // deeper paths (more children) first
		}
		return names[i] > names[j]
	})
	return names, nil
}
