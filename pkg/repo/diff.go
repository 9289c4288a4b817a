package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/mgit/pkg/index"
)

// DiffWorktree compares the working tree with the index. With paths, only
// entries at or under those paths are reported.
func (r *Repo) DiffWorktree(paths ...string) ([]index.DiffEntry, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	entries, err := index.Diff(ix, r.RootDir, r.Store)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	if len(paths) == 0 {
		return entries, nil
	}

	filters := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
		filters = append(filters, rel)
	}
	var out []index.DiffEntry
	for _, e := range entries {
		if matchesAny(e.Name, filters) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchesAny(name string, filters []string) bool {
	for _, f := range filters {
		if f == "." || name == f || strings.HasPrefix(name, f+"/") {
			return true
		}
	}
	return false
}
