package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/odvcencio/mgit/pkg/index"
)

// Reset unstages paths by restoring index entries to their HEAD versions.
//
// Behavior:
//   - If a path exists in HEAD, its index entry is reset to HEAD's blob and mode.
//   - If a path does not exist in HEAD, its index entry is removed.
//   - If no paths are provided, the entire index is reset to HEAD.
//
// Reset does not modify the working tree.
func (r *Repo) Reset(paths ...string) error {
	head, err := r.headTree()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	return r.withIndexLock(func(ix *index.Index) error {
		all := make(map[string]struct{}, ix.Len()+len(head))
		for _, name := range ix.Names() {
			all[name] = struct{}{}
		}
		for p := range head {
			all[p] = struct{}{}
		}

		var filters []string
		for _, p := range paths {
			rel, err := r.repoRelPath(p)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			filters = append(filters, rel)
		}

		var targets []string
		for p := range all {
			if len(filters) == 0 || matchesAny(p, filters) {
				targets = append(targets, p)
			}
		}
		if len(targets) == 0 && len(filters) > 0 {
			return fmt.Errorf("reset: paths %q did not match index or HEAD entries", filters)
		}
		sort.Strings(targets)

		for _, p := range targets {
			h, ok := head[p]
			if !ok {
				ix.Remove(p)
				continue
			}
			e, err := r.entryForHead(h)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			ix.AddOrReplace(e)
		}
		return nil
	})
}

// entryForHead builds an index entry for a HEAD file. Stat data comes from
// the working file when present; otherwise it stays zero so the next diff
// rehashes.
func (r *Repo) entryForHead(f TreeFileEntry) (index.Entry, error) {
	e, err := index.Stat(r.workPath(f.Path), f.Path, f.Hash)
	if errors.Is(err, fs.ErrNotExist) {
		e = index.Entry{Name: f.Path, Hash: f.Hash}
	} else if err != nil {
		return index.Entry{}, err
	}
	e.Mode = f.Mode
	return e, nil
}
