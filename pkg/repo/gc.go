package repo

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/object"
)

// FsckReport lists problems found by Fsck.
type FsckReport struct {
	Checked  int
	Corrupt  map[object.Hash]error // stored objects that fail to verify
	Dangling []object.Hash         // valid objects nothing points at
}

// OK reports whether every stored object verified.
func (f *FsckReport) OK() bool { return len(f.Corrupt) == 0 }

// roots collects every ref target, a detached HEAD and the blobs the index
// refers to.
func (r *Repo) roots() ([]object.Hash, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	roots := make([]object.Hash, 0, len(refs))
	for _, h := range refs {
		roots = append(roots, h)
	}
	if h, err := r.ResolveRef("HEAD"); err == nil {
		roots = append(roots, h)
	} else if !isUnborn(err) {
		return nil, err
	}

	ix, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range ix.Entries() {
		roots = append(roots, e.Hash)
	}
	if ix.Cache != nil {
		for _, n := range ix.Cache.Nodes {
			if n.Valid() {
				roots = append(roots, n.Hash)
			}
		}
	}
	return roots, nil
}

// Fsck re-hashes every stored object and reports corrupt ones, plus valid
// objects unreachable from refs, HEAD or the index.
func (r *Repo) Fsck() (*FsckReport, error) {
	all, err := r.Store.List()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	report := &FsckReport{Checked: len(all), Corrupt: make(map[object.Hash]error)}
	for _, h := range all {
		if err := r.Store.Verify(h); err != nil {
			report.Corrupt[h] = err
		}
	}

	roots, err := r.roots()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	reachable, err := r.Store.ReachableSet(roots)
	if err != nil && !report.OK() && (errors.Is(err, object.ErrCorrupt) || errors.Is(err, object.ErrInvalidObject)) {
		// Already reported as corrupt; skip the reachability pass.
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	for _, h := range all {
		if _, ok := reachable[h]; !ok {
			if _, bad := report.Corrupt[h]; !bad {
				report.Dangling = append(report.Dangling, h)
			}
		}
	}
	return report, nil
}

// Prune deletes objects unreachable from refs, HEAD or the index and
// returns their hashes. With dryRun nothing is removed.
func (r *Repo) Prune(dryRun bool) ([]object.Hash, error) {
	roots, err := r.roots()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	reachable, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	all, err := r.Store.List()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	var pruned []object.Hash
	for _, h := range all {
		if _, ok := reachable[h]; ok {
			continue
		}
		pruned = append(pruned, h)
		if dryRun {
			continue
		}
		if err := r.Store.Remove(h); err != nil {
			return pruned, fmt.Errorf("prune: %w", err)
		}
	}
	r.Logger.Info("pruned objects", zap.Int("count", len(pruned)), zap.Bool("dry_run", dryRun))
	return pruned, nil
}
