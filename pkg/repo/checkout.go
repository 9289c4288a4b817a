package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/index"
	"github.com/odvcencio/mgit/pkg/object"
)

// ErrDirtyWorkingTree is returned when checkout would discard changes.
var ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

// Checkout switches the working directory to the state of the target.
// The target can be a branch name or a full commit hash; a hash detaches
// HEAD. With create, a new branch is made at the current commit and HEAD
// moves to it without touching the working tree.
//
// Algorithm:
//  1. Check for uncommitted changes and refuse if any exist.
//  2. Resolve target: try as branch name first, then as raw hash.
//  3. Read the target commit, flatten its tree.
//  4. Remove tracked files absent from the target tree.
//  5. Write all files from the target tree to the working directory.
//  6. Rebuild the index (and its tree cache) from the written files.
//  7. Update HEAD (symbolic ref for branch, raw hash for detached).
func (r *Repo) Checkout(target string, create bool) error {
	if create {
		return r.checkoutNewBranch(target)
	}

	if err := r.ensureClean(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	isBranch := false
	targetHash, err := r.ResolveRef("refs/heads/" + target)
	switch {
	case err == nil:
		isBranch = true
	case isUnborn(err):
		h, perr := object.ParseHash(target)
		if perr != nil {
			return fmt.Errorf("checkout: %q is not a branch or commit: %w", target, err)
		}
		targetHash = h
	default:
		return fmt.Errorf("checkout: %w", err)
	}

	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: cannot read commit %s: %w", targetHash, err)
	}
	targetFiles, err := r.FlattenTree(commit.Tree)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.refuseOverwrite(targetFiles); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	err = r.withIndexLock(func(ix *index.Index) error {
		keep := make(map[string]bool, len(targetFiles))
		for _, f := range targetFiles {
			keep[f.Path] = true
		}
		for _, name := range ix.Names() {
			if keep[name] {
				continue
			}
			abs := r.workPath(name)
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %q: %w", name, err)
			}
			r.removeEmptyParents(filepath.Dir(abs))
		}

		ix.Reset()
		for _, f := range targetFiles {
			if err := r.materialize(ix, f); err != nil {
				return err
			}
		}
		_, err := r.buildTree(ix)
		return err
	})
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if isBranch {
		err = r.SetHead(target)
	} else {
		err = r.writeFileAtomic("HEAD", []byte(targetHash.String()+"\n"))
	}
	if err != nil {
		return fmt.Errorf("checkout: update HEAD: %w", err)
	}
	r.Logger.Info("checked out", zap.String("target", target), zap.Stringer("commit", targetHash))
	return nil
}

func (r *Repo) checkoutNewBranch(name string) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("checkout -b: %w", err)
	}
	head, err := r.ResolveRef("HEAD")
	switch {
	case err == nil:
		if err := r.CreateBranch(name, head); err != nil {
			return fmt.Errorf("checkout -b: %w", err)
		}
	case isUnborn(err):
		// The new branch is born by the first commit.
	default:
		return fmt.Errorf("checkout -b: %w", err)
	}
	if err := r.SetHead(name); err != nil {
		return fmt.Errorf("checkout -b: %w", err)
	}
	return nil
}

// materialize writes f into the working tree and stages it.
func (r *Repo) materialize(ix *index.Index, f TreeFileEntry) error {
	if err := r.checkWorkPath(f.Path); err != nil {
		return err
	}
	blob, err := r.Store.ReadBlob(f.Hash)
	if err != nil {
		return fmt.Errorf("read blob for %q: %w", f.Path, err)
	}
	abs := r.workPath(f.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w", f.Path, err)
	}
	if err := writeWorkingFile(abs, f.Mode, blob.Content); err != nil {
		return fmt.Errorf("write %q: %w", f.Path, err)
	}
	e, err := index.Stat(abs, f.Path, f.Hash)
	if err != nil {
		return fmt.Errorf("stat %q: %w", f.Path, err)
	}
	e.Mode = f.Mode
	ix.AddOrReplace(e)
	return nil
}

// checkWorkPath refuses to write name when it escapes the working tree,
// either lexically or through a symbolic link standing in for one of its
// parent directories. Parents that do not exist yet are fine.
func (r *Repo) checkWorkPath(name string) error {
	if err := checkTreePath(name); err != nil {
		return err
	}
	dir := r.RootDir
	parts := strings.Split(name, "/")
	for _, part := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, part)
		info, err := os.Lstat(dir)
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q is beyond a symbolic link", ErrPathOutsideRepo, name)
		}
	}
	return nil
}

// ensureClean checks that nothing is staged and no tracked file is
// modified. Untracked files are allowed.
func (r *Repo) ensureClean() error {
	entries, err := r.Status()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.WorkStatus == StatusUntracked {
			continue
		}
		return fmt.Errorf("%w (%s: %s)", ErrDirtyWorkingTree, e.Path, describe(e))
	}
	return nil
}

// refuseOverwrite fails when an untracked working file sits where the
// target tree has a file.
func (r *Repo) refuseOverwrite(files []TreeFileEntry) error {
	ix, err := r.ReadIndex()
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, tracked := ix.Entry(f.Path); tracked {
			continue
		}
		if _, err := os.Lstat(r.workPath(f.Path)); err == nil {
			return fmt.Errorf("untracked file %q would be overwritten", f.Path)
		}
	}
	return nil
}

func describe(e StatusEntry) string {
	if e.WorkStatus != StatusClean {
		return e.WorkStatus.String()
	}
	return "staged " + e.IndexStatus.String()
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
