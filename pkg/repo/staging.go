package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/index"
	"github.com/odvcencio/mgit/pkg/object"
)

// ErrPathOutsideRepo is returned for paths that resolve outside the
// working tree or into the metadata directory.
var ErrPathOutsideRepo = errors.New("path is outside repository")

// ReadIndex loads .mgit/index. A missing index is empty.
func (r *Repo) ReadIndex() (*index.Index, error) {
	ix, err := index.Read(r.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ix, nil
}

// withIndexLock loads the index under its lock, runs fn and commits the
// result when fn succeeds. The lock is released on every path.
func (r *Repo) withIndexLock(fn func(ix *index.Index) error) error {
	lock, err := index.Lock(r.IndexPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	ix, err := lock.Read()
	if err != nil {
		return err
	}
	if err := fn(ix); err != nil {
		return err
	}
	if err := lock.Commit(ix); err != nil {
		return err
	}
	r.Logger.Debug("index written", zap.Int("entries", ix.Len()))
	return nil
}

// HashObject computes the blob hash of the file at path (absolute, or
// relative to the current directory). When write is set the blob is also
// stored.
func (r *Repo) HashObject(path string, write bool) (object.Hash, error) {
	blob, _, err := index.ReadWorkingBlob(path)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("hash-object %s: %w", path, err)
	}
	if !write {
		return object.HashOf(blob), nil
	}
	h, err := r.Store.WriteObject(blob)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("hash-object %s: %w", path, err)
	}
	return h, nil
}

// stageFile stores the working file name as a blob and records its stat
// data in ix.
func (r *Repo) stageFile(ix *index.Index, name string) error {
	path := r.workPath(name)
	blob, _, err := index.ReadWorkingBlob(path)
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	h, err := r.Store.WriteObject(blob)
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	e, err := index.Stat(path, name, h)
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	// A file staged below a path that used to be a tracked file replaces it.
	for i := strings.LastIndexByte(name, '/'); i > 0; i = strings.LastIndexByte(name[:i], '/') {
		ix.Remove(name[:i])
	}
	ix.AddOrReplace(e)
	return nil
}

// UpdateIndex re-reads each working file, stores its blob and refreshes
// its index entry. Every path must name an existing file.
func (r *Repo) UpdateIndex(paths ...string) error {
	return r.withIndexLock(func(ix *index.Index) error {
		for _, p := range paths {
			name, err := r.repoRelPath(p)
			if err != nil {
				return fmt.Errorf("update-index: %w", err)
			}
			if err := r.stageFile(ix, name); err != nil {
				return fmt.Errorf("update-index: %w", err)
			}
		}
		return nil
	})
}

// UpdateIndexCacheInfo records name with an explicit mode and blob hash.
// The working file must exist and hash to h; otherwise the index is left
// untouched and object.ErrHashMismatch is returned.
func (r *Repo) UpdateIndexCacheInfo(mode object.FileMode, h object.Hash, p string) error {
	if mode.IsDir() {
		return fmt.Errorf("update-index --cacheinfo: mode %s is not a file mode", mode)
	}
	name, err := r.repoRelPath(p)
	if err != nil {
		return fmt.Errorf("update-index --cacheinfo: %w", err)
	}
	path := r.workPath(name)
	blob, _, err := index.ReadWorkingBlob(path)
	if err != nil {
		return fmt.Errorf("update-index --cacheinfo %s: %w", name, err)
	}
	if got := object.HashOf(blob); got != h {
		return fmt.Errorf("update-index --cacheinfo %s: %w: given %s, working file is %s",
			name, object.ErrHashMismatch, h, got)
	}

	return r.withIndexLock(func(ix *index.Index) error {
		if !r.Store.Has(h) {
			if _, err := r.Store.WriteObject(blob); err != nil {
				return fmt.Errorf("update-index --cacheinfo %s: %w", name, err)
			}
		}
		e, err := index.Stat(path, name, h)
		if err != nil {
			return fmt.Errorf("update-index --cacheinfo %s: %w", name, err)
		}
		e.Mode = mode
		ix.AddOrReplace(e)
		return nil
	})
}

// Add stages files and directories. Directories are walked recursively,
// skipping ignored paths. Tracked files that no longer exist under an added
// path are removed from the index.
func (r *Repo) Add(paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("add: no paths given")
	}
	ic := NewIgnoreChecker(r.RootDir)

	return r.withIndexLock(func(ix *index.Index) error {
		for _, p := range paths {
			name, err := r.repoRelPath(p)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			if err := r.addPath(ix, ic, name); err != nil {
				return fmt.Errorf("add: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) addPath(ix *index.Index, ic *IgnoreChecker, name string) error {
	removed := r.dropMissing(ix, name)

	info, err := os.Lstat(r.workPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		if removed == 0 {
			return fmt.Errorf("pathspec %q did not match any files", name)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if ic.IsIgnored(name, false) {
			return fmt.Errorf("path %q is ignored by %s", name, IgnoreFile)
		}
		return r.stageFile(ix, name)
	}

	return filepath.WalkDir(r.workPath(name), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ic.IsIgnored(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return r.stageFile(ix, rel)
	})
}

// dropMissing removes index entries at or under name whose working files
// are gone and reports how many were removed.
func (r *Repo) dropMissing(ix *index.Index, name string) int {
	n := 0
	for _, tracked := range ix.Names() {
		if name != "." && tracked != name && !strings.HasPrefix(tracked, name+"/") {
			continue
		}
		if _, err := index.LstatFile(r.workPath(tracked)); errors.Is(err, fs.ErrNotExist) {
			ix.Remove(tracked)
			n++
		}
	}
	return n
}

// Remove drops paths from the index without touching the working tree.
func (r *Repo) Remove(paths ...string) error {
	return r.withIndexLock(func(ix *index.Index) error {
		for _, p := range paths {
			name, err := r.repoRelPath(p)
			if err != nil {
				return fmt.Errorf("rm --cached: %w", err)
			}
			if !ix.Remove(name) {
				return fmt.Errorf("rm --cached: %q is not tracked", name)
			}
		}
		return nil
	})
}

// ListFiles returns the tracked paths in index order.
func (r *Repo) ListFiles() ([]index.Entry, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("ls-files: %w", err)
	}
	return ix.Entries(), nil
}

// repoRelPath converts a path (absolute, or relative to the current
// directory) into a slash-separated path relative to the repository root.
// The root itself is ".".
func (r *Repo) repoRelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		abs = filepath.Join(cwd, p)
	}

	root := r.RootDir
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
			root = resolved
			abs = filepath.Join(dir, filepath.Base(abs))
		}
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, p)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, p)
	}
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", fmt.Errorf("%w: %s is inside %s", ErrPathOutsideRepo, p, DirName)
	}
	return rel, nil
}
