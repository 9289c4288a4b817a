package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/object"
)

// DefaultBranch is the branch HEAD points at after Init.
const DefaultBranch = "master"

var (
	// ErrNotRepository is returned by Open when no .mgit directory is found.
	ErrNotRepository = errors.New("not an mgit repository")
	// ErrRefNotFound is returned when a ref file does not exist.
	ErrRefNotFound = errors.New("ref not found")
	// ErrRefLocked is returned when a ref lock cannot be acquired in time.
	ErrRefLocked = errors.New("ref locked")
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Init creates a new repository at path. It creates the .mgit/ directory
// structure: HEAD, objects/, refs/heads/ and logs/. Returns an error if a
// .mgit/ directory already exists.
func Init(path string, opts ...Option) (*Repo, error) {
	gitDir := filepath.Join(path, DirName)

	if _, err := os.Stat(gitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gitDir)
	}

	dirs := []string{
		filepath.Join(gitDir, "objects"),
		filepath.Join(gitDir, "refs", "heads"),
		filepath.Join(gitDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(gitDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/"+DefaultBranch+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	r, err := newRepo(path, gitDir, newOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	r.Logger.Info("initialized repository", zap.String("dir", gitDir))
	return r, nil
}

// Open searches upward from path for a .mgit/ directory and opens the
// repository.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		gitDir := filepath.Join(cur, DirName)
		info, err := os.Stat(gitDir)
		if err == nil && info.IsDir() {
			r, err := newRepo(cur, gitDir, newOptions(opts))
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return r, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w (or any parent up to /)", abs, ErrNotRepository)
		}
		cur = parent
	}
}

// Head reads .mgit/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g. "refs/heads/master"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimSpace(string(data))

	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		return strings.TrimSpace(ref), nil
	}
	return content, nil
}

// SetHead points HEAD at refs/heads/<branch>.
func (r *Repo) SetHead(branch string) error {
	if err := validateBranchName(branch); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return r.writeFileAtomic("HEAD", []byte("ref: refs/heads/"+branch+"\n"))
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. If HEAD is symbolic, resolve the target ref.
//  2. If name starts with "refs/", read .mgit/<name>.
//  3. If name is a full hex hash, return it.
//  4. Otherwise, try "refs/heads/<name>".
//
// A ref file that does not exist yields ErrRefNotFound, which is the normal
// state of a branch before its first commit.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return object.ZeroHash, err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		h, err := object.ParseHash(head)
		if err != nil {
			return object.ZeroHash, fmt.Errorf("resolve HEAD: %w", err)
		}
		return h, nil
	}

	var refPath string
	switch {
	case strings.HasPrefix(name, "refs/"):
		refPath = filepath.Join(r.GitDir, filepath.FromSlash(name))
	default:
		if h, err := object.ParseHash(name); err == nil {
			return h, nil
		}
		refPath = filepath.Join(r.GitDir, "refs", "heads", filepath.FromSlash(name))
	}

	h, ok, err := readRefHash(refPath)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("resolve ref %q: %w", name, err)
	}
	if !ok {
		return object.ZeroHash, fmt.Errorf("resolve ref %q: %w", name, ErrRefNotFound)
	}
	return h, nil
}

// UpdateRef writes a hash to the named ref file under .mgit/ using lockfile
// + rename semantics, then appends a reflog line. Parent directories are
// created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash, reason string) error {
	refPath := filepath.Join(r.GitDir, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, _, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}

	if _, err := lockFile.WriteString(h.String() + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	r.Logger.Debug("ref updated", zap.String("ref", name), zap.Stringer("old", oldHash), zap.Stringer("new", h))
	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}
	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, fs.ErrExist) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w: %s", ErrRefLocked, lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash reads a ref file. A missing file reports ok == false.
func readRefHash(refPath string) (h object.Hash, ok bool, err error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return object.ZeroHash, false, nil
		}
		return object.ZeroHash, false, err
	}
	h, err = object.ParseHash(strings.TrimSpace(string(data)))
	if err != nil {
		return object.ZeroHash, false, err
	}
	return h, true, nil
}

// writeFileAtomic replaces .mgit/<name> through a temp file and rename.
func (r *Repo) writeFileAtomic(name string, data []byte) error {
	target := filepath.Join(r.GitDir, name)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: tmpfile: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: close: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: rename: %w", name, err)
	}
	return nil
}
