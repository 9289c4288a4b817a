package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	lockRetryDelay = 5 * time.Millisecond
	lockWaitLimit  = 2 * time.Second
)

// Lockfile is an exclusive claim on an index path, held as a sibling
// "<path>.lock" file created with O_EXCL. The lock file doubles as the
// staging file for the new index: Commit writes into it and renames it over
// the index. Release must be called on every path; it is a no-op after a
// successful Commit.
type Lockfile struct {
	path     string
	lockPath string
	f        *os.File
	done     bool
}

// Lock acquires the lock for the index at path, waiting up to two seconds
// for a concurrent holder to finish.
func Lock(path string) (*Lockfile, error) {
	return LockTimeout(path, lockWaitLimit)
}

// LockTimeout is Lock with an explicit wait limit.
func LockTimeout(path string, wait time.Duration) (*Lockfile, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("lock index: mkdir: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return &Lockfile{path: path, lockPath: lockPath, f: f}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("lock index: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock index %s: %w", lockPath, ErrLocked)
		}
		time.Sleep(lockRetryDelay)
	}
}

// Path returns the index path the lock guards.
func (l *Lockfile) Path() string { return l.path }

// Read loads the guarded index.
func (l *Lockfile) Read() (*Index, error) {
	return Read(l.path)
}

// Commit writes ix into the lock file and atomically renames it over the
// index, releasing the lock.
func (l *Lockfile) Commit(ix *Index) error {
	if l.done {
		return fmt.Errorf("commit index %s: lock already released", l.path)
	}
	data, err := ix.Encode()
	if err != nil {
		l.Release()
		return err
	}
	if _, err := l.f.Write(data); err != nil {
		l.Release()
		return fmt.Errorf("commit index: %w", err)
	}
	if err := l.f.Close(); err != nil {
		l.f = nil
		l.Release()
		return fmt.Errorf("commit index: close: %w", err)
	}
	l.f = nil
	if err := os.Rename(l.lockPath, l.path); err != nil {
		l.Release()
		return fmt.Errorf("commit index: rename: %w", err)
	}
	l.done = true
	return nil
}

// Release drops the lock without touching the index.
func (l *Lockfile) Release() {
	if l.done {
		return
	}
	l.done = true
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
	os.Remove(l.lockPath)
}
