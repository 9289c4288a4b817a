package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/odvcencio/mgit/pkg/diff"
	"github.com/odvcencio/mgit/pkg/object"
)

// BlobReader loads stored blobs. *object.Store implements it.
type BlobReader interface {
	ReadBlob(h object.Hash) (*object.Blob, error)
}

// DiffEntry pairs the staged and working-tree versions of one path. It is
// computed on demand and never persisted.
type DiffEntry struct {
	Name    string
	OldMode object.FileMode
	NewMode object.FileMode
	OldHash object.Hash
	NewHash object.Hash
	Old     *object.Blob
	New     *object.Blob
	// Deleted is set when the working file no longer exists; New is then
	// empty and NewHash zero.
	Deleted bool
}

// ModeChanged reports whether the working file's mode differs from the
// staged one.
func (d DiffEntry) ModeChanged() bool { return d.OldMode != d.NewMode }

// ContentChanged reports whether the working content differs from the
// staged blob.
func (d DiffEntry) ContentChanged() bool { return d.OldHash != d.NewHash }

// Compare computes the line edit script from the staged to the working
// content.
func (d DiffEntry) Compare() []diff.Operation {
	return diff.Compute(diff.SplitLines(d.Old.Content), diff.SplitLines(d.New.Content))
}

// Patch returns the renderable form of the change.
func (d DiffEntry) Patch() diff.FilePatch {
	return diff.NewFilePatch(d.Name, d.OldMode, d.NewMode, d.OldHash, d.NewHash, d.Old.Content, d.New.Content)
}

// Diff compares every staged entry with the file of the same name under
// root and returns the entries whose content hash or mode changed, in index
// order. Working files are hashed first; the staged blob is loaded from
// store only for entries that differ.
func Diff(ix *Index, root string, store BlobReader) ([]DiffEntry, error) {
	var out []DiffEntry
	for _, e := range ix.Entries() {
		d, changed, err := diffEntry(e, root, store)
		if err != nil {
			return nil, err
		}
		if changed {
			out = append(out, d)
		}
	}
	return out, nil
}

func diffEntry(e Entry, root string, store BlobReader) (DiffEntry, bool, error) {
	d := DiffEntry{Name: e.Name, OldMode: e.Mode, OldHash: e.Hash}

	work, info, err := ReadWorkingBlob(filepath.Join(root, filepath.FromSlash(e.Name)))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.Deleted = true
		d.New = &object.Blob{}
	case err != nil:
		return DiffEntry{}, false, fmt.Errorf("diff %s: %w", e.Name, err)
	default:
		d.New = work
		d.NewMode = ModeOf(info)
		d.NewHash = object.HashOf(work)
		if d.NewHash == e.Hash && d.NewMode == e.Mode {
			return DiffEntry{}, false, nil
		}
	}

	if d.NewHash == e.Hash {
		d.Old = d.New
		return d, true, nil
	}
	old, err := store.ReadBlob(e.Hash)
	if err != nil {
		return DiffEntry{}, false, fmt.Errorf("diff %s: read staged blob: %w", e.Name, err)
	}
	d.Old = old
	return d, true, nil
}

// LstatFile is os.Lstat for a tracked path. A directory standing where the
// file was, or a parent that is no longer a directory, counts as missing:
// the error then wraps fs.ErrNotExist.
func LstatFile(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, syscall.ENOTDIR) {
		return nil, fmt.Errorf("%w: %w", err, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory: %w", path, fs.ErrNotExist)
	}
	return info, nil
}

// ReadWorkingBlob reads the file at path as a blob. A symlink's content is
// its target. Missing files are reported as by LstatFile.
func ReadWorkingBlob(path string) (*object.Blob, os.FileInfo, error) {
	info, err := LstatFile(path)
	if err != nil {
		return nil, nil, err
	}

	var data []byte
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, nil, err
		}
		data = []byte(target)
	} else {
		if data, err = os.ReadFile(path); err != nil {
			return nil, nil, err
		}
	}

	b, err := object.NewBlob(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, info, nil
}
