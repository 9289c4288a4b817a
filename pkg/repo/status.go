package repo

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/mgit/pkg/index"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // in the index, not in the HEAD tree
	StatusModified                    // content or mode differs
	StatusDeleted                     // missing from the compared side
	StatusUntracked                   // in the working tree, not in the index
)

func (s FileStatus) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusNew:
		return "new file"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusUntracked:
		return "untracked"
	}
	return fmt.Sprintf("FileStatus(%d)", int(s))
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // index vs HEAD tree
	WorkStatus  FileStatus // working tree vs index
}

// Status compares the HEAD tree, the index and the working tree. Entries are
// sorted by path; clean files are omitted.
func (r *Repo) Status() ([]StatusEntry, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	head, err := r.headTree()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	result := make(map[string]*StatusEntry)
	get := func(p string) *StatusEntry {
		if e, ok := result[p]; ok {
			return e
		}
		e := &StatusEntry{Path: p}
		result[p] = e
		return e
	}

	// Index vs HEAD.
	for _, e := range ix.Entries() {
		h, ok := head[e.Name]
		switch {
		case !ok:
			get(e.Name).IndexStatus = StatusNew
		case h.Hash != e.Hash || h.Mode != e.Mode:
			get(e.Name).IndexStatus = StatusModified
		}
	}
	for p := range head {
		if _, ok := ix.Entry(p); !ok {
			get(p).IndexStatus = StatusDeleted
		}
	}

	// Working tree vs index.
	changes, err := index.Diff(ix, r.RootDir, r.Store)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	for _, d := range changes {
		if d.Deleted {
			get(d.Name).WorkStatus = StatusDeleted
		} else {
			get(d.Name).WorkStatus = StatusModified
		}
	}

	untracked, err := r.untrackedFiles(ix)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	for _, p := range untracked {
		e := get(p)
		if e.IndexStatus == StatusClean {
			e.IndexStatus = StatusUntracked
		}
		e.WorkStatus = StatusUntracked
	}

	out := make([]StatusEntry, 0, len(result))
	for _, e := range result {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// untrackedFiles walks the working tree, skipping ignored paths, and
// returns the files the index does not know about.
func (r *Repo) untrackedFiles(ix *index.Index) ([]string, error) {
	ic := NewIgnoreChecker(r.RootDir)
	var out []string
	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
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
		if _, tracked := ix.Entry(rel); !tracked {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return out, nil
}

// FormatStatus renders entries the way the status command prints them.
func FormatStatus(entries []StatusEntry, branch string) string {
	var b strings.Builder
	if branch != "" {
		fmt.Fprintf(&b, "On branch %s\n", branch)
	} else {
		b.WriteString("HEAD detached\n")
	}

	var staged, unstaged, untracked []StatusEntry
	for _, e := range entries {
		if e.IndexStatus != StatusClean && e.IndexStatus != StatusUntracked {
			staged = append(staged, e)
		}
		switch e.WorkStatus {
		case StatusClean:
		case StatusUntracked:
			untracked = append(untracked, e)
		default:
			unstaged = append(unstaged, e)
		}
	}

	if len(staged) > 0 {
		b.WriteString("Changes to be committed:\n")
		for _, e := range staged {
			fmt.Fprintf(&b, "\t%s:\t%s\n", e.IndexStatus, e.Path)
		}
		b.WriteString("\n")
	}
	if len(unstaged) > 0 {
		b.WriteString("Changes not staged for commit:\n")
		for _, e := range unstaged {
			fmt.Fprintf(&b, "\t%s:\t%s\n", e.WorkStatus, e.Path)
		}
		b.WriteString("\n")
	}
	if len(untracked) > 0 {
		b.WriteString("Untracked files:\n")
		for _, e := range untracked {
			fmt.Fprintf(&b, "\t%s\n", e.Path)
		}
		b.WriteString("\n")
	}
	if len(entries) == 0 {
		b.WriteString("nothing to commit, working tree clean\n")
	}
	return b.String()
}
