package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/mgit/pkg/object"
)

// CreateBranch creates a new branch pointing at target. It writes the hash
// to .mgit/refs/heads/<name>. Returns an error if the branch already exists.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	refPath := filepath.Join(r.GitDir, "refs", "heads", filepath.FromSlash(name))
	if _, err := os.Stat(refPath); err == nil {
		return fmt.Errorf("create branch: branch %q already exists", name)
	}
	if err := r.UpdateRef("refs/heads/"+name, target, "branch: created from HEAD"); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes the branch ref file .mgit/refs/heads/<name>.
// Returns an error if the branch is the current branch or does not exist.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}

	refPath := filepath.Join(r.GitDir, "refs", "heads", filepath.FromSlash(name))
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch: branch %q does not exist", name)
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	_ = os.Remove(filepath.Join(r.GitDir, "logs", "refs", "heads", filepath.FromSlash(name)))
	return nil
}

// ListBranches returns the branch names under refs/heads sorted
// alphabetically. Nested names such as "feature/x" are included.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, strings.TrimPrefix(name, "heads/"))
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch reads HEAD and returns the branch name if HEAD is a symbolic
// ref (e.g. "ref: refs/heads/master" → "master"). If HEAD is detached it
// returns "".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if name, ok := strings.CutPrefix(head, "refs/heads/"); ok {
		return name, nil
	}
	return "", nil
}

func validateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("branch name is empty")
	case name == "HEAD":
		return fmt.Errorf("invalid branch name %q", name)
	case strings.HasPrefix(name, "-"), strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return fmt.Errorf("invalid branch name %q", name)
	case strings.HasSuffix(name, ".lock"), strings.Contains(name, ".."), strings.Contains(name, "//"):
		return fmt.Errorf("invalid branch name %q", name)
	}
	for _, c := range name {
		if c <= ' ' || c == 0x7f || strings.ContainsRune(`~^:?*[\`, c) {
			return fmt.Errorf("invalid branch name %q: bad character %q", name, c)
		}
	}
	return nil
}
