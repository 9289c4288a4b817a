package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/mgit/pkg/object"
)

// CreateTag creates or updates a lightweight tag ref under refs/tags/.
// Only commits can be tagged.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	if _, err := r.Store.ReadCommit(target); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}

	refName := "refs/tags/" + name
	if !force {
		if _, err := r.ResolveRef(refName); err == nil {
			return fmt.Errorf("create tag: tag %q already exists", name)
		}
	}
	if err := r.UpdateRef(refName, target, "tag: "+name); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// DeleteTag removes a tag ref from refs/tags/.
func (r *Repo) DeleteTag(name string) error {
	refPath := filepath.Join(r.GitDir, "refs", "tags", filepath.FromSlash(name))
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete tag: tag %q does not exist", name)
		}
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// ListTags returns tag name -> target hash, with names sorted by the
// caller via TagNames.
func (r *Repo) ListTags() (map[string]object.Hash, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out := make(map[string]object.Hash, len(refs))
	for full, h := range refs {
		out[strings.TrimPrefix(full, "tags/")] = h
	}
	return out, nil
}

// TagNames returns the keys of tags sorted alphabetically.
func TagNames(tags map[string]object.Hash) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
