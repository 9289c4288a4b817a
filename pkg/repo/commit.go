package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/index"
	"github.com/odvcencio/mgit/pkg/object"
)

// ErrNothingToCommit is returned by Commit when the new tree equals the
// parent's tree.
var ErrNothingToCommit = errors.New("nothing to commit")

// now is replaced in tests.
var now = time.Now

// isUnborn reports whether err means HEAD names a branch with no commits.
func isUnborn(err error) bool {
	return errors.Is(err, ErrRefNotFound)
}

// CommitTree writes a commit for tree with an optional parent, using the
// configured identity for both author and committer.
func (r *Repo) CommitTree(tree object.Hash, parent *object.Hash, message string) (object.Hash, error) {
	if _, err := r.Store.ReadTree(tree); err != nil {
		return object.ZeroHash, fmt.Errorf("commit-tree: %w", err)
	}
	if parent != nil {
		if _, err := r.Store.ReadCommit(*parent); err != nil {
			return object.ZeroHash, fmt.Errorf("commit-tree: parent: %w", err)
		}
	}
	sig, err := r.Config.Signature(now())
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit-tree: %w", err)
	}

	c := &object.Commit{
		Tree:      tree,
		Parent:    parent,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	h, err := r.Store.WriteObject(c)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit-tree: write commit: %w", err)
	}
	return h, nil
}

// Commit creates a new commit from the current index.
//
//  1. Write the tree for the index (refreshing the tree cache)
//  2. Resolve HEAD to get the parent commit hash (if any)
//  3. Refuse when the tree equals the parent's tree
//  4. Write the commit and advance the current branch, or HEAD when detached
//
// It returns the commit hash and the branch name ("" when detached).
func (r *Repo) Commit(message string) (object.Hash, string, error) {
	if strings.TrimSpace(message) == "" {
		return object.ZeroHash, "", fmt.Errorf("commit: empty message")
	}

	var tree object.Hash
	err := r.withIndexLock(func(ix *index.Index) error {
		if ix.Len() == 0 {
			return fmt.Errorf("%w (index is empty)", ErrNothingToCommit)
		}
		h, err := r.buildTree(ix)
		tree = h
		return err
	})
	if err != nil {
		return object.ZeroHash, "", fmt.Errorf("commit: %w", err)
	}

	var parent *object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	switch {
	case err == nil:
		pc, err := r.Store.ReadCommit(parentHash)
		if err != nil {
			return object.ZeroHash, "", fmt.Errorf("commit: read parent: %w", err)
		}
		if pc.Tree == tree {
			return object.ZeroHash, "", fmt.Errorf("commit: %w, working tree clean", ErrNothingToCommit)
		}
		parent = &parentHash
	case isUnborn(err):
	default:
		return object.ZeroHash, "", fmt.Errorf("commit: %w", err)
	}

	h, err := r.CommitTree(tree, parent, message)
	if err != nil {
		return object.ZeroHash, "", fmt.Errorf("commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return object.ZeroHash, "", fmt.Errorf("commit: %w", err)
	}
	ref := "HEAD"
	if strings.HasPrefix(head, "refs/") {
		ref = head
	}
	reason := "commit: " + firstLine(message)
	if parent == nil {
		reason = "commit (initial): " + firstLine(message)
	}
	if err := r.UpdateRef(ref, h, reason); err != nil {
		return object.ZeroHash, "", fmt.Errorf("commit: %w", err)
	}

	branch, _ := strings.CutPrefix(head, "refs/heads/")
	if ref == "HEAD" {
		branch = ""
	}
	r.Logger.Info("committed", zap.Stringer("commit", h), zap.String("branch", branch))
	return h, branch, nil
}

// LogEntry pairs a commit with its hash.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.Commit
}

// Log walks the commit history starting from the given hash, following
// parent links, returning up to limit commits newest first. A limit of zero
// or less walks to the root.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := &start
	for current != nil && (limit <= 0 || len(entries) < limit) {
		c, err := r.Store.ReadCommit(*current)
		if err != nil {
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: *current, Commit: c})
		current = c.Parent
	}
	return entries, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
