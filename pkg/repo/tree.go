package repo

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/index"
	"github.com/odvcencio/mgit/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path string
	Mode object.FileMode
	Hash object.Hash
}

// WriteTree writes the tree objects for the current index and returns the
// root tree hash. Directories whose tree-cache node is still valid are
// reused without rewriting; the refreshed cache is saved with the index.
func (r *Repo) WriteTree() (object.Hash, error) {
	var root object.Hash
	err := r.withIndexLock(func(ix *index.Index) error {
		h, err := r.buildTree(ix)
		root = h
		return err
	})
	if err != nil {
		return object.ZeroHash, fmt.Errorf("write-tree: %w", err)
	}
	return root, nil
}

// buildTree writes the trees for ix and replaces its cache.
func (r *Repo) buildTree(ix *index.Index) (object.Hash, error) {
	b := &treeBuilder{store: r.Store, old: ix.Cache}
	h, err := b.build(ix.Entries(), "")
	if err != nil {
		return object.ZeroHash, err
	}
	ix.Cache = &index.TreeCache{Nodes: b.nodes}
	r.Logger.Debug("tree written",
		zap.Stringer("tree", h),
		zap.Int("reused", b.reused),
		zap.Int("written", b.written),
	)
	return h, nil
}

// treeBuilder emits cache nodes in pre-order while writing trees bottom-up.
type treeBuilder struct {
	store   *object.Store
	old     *index.TreeCache
	nodes   []index.CacheNode
	reused  int
	written int
}

// build writes the tree for dir from entries, the sorted index entries that
// live under dir.
func (b *treeBuilder) build(entries []index.Entry, dir string) (object.Hash, error) {
	name := ""
	if dir != "" {
		name = path.Base(dir)
	}

	if cached, ok := b.old.Subtree(dir); ok && cached[0].Valid() &&
		cached[0].EntryCount == len(entries) && b.store.Has(cached[0].Hash) {
		cached[0].Name = name
		b.nodes = append(b.nodes, cached...)
		b.reused++
		return cached[0].Hash, nil
	}

	at := len(b.nodes)
	b.nodes = append(b.nodes, index.CacheNode{Name: name, EntryCount: len(entries)})

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	tree := &object.Tree{}
	for i := 0; i < len(entries); {
		rel := strings.TrimPrefix(entries[i].Name, prefix)
		sub, _, nested := strings.Cut(rel, "/")
		if !nested {
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Mode: entries[i].Mode,
				Name: rel,
				Type: object.TypeBlob,
				Hash: entries[i].Hash,
			})
			i++
			continue
		}

		// Sorted order keeps every entry of a subdirectory contiguous.
		j := i + 1
		for j < len(entries) && strings.HasPrefix(entries[j].Name, prefix+sub+"/") {
			j++
		}
		h, err := b.build(entries[i:j], prefix+sub)
		if err != nil {
			return object.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Mode: object.ModeDir,
			Name: sub,
			Type: object.TypeTree,
			Hash: h,
		})
		b.nodes[at].SubtreeCount++
		i = j
	}

	h, err := b.store.WriteObject(tree)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("write tree %q: %w", dir, err)
	}
	b.nodes[at].Hash = h
	b.written++
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash-separated paths in tree order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	t, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	seen := make(map[string]bool, len(t.Entries))
	for _, e := range t.Entries {
		if err := object.CheckEntryName(e.Name); err != nil {
			return nil, fmt.Errorf("flatten tree %s: %w", h, err)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("flatten tree %s: %w: duplicate entry %q", h, object.ErrInvalidObject, e.Name)
		}
		seen[e.Name] = true

		full := path.Join(prefix, e.Name)
		if err := checkTreePath(full); err != nil {
			return nil, fmt.Errorf("flatten tree %s: %w", h, err)
		}
		if (e.Type == object.TypeTree) != e.Mode.IsDir() {
			return nil, fmt.Errorf("flatten tree %s: %w: entry %q has mode %s but names a %s",
				h, object.ErrInvalidObject, full, e.Mode, e.Type)
		}
		if e.Type == object.TypeTree {
			sub, err := r.flattenTreeRec(e.Hash, full)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{Path: full, Mode: e.Mode, Hash: e.Hash})
	}
	return result, nil
}

// checkTreePath rejects a slash-separated tree path that would not stay
// inside the working tree or that would land in the metadata directory.
func checkTreePath(name string) error {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return fmt.Errorf("%w: %q", ErrPathOutsideRepo, name)
	}
	if first, _, _ := strings.Cut(name, "/"); strings.EqualFold(first, DirName) {
		return fmt.Errorf("%w: %q is inside %s", ErrPathOutsideRepo, name, DirName)
	}
	return nil
}

// headTree returns the flattened tree of the commit HEAD points at, keyed
// by path. An unborn branch yields an empty map.
func (r *Repo) headTree() (map[string]TreeFileEntry, error) {
	files := make(map[string]TreeFileEntry)
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		if isUnborn(err) {
			return files, nil
		}
		return nil, err
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	entries, err := r.FlattenTree(c.Tree)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		files[e.Path] = e
	}
	return files, nil
}
