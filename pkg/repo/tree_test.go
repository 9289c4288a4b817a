package repo

import (
	"reflect"
	"testing"

	"github.com/odvcencio/mgit/pkg/object"
)

// Test 1: WriteTree of an empty index is git's empty tree.
func TestWriteTree_Empty(t *testing.T) {
	r := newTestRepo(t)
	h, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if h.String() != "4b825dc642cb6eb9a060e54bf8d69288fbe4904b" {
		t.Errorf("empty tree = %s", h)
	}
}

// Test 2: nested directories become subtrees in git order.
func TestWriteTree_Nested(t *testing.T) {
	r := newTestRepo(t)
	for name, content := range map[string]string{
		"a.txt":       "a\n",
		"a/b.txt":     "b\n",
		"a-c.txt":     "c\n",
		"z/y/deep.go": "package y\n",
	} {
		writeFile(t, r, name, content)
	}
	if err := r.Add(r.RootDir); err != nil {
		t.Fatalf("Add: %v", err)
	}

	root, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	tree, err := r.Store.ReadTree(root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}

	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	// '-' (0x2d) < '.' (0x2e) < '/' (0x2f): the subtree "a" sorts as "a/".
	if want := []string{"a-c.txt", "a.txt", "a", "z"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("root entries = %v, want %v", names, want)
	}
	if tree.Entries[2].Mode != object.ModeDir || tree.Entries[2].Type != object.TypeTree {
		t.Errorf("a entry = %s %s", tree.Entries[2].Mode, tree.Entries[2].Type)
	}

	files, err := r.FlattenTree(root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	if want := []string{"a-c.txt", "a.txt", "a/b.txt", "z/y/deep.go"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("flattened = %v, want %v", paths, want)
	}
}

// Test 3: WriteTree persists a tree cache that mirrors the written trees.
func TestWriteTree_PersistsCache(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "top.txt", "t\n")
	writeFile(t, r, "src/a.go", "package src\n")
	writeFile(t, r, "src/cmd/main.go", "package main\n")
	writeFile(t, r, "docs/x.md", "# x\n")
	if err := r.Add(r.RootDir); err != nil {
		t.Fatalf("Add: %v", err)
	}

	root, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	ix, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if ix.Cache == nil {
		t.Fatal("tree cache not persisted")
	}

	type node struct {
		name       string
		count, sub int
	}
	var got []node
	for _, n := range ix.Cache.Nodes {
		got = append(got, node{n.Name, n.EntryCount, n.SubtreeCount})
	}
	want := []node{{"", 4, 2}, {"docs", 1, 0}, {"src", 2, 1}, {"cmd", 1, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cache nodes = %v, want %v", got, want)
	}

	rootNode, ok := ix.Cache.Lookup("")
	if !ok || rootNode.Hash != root {
		t.Errorf("root node hash = %s, want %s", rootNode.Hash, root)
	}
	srcTree := subtreeHash(t, r, root, "src")
	if n, _ := ix.Cache.Lookup("src"); n.Hash != srcTree {
		t.Errorf("src node hash = %s, want %s", n.Hash, srcTree)
	}
}

// Test 4: after a change, valid subtrees are reused and the result matches
// a build from scratch.
func TestWriteTree_ReusesValidNodes(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "docs/x.md", "# x\n")
	writeFile(t, r, "src/a.go", "package src\n")
	if err := r.Add(r.RootDir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.WriteTree(); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	path := writeFile(t, r, "src/a.go", "package src // changed\n")
	if err := r.Add(path); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ix, _ := r.ReadIndex()
	if n, _ := ix.Cache.Lookup("src"); n.Valid() {
		t.Error("src node still valid after staging a change under it")
	}
	if n, _ := ix.Cache.Lookup("docs"); !n.Valid() {
		t.Error("docs node invalidated by an unrelated change")
	}
	if n, _ := ix.Cache.Lookup(""); n.Valid() {
		t.Error("root node still valid")
	}

	incremental, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	// Drop the cache and rebuild everything.
	ix, _ = r.ReadIndex()
	ix.Cache = nil
	if err := ix.Write(r.IndexPath()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	full, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if incremental != full {
		t.Errorf("incremental tree %s != full rebuild %s", incremental, full)
	}
}

func subtreeHash(t *testing.T, r *Repo, root object.Hash, name string) object.Hash {
	t.Helper()
	tree, err := r.Store.ReadTree(root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	for _, e := range tree.Entries {
		if e.Name == name {
			return e.Hash
		}
	}
	t.Fatalf("no entry %q in %s", name, root)
	return object.ZeroHash
}
