package repo

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/odvcencio/mgit/pkg/object"
)

func readWork(t *testing.T, r *Repo, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// Test 1: switching branches rewrites the working tree and index.
func TestCheckout_SwitchBranch(t *testing.T) {
	r := newTestRepo(t)
	base := commitFiles(t, r, "base", map[string]string{"a.txt": "base\n", "old/x.txt": "x\n"})
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := os.RemoveAll(filepath.Join(r.RootDir, "old")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if err := r.Add(filepath.Join(r.RootDir, "old")); err != nil {
		t.Fatalf("Add removal: %v", err)
	}
	commitFiles(t, r, "master change", map[string]string{"a.txt": "master\n", "new/y.txt": "y\n"})

	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout feature: %v", err)
	}
	if got := readWork(t, r, "a.txt"); got != "base\n" {
		t.Errorf("a.txt = %q", got)
	}
	if got := readWork(t, r, "old/x.txt"); got != "x\n" {
		t.Errorf("old/x.txt = %q", got)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "new")); !os.IsNotExist(err) {
		t.Error("directory of a file only on master was left behind")
	}
	if b, _ := r.CurrentBranch(); b != "feature" {
		t.Errorf("CurrentBranch = %q", b)
	}
	if m := statusMap(t, r); len(m) != 0 {
		t.Errorf("status after checkout = %v", m)
	}

	ix, _ := r.ReadIndex()
	if n, ok := ix.Cache.Lookup(""); !ok || !n.Valid() {
		t.Error("checkout should leave a valid tree cache")
	}

	if err := r.Checkout("master", false); err != nil {
		t.Fatalf("Checkout master: %v", err)
	}
	if got := readWork(t, r, "a.txt"); got != "master\n" {
		t.Errorf("a.txt = %q", got)
	}
	if _, err := os.Stat(filepath.Join(r.RootDir, "old")); !os.IsNotExist(err) {
		t.Error("old/ should be gone on master")
	}
}

// Test 2: a dirty working tree blocks checkout.
func TestCheckout_RefusesDirty(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "base", map[string]string{"a.txt": "a\n"})
	if err := r.CreateBranch("other", c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, r, "a.txt", "dirty\n")

	if err := r.Checkout("other", false); !errors.Is(err, ErrDirtyWorkingTree) {
		t.Fatalf("Checkout = %v, want ErrDirtyWorkingTree", err)
	}
	if got := readWork(t, r, "a.txt"); got != "dirty\n" {
		t.Error("dirty file was overwritten")
	}
}

// Test 3: untracked files in the way block checkout.
func TestCheckout_RefusesUntrackedOverwrite(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "base", map[string]string{"a.txt": "a\n"})
	if err := r.Checkout("side", true); err != nil {
		t.Fatalf("Checkout -b: %v", err)
	}
	commitFiles(t, r, "side", map[string]string{"b.txt": "side\n"})
	if err := r.Checkout("master", false); err != nil {
		t.Fatalf("Checkout master: %v", err)
	}

	writeFile(t, r, "b.txt", "mine\n")
	if err := r.Checkout("side", false); err == nil {
		t.Fatal("checkout overwrote an untracked file")
	}
	if got := readWork(t, r, "b.txt"); got != "mine\n" {
		t.Error("untracked file was modified")
	}
}

// Test 4: checkout -b on an unborn branch only moves HEAD.
func TestCheckout_CreateUnborn(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Checkout("main", true); err != nil {
		t.Fatalf("Checkout -b: %v", err)
	}
	head, _ := r.Head()
	if head != "refs/heads/main" {
		t.Errorf("HEAD = %q", head)
	}
	if _, _, err := r.Commit("x"); !errors.Is(err, ErrNothingToCommit) {
		t.Fatalf("Commit on empty index = %v", err)
	}

	c := commitFiles(t, r, "first", map[string]string{"f": "f\n"})
	if got, _ := r.ResolveRef("main"); got != c {
		t.Errorf("main = %s, want %s", got, c)
	}
	if err := r.Checkout("main", true); err == nil {
		t.Error("checkout -b of an existing branch succeeded")
	}
}

// Test 5: checking out an unknown name fails cleanly.
func TestCheckout_Unknown(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "base", map[string]string{"a.txt": "a\n"})
	if err := r.Checkout("nope", false); err == nil {
		t.Error("checkout of unknown branch succeeded")
	}
	missing := object.HashBytes([]byte("missing"))
	if err := r.Checkout(missing.String(), false); !errors.Is(err, object.ErrNotFound) {
		t.Errorf("checkout of missing commit = %v, want ErrNotFound", err)
	}
}

// Test 6: modes survive a round trip through a commit and checkout.
func TestCheckout_RestoresModes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no exec bit")
	}
	r := newTestRepo(t)
	script := writeFile(t, r, "run.sh", "#!/bin/sh\n")
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := r.Add(script); err != nil {
		t.Fatalf("Add: %v", err)
	}
	c, _, err := r.Commit("script")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.CreateBranch("copy", c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := os.Remove(script); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Add(script); err != nil {
		t.Fatalf("Add removal: %v", err)
	}
	commitFiles(t, r, "other", map[string]string{"x": "x\n"})

	if err := r.Checkout("copy", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	info, err := os.Stat(script)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

// putRawTree stores a tree body as is, bypassing the name checks of
// Store.WriteObject, and returns its hash.
func putRawTree(t *testing.T, r *Repo, body []byte) object.Hash {
	t.Helper()
	raw := append([]byte("tree "+strconv.Itoa(len(body))+"\x00"), body...)
	h, err := r.Store.Put(raw)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return h
}

// forceBranch points a new branch at a commit of tree, without the checks
// CommitTree applies to the tree.
func forceBranch(t *testing.T, r *Repo, name string, tree object.Hash) {
	t.Helper()
	sig, err := r.Config.Signature(now())
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	c, err := r.Store.WriteObject(&object.Commit{Tree: tree, Author: sig, Committer: sig, Message: name + "\n"})
	if err != nil {
		t.Fatalf("WriteObject commit: %v", err)
	}
	if err := r.CreateBranch(name, c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
}

// Test 7: a tree entry climbing out of the working tree is never written.
func TestCheckout_RejectsEscapingTreeEntry(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})

	blob, err := r.Store.WriteObject(&object.Blob{Content: "pwned\n"})
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	tree := putRawTree(t, r, append([]byte("100644 ../escaped.txt\x00"), blob[:]...))

	if _, err := r.CommitTree(tree, nil, "evil"); !errors.Is(err, object.ErrInvalidObject) {
		t.Fatalf("CommitTree: got %v, want ErrInvalidObject", err)
	}
	forceBranch(t, r, "evil", tree)

	if err := r.Checkout("evil", false); err == nil {
		t.Fatal("Checkout of escaping tree succeeded")
	}
	escaped := filepath.Join(filepath.Dir(r.RootDir), "escaped.txt")
	if _, err := os.Lstat(escaped); !os.IsNotExist(err) {
		t.Fatalf("file written outside the working tree: %v", err)
	}
	if got := readWork(t, r, "a.txt"); got != "a\n" {
		t.Errorf("a.txt = %q after failed checkout", got)
	}
	if b, err := r.CurrentBranch(); err != nil || b != "master" {
		t.Errorf("CurrentBranch = %q, %v; want master", b, err)
	}
}

// Test 8: a tree may not write into the metadata directory.
func TestCheckout_RejectsMetadataTreeEntry(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})
	before, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}

	blob, err := r.Store.WriteObject(&object.Blob{Content: "ref: refs/heads/evil\n"})
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	meta, err := r.Store.WriteObject(&object.Tree{Entries: []object.TreeEntry{
		{Mode: object.ModeFile, Name: "HEAD", Hash: blob},
	}})
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	root, err := r.Store.WriteObject(&object.Tree{Entries: []object.TreeEntry{
		{Mode: object.ModeDir, Name: DirName, Hash: meta},
	}})
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	forceBranch(t, r, "evil", root)

	if err := r.Checkout("evil", false); !errors.Is(err, ErrPathOutsideRepo) {
		t.Fatalf("Checkout: got %v, want ErrPathOutsideRepo", err)
	}
	after, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if string(after) != string(before) {
		t.Errorf("HEAD rewritten to %q", after)
	}
}

// Test 9: checkout does not follow a symlinked parent directory.
func TestCheckout_RefusesSymlinkedParent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})

	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(r.RootDir, "dir")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if err := r.checkWorkPath("dir/x"); !errors.Is(err, ErrPathOutsideRepo) {
		t.Errorf("checkWorkPath through symlink: got %v, want ErrPathOutsideRepo", err)
	}
	if err := r.checkWorkPath("fresh/dir/x"); err != nil {
		t.Errorf("checkWorkPath with missing parents: %v", err)
	}
}

func TestCheckTreePath(t *testing.T) {
	for _, p := range []string{"../x", "a/../../x", "/abs", "..", ".mgit/config", ".MGIT/HEAD", ""} {
		if err := checkTreePath(p); !errors.Is(err, ErrPathOutsideRepo) {
			t.Errorf("checkTreePath(%q): got %v, want ErrPathOutsideRepo", p, err)
		}
	}
	for _, p := range []string{"a", "a/b/c", "src/.mgit", ".mgitignore", "..dots"} {
		if err := checkTreePath(p); err != nil {
			t.Errorf("checkTreePath(%q): %v", p, err)
		}
	}
}
