package repo

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/odvcencio/mgit/pkg/object"
)

// Test 1: CreateBranch points the new branch at the given commit.
func TestCreateBranch(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})

	if err := r.CreateBranch("feature", c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	got, err := r.ResolveRef("feature")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if got != c {
		t.Errorf("feature = %s, want %s", got, c)
	}
	if err := r.CreateBranch("feature", c); err == nil {
		t.Error("creating an existing branch should fail")
	}
}

// Test 2: ListBranches is sorted and includes nested names.
func TestListBranches(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})
	for _, name := range []string{"zeta", "feature/x", "alpha"} {
		if err := r.CreateBranch(name, c); err != nil {
			t.Fatalf("CreateBranch(%q): %v", name, err)
		}
	}

	got, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	want := []string{"alpha", "feature/x", "master", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListBranches = %v, want %v", got, want)
	}
}

// Test 3: the current branch cannot be deleted; others can.
func TestDeleteBranch(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})
	if err := r.CreateBranch("tmp", c); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := r.DeleteBranch("master"); err == nil {
		t.Error("deleting the current branch should fail")
	}
	if err := r.DeleteBranch("tmp"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if err := r.DeleteBranch("tmp"); err == nil {
		t.Error("deleting a missing branch should fail")
	}
}

// Test 4: invalid branch names are rejected.
func TestValidateBranchName(t *testing.T) {
	for _, name := range []string{"", "HEAD", "-x", "a..b", "a b", "x.lock", "a/", "/a", "a//b", "a~1", "a:b"} {
		if err := validateBranchName(name); err == nil {
			t.Errorf("validateBranchName(%q) = nil, want error", name)
		}
	}
	for _, name := range []string{"master", "feature/x", "v1.2"} {
		if err := validateBranchName(name); err != nil {
			t.Errorf("validateBranchName(%q) = %v", name, err)
		}
	}
}

// Test 5: CurrentBranch follows SetHead and is empty when detached.
func TestCurrentBranch(t *testing.T) {
	r := newTestRepo(t)
	if err := r.SetHead("dev"); err != nil {
		t.Fatalf("SetHead: %v", err)
	}
	got, err := r.CurrentBranch()
	if err != nil || got != "dev" {
		t.Fatalf("CurrentBranch = %q, %v; want dev", got, err)
	}

	h := object.HashBytes([]byte("detached"))
	if err := os.WriteFile(filepath.Join(r.GitDir, "HEAD"), []byte(h.String()+"\n"), 0o644); err != nil {
		t.Fatalf("write HEAD: %v", err)
	}
	got, err = r.CurrentBranch()
	if err != nil || got != "" {
		t.Fatalf("CurrentBranch detached = %q, %v; want empty", got, err)
	}
	resolved, err := r.ResolveRef("HEAD")
	if err != nil || resolved != h {
		t.Fatalf("ResolveRef(HEAD) = %s, %v; want %s", resolved, err, h)
	}
}

// Test 6: ListRefs skips lock files.
func TestListRefs_SkipsLocks(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})
	lock := filepath.Join(r.GitDir, "refs", "heads", "master.lock")
	if err := os.WriteFile(lock, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	refs, err := r.ListRefs("")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 1 || refs["heads/master"] != c {
		t.Errorf("ListRefs = %v", refs)
	}
}

// Test 7: the reflog records each ref movement, newest first.
func TestReflog(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFiles(t, r, "first", map[string]string{"a.txt": "1\n"})
	c2 := commitFiles(t, r, "second\n\nbody", map[string]string{"a.txt": "2\n"})

	entries, err := r.ReadReflog("HEAD", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].OldHash != c1 || entries[0].NewHash != c2 {
		t.Errorf("newest = %s -> %s", entries[0].OldHash, entries[0].NewHash)
	}
	if entries[0].Reason != "commit: second" {
		t.Errorf("Reason = %q", entries[0].Reason)
	}
	if !entries[1].OldHash.IsZero() || entries[1].NewHash != c1 {
		t.Errorf("oldest = %s -> %s", entries[1].OldHash, entries[1].NewHash)
	}
	if !strings.HasPrefix(entries[1].Reason, "commit (initial)") {
		t.Errorf("initial Reason = %q", entries[1].Reason)
	}

	limited, err := r.ReadReflog("master", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ReadReflog limit 1 = %d entries, %v", len(limited), err)
	}

	none, err := r.ReadReflog("nope", 0)
	if err != nil || none != nil {
		t.Fatalf("ReadReflog(missing) = %v, %v", none, err)
	}
}

// Test 8: lightweight tags point at commits only.
func TestTags(t *testing.T) {
	r := newTestRepo(t)
	c := commitFiles(t, r, "init", map[string]string{"a.txt": "a\n"})

	if err := r.CreateTag("v1", c, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.CreateTag("v1", c, false); err == nil {
		t.Error("duplicate tag accepted without force")
	}
	if err := r.CreateTag("v1", c, true); err != nil {
		t.Errorf("forced tag: %v", err)
	}

	commit, _ := r.Store.ReadCommit(c)
	if err := r.CreateTag("tree", commit.Tree, false); err == nil {
		t.Error("tagging a tree should fail")
	}

	tags, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if names := TagNames(tags); !reflect.DeepEqual(names, []string{"v1"}) || tags["v1"] != c {
		t.Errorf("ListTags = %v", tags)
	}
	if got, err := r.ResolveRef("refs/tags/v1"); err != nil || got != c {
		t.Errorf("ResolveRef(tag) = %s, %v", got, err)
	}

	if err := r.DeleteTag("v1"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if err := r.DeleteTag("v1"); err == nil {
		t.Error("deleting a missing tag should fail")
	}
}
