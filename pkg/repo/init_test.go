package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/mgit/pkg/object"
)

// newTestRepo initializes a repository with a configured identity and a
// fixed clock.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r.Config.User = UserConfig{Name: "Test User", Email: "test@example.com"}

	orig := now
	now = func() time.Time { return time.Unix(1616834749, 0) }
	t.Cleanup(func() { now = orig })
	return r
}

// writeFile creates name (slash-separated) under the working tree and
// returns its absolute path.
func writeFile(t *testing.T, r *Repo, name, content string) string {
	t.Helper()
	path := filepath.Join(r.RootDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// commitFiles writes and stages files, then commits them.
func commitFiles(t *testing.T, r *Repo, msg string, files map[string]string) object.Hash {
	t.Helper()
	var paths []string
	for name, content := range files {
		paths = append(paths, writeFile(t, r, name, content))
	}
	if err := r.Add(paths...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, _, err := r.Commit(msg)
	if err != nil {
		t.Fatalf("Commit(%q): %v", msg, err)
	}
	return h
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.IsDir() {
		t.Fatalf("%s is a directory, want file", path)
	}
}

// Test 1: Init creates .mgit/ structure (HEAD, objects/, refs/heads/).
func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()

	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init(%q): %v", dir, err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}
	gitDir := filepath.Join(dir, ".mgit")
	if r.GitDir != gitDir {
		t.Errorf("GitDir = %q, want %q", r.GitDir, gitDir)
	}

	assertDir(t, gitDir)
	assertFile(t, filepath.Join(gitDir, "HEAD"))
	assertDir(t, filepath.Join(gitDir, "objects"))
	assertDir(t, filepath.Join(gitDir, "refs", "heads"))

	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if string(data) != "ref: refs/heads/master\n" {
		t.Errorf("HEAD = %q", data)
	}
	if r.Store == nil || r.Config == nil || r.Logger == nil {
		t.Error("Init left Store, Config or Logger nil")
	}
	if r.Config.Core.CacheSize != object.DefaultCacheSize {
		t.Errorf("CacheSize = %d, want default %d", r.Config.Core.CacheSize, object.DefaultCacheSize)
	}
}

// Test 2: Init on existing repo returns error.
func TestInit_ExistingRepo_Error(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if _, err := Init(dir); err == nil {
		t.Fatal("second Init should fail on existing repo, got nil error")
	}
}

// Test 3: Open finds .mgit/ from a subdirectory.
func TestOpen_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sub := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	r, err := Open(sub)
	if err != nil {
		t.Fatalf("Open(%q): %v", sub, err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}
}

// Test 4: Open outside any repository reports ErrNotRepository.
func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Open error = %v, want ErrNotRepository", err)
	}
}

// Test 5: HEAD of a fresh repository resolves to ErrRefNotFound.
func TestResolveRef_UnbornHead(t *testing.T) {
	r := newTestRepo(t)

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "refs/heads/master" {
		t.Errorf("Head = %q", head)
	}
	if _, err := r.ResolveRef("HEAD"); !errors.Is(err, ErrRefNotFound) {
		t.Fatalf("ResolveRef(HEAD) = %v, want ErrRefNotFound", err)
	}
}

// Test 6: UpdateRef writes the hash and ResolveRef finds it by every name.
func TestUpdateRef_Resolve(t *testing.T) {
	r := newTestRepo(t)
	h := object.HashBytes([]byte("some commit"))

	if err := r.UpdateRef("refs/heads/master", h, "test"); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(r.GitDir, "refs", "heads", "master"))
	if err != nil {
		t.Fatalf("read ref: %v", err)
	}
	if strings.TrimSpace(string(data)) != h.String() {
		t.Errorf("ref file = %q, want %s", data, h)
	}

	for _, name := range []string{"HEAD", "master", "refs/heads/master", h.String()} {
		got, err := r.ResolveRef(name)
		if err != nil {
			t.Fatalf("ResolveRef(%q): %v", name, err)
		}
		if got != h {
			t.Errorf("ResolveRef(%q) = %s, want %s", name, got, h)
		}
	}
	if _, err := os.Stat(filepath.Join(r.GitDir, "refs", "heads", "master.lock")); !os.IsNotExist(err) {
		t.Error("lock file left behind")
	}
}

// Test 7: UpdateRef fails with ErrRefLocked while another writer holds the lock.
func TestUpdateRef_Locked(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the lock timeout")
	}
	r := newTestRepo(t)
	lock := filepath.Join(r.GitDir, "refs", "heads", "master.lock")
	if err := os.WriteFile(lock, nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	err := r.UpdateRef("refs/heads/master", object.HashBytes([]byte("x")), "test")
	if !errors.Is(err, ErrRefLocked) {
		t.Fatalf("UpdateRef error = %v, want ErrRefLocked", err)
	}
	if _, err := os.Stat(lock); err != nil {
		t.Error("foreign lock file must not be removed")
	}
}

// Test 8: WithCacheSize overrides the configured cache size.
func TestOpen_Options(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	r, err := Open(dir, WithCacheSize(0), WithLogger(nil))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Logger == nil {
		t.Fatal("WithLogger(nil) must keep the default logger")
	}
	h, err := r.Store.WriteObject(&object.Blob{Content: "cached?"})
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if _, err := r.Store.ReadBlob(h); err != nil {
		t.Fatalf("ReadBlob with cache disabled: %v", err)
	}
}
