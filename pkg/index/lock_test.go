package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	l, err := Lock(path)
	require.NoError(t, err)

	_, err = LockTimeout(path, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrLocked)

	l.Release()
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file must be removed on release")

	l2, err := LockTimeout(path, 20*time.Millisecond)
	require.NoError(t, err)
	l2.Release()
}

func TestLockCommitReplacesIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	l, err := Lock(path)
	require.NoError(t, err)
	defer l.Release()

	ix, err := l.Read()
	require.NoError(t, err)
	ix.AddOrReplace(testEntry("hello.txt", "hello\n"))
	require.NoError(t, l.Commit(ix))

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "commit must consume the lock file")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello.txt"}, got.Names())

	// Release after commit is a no-op and does not remove the new index.
	l.Release()
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Error(t, l.Commit(ix), "a lock cannot be committed twice")
}

func TestLockReleaseLeavesIndexUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	orig := New()
	orig.AddOrReplace(testEntry("keep.txt", "keep"))
	require.NoError(t, orig.Write(path))

	l, err := Lock(path)
	require.NoError(t, err)
	ix, err := l.Read()
	require.NoError(t, err)
	ix.AddOrReplace(testEntry("dropped.txt", "dropped"))
	l.Release()

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, got.Names())
}

func TestLockWaitsForHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	l, err := Lock(path)
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		l.Release()
		close(released)
	}()

	l2, err := LockTimeout(path, time.Second)
	require.NoError(t, err)
	<-released
	l2.Release()
}
