//go:build unix

package index

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/odvcencio/mgit/pkg/object"
)

// Stat builds an entry for the file at path with every cached stat field
// filled from lstat(2).
func Stat(path, name string, h object.Hash) (Entry, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}

	e := NewEntry(name, info, h)
	e.CTime = Timestamp{Sec: uint32(st.Ctim.Sec), Nsec: uint32(st.Ctim.Nsec)}
	e.MTime = Timestamp{Sec: uint32(st.Mtim.Sec), Nsec: uint32(st.Mtim.Nsec)}
	e.Dev = uint32(st.Dev)
	e.Inode = uint32(st.Ino)
	e.UID = st.Uid
	e.GID = st.Gid
	return e, nil
}
