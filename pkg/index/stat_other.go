//go:build !unix

package index

import (
	"fmt"
	"os"

	"github.com/odvcencio/mgit/pkg/object"
)

// Stat builds an entry for the file at path. Only the portable fields are
// available here.
func Stat(path, name string, h object.Hash) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return NewEntry(name, info, h), nil
}
