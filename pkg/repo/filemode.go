package repo

import (
	"os"

	"github.com/odvcencio/mgit/pkg/object"
)

// filePermFromMode maps a tree entry mode to working tree permissions.
func filePermFromMode(mode object.FileMode) os.FileMode {
	if mode == object.ModeExecutable {
		return 0o755
	}
	return 0o644
}

// writeWorkingFile materializes a blob at abs, replacing what is there.
// Symlink entries store their target as content.
func writeWorkingFile(abs string, mode object.FileMode, content string) error {
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	if mode == object.ModeSymlink {
		return os.Symlink(content, abs)
	}
	perm := filePermFromMode(mode)
	if err := os.WriteFile(abs, []byte(content), perm); err != nil {
		return err
	}
	// WriteFile is subject to umask; the executable bit must survive it.
	return os.Chmod(abs, perm)
}
