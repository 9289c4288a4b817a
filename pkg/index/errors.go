package index

import "errors"

var (
	// ErrInvalidFormat reports a malformed index file: bad signature or
	// version, a truncated or inconsistent record, a damaged extension, or a
	// trailing checksum that does not match.
	ErrInvalidFormat = errors.New("invalid index format")

	// ErrLocked reports that another writer held the index lock for longer
	// than the wait limit.
	ErrLocked = errors.New("index locked")
)
