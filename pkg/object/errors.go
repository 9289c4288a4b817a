package object

import "errors"

var (
	// ErrNotFound is returned when no object is stored under a hash.
	ErrNotFound = errors.New("object not found")

	// ErrCorrupt is returned when stored bytes cannot be decompressed or do
	// not carry a valid "type len\0" envelope.
	ErrCorrupt = errors.New("corrupt object")

	// ErrInvalidObject is returned when canonical bytes fail to decode.
	ErrInvalidObject = errors.New("invalid object")

	// ErrHashMismatch is returned when an asserted hash differs from the
	// hash recomputed over the content.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrNotText is returned for blob content that is not valid UTF-8.
	ErrNotText = errors.New("content is not valid UTF-8 text")
)
