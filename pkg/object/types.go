package object

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// ParseObjectType maps a header type tag to an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	switch ObjectType(s) {
	case TypeBlob, TypeTree, TypeCommit:
		return ObjectType(s), nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidObject, s)
}

// FileMode is a Unix file type and permission word, written in octal in tree
// entries (100644) and as a 32-bit integer in the index.
type FileMode uint32

const (
	ModeDir        FileMode = 0o040000
	ModeFile       FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
	ModeSymlink    FileMode = 0o120000
)

// ParseFileMode parses an octal mode string such as "100644" or "40000".
func ParseFileMode(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("parse mode %q: %w", s, err)
	}
	return FileMode(v), nil
}

// String renders the mode in octal without leading zeros.
func (m FileMode) String() string {
	return strconv.FormatUint(uint64(m), 8)
}

// IsDir reports whether the mode names a subtree.
func (m FileMode) IsDir() bool {
	return m&0o170000 == ModeDir
}

// Object is implemented by every storable entity.
type Object interface {
	Type() ObjectType
}

// Blob holds UTF-8 file content.
type Blob struct {
	Content string
}

// NewBlob builds a Blob from raw file bytes, rejecting non-text content.
func NewBlob(data []byte) (*Blob, error) {
	if !utf8.Valid(data) {
		return nil, ErrNotText
	}
	return &Blob{Content: string(data)}, nil
}

func (b *Blob) Type() ObjectType { return TypeBlob }

// Size is the content length in bytes.
func (b *Blob) Size() int { return len(b.Content) }

// TreeEntry is one file or subtree reference in a tree object.
type TreeEntry struct {
	Mode FileMode
	Name string
	Type ObjectType
	Hash Hash
}

// Tree is an ordered list of entries. Encoding keeps the given order.
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Type() ObjectType { return TypeTree }

// Signature identifies an author or committer at a point in time. When keeps
// the original fixed UTC offset.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit points at a root tree and at most one parent.
type Commit struct {
	Tree      Hash
	Parent    *Hash
	Author    Signature
	Committer Signature
	Message   string
}

func (c *Commit) Type() ObjectType { return TypeCommit }
