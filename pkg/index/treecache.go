package index

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/odvcencio/mgit/pkg/object"
)

// treeCacheSignature names the tree-cache extension.
var treeCacheSignature = [4]byte{'T', 'R', 'E', 'E'}

// CacheNode memoizes the tree object built for one directory. Nodes are
// stored in pre-order: a node is followed by its SubtreeCount children, each
// with their own descendants.
type CacheNode struct {
	// Name is the directory's last path component; the root is "".
	Name string
	// EntryCount is the number of index entries under this directory, or
	// -1 when the node is invalid and carries no hash.
	EntryCount   int
	SubtreeCount int
	Hash         object.Hash
}

// Valid reports whether the node's hash may be reused.
func (n CacheNode) Valid() bool { return n.EntryCount >= 0 }

// TreeCache is the decoded TREE extension.
type TreeCache struct {
	Nodes []CacheNode
}

// Lookup returns the node for dir ("" is the root, "a/b" a nested
// directory).
func (tc *TreeCache) Lookup(dir string) (CacheNode, bool) {
	if tc == nil || len(tc.Nodes) == 0 {
		return CacheNode{}, false
	}
	i, ok := tc.find(dir)
	if !ok {
		return CacheNode{}, false
	}
	return tc.Nodes[i], true
}

// Subtree returns a copy of the node for dir followed by all of its
// descendants in pre-order.
func (tc *TreeCache) Subtree(dir string) ([]CacheNode, bool) {
	if tc == nil || len(tc.Nodes) == 0 {
		return nil, false
	}
	i, ok := tc.find(dir)
	if !ok {
		return nil, false
	}
	end := tc.skip(i)
	if end > len(tc.Nodes) {
		return nil, false
	}
	return append([]CacheNode(nil), tc.Nodes[i:end]...), true
}

// Invalidate marks the root and every directory on the way to the file at
// path as invalid. Nodes below the file's directory are untouched.
func (tc *TreeCache) Invalidate(path string) {
	if tc == nil || len(tc.Nodes) == 0 {
		return
	}
	tc.Nodes[0].EntryCount = -1

	parts := strings.Split(path, "/")
	pos := 0
	for _, part := range parts[:len(parts)-1] {
		child, ok := tc.child(pos, part)
		if !ok {
			return
		}
		tc.Nodes[child].EntryCount = -1
		pos = child
	}
}

func (tc *TreeCache) find(dir string) (int, bool) {
	pos := 0
	if dir == "" {
		return pos, true
	}
	for _, part := range strings.Split(dir, "/") {
		child, ok := tc.child(pos, part)
		if !ok {
			return 0, false
		}
		pos = child
	}
	return pos, true
}

// child returns the position of the direct child of the node at pos called
// name.
func (tc *TreeCache) child(pos int, name string) (int, bool) {
	next := pos + 1
	for range tc.Nodes[pos].SubtreeCount {
		if next >= len(tc.Nodes) {
			return 0, false
		}
		if tc.Nodes[next].Name == name {
			return next, true
		}
		next = tc.skip(next)
	}
	return 0, false
}

// skip returns the position just past the subtree rooted at pos, or a value
// beyond len(tc.Nodes) when the subtree counts claim more nodes than exist.
func (tc *TreeCache) skip(pos int) int {
	next := pos + 1
	for range tc.Nodes[pos].SubtreeCount {
		if next >= len(tc.Nodes) {
			return len(tc.Nodes) + 1
		}
		next = tc.skip(next)
	}
	return next
}

// encode appends the extension payload (without signature and size).
func (tc *TreeCache) encode(buf []byte) []byte {
	for _, n := range tc.Nodes {
		buf = append(buf, n.Name...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(n.EntryCount), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(n.SubtreeCount), 10)
		buf = append(buf, '\n')
		if n.Valid() {
			buf = append(buf, n.Hash[:]...)
		}
	}
	return buf
}

// decodeTreeCache parses a TREE extension payload. Each record is
//
//	name NUL entryCount SP subtreeCount LF [hash]
//
// The text part is consumed up to its own terminators and the 20 hash bytes
// that follow a valid node are taken without scanning, since they may
// contain NUL or LF.
func decodeTreeCache(data []byte) (*TreeCache, error) {
	tc := &TreeCache{}
	for len(data) > 0 {
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree cache: missing NUL after path", ErrInvalidFormat)
		}
		name := string(data[:nul])
		data = data[nul+1:]

		lf := bytes.IndexByte(data, '\n')
		if lf < 0 {
			return nil, fmt.Errorf("%w: tree cache %q: missing counts terminator", ErrInvalidFormat, name)
		}
		countStr, subStr, ok := strings.Cut(string(data[:lf]), " ")
		if !ok {
			return nil, fmt.Errorf("%w: tree cache %q: malformed counts %q", ErrInvalidFormat, name, data[:lf])
		}
		data = data[lf+1:]

		count, err := strconv.Atoi(countStr)
		if err != nil || count < -1 {
			return nil, fmt.Errorf("%w: tree cache %q: bad entry count %q", ErrInvalidFormat, name, countStr)
		}
		sub, err := strconv.Atoi(subStr)
		if err != nil || sub < 0 {
			return nil, fmt.Errorf("%w: tree cache %q: bad subtree count %q", ErrInvalidFormat, name, subStr)
		}

		node := CacheNode{Name: name, EntryCount: count, SubtreeCount: sub}
		if node.Valid() {
			if len(data) < object.HashSize {
				return nil, fmt.Errorf("%w: tree cache %q: truncated hash", ErrInvalidFormat, name)
			}
			h, err := object.HashFromBytes(data[:object.HashSize])
			if err != nil {
				return nil, fmt.Errorf("%w: tree cache %q: %w", ErrInvalidFormat, name, err)
			}
			node.Hash = h
			data = data[object.HashSize:]
		}
		tc.Nodes = append(tc.Nodes, node)
	}

	if len(tc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: tree cache: empty", ErrInvalidFormat)
	}
	if tc.Nodes[0].Name != "" {
		return nil, fmt.Errorf("%w: tree cache: root has path %q", ErrInvalidFormat, tc.Nodes[0].Name)
	}
	if end := tc.skip(0); end != len(tc.Nodes) {
		return nil, fmt.Errorf("%w: tree cache: subtree counts cover %d of %d nodes", ErrInvalidFormat, end, len(tc.Nodes))
	}
	return tc, nil
}
