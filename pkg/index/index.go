// Package index reads and writes the binary staging area.
//
// The on-disk layout, all integers big-endian:
//
//	"DIRC" | version=2 | entryCount | entries... | [extensions...] | sha1
//
// Entries are kept sorted by name. The only extension written is TREE, the
// cache of tree hashes built from the staged entries.
package index

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/odvcencio/mgit/pkg/object"
)

// Version is the only index format version read or written.
const Version = 2

var signature = [4]byte{'D', 'I', 'R', 'C'}

const headerSize = 12

// Index is the staged file list. Entries are keyed by name, so adding a
// path that is already staged replaces it.
type Index struct {
	entries map[string]Entry
	// Cache is the tree cache, or nil when the index has none.
	Cache *TreeCache
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Len returns the number of staged entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Entry returns the entry staged under name.
func (ix *Index) Entry(name string) (Entry, bool) {
	e, ok := ix.entries[name]
	return e, ok
}

// Entries returns all entries sorted ascending by name, compared byte-wise.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the staged names in index order.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.entries))
	for name := range ix.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AddOrReplace stages e, replacing any entry with the same name whatever its
// hash. Tree-cache nodes on the entry's path are invalidated.
func (ix *Index) AddOrReplace(e Entry) {
	if old, ok := ix.entries[e.Name]; ok && old == e {
		return
	}
	ix.entries[e.Name] = e
	ix.Cache.Invalidate(e.Name)
}

// Remove unstages name and reports whether it was present.
func (ix *Index) Remove(name string) bool {
	if _, ok := ix.entries[name]; !ok {
		return false
	}
	delete(ix.entries, name)
	ix.Cache.Invalidate(name)
	return true
}

// Reset drops every entry and the tree cache.
func (ix *Index) Reset() {
	clear(ix.entries)
	ix.Cache = nil
}

// Encode serializes the index and appends the trailing checksum.
func (ix *Index) Encode() ([]byte, error) {
	entries := ix.Entries()

	buf := make([]byte, 0, headerSize+len(entries)*recordLen(16)+object.HashSize)
	buf = append(buf, signature[:]...)
	buf = binary.BigEndian.AppendUint32(buf, Version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))

	var err error
	for i := range entries {
		if buf, err = entries[i].appendTo(buf); err != nil {
			return nil, fmt.Errorf("encode index: %w", err)
		}
	}

	if ix.Cache != nil && len(ix.Cache.Nodes) > 0 {
		payload := ix.Cache.encode(nil)
		buf = append(buf, treeCacheSignature[:]...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
		buf = append(buf, payload...)
	}

	sum := sha1.Sum(buf)
	return append(buf, sum[:]...), nil
}

// Decode parses a complete index file.
func Decode(data []byte) (*Index, error) {
	if len(data) < headerSize+object.HashSize {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", ErrInvalidFormat, len(data))
	}
	body, trailer := data[:len(data)-object.HashSize], data[len(data)-object.HashSize:]
	if sum := sha1.Sum(body); !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: %w: checksum %x, content hashes to %x", ErrInvalidFormat, object.ErrHashMismatch, trailer, sum)
	}

	if !bytes.Equal(body[:4], signature[:]) {
		return nil, fmt.Errorf("%w: bad signature %q", ErrInvalidFormat, body[:4])
	}
	if v := binary.BigEndian.Uint32(body[4:8]); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, v)
	}
	count := binary.BigEndian.Uint32(body[8:12])

	ix := New()
	rest := body[headerSize:]
	prev := ""
	for i := uint32(0); i < count; i++ {
		e, n, err := decodeEntry(rest)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if i > 0 && e.Name <= prev {
			return nil, fmt.Errorf("%w: entry %q out of order after %q", ErrInvalidFormat, e.Name, prev)
		}
		ix.entries[e.Name] = e
		prev = e.Name
		rest = rest[n:]
	}

	for len(rest) > 0 {
		if len(rest) < 8 {
			return nil, fmt.Errorf("%w: truncated extension header", ErrInvalidFormat)
		}
		var sig [4]byte
		copy(sig[:], rest[:4])
		size := binary.BigEndian.Uint32(rest[4:8])
		if uint64(size) > uint64(len(rest)-8) {
			return nil, fmt.Errorf("%w: extension %q overruns file", ErrInvalidFormat, sig[:])
		}
		payload := rest[8 : 8+size]
		rest = rest[8+size:]

		switch {
		case sig == treeCacheSignature:
			tc, err := decodeTreeCache(payload)
			if err != nil {
				return nil, err
			}
			ix.Cache = tc
		case sig[0] >= 'A' && sig[0] <= 'Z':
			// Optional extension this version does not understand.
		default:
			return nil, fmt.Errorf("%w: unsupported mandatory extension %q", ErrInvalidFormat, sig[:])
		}
	}
	return ix, nil
}

// Read loads the index at path. A missing file yields an empty index.
func Read(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	ix, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return ix, nil
}

// Write replaces the index at path. The new content goes to a temporary
// file in the same directory which is then renamed over path, so readers
// never observe a partial index.
func (ix *Index) Write(path string) error {
	data, err := ix.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write index: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}
