package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of decompressed objects kept in memory.
const DefaultCacheSize = 256

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Objects are zlib-compressed on disk. Because they are immutable, recently
// read objects are cached without invalidation.
type Store struct {
	root  string
	level int
	log   *zap.Logger
	cache *lru.Cache[Hash, []byte]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger routes store debug logging to l.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCacheSize sets the read cache capacity. Zero disables the cache.
func WithCacheSize(n int) StoreOption {
	return func(s *Store) {
		if n <= 0 {
			s.cache = nil
			return
		}
		s.cache, _ = lru.New[Hash, []byte](n)
	}
}

// WithCompressionLevel sets the zlib level (zlib.DefaultCompression if unset).
func WithCompressionLevel(level int) StoreOption {
	return func(s *Store) { s.level = level }
}

// NewStore creates a Store rooted at the objects directory. Fan-out
// directories are created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:  root,
		level: zlib.DefaultCompression,
		log:   zap.NewNop(),
	}
	s.cache, _ = lru.New[Hash, []byte](DefaultCacheSize)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the objects directory.
func (s *Store) Root() string { return s.root }

// Path returns the filesystem path for a given hash.
func (s *Store) Path(h Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	_, err := os.Stat(s.Path(h))
	return err == nil
}

// Put stores canonical object bytes and returns their hash. Writing the same
// bytes twice is a no-op: the path is derived from the content.
func (s *Store) Put(raw []byte) (Hash, error) {
	h := HashBytes(raw)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	compressed, err := s.compress(raw)
	if err != nil {
		return h, fmt.Errorf("object put %s: compress: %w", h, err)
	}

	dir := filepath.Dir(s.Path(h))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return h, fmt.Errorf("object put mkdir: %w", err)
	}

	// Atomic write via temp + rename.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return h, fmt.Errorf("object put tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return h, fmt.Errorf("object put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return h, fmt.Errorf("object put close: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(h)); err != nil {
		os.Remove(tmpName)
		return h, fmt.Errorf("object put rename: %w", err)
	}

	s.log.Debug("object stored", zap.Stringer("hash", h), zap.Int("size", len(raw)), zap.Int("compressed", len(compressed)))
	return h, nil
}

// Get returns the canonical bytes stored under h.
func (s *Store) Get(h Hash) ([]byte, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(h); ok {
			return bytes.Clone(raw), nil
		}
	}

	raw, err := s.load(h)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(h, raw)
	}
	return bytes.Clone(raw), nil
}

// load reads and unpacks h from disk, bypassing the cache.
func (s *Store) load(h Hash) ([]byte, error) {
	data, err := os.ReadFile(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object get %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("object get %s: %w", h, err)
	}

	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("object get %s: %w: %w", h, ErrCorrupt, err)
	}
	if _, _, err := SplitHeader(raw); err != nil {
		return nil, fmt.Errorf("object get %s: %w: %w", h, ErrCorrupt, err)
	}
	return raw, nil
}

// Verify re-reads the object stored under h from disk and re-hashes it.
func (s *Store) Verify(h Hash) error {
	raw, err := s.load(h)
	if err != nil {
		return err
	}
	if got := HashBytes(raw); got != h {
		return fmt.Errorf("object verify %s: %w (content hashes to %s)", h, ErrHashMismatch, got)
	}
	return nil
}

func (s *Store) compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, s.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteObject encodes and stores obj. Trees with entry names that are not
// a single path component are refused.
func (s *Store) WriteObject(obj Object) (Hash, error) {
	if t, ok := obj.(*Tree); ok {
		if err := t.Validate(); err != nil {
			return ZeroHash, fmt.Errorf("object put: %w", err)
		}
	}
	return s.Put(Encode(obj))
}

// ReadObject reads and decodes the object stored under h.
func (s *Store) ReadObject(h Hash) (Object, error) {
	raw, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	obj, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	if t, ok := obj.(*Tree); ok {
		if err := s.resolveTypes(t); err != nil {
			return nil, fmt.Errorf("object %s: %w", h, err)
		}
	}
	return obj, nil
}

// ObjectType returns the type tag recorded in the header of h. Unless h is
// cached, only the header prefix is decompressed.
func (s *Store) ObjectType(h Hash) (ObjectType, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Peek(h); ok {
			objType, _, err := SplitHeader(raw)
			return objType, err
		}
	}

	f, err := os.Open(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("object type %s: %w", h, ErrNotFound)
		}
		return "", fmt.Errorf("object type %s: %w", h, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(bufio.NewReader(f))
	if err != nil {
		return "", fmt.Errorf("object type %s: %w: %w", h, ErrCorrupt, err)
	}
	defer zr.Close()

	// "commit " plus a decimal length always fits well inside 64 bytes.
	header, err := bufio.NewReaderSize(zr, 64).ReadSlice(0)
	if err != nil {
		return "", fmt.Errorf("object type %s: %w: unterminated header: %w", h, ErrCorrupt, err)
	}
	typ, size, ok := strings.Cut(string(header[:len(header)-1]), " ")
	if !ok {
		return "", fmt.Errorf("object type %s: %w: malformed header %q", h, ErrCorrupt, header)
	}
	if n, err := strconv.Atoi(size); err != nil || n < 0 {
		return "", fmt.Errorf("object type %s: %w: bad length %q", h, ErrCorrupt, size)
	}
	objType, err := ParseObjectType(typ)
	if err != nil {
		return "", fmt.Errorf("object type %s: %w: %w", h, ErrCorrupt, err)
	}
	return objType, nil
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	obj, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return obj.(*Blob), nil
}

// ReadTree reads a Tree and resolves each entry's type from the object it
// references.
func (s *Store) ReadTree(h Hash) (*Tree, error) {
	obj, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return obj.(*Tree), nil
}

// ReadCommit reads and deserializes a Commit.
func (s *Store) ReadCommit(h Hash) (*Commit, error) {
	obj, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return obj.(*Commit), nil
}

func (s *Store) readTyped(h Hash, want ObjectType) (Object, error) {
	obj, err := s.ReadObject(h)
	if err != nil {
		return nil, err
	}
	if obj.Type() != want {
		return nil, fmt.Errorf("object %s: %w: type mismatch: got %q, want %q", h, ErrInvalidObject, obj.Type(), want)
	}
	return obj, nil
}

func (s *Store) resolveTypes(t *Tree) error {
	for i := range t.Entries {
		e := &t.Entries[i]
		objType, err := s.ObjectType(e.Hash)
		if err != nil {
			return fmt.Errorf("resolve tree entry %q: %w", e.Name, err)
		}
		e.Type = objType
	}
	return nil
}
