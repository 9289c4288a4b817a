package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Encode returns the canonical bytes of obj: "type len\0body". The length
// is the byte length of body.
func Encode(obj Object) []byte {
	var body []byte
	switch o := obj.(type) {
	case *Blob:
		body = MarshalBlob(o)
	case *Tree:
		body = MarshalTree(o)
	case *Commit:
		body = MarshalCommit(o)
	default:
		panic(fmt.Sprintf("object: cannot encode %T", obj))
	}
	return frame(obj.Type(), body)
}

// HashOf returns the content address of obj.
func HashOf(obj Object) Hash {
	return HashBytes(Encode(obj))
}

func frame(objType ObjectType, body []byte) []byte {
	hdr := objType.header(len(body))
	out := make([]byte, 0, len(hdr)+len(body))
	out = append(out, hdr...)
	return append(out, body...)
}

func (t ObjectType) header(n int) string {
	return string(t) + " " + strconv.Itoa(n) + "\x00"
}

// Decode parses canonical bytes produced by Encode.
func Decode(raw []byte) (Object, error) {
	objType, body, err := SplitHeader(raw)
	if err != nil {
		return nil, err
	}
	switch objType {
	case TypeBlob:
		return UnmarshalBlob(body)
	case TypeTree:
		return UnmarshalTree(body)
	default:
		return UnmarshalCommit(body)
	}
}

// SplitHeader validates the "type len\0" envelope and returns the type tag and
// the body it frames.
func SplitHeader(raw []byte) (ObjectType, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("%w: missing header terminator", ErrInvalidObject)
	}
	typ, size, ok := strings.Cut(string(raw[:nul]), " ")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed header %q", ErrInvalidObject, raw[:nul])
	}
	objType, err := ParseObjectType(typ)
	if err != nil {
		return "", nil, err
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 {
		return "", nil, fmt.Errorf("%w: bad length %q", ErrInvalidObject, size)
	}
	body := raw[nul+1:]
	if len(body) != n {
		return "", nil, fmt.Errorf("%w: length mismatch (header=%d, actual=%d)", ErrInvalidObject, n, len(body))
	}
	return objType, body, nil
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob returns the blob body (identity).
func MarshalBlob(b *Blob) []byte {
	return []byte(b.Content)
}

// UnmarshalBlob parses a blob body.
func UnmarshalBlob(body []byte) (*Blob, error) {
	b, err := NewBlob(body)
	if err != nil {
		return nil, fmt.Errorf("%w: blob: %w", ErrInvalidObject, err)
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// MarshalTree serializes entries in their given order. Each entry is:
//
//	mode SP name NUL hash(20 raw bytes)
func MarshalTree(t *Tree) []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		buf.WriteString(e.Mode.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}

// UnmarshalTree parses a tree body. The raw hash may itself contain NUL
// bytes, so each entry header is consumed up to its own terminator and the
// next HashSize bytes are taken unconditionally as the hash.
//
// Entry types are derived from the mode here; Store.ReadTree replaces them
// with the type recorded by the referenced object.
func UnmarshalTree(body []byte) (*Tree, error) {
	t := &Tree{}
	for len(body) > 0 {
		nul := bytes.IndexByte(body, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry %d: missing NUL", ErrInvalidObject, len(t.Entries))
		}
		modeStr, name, ok := strings.Cut(string(body[:nul]), " ")
		if !ok {
			return nil, fmt.Errorf("%w: tree entry %d: malformed header %q", ErrInvalidObject, len(t.Entries), body[:nul])
		}
		if err := CheckEntryName(name); err != nil {
			return nil, fmt.Errorf("tree entry %d: %w", len(t.Entries), err)
		}
		mode, err := ParseFileMode(modeStr)
		if err != nil {
			return nil, fmt.Errorf("%w: tree entry %d: %w", ErrInvalidObject, len(t.Entries), err)
		}
		body = body[nul+1:]
		if len(body) < HashSize {
			return nil, fmt.Errorf("%w: tree entry %q: truncated hash", ErrInvalidObject, name)
		}
		h, err := HashFromBytes(body[:HashSize])
		if err != nil {
			return nil, fmt.Errorf("%w: tree entry %q: %w", ErrInvalidObject, name, err)
		}
		body = body[HashSize:]

		t.Entries = append(t.Entries, TreeEntry{
			Mode: mode,
			Name: name,
			Type: typeFromMode(mode),
			Hash: h,
		})
	}
	return t, nil
}

// CheckEntryName rejects tree entry names that cannot be a single path
// component: empty, "." or "..", or containing '/' or NUL.
func CheckEntryName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty entry name", ErrInvalidObject)
	case name == "." || name == "..":
		return fmt.Errorf("%w: entry name %q", ErrInvalidObject, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: entry name %q contains '/' or NUL", ErrInvalidObject, name)
	}
	return nil
}

// Validate checks every entry name of t.
func (t *Tree) Validate() error {
	for _, e := range t.Entries {
		if err := CheckEntryName(e.Name); err != nil {
			return err
		}
	}
	return nil
}

func typeFromMode(m FileMode) ObjectType {
	if m.IsDir() {
		return TypeTree
	}
	return TypeBlob
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a commit:
//
//	tree H
//	parent H     (optional)
//	author A
//	committer C
//
//	message
func MarshalCommit(c *Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if c.Parent != nil {
		fmt.Fprintf(&buf, "parent %s\n", *c.Parent)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// UnmarshalCommit parses a commit body. A parent is present exactly when the
// second header line starts with the "parent" token.
func UnmarshalCommit(body []byte) (*Commit, error) {
	text := string(body)
	header, message, ok := strings.Cut(text, "\n\n")
	if !ok {
		return nil, fmt.Errorf("%w: commit: missing header/message separator", ErrInvalidObject)
	}

	var lines []string
	for _, l := range strings.Split(header, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}

	c := &Commit{Message: strings.TrimSuffix(message, "\n")}
	next := func(key string) (string, error) {
		if len(lines) == 0 {
			return "", fmt.Errorf("%w: commit: missing %s line", ErrInvalidObject, key)
		}
		k, v, _ := strings.Cut(lines[0], " ")
		if k != key {
			return "", fmt.Errorf("%w: commit: expected %s line, got %q", ErrInvalidObject, key, lines[0])
		}
		lines = lines[1:]
		return v, nil
	}

	treeHex, err := next("tree")
	if err != nil {
		return nil, err
	}
	if c.Tree, err = ParseHash(treeHex); err != nil {
		return nil, fmt.Errorf("%w: commit tree: %w", ErrInvalidObject, err)
	}

	if len(lines) > 0 && strings.HasPrefix(lines[0], "parent ") {
		parentHex, _ := next("parent")
		p, err := ParseHash(parentHex)
		if err != nil {
			return nil, fmt.Errorf("%w: commit parent: %w", ErrInvalidObject, err)
		}
		c.Parent = &p
	}

	for _, role := range []struct {
		key string
		dst *Signature
	}{{"author", &c.Author}, {"committer", &c.Committer}} {
		v, err := next(role.key)
		if err != nil {
			return nil, err
		}
		if *role.dst, err = ParseSignature(v); err != nil {
			return nil, fmt.Errorf("%w: commit %s: %w", ErrInvalidObject, role.key, err)
		}
	}

	if len(lines) != 0 {
		return nil, fmt.Errorf("%w: commit: unexpected header line %q", ErrInvalidObject, lines[0])
	}
	return c, nil
}
