package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/mgit/pkg/object"
)

// ObjectInfo describes one stored object for cat-file.
type ObjectInfo struct {
	Hash   object.Hash
	Type   object.ObjectType
	Size   int // body length from the header
	Object object.Object
}

// CatFile loads and decodes the object stored under h.
func (r *Repo) CatFile(h object.Hash) (ObjectInfo, error) {
	raw, err := r.Store.Get(h)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("cat-file: %w", err)
	}
	objType, body, err := object.SplitHeader(raw)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("cat-file %s: %w", h, err)
	}
	obj, err := r.Store.ReadObject(h)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("cat-file: %w", err)
	}
	return ObjectInfo{Hash: h, Type: objType, Size: len(body), Object: obj}, nil
}

// Pretty renders an object for humans. Blobs print their content, trees one
// "mode type hash<TAB>name" line per entry and commits their canonical body.
func Pretty(obj object.Object) string {
	switch o := obj.(type) {
	case *object.Blob:
		return o.Content
	case *object.Tree:
		var b strings.Builder
		for _, e := range o.Entries {
			fmt.Fprintf(&b, "%06o %s %s\t%s\n", uint32(e.Mode), e.Type, e.Hash, e.Name)
		}
		return b.String()
	case *object.Commit:
		return string(object.MarshalCommit(o))
	}
	return ""
}
