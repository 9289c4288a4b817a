package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// List returns the hashes of every object file in the store, sorted.
// Temporary files and stray names are skipped.
func (s *Store) List() ([]Hash, error) {
	var out []Hash
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path == s.root {
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		dir := filepath.Base(filepath.Dir(path))
		h, ok := hashFromPath(dir, d.Name())
		if ok {
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func hashFromPath(dir, name string) (Hash, bool) {
	var h Hash
	if len(dir) != 2 || len(name) != 2*HashSize-2 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(dir+name)); err != nil {
		return h, false
	}
	return h, true
}

// Remove deletes the object file for h. Removing a missing object is not an
// error.
func (s *Store) Remove(h Hash) error {
	if s.cache != nil {
		s.cache.Remove(h)
	}
	if err := os.Remove(s.Path(h)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("object remove %s: %w", h, err)
	}
	return nil
}

// ReachableSet returns all object hashes reachable from roots by following
// commit parents, commit trees and tree entries. Zero hashes and missing
// roots are ignored; a missing object referenced from a stored one is an
// error wrapping ErrNotFound.
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	out := make(map[Hash]struct{}, len(roots))
	stack := make([]Hash, 0, len(roots))
	for _, h := range roots {
		if !h.IsZero() && s.Has(h) {
			stack = append(stack, h)
		}
	}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := out[h]; ok {
			continue
		}
		out[h] = struct{}{}

		raw, err := s.Get(h)
		if err != nil {
			return nil, fmt.Errorf("reachable set: %w", err)
		}
		obj, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("reachable set parse %s: %w", h, err)
		}
		stack = append(stack, referencedHashes(obj)...)
	}
	return out, nil
}

func referencedHashes(obj Object) []Hash {
	switch o := obj.(type) {
	case *Commit:
		refs := []Hash{o.Tree}
		if o.Parent != nil {
			refs = append(refs, *o.Parent)
		}
		return refs
	case *Tree:
		refs := make([]Hash, 0, len(o.Entries))
		for _, e := range o.Entries {
			refs = append(refs, e.Hash)
		}
		return refs
	}
	return nil
}
