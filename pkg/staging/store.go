// Package staging holds one canonical copy of every distinct payload, keyed
// by base name. The first payload staged under a name wins; later
// candidates with the same name are discarded.
package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/fsutil"
	"github.com/arc-language/zule/pkg/payload"
)

// Origin records where a staged payload came from
type Origin int

const (
	OriginInput   Origin = iota // given directly on the command line
	OriginPackage               // harvested from a package archive
)

// String returns the string representation of the origin
func (o Origin) String() string {
	if o == OriginPackage {
		return "package"
	}
	return "input"
}

// Entry is a staged payload
type Entry struct {
	Name   string
	Kind   payload.Kind
	Origin Origin
	Path   string // Location inside the store
}

// Store is a name -> path map with insert-if-absent semantics
type Store struct {
	dir     string
	entries map[string]*Entry
	order   []string
}

// New creates a store rooted at dir
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Store{
		dir:     dir,
		entries: make(map[string]*Entry),
	}, nil
}

// Dir returns the store's root directory
func (s *Store) Dir() string {
	return s.dir
}

// Put records path under the base name of name. It returns false, leaving
// the existing entry untouched, when the name is already present.
func (s *Store) Put(name, path string) bool {
	name = filepath.Base(name)
	if _, ok := s.entries[name]; ok {
		return false
	}
	s.entries[name] = &Entry{Name: name, Kind: payload.KindOf(name), Path: path}
	s.order = append(s.order, name)
	return true
}

// Get returns the staged path for name
func (s *Store) Get(name string) (string, error) {
	e, ok := s.entries[filepath.Base(name)]
	if !ok {
		return "", &core.Error{Op: "staging lookup", Path: name, Err: core.ErrNotFound}
	}
	return e.Path, nil
}

// Lookup returns the entry for name
func (s *Store) Lookup(name string) (*Entry, bool) {
	e, ok := s.entries[filepath.Base(name)]
	return e, ok
}

// Stage brings src into the store under its base name, copying it (or moving
// it when move is set). The returned bool is false when the name was already
// staged, in which case src is left alone and the existing entry is returned.
func (s *Store) Stage(src string, origin Origin, move bool) (*Entry, bool, error) {
	name := filepath.Base(src)
	if e, ok := s.entries[name]; ok {
		return e, false, nil
	}

	// A symlinked input is staged as the file or directory it points at,
	// under the name it was given.
	from := src
	if origin == OriginInput {
		resolved, err := filepath.EvalSymlinks(src)
		if err != nil {
			return nil, false, fmt.Errorf("staging %s: %w", name, err)
		}
		from = resolved
	}

	dst := filepath.Join(s.dir, name)
	var err error
	if move {
		err = fsutil.Move(from, dst)
	} else {
		err = fsutil.Copy(from, dst)
	}
	if err != nil {
		return nil, false, fmt.Errorf("staging %s: %w", name, err)
	}

	s.Put(name, dst)
	e := s.entries[name]
	e.Origin = origin
	return e, true, nil
}

// Entries returns staged entries in insertion order
func (s *Store) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out
}

// Len returns the number of staged entries
func (s *Store) Len() int {
	return len(s.order)
}
