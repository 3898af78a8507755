// Package supportcache manages the user-level directory of support
// libraries (CydiaSubstrate.framework, librocketbootstrap.dylib, ...) that
// injection copies into bundles on demand.
package supportcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/fsutil"
)

// Cache is a support library directory
type Cache struct {
	dir string
}

// New returns the cache rooted at dir
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where the library name lives in the cache
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, name)
}

// Has reports whether name is cached
func (c *Cache) Has(name string) bool {
	return fsutil.Exists(c.Path(name))
}

// Lookup returns the cached path of name
func (c *Cache) Lookup(name string) (string, error) {
	if !c.Has(name) {
		return "", &core.Error{Op: "lookup", Path: c.Path(name), Err: core.ErrSupportLibraryUnavailable}
	}
	return c.Path(name), nil
}

// List returns the cached library names, sorted. A missing cache is empty.
func (c *Cache) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Import copies every top-level library of src into the cache, replacing
// cached copies, and returns the imported names
func (c *Cache) Import(src string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	var imported []string
	for _, e := range entries {
		name := e.Name()
		if !isLibrary(name) {
			continue
		}
		dst := c.Path(name)
		if err := os.RemoveAll(dst); err != nil {
			return imported, fmt.Errorf("removing cached %s: %w", name, err)
		}
		if err := fsutil.Copy(filepath.Join(src, name), dst); err != nil {
			return imported, fmt.Errorf("copying %s: %w", name, err)
		}
		imported = append(imported, name)
	}
	return imported, nil
}

func isLibrary(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dylib", ".framework":
		return true
	}
	return false
}
