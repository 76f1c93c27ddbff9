// Package variantindex maps stored base names to their variant file
// paths. It replaces per-request directory scans with an index built
// once and rebuilt on demand.
package variantindex

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Index holds the baseName -> variant paths mapping for one storage
// directory.
type Index struct {
	baseDir string

	mu       sync.RWMutex
	variants map[string][]string
}

// New creates an index over baseDir and builds it immediately.
func New(baseDir string) (*Index, error) {
	ix := &Index{baseDir: baseDir}
	if err := ix.Rebuild(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Rebuild walks the storage directory once and replaces the mapping.
// Callers rebuild after writing new variants, not per lookup.
func (ix *Index) Rebuild() error {
	variants := make(map[string][]string)

	err := filepath.WalkDir(ix.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := baseName(d.Name())
		variants[base] = append(variants[base], path)
		return nil
	})
	if err != nil {
		return err
	}

	for _, paths := range variants {
		sort.Strings(paths)
	}

	ix.mu.Lock()
	ix.variants = variants
	ix.mu.Unlock()
	return nil
}

// Lookup returns the variant paths recorded for a base name, sorted.
// The returned slice is a copy.
func (ix *Index) Lookup(base string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	paths := ix.variants[base]
	if len(paths) == 0 {
		return nil
	}
	return append([]string(nil), paths...)
}

// Len returns the number of indexed base names.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.variants)
}

// baseName strips the variant suffix and extension: "photo_thumb256.jpg"
// and "photo.jpg" both index under "photo".
func baseName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.IndexByte(name, '_'); i > 0 {
		name = name[:i]
	}
	return name
}
