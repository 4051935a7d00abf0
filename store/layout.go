// Package store persists the products of the pipeline under a data directory:
//
//	<root>/ensemble/<tag>-<id>.json     initial states
//	<root>/simulation/<tag>-<id>.json   run results (or .csv frames)
//	<root>/analysis/<tag>-<id>.json     analysis of a run (and .csv series)
//
// Files are named by tag and numeric id, so a tag may contain dashes but
// an id never does.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultRoot is the default data directory.
const DefaultRoot = "./data"

// Categories of stored data, also the names of their directories.
const (
	Ensemble   = "ensemble"
	Simulation = "simulation"
	Analysis   = "analysis"
)

// ErrNotFound is returned when a stored item does not exist.
var ErrNotFound = errors.New("store: not found")

// A Layout locates files in a data directory.
type Layout struct {
	Root string
}

// NewLayout returns the layout of the data directory root,
// or DefaultRoot if root is empty.
func NewLayout(root string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{Root: root}
}

// EnsureDirs creates the directories of all categories.
func (l Layout) EnsureDirs() error {
	for _, c := range []string{Ensemble, Simulation, Analysis} {
		if err := os.MkdirAll(filepath.Join(l.Root, c), 0755); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the path of item tag-id of a category with extension ext.
func (l Layout) Path(category, tag string, id int, ext string) string {
	return filepath.Join(l.Root, category, fmt.Sprintf("%s-%d.%s", tag, id, ext))
}

// A Key identifies a stored item.
type Key struct {
	Tag string
	ID  int
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.Tag, k.ID)
}

// ParseKey parses the base name of a stored file.
func ParseKey(name string) (Key, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexByte(base, '-')
	if i <= 0 {
		return Key{}, fmt.Errorf("store: bad file name %q", name)
	}
	id, err := strconv.Atoi(base[i+1:])
	if err != nil || id < 0 {
		return Key{}, fmt.Errorf("store: bad id in file name %q", name)
	}
	return Key{Tag: base[:i], ID: id}, nil
}

// List returns the keys of the items of a category stored with extension
// ext, sorted by tag then id. Unrelated files are ignored.
func (l Layout) List(category, ext string) ([]Key, error) {
	matches, err := filepath.Glob(filepath.Join(l.Root, category, "*."+ext))
	if err != nil {
		return nil, err
	}
	var keys []Key
	for _, m := range matches {
		k, err := ParseKey(filepath.Base(m))
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tag != keys[j].Tag {
			return keys[i].Tag < keys[j].Tag
		}
		return keys[i].ID < keys[j].ID
	})
	return keys, nil
}

// writeFile creates path and the directory containing it, with the
// content produced by write. The content goes to a temporary file that
// replaces path only once write succeeds, so a failure never leaves a
// truncated file behind.
func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// open opens a file, reporting a missing one with ErrNotFound.
func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return f, err
}

// checkClose checks for errors in deferred calls.
func checkClose(err *error, c io.Closer) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}
