// Package gdb implements a file-based container datastore. A container is
// a directory named "<name>.gdb" holding one FlatGeobuf file per feature
// class and a SQLite catalog of attribute domains.
package gdb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Common errors returned by this package.
var (
	ErrNotFound         = errors.New("gdb: not found")
	ErrExists           = errors.New("gdb: already exists")
	ErrInvalidName      = errors.New("gdb: invalid name")
	ErrPermissionDenied = errors.New("gdb: permission denied")
	ErrProvider         = errors.New("gdb: datastore error")
	ErrDomainMismatch   = errors.New("gdb: domain does not fit field")
)

const (
	// Marker is the suffix that identifies a container directory.
	Marker = ".gdb"

	featureClassExt = ".fgb"
	catalogFile     = "catalog.sqlite"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,159}$`)

// validName reports whether s is usable as a feature class, field or
// domain name.
func validName(s string) bool {
	return namePattern.MatchString(s)
}

// ContainerPath returns the container part of a feature class reference
// by truncating it after the container marker. It is a textual operation
// and does not touch the filesystem. A reference without a marker yields
// its parent path.
func ContainerPath(ref string) string {
	lower := strings.ToLower(ref)
	for from := 0; ; {
		i := strings.Index(lower[from:], Marker)
		if i < 0 {
			break
		}
		end := from + i + len(Marker)
		if end == len(ref) || ref[end] == '/' || ref[end] == '\\' {
			return ref[:end]
		}
		from = end
	}

	trimmed := strings.TrimRight(ref, `/\`)
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[:i]
	}
	return ""
}

// SplitRef splits a feature class reference into its container path and
// feature class name. Either path separator is accepted.
func SplitRef(ref string) (container, name string, err error) {
	container = ContainerPath(ref)
	if !strings.HasSuffix(strings.ToLower(container), Marker) {
		return "", "", fmt.Errorf("%w: %q is not inside a %s container", ErrNotFound, ref, Marker)
	}

	name = strings.Trim(ref[len(container):], `/\`)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("%w: %q does not name a feature class", ErrNotFound, ref)
	}
	return container, name, nil
}

// Ref joins a container path and a feature class name into a reference.
func Ref(container, name string) string {
	return filepath.Join(container, name)
}

// Workspace is an open container datastore.
type Workspace struct {
	path    string
	catalog *catalog
}

// Create creates an empty container at path. An existing container is
// removed first when overwrite is set, otherwise ErrExists is returned.
// The parent directory must exist.
func Create(path string, overwrite bool) (*Workspace, error) {
	if !strings.HasSuffix(strings.ToLower(path), Marker) {
		return nil, fmt.Errorf("%w: container %q must end in %s", ErrInvalidName, path, Marker)
	}

	parent := filepath.Dir(path)
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, parent)
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, wrapFS(err, "delete "+path)
		}
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, wrapFS(err, "create "+path)
	}

	ws := &Workspace{path: path}
	if _, err := ws.domains(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Open opens an existing container. The domain catalog is opened lazily.
func Open(path string) (*Workspace, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, wrapFS(err, "open "+path)
	}
	if !info.IsDir() || !strings.HasSuffix(strings.ToLower(path), Marker) {
		return nil, fmt.Errorf("%w: %s is not a container", ErrNotFound, path)
	}
	return &Workspace{path: path}, nil
}

// Exists reports whether path is an existing container directory.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && strings.HasSuffix(strings.ToLower(path), Marker)
}

// Path returns the container directory.
func (w *Workspace) Path() string {
	return w.path
}

// Close releases the domain catalog.
func (w *Workspace) Close() error {
	if w.catalog == nil {
		return nil
	}
	err := w.catalog.close()
	w.catalog = nil
	return err
}

// FeatureClasses returns the names of the feature classes in the
// container, sorted.
func (w *Workspace) FeatureClasses() ([]string, error) {
	entries, err := os.ReadDir(w.path)
	if err != nil {
		return nil, wrapFS(err, "list "+w.path)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), featureClassExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), featureClassExt))
	}
	sort.Strings(names)
	return names, nil
}

func (w *Workspace) featureClassPath(name string) string {
	return filepath.Join(w.path, name+featureClassExt)
}

// domains returns the domain catalog, opening it on first use.
func (w *Workspace) domains() (*catalog, error) {
	if w.catalog != nil {
		return w.catalog, nil
	}
	c, err := openCatalog(filepath.Join(w.path, catalogFile))
	if err != nil {
		return nil, err
	}
	w.catalog = c
	return c, nil
}

// wrapFS classifies a filesystem error.
func wrapFS(err error, op string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
	}
}
