package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zip"
)

// classMagic starts every class file
var classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

// DefaultJarIndexCacheSize bounds the jar indexes one loader keeps open
const DefaultJarIndexCacheSize = 64

// Class is a loaded class file
type Class struct {
	Name     string
	Location string // file path, or jar path and entry joined by "!/"
	Bytes    []byte
	Loader   ClassLoader
}

// ClassLoader resolves binary class names against a set of roots
type ClassLoader interface {
	LoadClass(name string) (*Class, error)
	Parent() ClassLoader
}

// ClassFileName maps a binary class name such as com.example.Outer$Inner to
// its path inside a classpath root
func ClassFileName(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".class"
}

// DirLoader loads classes from one directory after asking its parent
type DirLoader struct {
	root   string
	parent ClassLoader
}

// NewDirLoader creates a loader rooted at dir. A nil parent makes the
// loader see only its own directory.
func NewDirLoader(dir string, parent ClassLoader) *DirLoader {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &DirLoader{root: dir, parent: parent}
}

// Root returns the directory the loader reads
func (l *DirLoader) Root() string { return l.root }

// URL returns the file URL of the loader's root
func (l *DirLoader) URL() string { return DirURL(l.root) }

// Parent returns the delegation parent
func (l *DirLoader) Parent() ClassLoader { return l.parent }

// LoadClass delegates to the parent first, then reads from the root
func (l *DirLoader) LoadClass(name string) (*Class, error) {
	if c, err := delegate(l.parent, name); c != nil || err != nil {
		return c, err
	}
	path := filepath.Join(l.root, filepath.FromSlash(ClassFileName(name)))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
		}
		return nil, err
	}
	return newClass(name, path, data, l)
}

// ClasspathLoader loads classes from directories and jars in classpath order
type ClasspathLoader struct {
	entries []string
	parent  ClassLoader

	mu   sync.Mutex
	jars *lru.Cache[string, map[string]*zip.File]
	open []*zip.ReadCloser
}

// NewClasspathLoader creates a loader over classpath entries
func NewClasspathLoader(entries []string, parent ClassLoader) (*ClasspathLoader, error) {
	jars, err := lru.NewWithEvict[string, map[string]*zip.File](DefaultJarIndexCacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &ClasspathLoader{
		entries: append([]string(nil), entries...),
		parent:  parent,
		jars:    jars,
	}, nil
}

// Entries returns the classpath of the loader
func (l *ClasspathLoader) Entries() []string {
	return append([]string(nil), l.entries...)
}

// Parent returns the delegation parent
func (l *ClasspathLoader) Parent() ClassLoader { return l.parent }

// LoadClass delegates to the parent first, then searches the entries in order
func (l *ClasspathLoader) LoadClass(name string) (*Class, error) {
	if c, err := delegate(l.parent, name); c != nil || err != nil {
		return c, err
	}

	entry := ClassFileName(name)
	for _, root := range l.entries {
		info, err := os.Stat(root)
		if err != nil {
			continue
		}
		if info.IsDir() {
			path := filepath.Join(root, filepath.FromSlash(entry))
			data, err := os.ReadFile(path)
			if err == nil {
				return newClass(name, path, data, l)
			}
			continue
		}

		index, err := l.jarIndex(root)
		if err != nil {
			return nil, err
		}
		f, ok := index[entry]
		if !ok {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from %s: %w", entry, root, err)
		}
		return newClass(name, root+"!/"+entry, data, l)
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// Close releases the jars opened by the loader
func (l *ClasspathLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, rc := range l.open {
		if err := rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.open = nil
	l.jars.Purge()
	return errors.Join(errs...)
}

func (l *ClasspathLoader) jarIndex(path string) (map[string]*zip.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index, ok := l.jars.Get(path); ok {
		return index, nil
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", path, err)
	}
	l.open = append(l.open, rc)

	index := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		index[f.Name] = f
	}
	l.jars.Add(path, index)
	return index, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// delegate asks the parent; a not-found answer is not an error
func delegate(parent ClassLoader, name string) (*Class, error) {
	if parent == nil {
		return nil, nil
	}
	c, err := parent.LoadClass(name)
	if errors.Is(err, ErrClassNotFound) {
		return nil, nil
	}
	return c, err
}

func newClass(name, location string, data []byte, loader ClassLoader) (*Class, error) {
	if !bytes.HasPrefix(data, classMagic) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidClass, location)
	}
	return &Class{Name: name, Location: location, Bytes: data, Loader: loader}, nil
}

// DirURL renders a directory as a file URL with a trailing slash
func DirURL(dir string) string {
	return "file://" + EncodePath(filepath.ToSlash(dir)) + "/"
}

// EncodePath percent-encodes each segment of a slash separated path per
// RFC 3986, keeping the separators
func EncodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
