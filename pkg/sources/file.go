package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind tags the language a source file belongs to
type Kind int

const (
	KindKotlin Kind = iota
	KindJava
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindKotlin:
		return "kotlin"
	case KindJava:
		return "java"
	case KindScript:
		return "script"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Extensions returns the file extensions recognized for the kind
func (k Kind) Extensions() []string {
	switch k {
	case KindKotlin:
		return []string{".kt"}
	case KindJava:
		return []string{".java"}
	case KindScript:
		return []string{".kts"}
	default:
		return nil
	}
}

// File is a virtual source file. It is either in-memory content that gets
// written below the sources directory, or a reference to a file that already
// exists somewhere on disk.
//
// The zero value is not usable; create files with Kotlin, Java, Script, New or FromPath.
type File struct {
	path     string
	contents string
	kind     Kind
	common   bool
	existing bool
}

// Option customizes a source file at construction
type Option func(*File)

// Common marks the file as a source of the common module in a multiplatform project
func Common() Option {
	return func(f *File) { f.common = true }
}

// Kotlin creates a Kotlin source file. The contents are trimmed of their common indentation.
func Kotlin(name, contents string, opts ...Option) (File, error) {
	return newWithKind(KindKotlin, name, TrimIndent(contents), opts...)
}

// Java creates a Java source file. The contents are trimmed of their common indentation.
func Java(name, contents string, opts ...Option) (File, error) {
	return newWithKind(KindJava, name, TrimIndent(contents), opts...)
}

// Script creates a Kotlin script source file
func Script(name, contents string, opts ...Option) (File, error) {
	return newWithKind(KindScript, name, TrimIndent(contents), opts...)
}

// New creates a source file from in-memory contents. The kind is deduced
// from the file extension and the contents are used verbatim.
func New(name, contents string, opts ...Option) (File, error) {
	kind, ok := KindOf(name)
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrExtensionMismatch, name)
	}
	return newWithKind(kind, name, contents, opts...)
}

// FromPath references a file that already exists on disk. It is compiled from
// its own location and never copied, so files with colliding simple names in
// unrelated directories can coexist.
func FromPath(path string, opts ...Option) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrNotRegularFile, path, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	kind, ok := KindOf(abs)
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrExtensionMismatch, path)
	}

	f := File{path: abs, kind: kind, existing: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f, nil
}

// MustNew is like New for contents known to be valid and panics otherwise
func MustNew(name, contents string, opts ...Option) File {
	f, err := New(name, contents, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func newWithKind(kind Kind, name, contents string, opts ...Option) (File, error) {
	if err := validateRelative(name); err != nil {
		return File{}, err
	}
	if !hasExtension(name, kind.Extensions()) {
		return File{}, fmt.Errorf("%w: %s is not a %s file", ErrExtensionMismatch, name, kind)
	}

	f := File{path: filepath.Clean(name), contents: contents, kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	return f, nil
}

// Path returns the relative path for in-memory files or the absolute path for existing files
func (f File) Path() string { return f.path }

// Contents returns the in-memory contents. It is empty for existing files.
func (f File) Contents() string { return f.contents }

// Kind returns the source kind
func (f File) Kind() Kind { return f.kind }

// IsCommon reports whether the file belongs to the common module of a multiplatform project
func (f File) IsCommon() bool { return f.common }

// IsExisting reports whether the file references an existing file on disk
func (f File) IsExisting() bool { return f.existing }

func validateRelative(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("%w: %s must be relative", ErrInvalidPath, name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes the sources directory", ErrInvalidPath, name)
	}
	return nil
}

// KindOf deduces the source kind from a file name
func KindOf(name string) (Kind, bool) {
	for _, kind := range []Kind{KindKotlin, KindJava, KindScript} {
		if hasExtension(name, kind.Extensions()) {
			return kind, true
		}
	}
	return 0, false
}

// IsKotlinFile reports whether the path is a Kotlin source or script
func IsKotlinFile(path string) bool {
	return hasExtension(path, []string{".kt", ".kts"})
}

// IsJavaFile reports whether the path is a Java source
func IsJavaFile(path string) bool {
	return hasExtension(path, []string{".java"})
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// TrimIndent removes a leading and trailing blank line and the common minimal
// indentation of all non-blank lines
func TrimIndent(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return strings.Join(lines, "\n")
	}

	for i, line := range lines {
		if len(line) >= minIndent {
			lines[i] = line[minIndent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
