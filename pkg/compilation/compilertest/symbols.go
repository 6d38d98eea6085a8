package compilertest

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/platinummonkey/compiletest/pkg/processing"
	"github.com/platinummonkey/compiletest/pkg/sources"
)

var classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

// ClassFile returns the bytes the fakes write for a class
func ClassFile(qualifiedName string) []byte {
	return append(append([]byte(nil), classMagic...), qualifiedName...)
}

// WriteClass writes a fake class file for qualifiedName below root
func WriteClass(root, qualifiedName string) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(qualifiedName, ".", "/")+".class"))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, ClassFile(qualifiedName), 0644)
}

// builtinPrefixes are packages the fakes treat as always present
var builtinPrefixes = []string{"kotlin.", "kotlinx.", "java.", "javax.", "org.jetbrains.annotations."}

var defaultBuiltins = []string{
	// kotlin
	"Any", "Unit", "Nothing", "String", "Int", "Long", "Short", "Byte", "Double", "Float", "Boolean", "Char",
	"Number", "CharSequence", "Comparable", "Array", "IntArray", "ByteArray", "LongArray", "DoubleArray",
	"FloatArray", "BooleanArray", "CharArray", "ShortArray", "List", "MutableList", "ArrayList", "Map",
	"MutableMap", "HashMap", "LinkedHashMap", "Set", "MutableSet", "HashSet", "LinkedHashSet", "Collection",
	"MutableCollection", "Iterable", "Iterator", "Sequence", "Pair", "Triple", "Enum", "Annotation",
	"Throwable", "Exception", "RuntimeException", "Error", "IllegalArgumentException", "IllegalStateException",
	"UnsupportedOperationException", "NullPointerException", "IndexOutOfBoundsException",
	"NoSuchElementException", "Suppress", "Deprecated", "JvmStatic", "JvmField", "JvmOverloads", "JvmName",
	"JvmInline", "Synchronized", "Volatile", "Transient", "Throws", "Retention", "Target", "MustBeDocumented",
	"Repeatable", "AnnotationRetention", "AnnotationTarget", "Lazy", "Result", "Regex", "StringBuilder",
	"Function", "Companion",
	// java.lang
	"Object", "Integer", "Character", "System", "Math", "Override", "FunctionalInterface", "SafeVarargs",
	"SuppressWarnings", "Class", "Void", "Runnable", "Thread", "Record", "AutoCloseable", "Cloneable",
}

func builtinSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(defaultBuiltins)+len(extra))
	for _, n := range defaultBuiltins {
		set[n] = true
	}
	for _, n := range extra {
		set[n] = true
	}
	return set
}

// symbols is everything a fake compiler can resolve
type symbols struct {
	declared  map[string]bool // qualified names declared in sources
	classpath map[string]bool // qualified names of classpath classes
	packages  map[string]bool
	builtins  map[string]bool
}

func newSymbols(indexes []*processing.FileIndex, classpath []string, builtins map[string]bool, out io.Writer) (*symbols, error) {
	s := &symbols{
		declared:  make(map[string]bool),
		classpath: make(map[string]bool),
		packages:  make(map[string]bool),
		builtins:  builtins,
	}
	for _, idx := range indexes {
		for _, d := range idx.Declarations {
			s.declared[d.QualifiedName()] = true
		}
		s.packages[idx.Package] = true
	}

	for _, entry := range classpath {
		info, err := os.Stat(entry)
		if err != nil {
			fmt.Fprintf(out, "warning: classpath entry points to a non-existent location: %s\n", entry)
			continue
		}
		var names []string
		if info.IsDir() {
			names, err = dirClasses(entry)
		} else if strings.HasSuffix(entry, ".jar") {
			names, err = jarClasses(entry)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read classpath entry %s: %w", entry, err)
		}
		for _, n := range names {
			s.classpath[n] = true
			if i := strings.LastIndex(n, "."); i >= 0 {
				s.packages[n[:i]] = true
			}
		}
	}
	return s, nil
}

func (s *symbols) knows(qualifiedName string) bool {
	if s.declared[qualifiedName] || s.classpath[qualifiedName] {
		return true
	}
	for _, p := range builtinPrefixes {
		if strings.HasPrefix(qualifiedName, p) {
			return true
		}
	}
	return false
}

// knowsImport accepts classes, members of known classes and functions of known packages
func (s *symbols) knowsImport(qualifiedName string) bool {
	if s.knows(qualifiedName) {
		return true
	}
	i := strings.LastIndex(qualifiedName, ".")
	if i < 0 {
		return false
	}
	owner, last := qualifiedName[:i], qualifiedName[i+1:]
	if s.knows(owner) {
		return true
	}
	return last != "" && last[0] >= 'a' && last[0] <= 'z' && s.packages[owner]
}

// unresolved returns the names a file uses that nothing declares
func (s *symbols) unresolved(idx *processing.FileIndex) []string {
	var missing []string

	imports := make([]string, 0, len(idx.Imports))
	for _, qn := range idx.Imports {
		imports = append(imports, qn)
	}
	sort.Strings(imports)
	for _, qn := range imports {
		if !s.knowsImport(qn) {
			missing = append(missing, qn)
		}
	}
	for _, pkg := range idx.WildcardImports {
		if !s.packages[pkg] && !s.knows(pkg) && !s.knows(pkg+".*") {
			missing = append(missing, pkg+".*")
		}
	}

	for _, name := range idx.References {
		if !s.resolves(idx, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s *symbols) resolves(idx *processing.FileIndex, name string) bool {
	if len(name) == 1 || s.builtins[name] || isConstantName(name) || idx.Resolves(name) {
		return true
	}
	if s.declared[qualify(idx.Package, name)] || s.classpath[qualify(idx.Package, name)] {
		return true
	}
	for _, pkg := range idx.WildcardImports {
		if s.knows(pkg + "." + name) {
			return true
		}
	}
	return false
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// isConstantName matches SCREAMING_CASE value names
func isConstantName(name string) bool {
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

func dirClasses(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, className(filepath.ToSlash(rel)))
		return nil
	})
	return names, err
}

func jarClasses(path string) ([]string, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var names []string
	for _, f := range rc.File {
		if strings.HasSuffix(f.Name, ".class") {
			names = append(names, className(f.Name))
		}
	}
	return names, nil
}

func className(entry string) string {
	return strings.ReplaceAll(strings.TrimSuffix(entry, ".class"), "/", ".")
}

// expandSources replaces directories with the Kotlin and Java files below them
func expandSources(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("source file or directory not found: %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (sources.IsKotlinFile(path) || sources.IsJavaFile(path)) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// analysis is the scanned state of one fake compilation
type analysis struct {
	indexes []*processing.FileIndex
	symbols *symbols
	errors  map[string][]string // file to unresolved names
}

func analyze(files, classpath []string, builtins map[string]bool, out io.Writer) (*analysis, error) {
	a := &analysis{errors: make(map[string][]string)}
	for _, f := range files {
		idx, err := processing.ScanFile(f)
		if err != nil {
			return nil, err
		}
		a.indexes = append(a.indexes, idx)
	}
	processing.ResolveAnnotations(a.indexes)

	syms, err := newSymbols(a.indexes, classpath, builtins, out)
	if err != nil {
		return nil, err
	}
	a.symbols = syms

	for _, idx := range a.indexes {
		if missing := syms.unresolved(idx); len(missing) > 0 {
			a.errors[idx.Path] = missing
		}
	}
	return a, nil
}

func (a *analysis) errorCount() int {
	n := 0
	for _, m := range a.errors {
		n += len(m)
	}
	return n
}

// failedFiles returns the files with errors in scan order
func (a *analysis) failedFiles() []string {
	var files []string
	for _, idx := range a.indexes {
		if _, ok := a.errors[idx.Path]; ok {
			files = append(files, idx.Path)
		}
	}
	return files
}

// writeClasses emits a class file per top-level declaration of the files in language
func (a *analysis) writeClasses(dest string, language sources.Kind) ([]string, error) {
	var written []string
	for _, idx := range a.indexes {
		if idx.Language != language {
			continue
		}
		for _, d := range idx.Declarations {
			path, err := WriteClass(dest, d.QualifiedName())
			if err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}
