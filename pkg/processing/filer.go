package processing

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/platinummonkey/compiletest/pkg/sources"
)

// tracker records every file generated during processing and closes the
// ones processors forgot to close before the next round scans them
type tracker struct {
	mu    sync.Mutex
	paths []string
	open  []*os.File
}

func (t *tracker) create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create generated file %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, path)
	t.open = append(t.open, f)
	return f, nil
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}

// since returns the paths generated after mark
func (t *tracker) since(mark int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.paths[mark:]...)
}

// closeAll closes every file created so far. Closing twice is harmless.
func (t *tracker) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.open {
		f.Close()
	}
	t.open = nil
}

// filer places annotation processor output: Java sources in the kapt
// sources dir, Kotlin sources in the kapt Kotlin dir, resources in the
// class output
type filer struct {
	javaDir     string
	kotlinDir   string
	resourceDir string
	files       *tracker
}

func (f *filer) CreateSourceFile(qualifiedName string, language sources.Kind) (io.WriteCloser, error) {
	pkg, name := splitQualified(qualifiedName)
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGeneratedName, qualifiedName)
	}

	dir := f.javaDir
	ext := ".java"
	if language != sources.KindJava {
		ext = ".kt"
		if f.kotlinDir != "" {
			dir = f.kotlinDir
		}
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: %s source %s", ErrNoOutputDir, language, qualifiedName)
	}
	return f.files.create(filepath.Join(dir, packagePath(pkg), name+ext))
}

func (f *filer) CreateResource(relativePath string) (io.WriteCloser, error) {
	if f.resourceDir == "" {
		return nil, fmt.Errorf("%w: resource %s", ErrNoOutputDir, relativePath)
	}
	path, err := within(f.resourceDir, relativePath)
	if err != nil {
		return nil, err
	}
	return f.files.create(path)
}

// codeGenerator places symbol processor output by extension
type codeGenerator struct {
	kotlinDir   string
	javaDir     string
	resourceDir string
	files       *tracker
}

func (g *codeGenerator) CreateNewFile(packageName, fileName, extension string) (io.WriteCloser, error) {
	if fileName == "" || strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGeneratedName, fileName)
	}

	dir := g.resourceDir
	switch extension {
	case "kt":
		dir = g.kotlinDir
	case "java":
		dir = g.javaDir
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: .%s file %s", ErrNoOutputDir, extension, fileName)
	}
	return g.files.create(filepath.Join(dir, packagePath(packageName), fileName+"."+extension))
}

func splitQualified(qualifiedName string) (pkg, name string) {
	i := strings.LastIndex(qualifiedName, ".")
	if i < 0 {
		return "", qualifiedName
	}
	return qualifiedName[:i], qualifiedName[i+1:]
}

func packagePath(pkg string) string {
	return filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
}

func within(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidGeneratedName, rel)
	}
	return filepath.Join(root, clean), nil
}
