package sources

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Staged is a source file after staging, with the absolute path the compilers will see
type Staged struct {
	Path   string
	Kind   Kind
	Common bool
}

// Stage writes every in-memory file below sourcesDir, creating parent
// directories as needed. Existing-file references are not written; their own
// path is returned instead.
func Stage(fs afero.Fs, sourcesDir string, files []File) ([]Staged, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(sourcesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sources directory: %w", err)
	}

	staged := make([]Staged, 0, len(files))
	for _, file := range files {
		path, err := writeIfNeeded(fs, sourcesDir, file)
		if err != nil {
			return nil, err
		}
		staged = append(staged, Staged{Path: path, Kind: file.kind, Common: file.common})
	}
	return staged, nil
}

func writeIfNeeded(fs afero.Fs, dir string, file File) (string, error) {
	if file.existing {
		return file.path, nil
	}
	if file.path == "" {
		return "", fmt.Errorf("%w: uninitialized source file", ErrInvalidPath)
	}

	target := filepath.Join(dir, file.path)
	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", file.path, err)
	}
	if err := afero.WriteFile(fs, target, []byte(file.contents), 0644); err != nil {
		return "", fmt.Errorf("failed to write source file %s: %w", file.path, err)
	}
	return target, nil
}

// Paths returns the staged paths
func Paths(staged []Staged) []string {
	paths := make([]string, 0, len(staged))
	for _, s := range staged {
		paths = append(paths, s.Path)
	}
	return paths
}

// CommonPaths returns the staged paths of multiplatform common sources
func CommonPaths(staged []Staged) []string {
	var paths []string
	for _, s := range staged {
		if s.Common {
			paths = append(paths, s.Path)
		}
	}
	return paths
}
