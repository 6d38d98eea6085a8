package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// File is one output file with its path relative to the output root
type File struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// ListFiles returns every regular file below dir, sorted. A missing or empty
// directory yields an empty listing.
func ListFiles(fsys afero.Fs, dir string) ([]string, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	files := []string{}
	if _, err := fsys.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return files, nil
	}
	err := afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// CollectFiles reads every file below root into memory with paths relative to root
func CollectFiles(fsys afero.Fs, root string) ([]File, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	paths, err := ListFiles(fsys, root)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		content, err := afero.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		mode := os.FileMode(0644)
		if info, err := fsys.Stat(p); err == nil {
			mode = info.Mode().Perm()
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Content: content, Mode: mode})
	}
	return files, nil
}
