package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/compiletest/pkg/sources"
)

// Unit targets
const (
	targetJVM = "jvm"
	targetJS  = "js"
)

var errInvalidUnit = errors.New("invalid unit file")

// unitFile describes one compilation unit
//
//	name: greeter
//	target: jvm
//	sources:
//	  - path: src/Greeter.kt
//	  - name: Main.java
//	    contents: |
//	      class Main {}
//	classpath: [libs/annotations.jar]
//	plugins: [org.jetbrains.kotlin.noarg]
//	script:
//	  file: Main.kt
//	  args: [--greeting, hi]
type unitFile struct {
	Name                string            `yaml:"name"`
	Target              string            `yaml:"target"`
	Sources             []unitSource      `yaml:"sources"`
	Classpath           []string          `yaml:"classpath,omitempty"`
	Plugins             []string          `yaml:"plugins,omitempty"`
	KotlincArgs         []string          `yaml:"kotlincArgs,omitempty"`
	JavacArgs           []string          `yaml:"javacArgs,omitempty"`
	KaptArgs            map[string]string `yaml:"kaptArgs,omitempty"`
	KSPArgs             map[string]string `yaml:"kspArgs,omitempty"`
	JVMTarget           string            `yaml:"jvmTarget,omitempty"`
	ModuleName          string            `yaml:"moduleName,omitempty"`
	InheritClassPath    *bool             `yaml:"inheritClassPath,omitempty"`
	AllWarningsAsErrors bool              `yaml:"allWarningsAsErrors,omitempty"`
	SuppressWarnings    bool              `yaml:"suppressWarnings,omitempty"`
	OutputFileName      string            `yaml:"outputFileName,omitempty"`
	Script              *unitScript       `yaml:"script,omitempty"`

	path string
}

// unitScript runs a compiled script once the unit compiled
type unitScript struct {
	File string   `yaml:"file"`
	Args []string `yaml:"args,omitempty"`
}

// unitSource is either an existing file or inline contents
type unitSource struct {
	Path     string `yaml:"path,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Contents string `yaml:"contents,omitempty"`
	Common   bool   `yaml:"common,omitempty"`
}

// loadUnitFile reads a unit file. Unknown keys are rejected.
func loadUnitFile(path string) (*unitFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	u := &unitFile{path: abs}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(u); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errInvalidUnit, path, err)
	}

	if u.Name == "" {
		u.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if u.Target == "" {
		u.Target = targetJVM
	}
	if err := u.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errInvalidUnit, path, err)
	}
	return u, nil
}

func (u *unitFile) validate() error {
	switch u.Target {
	case targetJVM, targetJS:
	default:
		return fmt.Errorf("unknown target %q (must be %s or %s)", u.Target, targetJVM, targetJS)
	}
	if strings.ContainsAny(u.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", u.Name)
	}
	for i, src := range u.Sources {
		switch {
		case src.Path != "" && (src.Name != "" || src.Contents != ""):
			return fmt.Errorf("source %d: path excludes name and contents", i)
		case src.Path == "" && src.Name == "":
			return fmt.Errorf("source %d: path or name is required", i)
		}
	}
	if u.Target == targetJS && len(u.JavacArgs) > 0 {
		return fmt.Errorf("javacArgs are not used by the %s target", targetJS)
	}
	if u.Script != nil {
		if u.Target != targetJVM {
			return fmt.Errorf("scripts only run for the %s target", targetJVM)
		}
		if u.Script.File == "" {
			return fmt.Errorf("script file is required")
		}
	}
	return nil
}

// dir is the directory relative paths are resolved against
func (u *unitFile) dir() string {
	return filepath.Dir(u.path)
}

func (u *unitFile) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(u.dir(), p)
}

// files builds the source files. Existing files are checked eagerly.
func (u *unitFile) files() ([]sources.File, error) {
	files := make([]sources.File, 0, len(u.Sources))
	for _, src := range u.Sources {
		var opts []sources.Option
		if src.Common {
			opts = append(opts, sources.Common())
		}

		var (
			f   sources.File
			err error
		)
		if src.Path != "" {
			f, err = sources.FromPath(u.resolve(src.Path), opts...)
		} else {
			f, err = sources.New(src.Name, src.Contents, opts...)
		}
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// classpath resolves the unit classpath entries
func (u *unitFile) classpath() []string {
	entries := make([]string, 0, len(u.Classpath))
	for _, entry := range u.Classpath {
		entries = append(entries, u.resolve(entry))
	}
	return entries
}

// watchDirs returns the unit file directory and the directories of its
// existing sources
func (u *unitFile) watchDirs() []string {
	seen := map[string]bool{u.dir(): true}
	for _, src := range u.Sources {
		if src.Path != "" {
			seen[filepath.Dir(u.resolve(src.Path))] = true
		}
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// watches reports whether a change to path affects the unit
func (u *unitFile) watches(path string) bool {
	if path == u.path {
		return true
	}
	for _, src := range u.Sources {
		if src.Path != "" && u.resolve(src.Path) == path {
			return true
		}
	}
	return false
}
