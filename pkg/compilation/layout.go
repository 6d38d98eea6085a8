package compilation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/spf13/afero"
)

// Layout is the on-disk structure of a compilation below its working directory
type Layout struct {
	Root string
}

// NewLayout creates the layout rooted at workingDir, made absolute so every
// path stays valid for a compiler running inside it
func NewLayout(workingDir string) Layout {
	root, err := filepath.Abs(workingDir)
	if err != nil {
		root = filepath.Clean(workingDir)
	}
	return Layout{Root: root}
}

// Sources is where in-memory sources are staged
func (l Layout) Sources() string { return filepath.Join(l.Root, "sources") }

// Classes is the final output of a JVM compilation
func (l Layout) Classes() string { return filepath.Join(l.Root, "classes") }

// ServicesJar is the synthesized service registration archive
func (l Layout) ServicesJar() string { return filepath.Join(l.Root, "services.jar") }

// JSOutput is the output of a JS compilation
func (l Layout) JSOutput() string { return filepath.Join(l.Root, "output") }

func (l Layout) kapt() string { return filepath.Join(l.Root, "kapt") }

// KaptSources receives Java sources generated by annotation processors
func (l Layout) KaptSources() string { return filepath.Join(l.kapt(), "sources") }

// KaptKotlinGenerated receives Kotlin sources generated by annotation processors
func (l Layout) KaptKotlinGenerated() string { return filepath.Join(l.kapt(), "kotlinGenerated") }

// KaptStubs receives the Java stubs of the Kotlin sources
func (l Layout) KaptStubs() string { return filepath.Join(l.kapt(), "stubs") }

// KaptIncrementalData is kapt scratch space
func (l Layout) KaptIncrementalData() string { return filepath.Join(l.kapt(), "incrementalData") }

// KSP is the symbol processing working directory
func (l Layout) KSP() string { return filepath.Join(l.Root, "ksp") }

// KSPSources is the root of the sources generated by symbol processors
func (l Layout) KSPSources() string { return filepath.Join(l.KSP(), "sources") }

// KSPKotlinSources receives Kotlin sources generated by symbol processors
func (l Layout) KSPKotlinSources() string { return filepath.Join(l.KSPSources(), "kotlin") }

// KSPJavaSources receives Java sources generated by symbol processors
func (l Layout) KSPJavaSources() string { return filepath.Join(l.KSPSources(), "java") }

// KSPResources receives resources generated by symbol processors
func (l Layout) KSPResources() string { return filepath.Join(l.KSPSources(), "resource") }

// KSPClasses receives classes generated by symbol processors
func (l Layout) KSPClasses() string { return filepath.Join(l.KSP(), "classes") }

// KSPCaches is symbol processing scratch space
func (l Layout) KSPCaches() string { return filepath.Join(l.KSP(), "caches") }

// generated returns the directories whose sources feed the final compile
func (l Layout) generated() []string {
	return []string{l.KaptSources(), l.KaptKotlinGenerated(), l.KSPKotlinSources(), l.KSPJavaSources()}
}

// resetJVM clears everything a previous JVM compilation left behind and
// recreates the empty directory tree. Files the caller placed elsewhere in
// the working directory are kept.
func (l Layout) resetJVM(fs afero.Fs) error {
	return reset(fs, l.jvmOwned(),
		[]string{
			l.Sources(), l.Classes(),
			l.KaptSources(), l.KaptKotlinGenerated(), l.KaptStubs(), l.KaptIncrementalData(),
			l.KSPKotlinSources(), l.KSPJavaSources(), l.KSPResources(), l.KSPClasses(), l.KSPCaches(),
		})
}

func (l Layout) resetJS(fs afero.Fs) error {
	return reset(fs, l.jsOwned(), l.jsOwned())
}

// jvmOwned lists the paths a JVM compilation clears before it runs
func (l Layout) jvmOwned() []string {
	return []string{l.Sources(), l.Classes(), l.kapt(), l.KSP(), l.ServicesJar()}
}

func (l Layout) jsOwned() []string {
	return []string{l.Sources(), l.JSOutput()}
}

// checkExternal rejects existing source files stored below a path the
// compilation clears, since the reset would delete them before staging
func checkExternal(files []sources.File, owned []string) error {
	for _, f := range files {
		if !f.IsExisting() {
			continue
		}
		path, err := filepath.Abs(f.Path())
		if err != nil {
			continue
		}
		for _, dir := range owned {
			if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				return fmt.Errorf("%w: %s is below %s", ErrSourceInWorkingDir, f.Path(), dir)
			}
		}
	}
	return nil
}

func reset(fs afero.Fs, remove, create []string) error {
	for _, path := range remove {
		if err := fs.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to clear %s: %w", path, err)
		}
	}
	for _, dir := range create {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
