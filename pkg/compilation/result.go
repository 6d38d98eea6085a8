package compilation

import (
	"sync"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/diagnostics"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/spf13/afero"
)

// Result is the outcome of a JVM compilation. The file listing and the class
// loader are computed on first use.
type Result struct {
	ExitCode        toolchain.ExitCode
	Messages        string
	Passes          []PassResult
	OutputDirectory string
	Classpath       []string
	Advisories      []diagnostics.Match

	fs      afero.Fs
	host    []string
	runtime toolchain.Compiler

	filesOnce sync.Once
	files     []string
	filesErr  error

	loaderOnce sync.Once
	loader     *artifacts.DirLoader
	loaderErr  error

	mu         sync.Mutex // guards hostLoader
	hostLoader *artifacts.ClasspathLoader
}

func newResult(fs afero.Fs, outputDir string, host []string) *Result {
	return &Result{fs: fs, OutputDirectory: outputDir, host: host}
}

// Pass returns the result of the named pass
func (r *Result) Pass(name string) (PassResult, bool) {
	for _, p := range r.Passes {
		if p.Name == name {
			return p, true
		}
	}
	return PassResult{}, false
}

// GeneratedFiles lists every file below the output directory
func (r *Result) GeneratedFiles() ([]string, error) {
	r.filesOnce.Do(func() {
		r.files, r.filesErr = artifacts.ListFiles(r.fs, r.OutputDirectory)
	})
	return r.files, r.filesErr
}

// ClassLoader returns a loader rooted at the output directory. Its parent
// sees the host classpath. Every result has its own loader, so classes with
// the same name compiled by different results never collide.
func (r *Result) ClassLoader() (*artifacts.DirLoader, error) {
	r.loaderOnce.Do(func() {
		host, err := artifacts.NewClasspathLoader(r.host, nil)
		if err != nil {
			r.loaderErr = err
			return
		}
		r.mu.Lock()
		r.hostLoader = host
		r.mu.Unlock()
		r.loader = artifacts.NewDirLoader(r.OutputDirectory, host)
	})
	return r.loader, r.loaderErr
}

// Close releases the jars opened by the class loader. It is safe to call
// concurrently with ClassLoader and more than once.
func (r *Result) Close() error {
	r.mu.Lock()
	host := r.hostLoader
	r.hostLoader = nil
	r.mu.Unlock()
	if host == nil {
		return nil
	}
	return host.Close()
}

func (r *Result) filesystem() afero.Fs {
	if r.fs == nil {
		return afero.NewOsFs()
	}
	return r.fs
}
