package compilation

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/classpath"
	"github.com/platinummonkey/compiletest/pkg/diagnostics"
	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultJSOutputFileName is the file a JS compilation writes
const DefaultJSOutputFileName = "test.js"

// JSCompilation compiles Kotlin sources to JavaScript in a single pass
type JSCompilation struct {
	WorkingDir          string
	Sources             []sources.File
	Classpaths          []string
	OutputFileName      string
	ModuleName          string
	Verbose             bool
	AllWarningsAsErrors bool
	SuppressWarnings    bool
	InheritClassPath    bool
	ReportOutputFiles   bool
	KotlincArgs         []string

	// Extensions may carry component registrars and option processors.
	// Annotation and symbol processors are not run for JS.
	Extensions       []extensions.Registration
	PluginClasspaths []string

	StdLibCommonJar string
	StdLibJSJar     string

	Toolchain  toolchain.Toolchain
	Resolver   classpath.Resolver
	Classifier *diagnostics.Classifier
	Output     io.Writer
	Logger     logrus.FieldLogger
	Metrics    MetricsRecorder
}

// NewJSCompilation creates a JS compilation with the default collaborators
func NewJSCompilation(workingDir string) *JSCompilation {
	return &JSCompilation{
		WorkingDir:     workingDir,
		OutputFileName: DefaultJSOutputFileName,
		Toolchain:      toolchain.DefaultToolchain(),
		Resolver:       classpath.Host(),
		Classifier:     diagnostics.NewClassifier(),
		Output:         os.Stdout,
		Logger:         logrus.StandardLogger(),
	}
}

// JSResult is the outcome of a JS compilation
type JSResult struct {
	ExitCode        toolchain.ExitCode
	Messages        string
	Pass            PassResult
	OutputDirectory string
	Advisories      []diagnostics.Match

	fs        afero.Fs
	filesOnce sync.Once
	files     []string
	filesErr  error
}

// CompiledFiles lists every file the compiler wrote
func (r *JSResult) CompiledFiles() ([]string, error) {
	r.filesOnce.Do(func() {
		r.files, r.filesErr = artifacts.ListFiles(r.fs, r.OutputDirectory)
	})
	return r.files, r.filesErr
}

// Compile runs kotlinc-js. Like the JVM compilation every call is a clean rebuild.
func (c *JSCompilation) Compile(ctx context.Context) (*JSResult, error) {
	ctx, span := tracer.Start(ctx, "compilation.Compile", trace.WithAttributes(
		attribute.String("compilation.target", TargetJS),
		attribute.String("compilation.working_dir", c.WorkingDir),
		attribute.Int("compilation.sources", len(c.Sources)),
	))
	defer span.End()

	start := time.Now()
	res, err := c.compile(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("compilation.exit_code", res.ExitCode.String()))
	c.metrics().ObserveCompilation(TargetJS, res.ExitCode, time.Since(start))
	return res, nil
}

func (c *JSCompilation) compile(ctx context.Context) (*JSResult, error) {
	if c.WorkingDir == "" {
		return nil, ErrNoWorkingDir
	}
	for i, reg := range c.Extensions {
		if err := reg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: extension %d: %v", ErrInvalidRegistration, i, err)
		}
	}

	layout := NewLayout(c.WorkingDir)
	if err := checkExternal(c.Sources, layout.jsOwned()); err != nil {
		return nil, err
	}
	fs := afero.NewOsFs()
	if err := layout.resetJS(fs); err != nil {
		return nil, err
	}
	staged, err := sources.Stage(fs, layout.Sources(), c.Sources)
	if err != nil {
		return nil, err
	}

	res := &JSResult{OutputDirectory: layout.JSOutput(), fs: fs}
	r := &runner{
		target:  TargetJS,
		dir:     layout.Root,
		output:  c.output(),
		verbose: c.Verbose,
		logger:  c.logger().WithField("working_dir", layout.Root),
		metrics: c.metrics(),
	}

	if msg, ok := missingPlugin(c.PluginClasspaths); ok {
		fmt.Fprintln(r.output, msg)
		res.ExitCode, res.Messages = toolchain.InternalError, msg+"\n"
		return res, nil
	}

	args := &toolchain.KotlinArgs{
		NoStdlib:            true,
		ModuleName:          c.ModuleName,
		Verbose:             c.Verbose,
		AllWarningsAsErrors: c.AllWarningsAsErrors,
		SuppressWarnings:    c.SuppressWarnings,
		ReportOutputFiles:   c.ReportOutputFiles,
		PluginClasspaths:    append([]string(nil), c.PluginClasspaths...),
		Libraries:           c.libraries(),
		ModuleKind:          "commonjs",
		IROutputDir:         layout.JSOutput(),
		IROutputName:        strings.TrimSuffix(c.outputFileName(), ".js"),
		IRProduceJS:         true,
		FreeArgs:            c.KotlincArgs,
		Sources:             sources.Paths(staged),
	}
	if common := sources.CommonPaths(staged); len(common) > 0 {
		args.MultiPlatform = true
		args.CommonSources = common
	}
	snapshot := compilerExtensions(c.Extensions)
	if !snapshot.IsEmpty() {
		scope := extensions.Install(snapshot)
		defer scope.Close()
		args.PluginOptions = mainPluginOptions(scope, snapshot)
	}

	pass, err := r.exec(ctx, PassJS, c.Toolchain.WithDefaults().KotlinJS, args.Args())
	if err != nil {
		return nil, err
	}
	res.Pass = pass
	res.ExitCode, res.Messages = pass.ExitCode, pass.Messages
	if res.ExitCode != toolchain.OK {
		classifier := c.Classifier
		if classifier == nil {
			classifier = diagnostics.NewClassifier()
		}
		res.Advisories = classifier.Advise(r.output, res.Messages, diagnostics.Context{InheritClassPath: c.InheritClassPath})
	}
	return res, nil
}

// libraries is the explicit classpath, the JS standard library and, when
// inheriting, the host classpath
func (c *JSCompilation) libraries() []string {
	resolver := c.Resolver
	if resolver == nil {
		resolver = classpath.Host()
	}
	find := func(explicit string, pattern *regexp.Regexp) string {
		if explicit != "" {
			return explicit
		}
		path, _ := resolver.FindArtifact(pattern)
		return path
	}

	entries := append([]string(nil), c.Classpaths...)
	entries = append(entries, find(c.StdLibCommonJar, classpath.StdLibCommon), find(c.StdLibJSJar, classpath.StdLibJs))
	if c.InheritClassPath {
		entries = append(entries, resolver.HostClasspath()...)
	}
	return classpath.Dedupe(entries)
}

func (c *JSCompilation) outputFileName() string {
	if c.OutputFileName == "" {
		return DefaultJSOutputFileName
	}
	return c.OutputFileName
}

func (c *JSCompilation) output() io.Writer {
	if c.Output == nil {
		return io.Discard
	}
	return c.Output
}

func (c *JSCompilation) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c *JSCompilation) metrics() MetricsRecorder {
	if c.Metrics == nil {
		return nopMetrics{}
	}
	return c.Metrics
}
