package compilation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/classpath"
	"github.com/platinummonkey/compiletest/pkg/diagnostics"
	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/processing"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// JVMCompilation is one unit of Kotlin and Java sources compiled for the JVM.
//
// Compile runs up to four passes in order, stopping at the first failure:
//
//	kapt        kotlinc with the kapt plugin, when Services are registered
//	processing  the processing engine, when processor extensions are registered
//	kotlin      kotlinc over the staged and generated sources
//	java        javac over the Java sources, against the Kotlin output
type JVMCompilation struct {
	WorkingDir string
	Sources    []sources.File
	Classpaths []string

	// JDKHome selects a JDK whose javac runs the Java pass. When empty,
	// kotlinc gets -no-jdk and javac compiles without system modules.
	JDKHome string

	Verbose                 bool
	AllWarningsAsErrors     bool
	SuppressWarnings        bool
	InheritClassPath        bool
	SkipRuntimeVersionCheck bool
	CorrectErrorTypes       bool
	ReportOutputFiles       bool
	JVMTarget               string
	ModuleName              string
	KotlincArgs             []string
	JavacArgs               []string

	Extensions        []extensions.Registration
	Services          []extensions.Service // kapt annotation processors running inside kotlinc
	PluginClasspaths  []string
	KaptArgs          map[string]string
	KSPArgs           map[string]string
	KSPIncremental    bool
	KSPIncrementalLog bool

	// Toolchain jars; empty ones are looked up through the Resolver
	StdLibJar        string
	ReflectJar       string
	ScriptRuntimeJar string
	ToolsJar         string
	Kapt3Jar         string

	Toolchain  toolchain.Toolchain
	Processor  toolchain.Compiler // runs the processing pass; defaults to the processing engine
	Resolver   classpath.Resolver
	Classifier *diagnostics.Classifier
	Output     io.Writer
	Logger     logrus.FieldLogger
	Metrics    MetricsRecorder

	fs afero.Fs
}

// NewJVMCompilation creates a compilation with the default collaborators,
// writing diagnostics to stdout
func NewJVMCompilation(workingDir string) *JVMCompilation {
	return &JVMCompilation{
		WorkingDir:        workingDir,
		CorrectErrorTypes: true,
		Toolchain:         toolchain.DefaultToolchain(),
		Resolver:          classpath.Host(),
		Classifier:        diagnostics.NewClassifier(),
		Output:            os.Stdout,
		Logger:            logrus.StandardLogger(),
	}
}

// Layout returns the directory structure of the compilation
func (c *JVMCompilation) Layout() Layout {
	return NewLayout(c.WorkingDir)
}

// KSPSourcesDir is the root of the sources generated by symbol processors
func (c *JVMCompilation) KSPSourcesDir() string {
	return c.Layout().KSPSources()
}

// Compile runs the passes. Compilation failures are reported through the
// result's exit code; an error means the compilation could not be attempted
// or the harness itself failed. Every call is a clean rebuild of the
// working directory.
func (c *JVMCompilation) Compile(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "compilation.Compile", trace.WithAttributes(
		attribute.String("compilation.target", TargetJVM),
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
	c.metrics().ObserveCompilation(TargetJVM, res.ExitCode, time.Since(start))
	return res, nil
}

func (c *JVMCompilation) compile(ctx context.Context) (*Result, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	kapt3, err := c.kapt3Jar()
	if err != nil {
		return nil, err
	}

	layout := c.Layout()
	fs := c.filesystem()
	if err := layout.resetJVM(fs); err != nil {
		return nil, err
	}
	staged, err := sources.Stage(fs, layout.Sources(), c.Sources)
	if err != nil {
		return nil, err
	}

	cp := c.classpath()
	res := newResult(fs, layout.Classes(), c.resolver().HostClasspath())
	res.Classpath = cp
	res.runtime = c.toolchain().Runtime

	r := &runner{
		target:  TargetJVM,
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

	steps := []func() (toolchain.ExitCode, error){
		func() (toolchain.ExitCode, error) { return c.kaptPass(ctx, r, staged, cp, kapt3) },
		func() (toolchain.ExitCode, error) { return c.processingPass(ctx, r, staged, cp) },
		func() (toolchain.ExitCode, error) { return c.kotlinPass(ctx, r, staged, cp) },
		func() (toolchain.ExitCode, error) { return c.javaPass(ctx, r, staged, cp) },
	}
	for _, step := range steps {
		code, err := step()
		if err != nil {
			return nil, err
		}
		if code != toolchain.OK {
			break
		}
	}

	res.Passes = r.passes
	res.ExitCode, res.Messages = summary(r.passes)
	if res.ExitCode != toolchain.OK {
		res.Advisories = c.classifier().Advise(r.output, res.Messages, diagnostics.Context{
			InheritClassPath: c.InheritClassPath,
			JDKHome:          c.JDKHome,
		})
	}
	return res, nil
}

func (c *JVMCompilation) validate() error {
	if c.WorkingDir == "" {
		return ErrNoWorkingDir
	}
	for i, reg := range c.Extensions {
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("%w: extension %d: %v", ErrInvalidRegistration, i, err)
		}
	}
	if c.JDKHome != "" {
		info, err := os.Stat(filepath.Join(c.JDKHome, "bin"))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s has no bin directory", ErrInvalidJDKHome, c.JDKHome)
		}
	}
	return checkExternal(c.Sources, c.Layout().jvmOwned())
}

// kapt3Jar locates the kapt plugin, which must exist when services are registered
func (c *JVMCompilation) kapt3Jar() (string, error) {
	if len(c.Services) == 0 {
		return "", nil
	}
	jar := c.artifact(c.Kapt3Jar, classpath.Kapt3)
	if jar == "" {
		return "", fmt.Errorf("%w: add kotlin-annotation-processing to the classpath or set Kapt3Jar", ErrProcessingSupportMissing)
	}
	return jar, nil
}

// classpath is the explicit classpath, the Kotlin runtime jars and, when
// inheriting, the host classpath, without duplicates
func (c *JVMCompilation) classpath() []string {
	entries := append([]string(nil), c.Classpaths...)
	entries = append(entries,
		c.artifact(c.StdLibJar, classpath.StdLib),
		c.artifact(c.ReflectJar, classpath.Reflect),
		c.artifact(c.ScriptRuntimeJar, classpath.ScriptRuntime),
	)
	if c.InheritClassPath {
		entries = append(entries, c.resolver().HostClasspath()...)
	}
	return classpath.Dedupe(entries)
}

func (c *JVMCompilation) toolsJar() string {
	if c.ToolsJar != "" {
		return c.ToolsJar
	}
	if c.JDKHome != "" {
		if jar, err := classpath.FindToolsJarFromJDK(c.JDKHome); err == nil {
			return jar
		}
	}
	return c.artifact("", classpath.ToolsJar)
}

func (c *JVMCompilation) artifact(explicit string, pattern *regexp.Regexp) string {
	if explicit != "" {
		return explicit
	}
	path, _ := c.resolver().FindArtifact(pattern)
	return path
}

// commonArgs are the kotlinc arguments shared by every Kotlin pass
func (c *JVMCompilation) commonArgs(cp []string) *toolchain.KotlinArgs {
	return &toolchain.KotlinArgs{
		Destination:             c.Layout().Classes(),
		Classpath:               cp,
		JDKHome:                 c.JDKHome,
		NoJDK:                   c.JDKHome == "",
		NoStdlib:                true,
		NoReflect:               true,
		JVMTarget:               c.JVMTarget,
		ModuleName:              c.ModuleName,
		Verbose:                 c.Verbose,
		AllWarningsAsErrors:     c.AllWarningsAsErrors,
		SuppressWarnings:        c.SuppressWarnings,
		SkipRuntimeVersionCheck: c.SkipRuntimeVersionCheck,
		ReportOutputFiles:       c.ReportOutputFiles,
		FreeArgs:                c.KotlincArgs,
	}
}

// kaptPass generates stubs and runs the service-registered annotation
// processors inside kotlinc
func (c *JVMCompilation) kaptPass(ctx context.Context, r *runner, staged []sources.Staged, cp []string, kapt3 string) (toolchain.ExitCode, error) {
	if len(c.Services) == 0 {
		r.logf("No services were given. Not running kapt steps.")
		return toolchain.OK, nil
	}

	layout := c.Layout()
	if err := extensions.WriteServicesArchive(layout.ServicesJar(), c.Services); err != nil {
		return toolchain.InternalError, err
	}

	opts := processing.KaptOptions{
		Sources:                layout.KaptSources(),
		Classes:                layout.Classes(),
		Stubs:                  layout.KaptStubs(),
		IncrementalData:        layout.KaptIncrementalData(),
		APClasspath:            []string{layout.ServicesJar()},
		APOptions:              c.kaptAPOptions(),
		AptMode:                processing.AptModeStubsAndApt,
		CorrectErrorTypes:      c.CorrectErrorTypes,
		MapDiagnosticLocations: true,
		Verbose:                c.Verbose,
	}
	kaptOptions, err := opts.PluginOptions()
	if err != nil {
		return toolchain.InternalError, err
	}

	args := c.commonArgs(cp)
	args.PluginClasspaths = append([]string{kapt3}, c.PluginClasspaths...)
	if tools := c.toolsJar(); tools != "" {
		args.PluginClasspaths = append(args.PluginClasspaths, tools)
	}
	args.PluginOptions = kaptOptions
	args.Sources = sources.Paths(staged)
	c.multiplatform(args, staged)

	res, err := r.exec(ctx, PassKapt, c.toolchain().Kotlin, args.Args())
	return res.ExitCode, err
}

// processingPass runs the annotation and symbol processor extensions
func (c *JVMCompilation) processingPass(ctx context.Context, r *runner, staged []sources.Staged, cp []string) (toolchain.ExitCode, error) {
	snapshot := extensions.NewSnapshot(c.Extensions)
	if !snapshot.HasProcessors() {
		return toolchain.OK, nil
	}
	scope := extensions.Install(snapshot)
	defer scope.Close()

	layout := c.Layout()
	args := c.commonArgs(cp)
	args.PluginOptions = mainPluginOptions(scope, snapshot)
	if len(snapshot.Handles(extensions.KindAnnotation)) > 0 {
		kapt := processing.KaptOptions{
			Sources:           layout.KaptSources(),
			Classes:           layout.Classes(),
			Stubs:             layout.KaptStubs(),
			IncrementalData:   layout.KaptIncrementalData(),
			APOptions:         c.kaptAPOptions(),
			AptMode:           processing.AptModeStubsAndApt,
			CorrectErrorTypes: c.CorrectErrorTypes,
			Verbose:           c.Verbose,
		}
		kaptOptions, err := kapt.PluginOptions()
		if err != nil {
			return toolchain.InternalError, err
		}
		args.PluginOptions = append(args.PluginOptions, kaptOptions...)
	}
	if len(snapshot.Handles(extensions.KindSymbol)) > 0 {
		ksp := processing.KSPOptions{
			KotlinOutputDir:   layout.KSPKotlinSources(),
			JavaOutputDir:     layout.KSPJavaSources(),
			ClassOutputDir:    layout.KSPClasses(),
			ResourceOutputDir: layout.KSPResources(),
			CachesDir:         layout.KSPCaches(),
			ProjectBaseDir:    layout.KSP(),
			Incremental:       c.KSPIncremental,
			IncrementalLog:    c.KSPIncrementalLog,
			APOptions:         c.KSPArgs,
		}
		args.PluginOptions = append(args.PluginOptions, ksp.PluginOptions()...)
	}
	args.Sources = sources.Paths(staged)

	res, err := r.exec(ctx, PassProcessing, c.processor(), args.Args())
	return res.ExitCode, err
}

// kotlinPass compiles the staged sources together with everything the
// processing passes generated
func (c *JVMCompilation) kotlinPass(ctx context.Context, r *runner, staged []sources.Staged, cp []string) (toolchain.ExitCode, error) {
	files, err := c.passSources(staged, func(string) bool { return true })
	if err != nil {
		return toolchain.InternalError, err
	}
	if !anyMatch(files, sources.IsKotlinFile) {
		r.skip(PassKotlin, "No Kotlin sources were given. Not running the Kotlin compiler.")
		return toolchain.OK, nil
	}

	args := c.commonArgs(cp)
	args.PluginClasspaths = append([]string(nil), c.PluginClasspaths...)
	if args.NoJDK {
		r.logf("Using option -no-jdk. Kotlinc won't look for a JDK.")
	}

	// component registrars and option processors run in this pass
	compilerOnly := compilerExtensions(c.Extensions)
	if !compilerOnly.IsEmpty() {
		scope := extensions.Install(compilerOnly)
		defer scope.Close()
		args.PluginOptions = mainPluginOptions(scope, compilerOnly)
	}
	args.Sources = files
	c.multiplatform(args, staged)

	res, err := r.exec(ctx, PassKotlin, c.toolchain().Kotlin, args.Args())
	return res.ExitCode, err
}

// javaPass compiles the staged and generated Java sources against the Kotlin output
func (c *JVMCompilation) javaPass(ctx context.Context, r *runner, staged []sources.Staged, cp []string) (toolchain.ExitCode, error) {
	files, err := c.passSources(staged, sources.IsJavaFile)
	if err != nil {
		return toolchain.InternalError, err
	}
	if len(files) == 0 {
		r.skip(PassJava, "No Java sources were given. Not running the Java compiler.")
		return toolchain.OK, nil
	}

	javac, modern, err := c.javac(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return toolchain.InternalError, ctx.Err()
		}
		res := r.fail(PassJava, "javac", toolchain.InternalError, err.Error())
		return res.ExitCode, nil
	}

	layout := c.Layout()
	var args []string
	if c.Verbose {
		args = append(args, "-verbose", "-Xlint:path", "-Xlint:options")
		if modern {
			args = append(args, "-Xlint:module")
		}
	}
	args = append(args, "-d", layout.Classes(), "-proc:none")
	if c.AllWarningsAsErrors {
		args = append(args, "-Werror")
	}
	args = append(args, "-cp", strings.Join(append(append([]string(nil), cp...), layout.Classes()), string(os.PathListSeparator)))
	if c.JDKHome == "" {
		if modern {
			args = append(args, "--system", "none")
		} else {
			args = append(args, "-bootclasspath", "")
		}
	}
	args = append(args, c.JavacArgs...)
	args = append(args, files...)

	res, err := r.exec(ctx, PassJava, javac, args)
	return res.ExitCode, err
}

// javac picks the compiler of the Java pass and reports whether it is javac 9 or later
func (c *JVMCompilation) javac(ctx context.Context) (toolchain.Compiler, bool, error) {
	if c.JDKHome != "" {
		path := filepath.Join(c.JDKHome, "bin", "javac")
		version, err := toolchain.JavacVersion(ctx, path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to determine javac version of %s: %w", c.JDKHome, err)
		}
		compiler := toolchain.NewProcessCompiler(path, toolchain.JavacExitCode)
		compiler.Logger = c.logger()
		return compiler, toolchain.IsJavac9OrLater(version), nil
	}

	javac := c.toolchain().Java
	if pc, ok := javac.(*toolchain.ProcessCompiler); ok {
		version, err := toolchain.JavacVersion(ctx, pc.Command)
		if err == nil {
			return javac, toolchain.IsJavac9OrLater(version), nil
		}
		c.logger().WithError(err).Warn("Could not determine javac version, assuming 9 or later")
	}
	return javac, true, nil
}

// passSources returns the staged sources plus the generated sources matching keep
func (c *JVMCompilation) passSources(staged []sources.Staged, keep func(string) bool) ([]string, error) {
	var files []string
	for _, path := range sources.Paths(staged) {
		if keep(path) {
			files = append(files, path)
		}
	}
	for _, dir := range c.Layout().generated() {
		generated, err := artifacts.ListFiles(c.filesystem(), dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list generated sources: %w", err)
		}
		for _, path := range generated {
			if (sources.IsKotlinFile(path) || sources.IsJavaFile(path)) && keep(path) {
				files = append(files, path)
			}
		}
	}
	return files, nil
}

func (c *JVMCompilation) multiplatform(args *toolchain.KotlinArgs, staged []sources.Staged) {
	if common := sources.CommonPaths(staged); len(common) > 0 {
		args.MultiPlatform = true
		args.CommonSources = common
	}
}

func (c *JVMCompilation) kaptAPOptions() map[string]string {
	opts := make(map[string]string, len(c.KaptArgs)+1)
	for k, v := range c.KaptArgs {
		opts[k] = v
	}
	if _, ok := opts[processing.KaptKotlinGeneratedOption]; !ok {
		opts[processing.KaptKotlinGeneratedOption] = c.Layout().KaptKotlinGenerated()
	}
	return opts
}

func (c *JVMCompilation) filesystem() afero.Fs {
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	return c.fs
}

func (c *JVMCompilation) toolchain() toolchain.Toolchain { return c.Toolchain.WithDefaults() }

func (c *JVMCompilation) processor() toolchain.Compiler {
	if c.Processor != nil {
		return c.Processor
	}
	return processing.NewEngine(c.logger())
}

func (c *JVMCompilation) resolver() classpath.Resolver {
	if c.Resolver == nil {
		return classpath.Host()
	}
	return c.Resolver
}

func (c *JVMCompilation) classifier() *diagnostics.Classifier {
	if c.Classifier == nil {
		c.Classifier = diagnostics.NewClassifier()
	}
	return c.Classifier
}

func (c *JVMCompilation) output() io.Writer {
	if c.Output == nil {
		return io.Discard
	}
	return c.Output
}

func (c *JVMCompilation) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c *JVMCompilation) metrics() MetricsRecorder {
	if c.Metrics == nil {
		return nopMetrics{}
	}
	return c.Metrics
}

// compilerExtensions keeps the registrations kotlinc itself runs
func compilerExtensions(regs []extensions.Registration) extensions.Snapshot {
	var kept []extensions.Registration
	for _, reg := range regs {
		if !reg.Handle.IsProcessor() {
			kept = append(kept, reg)
		}
	}
	return extensions.NewSnapshot(kept)
}

// mainPluginOptions addresses the main registrar with the scope token and
// every encoded extension option
func mainPluginOptions(scope *extensions.Scope, snapshot extensions.Snapshot) []string {
	opts := []string{toolchain.NewPluginOption(extensions.MainPluginID, extensions.ScopeOptionName, scope.Token())}
	for _, o := range snapshot.EncodedOptions() {
		opts = append(opts, toolchain.NewPluginOption(extensions.MainPluginID, o.Name, o.Value))
	}
	return opts
}

// missingPlugin reports the first plugin classpath entry that does not exist
func missingPlugin(plugins []string) (string, bool) {
	for _, p := range plugins {
		if _, err := os.Stat(p); err != nil {
			return fmt.Sprintf("error: plugin %s not found", p), true
		}
	}
	return "", false
}

func anyMatch(paths []string, pred func(string) bool) bool {
	for _, p := range paths {
		if pred(p) {
			return true
		}
	}
	return false
}
