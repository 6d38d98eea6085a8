package processing

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
)

// DefaultMaxRounds bounds the processing rounds of one invocation
const DefaultMaxRounds = 100

// Engine runs Go annotation and symbol processors. It is a toolchain.Compiler
// that accepts the command line of a kotlinc processing pass: it
// instantiates the main registrar by name, hands it the main plugin's -P
// options and runs whatever processors the registrar registers.
type Engine struct {
	RegistrarName string
	MaxRounds     int
	Logger        logrus.FieldLogger
}

// NewEngine creates an engine using the main registrar
func NewEngine(logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		RegistrarName: extensions.MainRegistrarName,
		MaxRounds:     DefaultMaxRounds,
		Logger:        logger,
	}
}

// Name identifies the engine
func (e *Engine) Name() string { return "processing-engine" }

// Exec runs one processing invocation. Processor errors are compilation
// errors; registrar failures and processor panics are internal errors.
func (e *Engine) Exec(ctx context.Context, inv *toolchain.Invocation) (code toolchain.ExitCode, err error) {
	out := inv.Output
	if out == nil {
		out = io.Discard
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(out, "error: processing failed with a panic: %v\n", r)
			code, err = toolchain.InternalError, nil
		}
	}()

	args, err := toolchain.ParseKotlinArgs(inv.Args)
	if err != nil {
		return internalError(out, err)
	}
	kapt, hasKapt, err := ParseKaptOptions(args)
	if err != nil {
		return internalError(out, err)
	}
	ksp, hasKSP, err := ParseKSPOptions(args)
	if err != nil {
		return internalError(out, err)
	}

	project, err := e.register(args)
	if err != nil {
		return internalError(out, err)
	}

	aps := project.AnnotationProcessors()
	sps := project.SymbolProcessors()
	logger := e.Logger.WithFields(logrus.Fields{
		"annotation_processors": len(aps),
		"symbol_processors":     len(sps),
	})
	if len(aps) == 0 && len(sps) == 0 {
		logger.Debug("No processors registered, nothing to process")
		return toolchain.OK, nil
	}
	if len(aps) > 0 && !hasKapt {
		return internalError(out, fmt.Errorf("annotation processors registered but no %s options given", KaptPluginID))
	}
	if len(sps) > 0 && !hasKSP {
		return internalError(out, fmt.Errorf("symbol processors registered but no %s options given", KSPPluginID))
	}

	for _, dir := range []string{kapt.Sources, kapt.Stubs, kapt.IncrementalData, ksp.KotlinOutputDir, ksp.JavaOutputDir, ksp.ResourceOutputDir, ksp.CachesDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return internalError(out, err)
		}
	}

	sourceFiles, err := collectSources(args.Sources)
	if err != nil {
		return internalError(out, err)
	}

	files := &tracker{}
	r := &run{
		ctx:       ctx,
		maxRounds: e.maxRounds(),
		msg:       &messager{out: out, verbose: kapt.Verbose || args.Verbose},
		files:     files,
		logger:    logger,
	}
	r.filer = &filer{
		javaDir:     kapt.Sources,
		kotlinDir:   kapt.APOptions[KaptKotlinGeneratedOption],
		resourceDir: kapt.Classes,
		files:       files,
	}
	r.codegen = &codeGenerator{
		kotlinDir:   ksp.KotlinOutputDir,
		javaDir:     ksp.JavaOutputDir,
		resourceDir: ksp.ResourceOutputDir,
		files:       files,
	}
	return r.process(sourceFiles, aps, sps, kapt.APOptions, ksp.APOptions)
}

func (e *Engine) register(args *toolchain.KotlinArgs) (*extensions.Project, error) {
	name := e.RegistrarName
	if name == "" {
		name = extensions.MainRegistrarName
	}
	registrar, err := extensions.NewRegistrar(name)
	if err != nil {
		return nil, err
	}
	for _, opt := range args.PluginOptionsFor(extensions.MainPluginID) {
		if err := registrar.ProcessOption(opt.Key, opt.Value); err != nil {
			return nil, fmt.Errorf("registrar rejected option %s: %w", opt.Key, err)
		}
	}

	project := extensions.NewProject()
	if err := registrar.RegisterComponents(project, extensions.NewConfiguration()); err != nil {
		return nil, err
	}
	return project, nil
}

func (e *Engine) maxRounds() int {
	if e.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return e.MaxRounds
}

func internalError(out io.Writer, err error) (toolchain.ExitCode, error) {
	fmt.Fprintf(out, "error: %v\n", err)
	return toolchain.InternalError, nil
}

// collectSources expands source directories into the Kotlin and Java files below them
func collectSources(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (sources.IsKotlinFile(p) || sources.IsJavaFile(p)) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
