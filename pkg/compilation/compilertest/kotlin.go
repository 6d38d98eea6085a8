package compilertest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/processing"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
)

const (
	// KotlinName is the name of the fake kotlinc
	KotlinName = "kotlinc"

	// ProcessorService is the service interface JVM annotation processors are registered under
	ProcessorService = "javax.annotation.processing.Processor"

	// GeneratedClassesExtension is an extension point of the fake kotlinc. A
	// component registrar that registers a qualified class name string there
	// makes the compilation emit that class.
	GeneratedClassesExtension = "compiletest.fake.generatedClasses"
)

// Injector can take over an invocation before the fake compiles anything.
// Returning false lets the fake proceed.
type Injector func(inv *toolchain.Invocation) (toolchain.ExitCode, bool)

// Kotlin is a fake kotlinc
type Kotlin struct {
	Recorder   *Recorder
	Builtins   []string
	Processors map[string]extensions.AnnotationProcessor // by implementation class name
	Inject     Injector
	Logger     logrus.FieldLogger
}

// Name returns kotlinc
func (k *Kotlin) Name() string { return KotlinName }

// Exec compiles Kotlin sources, or runs kapt when the command line carries
// kapt plugin options
func (k *Kotlin) Exec(ctx context.Context, inv *toolchain.Invocation) (toolchain.ExitCode, error) {
	k.Recorder.record(KotlinName, inv.Args, inv.Dir)
	out := output(inv)
	if k.Inject != nil {
		if code, ok := k.Inject(inv); ok {
			return code, nil
		}
	}

	args, err := toolchain.ParseKotlinArgs(inv.Args)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	if !pluginsExist(out, args.PluginClasspaths) {
		return toolchain.InternalError, nil
	}

	kapt, isKapt, err := processing.ParseKaptOptions(args)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	if isKapt {
		return k.kapt(ctx, inv, args, kapt)
	}

	extra, err := generatedClasses(args)
	if err != nil {
		fmt.Fprintf(out, "exception: %v\n", err)
		return toolchain.InternalError, nil
	}
	return k.compile(inv, args, extra)
}

func (k *Kotlin) compile(inv *toolchain.Invocation, args *toolchain.KotlinArgs, extra []string) (toolchain.ExitCode, error) {
	out := output(inv)
	files, err := expandSources(args.Sources)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.CompilationError, nil
	}
	if !containsKotlin(files) {
		fmt.Fprintln(out, "error: no source files")
		return toolchain.CompilationError, nil
	}

	a, err := analyze(files, args.Classpath, builtinSet(k.Builtins), out)
	if err != nil {
		fmt.Fprintf(out, "exception: %v\n", err)
		return toolchain.InternalError, nil
	}
	if a.errorCount() > 0 {
		for _, f := range a.failedFiles() {
			for _, name := range a.errors[f] {
				fmt.Fprintf(out, "error: %s: unresolved reference: %s\n", f, name)
			}
		}
		return toolchain.CompilationError, nil
	}

	dest := destination(inv, args.Destination)
	written, err := a.writeClasses(dest, sources.KindKotlin)
	if err != nil {
		fmt.Fprintf(out, "exception: %v\n", err)
		return toolchain.InternalError, nil
	}
	for _, qn := range extra {
		path, err := WriteClass(dest, qn)
		if err != nil {
			fmt.Fprintf(out, "exception: %v\n", err)
			return toolchain.InternalError, nil
		}
		written = append(written, path)
	}

	module := args.ModuleName
	if module == "" {
		module = "main"
	}
	modulePath := filepath.Join(dest, "META-INF", module+".kotlin_module")
	if err := os.MkdirAll(filepath.Dir(modulePath), 0755); err != nil {
		return toolchain.InternalError, err
	}
	if err := os.WriteFile(modulePath, []byte(module), 0644); err != nil {
		return toolchain.InternalError, err
	}

	if args.ReportOutputFiles {
		fmt.Fprintf(out, "output:\n  %s\n", strings.Join(append(written, modulePath), "\n  "))
	}
	if args.Verbose {
		fmt.Fprintf(out, "logging: compiled %d classes to %s\n", len(written), dest)
	}
	return toolchain.OK, nil
}

// kapt writes Java stubs for the Kotlin declarations and runs the annotation
// processors listed in the services jars of the processor classpath
func (k *Kotlin) kapt(ctx context.Context, inv *toolchain.Invocation, args *toolchain.KotlinArgs, opts processing.KaptOptions) (toolchain.ExitCode, error) {
	out := output(inv)
	files, err := expandSources(args.Sources)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.CompilationError, nil
	}
	if err := writeStubs(opts.Stubs, files); err != nil {
		fmt.Fprintf(out, "exception: %v\n", err)
		return toolchain.InternalError, nil
	}

	var regs []extensions.Registration
	for _, entry := range opts.APClasspath {
		if !strings.HasSuffix(entry, ".jar") {
			continue
		}
		services, err := extensions.ReadServicesArchive(entry)
		if err != nil {
			fmt.Fprintf(out, "exception: %v\n", err)
			return toolchain.InternalError, nil
		}
		for _, s := range services {
			if s.Interface != ProcessorService {
				continue
			}
			ap, ok := k.Processors[s.Implementation]
			if !ok {
				fmt.Fprintf(out, "warning: annotation processor %s not found on the processor classpath\n", s.Implementation)
				continue
			}
			regs = append(regs, extensions.Register(extensions.Annotation(ap), ""))
		}
	}
	if len(regs) == 0 {
		return toolchain.OK, nil
	}

	scope := extensions.Install(extensions.NewSnapshot(regs))
	defer scope.Close()

	kaptOptions, err := opts.PluginOptions()
	if err != nil {
		return toolchain.InternalError, err
	}
	engineArgs := &toolchain.KotlinArgs{
		Destination:   args.Destination,
		Classpath:     args.Classpath,
		Verbose:       args.Verbose,
		PluginOptions: append([]string{toolchain.NewPluginOption(extensions.MainPluginID, extensions.ScopeOptionName, scope.Token())}, kaptOptions...),
		Sources:       args.Sources,
	}
	engine := processing.NewEngine(k.Logger)
	return engine.Exec(ctx, &toolchain.Invocation{Args: engineArgs.Args(), Dir: inv.Dir, Output: out})
}

// generatedClasses runs the main registrar when the command line addresses
// it and returns the classes component registrars asked for
func generatedClasses(args *toolchain.KotlinArgs) ([]string, error) {
	opts := args.PluginOptionsFor(extensions.MainPluginID)
	if len(opts) == 0 {
		return nil, nil
	}
	registrar, err := extensions.NewRegistrar(extensions.MainRegistrarName)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		if err := registrar.ProcessOption(o.Key, o.Value); err != nil {
			return nil, err
		}
	}
	project := extensions.NewProject()
	if err := registrar.RegisterComponents(project, extensions.NewConfiguration()); err != nil {
		return nil, err
	}

	var names []string
	for _, ext := range project.Extensions(GeneratedClassesExtension) {
		if name, ok := ext.(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func writeStubs(dir string, files []string) error {
	if dir == "" {
		return nil
	}
	for _, f := range files {
		if !sources.IsKotlinFile(f) {
			continue
		}
		idx, err := processing.ScanFile(f)
		if err != nil {
			return err
		}
		for _, d := range idx.Declarations {
			path := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(d.Package, ".", "/")), d.Name+".java")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			stub := fmt.Sprintf("public class %s {}\n", d.Name)
			if d.Package != "" {
				stub = fmt.Sprintf("package %s;\n\n%s", d.Package, stub)
			}
			if err := os.WriteFile(path, []byte(stub), 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func pluginsExist(out io.Writer, plugins []string) bool {
	for _, p := range plugins {
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(out, "error: plugin %s not found\n", p)
			return false
		}
	}
	return true
}

func containsKotlin(files []string) bool {
	for _, f := range files {
		if sources.IsKotlinFile(f) {
			return true
		}
	}
	return false
}

func destination(inv *toolchain.Invocation, dest string) string {
	if dest == "" {
		return inv.Dir
	}
	if !filepath.IsAbs(dest) && inv.Dir != "" {
		return filepath.Join(inv.Dir, dest)
	}
	return dest
}

func output(inv *toolchain.Invocation) io.Writer {
	if inv.Output == nil {
		return io.Discard
	}
	return inv.Output
}
