package compilertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// JSName is the name of the fake kotlinc-js
const JSName = "kotlinc-js"

// JS is a fake kotlinc-js. It emits one JavaScript file naming every
// compiled declaration.
type JS struct {
	Recorder *Recorder
	Builtins []string
	Inject   Injector
}

// Name returns kotlinc-js
func (j *JS) Name() string { return JSName }

// Exec compiles Kotlin sources to JavaScript
func (j *JS) Exec(ctx context.Context, inv *toolchain.Invocation) (toolchain.ExitCode, error) {
	j.Recorder.record(JSName, inv.Args, inv.Dir)
	out := output(inv)
	if j.Inject != nil {
		if code, ok := j.Inject(inv); ok {
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
	files, err := expandSources(args.Sources)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.CompilationError, nil
	}
	if !containsKotlin(files) {
		fmt.Fprintln(out, "error: no source files")
		return toolchain.CompilationError, nil
	}

	a, err := analyze(files, args.Libraries, builtinSet(j.Builtins), out)
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

	dir := destination(inv, args.IROutputDir)
	name := args.IROutputName
	if name == "" {
		name = "main"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "// module %s, %s\n", name, args.ModuleKind)
	for _, idx := range a.indexes {
		for _, d := range idx.Declarations {
			fmt.Fprintf(&b, "function %s() {}\n", strings.ReplaceAll(d.QualifiedName(), ".", "_"))
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return toolchain.InternalError, err
	}
	if err := os.WriteFile(filepath.Join(dir, name+".js"), []byte(b.String()), 0644); err != nil {
		return toolchain.InternalError, err
	}
	return toolchain.OK, nil
}

// Toolchain returns fakes for the three compilers and the java launcher,
// sharing one recorder
func Toolchain(rec *Recorder) toolchain.Toolchain {
	return toolchain.Toolchain{
		Kotlin:   &Kotlin{Recorder: rec},
		KotlinJS: &JS{Recorder: rec},
		Java:     &Java{Recorder: rec},
		Runtime:  &Runtime{Recorder: rec},
	}
}
