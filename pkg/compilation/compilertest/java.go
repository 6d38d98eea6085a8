package compilertest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// JavaName is the name of the fake javac
const JavaName = "javac"

// javac flags taking a separate value argument
var javacValueFlags = map[string]bool{
	"-d": true, "-cp": true, "-classpath": true, "--class-path": true, "--system": true,
	"-bootclasspath": true, "-source": true, "-target": true, "--release": true, "-encoding": true,
	"-sourcepath": true, "-processorpath": true, "-s": true, "-h": true,
}

// JavacArgs is the part of a javac command line the fake understands
type JavacArgs struct {
	Destination   string
	Classpath     []string
	System        string
	Bootclasspath *string
	Werror        bool
	Verbose       bool
	ProcNone      bool
	Lints         []string
	Sources       []string
}

// ParseJavacArgs reads a javac command line
func ParseJavacArgs(args []string) (*JavacArgs, error) {
	a := &JavacArgs{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if javacValueFlags[arg] {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: %s", toolchain.ErrMissingArgumentValue, arg)
			}
			i++
			value := args[i]
			switch arg {
			case "-d":
				a.Destination = value
			case "-cp", "-classpath", "--class-path":
				a.Classpath = append(a.Classpath, splitPathList(value)...)
			case "--system":
				a.System = value
			case "-bootclasspath":
				a.Bootclasspath = &value
			}
			continue
		}
		switch {
		case arg == "-Werror":
			a.Werror = true
		case arg == "-verbose":
			a.Verbose = true
		case arg == "-proc:none":
			a.ProcNone = true
		case strings.HasPrefix(arg, "-Xlint:"):
			a.Lints = append(a.Lints, strings.TrimPrefix(arg, "-Xlint:"))
		case !strings.HasPrefix(arg, "-"):
			a.Sources = append(a.Sources, arg)
		}
	}
	return a, nil
}

// Java is a fake javac
type Java struct {
	Recorder *Recorder
	Builtins []string
	Inject   Injector
}

// Name returns javac
func (j *Java) Name() string { return JavaName }

// Exec compiles Java sources against the classpath
func (j *Java) Exec(ctx context.Context, inv *toolchain.Invocation) (toolchain.ExitCode, error) {
	j.Recorder.record(JavaName, inv.Args, inv.Dir)
	out := output(inv)
	if j.Inject != nil {
		if code, ok := j.Inject(inv); ok {
			return code, nil
		}
	}

	args, err := ParseJavacArgs(inv.Args)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	if len(args.Sources) == 0 {
		fmt.Fprintln(out, "error: no source files")
		return toolchain.InternalError, nil
	}
	for _, s := range args.Sources {
		if !sources.IsJavaFile(s) {
			fmt.Fprintf(out, "error: invalid flag: %s\n", s)
			return toolchain.InternalError, nil
		}
		if _, err := os.Stat(s); err != nil {
			fmt.Fprintf(out, "error: file not found: %s\n", s)
			return toolchain.InternalError, nil
		}
	}

	a, err := analyze(args.Sources, args.Classpath, builtinSet(j.Builtins), out)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	if n := a.errorCount(); n > 0 {
		for _, f := range a.failedFiles() {
			for _, name := range a.errors[f] {
				fmt.Fprintf(out, "%s: error: cannot find symbol\n  symbol: class %s\n", f, name)
			}
		}
		if n == 1 {
			fmt.Fprintln(out, "1 error")
		} else {
			fmt.Fprintf(out, "%d errors\n", n)
		}
		return toolchain.CompilationError, nil
	}

	written, err := a.writeClasses(destination(inv, args.Destination), sources.KindJava)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	if args.Verbose {
		for _, w := range written {
			fmt.Fprintf(out, "[wrote %s]\n", w)
		}
	}
	return toolchain.OK, nil
}

func splitPathList(list string) []string {
	var out []string
	for _, p := range strings.Split(list, string(os.PathListSeparator)) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
