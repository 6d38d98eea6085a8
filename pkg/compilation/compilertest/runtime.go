package compilertest

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// RuntimeName is the name of the fake java launcher
const RuntimeName = "java"

// Runtime is a fake java launcher. It checks that the main class is on the
// classpath, prints the class name followed by the arguments, and exits with
// the status Exits holds for the class.
type Runtime struct {
	Recorder *Recorder
	Exits    map[string]int
	Inject   Injector
}

// Name returns java
func (r *Runtime) Name() string { return RuntimeName }

// Exec launches the main class of the invocation
func (r *Runtime) Exec(ctx context.Context, inv *toolchain.Invocation) (toolchain.ExitCode, error) {
	r.Recorder.record(RuntimeName, inv.Args, inv.Dir)
	out := output(inv)
	if r.Inject != nil {
		if code, ok := r.Inject(inv); ok {
			return code, nil
		}
	}

	var cp []string
	var main string
	var args []string
	for i := 0; i < len(inv.Args); i++ {
		switch a := inv.Args[i]; {
		case a == "-cp" || a == "-classpath":
			if i+1 >= len(inv.Args) {
				fmt.Fprintf(out, "Error: %s requires class path specification\n", a)
				return toolchain.ScriptExitCode(1), nil
			}
			i++
			cp = splitPathList(inv.Args[i])
		case strings.HasPrefix(a, "-"):
		default:
			main, args = a, inv.Args[i+1:]
			i = len(inv.Args)
		}
	}
	if main == "" {
		fmt.Fprintln(out, "Error: no main class given")
		return toolchain.ScriptExitCode(1), nil
	}

	loader, err := artifacts.NewClasspathLoader(cp, nil)
	if err != nil {
		return toolchain.InternalError, err
	}
	defer loader.Close()
	if _, err := loader.LoadClass(main); err != nil {
		fmt.Fprintf(out, "Error: Could not find or load main class %s\n", main)
		return toolchain.ScriptExitCode(1), nil
	}

	fmt.Fprintln(out, strings.TrimSpace(main+" "+strings.Join(args, " ")))
	return toolchain.ScriptExitCode(r.Exits[main]), nil
}
