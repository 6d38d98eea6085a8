package toolchain

import (
	"context"
	"io"
)

// Compiler is a compiler entry point driven with a command line
type Compiler interface {
	// Name identifies the compiler in logs and metrics
	Name() string

	// Exec runs one blocking invocation. Expected failures are reported
	// through the ExitCode; a non-nil error is reserved for failures of the
	// harness itself, such as context cancellation.
	Exec(ctx context.Context, inv *Invocation) (ExitCode, error)
}

// Invocation is a single compiler run
type Invocation struct {
	Args   []string
	Dir    string
	Env    []string
	Output io.Writer // receives diagnostics; never nil when passed to Exec
}

// CompilerFunc adapts a function to the Compiler interface
type CompilerFunc struct {
	CompilerName string
	Func         func(ctx context.Context, inv *Invocation) (ExitCode, error)
}

// Name returns the compiler name
func (f CompilerFunc) Name() string { return f.CompilerName }

// Exec calls the wrapped function
func (f CompilerFunc) Exec(ctx context.Context, inv *Invocation) (ExitCode, error) {
	return f.Func(ctx, inv)
}

// Toolchain bundles the compilers used by a compilation, and the JVM
// launcher running compiled scripts
type Toolchain struct {
	Kotlin   Compiler
	KotlinJS Compiler
	Java     Compiler
	Runtime  Compiler
}

// DefaultToolchain runs kotlinc, kotlinc-js, javac and java from PATH
func DefaultToolchain() Toolchain {
	return Toolchain{
		Kotlin:   NewProcessCompiler("kotlinc", KotlinExitCode),
		KotlinJS: NewProcessCompiler("kotlinc-js", KotlinExitCode),
		Java:     NewProcessCompiler("javac", JavacExitCode),
		Runtime:  NewProcessCompiler("java", ScriptExitCode),
	}
}

// WithDefaults fills empty compilers from DefaultToolchain
func (t Toolchain) WithDefaults() Toolchain {
	def := DefaultToolchain()
	if t.Kotlin == nil {
		t.Kotlin = def.Kotlin
	}
	if t.KotlinJS == nil {
		t.KotlinJS = def.KotlinJS
	}
	if t.Java == nil {
		t.Java = def.Java
	}
	if t.Runtime == nil {
		t.Runtime = def.Runtime
	}
	return t
}
