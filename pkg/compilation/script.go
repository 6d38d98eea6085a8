package compilation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// ScriptClassName returns the class kotlinc compiles the script fileName
// into: the base name without its Kotlin suffix and extension, with
// characters other than letters and digits replaced by underscores and the
// first letter upper-cased. "build-logic.main.kts" becomes "Build_logic".
func ScriptClassName(fileName string) (string, error) {
	name := path.Base(filepath.ToSlash(fileName))
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".kt"), ".kts")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name = b.String()
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidScriptName, fileName)
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:], nil
}

// RunScript runs the script compiled from fileName with args on the toolchain
// runtime, with the output directory and the compilation classpath as its
// classpath. The script's output goes to output. A script that fails reports
// ScriptExecutionError; an error means it could not be started.
func (r *Result) RunScript(ctx context.Context, fileName string, args []string, output io.Writer) (toolchain.ExitCode, error) {
	class, err := ScriptClassName(fileName)
	if err != nil {
		return toolchain.InternalError, err
	}
	if _, err := r.filesystem().Stat(filepath.Join(r.OutputDirectory, filepath.FromSlash(artifacts.ClassFileName(class)))); err != nil {
		return toolchain.InternalError, fmt.Errorf("%w: %s compiled from %s", ErrScriptNotFound, class, fileName)
	}

	runtime := r.runtime
	if runtime == nil {
		runtime = toolchain.DefaultToolchain().Runtime
	}
	if output == nil {
		output = io.Discard
	}

	cp := append([]string{r.OutputDirectory}, r.Classpath...)
	inv := &toolchain.Invocation{
		Args:   append([]string{"-cp", strings.Join(cp, string(os.PathListSeparator)), class}, args...),
		Dir:    filepath.Dir(r.OutputDirectory),
		Output: output,
	}
	code, err := runtime.Exec(ctx, inv)
	if err != nil {
		return toolchain.InternalError, fmt.Errorf("script %s: %w", class, err)
	}
	return code, nil
}
