package toolchain

import "fmt"

// ExitCode is the closed classification of a compiler invocation outcome.
// Test assertions key off these four values regardless of how a concrete
// compiler reports its own exit status.
type ExitCode int

const (
	OK ExitCode = iota
	InternalError
	CompilationError
	ScriptExecutionError
)

func (c ExitCode) String() string {
	switch c {
	case OK:
		return "OK"
	case InternalError:
		return "INTERNAL_ERROR"
	case CompilationError:
		return "COMPILATION_ERROR"
	case ScriptExecutionError:
		return "SCRIPT_EXECUTION_ERROR"
	default:
		return fmt.Sprintf("ExitCode(%d)", int(c))
	}
}

// ExitCodeMapper translates a process exit status into an ExitCode
type ExitCodeMapper func(status int) ExitCode

// KotlinExitCode maps kotlinc process exit statuses
func KotlinExitCode(status int) ExitCode {
	switch status {
	case 0:
		return OK
	case 1:
		return CompilationError
	case 3:
		return ScriptExecutionError
	default:
		return InternalError
	}
}

// JavacExitCode maps javac process exit statuses. javac reports user errors
// with 1 and everything else (command line, system, abnormal) above that.
func JavacExitCode(status int) ExitCode {
	switch status {
	case 0:
		return OK
	case 1:
		return CompilationError
	default:
		return InternalError
	}
}

// ScriptExitCode maps the exit status of a JVM running a compiled script.
// Any failure of the script itself is a script execution error.
func ScriptExitCode(status int) ExitCode {
	if status == 0 {
		return OK
	}
	return ScriptExecutionError
}
