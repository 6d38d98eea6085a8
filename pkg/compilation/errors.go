package compilation

import "errors"

var (
	// ErrNoWorkingDir is returned when a compilation has no working directory
	ErrNoWorkingDir = errors.New("working directory is required")

	// ErrProcessingSupportMissing is returned when JVM annotation processors
	// are registered as services but the kapt artifact cannot be found
	ErrProcessingSupportMissing = errors.New("annotation processing support artifact not found")

	// ErrInvalidJDKHome is returned when the configured JDK has no bin directory
	ErrInvalidJDKHome = errors.New("invalid JDK home")

	// ErrInvalidRegistration is returned when an extension registration cannot be transported
	ErrInvalidRegistration = errors.New("invalid extension registration")

	// ErrInvalidScriptName is returned when no script class name can be
	// derived from a file name
	ErrInvalidScriptName = errors.New("invalid script file name")

	// ErrScriptNotFound is returned when the class of a script is not in the output directory
	ErrScriptNotFound = errors.New("script class not found")

	// ErrSourceInWorkingDir is returned when an existing source file lives in
	// a directory the compilation clears before it runs
	ErrSourceInWorkingDir = errors.New("source file is inside a directory managed by the compilation")

	// ErrNilUnit is returned by CompileAll for a nil compilation
	ErrNilUnit = errors.New("compilation unit is nil")
)
