package classpath

import "errors"

var (
	// ErrManifestInvalid is returned when a classpath manifest cannot be parsed
	ErrManifestInvalid = errors.New("invalid classpath manifest")

	// ErrToolsJarNotFound is returned when no tools.jar exists below a JDK home
	ErrToolsJarNotFound = errors.New("tools.jar not found in JDK home")
)
