package extensions

import "errors"

var (
	// ErrInvalidPluginID is returned when a plugin id is empty or contains the option separator
	ErrInvalidPluginID = errors.New("invalid plugin id")

	// ErrMalformedOptionName is returned when an encoded option name lacks its plugin id prefix
	ErrMalformedOptionName = errors.New("malformed encoded option name")

	// ErrUnknownOption is returned when an option is not declared by its plugin
	ErrUnknownOption = errors.New("unknown plugin option")

	// ErrRegistrarNotFound is returned when no registrar factory is registered under a name
	ErrRegistrarNotFound = errors.New("registrar not found")

	// ErrEmptyHandle is returned when a registration carries no extension
	ErrEmptyHandle = errors.New("registration has no extension")

	// ErrManifestInvalid is returned when a plugin manifest fails validation
	ErrManifestInvalid = errors.New("invalid plugin manifest")
)
