package sources

import "errors"

var (
	// ErrNotRegularFile is returned when an existing-file source does not point to a regular file
	ErrNotRegularFile = errors.New("source is not a regular file")

	// ErrExtensionMismatch is returned when a file name does not carry an extension of its kind
	ErrExtensionMismatch = errors.New("file extension does not match source kind")

	// ErrInvalidPath is returned when a relative source path is empty, absolute or escapes the sources dir
	ErrInvalidPath = errors.New("invalid source path")
)
