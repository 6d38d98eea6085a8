package toolchain

import "errors"

var (
	// ErrDockerNotAvailable is returned when the Docker daemon cannot be reached
	ErrDockerNotAvailable = errors.New("docker not available")

	// ErrImagePullFailed is returned when the compiler image cannot be pulled
	ErrImagePullFailed = errors.New("failed to pull compiler image")

	// ErrContainerFailed is returned when the compiler container cannot be created or awaited
	ErrContainerFailed = errors.New("compiler container failed")

	// ErrInvalidAPOptions is returned when encoded processor options cannot be decoded
	ErrInvalidAPOptions = errors.New("invalid encoded processor options")

	// ErrOptionTooLong is returned when a processor option exceeds the encodable length
	ErrOptionTooLong = errors.New("processor option too long to encode")

	// ErrMissingArgumentValue is returned when a compiler flag expecting a value is last on the command line
	ErrMissingArgumentValue = errors.New("missing value for compiler argument")

	// ErrUnknownJavacVersion is returned when the output of javac -version cannot be parsed
	ErrUnknownJavacVersion = errors.New("unable to determine javac version")
)
