package processing

import "errors"

var (
	// ErrInvalidOption is returned when a kapt or KSP plugin option has an unusable value
	ErrInvalidOption = errors.New("invalid processing option")

	// ErrNoOutputDir is returned when a generated file has no configured output directory
	ErrNoOutputDir = errors.New("no output directory configured")

	// ErrInvalidGeneratedName is returned when a generated file name escapes its output directory
	ErrInvalidGeneratedName = errors.New("invalid generated file name")

	// ErrTooManyRounds is returned when processors keep generating files
	ErrTooManyRounds = errors.New("processing did not converge")
)
