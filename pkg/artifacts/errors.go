package artifacts

import "errors"

var (
	// ErrClassNotFound is returned when no classpath root holds a class
	ErrClassNotFound = errors.New("class not found")

	// ErrInvalidClass is returned when a class file lacks the class file magic
	ErrInvalidClass = errors.New("invalid class file")

	// ErrArtifactNotFound is returned when a stored archive does not exist
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrUploadFailed is returned when an archive upload fails
	ErrUploadFailed = errors.New("upload failed")

	// ErrDownloadFailed is returned when an archive download fails
	ErrDownloadFailed = errors.New("download failed")

	// ErrChecksumMismatch is returned when a downloaded archive does not match its recorded hash
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrDecompressionFailed is returned when an archive cannot be unpacked
	ErrDecompressionFailed = errors.New("decompression failed")
)
