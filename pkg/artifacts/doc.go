// Package artifacts assembles the outputs of a compilation.
//
// # Overview
//
// After the last pass the output directory is listed recursively and a
// class loader is built over it. Loaders delegate to their parent first, so
// compiled test classes see the host classpath through the parent but
// nothing else. Every compilation result gets its own loader; nothing is
// cached across results.
//
// # Export
//
// Outputs can be archived as tar.gz with a sha256 checksum and kept in S3:
//
//	store, err := artifacts.NewS3Store(ctx, artifacts.StoreConfig{Bucket: "ci-outputs", Region: "us-east-1"})
//	files, err := artifacts.CollectFiles(nil, result.OutputDirectory)
//	res, err := store.Put(ctx, "build-42", files, map[string]string{"exit-code": "OK"})
package artifacts
