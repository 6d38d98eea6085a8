// Package extensions coordinates compiler plugins and processors with the
// compiler invocations that run them.
//
// # Overview
//
// A compiler discovers its extensions by name and constructs them itself, so
// there is no way to hand it already-configured Go values. The package
// bridges that gap with a registry keyed by scope tokens:
//
//	scope := extensions.Install(extensions.NewSnapshot(regs))
//	defer scope.Close()
//	args = append(args, "-P", toolchain.NewPluginOption(extensions.MainPluginID, extensions.ScopeOptionName, scope.Token()))
//
// The compiler instantiates the MainRegistrar through the service locator
// (NewRegistrar), feeds it its -P options and calls RegisterComponents, which
// looks the snapshot up by token. A registrar activated without a token gets
// an empty snapshot and logs a warning.
//
// # Handles
//
// Extensions of both interface generations travel in one tagged union:
//
//   - Legacy: a ComponentRegistrar configuring the whole project
//   - Options: a CommandLineProcessor receiving its plugin's options
//   - Annotation: an AnnotationProcessor
//   - Symbol: a SymbolProcessorProvider
//
// Options of different plugins are encoded as "<plugin id>:<option>" so that
// colliding names survive the trip through the compiler's option parser.
//
// # External plugins
//
// Compiler plugin jars are described by plugin.yaml manifests and discovered
// with a Loader. JVM service implementations are exposed to the compiler
// through a generated services archive (WriteServicesArchive).
package extensions
