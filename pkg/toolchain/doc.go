// Package toolchain drives the Kotlin and Java compilers.
//
// Compilers are black boxes with an argument contract and an exit-status
// contract. A Compiler may be an executable on the host (ProcessCompiler),
// an executable inside a container (DockerCompiler) or a Go function
// (CompilerFunc). Whatever the implementation, the outcome is mapped onto the
// four-value ExitCode taxonomy and diagnostics are written to the invocation
// output.
//
// The package also carries the small encodings the compilers expect: the
// kotlinc argument model, -P plugin options and kapt's serialized apoptions.
package toolchain
