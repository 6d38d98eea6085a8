// Package compilation drives Kotlin and Java compilers over a unit of test
// sources.
//
// A JVMCompilation stages its sources into a working directory and runs up
// to four passes: kapt stub generation with service-registered annotation
// processors, the processing engine for processor extensions, the Kotlin
// compile over staged and generated sources, and the Java compile against
// the Kotlin output. The first failing pass ends the compilation; its exit
// code and diagnostics become the result. Known failure signatures add
// advice to the output without changing the exit code.
//
// Working directory layout:
//
//	sources/                     staged in-memory sources
//	classes/                     final output, root of Result.ClassLoader
//	kapt/sources                 Java generated by annotation processors
//	kapt/kotlinGenerated         Kotlin generated by annotation processors
//	kapt/stubs                   Java stubs of the Kotlin sources
//	kapt/incrementalData
//	ksp/sources/{kotlin,java,resource}
//	ksp/classes ksp/caches
//	services.jar                 META-INF/services for kapt processors
//
// Compilers are toolchain.Compiler values; package compilertest provides
// in-process fakes for tests.
package compilation
