// Package compilertest provides in-process stand-ins for kotlinc, javac,
// kotlinc-js and the java launcher, for use in tests.
//
// # Overview
//
// The fakes accept the same command lines as the real compilers. They scan
// sources lexically, resolve capitalized type references against the
// sources, the classpath and a set of builtin names, and write one class
// file per top-level declaration. An unresolved reference is reported the
// way a compiler would and fails the invocation with a compilation error.
//
// Every invocation is recorded so tests can assert which compilers ran:
//
//	rec := &compilertest.Recorder{}
//	comp := compilation.NewJVMCompilation(t.TempDir())
//	comp.Toolchain = compilertest.Toolchain(rec)
//	result, err := comp.Compile(ctx)
//	assert.Empty(t, rec.Calls("javac"))
//
// The fake kotlinc also runs kapt: Go annotation processors registered in
// Processors under their implementation name are found through the
// services jar on the kapt processor classpath, as a JVM processor would be.
package compilertest
