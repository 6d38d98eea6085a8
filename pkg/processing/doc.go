// Package processing runs Go annotation processors and symbol processors.
//
// The Engine stands in for the processing support of the Kotlin compiler
// when the registered processors are Go values. It accepts the same command
// line kotlinc receives for a processing pass, including the kapt and KSP
// plugin options, so the orchestrator builds one argument set regardless of
// which implementation runs it.
//
// Declarations are found by a lexical scanner. Processors run in rounds:
// every round sees the declarations of the files generated by the previous
// one, until a round generates no sources.
package processing
