// Package diagnostics recognizes known environment failures in compiler output.
//
// # Overview
//
// Some toolchain misconfigurations surface as internal compiler errors that
// say nothing about their cause. The classifier scans the captured text of a
// failing pass for known signatures and writes an actionable warning to the
// side channel. It never changes the exit code of the pass.
//
// # Usage Example
//
//	classifier := diagnostics.NewClassifier()
//	matches := classifier.Advise(os.Stderr, output, diagnostics.Context{InheritClassPath: true})
//	for _, m := range matches {
//		log.Printf("matched %s", m.Signature.Name)
//	}
//
// Additional signatures can be registered per classifier:
//
//	classifier.Register(diagnostics.Signature{
//		Name:    "missing-license",
//		Pattern: regexp.MustCompile(`license check failed`),
//		Advice:  func(diagnostics.Context) string { return "run the license tool first" },
//	})
package diagnostics
