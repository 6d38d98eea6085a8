package diagnostics

import "regexp"

// ToolsJarSentinel appears when a JDK 8 tools.jar is combined with a JDK 9+ compiler
const ToolsJarSentinel = "No enum constant com.sun.tools.javac.main.Option.BOOT_CLASS_PATH"

const (
	SignatureToolsJar        = "tools-jar-on-modern-jdk"
	SignatureMetadataVersion = "incompatible-metadata-version"
	SignatureOutOfMemory     = "compiler-out-of-memory"
)

// DefaultSignatures returns the signatures every classifier starts with
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Name:    SignatureToolsJar,
			Pattern: regexp.MustCompile(regexp.QuoteMeta(ToolsJarSentinel)),
			Advice: func(ctx Context) string {
				msg := "the compilation failed with an error that may be caused by including a tools.jar file together with a JDK of version 9 or later."
				if ctx.InheritClassPath {
					msg += " Make sure that no tools.jar (or unwanted JDK) is in the inherited classpath."
				}
				return msg
			},
		},
		{
			Name:    SignatureMetadataVersion,
			Pattern: regexp.MustCompile(`(?i)incompatible version of kotlin\.|binary version of its metadata is [\d.]+, expected version is [\d.]+`),
			Advice: func(ctx Context) string {
				msg := "a library on the classpath was compiled by a newer Kotlin compiler than the one running this compilation."
				if ctx.InheritClassPath {
					msg += " The inherited host classpath may contain a mismatched Kotlin stdlib."
				}
				return msg
			},
		},
		{
			Name:    SignatureOutOfMemory,
			Pattern: regexp.MustCompile(`java\.lang\.OutOfMemoryError(?:: [\w ]+)?`),
			Advice: func(Context) string {
				return "the compiler ran out of memory. Raise the heap of the compiler process or the memory limit of its container."
			},
		},
	}
}
