package classpath

import (
	"fmt"
	"regexp"
)

// kotlinArtifact matches "<prefix>-<version>[-classifier].jar|.klib"
func kotlinArtifact(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s(-[0-9]+\.[0-9]+(\.[0-9]+)?)([-0-9a-zA-Z]+)?(\.jar|\.klib)$`, prefix))
}

// Toolchain artifacts located by file name on the classpath
var (
	StdLib        = kotlinArtifact(`(kotlin-stdlib|kotlin-runtime)`)
	StdLibCommon  = kotlinArtifact(`kotlin-stdlib-common`)
	StdLibJdk     = kotlinArtifact(`kotlin-stdlib-jdk[0-9]+`)
	StdLibJs      = kotlinArtifact(`kotlin-stdlib-js`)
	DomAPICompat  = kotlinArtifact(`kotlin-dom-api-compat`)
	Reflect       = kotlinArtifact(`kotlin-reflect`)
	ScriptRuntime = kotlinArtifact(`kotlin-script-runtime`)
	ToolsJar      = regexp.MustCompile(`^tools\.jar$`)
	Kapt3         = regexp.MustCompile(`^kotlin-annotation-processing(-(embeddable|gradle|maven))?(-[0-9]+\.[0-9]+\.[0-9]+)?\.jar$`)
)
