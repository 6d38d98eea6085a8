package main

import (
	"fmt"
	"regexp"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/compiletest/pkg/classpath"
)

// reportedArtifacts are the toolchain jars a compilation looks up on the host
var reportedArtifacts = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"kotlin-stdlib", classpath.StdLib},
	{"kotlin-stdlib-common", classpath.StdLibCommon},
	{"kotlin-stdlib-js", classpath.StdLibJs},
	{"kotlin-reflect", classpath.Reflect},
	{"kotlin-script-runtime", classpath.ScriptRuntime},
	{"kotlin-annotation-processing", classpath.Kapt3},
	{"tools.jar", classpath.ToolsJar},
}

func (a *app) classpathCommand() *cobra.Command {
	var entries bool

	cmd := &cobra.Command{
		Use:   "classpath",
		Short: "Show the host classpath and the toolchain artifacts found on it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, artifact := range reportedArtifacts {
				path, ok := env.resolver.FindArtifact(artifact.pattern)
				if !ok {
					path = "(not found)"
				}
				fmt.Fprintf(tw, "%s\t%s\n", artifact.name, path)
			}
			if a.cfg.Toolchain.JDKHome != "" {
				path, err := classpath.FindToolsJarFromJDK(a.cfg.Toolchain.JDKHome)
				if err != nil {
					path = "(" + err.Error() + ")"
				}
				fmt.Fprintf(tw, "tools.jar (JDK)\t%s\n", path)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if entries {
				fmt.Fprintln(a.stdout)
				for _, entry := range env.resolver.HostClasspath() {
					fmt.Fprintln(a.stdout, entry)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&entries, "entries", false, "also print every host classpath entry")
	return cmd
}
