package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) pluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the compiler plugins found in the plugin directories",
		Long: `List the compiler plugins found in COMPILETEST_PLUGIN_DIRS. Units enable
a plugin by listing its id under "plugins".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			loaded := env.plugins.Loaded()
			if len(loaded) == 0 {
				fmt.Fprintln(a.stdout, "no plugins found")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVERSION\tJAR")
			for _, m := range loaded {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Version, m.JarPath())
			}
			return tw.Flush()
		},
	}
}
