package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
)

func (a *app) compileCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "compile UNIT_FILE...",
		Short: "Compile one or more units",
		Long: `Compile the units described by the given YAML files.

Units compile in parallel, at most COMPILETEST_MAX_WORKERS at a time, each in
its own working directory below the work root. The command fails when any unit
does not compile.`,
		Example: `  kct compile greeter.yaml
  kct compile --upload --work-dir /tmp/kct units/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units := make([]*unitFile, 0, len(args))
			for _, path := range args {
				u, err := loadUnitFile(path)
				if err != nil {
					return err
				}
				units = append(units, u)
			}
			return a.compile(cmd.Context(), opts, units)
		},
	}

	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "root of the unit working directories, overrides COMPILETEST_WORK_DIR")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "upload the outputs of compiled units to the configured S3 bucket")
	return cmd
}

func (a *app) compile(ctx context.Context, opts runOptions, units []*unitFile) error {
	if err := uniqueNames(units); err != nil {
		return err
	}

	env, err := a.newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	var store artifacts.Store
	if opts.upload {
		if store, err = a.newStore(ctx); err != nil {
			return err
		}
	}

	reports := make([]*unitReport, len(units))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.cfg.Compilation.MaxWorkers)
	for i, u := range units {
		eg.Go(func() error {
			reports[i] = a.compileUnit(egCtx, env, store, opts, u)
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, r := range reports {
		a.printReport(a.stdout, r)
		if !r.ok() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d units", errCompilationFailed, failed, len(units))
	}
	return nil
}

func (a *app) newStore(ctx context.Context) (artifacts.Store, error) {
	if a.cfg.Artifacts.Bucket == "" {
		return nil, fmt.Errorf("--upload requires COMPILETEST_S3_BUCKET")
	}
	return artifacts.NewS3Store(ctx, a.cfg.Artifacts)
}

func uniqueNames(units []*unitFile) error {
	seen := make(map[string]string, len(units))
	for _, u := range units {
		if other, ok := seen[u.Name]; ok {
			return fmt.Errorf("%w: units %s and %s are both named %q", errInvalidUnit, other, u.path, u.Name)
		}
		seen[u.Name] = u.path
	}
	return nil
}
