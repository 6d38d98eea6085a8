package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/compiletest/pkg/config"
	"github.com/platinummonkey/compiletest/pkg/observability"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// app is the state shared by the subcommands
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFiles []string
	logLevel string
	verbose  bool

	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	tracer   *sdktrace.TracerProvider

	// toolchain replaces the configured compilers when set
	toolchain *toolchain.Toolchain
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	return newApp(stdout, stderr).rootCommand()
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kct",
		Short: "Compile Kotlin and Java test units",
		Long: `kct drives kotlinc and javac over units described in YAML files,
running annotation processing, symbol processing, Kotlin and Java passes in order.

Configuration is read from COMPILETEST_* environment variables and a .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "env files to load instead of ./.env")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides COMPILETEST_LOG_LEVEL")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "pass verbose flags to the compilers")

	cmd.AddCommand(
		a.compileCommand(),
		a.watchCommand(),
		a.classpathCommand(),
		a.pluginsCommand(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if len(a.envFiles) > 0 {
		a.cfg, err = config.LoadConfigFrom(a.envFiles...)
	} else {
		a.cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	level := a.cfg.Observability.LogLevel
	if a.logLevel != "" {
		if level, err = logrus.ParseLevel(a.logLevel); err != nil {
			return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
		}
	}
	a.logger = observability.NewLogger(level, a.cfg.Observability.LogFormat, a.stderr)

	if a.verbose {
		a.cfg.Compilation.Verbose = true
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = observability.NewMetrics(a.registry)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.tracer, err = observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        a.cfg.Observability.OTelEnabled,
		Endpoint:       a.cfg.Observability.OTelEndpoint,
		ServiceName:    a.cfg.Observability.OTelServiceName,
		ServiceVersion: a.cfg.Observability.OTelServiceVersion,
		Insecure:       a.cfg.Observability.OTelInsecure,
	}, a.logger)
	return err
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return observability.ShutdownTracing(ctx, a.tracer, a.logger)
}
