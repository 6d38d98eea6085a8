// Package observability provides logging, Prometheus metrics and
// OpenTelemetry tracing for compilation runs.
//
// # Logging
//
//	logger := observability.NewLogger(logrus.InfoLevel, observability.FormatJSON, os.Stderr)
//	ctx = observability.WithLogger(ctx, logger)
//
// # Metrics
//
// Metrics implements compilation.MetricsRecorder:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	unit.Metrics = metrics
//	server := observability.NewMetricsServer(":9090", registry)
//
// Exposed series:
//
//	compiletest_compilations_total{target, exit_code}
//	compiletest_compilation_duration_seconds{target}
//	compiletest_passes_total{target, pass, exit_code}
//	compiletest_passes_skipped_total{target, pass}
//	compiletest_pass_duration_seconds{target, pass}
//
// # Tracing
//
// InitTracing installs a global tracer provider exporting over OTLP gRPC.
// Compilations open a "compilation.Compile" span with one child span per pass.
//
//	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
//	    Enabled:  true,
//	    Endpoint: "localhost:4317",
//	    Insecure: true,
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
package observability
