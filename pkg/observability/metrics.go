package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// Metrics holds the Prometheus collectors of compilation runs
type Metrics struct {
	CompilationsTotal   *prometheus.CounterVec
	CompilationDuration *prometheus.HistogramVec

	PassesTotal        *prometheus.CounterVec
	PassesSkippedTotal *prometheus.CounterVec
	PassDuration       *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	buckets := []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

	m := &Metrics{
		CompilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compiletest_compilations_total",
				Help: "Total number of compilations by target and exit code",
			},
			[]string{"target", "exit_code"},
		),
		CompilationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compiletest_compilation_duration_seconds",
				Help:    "Compilation duration in seconds",
				Buckets: buckets,
			},
			[]string{"target"},
		),
		PassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compiletest_passes_total",
				Help: "Total number of compiler passes run by target, pass and exit code",
			},
			[]string{"target", "pass", "exit_code"},
		),
		PassesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compiletest_passes_skipped_total",
				Help: "Total number of compiler passes skipped for lack of input",
			},
			[]string{"target", "pass"},
		),
		PassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compiletest_pass_duration_seconds",
				Help:    "Compiler pass duration in seconds",
				Buckets: buckets,
			},
			[]string{"target", "pass"},
		),
	}

	registry.MustRegister(
		m.CompilationsTotal,
		m.CompilationDuration,
		m.PassesTotal,
		m.PassesSkippedTotal,
		m.PassDuration,
	)
	return m
}

// ObservePass records one compiler pass. Skipped passes only count.
func (m *Metrics) ObservePass(target, pass string, code toolchain.ExitCode, duration time.Duration, skipped bool) {
	if skipped {
		m.PassesSkippedTotal.WithLabelValues(target, pass).Inc()
		return
	}
	m.PassesTotal.WithLabelValues(target, pass, code.String()).Inc()
	m.PassDuration.WithLabelValues(target, pass).Observe(duration.Seconds())
}

// ObserveCompilation records a finished compilation
func (m *Metrics) ObserveCompilation(target string, code toolchain.ExitCode, duration time.Duration) {
	m.CompilationsTotal.WithLabelValues(target, code.String()).Inc()
	m.CompilationDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RegisterMetricsEndpoint serves registry at /metrics
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// NewMetricsServer creates an HTTP server exposing registry on addr
func NewMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
