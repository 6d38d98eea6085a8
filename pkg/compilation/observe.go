package compilation

import (
	"time"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/platinummonkey/compiletest/pkg/compilation"

// MetricsRecorder receives the outcome of passes and compilations
type MetricsRecorder interface {
	ObservePass(target, pass string, code toolchain.ExitCode, duration time.Duration, skipped bool)
	ObserveCompilation(target string, code toolchain.ExitCode, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObservePass(string, string, toolchain.ExitCode, time.Duration, bool) {}
func (nopMetrics) ObserveCompilation(string, toolchain.ExitCode, time.Duration)        {}

// Compilation targets
const (
	TargetJVM = "jvm"
	TargetJS  = "js"
)

// Pass names
const (
	PassKapt       = "kapt"
	PassProcessing = "processing"
	PassKotlin     = "kotlin"
	PassJava       = "java"
	PassJS         = "js"
)

var tracer = otel.Tracer(tracerName)
