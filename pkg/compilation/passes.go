package compilation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PassResult is the outcome of one compiler invocation
type PassResult struct {
	Name     string
	Compiler string
	ExitCode toolchain.ExitCode
	Messages string
	Duration time.Duration
	Skipped  bool
}

// runner executes the passes of one compilation in order, capturing the
// diagnostics of each pass while fanning them out to the user output
type runner struct {
	target  string
	dir     string
	output  io.Writer
	verbose bool
	logger  logrus.FieldLogger
	metrics MetricsRecorder
	passes  []PassResult
}

func (r *runner) exec(ctx context.Context, name string, compiler toolchain.Compiler, args []string) (PassResult, error) {
	ctx, span := tracer.Start(ctx, "compilation.pass", trace.WithAttributes(
		attribute.String("compilation.target", r.target),
		attribute.String("compilation.pass", name),
		attribute.String("compilation.compiler", compiler.Name()),
	))
	defer span.End()

	log := r.logger.WithFields(logrus.Fields{
		"pass":     name,
		"compiler": compiler.Name(),
	})
	log.WithField("args", len(args)).Debug("Starting compiler pass")

	var captured bytes.Buffer
	out := toolchain.NewTeeWriter(&captured, r.output)

	start := time.Now()
	code, err := compiler.Exec(ctx, &toolchain.Invocation{Args: args, Dir: r.dir, Output: out})
	res := PassResult{
		Name:     name,
		Compiler: compiler.Name(),
		ExitCode: code,
		Messages: captured.String(),
		Duration: time.Since(start),
	}
	r.passes = append(r.passes, res)
	r.metrics.ObservePass(r.target, name, code, res.Duration, false)

	span.SetAttributes(attribute.String("compilation.exit_code", code.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Compiler pass failed")
		return res, fmt.Errorf("%s pass: %w", name, err)
	}
	if code != toolchain.OK {
		span.SetStatus(codes.Error, code.String())
	}

	log.WithFields(logrus.Fields{
		"exit_code":   code.String(),
		"duration_ms": res.Duration.Milliseconds(),
	}).Debug("Compiler pass finished")
	return res, nil
}

// skip records a pass that had nothing to do
func (r *runner) skip(name, reason string) {
	r.logf("%s", reason)
	r.passes = append(r.passes, PassResult{Name: name, ExitCode: toolchain.OK, Skipped: true})
	r.metrics.ObservePass(r.target, name, toolchain.OK, 0, true)
}

// fail records a pass whose compiler could not be run, reporting msg as its
// diagnostics the way a compiler would
func (r *runner) fail(name, compiler string, code toolchain.ExitCode, msg string) PassResult {
	line := "error: " + msg + "\n"
	if r.output != nil {
		io.WriteString(r.output, line)
	}
	res := PassResult{Name: name, Compiler: compiler, ExitCode: code, Messages: line}
	r.passes = append(r.passes, res)
	r.metrics.ObservePass(r.target, name, code, 0, false)
	r.logger.WithField("pass", name).Error(msg)
	return res
}

// logf writes a verbose message to the user output
func (r *runner) logf(format string, args ...any) {
	if r.verbose && r.output != nil {
		fmt.Fprintf(r.output, "logging: "+format+"\n", args...)
	}
}

// summary returns the final exit code and the messages of the first failing
// pass, or of the last pass that ran
func summary(passes []PassResult) (toolchain.ExitCode, string) {
	var last *PassResult
	for i := range passes {
		p := &passes[i]
		if p.Skipped {
			continue
		}
		if p.ExitCode != toolchain.OK {
			return p.ExitCode, p.Messages
		}
		last = p
	}
	if last == nil {
		return toolchain.OK, ""
	}
	return toolchain.OK, last.Messages
}
