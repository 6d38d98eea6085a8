package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWaitDelay bounds how long output pipes are drained after the
// process exits or is killed
const DefaultWaitDelay = 10 * time.Second

// ProcessCompiler runs a compiler executable as a child process
type ProcessCompiler struct {
	Command   string
	BaseArgs  []string // prepended to every invocation
	ExitCodes ExitCodeMapper
	WaitDelay time.Duration
	Logger    logrus.FieldLogger
}

// NewProcessCompiler creates a compiler running command
func NewProcessCompiler(command string, exitCodes ExitCodeMapper) *ProcessCompiler {
	return &ProcessCompiler{
		Command:   command,
		ExitCodes: exitCodes,
		WaitDelay: DefaultWaitDelay,
		Logger:    logrus.StandardLogger(),
	}
}

// Name returns the executable
func (c *ProcessCompiler) Name() string { return c.Command }

// Exec runs the process to completion. stdout and stderr are copied into the
// invocation output while the process runs, and keep being drained after the
// output writer fails, so a full pipe can never block the child.
func (c *ProcessCompiler) Exec(ctx context.Context, inv *Invocation) (ExitCode, error) {
	args := append(append([]string{}, c.BaseArgs...), inv.Args...)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = c.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	if len(inv.Env) > 0 {
		cmd.Env = append(cmd.Environ(), inv.Env...)
	}

	out := inv.Output
	if out == nil {
		out = io.Discard
	}
	sink := NewTeeWriter(out)
	cmd.Stdout = sink
	cmd.Stderr = sink

	logger := c.logger().WithFields(logrus.Fields{
		"compiler": c.Command,
		"args":     len(args),
	})
	logger.Debug("Starting compiler process")

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return InternalError, ctx.Err()
		}
		// a missing executable is an environment problem, reported like any other internal failure
		fmt.Fprintf(sink, "error: failed to start %s: %v\n", c.Command, err)
		logger.WithError(err).Warn("Compiler process failed to start")
		return InternalError, nil
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return InternalError, ctx.Err()
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// the compiler exited cleanly but a child kept its output open
		logger.WithField("wait_delay", cmd.WaitDelay).Warn("Compiler output was still open after exit")
		waitErr = nil
	}
	if err := sink.Err(); err != nil {
		logger.WithError(err).Warn("Compiler output writer failed, output was discarded")
	}

	status := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			fmt.Fprintf(sink, "error: %s terminated abnormally: %v\n", c.Command, waitErr)
			return InternalError, nil
		}
		status = exitErr.ExitCode()
	}

	code := c.mapExitCode(status)
	logger.WithFields(logrus.Fields{"status": status, "exit_code": code}).Debug("Compiler process finished")
	return code, nil
}

func (c *ProcessCompiler) mapExitCode(status int) ExitCode {
	if c.ExitCodes == nil {
		return KotlinExitCode(status)
	}
	return c.ExitCodes(status)
}

func (c *ProcessCompiler) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
