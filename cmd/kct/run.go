package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/compilation"
	"github.com/platinummonkey/compiletest/pkg/diagnostics"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

var errCompilationFailed = errors.New("compilation failed")

// unitReport is what a run learned about one unit
type unitReport struct {
	Name            string
	Target          string
	ExitCode        toolchain.ExitCode
	Messages        string
	Passes          []compilation.PassResult
	OutputDirectory string
	Files           []string // relative to OutputDirectory
	Advisories      []diagnostics.Match
	Duration        time.Duration
	Script          *scriptReport
	Upload          *artifacts.StoreResult
	Err             error
}

// scriptReport is the outcome of running the unit script
type scriptReport struct {
	ExitCode toolchain.ExitCode
	Output   string
}

// ok reports whether the unit compiled and its script, if any, succeeded
func (r *unitReport) ok() bool {
	return r.Err == nil && r.ExitCode == toolchain.OK && (r.Script == nil || r.Script.ExitCode == toolchain.OK)
}

// runOptions are the per-run settings of compile and watch
type runOptions struct {
	workDir string // overrides the configured work root
	upload  bool
}

func (a *app) workDir(opts runOptions, u *unitFile) string {
	root := opts.workDir
	if root == "" {
		root = a.cfg.Compilation.WorkRoot
	}
	return filepath.Join(root, u.Name)
}

// compileUnit compiles one unit into its working directory
func (a *app) compileUnit(ctx context.Context, env *environment, store artifacts.Store, opts runOptions, u *unitFile) *unitReport {
	report := &unitReport{Name: u.Name, Target: u.Target}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	files, err := u.files()
	if err != nil {
		report.Err = err
		return report
	}
	jars, pluginArgs, err := env.pluginArgs(u.Plugins)
	if err != nil {
		report.Err = err
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Compilation.Timeout)
	defer cancel()

	dir := a.workDir(opts, u)
	logger := a.logger.WithField("unit", u.Name)
	inherit := a.cfg.Compilation.InheritClassPath
	if u.InheritClassPath != nil {
		inherit = *u.InheritClassPath
	}

	switch u.Target {
	case targetJS:
		c := compilation.NewJSCompilation(dir)
		c.Sources = files
		c.Classpaths = u.classpath()
		c.ModuleName = u.ModuleName
		c.Verbose = a.cfg.Compilation.Verbose
		c.AllWarningsAsErrors = u.AllWarningsAsErrors
		c.SuppressWarnings = u.SuppressWarnings
		c.InheritClassPath = inherit
		c.KotlincArgs = append(pluginArgs, u.KotlincArgs...)
		c.PluginClasspaths = jars
		c.Toolchain = env.toolchain
		c.Resolver = env.resolver
		c.Output = io.Discard
		c.Logger = logger
		c.Metrics = a.metrics
		if u.OutputFileName != "" {
			c.OutputFileName = u.OutputFileName
		}

		res, err := c.Compile(ctx)
		if err != nil {
			report.Err = err
			return report
		}
		report.ExitCode = res.ExitCode
		report.Messages = res.Messages
		report.Passes = []compilation.PassResult{res.Pass}
		report.OutputDirectory = res.OutputDirectory
		report.Advisories = res.Advisories
		if report.Files, err = relativeFiles(res.OutputDirectory, res.CompiledFiles); err != nil {
			report.Err = err
			return report
		}

	default:
		c := compilation.NewJVMCompilation(dir)
		c.Sources = files
		c.Classpaths = u.classpath()
		c.JDKHome = a.cfg.Toolchain.JDKHome
		c.Verbose = a.cfg.Compilation.Verbose
		c.AllWarningsAsErrors = u.AllWarningsAsErrors
		c.SuppressWarnings = u.SuppressWarnings
		c.InheritClassPath = inherit
		c.JVMTarget = u.JVMTarget
		if c.JVMTarget == "" {
			c.JVMTarget = a.cfg.Compilation.JVMTarget
		}
		c.ModuleName = u.ModuleName
		c.KotlincArgs = append(pluginArgs, u.KotlincArgs...)
		c.JavacArgs = u.JavacArgs
		c.PluginClasspaths = jars
		c.KaptArgs = u.KaptArgs
		c.KSPArgs = u.KSPArgs
		c.Toolchain = env.toolchain
		c.Resolver = env.resolver
		c.Output = io.Discard
		c.Logger = logger
		c.Metrics = a.metrics

		res, err := c.Compile(ctx)
		if err != nil {
			report.Err = err
			return report
		}
		defer res.Close()
		report.ExitCode = res.ExitCode
		report.Messages = res.Messages
		report.Passes = res.Passes
		report.OutputDirectory = res.OutputDirectory
		report.Advisories = res.Advisories
		if report.Files, err = relativeFiles(res.OutputDirectory, res.GeneratedFiles); err != nil {
			report.Err = err
			return report
		}
		if u.Script != nil && report.ExitCode == toolchain.OK {
			var out bytes.Buffer
			code, err := res.RunScript(ctx, u.Script.File, u.Script.Args, &out)
			report.Script = &scriptReport{ExitCode: code, Output: out.String()}
			if err != nil {
				report.Err = err
				return report
			}
		}
	}

	if opts.upload && report.ok() {
		report.Upload, report.Err = a.upload(ctx, store, report)
	}
	if !a.cfg.Compilation.KeepWorkDirs && report.Err == nil {
		if err := os.RemoveAll(dir); err != nil {
			logger.WithError(err).Warn("Failed to remove working directory")
		}
	}
	return report
}

// upload stores the unit output under <name>/<run id>
func (a *app) upload(ctx context.Context, store artifacts.Store, report *unitReport) (*artifacts.StoreResult, error) {
	files, err := artifacts.CollectFiles(afero.NewOsFs(), report.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to collect outputs of %s: %w", report.Name, err)
	}

	key := report.Name + "/" + uuid.NewString()
	result, err := store.Put(ctx, key, files, map[string]string{
		"unit":      report.Name,
		"target":    report.Target,
		"exit-code": report.ExitCode.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload outputs of %s: %w", report.Name, err)
	}
	a.logger.WithFields(logrus.Fields{
		"unit":   report.Name,
		"bucket": result.Bucket,
		"key":    result.Key,
	}).Info("Uploaded compilation outputs")
	return result, nil
}

func relativeFiles(root string, list func() ([]string, error)) ([]string, error) {
	paths, err := list()
	if err != nil {
		return nil, err
	}
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel, nil
}

// printReport writes a unit summary. Compiler messages are included for
// failures and in verbose mode.
func (a *app) printReport(w io.Writer, r *unitReport) {
	status := r.ExitCode.String()
	if r.Err != nil {
		status = "ERROR"
	}

	passes := make([]string, 0, len(r.Passes))
	for _, p := range r.Passes {
		state := p.ExitCode.String()
		if p.Skipped {
			state = "skipped"
		}
		passes = append(passes, p.Name+"="+state)
	}

	fmt.Fprintf(w, "%s\t%s\t%s\t%d files\t%s", r.Name, r.Target, status, len(r.Files), r.Duration.Round(time.Millisecond))
	if len(passes) > 0 {
		fmt.Fprintf(w, "\t%s", strings.Join(passes, " "))
	}
	fmt.Fprintln(w)

	if r.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", r.Err)
	}
	if (!r.ok() || a.cfg.Compilation.Verbose) && r.Messages != "" {
		for _, line := range strings.Split(strings.TrimRight(r.Messages, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	for _, m := range r.Advisories {
		fmt.Fprintf(w, "  warning: %s\n", m.Advice)
	}
	if r.Script != nil {
		fmt.Fprintf(w, "  script: %s\n", r.Script.ExitCode)
		if out := strings.TrimRight(r.Script.Output, "\n"); out != "" {
			for _, line := range strings.Split(out, "\n") {
				fmt.Fprintf(w, "  | %s\n", line)
			}
		}
	}
	if a.cfg.Compilation.Verbose {
		for _, f := range r.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	if r.Upload != nil {
		fmt.Fprintf(w, "  uploaded s3://%s/%s (%d bytes, sha256 %s)\n", r.Upload.Bucket, r.Upload.Key, r.Upload.CompressedSize, r.Upload.Hash)
	}
}
