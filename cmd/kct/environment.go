package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/platinummonkey/compiletest/pkg/classpath"
	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

// environment holds the collaborators shared by every unit of a run
type environment struct {
	toolchain toolchain.Toolchain
	resolver  classpath.Resolver
	plugins   *extensions.Loader

	closers []io.Closer
}

func (a *app) newEnvironment(ctx context.Context) (*environment, error) {
	env := &environment{}

	tc, err := a.newToolchain(env)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.toolchain = tc

	if manifest := a.cfg.Toolchain.ClasspathManifest; manifest != "" {
		resolver, err := classpath.LoadManifest(manifest)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.resolver = resolver
	} else {
		env.resolver = classpath.NewEnvResolver(
			classpath.WithJavaHome(a.cfg.Toolchain.JDKHome),
			classpath.WithLogger(a.logger),
		)
	}

	dirs := a.cfg.Toolchain.PluginDirs
	if len(dirs) == 0 {
		dirs = extensions.DefaultPluginDirectories()
	}
	env.plugins = extensions.NewLoader(dirs, a.logger)
	if _, err := env.plugins.DiscoverPlugins(ctx); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to discover plugins: %w", err)
	}
	return env, nil
}

func (a *app) newToolchain(env *environment) (toolchain.Toolchain, error) {
	if a.toolchain != nil {
		return *a.toolchain, nil
	}

	cfg := a.cfg.Toolchain
	if cfg.DockerImage == "" {
		kotlin := toolchain.NewProcessCompiler(cfg.Kotlinc, toolchain.KotlinExitCode)
		js := toolchain.NewProcessCompiler(cfg.KotlincJS, toolchain.KotlinExitCode)
		java := toolchain.NewProcessCompiler(cfg.Javac, toolchain.JavacExitCode)
		runtime := toolchain.NewProcessCompiler(cfg.Java, toolchain.ScriptExitCode)
		for _, c := range []*toolchain.ProcessCompiler{kotlin, js, java, runtime} {
			c.Logger = a.logger
		}
		return toolchain.Toolchain{Kotlin: kotlin, KotlinJS: js, Java: java, Runtime: runtime}, nil
	}

	opts := []toolchain.DockerOption{
		toolchain.WithLogger(a.logger),
		toolchain.WithBinds(cfg.PluginDirs...),
	}
	if cfg.DockerMemory > 0 || cfg.DockerCPUs > 0 {
		memory, cpus := cfg.DockerMemory, cfg.DockerCPUs
		if memory == 0 {
			memory = toolchain.DefaultDockerMemoryLimit
		}
		if cpus == 0 {
			cpus = toolchain.DefaultDockerCPULimit
		}
		opts = append(opts, toolchain.WithResources(memory, cpus))
	}

	newCompiler := func(command string, extra ...toolchain.DockerOption) (*toolchain.DockerCompiler, error) {
		c, err := toolchain.NewDockerCompiler(cfg.DockerImage, []string{command}, append(opts, extra...)...)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, c)
		return c, nil
	}

	kotlin, err := newCompiler(cfg.Kotlinc)
	if err != nil {
		return toolchain.Toolchain{}, err
	}
	js, err := newCompiler(cfg.KotlincJS)
	if err != nil {
		return toolchain.Toolchain{}, err
	}
	java, err := newCompiler(cfg.Javac, toolchain.WithExitCodes(toolchain.JavacExitCode))
	if err != nil {
		return toolchain.Toolchain{}, err
	}
	runtime, err := newCompiler(cfg.Java, toolchain.WithExitCodes(toolchain.ScriptExitCode))
	if err != nil {
		return toolchain.Toolchain{}, err
	}

	a.logger.WithField("image", cfg.DockerImage).Info("Running compilers in Docker")
	return toolchain.Toolchain{Kotlin: kotlin, KotlinJS: js, Java: java, Runtime: runtime}, nil
}

// pluginArgs returns the jars and kotlinc -P arguments of the named plugins
func (env *environment) pluginArgs(ids []string) ([]string, []string, error) {
	var jars, args []string
	for _, id := range ids {
		manifest, ok := env.plugins.Get(id)
		if !ok {
			return nil, nil, fmt.Errorf("plugin %s not found in the plugin directories", id)
		}
		jars = append(jars, manifest.JarPath())
		for _, opt := range manifest.PluginOptions() {
			args = append(args, "-P", opt)
		}
	}
	return jars, args, nil
}

// Close releases the Docker clients
func (env *environment) Close() error {
	var errs []error
	for _, c := range env.closers {
		errs = append(errs, c.Close())
	}
	env.closers = nil
	return errors.Join(errs...)
}
