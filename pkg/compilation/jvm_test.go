package compilation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/classpath"
	"github.com/platinummonkey/compiletest/pkg/compilation/compilertest"
	"github.com/platinummonkey/compiletest/pkg/diagnostics"
	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/processing"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_EmptyUnit(t *testing.T) {
	f := newFixture()
	unit := f.unit(t)

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, toolchain.OK, res.ExitCode)
	assert.Equal(t, filepath.Join(unit.WorkingDir, "classes"), res.OutputDirectory)
	files, err := res.GeneratedFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, f.rec.All())
}

func TestCompile_SingleType(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "Greeter.kt", `
package com.example

class Greeter {
    fun greet(name: String): String = "Hello, " + name
}
`))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "com.example.Greeter")

	_, err = loader(t, res).LoadClass("com.example.Missing")
	assert.ErrorIs(t, err, artifacts.ErrClassNotFound)

	files, err := res.GeneratedFiles()
	require.NoError(t, err)
	assert.Contains(t, relativeNames(t, res.OutputDirectory, files), "com/example/Greeter.class")
	assert.FileExists(t, filepath.Join(unit.WorkingDir, "sources", "Greeter.kt"))
}

func TestCompile_UnresolvedReference(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "Broken.kt", "class Broken(val dep: DoesNotExist)\n"))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, toolchain.CompilationError, res.ExitCode)
	assert.Contains(t, res.Messages, "unresolved reference: DoesNotExist")
	assert.Contains(t, f.out.String(), "unresolved reference: DoesNotExist")

	pass, ok := res.Pass(PassKotlin)
	require.True(t, ok)
	assert.Equal(t, toolchain.CompilationError, pass.ExitCode)
	_, ok = res.Pass(PassJava)
	assert.False(t, ok, "java pass must not run after a failure")
}

func TestCompile_Idempotent(t *testing.T) {
	newUnit := func() *JVMCompilation {
		f := newFixture()
		return f.unit(t,
			kotlinFile(t, "a/Model.kt", "package a\n\ndata class Model(val name: String)\n"),
			javaFile(t, "b/Service.java", "package b;\n\nimport a.Model;\n\npublic class Service {\n    Model model;\n}\n"),
		)
	}
	first, second := newUnit(), newUnit()

	results, err := CompileAll(context.Background(), []Unit{first, second}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var listings [][]string
	for _, res := range results {
		require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
		files, err := res.GeneratedFiles()
		require.NoError(t, err)
		listings = append(listings, relativeNames(t, res.OutputDirectory, files))
	}
	assert.NotEqual(t, results[0].OutputDirectory, results[1].OutputDirectory)
	assert.Equal(t, listings[0], listings[1])
	assert.Contains(t, listings[0], "b/Service.class")
}

func TestCompile_RecompileIsCleanRebuild(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "First.kt", "class First\n"))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	require.Equal(t, toolchain.OK, res.ExitCode)

	stale := filepath.Join(unit.WorkingDir, "classes", "Stale.class")
	_, err = compilertest.WriteClass(filepath.Join(unit.WorkingDir, "classes"), "Stale")
	require.NoError(t, err)
	keep := filepath.Join(unit.WorkingDir, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("mine"), 0644))

	unit.Sources = []sources.File{kotlinFile(t, "Second.kt", "class Second\n")}
	res, err = unit.Compile(context.Background())
	require.NoError(t, err)
	require.Equal(t, toolchain.OK, res.ExitCode)

	files, err := res.GeneratedFiles()
	require.NoError(t, err)
	names := relativeNames(t, res.OutputDirectory, files)
	assert.Contains(t, names, "Second.class")
	assert.NotContains(t, names, "First.class")
	assert.NoFileExists(t, stale)
	assert.NoFileExists(t, filepath.Join(unit.WorkingDir, "sources", "First.kt"))
	assert.FileExists(t, keep)
}

func TestCompile_AnnotationProcessorCompanion(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "com/example/Foo.kt", markerSources))
	unit.Extensions = []extensions.Registration{
		extensions.Register(extensions.Annotation(&companionProcessor{}), ""),
	}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "com.example.Foo", "com.example.FooCompanion")
	assert.FileExists(t, filepath.Join(unit.Layout().KaptKotlinGenerated(), "com", "example", "FooCompanion.kt"))

	var names []string
	for _, p := range res.Passes {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{PassProcessing, PassKotlin, PassJava}, names)
	assert.Equal(t, 0, extensions.Installed(), "scopes must be released after compilation")
}

func TestCompile_KaptServices(t *testing.T) {
	f := newFixture()
	toolDir := t.TempDir()
	kapt3 := filepath.Join(toolDir, "kotlin-annotation-processing-embeddable-1.9.22.jar")
	require.NoError(t, os.WriteFile(kapt3, nil, 0644))

	unit := f.unit(t, kotlinFile(t, "com/example/Foo.kt", markerSources))
	unit.Resolver = classpath.NewStaticResolver(kapt3)
	unit.Toolchain.Kotlin = &compilertest.Kotlin{
		Recorder:   f.rec,
		Processors: map[string]extensions.AnnotationProcessor{"com.example.CompanionProcessor": &companionProcessor{}},
	}
	unit.Services = []extensions.Service{
		{Interface: compilertest.ProcessorService, Implementation: "com.example.CompanionProcessor"},
	}
	unit.KaptArgs = map[string]string{"companion.suffix": "Companion"}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "com.example.FooCompanion")
	assert.FileExists(t, unit.Layout().ServicesJar())
	assert.FileExists(t, filepath.Join(unit.Layout().KaptStubs(), "com", "example", "Foo.java"))

	calls := f.rec.Calls(compilertest.KotlinName)
	require.Len(t, calls, 2)
	kaptArgs, err := toolchain.ParseKotlinArgs(calls[0].Args)
	require.NoError(t, err)
	assert.Equal(t, kapt3, kaptArgs.PluginClasspaths[0])
	assert.Contains(t, kaptArgs.PluginOptions, toolchain.NewPluginOption(processing.KaptPluginID, "aptMode", "stubsAndApt"))
	assert.Contains(t, kaptArgs.PluginOptions, toolchain.NewPluginOption(processing.KaptPluginID, "apclasspath", unit.Layout().ServicesJar()))
}

func TestCompile_ProcessingSupportMissing(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "Foo.kt", "class Foo\n"))
	unit.Services = []extensions.Service{
		{Interface: compilertest.ProcessorService, Implementation: "com.example.Processor"},
	}

	_, err := unit.Compile(context.Background())
	assert.ErrorIs(t, err, ErrProcessingSupportMissing)
	assert.Empty(t, f.rec.All())
}

func TestCompile_SymbolProcessor(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "com/example/Foo.kt", markerSources))
	unit.Extensions = []extensions.Registration{extensions.Register(extensions.Symbol(builderProvider()), "")}
	unit.KSPArgs = map[string]string{"builder.enabled": "true"}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	assert.FileExists(t, filepath.Join(unit.KSPSourcesDir(), "java", "com", "example", "FooBuilder.java"))
	requireLoadable(t, res, "com.example.Foo", "com.example.FooBuilder")
	require.Len(t, f.rec.Calls(compilertest.JavaName), 1)
}

func TestCompile_ProcessorErrorStopsPipeline(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "com/example/Foo.kt", markerSources))
	unit.Extensions = []extensions.Registration{
		extensions.Register(extensions.Annotation(&failingProcessor{}), ""),
	}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, toolchain.CompilationError, res.ExitCode)
	assert.Contains(t, res.Messages, "marker types are not allowed")
	assert.Empty(t, f.rec.All(), "no compiler may run after a failed processing pass")
	require.Len(t, res.Passes, 1)
	assert.Equal(t, PassProcessing, res.Passes[0].Name)
}

func TestCompile_ComponentRegistrarsAndOptions(t *testing.T) {
	f := newFixture()
	opts := &optionProcessor{}
	unit := f.unit(t, kotlinFile(t, "App.kt", "class App\n"))
	unit.Extensions = []extensions.Registration{
		extensions.Register(extensions.Legacy(extraClassRegistrar{class: "gen.Extra"}), ""),
		extensions.Register(extensions.Options(opts), "",
			extensions.Opt("mode", "strict"),
			extensions.Opt("target.package", "com.example:gen"),
		),
		extensions.Register(extensions.Legacy(extraClassRegistrar{class: "gen.Ignored"}), "com.example.unknown", extensions.Opt("x", "y")),
	}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "App", "gen.Extra", "gen.Ignored")
	assert.Equal(t, []string{"strict"}, opts.values["mode"])
	assert.Equal(t, []string{"com.example:gen"}, opts.values["target.package"])
	assert.Equal(t, 0, extensions.Installed())
}

func TestCompile_InvalidRegistration(t *testing.T) {
	f := newFixture()
	unit := f.unit(t)
	unit.Extensions = []extensions.Registration{{}}

	_, err := unit.Compile(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestCompile_ClasspathIsolation(t *testing.T) {
	hostDir := t.TempDir()
	_, err := compilertest.WriteClass(hostDir, "org.host.HostOnly")
	require.NoError(t, err)

	tests := []struct {
		name    string
		inherit bool
		want    toolchain.ExitCode
	}{
		{name: "isolated", inherit: false, want: toolchain.CompilationError},
		{name: "inherited", inherit: true, want: toolchain.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			unit := f.unit(t, kotlinFile(t, "User.kt", "import org.host.HostOnly\n\nclass User(val host: HostOnly)\n"))
			unit.Resolver = classpath.NewStaticResolver(hostDir)
			unit.InheritClassPath = tt.inherit

			res, err := unit.Compile(context.Background())
			require.NoError(t, err)
			defer res.Close()

			assert.Equal(t, tt.want, res.ExitCode, res.Messages)
			if tt.inherit {
				assert.Contains(t, res.Classpath, hostDir)
			} else {
				assert.NotContains(t, res.Classpath, hostDir)
				assert.Contains(t, res.Messages, "org.host.HostOnly")
			}
		})
	}
}

func TestCompile_ExplicitClasspath(t *testing.T) {
	f := newFixture()
	lib := t.TempDir()
	_, err := compilertest.WriteClass(lib, "org.lib.Helper")
	require.NoError(t, err)

	unit := f.unit(t, kotlinFile(t, "User.kt", "import org.lib.Helper\n\nclass User(val helper: Helper)\n"))
	unit.Classpaths = []string{lib, lib}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	assert.Equal(t, []string{lib}, res.Classpath)
}

func TestCompile_KotlinRuntimeDiscovery(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	stdlib := filepath.Join(dir, "kotlin-stdlib-1.9.22.jar")
	reflect := filepath.Join(dir, "kotlin-reflect-1.9.22.jar")
	explicit := filepath.Join(dir, "kotlin-script-runtime-2.0.0.jar")

	unit := f.unit(t)
	unit.Resolver = classpath.NewStaticResolver(stdlib, reflect)
	unit.ScriptRuntimeJar = explicit

	assert.Equal(t, []string{stdlib, reflect, explicit}, unit.classpath())
}

func TestCompile_JavaPassSkipped(t *testing.T) {
	f := newFixture()
	metrics := &metricsSpy{}
	unit := f.unit(t, kotlinFile(t, "OnlyKotlin.kt", "class OnlyKotlin\n"))
	unit.Metrics = metrics

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, toolchain.OK, res.ExitCode)
	assert.Empty(t, f.rec.Calls(compilertest.JavaName))

	java, ok := res.Pass(PassJava)
	require.True(t, ok)
	assert.True(t, java.Skipped)
	assert.Equal(t, toolchain.OK, java.ExitCode)

	assert.Equal(t, []observedPass{
		{target: TargetJVM, pass: PassKotlin, code: toolchain.OK},
		{target: TargetJVM, pass: PassJava, code: toolchain.OK, skipped: true},
	}, metrics.passes)
	assert.Equal(t, []toolchain.ExitCode{toolchain.OK}, metrics.compilations)
}

func TestCompile_JavaOnly(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, javaFile(t, "com/example/Plain.java", "package com.example;\n\npublic class Plain {}\n"))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	kotlin, ok := res.Pass(PassKotlin)
	require.True(t, ok)
	assert.True(t, kotlin.Skipped)
	assert.Empty(t, f.rec.Calls(compilertest.KotlinName))
	requireLoadable(t, res, "com.example.Plain")
}

func TestCompile_MixedSources(t *testing.T) {
	f := newFixture()
	unit := f.unit(t,
		kotlinFile(t, "com/example/Model.kt", "package com.example\n\nclass Model(val id: Int)\n"),
		javaFile(t, "com/example/Repository.java", `
package com.example;

public class Repository {
    public Model find(int id) { return new Model(id); }
}
`),
	)
	unit.AllWarningsAsErrors = true
	unit.JavacArgs = []string{"-parameters"}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "com.example.Model", "com.example.Repository")

	calls := f.rec.Calls(compilertest.JavaName)
	require.Len(t, calls, 1)
	args := calls[0].Args
	assert.Contains(t, args, "-proc:none")
	assert.Contains(t, args, "-Werror")
	assert.Contains(t, args, "-parameters")
	assert.Contains(t, strings.Join(args, " "), "--system none")

	javac, err := compilertest.ParseJavacArgs(args)
	require.NoError(t, err)
	assert.Equal(t, unit.Layout().Classes(), javac.Destination)
	assert.Contains(t, javac.Classpath, unit.Layout().Classes())

	kotlinArgs, err := toolchain.ParseKotlinArgs(f.rec.Calls(compilertest.KotlinName)[0].Args)
	require.NoError(t, err)
	assert.True(t, kotlinArgs.NoJDK)
	assert.True(t, kotlinArgs.AllWarningsAsErrors)
	assert.Len(t, kotlinArgs.Sources, 2, "kotlinc sees the Java sources too")
}

func TestCompile_JavaError(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, javaFile(t, "Bad.java", "public class Bad {\n    Unknown field;\n}\n"))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, toolchain.CompilationError, res.ExitCode)
	assert.Contains(t, res.Messages, "cannot find symbol")
}

func TestCompile_FilenameCollisions(t *testing.T) {
	f := newFixture()
	elsewhere1, elsewhere2 := t.TempDir(), t.TempDir()
	existing := func(dir, pkg string) sources.File {
		path := filepath.Join(dir, "Util.kt")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("package %s\n\nclass Util\n", pkg)), 0644))
		file, err := sources.FromPath(path)
		require.NoError(t, err)
		return file
	}

	unit := f.unit(t,
		kotlinFile(t, "first/Helper.kt", "package first\n\nclass Helper\n"),
		kotlinFile(t, "second/Helper.kt", "package second\n\nclass Helper\n"),
		existing(elsewhere1, "third"),
		existing(elsewhere2, "fourth"),
	)

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	assert.FileExists(t, filepath.Join(unit.WorkingDir, "sources", "first", "Helper.kt"))
	assert.FileExists(t, filepath.Join(unit.WorkingDir, "sources", "second", "Helper.kt"))
	assert.NoFileExists(t, filepath.Join(unit.WorkingDir, "sources", "Util.kt"))
	requireLoadable(t, res, "first.Helper", "second.Helper", "third.Util", "fourth.Util")
}

func TestCompile_ToolsJarAdvisory(t *testing.T) {
	tests := []struct {
		name    string
		inherit bool
		extra   bool
	}{
		{name: "isolated", inherit: false, extra: false},
		{name: "inherited", inherit: true, extra: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			unit := f.unit(t, kotlinFile(t, "A.kt", "class A\n"))
			unit.InheritClassPath = tt.inherit
			unit.Toolchain.Kotlin = &compilertest.Kotlin{
				Recorder: f.rec,
				Inject: func(inv *toolchain.Invocation) (toolchain.ExitCode, bool) {
					fmt.Fprintf(inv.Output, "exception: java.lang.IllegalArgumentException: %s\n", diagnostics.ToolsJarSentinel)
					return toolchain.InternalError, true
				},
			}

			res, err := unit.Compile(context.Background())
			require.NoError(t, err)

			assert.Equal(t, toolchain.InternalError, res.ExitCode)
			require.Len(t, res.Advisories, 1)
			assert.Equal(t, diagnostics.SignatureToolsJar, res.Advisories[0].Signature.Name)
			assert.NotContains(t, res.Messages, "warning:")

			out := f.out.String()
			assert.Contains(t, out, diagnostics.ToolsJarSentinel)
			assert.Contains(t, out, "warning: the compilation failed with an error that may be caused by including a tools.jar")
			assert.Equal(t, tt.extra, strings.Contains(out, "inherited classpath"))
		})
	}
}

func TestCompile_NoAdvisoryOnSuccess(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "// mentions "+diagnostics.ToolsJarSentinel+"\nclass A\n"))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, toolchain.OK, res.ExitCode)
	assert.Empty(t, res.Advisories)
}

func TestCompile_MissingPlugin(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "class A\n"))
	missing := filepath.Join(t.TempDir(), "absent-plugin.jar")
	unit.PluginClasspaths = []string{missing}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, toolchain.InternalError, res.ExitCode)
	assert.Contains(t, res.Messages, "plugin "+missing+" not found")
	assert.Contains(t, f.out.String(), "not found")
	assert.Empty(t, f.rec.All())
}

func TestCompile_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, c *JVMCompilation)
		want   error
	}{
		{
			name:   "no working dir",
			modify: func(t *testing.T, c *JVMCompilation) { c.WorkingDir = "" },
			want:   ErrNoWorkingDir,
		},
		{
			name:   "jdk without bin",
			modify: func(t *testing.T, c *JVMCompilation) { c.JDKHome = t.TempDir() },
			want:   ErrInvalidJDKHome,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			unit := f.unit(t)
			tt.modify(t, unit)

			_, err := unit.Compile(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_Verbose(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "class A\n"))
	unit.Verbose = true

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	require.Equal(t, toolchain.OK, res.ExitCode)

	out := f.out.String()
	assert.Contains(t, out, "logging: No services were given. Not running kapt steps.")
	assert.Contains(t, out, "logging: Using option -no-jdk. Kotlinc won't look for a JDK.")
	assert.Contains(t, out, "logging: No Java sources were given.")

	var passLogs int
	for _, e := range f.hook.AllEntries() {
		if e.Message == "Compiler pass finished" {
			passLogs++
			assert.Equal(t, PassKotlin, e.Data["pass"])
		}
	}
	assert.Equal(t, 1, passLogs)
}

func TestCompile_Multiplatform(t *testing.T) {
	f := newFixture()
	common, err := sources.Kotlin("common/Shared.kt", "expect class Shared\n", sources.Common())
	require.NoError(t, err)
	unit := f.unit(t, common, kotlinFile(t, "jvm/Shared.kt", "actual class Shared\n"))

	_, err = unit.Compile(context.Background())
	require.NoError(t, err)

	args, err := toolchain.ParseKotlinArgs(f.rec.Calls(compilertest.KotlinName)[0].Args)
	require.NoError(t, err)
	assert.True(t, args.MultiPlatform)
	assert.Equal(t, []string{filepath.Join(unit.WorkingDir, "sources", "common", "Shared.kt")}, args.CommonSources)
}

func TestCompile_ContextCancelled(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "class A\n"))
	unit.Toolchain.Kotlin = toolchain.CompilerFunc{
		CompilerName: "blocking",
		Func: func(ctx context.Context, inv *toolchain.Invocation) (toolchain.ExitCode, error) {
			<-ctx.Done()
			return toolchain.InternalError, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := unit.Compile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileAll_NilUnit(t *testing.T) {
	_, err := CompileAll(context.Background(), []Unit{nil}, 1)
	assert.ErrorIs(t, err, ErrNilUnit)
}

func TestCompile_RelativeWorkingDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	t.Chdir(t.TempDir())

	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "class A\n"))
	unit.WorkingDir = filepath.Join("rel", "work")
	kotlinc := toolchain.NewProcessCompiler("sh", toolchain.KotlinExitCode)
	kotlinc.BaseArgs = []string{"-c", `for a in "$@"; do
  case "$a" in
    *.kt) test -f "$a" || { echo "error: source file not found: $a"; exit 1; } ;;
  esac
done`, "kotlinc"}
	unit.Toolchain.Kotlin = kotlinc

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	assert.True(t, filepath.IsAbs(res.OutputDirectory))
	assert.DirExists(t, res.OutputDirectory)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestCompile_FailingOutputKeepsMessages(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, kotlinFile(t, "A.kt", "class A(val b: Missing)\n"))
	unit.Output = brokenWriter{}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, toolchain.CompilationError, res.ExitCode)
	assert.Contains(t, res.Messages, "unresolved reference: Missing")
}

func TestCompile_JavacNotRunnable(t *testing.T) {
	f := newFixture()
	unit := f.unit(t, javaFile(t, "Plain.java", "public class Plain {}\n"))
	unit.JDKHome = t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(unit.JDKHome, "bin"), 0755))

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, toolchain.InternalError, res.ExitCode)
	assert.Contains(t, res.Messages, "error: failed to determine javac version")
	assert.Contains(t, f.out.String(), "error: failed to determine javac version")
	java, ok := res.Pass(PassJava)
	require.True(t, ok)
	assert.Equal(t, toolchain.InternalError, java.ExitCode)
	assert.Empty(t, f.rec.Calls(compilertest.JavaName))
	var logged bool
	for _, e := range f.hook.AllEntries() {
		logged = logged || (e.Level == logrus.ErrorLevel && e.Data["pass"] == PassJava)
	}
	assert.True(t, logged, "javac failure is logged")
}

func TestCompile_ExistingSourceInManagedDir(t *testing.T) {
	f := newFixture()
	unit := f.unit(t)
	dir := filepath.Join(unit.WorkingDir, "sources")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "A.kt")
	require.NoError(t, os.WriteFile(path, []byte("class A\n"), 0644))
	src, err := sources.FromPath(path)
	require.NoError(t, err)
	unit.Sources = []sources.File{src}

	_, err = unit.Compile(context.Background())
	assert.ErrorIs(t, err, ErrSourceInWorkingDir)
	assert.FileExists(t, path)
	assert.Empty(t, f.rec.All())
}

func TestCompile_ExistingSourceBesideManagedDirs(t *testing.T) {
	f := newFixture()
	unit := f.unit(t)
	path := filepath.Join(unit.WorkingDir, "src", "A.kt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("class A\n"), 0644))
	src, err := sources.FromPath(path)
	require.NoError(t, err)
	unit.Sources = []sources.File{src}

	res, err := unit.Compile(context.Background())
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, toolchain.OK, res.ExitCode, res.Messages)
	requireLoadable(t, res, "A")
}

func TestResult_CloseConcurrentWithClassLoader(t *testing.T) {
	f := newFixture()
	res, err := f.unit(t).Compile(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = res.ClassLoader()
		}()
		go func() {
			defer wg.Done()
			_ = res.Close()
		}()
	}
	wg.Wait()
	assert.NoError(t, res.Close())
}
