package compilation

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/classpath"
	"github.com/platinummonkey/compiletest/pkg/compilation/compilertest"
	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	rec    *compilertest.Recorder
	out    *bytes.Buffer
	logger *logrus.Logger
	hook   *logtest.Hook
}

func newFixture() *fixture {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &fixture{rec: &compilertest.Recorder{}, out: &bytes.Buffer{}, logger: logger, hook: hook}
}

func (f *fixture) unit(t *testing.T, files ...sources.File) *JVMCompilation {
	t.Helper()
	return &JVMCompilation{
		WorkingDir: t.TempDir(),
		Sources:    files,
		Toolchain:  compilertest.Toolchain(f.rec),
		Resolver:   classpath.NewStaticResolver(),
		Output:     f.out,
		Logger:     f.logger,
	}
}

func kotlinFile(t *testing.T, name, content string) sources.File {
	t.Helper()
	f, err := sources.Kotlin(name, content)
	require.NoError(t, err)
	return f
}

func javaFile(t *testing.T, name, content string) sources.File {
	t.Helper()
	f, err := sources.Java(name, content)
	require.NoError(t, err)
	return f
}

func relativeNames(t *testing.T, root string, paths []string) []string {
	t.Helper()
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	sort.Strings(names)
	return names
}

func loader(t *testing.T, res *Result) *artifacts.DirLoader {
	t.Helper()
	l, err := res.ClassLoader()
	require.NoError(t, err)
	return l
}

func requireLoadable(t *testing.T, res *Result, names ...string) {
	t.Helper()
	l := loader(t, res)
	for _, name := range names {
		class, err := l.LoadClass(name)
		require.NoError(t, err, name)
		assert.Equal(t, compilertest.ClassFile(name), class.Bytes, name)
	}
}

const markerSources = `
package com.example

annotation class Marker

@Marker
class Foo
`

// companionProcessor generates a Kotlin companion for every @Marker type
type companionProcessor struct {
	env *extensions.ProcessingEnvironment
}

func (p *companionProcessor) SupportedAnnotationTypes() []string {
	return []string{"com.example.Marker"}
}

func (p *companionProcessor) Init(env *extensions.ProcessingEnvironment) { p.env = env }

func (p *companionProcessor) Process(round extensions.RoundEnvironment) error {
	for _, d := range round.ElementsAnnotatedWith("com.example.Marker") {
		w, err := p.env.Filer.CreateSourceFile(d.QualifiedName()+"Companion", sources.KindKotlin)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "package %s\n\nclass %sCompanion(val owner: %s)\n", d.Package, d.Name, d.Name)
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// failingProcessor reports an error for every @Marker type
type failingProcessor struct {
	env *extensions.ProcessingEnvironment
}

func (p *failingProcessor) SupportedAnnotationTypes() []string { return []string{"*"} }

func (p *failingProcessor) Init(env *extensions.ProcessingEnvironment) { p.env = env }

func (p *failingProcessor) Process(round extensions.RoundEnvironment) error {
	for _, d := range round.ElementsAnnotatedWith("Marker") {
		p.env.Messager.Error("marker types are not allowed", &d)
	}
	return nil
}

// builderProcessor is a symbol processor generating a Java builder per @Marker type
type builderProcessor struct {
	env *extensions.SymbolProcessorEnvironment
}

func (p *builderProcessor) Process(resolver extensions.SymbolResolver) ([]extensions.Declaration, error) {
	for _, d := range resolver.SymbolsWithAnnotation("Marker") {
		w, err := p.env.CodeGenerator.CreateNewFile(d.Package, d.Name+"Builder", "java")
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "package %s;\n\npublic class %sBuilder {\n    public %s build() { return null; }\n}\n", d.Package, d.Name, d.Name)
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (p *builderProcessor) Finish() {}

func builderProvider() extensions.SymbolProcessorProvider {
	return extensions.SymbolProcessorProviderFunc(func(env *extensions.SymbolProcessorEnvironment) extensions.SymbolProcessor {
		return &builderProcessor{env: env}
	})
}

// extraClassRegistrar asks the Kotlin compiler for an additional class
type extraClassRegistrar struct{ class string }

func (r extraClassRegistrar) RegisterComponents(project *extensions.Project, cfg *extensions.Configuration) error {
	project.RegisterExtension(compilertest.GeneratedClassesExtension, r.class)
	return nil
}

// optionProcessor records the options it receives
type optionProcessor struct {
	mu     sync.Mutex
	values map[string][]string
}

func (p *optionProcessor) PluginID() string { return "com.example.options" }

func (p *optionProcessor) Options() []extensions.CliOption {
	return []extensions.CliOption{{Name: "mode"}, {Name: "target.package"}}
}

func (p *optionProcessor) ProcessOption(option extensions.CliOption, value string, cfg *extensions.Configuration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	p.values[option.Name] = append(p.values[option.Name], value)
	cfg.Put(option.Name, value)
	return nil
}

type observedPass struct {
	target, pass string
	code         toolchain.ExitCode
	skipped      bool
}

// metricsSpy records what a compilation reports
type metricsSpy struct {
	mu           sync.Mutex
	passes       []observedPass
	compilations []toolchain.ExitCode
}

func (m *metricsSpy) ObservePass(target, pass string, code toolchain.ExitCode, d time.Duration, skipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes = append(m.passes, observedPass{target: target, pass: pass, code: code, skipped: skipped})
}

func (m *metricsSpy) ObserveCompilation(target string, code toolchain.ExitCode, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compilations = append(m.compilations, code)
}
