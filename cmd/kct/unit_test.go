package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadUnitFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "Lib.kt"), "class Lib\n")
	path := writeFile(t, filepath.Join(dir, "lib.yaml"), `
sources:
  - path: src/Lib.kt
  - name: common/Shared.kt
    contents: "expect class Shared\n"
    common: true
classpath: [libs/a.jar, /opt/b.jar]
kaptArgs:
  dagger.fastInit: enabled
`)

	u, err := loadUnitFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lib", u.Name)
	assert.Equal(t, targetJVM, u.Target)
	assert.Nil(t, u.InheritClassPath)
	assert.Equal(t, map[string]string{"dagger.fastInit": "enabled"}, u.KaptArgs)
	assert.Equal(t, []string{filepath.Join(dir, "libs", "a.jar"), "/opt/b.jar"}, u.classpath())
	assert.Equal(t, []string{dir, filepath.Join(dir, "src")}, u.watchDirs())
	assert.True(t, u.watches(path))
	assert.True(t, u.watches(filepath.Join(dir, "src", "Lib.kt")))
	assert.False(t, u.watches(filepath.Join(dir, "src", "Other.kt")))

	files, err := u.files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].IsExisting())
	assert.Equal(t, sources.KindKotlin, files[0].Kind())
	assert.True(t, files[1].IsCommon())
	assert.Equal(t, "expect class Shared\n", files[1].Contents())
}

func TestLoadUnitFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown key", content: "sourcez: []\n", wantErr: "field sourcez not found"},
		{name: "unknown target", content: "target: native\n", wantErr: `unknown target "native"`},
		{name: "path and contents", content: "sources:\n  - path: A.kt\n    contents: x\n", wantErr: "path excludes name and contents"},
		{name: "empty source", content: "sources:\n  - common: true\n", wantErr: "path or name is required"},
		{name: "separator in name", content: "name: a/b\n", wantErr: "must not contain path separators"},
		{name: "javac args for js", content: "target: js\njavacArgs: [-Xlint]\n", wantErr: "javacArgs are not used"},
		{name: "script for js", content: "target: js\nscript:\n  file: a.kts\n", wantErr: "scripts only run for the jvm target"},
		{name: "script without file", content: "script:\n  args: [x]\n", wantErr: "script file is required"},
		{name: "malformed", content: "sources: {\n", wantErr: "invalid unit file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(t.TempDir(), "unit.yaml"), tt.content)
			_, err := loadUnitFile(path)
			require.ErrorIs(t, err, errInvalidUnit)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUnitFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "unit.yaml"), "sources:\n  - path: Gone.kt\n")

	u, err := loadUnitFile(path)
	require.NoError(t, err)
	_, err = u.files()
	assert.ErrorContains(t, err, "unit unit")
}

func TestEnvironment_PluginArgs(t *testing.T) {
	pluginDir := t.TempDir()
	writeFile(t, filepath.Join(pluginDir, "noarg", extensions.ManifestFile), `
id: org.jetbrains.kotlin.noarg
name: No-arg
version: 2.0.0
jar: noarg.jar
options:
  - name: annotation
    value: app.NoArg
  - name: invokeInitializers
    value: "true"
`)
	logger, _ := logtest.NewNullLogger()
	env := &environment{plugins: extensions.NewLoader([]string{pluginDir}, logger)}
	_, err := env.plugins.DiscoverPlugins(context.Background())
	require.NoError(t, err)

	jars, args, err := env.pluginArgs([]string{"org.jetbrains.kotlin.noarg"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(pluginDir, "noarg", "noarg.jar")}, jars)
	assert.Equal(t, []string{
		"-P", "plugin:org.jetbrains.kotlin.noarg:annotation=app.NoArg",
		"-P", "plugin:org.jetbrains.kotlin.noarg:invokeInitializers=true",
	}, args)

	_, _, err = env.pluginArgs([]string{"com.example.absent"})
	assert.ErrorContains(t, err, "plugin com.example.absent not found")
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "Main.kt"), "class Main\n")
	path := writeFile(t, filepath.Join(dir, "app.yaml"), "sources:\n  - path: Main.kt\n")
	u, err := loadUnitFile(path)
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	w := &watcher{
		app:     &app{logger: logger},
		delay:   20 * time.Millisecond,
		compile: make(chan string, 4),
		done:    make(chan struct{}),
		units:   map[string]*unitFile{u.path: u},
		timers:  make(map[string]*time.Timer),
	}

	w.handle(fsnotify.Event{Name: src, Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: src, Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "Other.kt"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: src, Op: fsnotify.Chmod})

	select {
	case got := <-w.compile:
		assert.Equal(t, u.path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("unit was not scheduled")
	}

	select {
	case got := <-w.compile:
		t.Fatalf("unit scheduled twice: %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}
