package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellCompiler(t *testing.T, mapper ExitCodeMapper) *ProcessCompiler {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	c := NewProcessCompiler("sh", mapper)
	c.BaseArgs = []string{"-c"}
	return c
}

func TestProcessCompiler_CapturesBothStreams(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	var out bytes.Buffer

	code, err := c.Exec(context.Background(), &Invocation{
		Args:   []string{"echo out; echo err 1>&2"},
		Output: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, OK, code)
	assert.Contains(t, out.String(), "out\n")
	assert.Contains(t, out.String(), "err\n")
}

func TestProcessCompiler_MapsExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		mapper   ExitCodeMapper
		expected ExitCode
	}{
		{name: "kotlin compilation error", script: "exit 1", mapper: KotlinExitCode, expected: CompilationError},
		{name: "kotlin internal error", script: "exit 2", mapper: KotlinExitCode, expected: InternalError},
		{name: "kotlin script error", script: "exit 3", mapper: KotlinExitCode, expected: ScriptExecutionError},
		{name: "javac system error", script: "exit 3", mapper: JavacExitCode, expected: InternalError},
		{name: "default mapper", script: "exit 1", mapper: nil, expected: CompilationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := shellCompiler(t, tt.mapper)
			code, err := c.Exec(context.Background(), &Invocation{Args: []string{tt.script}})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestProcessCompiler_LargeOutputDoesNotDeadlock(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	var out bytes.Buffer

	// well above a pipe buffer on both streams
	script := "i=0; while [ $i -lt 5000 ]; do echo stdout-line-$i; echo stderr-line-$i 1>&2; i=$((i+1)); done"
	code, err := c.Exec(context.Background(), &Invocation{Args: []string{script}, Output: &out})
	require.NoError(t, err)
	assert.Equal(t, OK, code)
	assert.Equal(t, 10000, strings.Count(out.String(), "\n"))
}

func TestProcessCompiler_MissingExecutable(t *testing.T) {
	c := NewProcessCompiler("definitely-not-a-compiler-binary", KotlinExitCode)
	var out bytes.Buffer

	code, err := c.Exec(context.Background(), &Invocation{Output: &out})
	require.NoError(t, err)
	assert.Equal(t, InternalError, code)
	assert.Contains(t, out.String(), "error: failed to start definitely-not-a-compiler-binary")
}

func TestProcessCompiler_ContextCancelled(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := c.Exec(ctx, &Invocation{Args: []string{"sleep 5"}})
	assert.Error(t, err)
	assert.Equal(t, InternalError, code)
}

func TestProcessCompiler_WorkingDirAndEnv(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	dir := t.TempDir()
	var out bytes.Buffer

	code, err := c.Exec(context.Background(), &Invocation{
		Args:   []string{"pwd; echo $COMPILETEST_MARKER"},
		Dir:    dir,
		Env:    []string{"COMPILETEST_MARKER=marker-value"},
		Output: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, OK, code)
	assert.Contains(t, out.String(), "marker-value")
}

func TestProcessCompiler_FailingOutputKeepsDraining(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// far more than a pipe buffer, written after the output already failed
	code, err := c.Exec(ctx, &Invocation{
		Args:   []string{"head -c 1000000 /dev/zero; head -c 1000000 /dev/zero 1>&2"},
		Output: failingWriter{},
	})
	require.NoError(t, err)
	assert.Equal(t, OK, code)
}

func TestProcessCompiler_ChildHoldingOutputOpen(t *testing.T) {
	c := shellCompiler(t, KotlinExitCode)
	c.WaitDelay = 200 * time.Millisecond
	var out bytes.Buffer

	start := time.Now()
	code, err := c.Exec(context.Background(), &Invocation{
		Args:   []string{"sleep 5 & echo done"},
		Output: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, OK, code)
	assert.Contains(t, out.String(), "done")
	assert.Less(t, time.Since(start), 4*time.Second)
}
