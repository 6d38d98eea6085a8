package compilation

import (
	"testing"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/stretchr/testify/assert"
)

func TestSummary(t *testing.T) {
	tests := []struct {
		name     string
		passes   []PassResult
		wantCode toolchain.ExitCode
		wantMsg  string
	}{
		{name: "no passes", wantCode: toolchain.OK},
		{
			name:     "only skipped",
			passes:   []PassResult{{Name: PassKotlin, Skipped: true}},
			wantCode: toolchain.OK,
		},
		{
			name: "last pass that ran",
			passes: []PassResult{
				{Name: PassKotlin, Messages: "kotlin"},
				{Name: PassJava, Messages: "java"},
			},
			wantCode: toolchain.OK,
			wantMsg:  "java",
		},
		{
			name: "first failure wins",
			passes: []PassResult{
				{Name: PassProcessing, Messages: "processing"},
				{Name: PassKotlin, ExitCode: toolchain.CompilationError, Messages: "kotlin failed"},
				{Name: PassJava, ExitCode: toolchain.InternalError, Messages: "java failed"},
			},
			wantCode: toolchain.CompilationError,
			wantMsg:  "kotlin failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := summary(tt.passes)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestLayout(t *testing.T) {
	l := NewLayout("/work")
	assert.Equal(t, "/work/sources", l.Sources())
	assert.Equal(t, "/work/classes", l.Classes())
	assert.Equal(t, "/work/kapt/kotlinGenerated", l.KaptKotlinGenerated())
	assert.Equal(t, "/work/ksp/sources/java", l.KSPJavaSources())
	assert.Equal(t, "/work/ksp/caches", l.KSPCaches())
	assert.Equal(t, "/work/services.jar", l.ServicesJar())
	assert.Equal(t, "/work/output", l.JSOutput())
}
