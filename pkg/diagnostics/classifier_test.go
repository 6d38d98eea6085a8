package diagnostics

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Advise(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		ctx         Context
		wantMatches []string
		wantOut     []string
		notOut      []string
	}{
		{
			name:        "tools jar sentinel",
			text:        "exception: java.lang.IllegalArgumentException: " + ToolsJarSentinel + "\n\tat java.lang.Enum.valueOf",
			wantMatches: []string{SignatureToolsJar},
			wantOut:     []string{"warning: ", "tools.jar file together with a JDK of version 9"},
			notOut:      []string{"inherited classpath"},
		},
		{
			name:        "tools jar with inherited classpath",
			text:        ToolsJarSentinel,
			ctx:         Context{InheritClassPath: true},
			wantMatches: []string{SignatureToolsJar},
			wantOut:     []string{"inherited classpath"},
		},
		{
			name:        "metadata version",
			text:        "e: Foo.kt: Class 'kotlin.Unit' was compiled with an incompatible version of Kotlin. The binary version of its metadata is 1.9.0, expected version is 1.7.1.",
			wantMatches: []string{SignatureMetadataVersion},
			wantOut:     []string{"newer Kotlin compiler"},
		},
		{
			name:        "out of memory",
			text:        "exception: java.lang.OutOfMemoryError: Java heap space",
			wantMatches: []string{SignatureOutOfMemory},
			wantOut:     []string{"ran out of memory"},
		},
		{
			name: "ordinary compilation error",
			text: "error: unresolved reference: Foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			matches := NewClassifier().Advise(&out, tt.text, tt.ctx)

			names := make([]string, 0, len(matches))
			for _, m := range matches {
				names = append(names, m.Signature.Name)
			}
			if len(tt.wantMatches) == 0 {
				assert.Empty(t, names)
				assert.Empty(t, out.String())
				return
			}
			assert.Equal(t, tt.wantMatches, names)
			for _, s := range tt.wantOut {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.notOut {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestClassifier_AdviceDoesNotTouchText(t *testing.T) {
	text := "exception: " + ToolsJarSentinel
	var out bytes.Buffer
	matches := NewClassifier().Advise(&out, text, Context{})

	require.Len(t, matches, 1)
	assert.Equal(t, "exception: "+ToolsJarSentinel, matches[0].Excerpt)
	assert.Equal(t, "exception: "+ToolsJarSentinel, text)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestClassifier_NilWriter(t *testing.T) {
	matches := NewClassifier().Advise(nil, ToolsJarSentinel, Context{})
	assert.Len(t, matches, 1)
}

func TestClassifier_Register(t *testing.T) {
	c := NewClassifier()
	defaults := len(c.Signatures())

	c.Register(Signature{
		Name:    "license",
		Pattern: regexp.MustCompile(`license check failed`),
		Advice:  func(Context) string { return "run the license tool" },
	})
	assert.Len(t, c.Signatures(), defaults+1)

	c.Register(Signature{
		Name:    SignatureOutOfMemory,
		Pattern: regexp.MustCompile(`never matches this`),
	})
	assert.Len(t, c.Signatures(), defaults+1)
	assert.Empty(t, c.Classify("java.lang.OutOfMemoryError", Context{}))

	matches := c.Classify("line one\nlicense check failed for a.jar\nline three", Context{})
	require.Len(t, matches, 1)
	assert.Equal(t, "license check failed for a.jar", matches[0].Excerpt)
	assert.Equal(t, "run the license tool", matches[0].Advice)
}
