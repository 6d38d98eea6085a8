package processing

import (
	"path/filepath"
	"testing"

	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiler_Placement(t *testing.T) {
	dir := t.TempDir()
	files := &tracker{}
	f := &filer{
		javaDir:     filepath.Join(dir, "java"),
		kotlinDir:   filepath.Join(dir, "kotlin"),
		resourceDir: filepath.Join(dir, "classes"),
		files:       files,
	}
	defer files.closeAll()

	_, err := f.CreateSourceFile("com.example.Gen", sources.KindJava)
	require.NoError(t, err)
	_, err = f.CreateSourceFile("KtGen", sources.KindKotlin)
	require.NoError(t, err)
	_, err = f.CreateResource("META-INF/gen.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "java", "com", "example", "Gen.java"),
		filepath.Join(dir, "kotlin", "KtGen.kt"),
		filepath.Join(dir, "classes", "META-INF", "gen.txt"),
	}, files.since(0))
	assert.Equal(t, []string{filepath.Join(dir, "java", "com", "example", "Gen.java"), filepath.Join(dir, "kotlin", "KtGen.kt")}, sourcesOnly(files.since(0)))
}

func TestFiler_Rejections(t *testing.T) {
	dir := t.TempDir()
	f := &filer{javaDir: filepath.Join(dir, "java"), files: &tracker{}}

	_, err := f.CreateResource("x.txt")
	assert.ErrorIs(t, err, ErrNoOutputDir)

	f.resourceDir = dir
	_, err = f.CreateResource("../escape.txt")
	assert.ErrorIs(t, err, ErrInvalidGeneratedName)

	_, err = f.CreateSourceFile("com.example.", sources.KindJava)
	assert.ErrorIs(t, err, ErrInvalidGeneratedName)
}

func TestCodeGenerator_Placement(t *testing.T) {
	dir := t.TempDir()
	files := &tracker{}
	g := &codeGenerator{kotlinDir: filepath.Join(dir, "kotlin"), javaDir: filepath.Join(dir, "java"), resourceDir: filepath.Join(dir, "res"), files: files}
	defer files.closeAll()

	_, err := g.CreateNewFile("a.b", "K", "kt")
	require.NoError(t, err)
	_, err = g.CreateNewFile("", "R", "txt")
	require.NoError(t, err)
	_, err = g.CreateNewFile("a", "../x", "kt")
	assert.ErrorIs(t, err, ErrInvalidGeneratedName)

	assert.Equal(t, []string{
		filepath.Join(dir, "kotlin", "a", "b", "K.kt"),
		filepath.Join(dir, "res", "R.txt"),
	}, files.since(0))
}
