package extensions

import (
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServicesArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapt", "services.jar")
	services := []Service{
		{Interface: "javax.annotation.processing.Processor", Implementation: "com.example.FirstProcessor"},
		{Interface: "com.google.devtools.ksp.processing.SymbolProcessorProvider", Implementation: "com.example.Provider"},
		{Interface: "javax.annotation.processing.Processor", Implementation: "com.example.SecondProcessor"},
	}
	require.NoError(t, WriteServicesArchive(path, services))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"META-INF/services/com.google.devtools.ksp.processing.SymbolProcessorProvider",
		"META-INF/services/javax.annotation.processing.Processor",
	}, names)

	read, err := ReadServicesArchive(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, services, read)
}

func TestWriteServicesArchive_Incomplete(t *testing.T) {
	err := WriteServicesArchive(filepath.Join(t.TempDir(), "s.jar"), []Service{{Interface: "x"}})
	assert.Error(t, err)
}
