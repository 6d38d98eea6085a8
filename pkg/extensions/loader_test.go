package extensions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DiscoverPlugins(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "allopen", allOpenManifest)
	writePlugin(t, root, "broken", "id: broken\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("not a plugin"), 0644))

	loader := NewLoader([]string{root, filepath.Join(root, "missing")}, logrus.New())
	manifests, err := loader.DiscoverPlugins(context.Background())
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "org.jetbrains.kotlin.allopen", manifests[0].ID)

	m, ok := loader.Get("org.jetbrains.kotlin.allopen")
	assert.True(t, ok)
	assert.Same(t, manifests[0], m)
	assert.Len(t, loader.Loaded(), 1)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader([]string{t.TempDir()}, nil).DiscoverPlugins(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultPluginDirectories(t *testing.T) {
	dirs := DefaultPluginDirectories()
	assert.Len(t, dirs, 2)
	assert.Equal(t, "./plugins", dirs[1])
}
