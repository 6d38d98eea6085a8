package extensions

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Loader discovers external compiler plugins from directories. Each plugin
// lives in its own subdirectory holding a plugin.yaml and usually its jar.
type Loader struct {
	pluginDirs []string
	loaded     map[string]*PluginManifest
	mu         sync.RWMutex
	log        logrus.FieldLogger
}

// NewLoader creates a loader over plugin directories
func NewLoader(dirs []string, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{
		pluginDirs: dirs,
		loaded:     make(map[string]*PluginManifest),
		log:        log,
	}
}

// DiscoverPlugins scans the plugin directories. Invalid plugins are logged and skipped.
func (l *Loader) DiscoverPlugins(ctx context.Context) ([]*PluginManifest, error) {
	var manifests []*PluginManifest

	for _, dir := range l.pluginDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			l.log.Debugf("Plugin directory does not exist: %s", dir)
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			l.log.Warnf("Failed to read plugin directory %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			pluginDir := filepath.Join(dir, entry.Name())
			manifest, err := l.LoadPlugin(pluginDir)
			if err != nil {
				l.log.Warnf("Failed to load plugin from %s: %v", pluginDir, err)
				continue
			}
			manifests = append(manifests, manifest)
		}
	}

	return manifests, nil
}

// LoadPlugin loads a single plugin directory
func (l *Loader) LoadPlugin(dir string) (*PluginManifest, error) {
	manifest, err := LoadPluginDir(dir)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.loaded[manifest.ID] = manifest
	l.mu.Unlock()

	l.log.Infof("Loaded compiler plugin: %s v%s (%s)", manifest.Name, manifest.Version, manifest.ID)
	return manifest, nil
}

// Get returns a loaded plugin by id
func (l *Loader) Get(id string) (*PluginManifest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.loaded[id]
	return m, ok
}

// Loaded returns the loaded plugins sorted by id
func (l *Loader) Loaded() []*PluginManifest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	manifests := make([]*PluginManifest, 0, len(l.loaded))
	for _, m := range l.loaded {
		manifests = append(manifests, m)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests
}

// DefaultPluginDirectories returns the default plugin search directories
func DefaultPluginDirectories() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	return []string{
		filepath.Join(homeDir, ".compiletest", "plugins"),
		"./plugins",
	}
}
