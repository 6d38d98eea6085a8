package classpath

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest lists classpath entries explicitly instead of discovering them
//
//	classpath:
//	  - /opt/kotlin/lib/kotlin-stdlib-2.0.0.jar
//	artifacts:
//	  kapt: /opt/kotlin/lib/kotlin-annotation-processing-2.0.0.jar
type Manifest struct {
	Classpath []string          `yaml:"classpath"`
	Artifacts map[string]string `yaml:"artifacts,omitempty"`
}

// StaticResolver resolves from a fixed list of entries
type StaticResolver struct {
	entries   []string
	artifacts []string
}

// NewStaticResolver creates a resolver over explicit entries
func NewStaticResolver(entries ...string) *StaticResolver {
	return &StaticResolver{entries: Dedupe(entries)}
}

// LoadManifest reads a YAML manifest. Relative paths are resolved against the manifest's directory.
func LoadManifest(path string) (*StaticResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classpath manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	r := &StaticResolver{}
	entries := make([]string, 0, len(m.Classpath))
	for _, entry := range m.Classpath {
		entries = append(entries, resolve(entry))
	}
	r.entries = Dedupe(entries)

	names := make([]string, 0, len(m.Artifacts))
	for name := range m.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.artifacts = append(r.artifacts, resolve(m.Artifacts[name]))
	}
	r.artifacts = Dedupe(r.artifacts)
	return r, nil
}

// HostClasspath returns the manifest classpath
func (r *StaticResolver) HostClasspath() []string {
	return append([]string(nil), r.entries...)
}

// FindArtifact matches named artifacts first, then classpath entries
func (r *StaticResolver) FindArtifact(pattern *regexp.Regexp) (string, bool) {
	if path, ok := findIn(r.artifacts, pattern); ok {
		return path, true
	}
	return findIn(r.entries, pattern)
}
