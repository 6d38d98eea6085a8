package classpath

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
)

// Resolver locates the host classpath and toolchain artifacts
type Resolver interface {
	// HostClasspath returns every classpath and module path entry visible to
	// the host, deduplicated by absolute path
	HostClasspath() []string

	// FindArtifact returns the first host entry whose file name matches pattern
	FindArtifact(pattern *regexp.Regexp) (string, bool)
}

// findIn returns the first entry whose base name matches pattern
func findIn(entries []string, pattern *regexp.Regexp) (string, bool) {
	for _, entry := range entries {
		if pattern.MatchString(filepath.Base(entry)) {
			return entry, true
		}
	}
	return "", false
}

// Dedupe removes empty and repeated entries by absolute path, keeping the first occurrence
func Dedupe(entries []string) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		abs, err := filepath.Abs(entry)
		if err != nil {
			abs = filepath.Clean(entry)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// FindToolsJarFromJDK looks for the legacy tools.jar of a JDK 8 style installation
func FindToolsJarFromJDK(jdkHome string) (string, error) {
	candidates := []string{
		filepath.Join(jdkHome, "..", "lib", "tools.jar"),
		filepath.Join(jdkHome, "lib", "tools.jar"),
		filepath.Join(jdkHome, "tools.jar"),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return filepath.Clean(candidate), nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", ErrToolsJarNotFound
}
