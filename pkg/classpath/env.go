package classpath

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

const (
	// EnvHostClasspath lists host classpath entries ahead of CLASSPATH
	EnvHostClasspath = "COMPILETEST_HOST_CLASSPATH"

	// EnvKlibPath lists Kotlin library (.klib) files or directories holding them
	EnvKlibPath = "COMPILETEST_KLIB_PATH"

	// DefaultLookupCacheSize bounds the memoized artifact lookups
	DefaultLookupCacheSize = 128
)

type lookup struct {
	path  string
	found bool
}

// EnvResolver discovers the host classpath from the environment: the
// COMPILETEST_HOST_CLASSPATH and CLASSPATH path lists, the system modules of
// the Java home and Kotlin library entries. Discovery runs once; artifact
// lookups are memoized.
type EnvResolver struct {
	getenv   func(string) string
	javaHome string
	logger   logrus.FieldLogger

	once    sync.Once
	entries []string
	lookups *lru.Cache[string, lookup]
}

// EnvOption configures an EnvResolver
type EnvOption func(*EnvResolver)

// WithGetenv replaces os.Getenv
func WithGetenv(getenv func(string) string) EnvOption {
	return func(r *EnvResolver) { r.getenv = getenv }
}

// WithJavaHome sets the Java home whose jmods are part of the host module path
func WithJavaHome(home string) EnvOption {
	return func(r *EnvResolver) { r.javaHome = home }
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) EnvOption {
	return func(r *EnvResolver) { r.logger = logger }
}

// NewEnvResolver creates a resolver reading the process environment
func NewEnvResolver(opts ...EnvOption) *EnvResolver {
	r := &EnvResolver{
		getenv: os.Getenv,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.javaHome == "" {
		r.javaHome = r.getenv("JAVA_HOME")
	}
	cache, _ := lru.New[string, lookup](DefaultLookupCacheSize)
	r.lookups = cache
	return r
}

var (
	hostOnce     sync.Once
	hostResolver *EnvResolver
)

// Host returns the process-wide resolver. The host classpath does not change
// during a test run so it is discovered at most once.
func Host() *EnvResolver {
	hostOnce.Do(func() {
		hostResolver = NewEnvResolver()
	})
	return hostResolver
}

// HostClasspath returns the deduplicated host entries
func (r *EnvResolver) HostClasspath() []string {
	r.once.Do(r.discover)
	return append([]string(nil), r.entries...)
}

// FindArtifact returns the first host entry whose file name matches pattern
func (r *EnvResolver) FindArtifact(pattern *regexp.Regexp) (string, bool) {
	key := pattern.String()
	if cached, ok := r.lookups.Get(key); ok {
		return cached.path, cached.found
	}

	path, found := findIn(r.HostClasspath(), pattern)
	if !found {
		r.logger.WithField("pattern", key).Debug("Toolchain artifact not found on host classpath")
	}
	r.lookups.Add(key, lookup{path: path, found: found})
	return path, found
}

func (r *EnvResolver) discover() {
	var entries []string
	for _, name := range []string{EnvHostClasspath, "CLASSPATH"} {
		entries = append(entries, expandPathList(r.getenv(name))...)
	}
	entries = append(entries, systemModules(r.javaHome)...)
	entries = append(entries, klibs(r.getenv(EnvKlibPath))...)

	r.entries = Dedupe(entries)
	r.logger.WithFields(logrus.Fields{
		"entries":   len(r.entries),
		"java_home": r.javaHome,
	}).Debug("Discovered host classpath")
}

// expandPathList splits a path list and expands "dir/*" to the jars in dir
func expandPathList(list string) []string {
	var entries []string
	for _, entry := range filepath.SplitList(list) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if filepath.Base(entry) == "*" {
			entries = append(entries, globSorted(filepath.Join(filepath.Dir(entry), "*.jar"))...)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func systemModules(javaHome string) []string {
	if javaHome == "" {
		return nil
	}
	return globSorted(filepath.Join(javaHome, "jmods", "*.jmod"))
}

func klibs(list string) []string {
	var entries []string
	for _, entry := range filepath.SplitList(list) {
		if entry == "" {
			continue
		}
		info, err := os.Stat(entry)
		if err != nil {
			continue
		}
		if info.IsDir() {
			entries = append(entries, globSorted(filepath.Join(entry, "*.klib"))...)
		} else if strings.HasSuffix(entry, ".klib") {
			entries = append(entries, entry)
		}
	}
	return entries
}

func globSorted(pattern string) []string {
	matches, _ := filepath.Glob(pattern)
	sort.Strings(matches)
	return matches
}
