package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/sirupsen/logrus"
)

// EnvPrefix starts every environment variable read by this package
const EnvPrefix = "COMPILETEST_"

// Config holds the harness configuration
type Config struct {
	Toolchain     ToolchainConfig
	Compilation   CompilationConfig
	Artifacts     artifacts.StoreConfig
	Observability ObservabilityConfig
}

// ToolchainConfig selects the compilers and their support artifacts
type ToolchainConfig struct {
	Kotlinc   string
	KotlincJS string
	Javac     string
	Java      string // launches compiled scripts

	// DockerImage runs the compilers inside a container when set
	DockerImage  string
	DockerMemory int64
	DockerCPUs   float64

	JDKHome           string
	PluginDirs        []string
	ClasspathManifest string // YAML manifest replacing host classpath discovery
}

// CompilationConfig holds defaults applied to every compilation
type CompilationConfig struct {
	WorkRoot         string
	InheritClassPath bool
	Verbose          bool
	JVMTarget        string
	MaxWorkers       int
	Timeout          time.Duration
	KeepWorkDirs     bool
}

// ObservabilityConfig holds logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel  logrus.Level
	LogFormat string // text or json

	MetricsAddr string

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig reads a .env file from the working directory when present,
// then loads and validates the configuration from the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return fromEnv()
}

// LoadConfigFrom is LoadConfig with explicit env files, which must exist.
// Variables already set in the environment win over the files.
func LoadConfigFrom(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("failed to read env files: %w", err)
		}
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Toolchain:     loadToolchainConfig(),
		Compilation:   loadCompilationConfig(),
		Artifacts:     loadArtifactsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		Kotlinc:           getEnv("KOTLINC", "kotlinc"),
		KotlincJS:         getEnv("KOTLINC_JS", "kotlinc-js"),
		Javac:             getEnv("JAVAC", "javac"),
		Java:              getEnv("JAVA", "java"),
		DockerImage:       getEnv("DOCKER_IMAGE", ""),
		DockerMemory:      getEnvInt64("DOCKER_MEMORY", 0),
		DockerCPUs:        getEnvFloat("DOCKER_CPUS", 0),
		JDKHome:           getEnv("JDK_HOME", ""),
		PluginDirs:        getEnvList("PLUGIN_DIRS"),
		ClasspathManifest: getEnv("CLASSPATH_MANIFEST", ""),
	}
}

func loadCompilationConfig() CompilationConfig {
	return CompilationConfig{
		WorkRoot:         getEnv("WORK_DIR", filepath.Join(os.TempDir(), "compiletest")),
		InheritClassPath: getEnvBool("INHERIT_CLASSPATH", false),
		Verbose:          getEnvBool("VERBOSE", false),
		JVMTarget:        getEnv("JVM_TARGET", ""),
		MaxWorkers:       getEnvInt("MAX_WORKERS", 4),
		Timeout:          getEnvDuration("TIMEOUT", 5*time.Minute),
		KeepWorkDirs:     getEnvBool("KEEP_WORK_DIRS", false),
	}
}

func loadArtifactsConfig() artifacts.StoreConfig {
	cfg := artifacts.DefaultStoreConfig()
	if bucket := getEnv("S3_BUCKET", ""); bucket != "" {
		cfg.Bucket = bucket
	}
	if prefix := getEnv("S3_PREFIX", ""); prefix != "" {
		cfg.Prefix = prefix
	}
	if region := getEnv("S3_REGION", ""); region != "" {
		cfg.Region = region
	}
	if endpoint := getEnv("S3_ENDPOINT", ""); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	cfg.VerifyChecksum = getEnvBool("S3_VERIFY_CHECKSUM", cfg.VerifyChecksum)
	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("OTEL_SERVICE_NAME", "compiletest"),
		OTelServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool("OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Toolchain.DockerImage == "" {
		if c.Toolchain.Kotlinc == "" || c.Toolchain.Javac == "" {
			return fmt.Errorf("kotlinc and javac commands are required")
		}
	}
	if c.Toolchain.DockerMemory < 0 || c.Toolchain.DockerCPUs < 0 {
		return fmt.Errorf("docker resource limits must not be negative")
	}

	if c.Compilation.WorkRoot == "" {
		return fmt.Errorf("work directory is required")
	}
	if c.Compilation.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1, got %d", c.Compilation.MaxWorkers)
	}
	if c.Compilation.Timeout <= 0 {
		return fmt.Errorf("compilation timeout must be positive")
	}

	if c.Artifacts.Endpoint != "" && c.Artifacts.Bucket == "" {
		return fmt.Errorf("S3 bucket is required when an S3 endpoint is set")
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseLogLevel falls back to info for unknown levels
func parseLogLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

// getEnv returns the prefixed environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultValue
}

// getEnvList splits a path list variable
func getEnvList(key string) []string {
	var out []string
	for _, p := range filepath.SplitList(getEnv(key, "")) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
