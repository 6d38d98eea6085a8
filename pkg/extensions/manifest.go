package extensions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name of a plugin manifest inside a plugin directory
const ManifestFile = "plugin.yaml"

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// PluginManifest describes an external compiler plugin jar and the options
// passed to it
type PluginManifest struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Version     string           `yaml:"version"`
	Jar         string           `yaml:"jar"` // relative to the manifest directory unless absolute
	Description string           `yaml:"description,omitempty"`
	Options     []ManifestOption `yaml:"options,omitempty"`

	dir string
}

// ManifestOption is one -P option of an external plugin
type ManifestOption struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// ValidationError is a manifest field failing validation
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// LoadPluginManifest loads and parses a plugin manifest file
func LoadPluginManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest PluginManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	manifest.dir = filepath.Dir(path)
	return &manifest, nil
}

// LoadPluginDir loads the plugin.yaml of a plugin directory and validates it
func LoadPluginDir(dir string) (*PluginManifest, error) {
	manifest, err := LoadPluginManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	if errs := ValidateManifest(manifest); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, errs)
	}
	return manifest, nil
}

// ValidateManifest performs basic validation on a plugin manifest
func ValidateManifest(manifest *PluginManifest) []ValidationError {
	var errs []ValidationError

	if manifest.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "Plugin ID is required"})
	} else if err := ValidatePluginID(manifest.ID); err != nil {
		errs = append(errs, ValidationError{Field: "id", Message: err.Error()})
	}

	if manifest.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "Plugin name is required"})
	}

	if manifest.Version == "" {
		errs = append(errs, ValidationError{Field: "version", Message: "Version is required"})
	} else if !semverRegex.MatchString(manifest.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("Invalid semver format: %s", manifest.Version),
		})
	}

	if manifest.Jar == "" {
		errs = append(errs, ValidationError{Field: "jar", Message: "Plugin jar is required"})
	}

	for i, opt := range manifest.Options {
		if opt.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d].name", i),
				Message: "Option name is required",
			})
		}
	}

	return errs
}

// JarPath returns the plugin jar resolved against the manifest directory
func (m *PluginManifest) JarPath() string {
	if filepath.IsAbs(m.Jar) || m.dir == "" {
		return m.Jar
	}
	return filepath.Join(m.dir, m.Jar)
}

// PluginOptions renders the manifest options as kotlinc -P values
func (m *PluginManifest) PluginOptions() []string {
	opts := make([]string, 0, len(m.Options))
	for _, opt := range m.Options {
		opts = append(opts, toolchain.NewPluginOption(m.ID, opt.Name, opt.Value))
	}
	return opts
}
