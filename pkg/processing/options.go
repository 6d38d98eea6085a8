package processing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/toolchain"
)

const (
	// KaptPluginID addresses the annotation processing plugin
	KaptPluginID = "org.jetbrains.kotlin.kapt3"

	// KSPPluginID addresses the symbol processing plugin
	KSPPluginID = "com.google.devtools.ksp.symbol-processing"

	// KaptKotlinGeneratedOption is the processor option naming the Kotlin output directory
	KaptKotlinGeneratedOption = "kapt.kotlin.generated"

	// AptModeStubsAndApt generates stubs and runs processors without emitting classes
	AptModeStubsAndApt = "stubsAndApt"
)

// KaptOptions are the kapt plugin options of a processing invocation
type KaptOptions struct {
	Sources                string
	Classes                string
	Stubs                  string
	IncrementalData        string
	APClasspath            []string
	APOptions              map[string]string
	AptMode                string
	CorrectErrorTypes      bool
	MapDiagnosticLocations bool
	Verbose                bool
}

// PluginOptions renders the options as -P values
func (o KaptOptions) PluginOptions() ([]string, error) {
	opt := func(key, value string) string { return toolchain.NewPluginOption(KaptPluginID, key, value) }

	opts := []string{
		opt("sources", o.Sources),
		opt("classes", o.Classes),
		opt("stubs", o.Stubs),
		opt("incrementalData", o.IncrementalData),
	}
	for _, entry := range o.APClasspath {
		opts = append(opts, opt("apclasspath", entry))
	}

	encoded, err := toolchain.EncodeAPOptions(o.APOptions)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		opt("apoptions", encoded),
		opt("aptMode", o.AptMode),
		opt("correctErrorTypes", strconv.FormatBool(o.CorrectErrorTypes)),
		opt("mapDiagnosticLocations", strconv.FormatBool(o.MapDiagnosticLocations)),
		opt("verbose", strconv.FormatBool(o.Verbose)),
	)
	return opts, nil
}

// ParseKaptOptions reads the kapt options of a command line
func ParseKaptOptions(args *toolchain.KotlinArgs) (KaptOptions, bool, error) {
	raw := args.PluginOptionsFor(KaptPluginID)
	if len(raw) == 0 {
		return KaptOptions{}, false, nil
	}

	var o KaptOptions
	for _, p := range raw {
		switch p.Key {
		case "sources":
			o.Sources = p.Value
		case "classes":
			o.Classes = p.Value
		case "stubs":
			o.Stubs = p.Value
		case "incrementalData":
			o.IncrementalData = p.Value
		case "apclasspath":
			o.APClasspath = append(o.APClasspath, p.Value)
		case "apoptions":
			decoded, err := toolchain.DecodeAPOptions(p.Value)
			if err != nil {
				return KaptOptions{}, true, fmt.Errorf("%w: apoptions: %v", ErrInvalidOption, err)
			}
			o.APOptions = decoded
		case "aptMode":
			o.AptMode = p.Value
		case "correctErrorTypes":
			o.CorrectErrorTypes = p.Value == "true"
		case "mapDiagnosticLocations":
			o.MapDiagnosticLocations = p.Value == "true"
		case "verbose":
			o.Verbose = p.Value == "true"
		}
	}
	return o, true, nil
}

// KSPOptions are the symbol processing plugin options of a processing invocation
type KSPOptions struct {
	KotlinOutputDir   string
	JavaOutputDir     string
	ClassOutputDir    string
	ResourceOutputDir string
	CachesDir         string
	ProjectBaseDir    string
	Incremental       bool
	IncrementalLog    bool
	APOptions         map[string]string
}

// PluginOptions renders the options as -P values. Processor options are
// passed one per apoption entry in key order.
func (o KSPOptions) PluginOptions() []string {
	opt := func(key, value string) string { return toolchain.NewPluginOption(KSPPluginID, key, value) }

	opts := []string{
		opt("kotlinOutputDir", o.KotlinOutputDir),
		opt("javaOutputDir", o.JavaOutputDir),
		opt("classOutputDir", o.ClassOutputDir),
		opt("resourceOutputDir", o.ResourceOutputDir),
		opt("cachesDir", o.CachesDir),
		opt("projectBaseDir", o.ProjectBaseDir),
		opt("incremental", strconv.FormatBool(o.Incremental)),
		opt("incrementalLog", strconv.FormatBool(o.IncrementalLog)),
	}

	keys := make([]string, 0, len(o.APOptions))
	for k := range o.APOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, opt("apoption", k+"="+o.APOptions[k]))
	}
	return opts
}

// ParseKSPOptions reads the symbol processing options of a command line
func ParseKSPOptions(args *toolchain.KotlinArgs) (KSPOptions, bool, error) {
	raw := args.PluginOptionsFor(KSPPluginID)
	if len(raw) == 0 {
		return KSPOptions{}, false, nil
	}

	o := KSPOptions{APOptions: make(map[string]string)}
	for _, p := range raw {
		switch p.Key {
		case "kotlinOutputDir":
			o.KotlinOutputDir = p.Value
		case "javaOutputDir":
			o.JavaOutputDir = p.Value
		case "classOutputDir":
			o.ClassOutputDir = p.Value
		case "resourceOutputDir":
			o.ResourceOutputDir = p.Value
		case "cachesDir":
			o.CachesDir = p.Value
		case "projectBaseDir":
			o.ProjectBaseDir = p.Value
		case "incremental":
			o.Incremental = p.Value == "true"
		case "incrementalLog":
			o.IncrementalLog = p.Value == "true"
		case "apoption":
			k, v, ok := strings.Cut(p.Value, "=")
			if !ok || k == "" {
				return KSPOptions{}, true, fmt.Errorf("%w: apoption %q is not key=value", ErrInvalidOption, p.Value)
			}
			o.APOptions[k] = v
		}
	}
	return o, true, nil
}
