package toolchain

import (
	"fmt"
	"os"
	"strings"
)

// PluginOptionPrefix starts every value passed to kotlinc with -P
const PluginOptionPrefix = "plugin:"

// KotlinArgs is the argument model shared by the JVM and JS Kotlin compilers.
// Args renders it to a command line and ParseKotlinArgs reads one back, so
// in-process compilers see exactly what an external kotlinc would.
type KotlinArgs struct {
	Destination             string
	Classpath               []string
	JDKHome                 string
	NoJDK                   bool
	NoStdlib                bool
	NoReflect               bool
	JVMTarget               string
	ModuleName              string
	Verbose                 bool
	AllWarningsAsErrors     bool
	SuppressWarnings        bool
	SkipRuntimeVersionCheck bool
	ReportOutputFiles       bool
	PluginClasspaths        []string
	PluginOptions           []string // "plugin:<id>:<key>=<value>"
	MultiPlatform           bool
	CommonSources           []string

	// JS only
	Libraries    []string
	ModuleKind   string
	IROutputDir  string
	IROutputName string
	IRProduceJS  bool

	FreeArgs []string
	Sources  []string
}

// flags taking a separate value argument
var valueFlags = map[string]bool{
	"-d":                true,
	"-classpath":        true,
	"-cp":               true,
	"-jdk-home":         true,
	"-jvm-target":       true,
	"-module-name":      true,
	"-P":                true,
	"-libraries":        true,
	"-module-kind":      true,
	"-ir-output-dir":    true,
	"-ir-output-name":   true,
	"-api-version":      true,
	"-language-version": true,
	"-kotlin-home":      true,
	"-opt-in":           true,
	"-main":             true,
	"-expression":       true,
	"-script-templates": true,
	"-output-prefix":    true,
	"-output-postfix":   true,
	"-target":           true,
}

// Args renders the command line
func (a *KotlinArgs) Args() []string {
	var args []string
	if a.Destination != "" {
		args = append(args, "-d", a.Destination)
	}
	if len(a.Classpath) > 0 {
		args = append(args, "-classpath", strings.Join(a.Classpath, string(os.PathListSeparator)))
	}
	if a.JDKHome != "" {
		args = append(args, "-jdk-home", a.JDKHome)
	}
	if a.NoJDK {
		args = append(args, "-no-jdk")
	}
	if a.NoStdlib {
		args = append(args, "-no-stdlib")
	}
	if a.NoReflect {
		args = append(args, "-no-reflect")
	}
	if a.JVMTarget != "" {
		args = append(args, "-jvm-target", a.JVMTarget)
	}
	if a.ModuleName != "" {
		args = append(args, "-module-name", a.ModuleName)
	}
	if a.Verbose {
		args = append(args, "-verbose")
	}
	if a.AllWarningsAsErrors {
		args = append(args, "-Werror")
	}
	if a.SuppressWarnings {
		args = append(args, "-nowarn")
	}
	if a.SkipRuntimeVersionCheck {
		args = append(args, "-Xskip-runtime-version-check")
	}
	if a.ReportOutputFiles {
		args = append(args, "-Xreport-output-files")
	}
	if len(a.PluginClasspaths) > 0 {
		args = append(args, "-Xplugin="+strings.Join(a.PluginClasspaths, ","))
	}
	for _, opt := range a.PluginOptions {
		args = append(args, "-P", opt)
	}
	if a.MultiPlatform {
		args = append(args, "-Xmulti-platform")
	}
	if len(a.CommonSources) > 0 {
		args = append(args, "-Xcommon-sources="+strings.Join(a.CommonSources, ","))
	}
	if len(a.Libraries) > 0 {
		args = append(args, "-libraries", strings.Join(a.Libraries, string(os.PathListSeparator)))
	}
	if a.ModuleKind != "" {
		args = append(args, "-module-kind", a.ModuleKind)
	}
	if a.IROutputDir != "" {
		args = append(args, "-ir-output-dir", a.IROutputDir)
	}
	if a.IROutputName != "" {
		args = append(args, "-ir-output-name", a.IROutputName)
	}
	if a.IRProduceJS {
		args = append(args, "-Xir-produce-js")
	}
	args = append(args, a.FreeArgs...)
	args = append(args, a.Sources...)
	return args
}

// ParseKotlinArgs reads a kotlinc command line back into the argument model.
// Flags it does not model are kept in FreeArgs.
func ParseKotlinArgs(args []string) (*KotlinArgs, error) {
	a := &KotlinArgs{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			a.Sources = append(a.Sources, arg)
			continue
		}

		if name, value, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(name, "-X") {
			switch name {
			case "-Xplugin":
				a.PluginClasspaths = append(a.PluginClasspaths, splitNonEmpty(value, ",")...)
			case "-Xcommon-sources":
				a.CommonSources = append(a.CommonSources, splitNonEmpty(value, ",")...)
			default:
				a.FreeArgs = append(a.FreeArgs, arg)
			}
			continue
		}

		if valueFlags[arg] {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: %s", ErrMissingArgumentValue, arg)
			}
			i++
			a.setValue(arg, args[i])
			continue
		}

		switch arg {
		case "-no-jdk":
			a.NoJDK = true
		case "-no-stdlib":
			a.NoStdlib = true
		case "-no-reflect":
			a.NoReflect = true
		case "-verbose":
			a.Verbose = true
		case "-Werror":
			a.AllWarningsAsErrors = true
		case "-nowarn":
			a.SuppressWarnings = true
		case "-Xskip-runtime-version-check":
			a.SkipRuntimeVersionCheck = true
		case "-Xreport-output-files":
			a.ReportOutputFiles = true
		case "-Xmulti-platform":
			a.MultiPlatform = true
		case "-Xir-produce-js":
			a.IRProduceJS = true
		default:
			a.FreeArgs = append(a.FreeArgs, arg)
		}
	}
	return a, nil
}

func (a *KotlinArgs) setValue(flag, value string) {
	switch flag {
	case "-d":
		a.Destination = value
	case "-classpath", "-cp":
		a.Classpath = append(a.Classpath, splitNonEmpty(value, string(os.PathListSeparator))...)
	case "-jdk-home":
		a.JDKHome = value
	case "-jvm-target":
		a.JVMTarget = value
	case "-module-name":
		a.ModuleName = value
	case "-P":
		a.PluginOptions = append(a.PluginOptions, value)
	case "-libraries":
		a.Libraries = append(a.Libraries, splitNonEmpty(value, string(os.PathListSeparator))...)
	case "-module-kind":
		a.ModuleKind = value
	case "-ir-output-dir":
		a.IROutputDir = value
	case "-ir-output-name":
		a.IROutputName = value
	default:
		a.FreeArgs = append(a.FreeArgs, flag, value)
	}
}

// PluginOptionsFor returns the options addressed to one plugin id, in order.
// Repeated keys keep every value.
func (a *KotlinArgs) PluginOptionsFor(pluginID string) []PluginOption {
	var opts []PluginOption
	for _, raw := range a.PluginOptions {
		opt, ok := ParsePluginOption(raw)
		if ok && opt.PluginID == pluginID {
			opts = append(opts, opt)
		}
	}
	return opts
}

// PluginOption is one -P value addressed to a compiler plugin
type PluginOption struct {
	PluginID string
	Key      string
	Value    string
}

// String renders the option in kotlinc's plugin:<id>:<key>=<value> form
func (o PluginOption) String() string {
	return PluginOptionPrefix + o.PluginID + ":" + o.Key + "=" + o.Value
}

// NewPluginOption renders a -P value
func NewPluginOption(pluginID, key, value string) string {
	return PluginOption{PluginID: pluginID, Key: key, Value: value}.String()
}

// ParsePluginOption parses plugin:<id>:<key>=<value>. The key ends at the
// first '=' so it may itself contain ':'.
func ParsePluginOption(raw string) (PluginOption, bool) {
	rest, ok := strings.CutPrefix(raw, PluginOptionPrefix)
	if !ok {
		return PluginOption{}, false
	}
	id, rest, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return PluginOption{}, false
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return PluginOption{}, false
	}
	return PluginOption{PluginID: id, Key: key, Value: value}, true
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
