package extensions

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	// MainPluginID addresses the options consumed by the main registrar
	MainPluginID = "compiletest.main"

	// MainRegistrarName is the service locator name of the main registrar
	MainRegistrarName = "compiletest.MainRegistrar"

	// ScopeOptionName carries the registry token
	ScopeOptionName = "scope"
)

func init() {
	RegisterFactory(MainRegistrarName, func() Registrar { return NewMainRegistrar() })
}

// MainRegistrar bridges the compiler's name-based plugin discovery to the
// extensions of the running compilation. It learns the scope token and the
// encoded foreign options from its -P options, then looks up the installed
// snapshot and registers everything it holds.
type MainRegistrar struct {
	token   string
	foreign []Option
	logger  logrus.FieldLogger
}

// NewMainRegistrar creates a registrar logging to the registry logger
func NewMainRegistrar() *MainRegistrar {
	return &MainRegistrar{logger: registryLogger()}
}

// ProcessOption records the scope token or an encoded foreign option.
// Foreign options are dispatched during RegisterComponents because the
// scope option may come after them on the command line.
func (r *MainRegistrar) ProcessOption(key, value string) error {
	if key == ScopeOptionName {
		r.token = value
		return nil
	}
	if _, _, err := DecodeOptionName(key); err != nil {
		return err
	}
	r.foreign = append(r.foreign, Option{Name: key, Value: value})
	return nil
}

// RegisterComponents dispatches foreign options to their command line
// processors, then registers compiler plugins, then processors
func (r *MainRegistrar) RegisterComponents(project *Project, cfg *Configuration) error {
	snapshot := Current(r.token)

	if err := r.dispatchOptions(snapshot, cfg); err != nil {
		return err
	}

	for _, h := range snapshot.Handles(KindLegacy) {
		registrar, _ := h.Registrar()
		if err := registrar.RegisterComponents(project, cfg); err != nil {
			return fmt.Errorf("component registrar %T failed: %w", registrar, err)
		}
	}
	for _, h := range snapshot.Handles(KindAnnotation) {
		ap, _ := h.AnnotationProcessor()
		project.RegisterAnnotationProcessor(ap)
	}
	for _, h := range snapshot.Handles(KindSymbol) {
		sp, _ := h.SymbolProcessorProvider()
		project.RegisterSymbolProcessor(sp)
	}

	r.logger.WithFields(logrus.Fields{
		"scope":                 r.token,
		"registrars":            len(snapshot.Handles(KindLegacy)),
		"annotation_processors": len(snapshot.Handles(KindAnnotation)),
		"symbol_processors":     len(snapshot.Handles(KindSymbol)),
	}).Debug("Registered compilation extensions")
	return nil
}

func (r *MainRegistrar) dispatchOptions(snapshot Snapshot, cfg *Configuration) error {
	processors := make(map[string][]CommandLineProcessor)
	for _, h := range snapshot.Handles(KindOptions) {
		clp, _ := h.CommandLineProcessor()
		processors[clp.PluginID()] = append(processors[clp.PluginID()], clp)
	}

	for _, encoded := range r.foreign {
		pluginID, name, _ := DecodeOptionName(encoded.Name)
		targets := processors[pluginID]
		if len(targets) == 0 {
			r.logger.WithFields(logrus.Fields{
				"plugin": pluginID,
				"option": name,
			}).Debug("Ignoring option for unregistered plugin")
			continue
		}
		for _, clp := range targets {
			option, ok := findOption(clp.Options(), name)
			if !ok {
				return fmt.Errorf("%w: %s for plugin %s", ErrUnknownOption, name, pluginID)
			}
			if err := clp.ProcessOption(option, encoded.Value, cfg); err != nil {
				return fmt.Errorf("plugin %s rejected option %s: %w", pluginID, name, err)
			}
		}
	}
	return nil
}

func findOption(options []CliOption, name string) (CliOption, bool) {
	for _, o := range options {
		if o.Name == name {
			return o, true
		}
	}
	return CliOption{}, false
}
