package extensions

import "errors"

type recordingRegistrar struct {
	calls *[]string
	name  string
	err   error
}

func (r recordingRegistrar) RegisterComponents(project *Project, cfg *Configuration) error {
	*r.calls = append(*r.calls, r.name)
	project.RegisterExtension("test.point", r.name)
	return r.err
}

type optionProcessor struct {
	id       string
	options  []CliOption
	received []Option
	reject   bool
}

func (p *optionProcessor) PluginID() string     { return p.id }
func (p *optionProcessor) Options() []CliOption { return p.options }

func (p *optionProcessor) ProcessOption(option CliOption, value string, cfg *Configuration) error {
	if p.reject {
		return errors.New("rejected")
	}
	p.received = append(p.received, Option{Name: option.Name, Value: value})
	cfg.Add(p.id+"."+option.Name, value)
	return nil
}

type noopAnnotationProcessor struct{ types []string }

func (p noopAnnotationProcessor) SupportedAnnotationTypes() []string { return p.types }
func (p noopAnnotationProcessor) Init(env *ProcessingEnvironment)    {}
func (p noopAnnotationProcessor) Process(round RoundEnvironment) error {
	return nil
}

type noopSymbolProcessor struct{}

func (noopSymbolProcessor) Process(resolver SymbolResolver) ([]Declaration, error) { return nil, nil }
func (noopSymbolProcessor) Finish()                                                {}

func noopSymbolProvider() SymbolProcessorProvider {
	return SymbolProcessorProviderFunc(func(env *SymbolProcessorEnvironment) SymbolProcessor {
		return noopSymbolProcessor{}
	})
}
