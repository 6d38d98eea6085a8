package extensions

import "fmt"

// ComponentRegistrar is a legacy compiler plugin that configures the whole
// project in one callback
type ComponentRegistrar interface {
	RegisterComponents(project *Project, cfg *Configuration) error
}

// CliOption declares an option understood by a CommandLineProcessor
type CliOption struct {
	Name             string
	ValueDescription string
	Description      string
	Required         bool
	AllowMultiple    bool
}

// CommandLineProcessor receives the options addressed to one plugin id
type CommandLineProcessor interface {
	PluginID() string
	Options() []CliOption
	ProcessOption(option CliOption, value string, cfg *Configuration) error
}

// HandleKind identifies the capability carried by a Handle
type HandleKind int

const (
	KindLegacy HandleKind = iota
	KindOptions
	KindAnnotation
	KindSymbol
)

func (k HandleKind) String() string {
	switch k {
	case KindLegacy:
		return "component-registrar"
	case KindOptions:
		return "command-line-processor"
	case KindAnnotation:
		return "annotation-processor"
	case KindSymbol:
		return "symbol-processor"
	default:
		return fmt.Sprintf("HandleKind(%d)", int(k))
	}
}

// Handle is one extension of either interface generation: a legacy
// whole-project registrar or one of the narrow processor shapes. Create
// handles with Legacy, Options, Annotation or Symbol.
type Handle struct {
	kind       HandleKind
	legacy     ComponentRegistrar
	options    CommandLineProcessor
	annotation AnnotationProcessor
	symbol     SymbolProcessorProvider
}

// Legacy wraps a whole-project component registrar
func Legacy(r ComponentRegistrar) Handle {
	return Handle{kind: KindLegacy, legacy: r}
}

// Options wraps a command line processor
func Options(p CommandLineProcessor) Handle {
	return Handle{kind: KindOptions, options: p}
}

// Annotation wraps an annotation processor
func Annotation(p AnnotationProcessor) Handle {
	return Handle{kind: KindAnnotation, annotation: p}
}

// Symbol wraps a symbol processor provider
func Symbol(p SymbolProcessorProvider) Handle {
	return Handle{kind: KindSymbol, symbol: p}
}

// Kind returns the capability of the handle
func (h Handle) Kind() HandleKind { return h.kind }

// IsZero reports whether the handle wraps nothing
func (h Handle) IsZero() bool {
	return h.legacy == nil && h.options == nil && h.annotation == nil && h.symbol == nil
}

// Registrar returns the legacy registrar
func (h Handle) Registrar() (ComponentRegistrar, bool) {
	return h.legacy, h.kind == KindLegacy && h.legacy != nil
}

// CommandLineProcessor returns the option processor
func (h Handle) CommandLineProcessor() (CommandLineProcessor, bool) {
	return h.options, h.kind == KindOptions && h.options != nil
}

// AnnotationProcessor returns the annotation processor
func (h Handle) AnnotationProcessor() (AnnotationProcessor, bool) {
	return h.annotation, h.kind == KindAnnotation && h.annotation != nil
}

// SymbolProcessorProvider returns the symbol processor provider
func (h Handle) SymbolProcessorProvider() (SymbolProcessorProvider, bool) {
	return h.symbol, h.kind == KindSymbol && h.symbol != nil
}

// IsProcessor reports whether the handle runs during the processing pass
func (h Handle) IsProcessor() bool {
	return h.kind == KindAnnotation || h.kind == KindSymbol
}
