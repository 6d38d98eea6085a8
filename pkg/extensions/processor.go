package extensions

import (
	"io"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/sources"
)

// DeclarationKind is the syntactic kind of a top-level declaration
type DeclarationKind string

const (
	DeclClass      DeclarationKind = "class"
	DeclInterface  DeclarationKind = "interface"
	DeclObject     DeclarationKind = "object"
	DeclEnum       DeclarationKind = "enum"
	DeclAnnotation DeclarationKind = "annotation"
	DeclRecord     DeclarationKind = "record"
)

// Declaration is a top-level type declaration visible to processors
type Declaration struct {
	Package     string
	Name        string
	Kind        DeclarationKind
	Annotations []string // qualified when an import resolves them, simple otherwise
	Language    sources.Kind
	File        string
}

// QualifiedName returns package.Name, or Name in the default package
func (d Declaration) QualifiedName() string {
	if d.Package == "" {
		return d.Name
	}
	return d.Package + "." + d.Name
}

// HasAnnotation matches a qualified or simple annotation name
func (d Declaration) HasAnnotation(annotation string) bool {
	simple := annotation[strings.LastIndex(annotation, ".")+1:]
	for _, a := range d.Annotations {
		if a == annotation || a == simple {
			return true
		}
		if !strings.Contains(annotation, ".") && strings.HasSuffix(a, "."+annotation) {
			return true
		}
	}
	return false
}

// Messager reports processor diagnostics. Errors fail the processing pass.
type Messager interface {
	Error(msg string, element *Declaration)
	Warning(msg string, element *Declaration)
	Note(msg string, element *Declaration)
}

// Filer creates files generated by annotation processors
type Filer interface {
	// CreateSourceFile opens the generated source for a qualified type name
	CreateSourceFile(qualifiedName string, language sources.Kind) (io.WriteCloser, error)

	// CreateResource opens a generated resource file below the class output
	CreateResource(relativePath string) (io.WriteCloser, error)
}

// ProcessingEnvironment is handed to annotation processors before the first round
type ProcessingEnvironment struct {
	Options  map[string]string
	Filer    Filer
	Messager Messager
}

// RoundEnvironment exposes the declarations of one processing round
type RoundEnvironment interface {
	RootElements() []Declaration
	ElementsAnnotatedWith(annotation string) []Declaration
	ProcessingOver() bool
}

// AnnotationProcessor processes declarations carrying supported annotations.
// Supported types are qualified annotation names; "*" selects every round.
type AnnotationProcessor interface {
	SupportedAnnotationTypes() []string
	Init(env *ProcessingEnvironment)
	Process(round RoundEnvironment) error
}

// CodeGenerator creates files generated by symbol processors
type CodeGenerator interface {
	CreateNewFile(packageName, fileName, extension string) (io.WriteCloser, error)
}

// SymbolProcessorEnvironment is handed to symbol processor providers
type SymbolProcessorEnvironment struct {
	Options       map[string]string
	CodeGenerator CodeGenerator
	Logger        Messager
}

// SymbolResolver gives symbol processors access to the declarations of the compilation
type SymbolResolver interface {
	AllFiles() []string
	NewFiles() []string
	SymbolsWithAnnotation(annotation string) []Declaration
	ClassDeclaration(qualifiedName string) (Declaration, bool)
}

// SymbolProcessor runs once per round and returns the symbols it defers to the next one
type SymbolProcessor interface {
	Process(resolver SymbolResolver) ([]Declaration, error)
	Finish()
}

// SymbolProcessorProvider creates a symbol processor for a compilation
type SymbolProcessorProvider interface {
	Create(env *SymbolProcessorEnvironment) SymbolProcessor
}

// SymbolProcessorProviderFunc adapts a function to SymbolProcessorProvider
type SymbolProcessorProviderFunc func(env *SymbolProcessorEnvironment) SymbolProcessor

// Create calls f
func (f SymbolProcessorProviderFunc) Create(env *SymbolProcessorEnvironment) SymbolProcessor {
	return f(env)
}
