package processing

import (
	"context"
	"fmt"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/platinummonkey/compiletest/pkg/toolchain"
	"github.com/sirupsen/logrus"
)

// run is the state of one processing invocation
type run struct {
	ctx       context.Context
	maxRounds int
	msg       *messager
	files     *tracker
	filer     *filer
	codegen   *codeGenerator
	logger    logrus.FieldLogger

	indexes  []*FileIndex
	allFiles []string
}

type annotationState struct {
	processor extensions.AnnotationProcessor
	invoked   bool
}

func (r *run) process(
	sourceFiles []string,
	aps []extensions.AnnotationProcessor,
	sps []extensions.SymbolProcessorProvider,
	apOptions, kspOptions map[string]string,
) (toolchain.ExitCode, error) {
	defer r.files.closeAll()

	annotation := make([]*annotationState, 0, len(aps))
	for _, ap := range aps {
		ap.Init(&extensions.ProcessingEnvironment{
			Options:  copyOptions(apOptions),
			Filer:    r.filer,
			Messager: r.msg,
		})
		annotation = append(annotation, &annotationState{processor: ap})
	}
	symbol := make([]extensions.SymbolProcessor, 0, len(sps))
	for _, sp := range sps {
		symbol = append(symbol, sp.Create(&extensions.SymbolProcessorEnvironment{
			Options:       copyOptions(kspOptions),
			CodeGenerator: r.codegen,
			Logger:        r.msg,
		}))
	}

	newDecls, err := r.index(sourceFiles)
	if err != nil {
		fmt.Fprintf(r.msg.out, "error: %v\n", err)
		return toolchain.InternalError, nil
	}
	newFiles := sourceFiles
	var deferred []extensions.Declaration

	for round := 1; ; round++ {
		if err := r.ctx.Err(); err != nil {
			return toolchain.InternalError, err
		}
		r.msg.logging("processing round %d: %d new declarations", round, len(newDecls))

		mark := r.files.count()
		r.annotationRound(annotation, newDecls, false)
		deferred = r.symbolRound(symbol, newFiles, append(newDecls, deferred...))
		r.files.closeAll()

		if r.msg.errorCount() > 0 {
			break
		}

		generated := sourcesOnly(r.files.since(mark))
		if len(generated) == 0 {
			break
		}
		if round >= r.maxRounds {
			fmt.Fprintf(r.msg.out, "error: %v after %d rounds\n", ErrTooManyRounds, round)
			return toolchain.InternalError, nil
		}

		newDecls, err = r.index(generated)
		if err != nil {
			fmt.Fprintf(r.msg.out, "error: %v\n", err)
			return toolchain.InternalError, nil
		}
		newFiles = generated
	}

	r.annotationRound(annotation, nil, true)
	for _, sp := range symbol {
		sp.Finish()
	}

	r.logger.WithFields(logrus.Fields{
		"generated": r.files.count(),
		"errors":    r.msg.errorCount(),
	}).Debug("Processing finished")

	if r.msg.errorCount() > 0 {
		return toolchain.CompilationError, nil
	}
	return toolchain.OK, nil
}

// index scans files, qualifies annotations against everything seen so far
// and returns the declarations of the new files
func (r *run) index(files []string) ([]extensions.Declaration, error) {
	var added []*FileIndex
	for _, path := range files {
		idx, err := ScanFile(path)
		if err != nil {
			return nil, err
		}
		added = append(added, idx)
	}
	r.indexes = append(r.indexes, added...)
	r.allFiles = append(r.allFiles, files...)
	ResolveAnnotations(r.indexes)

	var decls []extensions.Declaration
	for _, idx := range added {
		decls = append(decls, idx.Declarations...)
	}
	return decls, nil
}

func (r *run) annotationRound(states []*annotationState, decls []extensions.Declaration, over bool) {
	env := &roundEnv{elements: decls, over: over}
	for _, st := range states {
		if !over && !st.invoked && !supportsAny(st.processor, decls) {
			continue
		}
		if over && !st.invoked {
			continue
		}
		st.invoked = true
		if err := st.processor.Process(env); err != nil {
			r.msg.Error(fmt.Sprintf("annotation processor %T failed: %v", st.processor, err), nil)
		}
	}
}

func (r *run) symbolRound(processors []extensions.SymbolProcessor, newFiles []string, decls []extensions.Declaration) []extensions.Declaration {
	res := &symbolResolver{run: r, newFiles: newFiles, current: decls}
	var deferred []extensions.Declaration
	for _, sp := range processors {
		d, err := sp.Process(res)
		if err != nil {
			r.msg.Error(fmt.Sprintf("symbol processor %T failed: %v", sp, err), nil)
			continue
		}
		deferred = append(deferred, d...)
	}
	return deferred
}

func supportsAny(ap extensions.AnnotationProcessor, decls []extensions.Declaration) bool {
	for _, t := range ap.SupportedAnnotationTypes() {
		if t == "*" {
			return true
		}
		for _, d := range decls {
			if d.HasAnnotation(t) {
				return true
			}
		}
	}
	return false
}

type roundEnv struct {
	elements []extensions.Declaration
	over     bool
}

func (e *roundEnv) RootElements() []extensions.Declaration {
	return append([]extensions.Declaration(nil), e.elements...)
}

func (e *roundEnv) ElementsAnnotatedWith(annotation string) []extensions.Declaration {
	return annotatedWith(e.elements, annotation)
}

func (e *roundEnv) ProcessingOver() bool { return e.over }

type symbolResolver struct {
	run      *run
	newFiles []string
	current  []extensions.Declaration
}

func (s *symbolResolver) AllFiles() []string {
	return append([]string(nil), s.run.allFiles...)
}

func (s *symbolResolver) NewFiles() []string {
	return append([]string(nil), s.newFiles...)
}

func (s *symbolResolver) SymbolsWithAnnotation(annotation string) []extensions.Declaration {
	return annotatedWith(s.current, annotation)
}

func (s *symbolResolver) ClassDeclaration(qualifiedName string) (extensions.Declaration, bool) {
	for _, idx := range s.run.indexes {
		for _, d := range idx.Declarations {
			if d.QualifiedName() == qualifiedName {
				return d, true
			}
		}
	}
	return extensions.Declaration{}, false
}

func annotatedWith(decls []extensions.Declaration, annotation string) []extensions.Declaration {
	var out []extensions.Declaration
	for _, d := range decls {
		if d.HasAnnotation(annotation) {
			out = append(out, d)
		}
	}
	return out
}

func sourcesOnly(paths []string) []string {
	var out []string
	for _, p := range paths {
		if sources.IsKotlinFile(p) || sources.IsJavaFile(p) {
			out = append(out, p)
		}
	}
	return out
}

func copyOptions(options map[string]string) map[string]string {
	out := make(map[string]string, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}
