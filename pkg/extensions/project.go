package extensions

import "sync"

// Configuration holds compiler configuration entries keyed by name.
// Command line processors write to it; component registrars read from it.
type Configuration struct {
	mu     sync.RWMutex
	values map[string][]string
}

// NewConfiguration creates an empty configuration
func NewConfiguration() *Configuration {
	return &Configuration{values: make(map[string][]string)}
}

// Put replaces the values of key
func (c *Configuration) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = []string{value}
}

// Add appends a value to key
func (c *Configuration) Add(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = append(c.values[key], value)
}

// Get returns the last value of key
func (c *Configuration) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values := c.values[key]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// GetAll returns every value of key
func (c *Configuration) GetAll(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.values[key]...)
}

// Project collects the extensions registered for one compiler invocation
type Project struct {
	mu                   sync.Mutex
	annotationProcessors []AnnotationProcessor
	symbolProcessors     []SymbolProcessorProvider
	extensions           map[string][]any
}

// NewProject creates an empty project
func NewProject() *Project {
	return &Project{extensions: make(map[string][]any)}
}

// RegisterAnnotationProcessor adds an annotation processor
func (p *Project) RegisterAnnotationProcessor(ap AnnotationProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.annotationProcessors = append(p.annotationProcessors, ap)
}

// RegisterSymbolProcessor adds a symbol processor provider
func (p *Project) RegisterSymbolProcessor(sp SymbolProcessorProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbolProcessors = append(p.symbolProcessors, sp)
}

// RegisterExtension adds an extension to a named extension point
func (p *Project) RegisterExtension(point string, ext any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extensions[point] = append(p.extensions[point], ext)
}

// AnnotationProcessors returns the registered annotation processors in registration order
func (p *Project) AnnotationProcessors() []AnnotationProcessor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AnnotationProcessor(nil), p.annotationProcessors...)
}

// SymbolProcessors returns the registered symbol processor providers in registration order
func (p *Project) SymbolProcessors() []SymbolProcessorProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SymbolProcessorProvider(nil), p.symbolProcessors...)
}

// Extensions returns the extensions of a point in registration order
func (p *Project) Extensions(point string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.extensions[point]...)
}
