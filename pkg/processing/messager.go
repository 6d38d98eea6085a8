package processing

import (
	"fmt"
	"io"
	"sync"

	"github.com/platinummonkey/compiletest/pkg/extensions"
)

// messager writes processor diagnostics in compiler format and counts errors
type messager struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	errors  int
}

func (m *messager) Error(msg string, element *extensions.Declaration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
	fmt.Fprintf(m.out, "error: %s%s\n", location(element), msg)
}

func (m *messager) Warning(msg string, element *extensions.Declaration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.out, "warning: %s%s\n", location(element), msg)
}

func (m *messager) Note(msg string, element *extensions.Declaration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verbose {
		fmt.Fprintf(m.out, "info: %s%s\n", location(element), msg)
	}
}

func (m *messager) logging(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verbose {
		fmt.Fprintf(m.out, "logging: "+format+"\n", args...)
	}
}

func (m *messager) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors
}

func location(element *extensions.Declaration) string {
	if element == nil {
		return ""
	}
	if element.File != "" {
		return fmt.Sprintf("%s: %s: ", element.File, element.QualifiedName())
	}
	return element.QualifiedName() + ": "
}
