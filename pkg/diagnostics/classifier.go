package diagnostics

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
)

// Context carries the compilation settings that advice may depend on
type Context struct {
	InheritClassPath bool
	JDKHome          string
}

// Signature is one known failure pattern and the advice printed for it
type Signature struct {
	Name    string
	Pattern *regexp.Regexp
	Advice  func(ctx Context) string
}

// Match is a signature found in compiler output
type Match struct {
	Signature Signature
	Excerpt   string
	Advice    string
}

// Classifier holds the signatures checked against failing passes
type Classifier struct {
	mu         sync.RWMutex
	signatures []Signature
}

// NewClassifier creates a classifier with the default signatures
func NewClassifier() *Classifier {
	c := &Classifier{}
	for _, s := range DefaultSignatures() {
		c.Register(s)
	}
	return c
}

// Register adds a signature. A signature with an existing name replaces it.
func (c *Classifier) Register(s Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.signatures {
		if existing.Name == s.Name {
			c.signatures[i] = s
			return
		}
	}
	c.signatures = append(c.signatures, s)
}

// Signatures returns the registered signatures in registration order
func (c *Classifier) Signatures() []Signature {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Signature(nil), c.signatures...)
}

// Classify returns the signatures found in text
func (c *Classifier) Classify(text string, ctx Context) []Match {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []Match
	for _, s := range c.signatures {
		if s.Pattern == nil {
			continue
		}
		loc := s.Pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		m := Match{Signature: s, Excerpt: excerpt(text, loc[0], loc[1])}
		if s.Advice != nil {
			m.Advice = s.Advice(ctx)
		}
		matches = append(matches, m)
	}
	return matches
}

// Advise classifies text and writes one warning line per match to w.
// Advice goes to the side channel only; the caller's result text and exit
// code stay untouched.
func (c *Classifier) Advise(w io.Writer, text string, ctx Context) []Match {
	matches := c.Classify(text, ctx)
	if w == nil {
		return matches
	}
	for _, m := range matches {
		fmt.Fprintf(w, "warning: %s\n", m.Advice)
	}
	return matches
}

// excerpt returns the line containing the match
func excerpt(text string, start, end int) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := strings.IndexByte(text[end:], '\n')
	if lineEnd < 0 {
		return strings.TrimSpace(text[lineStart:])
	}
	return strings.TrimSpace(text[lineStart : end+lineEnd])
}
