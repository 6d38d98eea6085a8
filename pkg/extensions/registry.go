package extensions

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// The registry maps scope tokens to the snapshot of the compilation that
// installed them. A compiler instantiates the registrar itself, so the
// snapshot cannot be injected; only the token travels, as a plugin option.
var (
	scopes = make(map[string]Snapshot)
	mu     sync.RWMutex
	logger logrus.FieldLogger = logrus.StandardLogger()
)

// SetLogger replaces the registry logger
func SetLogger(l logrus.FieldLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func registryLogger() logrus.FieldLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Scope is an installed snapshot. Close it exactly once, with defer, when the
// compiler invocation that needed it returns.
type Scope struct {
	token string
	once  sync.Once
}

// Install registers a snapshot under a fresh token
func Install(s Snapshot) *Scope {
	return InstallToken(uuid.NewString(), s)
}

// InstallToken registers a snapshot under a caller-chosen token. Installing a
// token that is already present is a programming error and panics.
func InstallToken(token string, s Snapshot) *Scope {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := scopes[token]; exists {
		panic(fmt.Sprintf("extensions: scope %s installed twice", token))
	}
	scopes[token] = s
	return &Scope{token: token}
}

// Token returns the scope token
func (s *Scope) Token() string { return s.token }

// Close clears the scope. Further calls do nothing.
func (s *Scope) Close() {
	s.once.Do(func() { Clear(s.token) })
}

// Current returns the snapshot installed under token. A registrar activated
// outside a compilation (no token, or an unknown one) gets an empty snapshot
// and a warning instead of a failure.
func Current(token string) Snapshot {
	mu.RLock()
	s, ok := scopes[token]
	mu.RUnlock()

	if !ok {
		registryLogger().WithField("scope", token).Warn(
			"No extension snapshot installed for this compiler invocation; the main registrar was probably activated outside a compilation and will register nothing")
		return Snapshot{}
	}
	return s
}

// Clear removes the snapshot installed under token
func Clear(token string) {
	mu.Lock()
	defer mu.Unlock()
	delete(scopes, token)
}

// Installed returns the number of installed scopes
func Installed() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(scopes)
}
