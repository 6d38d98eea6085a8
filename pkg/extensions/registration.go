package extensions

import "fmt"

// Option is one named value for a plugin
type Option struct {
	Name  string
	Value string
}

// Registration pairs an extension with its activation metadata. Options
// addressed to a plugin id no command line processor claims are inert.
type Registration struct {
	Handle   Handle
	PluginID string
	Options  []Option
}

// Register creates a registration. For command line processors an empty
// plugin id defaults to the processor's own id.
func Register(h Handle, pluginID string, opts ...Option) Registration {
	if pluginID == "" {
		if clp, ok := h.CommandLineProcessor(); ok {
			pluginID = clp.PluginID()
		}
	}
	return Registration{Handle: h, PluginID: pluginID, Options: opts}
}

// Opt creates an option
func Opt(name, value string) Option {
	return Option{Name: name, Value: value}
}

// Validate checks a registration can be transported to the registrar
func (r Registration) Validate() error {
	if r.Handle.IsZero() {
		return ErrEmptyHandle
	}
	if r.PluginID == "" && len(r.Options) == 0 {
		return nil
	}
	if err := ValidatePluginID(r.PluginID); err != nil {
		return err
	}
	for _, opt := range r.Options {
		if opt.Name == "" {
			return fmt.Errorf("%w: empty option name for plugin %s", ErrUnknownOption, r.PluginID)
		}
	}
	return nil
}

// Snapshot is the extension configuration of one compilation, installed for
// the duration of a compiler invocation
type Snapshot struct {
	Registrations []Registration
}

// NewSnapshot copies registrations into a snapshot
func NewSnapshot(regs []Registration) Snapshot {
	return Snapshot{Registrations: append([]Registration(nil), regs...)}
}

// IsEmpty reports whether the snapshot carries no extensions
func (s Snapshot) IsEmpty() bool {
	return len(s.Registrations) == 0
}

// Handles returns the handles of one kind in registration order
func (s Snapshot) Handles(kind HandleKind) []Handle {
	var handles []Handle
	for _, r := range s.Registrations {
		if r.Handle.Kind() == kind {
			handles = append(handles, r.Handle)
		}
	}
	return handles
}

// HasProcessors reports whether any annotation or symbol processor is registered
func (s Snapshot) HasProcessors() bool {
	for _, r := range s.Registrations {
		if r.Handle.IsProcessor() {
			return true
		}
	}
	return false
}

// EncodedOptions returns every registration option with its name encoded
// against the owning plugin id, in registration order
func (s Snapshot) EncodedOptions() []Option {
	var opts []Option
	for _, r := range s.Registrations {
		for _, opt := range r.Options {
			opts = append(opts, Option{Name: EncodeOptionName(r.PluginID, opt.Name), Value: opt.Value})
		}
	}
	return opts
}
