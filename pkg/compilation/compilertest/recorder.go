package compilertest

import "sync"

// Call is one recorded invocation
type Call struct {
	Compiler string
	Args     []string
	Dir      string
}

// Recorder collects the invocations of the fakes sharing it
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) record(compiler string, args []string, dir string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Compiler: compiler, Args: append([]string(nil), args...), Dir: dir})
}

// All returns every recorded invocation in order
func (r *Recorder) All() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Calls returns the invocations of one compiler
func (r *Recorder) Calls(compiler string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Compiler == compiler {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded invocations
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
