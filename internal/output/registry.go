// Package output declares the output-handler surface the pipeline inspects.
// Handlers themselves (the ~30 per-action mutation modules) live with the
// execution side; admission control only needs their descriptors, most
// importantly whether an output creates pull requests.
package output

import (
	"fmt"
	"sort"
)

// Handler describes one output type an agent may produce.
type Handler interface {
	// Type is the identifier used in an agent's outputs list.
	Type() string
	// CreatesPullRequest reports whether running this output opens a PR,
	// which subjects the agent to open-PR backpressure.
	CreatesPullRequest() bool
}

// Registry is an explicit, constructed handler set passed by reference into
// the pipeline. There is no process-wide registry; callers build one and own
// it.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler; duplicate types are an error so wiring mistakes
// surface at startup rather than at check time.
func (r *Registry) Register(h Handler) error {
	if _, exists := r.handlers[h.Type()]; exists {
		return fmt.Errorf("output handler %q already registered", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

func (r *Registry) Lookup(typ string) (Handler, bool) {
	h, ok := r.handlers[typ]
	return h, ok
}

// Types returns the registered handler types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CreatesPullRequest reports whether any of the given output types is a
// PR-creating handler. Unknown types are ignored; the execution side rejects
// those separately.
func (r *Registry) CreatesPullRequest(outputs []string) bool {
	for _, typ := range outputs {
		if h, ok := r.handlers[typ]; ok && h.CreatesPullRequest() {
			return true
		}
	}
	return false
}

// descriptor is the inert Handler used for built-in output types.
type descriptor struct {
	typ       string
	createsPR bool
}

func (d descriptor) Type() string             { return d.typ }
func (d descriptor) CreatesPullRequest() bool { return d.createsPR }

// NewDescriptor builds a plain Handler descriptor for callers registering
// output types without in-process behavior.
func NewDescriptor(typ string, createsPR bool) Handler {
	return descriptor{typ: typ, createsPR: createsPR}
}

// DefaultRegistry returns a registry preloaded with the built-in output
// types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []descriptor{
		{typ: "pull-request", createsPR: true},
		{typ: "label", createsPR: false},
		{typ: "comment", createsPR: false},
		{typ: "issue", createsPR: false},
		{typ: "merge", createsPR: false},
	} {
		// Register cannot fail here: types are distinct literals.
		_ = r.Register(d)
	}
	return r
}
