package handlers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
)

var ErrHandlerExists = errors.New("handler already registered")

// Registry is the name -> handler table consulted for dynamic content.
// Names are the last path segment of a request URI.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]core.Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]core.Handler)}
}

// Builtin returns a registry holding the bundled handlers.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister("TimeStampPage", &TimeStampPage{})
	r.MustRegister("ParamEcho", ParamEcho{})
	return r
}

func (r *Registry) Register(name string, h core.Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("invalid handler registration %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) MustRegister(name string, h core.Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (core.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
