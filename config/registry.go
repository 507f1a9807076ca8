package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dcshock/hookpipe/pipeline"
)

// Registry maps names used in pipeline definitions to step, hook and error
// handler functions. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	steps    map[string]pipeline.StepFunc
	hooks    map[string]pipeline.HookFunc
	handlers map[string]pipeline.ErrorHandlerFunc
}

// NewRegistry returns an empty function registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:    make(map[string]pipeline.StepFunc),
		hooks:    make(map[string]pipeline.HookFunc),
		handlers: make(map[string]pipeline.ErrorHandlerFunc),
	}
}

// Register adds a step function under name. Overwrites any existing registration.
func (r *Registry) Register(name string, step pipeline.StepFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = step
}

// RegisterHook adds a hook function under name. The same function may be used
// as a sync or async hook.
func (r *Registry) RegisterHook(name string, hook pipeline.HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = hook
}

// RegisterErrorHandler adds an error handler under name.
func (r *Registry) RegisterErrorHandler(name string, handler pipeline.ErrorHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get returns the step for name, or nil and false if not found.
func (r *Registry) Get(name string) (pipeline.StepFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	return s, ok
}

// MustGet returns the step for name, or panics if not found.
func (r *Registry) MustGet(name string) pipeline.StepFunc {
	s, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("config: step %q not registered", name))
	}
	return s
}

// Hook returns the hook for name.
func (r *Registry) Hook(name string) (pipeline.HookFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	return h, ok
}

// ErrorHandler returns the error handler for name.
func (r *Registry) ErrorHandler(name string) (pipeline.ErrorHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.steps)
}

// HookNames returns the registered hook names, sorted.
func (r *Registry) HookNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.hooks)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
