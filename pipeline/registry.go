package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps pipeline names to definitions. Register validates and stores a
// private copy, so every lookup of a name returns the same lists. Safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

// Register adds p under p.Name. Unnamed steps and hooks get positional names
// ("step-0", "hook-1"). Registering a name twice is an error.
func (r *Registry) Register(p *Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c := p.clone()
	for i := range c.Steps {
		if c.Steps[i].Name == "" {
			c.Steps[i].Name = fmt.Sprintf("step-%d", i)
		}
	}
	nameHooks(c.SyncHooks, "sync")
	nameHooks(c.AsyncHooks, "async")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pipelines == nil {
		r.pipelines = make(map[string]*Pipeline)
	}
	if _, exists := r.pipelines[c.Name]; exists {
		return definitionErrorf(c.Name, "already registered")
	}
	r.pipelines[c.Name] = c
	return nil
}

// MustRegister is like Register but panics on error. Use it for definitions
// wired at startup.
func (r *Registry) MustRegister(p *Pipeline) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

func nameHooks(hooks []Hook, kind string) {
	for i := range hooks {
		if hooks[i].Name == "" {
			hooks[i].Name = fmt.Sprintf("%s-hook-%d", kind, i)
		}
	}
}

// Lookup returns a copy of the definition registered under name. Changing the
// copy does not affect later runs.
func (r *Registry) Lookup(name string) (*Pipeline, bool) {
	p, ok := r.get(name)
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

func (r *Registry) get(name string) (*Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[name]
	return p, ok
}

// Names returns the registered pipeline names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pipelines))
	for n := range r.pipelines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run resolves name and runs it. An unknown name yields a *DefinitionError
// before anything runs.
func (r *Registry) Run(ctx context.Context, name string, input interface{}, opts Options) (*State, error) {
	p, ok := r.get(name)
	if !ok {
		return nil, definitionErrorf(name, "not registered")
	}
	return p.Run(ctx, input, opts)
}

// Execute resolves name and executes it; see Pipeline.Execute.
func (r *Registry) Execute(ctx context.Context, name string, input interface{}, opts Options) (Result, error) {
	p, ok := r.get(name)
	if !ok {
		return Result{}, definitionErrorf(name, "not registered")
	}
	return p.Execute(ctx, input, opts)
}
