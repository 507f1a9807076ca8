package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dcshock/hookpipe/pipeline"
)

// BuildOptions configures the runtime side of pipelines built from config.
// The same Launcher, Observer and Logger are shared by every built pipeline.
type BuildOptions struct {
	// Launcher runs async hooks, typically a process-wide *pipeline.Supervisor.
	Launcher pipeline.Launcher

	// Observer is attached to every built pipeline.
	Observer pipeline.StepObserver

	// Logger receives run-level logs.
	Logger *zerolog.Logger

	// WrapStep, if set, is applied to every step after timeouts. Use it to add
	// tracing or metrics around steps.
	WrapStep func(pipelineName string, step pipeline.Step) pipeline.Step
}

// BuildPipeline builds a pipeline.Pipeline from config and registry. Every
// step, hook and error handler name in cfg must be registered. The result is
// validated before it is returned.
func BuildPipeline(reg *Registry, cfg *PipelineConfig, opts *BuildOptions) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if opts == nil {
		opts = &BuildOptions{}
	}
	p := &pipeline.Pipeline{
		Name:     cfg.Name,
		Defaults: pipeline.NewOptions(cfg.Options),
		Launcher: opts.Launcher,
		Observer: opts.Observer,
		Logger:   opts.Logger,
	}
	for i, ref := range cfg.Steps {
		if ref.Name == "" {
			return nil, invalidf(cfg.Name, "step %d: name required", i)
		}
		fn, ok := reg.Get(ref.Name)
		if !ok {
			return nil, invalidf(cfg.Name, "step %d: %q not in registry", i, ref.Name)
		}
		if ref.Timeout > 0 {
			fn = pipeline.WithTimeout(fn, ref.Timeout.Duration())
		}
		step := pipeline.NewStep(ref.StepName(), fn)
		if opts.WrapStep != nil {
			step = opts.WrapStep(cfg.Name, step)
		}
		p.Steps = append(p.Steps, step)
	}
	var err error
	if p.SyncHooks, err = lookupHooks(reg, cfg.Name, "sync hook", cfg.SyncHooks); err != nil {
		return nil, err
	}
	if p.AsyncHooks, err = lookupHooks(reg, cfg.Name, "async hook", cfg.AsyncHooks); err != nil {
		return nil, err
	}
	if cfg.ErrorHandler != "" {
		h, ok := reg.ErrorHandler(cfg.ErrorHandler)
		if !ok {
			return nil, invalidf(cfg.Name, "error handler %q not in registry", cfg.ErrorHandler)
		}
		p.OnError = h
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// invalidf reports a definition that cannot be built from the registry.
func invalidf(name, format string, args ...interface{}) *pipeline.DefinitionError {
	return &pipeline.DefinitionError{Pipeline: name, Reason: fmt.Sprintf(format, args...)}
}

func lookupHooks(reg *Registry, pipelineName, kind string, names []string) ([]pipeline.Hook, error) {
	if len(names) == 0 {
		return nil, nil
	}
	hooks := make([]pipeline.Hook, 0, len(names))
	for i, name := range names {
		fn, ok := reg.Hook(name)
		if !ok {
			return nil, invalidf(pipelineName, "%s %d: %q not in registry", kind, i, name)
		}
		hooks = append(hooks, pipeline.NewHook(name, fn))
	}
	return hooks, nil
}

// BuildAllPipelines builds a pipeline.Pipeline for each entry in f. Keys are
// pipeline names. If a pipeline config's Name is empty, the map key is used.
func BuildAllPipelines(reg *Registry, f *File, opts *BuildOptions) (map[string]*pipeline.Pipeline, error) {
	if f == nil {
		return nil, fmt.Errorf("file is nil")
	}
	out := make(map[string]*pipeline.Pipeline, len(f.Pipelines))
	for _, name := range sortedKeys(f.Pipelines) {
		cfg := f.Pipelines[name]
		if cfg.Name == "" {
			cfg.Name = name
		}
		p, err := BuildPipeline(reg, &cfg, opts)
		if err != nil {
			var de *pipeline.DefinitionError
			if errors.As(err, &de) {
				return nil, err
			}
			return nil, fmt.Errorf("pipeline %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// BuildRegistry builds every pipeline in f and registers it with a new
// pipeline.Registry. Nothing is registered if any pipeline fails to build.
func BuildRegistry(reg *Registry, f *File, opts *BuildOptions) (*pipeline.Registry, error) {
	built, err := BuildAllPipelines(reg, f, opts)
	if err != nil {
		return nil, err
	}
	out := pipeline.NewRegistry()
	for _, name := range sortedKeys(built) {
		if err := out.Register(built[name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
