package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StepFunc advances the pipeline's value or declares failure. It receives the
// current value and the run's options and must return Ok, Err or Invalid.
type StepFunc func(ctx context.Context, value interface{}, opts Options) Result

// Step is a named StepFunc. The name is used in logs and in State.ExecutedSteps.
type Step struct {
	Name string
	Run  StepFunc
}

// NewStep returns a Step.
func NewStep(name string, fn StepFunc) Step { return Step{Name: name, Run: fn} }

// HookFunc observes the final state of a run. It must treat st as read-only.
// For sync hooks a non-nil error is surfaced to the caller as a *HookError;
// for async hooks it is only logged by the Launcher.
type HookFunc func(ctx context.Context, st *State, opts Options) error

// Hook is a named HookFunc.
type Hook struct {
	Name string
	Run  HookFunc
}

// NewHook returns a Hook.
func NewHook(name string, fn HookFunc) Hook { return Hook{Name: name, Run: fn} }

// ErrorHandlerFunc is called once, before any hook, when a run ends invalid.
// Its return value is informational and only logged.
type ErrorHandlerFunc func(ctx context.Context, st *State, opts Options) interface{}

// Pipeline is a pipeline definition: a linear chain of steps and the hooks that
// observe its outcome. Steps run in order on the caller's goroutine, stopping
// at the first failure. Then OnError (for failures), AsyncHooks (launched,
// not awaited) and SyncHooks (in order) run against the same final State.
//
// Do not modify a Pipeline while it is executing; Registry.Register stores a
// private copy so registered definitions stay stable.
type Pipeline struct {
	Name       string
	Steps      []Step
	SyncHooks  []Hook
	AsyncHooks []Hook
	OnError    ErrorHandlerFunc

	// Defaults are merged under the options passed to Run/Execute.
	Defaults Options
	// Observer, if set, is called around every invoked step.
	Observer StepObserver
	// Launcher runs async hooks; GoLauncher is used when nil.
	Launcher Launcher
	// Logger receives run-level logs; nil disables logging.
	Logger *zerolog.Logger
}

// Validate checks that every step and hook has a function and that names are
// set. It returns a *DefinitionError.
func (p *Pipeline) Validate() error {
	if p == nil {
		return definitionErrorf("", "pipeline is nil")
	}
	if p.Name == "" {
		return definitionErrorf(p.Name, "name required")
	}
	for i, s := range p.Steps {
		if s.Run == nil {
			return definitionErrorf(p.Name, "step %d (%q) has no function", i, s.Name)
		}
	}
	for i, h := range p.SyncHooks {
		if h.Run == nil {
			return definitionErrorf(p.Name, "sync hook %d (%q) has no function", i, h.Name)
		}
	}
	for i, h := range p.AsyncHooks {
		if h.Run == nil {
			return definitionErrorf(p.Name, "async hook %d (%q) has no function", i, h.Name)
		}
	}
	return nil
}

// Run executes the pipeline with input as the initial value and returns the
// final State. A failing step is not an error: inspect State.Valid/Err or use
// Execute. The error return is reserved for engine faults: *DefinitionError
// (nothing ran), *ContractError (run aborted, no hooks ran; the state is nil) and
// *HookError (the state is returned alongside it).
func (p *Pipeline) Run(ctx context.Context, input interface{}, opts Options) (*State, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	opts = p.Defaults.Merge(opts)
	st := newState(uuid.New().String(), p.Name, input)
	log := nopIfNil(p.Logger).With().Str("pipeline", p.Name).Str("run_id", st.runID).Logger()
	log.Debug().Int("steps", len(p.Steps)).Msg("pipeline started")

	if err := runSteps(ctx, st, p.Steps, opts, p.Observer); err != nil {
		log.Error().Err(err).Msg("pipeline aborted")
		return nil, err
	}
	st.seal()

	ev := log.Debug()
	if !st.Valid() {
		ev = log.Info().Err(st.Err())
	}
	ev.Bool("valid", st.Valid()).Strs("executed", st.StepNames()).Dur("duration", st.Duration()).Msg("pipeline finished")

	if err := p.dispatch(ctx, st, opts, log); err != nil {
		return st, err
	}
	return st, nil
}

// Execute runs the pipeline and returns its outcome: Ok(final value) when every
// step succeeded, Err(error of the failing step) otherwise. The error return is
// only for engine faults, as in Run.
func (p *Pipeline) Execute(ctx context.Context, input interface{}, opts Options) (Result, error) {
	st, err := p.Run(ctx, input, opts)
	if st == nil {
		return Result{}, err
	}
	return st.Result(), err
}

// clone returns a copy whose step and hook lists are not shared with p.
func (p *Pipeline) clone() *Pipeline {
	c := *p
	c.Steps = append([]Step(nil), p.Steps...)
	c.SyncHooks = append([]Hook(nil), p.SyncHooks...)
	c.AsyncHooks = append([]Hook(nil), p.AsyncHooks...)
	return &c
}
