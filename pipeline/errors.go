package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidated is the error recorded when a step returns Invalid().
var ErrInvalidated = errors.New("pipeline invalidated")

// Engine faults. These indicate a bug in how a pipeline was built, never a
// problem with the input data. Match them with errors.Is.
var (
	ErrContractViolation = errors.New("step contract violation")
	ErrInvalidDefinition = errors.New("invalid pipeline definition")
	ErrHookFailed        = errors.New("hook failed")
)

// ContractError is returned when a step returns something other than Ok, Err
// or Invalid. The run is aborted at that step: no later step, error handler or
// hook runs.
type ContractError struct {
	Pipeline string
	Step     StepRef
	Result   Result
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("pipeline %q: step %d (%s) returned %v: %v", e.Pipeline, e.Step.Index, e.Step.Name, e.Result, ErrContractViolation)
}

func (e *ContractError) Unwrap() error { return ErrContractViolation }

// DefinitionError is returned before any step runs when a pipeline cannot be
// resolved or is malformed (unknown name, nil step or hook function).
type DefinitionError struct {
	Pipeline string
	Reason   string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("pipeline %q: %v: %s", e.Pipeline, ErrInvalidDefinition, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

func definitionErrorf(name, format string, args ...interface{}) *DefinitionError {
	return &DefinitionError{Pipeline: name, Reason: fmt.Sprintf(format, args...)}
}

// HookError is returned when a synchronous hook returns an error. The pipeline
// outcome was already decided; State holds it.
type HookError struct {
	Hook  string
	State *State
	Err   error
}

func (e *HookError) Error() string {
	var name string
	if e.State != nil {
		name = e.State.Pipeline()
	}
	return fmt.Sprintf("pipeline %q: sync hook %q: %v", name, e.Hook, e.Err)
}

// Unwrap exposes both the hook's own error and ErrHookFailed.
func (e *HookError) Unwrap() []error { return []error{ErrHookFailed, e.Err} }

// IsFault reports whether err is an engine fault rather than a pipeline outcome.
func IsFault(err error) bool {
	return errors.Is(err, ErrContractViolation) || errors.Is(err, ErrInvalidDefinition) || errors.Is(err, ErrHookFailed)
}
