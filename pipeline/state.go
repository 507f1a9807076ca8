package pipeline

import "time"

// StepRef identifies a step within a pipeline: its position and name. It is
// used for logging and inspection only.
type StepRef struct {
	Index int
	Name  string
}

// State records the progress of one pipeline run. Steps advance it one at a
// time; once sealed it is handed to the error handler and hooks, which can only
// read it. Exported accessors never mutate.
//
// Invariants: Valid() is false exactly when Err() is non-nil; ExecutedSteps
// only grows, in invocation order; after the first failure nothing else is
// recorded.
type State struct {
	runID    string
	pipeline string

	initial  interface{}
	value    interface{}
	valid    bool
	err      error
	executed []StepRef

	startedAt  time.Time
	finishedAt time.Time
	sealed     bool
}

func newState(runID, pipeline string, initial interface{}) *State {
	return &State{
		runID:     runID,
		pipeline:  pipeline,
		initial:   initial,
		value:     initial,
		valid:     true,
		startedAt: time.Now(),
	}
}

// advance records a successful step. No-op once the state is invalid or sealed.
func (s *State) advance(ref StepRef, value interface{}) bool {
	if !s.valid || s.sealed {
		return false
	}
	s.value = value
	s.executed = append(s.executed, ref)
	return true
}

// invalidate records the failing step and its error. It flips valid exactly
// once; later calls are no-ops.
func (s *State) invalidate(ref StepRef, err error) bool {
	if !s.valid || s.sealed {
		return false
	}
	if err == nil {
		err = ErrInvalidated
	}
	s.executed = append(s.executed, ref)
	s.valid = false
	s.err = err
	return true
}

func (s *State) seal() {
	if s.sealed {
		return
	}
	s.finishedAt = time.Now()
	s.sealed = true
}

// RunID is the unique id generated for this run.
func (s *State) RunID() string { return s.runID }

// Pipeline is the name of the pipeline that produced this state.
func (s *State) Pipeline() string { return s.pipeline }

// InitialValue is the value the run started with.
func (s *State) InitialValue() interface{} { return s.initial }

// Value is the current working value. For a failed run it is the value produced
// by the last successful step.
func (s *State) Value() interface{} { return s.value }

// Valid reports whether every invoked step succeeded.
func (s *State) Valid() bool { return s.valid }

// Err is the error recorded by the failing step, or nil while valid.
func (s *State) Err() error { return s.err }

// ExecutedSteps returns a copy of the log of invoked steps, including the
// failing one.
func (s *State) ExecutedSteps() []StepRef {
	out := make([]StepRef, len(s.executed))
	copy(out, s.executed)
	return out
}

// StepNames returns the names of the executed steps in order.
func (s *State) StepNames() []string {
	out := make([]string, len(s.executed))
	for i, ref := range s.executed {
		out[i] = ref.Name
	}
	return out
}

// Sealed reports whether step execution has finished.
func (s *State) Sealed() bool { return s.sealed }

// StartedAt is when the run began.
func (s *State) StartedAt() time.Time { return s.startedAt }

// FinishedAt is when step execution finished; zero until sealed.
func (s *State) FinishedAt() time.Time { return s.finishedAt }

// Duration is the time spent executing steps.
func (s *State) Duration() time.Duration {
	if s.finishedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.finishedAt.Sub(s.startedAt)
}

// Result converts the state to the public outcome: Ok(value) when valid,
// Err(error) otherwise.
func (s *State) Result() Result {
	if s.valid {
		return Ok(s.value)
	}
	return Err(s.err)
}
