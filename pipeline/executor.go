package pipeline

import (
	"context"
	"time"
)

// runSteps folds st through steps in order. Once a step fails, the remaining
// steps are skipped without being invoked or recorded. A malformed Result
// aborts the fold with a *ContractError.
func runSteps(ctx context.Context, st *State, steps []Step, opts Options, obs StepObserver) error {
	run := RunInfo{RunID: st.runID, Pipeline: st.pipeline}
	for i, step := range steps {
		if !st.valid {
			continue
		}
		ref := StepRef{Index: i, Name: step.Name}
		if obs != nil {
			obs.BeforeStep(ctx, run, ref, st.value)
		}
		start := time.Now()
		res := step.Run(ctx, st.value, opts)
		if !res.wellFormed() {
			return &ContractError{Pipeline: st.pipeline, Step: ref, Result: res}
		}
		if obs != nil {
			obs.AfterStep(ctx, run, ref, res, time.Since(start))
		}
		switch res.kind {
		case kindOk:
			st.advance(ref, res.value)
		case kindErr:
			st.invalidate(ref, res.err)
		case kindInvalid:
			st.invalidate(ref, ErrInvalidated)
		}
	}
	return nil
}
