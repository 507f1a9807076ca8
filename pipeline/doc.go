// Package pipeline runs a linear chain of steps over an evolving value and then
// hands the outcome to finalization hooks.
//
// Each step returns a Result: Ok(v) makes v the current value, Err(e) halts the
// pipeline with e, and Invalid() halts it with the generic ErrInvalidated.
// After the first failure the remaining steps are skipped; they are neither
// invoked nor recorded in State.ExecutedSteps.
//
// Every run, successful or not, then finishes in a fixed order:
//
//  1. OnError, if the run failed and a handler is set.
//  2. AsyncHooks are launched through the pipeline's Launcher and not awaited.
//  3. SyncHooks run in declaration order on the caller's goroutine.
//
// The error handler and all hooks see the same sealed *State.
//
//	p := &pipeline.Pipeline{
//	    Name: "score",
//	    Steps: []pipeline.Step{
//	        pipeline.NewStep("inc", pipeline.Transform(func(ctx context.Context, n int) (int, error) { return n + 1, nil })),
//	        pipeline.NewStep("double", pipeline.Transform(func(ctx context.Context, n int) (int, error) { return n * 2, nil })),
//	    },
//	    SyncHooks: []pipeline.Hook{pipeline.NewHook("audit", audit)},
//	}
//	res, err := p.Execute(ctx, 3, pipeline.Options{}) // res is Ok(8)
//
// # Outcomes and faults
//
// Execute separates three outcomes. Ok and Err results are ordinary pipeline
// outcomes. A non-nil error is an engine fault that points at a bug in how the
// pipeline was built:
//
//   - *ContractError: a step returned a zero Result or Err(nil). The run is
//     aborted at that step and no hooks run.
//   - *DefinitionError: the pipeline is malformed or the name is not
//     registered. Nothing runs.
//   - *HookError: a sync hook returned an error. Remaining sync hooks are
//     skipped; the pipeline outcome is still available.
//
// Panics in steps, the error handler and sync hooks are not recovered. Async
// hooks are isolated by the Launcher: their errors and panics are logged and
// never reach the caller.
//
// # Async hooks
//
// Async hooks receive a context detached from the caller's cancellation. Use a
// single Supervisor per process as the Launcher to bound their concurrency and
// to drain them with Shutdown before exit.
package pipeline
