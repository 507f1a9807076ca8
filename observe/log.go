package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dcshock/hookpipe/pipeline"
)

// LogHook returns a hook that writes one line per finished run: info for
// successful runs, warn for failed ones.
func LogHook(log zerolog.Logger) pipeline.HookFunc {
	return func(_ context.Context, st *pipeline.State, _ pipeline.Options) error {
		ev := log.Info()
		if !st.Valid() {
			ev = log.Warn().Err(st.Err())
		}
		ev.Str("run_id", st.RunID()).
			Str("pipeline", st.Pipeline()).
			Bool("valid", st.Valid()).
			Strs("steps", st.StepNames()).
			Dur("duration", st.Duration()).
			Msg("pipeline run")
		return nil
	}
}

// LogObserver returns a StepObserver that logs every invoked step at debug
// level and failing steps at warn.
func LogObserver(log zerolog.Logger) pipeline.StepObserver {
	return pipeline.ObserverFuncs{
		Before: func(_ context.Context, run pipeline.RunInfo, step pipeline.StepRef, _ interface{}) {
			log.Debug().
				Str("run_id", run.RunID).
				Str("pipeline", run.Pipeline).
				Str("step", step.Name).
				Int("index", step.Index).
				Msg("step started")
		},
		After: func(_ context.Context, run pipeline.RunInfo, step pipeline.StepRef, res pipeline.Result, d time.Duration) {
			ev := log.Debug()
			if res.IsErr() {
				ev = log.Warn().Err(res.Error())
			}
			ev.Str("run_id", run.RunID).
				Str("pipeline", run.Pipeline).
				Str("step", step.Name).
				Int("index", step.Index).
				Dur("duration", d).
				Msg("step finished")
		},
	}
}
