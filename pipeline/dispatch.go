package pipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// dispatch runs the finalization phase for a sealed state, in a fixed order:
// the error handler (only for an invalid state), then async hooks are
// launched, then sync hooks run in declaration order. The first sync hook
// error stops the remaining sync hooks and is returned as a *HookError.
// Panics from the error handler or sync hooks are not recovered.
func (p *Pipeline) dispatch(ctx context.Context, st *State, opts Options, log zerolog.Logger) error {
	if !st.Valid() && p.OnError != nil {
		ret := p.OnError(ctx, st, opts)
		log.Debug().Err(st.Err()).Interface("handler_result", ret).Msg("error handler invoked")
	}

	if len(p.AsyncHooks) > 0 {
		launcher := p.launcher(log)
		// Async hooks outlive the call, so they must not inherit its cancellation.
		asyncCtx := context.WithoutCancel(ctx)
		for _, hook := range p.AsyncHooks {
			launcher.Launch(asyncCtx, Task{
				Name: p.Name + "/" + hook.Name,
				Run: func(ctx context.Context) error {
					return hook.Run(ctx, st, opts)
				},
			})
		}
	}

	for _, hook := range p.SyncHooks {
		if err := hook.Run(ctx, st, opts); err != nil {
			log.Error().Err(err).Str("hook", hook.Name).Msg("sync hook failed")
			return &HookError{Hook: hook.Name, State: st, Err: err}
		}
	}
	return nil
}

func (p *Pipeline) launcher(log zerolog.Logger) Launcher {
	if p.Launcher != nil {
		return p.Launcher
	}
	return GoLauncher{Logger: &log}
}
