package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dcshock/hookpipe/config"
	"github.com/dcshock/hookpipe/httpsteps"
	"github.com/dcshock/hookpipe/observe"
	"github.com/dcshock/hookpipe/pipeline"
)

// registerBuiltins registers the steps, hooks and error handlers that
// pipelines.yaml can refer to.
func registerBuiltins(reg *config.Registry, a *app) {
	// steps
	reg.Register("add", arith("add", func(v, n float64) float64 { return v + n }))
	reg.Register("mul", arith("mul", func(v, n float64) float64 { return v * n }))
	reg.Register("fail", func(context.Context, interface{}, pipeline.Options) pipeline.Result {
		return pipeline.Invalid()
	})
	reg.Register("reject", func(_ context.Context, _ interface{}, opts pipeline.Options) pipeline.Result {
		return pipeline.Err(errors.New(opts.String("reason", "rejected")))
	})
	reg.Register("nonempty", pipeline.Validate(func(s []interface{}) bool { return len(s) > 0 }, "input must be a non-empty list"))
	reg.Register("strings.coerce", pipeline.Transform(coerceToStrings))
	reg.Register("strings.upper", pipeline.MapSlice(func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	}))
	reg.Register("http.fetch", httpsteps.Fetch(nil))
	reg.Register("json.parse", httpsteps.ParseJSON())

	// hooks
	reg.RegisterHook("log", observe.LogHook(a.log))
	reg.RegisterHook("print", printHook(a))
	reg.RegisterHook("record", recordHook(a))
	reg.RegisterHook("metrics", func(ctx context.Context, st *pipeline.State, opts pipeline.Options) error {
		if a.metrics == nil {
			return nil
		}
		return a.metrics.Hook()(ctx, st, opts)
	})
	reg.RegisterHook("trace", func(ctx context.Context, st *pipeline.State, opts pipeline.Options) error {
		if a.tracerProvider == nil {
			return nil
		}
		return observe.TraceHook(a.tracerProvider.Tracer("runpipe"))(ctx, st, opts)
	})

	// error handlers
	reg.RegisterErrorHandler("report", func(_ context.Context, st *pipeline.State, _ pipeline.Options) interface{} {
		a.log.Error().
			Err(st.Err()).
			Str("run_id", st.RunID()).
			Str("pipeline", st.Pipeline()).
			Strs("steps", st.StepNames()).
			Msg("pipeline failed")
		return fmt.Sprintf("reported %s", st.RunID())
	})
}

// arith returns a step applying op to the current number and the "n" option.
func arith(name string, op func(v, n float64) float64) pipeline.StepFunc {
	return func(_ context.Context, input interface{}, opts pipeline.Options) pipeline.Result {
		v, ok := toFloat(input)
		if !ok {
			return pipeline.Err(fmt.Errorf("%s: expected number, got %T", name, input))
		}
		return pipeline.Ok(op(v, opts.Float("n", 0)))
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// coerceToStrings converts []interface{} (decoded JSON input) to []string.
func coerceToStrings(_ context.Context, input []interface{}) ([]string, error) {
	out := make([]string, 0, len(input))
	for i, v := range input {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("coerce: [%d] expected string, got %T", i, v)
		}
		out = append(out, s)
	}
	return out, nil
}

// printHook writes one line per run to the command's output.
func printHook(a *app) pipeline.HookFunc {
	return func(_ context.Context, st *pipeline.State, _ pipeline.Options) error {
		if !st.Valid() {
			_, err := fmt.Fprintf(a.out, "%s %s failed after %v: %v\n", st.Pipeline(), st.RunID(), st.StepNames(), st.Err())
			return err
		}
		value, err := json.Marshal(st.Value())
		if err != nil {
			value = []byte(fmt.Sprint(st.Value()))
		}
		_, err = fmt.Fprintf(a.out, "%s %s ok: %s\n", st.Pipeline(), st.RunID(), value)
		return err
	}
}

// recordHook saves runs to the store; without a store it does nothing.
func recordHook(a *app) pipeline.HookFunc {
	return func(ctx context.Context, st *pipeline.State, opts pipeline.Options) error {
		if a.store == nil {
			a.log.Debug().Str("run_id", st.RunID()).Msg("store disabled, run not recorded")
			return nil
		}
		return a.store.Hook()(ctx, st, opts)
	}
}
