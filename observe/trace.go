package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dcshock/hookpipe/pipeline"
)

const instrumentationName = "github.com/dcshock/hookpipe/observe"

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// WithTracing wraps a step with OpenTelemetry span creation. Each invocation
// creates a span named "{prefix}.{stepName}". Err and Invalid results mark the
// span as failed. A nil tracer uses Tracer().
func WithTracing(step pipeline.Step, tracer trace.Tracer, prefix string) pipeline.Step {
	if tracer == nil {
		tracer = Tracer()
	}
	inner := step.Run
	spanName := prefix + "." + step.Name
	step.Run = func(ctx context.Context, value interface{}, opts pipeline.Options) pipeline.Result {
		ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
			attribute.String("pipeline.step", step.Name),
		))
		defer span.End()

		res := inner(ctx, value, opts)
		if res.IsErr() {
			span.RecordError(res.Error())
			span.SetStatus(codes.Error, res.Error().Error())
		}
		return res
	}
	return step
}

// TraceHook returns a hook that records one span per finished run, covering
// the time from the first step to sealing. A nil tracer uses Tracer().
func TraceHook(tracer trace.Tracer) pipeline.HookFunc {
	if tracer == nil {
		tracer = Tracer()
	}
	return func(ctx context.Context, st *pipeline.State, _ pipeline.Options) error {
		_, span := tracer.Start(ctx, "pipeline."+st.Pipeline(),
			trace.WithTimestamp(st.StartedAt()),
			trace.WithAttributes(
				attribute.String("pipeline.name", st.Pipeline()),
				attribute.String("pipeline.run_id", st.RunID()),
				attribute.Bool("pipeline.valid", st.Valid()),
				attribute.StringSlice("pipeline.steps", st.StepNames()),
			),
		)
		if !st.Valid() {
			span.RecordError(st.Err())
			span.SetStatus(codes.Error, st.Err().Error())
		}
		span.End(trace.WithTimestamp(st.FinishedAt()))
		return nil
	}
}
