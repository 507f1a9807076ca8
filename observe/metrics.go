package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dcshock/hookpipe/pipeline"
)

// Meter returns the package meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds OpenTelemetry instruments for pipeline runs and steps.
type Metrics struct {
	runTotal     metric.Int64Counter
	runDuration  metric.Float64Histogram
	stepTotal    metric.Int64Counter
	stepDuration metric.Float64Histogram
}

// NewMetrics creates the pipeline instruments on meter. A nil meter uses Meter().
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = Meter()
	}
	runTotal, err := meter.Int64Counter("pipeline.run.total",
		metric.WithDescription("Total number of pipeline runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("pipeline.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.duration histogram: %w", err)
	}

	stepTotal, err := meter.Int64Counter("pipeline.step.total",
		metric.WithDescription("Total number of invoked steps by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.step.total counter: %w", err)
	}

	stepDuration, err := meter.Float64Histogram("pipeline.step.duration",
		metric.WithDescription("Duration of steps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.step.duration histogram: %w", err)
	}

	return &Metrics{
		runTotal:     runTotal,
		runDuration:  runDuration,
		stepTotal:    stepTotal,
		stepDuration: stepDuration,
	}, nil
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, st *pipeline.State) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", st.Pipeline()),
		attribute.String("status", status(st.Valid())),
	))
	m.runDuration.Record(ctx, st.Duration().Seconds(), metric.WithAttributes(
		attribute.String("pipeline", st.Pipeline()),
	))
}

// RecordStep records one step invocation.
func (m *Metrics) RecordStep(ctx context.Context, pipelineName, step string, ok bool, duration time.Duration) {
	m.stepTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", pipelineName),
		attribute.String("step", step),
		attribute.String("status", status(ok)),
	))
	m.stepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipelineName),
		attribute.String("step", step),
	))
}

// Hook returns a hook that records every finished run.
func (m *Metrics) Hook() pipeline.HookFunc {
	return func(ctx context.Context, st *pipeline.State, _ pipeline.Options) error {
		m.RecordRun(ctx, st)
		return nil
	}
}

// WithMetrics wraps a step with count and duration recording.
func WithMetrics(step pipeline.Step, m *Metrics, pipelineName string) pipeline.Step {
	inner := step.Run
	step.Run = func(ctx context.Context, value interface{}, opts pipeline.Options) pipeline.Result {
		start := time.Now()
		res := inner(ctx, value, opts)
		m.RecordStep(ctx, pipelineName, step.Name, res.IsOk(), time.Since(start))
		return res
	}
	return step
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
