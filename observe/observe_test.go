package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dcshock/hookpipe/pipeline"
)

func inc() pipeline.Step {
	return pipeline.NewStep("inc", pipeline.Transform(func(_ context.Context, n int) (int, error) { return n + 1, nil }))
}

func reject(msg string) pipeline.Step {
	return pipeline.NewStep("reject", func(context.Context, interface{}, pipeline.Options) pipeline.Result {
		return pipeline.Err(errors.New(msg))
	})
}

func runPipeline(t *testing.T, p *pipeline.Pipeline, input interface{}) *pipeline.State {
	t.Helper()
	st, err := p.Run(context.Background(), input, pipeline.Options{})
	require.NoError(t, err)
	return st
}

func TestLogHook(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	p := &pipeline.Pipeline{
		Name:      "score",
		Steps:     []pipeline.Step{inc(), reject("too low")},
		SyncHooks: []pipeline.Hook{pipeline.NewHook("log", LogHook(log))},
	}
	st := runPipeline(t, p, 1)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"error":"too low"`)
	assert.Contains(t, out, `"run_id":"`+st.RunID()+`"`)
	assert.Contains(t, out, `"steps":["inc","reject"]`)
	assert.Contains(t, out, `"message":"pipeline run"`)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	p := &pipeline.Pipeline{
		Name:     "score",
		Steps:    []pipeline.Step{inc(), reject("nope"), inc()},
		Observer: LogObserver(log),
	}
	runPipeline(t, p, 1)

	out := buf.String()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"message":"step started"`)), "skipped steps are not observed")
	assert.Contains(t, out, `"step":"reject"`)
	assert.Contains(t, out, `"error":"nope"`)
}

func TestWithTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("test")

	p := &pipeline.Pipeline{
		Name: "traced",
		Steps: []pipeline.Step{
			WithTracing(inc(), tracer, "traced"),
			WithTracing(reject("bad"), tracer, "traced"),
		},
	}
	res, err := p.Execute(context.Background(), 1, pipeline.Options{})
	require.NoError(t, err)
	require.True(t, res.IsErr())
	assert.Equal(t, "bad", res.Error().Error())

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "traced.inc", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "traced.reject", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "bad", spans[1].Status().Description)
}

func TestTraceHook(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := &pipeline.Pipeline{
		Name:      "score",
		Steps:     []pipeline.Step{inc()},
		SyncHooks: []pipeline.Hook{pipeline.NewHook("trace", TraceHook(tp.Tracer("test")))},
	}
	st := runPipeline(t, p, 1)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "pipeline.score", span.Name())
	assert.WithinDuration(t, st.StartedAt(), span.StartTime(), 0)
	assert.WithinDuration(t, st.FinishedAt(), span.EndTime(), 0)
	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, st.RunID(), attrs["pipeline.run_id"])
	assert.Equal(t, "true", attrs["pipeline.valid"])
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	p := &pipeline.Pipeline{
		Name: "score",
		Steps: []pipeline.Step{
			WithMetrics(inc(), m, "score"),
			WithMetrics(reject("no"), m, "score"),
		},
		SyncHooks: []pipeline.Hook{pipeline.NewHook("metrics", m.Hook())},
	}
	runPipeline(t, p, 1)
	runPipeline(t, p, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					status, _ := dp.Attributes.Value("status")
					sums[md.Name+"/"+status.AsString()] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["pipeline.run.total/error"])
	assert.Equal(t, int64(0), sums["pipeline.run.total/ok"])
	assert.Equal(t, int64(2), sums["pipeline.step.total/ok"])
	assert.Equal(t, int64(2), sums["pipeline.step.total/error"])
}

func TestLogExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := &LogExporter{Logger: zerolog.New(&buf)}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	step := WithTracing(reject("boom"), tp.Tracer("test"), "export")
	res := step.Run(context.Background(), nil, pipeline.Options{})
	require.True(t, res.IsErr())

	out := buf.String()
	assert.Contains(t, out, `"span":"export.reject"`)
	assert.Contains(t, out, `"status":"boom"`)
	assert.Contains(t, out, `"pipeline.step":"reject"`)
}
