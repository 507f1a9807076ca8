package observe

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter is a span exporter that writes finished spans to a zerolog
// logger at debug level. Use it with sdktrace.WithSyncer for local runs.
type LogExporter struct {
	Logger zerolog.Logger
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		ev := e.Logger.Debug()
		if s.Status().Code == codes.Error {
			ev = e.Logger.Warn().Str("status", s.Status().Description)
		}
		for _, kv := range s.Attributes() {
			ev = ev.Str(string(kv.Key), kv.Value.Emit())
		}
		ev.Str("span", s.Name()).
			Str("trace_id", s.SpanContext().TraceID().String()).
			Dur("duration", s.EndTime().Sub(s.StartTime())).
			Msg("span")
	}
	return ctx.Err()
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(ctx context.Context) error { return nil }

var _ sdktrace.SpanExporter = (*LogExporter)(nil)
