package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dcshock/hookpipe/config"
	"github.com/dcshock/hookpipe/observe"
	"github.com/dcshock/hookpipe/pipeline"
	"github.com/dcshock/hookpipe/store"
)

// app holds everything a command needs: settings, the function registry and
// the process-wide runtime (supervisor, store, telemetry).
type app struct {
	settings *config.Settings
	log      zerolog.Logger
	out      io.Writer

	funcs      *config.Registry
	supervisor *pipeline.Supervisor
	store      *store.Store

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricReader   *sdkmetric.ManualReader
	metrics        *observe.Metrics
}

func newLogger(s config.LogSettings, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if s.Format == "console" || s.Format == "pretty" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// newApp wires the runtime for settings. Call close when done.
func newApp(settings *config.Settings, out, logOut io.Writer) (*app, error) {
	log, err := newLogger(settings.Log, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, log: log, out: out}
	a.supervisor = pipeline.NewSupervisor(pipeline.SupervisorConfig{
		MaxConcurrent: settings.Async.MaxConcurrent,
		Logger:        &a.log,
	})

	if settings.Store.DSN != "" {
		st, err := store.New(settings.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st.WithLogger(log)
	}
	if settings.Telemetry.Tracing {
		a.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(&observe.LogExporter{Logger: log}),
		)
	}
	if settings.Telemetry.Metrics {
		a.metricReader = sdkmetric.NewManualReader()
		a.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(a.metricReader))
		m, err := observe.NewMetrics(a.meterProvider.Meter("runpipe"))
		if err != nil {
			return nil, err
		}
		a.metrics = m
	}

	a.funcs = config.NewRegistry()
	registerBuiltins(a.funcs, a)
	return a, nil
}

// buildOptions returns the runtime every pipeline built from the file shares.
func (a *app) buildOptions() *config.BuildOptions {
	observers := []pipeline.StepObserver{observe.LogObserver(a.log)}
	if a.store != nil {
		observers = append(observers, a.store.Observer())
	}
	opts := &config.BuildOptions{
		Launcher: a.supervisor,
		Observer: pipeline.MultiObserver(observers...),
		Logger:   &a.log,
	}
	if a.tracerProvider != nil || a.metrics != nil {
		opts.WrapStep = func(name string, step pipeline.Step) pipeline.Step {
			if a.metrics != nil {
				step = observe.WithMetrics(step, a.metrics, name)
			}
			if a.tracerProvider != nil {
				step = observe.WithTracing(step, a.tracerProvider.Tracer("runpipe"), name)
			}
			return step
		}
	}
	return opts
}

// loadPipelines parses the definitions file and builds every pipeline.
func (a *app) loadPipelines() (*pipeline.Registry, error) {
	f, err := config.LoadFile(a.settings.Pipelines)
	if err != nil {
		return nil, err
	}
	return config.BuildRegistry(a.funcs, f, a.buildOptions())
}

// close drains async hooks, then flushes telemetry and closes the store.
func (a *app) close(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	shutdownCtx := ctx
	if d := a.settings.Async.ShutdownTimeout; d > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := a.supervisor.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("async hooks still running at exit")
		keep(err)
	}
	if launched, failed := a.supervisor.Stats(); launched > 0 {
		a.log.Debug().Int64("launched", launched).Int64("failed", failed).Msg("async hooks")
	}
	if a.metricReader != nil {
		keep(a.logMetrics(ctx))
		keep(a.meterProvider.Shutdown(ctx))
	}
	if a.tracerProvider != nil {
		keep(a.tracerProvider.Shutdown(ctx))
	}
	if a.store != nil {
		keep(a.store.Close())
	}
	return firstErr
}

// logMetrics writes the collected counters to the log, one line per series.
func (a *app) logMetrics(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := a.metricReader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				ev := a.log.Info().Str("metric", md.Name).Int64("value", dp.Value)
				for _, kv := range dp.Attributes.ToSlice() {
					ev = ev.Str(string(kv.Key), kv.Value.Emit())
				}
				ev.Msg("metric")
			}
		}
	}
	return nil
}
