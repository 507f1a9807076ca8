// Package observe provides logging, tracing and metrics for pipelines: hooks
// that report finished runs, a step observer, and step wrappers that add
// OpenTelemetry spans and instruments.
package observe
