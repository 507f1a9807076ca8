// Package store keeps a history of pipeline runs in SQLite.
//
// Attach Store.Hook as an async hook to record every finished run, and
// Store.Observer as the pipeline's step observer to record each invoked step.
// Values are stored as JSON, so numbers read back as float64.
package store
