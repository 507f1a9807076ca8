package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dcshock/hookpipe/pipeline"
)

// ErrNotFound is returned by GetRun for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Status values stored for runs and steps.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is the persisted record of one pipeline run.
type Run struct {
	ID         string
	Pipeline   string
	Status     string
	Input      interface{}
	Value      interface{}
	Error      string
	Steps      []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the run's wall time.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// StepRecord is one invoked step, written by Observer.
type StepRecord struct {
	RunID    string
	Index    int
	Name     string
	Status   string
	Error    string
	Duration time.Duration
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Pipeline restricts results to one pipeline when set.
	Pipeline string
	// Limit caps the number of runs returned; 0 means 50.
	Limit int
}

// Store persists pipeline runs and their steps to SQLite (pipeline_run,
// pipeline_run_step) so runs can be listed and inspected after the fact.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New opens the SQLite database at dsn and creates the schema if needed.
// Use "file:name?mode=memory&cache=shared" for an in-memory database.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; async hooks share this connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, log: zerolog.Nop()}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// WithLogger sets the logger used for write failures that cannot be returned
// to a caller (see Observer).
func (s *Store) WithLogger(log zerolog.Logger) *Store {
	s.log = log
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pipeline_run (
			run_id TEXT PRIMARY KEY,
			pipeline TEXT NOT NULL,
			status TEXT NOT NULL,
			input TEXT,
			value TEXT,
			error TEXT,
			steps TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_run_step (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, step_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_run_pipeline ON pipeline_run(pipeline, started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// RunFromState converts a finished run's state to a Run record.
func RunFromState(st *pipeline.State) Run {
	r := Run{
		ID:         st.RunID(),
		Pipeline:   st.Pipeline(),
		Status:     StatusOK,
		Input:      st.InitialValue(),
		Value:      st.Value(),
		Steps:      st.StepNames(),
		StartedAt:  st.StartedAt(),
		FinishedAt: st.FinishedAt(),
	}
	if !st.Valid() {
		r.Status = StatusFailed
		r.Error = st.Err().Error()
	}
	return r
}

// SaveRun inserts or replaces a run by id.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	query := `INSERT INTO pipeline_run (run_id, pipeline, status, input, value, error, steps, started_at, finished_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(run_id) DO UPDATE SET
	            pipeline = excluded.pipeline, status = excluded.status, input = excluded.input,
	            value = excluded.value, error = excluded.error, steps = excluded.steps,
	            started_at = excluded.started_at, finished_at = excluded.finished_at`

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Pipeline, r.Status, marshalValue(r.Input), marshalValue(r.Value),
		nullString(r.Error), string(steps), r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun returns the run with the given id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT run_id, pipeline, status, input, value, error, steps, started_at, finished_at
	          FROM pipeline_run WHERE run_id = ?`

	r, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, pipeline, status, input, value, error, steps, started_at, finished_at
	          FROM pipeline_run`
	args := []interface{}{}
	if opts.Pipeline != "" {
		query += ` WHERE pipeline = ?`
		args = append(args, opts.Pipeline)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// SaveStep inserts or replaces one step record.
func (s *Store) SaveStep(ctx context.Context, rec StepRecord) error {
	query := `INSERT OR REPLACE INTO pipeline_run_step (run_id, step_index, name, status, error, duration_ms)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.RunID, rec.Index, rec.Name, rec.Status, nullString(rec.Error), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save step %d of run %s: %w", rec.Index, rec.RunID, err)
	}
	return nil
}

// ListSteps returns the step records of a run in execution order.
func (s *Store) ListSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	query := `SELECT run_id, step_index, name, status, error, duration_ms
	          FROM pipeline_run_step WHERE run_id = ? ORDER BY step_index ASC`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		var errText sql.NullString
		var ms int64
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Name, &rec.Status, &errText, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.Error = errText.String
		rec.Duration = time.Duration(ms) * time.Millisecond
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}

// Hook returns a hook that saves every finished run. Use it as an async hook
// to keep the database off the caller's path.
func (s *Store) Hook() pipeline.HookFunc {
	return func(ctx context.Context, st *pipeline.State, _ pipeline.Options) error {
		return s.SaveRun(ctx, RunFromState(st))
	}
}

// Observer returns a StepObserver that saves a StepRecord after every invoked
// step. Write failures are logged.
func (s *Store) Observer() pipeline.StepObserver {
	return pipeline.ObserverFuncs{
		After: func(ctx context.Context, run pipeline.RunInfo, step pipeline.StepRef, res pipeline.Result, d time.Duration) {
			rec := StepRecord{RunID: run.RunID, Index: step.Index, Name: step.Name, Status: StatusOK, Duration: d}
			if !res.IsOk() {
				rec.Status = StatusFailed
				if err := res.Error(); err != nil {
					rec.Error = err.Error()
				}
			}
			if err := s.SaveStep(ctx, rec); err != nil {
				s.log.Error().Err(err).Str("run_id", run.RunID).Str("step", step.Name).Msg("store step")
			}
		},
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var input, value, errText sql.NullString
	var steps string
	if err := row.Scan(&r.ID, &r.Pipeline, &r.Status, &input, &value, &errText, &steps, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Error = errText.String
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if err := unmarshalValue(input, &r.Input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input: %w", err)
	}
	if err := unmarshalValue(value, &r.Value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return &r, nil
}

// marshalValue encodes v as JSON. Values that cannot be encoded are stored as
// their fmt representation.
func marshalValue(v interface{}) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return sql.NullString{String: string(b), Valid: true}
}

func unmarshalValue(s sql.NullString, out *interface{}) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), out)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
