package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcshock/hookpipe/pipeline"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func scorePipeline(s *Store) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: "score",
		Steps: []pipeline.Step{
			pipeline.NewStep("inc", pipeline.Transform(func(_ context.Context, n int) (int, error) { return n + 1, nil })),
			pipeline.NewStep("check", pipeline.Validate(func(n int) bool { return n < 10 }, "too large")),
			pipeline.NewStep("double", pipeline.Transform(func(_ context.Context, n int) (int, error) { return n * 2, nil })),
		},
		Observer:  s.Observer(),
		SyncHooks: []pipeline.Hook{pipeline.NewHook("store", s.Hook())},
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := Run{
		ID:         "run-1",
		Pipeline:   "score",
		Status:     StatusOK,
		Input:      map[string]interface{}{"n": 3},
		Value:      8,
		Steps:      []string{"inc", "double"},
		StartedAt:  started,
		FinishedAt: started.Add(250 * time.Millisecond),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "score", got.Pipeline)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, []string{"inc", "double"}, got.Steps)
	assert.Equal(t, float64(8), got.Value)
	assert.Equal(t, map[string]interface{}{"n": float64(3)}, got.Input)
	assert.True(t, got.StartedAt.Equal(started), "started_at %v", got.StartedAt)
	assert.Equal(t, 250*time.Millisecond, got.Duration())
	assert.Empty(t, got.Error)

	// Saving the same id again replaces the row.
	run.Status = StatusFailed
	run.Error = "late failure"
	require.NoError(t, s.SaveRun(ctx, run))
	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "late failure", got.Error)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_HookAndObserver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := scorePipeline(s)

	ok, err := p.Run(ctx, 3, pipeline.Options{})
	require.NoError(t, err)
	failed, err := p.Run(ctx, 20, pipeline.Options{})
	require.NoError(t, err)

	got, err := s.GetRun(ctx, ok.RunID())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, float64(8), got.Value)
	assert.Equal(t, []string{"inc", "check", "double"}, got.Steps)

	got, err = s.GetRun(ctx, failed.RunID())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "too large", got.Error)
	assert.Equal(t, float64(21), got.Value)
	assert.Equal(t, []string{"inc", "check"}, got.Steps)

	steps, err := s.ListSteps(ctx, failed.RunID())
	require.NoError(t, err)
	require.Len(t, steps, 2, "skipped steps are not recorded")
	assert.Equal(t, "inc", steps[0].Name)
	assert.Equal(t, StatusOK, steps[0].Status)
	assert.Equal(t, "check", steps[1].Name)
	assert.Equal(t, StatusFailed, steps[1].Status)
	assert.Equal(t, "too large", steps[1].Error)
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "a", "a"} {
		start := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveRun(ctx, Run{
			ID:         fmt.Sprintf("run-%d", i),
			Pipeline:   name,
			Status:     StatusOK,
			StartedAt:  start,
			FinishedAt: start.Add(time.Second),
		}))
	}

	all, err := s.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "run-3", all[0].ID, "newest first")

	onlyA, err := s.ListRuns(ctx, ListOptions{Pipeline: "a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "run-3", onlyA[0].ID)
	assert.Equal(t, "run-2", onlyA[1].ID)
	assert.Nil(t, onlyA[0].Value)
}

func TestStore_OpaqueValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveRun(ctx, Run{
		ID:         "opaque",
		Pipeline:   "p",
		Status:     StatusOK,
		Value:      make(chan int),
		StartedAt:  now,
		FinishedAt: now,
	}))
	got, err := s.GetRun(ctx, "opaque")
	require.NoError(t, err)
	assert.IsType(t, "", got.Value)
}
