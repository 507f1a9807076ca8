package pipeline

import (
	"context"
	"time"
)

// RunInfo identifies the run a step belongs to.
type RunInfo struct {
	RunID    string
	Pipeline string
}

// StepObserver is called around every invoked step (skipped steps are not
// observed). Use it for logging, tracing or progress reporting. Observers
// cannot change the outcome of a step. AfterStep only sees well-formed
// results: a step that breaks the contract aborts the run without it.
type StepObserver interface {
	BeforeStep(ctx context.Context, run RunInfo, step StepRef, input interface{})
	AfterStep(ctx context.Context, run RunInfo, step StepRef, result Result, duration time.Duration)
}

// ObserverFuncs adapts plain functions to StepObserver. Nil fields are skipped.
type ObserverFuncs struct {
	Before func(ctx context.Context, run RunInfo, step StepRef, input interface{})
	After  func(ctx context.Context, run RunInfo, step StepRef, result Result, duration time.Duration)
}

func (f ObserverFuncs) BeforeStep(ctx context.Context, run RunInfo, step StepRef, input interface{}) {
	if f.Before != nil {
		f.Before(ctx, run, step, input)
	}
}

func (f ObserverFuncs) AfterStep(ctx context.Context, run RunInfo, step StepRef, result Result, duration time.Duration) {
	if f.After != nil {
		f.After(ctx, run, step, result, duration)
	}
}

// MultiObserver fans out to each non-nil observer in order.
func MultiObserver(observers ...StepObserver) StepObserver {
	list := make([]StepObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return multiObserver(list)
}

type multiObserver []StepObserver

func (m multiObserver) BeforeStep(ctx context.Context, run RunInfo, step StepRef, input interface{}) {
	for _, o := range m {
		o.BeforeStep(ctx, run, step, input)
	}
}

func (m multiObserver) AfterStep(ctx context.Context, run RunInfo, step StepRef, result Result, duration time.Duration) {
	for _, o := range m {
		o.AfterStep(ctx, run, step, result, duration)
	}
}
