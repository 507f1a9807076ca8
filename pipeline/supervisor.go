package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Task is one unit of asynchronous work, typically an async hook bound to a
// final state.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Launcher starts tasks without waiting for them. Implementations must isolate
// tasks from each other and from the caller: an error or panic in one task may
// be reported but must not propagate.
type Launcher interface {
	Launch(ctx context.Context, task Task)
}

// GoLauncher runs each task on its own goroutine. Errors and panics are logged
// to Logger (or discarded when nil). It is the default Launcher.
type GoLauncher struct {
	Logger *zerolog.Logger
}

func (l GoLauncher) Launch(ctx context.Context, task Task) {
	log := nopIfNil(l.Logger)
	go runIsolated(ctx, task, log)
}

// Supervisor is a Launcher meant to be created once at process start and
// shared by every pipeline. It tracks in-flight tasks so the process can drain
// them on shutdown, and optionally bounds how many run at once. Tasks waiting
// for a slot do not block Launch.
type Supervisor struct {
	log zerolog.Logger
	sem *semaphore.Weighted

	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	launched int64
	failed   int64
}

// SupervisorConfig configures NewSupervisor.
type SupervisorConfig struct {
	// MaxConcurrent bounds running tasks; 0 means unbounded.
	MaxConcurrent int64
	Logger        *zerolog.Logger
}

// NewSupervisor returns a ready Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	s := &Supervisor{log: nopIfNil(cfg.Logger).With().Str("component", "supervisor").Logger()}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return s
}

// Launch starts task in the background. After Shutdown has been called new
// tasks are dropped and logged.
func (s *Supervisor) Launch(ctx context.Context, task Task) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warn().Str("task", task.Name).Msg("supervisor closed, task dropped")
		return
	}
	s.launched++
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			// Slots are released even if the caller's context is gone.
			if err := s.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer s.sem.Release(1)
		}
		if err := runIsolated(ctx, task, s.log); err != nil {
			s.mu.Lock()
			s.failed++
			s.mu.Unlock()
		}
	}()
}

// Wait blocks until every launched task has finished.
func (s *Supervisor) Wait() { s.wg.Wait() }

// Shutdown stops accepting tasks and waits for in-flight ones, or until ctx is
// done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervisor shutdown: %w", ctx.Err())
	}
}

// Stats returns how many tasks were launched and how many failed (error or panic).
func (s *Supervisor) Stats() (launched, failed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launched, s.failed
}

// runIsolated runs task, converting a panic into an error. Failures are logged.
func runIsolated(ctx context.Context, task Task, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error().Str("task", task.Name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("async task panicked")
		}
	}()
	if err = task.Run(ctx); err != nil {
		log.Error().Err(err).Str("task", task.Name).Msg("async task failed")
	}
	return err
}

func nopIfNil(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}
