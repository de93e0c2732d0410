package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by tasks submitted after Close
var ErrClosed = errors.New("runner is closed")

// TaskFunc is a unit of detached work
type TaskFunc func(ctx context.Context) error

// Runner executes detached tasks outside the caller's lifetime
type Runner interface {
	// Go starts fn in the background with its own timeout and returns its handle.
	// The task never inherits the caller's context; it runs exactly once.
	Go(name string, timeout time.Duration, fn TaskFunc) *Task

	// Close stops accepting tasks and waits for in-flight tasks to finish
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// taskRunner is the concrete implementation of Runner
type taskRunner struct {
	logger         Logger
	defaultTimeout time.Duration

	mu     sync.RWMutex
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the runner
type Option func(*taskRunner)

// WithLogger sets a logger for the runner
func WithLogger(logger Logger) Option {
	return func(r *taskRunner) {
		r.logger = logger
	}
}

// WithDefaultTimeout sets the timeout used when Go is given a non-positive one
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(r *taskRunner) {
		r.defaultTimeout = timeout
	}
}

// NewRunner creates a new task runner
func NewRunner(opts ...Option) Runner {
	r := &taskRunner{
		defaultTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Go starts fn on its own goroutine
func (r *taskRunner) Go(name string, timeout time.Duration, fn TaskFunc) *Task {
	task := newTask(name)

	// Holding the read lock keeps Close from waiting before wg.Add
	r.mu.RLock()
	if r.closed.Load() {
		r.mu.RUnlock()
		if r.logger != nil {
			r.logger.Error("Cannot start task, runner is closed", "task", name)
		}
		task.finish(ErrClosed)
		return task
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		err := r.safeExecute(ctx, name, fn)
		if err != nil && r.logger != nil {
			r.logger.Error("Task failed",
				"task", name,
				"duration", time.Since(start),
				"error", err,
			)
		}
		task.finish(err)
	}()

	return task
}

// Close stops the runner and waits for running tasks
func (r *taskRunner) Close() error {
	r.mu.Lock()
	if !r.closed.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return fmt.Errorf("runner already closed")
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("Closing task runner, waiting for running tasks")
	}

	r.wg.Wait()

	if r.logger != nil {
		r.logger.Info("Task runner closed")
	}

	return nil
}

// safeExecute runs a task with panic recovery
func (r *taskRunner) safeExecute(ctx context.Context, name string, fn TaskFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panic: %v", p)
			if r.logger != nil {
				r.logger.Error("Task panic recovered",
					"task", name,
					"panic", p,
				)
			}
		}
	}()

	return fn(ctx)
}
