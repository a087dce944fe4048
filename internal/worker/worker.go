// Package worker runs planning searches on a dedicated goroutine.
// Precondition evaluation recurses as deep as the domain's axioms and
// quantifiers nest, so searches get their own goroutine with a raised
// stack ceiling, and panics raised by native functions are turned into
// errors at this boundary instead of crashing the process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// DefaultMaxStack is the stack ceiling used when none is configured.
const DefaultMaxStack = 512 << 20

// Worker owns one goroutine that executes submitted jobs one at a time.
type Worker struct {
	maxStack     int
	jobs         chan job
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	once         sync.Once
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// New starts a worker. maxStack is the per-goroutine stack ceiling in
// bytes applied while a job runs; 0 or negative selects DefaultMaxStack.
//
// The stack ceiling is process-wide in the Go runtime, so it is raised for
// the duration of each job and restored afterwards.
func New(maxStack int) *Worker {
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	w := &Worker{
		maxStack:     maxStack,
		jobs:         make(chan job),
		shutdownChan: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case j := <-w.jobs:
			j.done <- w.run(j)
		case <-w.shutdownChan:
			return
		}
	}
}

func (w *Worker) run(j job) (err error) {
	prev := debug.SetMaxStack(w.maxStack)
	defer debug.SetMaxStack(prev)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return j.fn(j.ctx)
}

// Submit runs fn on the worker and waits for it to return. It returns the
// error of fn, a *PanicError if fn panicked, or the context error if ctx is
// done before the job starts.
func (w *Worker) Submit(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.shutdownChan:
		return ErrWorkerShutdown
	}
	return <-j.done
}

// Shutdown stops the worker after the running job, if any, completes.
func (w *Worker) Shutdown() {
	w.once.Do(func() {
		close(w.shutdownChan)
		w.wg.Wait()
	})
}

// Run executes fn on a fresh worker and shuts it down afterwards.
func Run(ctx context.Context, maxStack int, fn func(context.Context) error) error {
	w := New(maxStack)
	defer w.Shutdown()
	return w.Submit(ctx, fn)
}

// ErrWorkerShutdown is returned when submitting to a worker that has been shut down.
var ErrWorkerShutdown = fmt.Errorf("search worker has been shutdown")

// PanicError carries a panic recovered from a job.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("search worker: panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error, so callers can
// match native function failures with errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err was produced by a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
