package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

func TestSubmitRunsOnWorker(t *testing.T) {
	w := New(0)
	defer w.Shutdown()

	calls := 0
	for i := 0; i < 3; i++ {
		err := w.Submit(context.Background(), func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestSubmitReturnsJobError(t *testing.T) {
	want := errors.New("boom")
	err := Run(context.Background(), 0, func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestPanicBecomesError(t *testing.T) {
	err := Run(context.Background(), 1<<20, func(context.Context) error {
		panic(&htn.NativeError{Name: "distance", Err: htn.ErrUnknownFunction})
	})
	require.Error(t, err)
	assert.True(t, IsPanic(err))

	var native *htn.NativeError
	require.ErrorAs(t, err, &native)
	assert.Equal(t, "distance", native.Name)
	assert.ErrorIs(t, err, htn.ErrUnknownFunction)
}

func TestPanicWithNonError(t *testing.T) {
	err := Run(context.Background(), 0, func(context.Context) error { panic("plain") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain")
	assert.Nil(t, errors.Unwrap(err))
}

func TestSubmitAfterShutdown(t *testing.T) {
	w := New(0)
	w.Shutdown()
	w.Shutdown()
	err := w.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerShutdown)
}

func TestSubmitCancelledContext(t *testing.T) {
	w := New(0)
	defer w.Shutdown()

	// Occupy the worker so the second submission cannot start.
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = w.Submit(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
