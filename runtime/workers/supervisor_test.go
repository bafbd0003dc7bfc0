package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type funcWorker struct {
	run func(ctx context.Context) error
}

func (w *funcWorker) Run(ctx context.Context) error { return w.run(ctx) }

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	// Given a worker that panics on every run
	var calls atomic.Int64
	worker := &funcWorker{run: func(ctx context.Context) error {
		calls.Add(1)
		panic("boom")
	}}

	sup := NewSupervisor(log)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(worker).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(900 * time.Millisecond)

	req.GreaterOrEqual(calls.Load(), int64(2))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	// Given a worker that succeeds on its first run
	var calls atomic.Int64
	worker := &funcWorker{run: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}}

	sup := NewSupervisor(log)

	// Given a channel to notify when Run() terminated
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success, returned nil and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
	req.Equal(int64(1), calls.Load())
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	// Given a worker that blocks until its context is cancelled
	worker := &funcWorker{run: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}

	sup := NewSupervisor(log)
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	time.Sleep(50 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
		// Then the worker was released and Run returned
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped its workers")
	}
}
