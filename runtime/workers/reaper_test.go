package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	sweeps  atomic.Int64
	evicted int
}

func (s *stubSweeper) Reap(now time.Time) int {
	s.sweeps.Add(1)
	return s.evicted
}

func TestReaper_SweepsOnEveryTick(t *testing.T) {
	req := require.New(t)

	// Given a reaper sweeping every 20ms
	sweeper := &stubSweeper{evicted: 1}
	reaper := NewReaper(slog.Default(), sweeper, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	// When it runs until the context expires
	err := reaper.Run(ctx)

	// Then it returned cleanly after several sweeps
	req.NoError(err)
	req.GreaterOrEqual(sweeper.sweeps.Load(), int64(3))
}

func TestReaper_StopsOnCancel(t *testing.T) {
	req := require.New(t)

	sweeper := &stubSweeper{}
	reaper := NewReaper(slog.Default(), sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Reaper should have stopped on cancel")
	}
	req.Zero(sweeper.sweeps.Load())
}
