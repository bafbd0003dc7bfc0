// Package workers contains the supervised background tasks of the room
// service: the reaper sweep and the telemetry sampler.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sirco-web/ttls/contract"
	"github.com/Sirco-web/ttls/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor runs each worker in its own goroutine, recovers panics,
// restarts crashed workers, and shuts everything down when the parent
// context is cancelled. A failure in one worker never stops the
// supervisor itself.
type Supervisor struct {
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *slog.Logger
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every registered worker under a local cancellation scope
// tied to ctx and blocks until all of them have finished.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer s.cancel()

	for _, worker := range s.workers {
		s.start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// start runs one worker under supervision. If Run panics the supervisor
// recovers, waits a beat, and restarts it; a clean nil return retires
// the worker for good.
func (s *Supervisor) start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("worker stopping", "name", name)
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Info("worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

// Stop cancels the supervised context; Run then waits for the
// goroutines to drain.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}
