package workers

import (
	"context"
	"sync"
	"time"

	"cpumon/internal/logger"
)

type Scheduler struct {
	log logger.Logger
	wg  sync.WaitGroup
}

func NewScheduler(log logger.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// RunAfterCompletion runs worker every dur, measured from the end of the
// previous run, so two runs never overlap.
func (s *Scheduler) RunAfterCompletion(ctx context.Context, dur time.Duration, worker Worker) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(dur)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Debug("worker canceled", "name", worker.Name())
				return
			case <-timer.C:
				start := time.Now()

				err := worker.Run(ctx)
				if err != nil {
					s.log.Error("worker failed", "name", worker.Name(), "error", err)
				}

				s.log.Debug("worker finished", "name", worker.Name(), "time", time.Since(start))

				timer.Reset(dur)
			}
		}
	}()
}

// Wait blocks until every scheduled worker has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
