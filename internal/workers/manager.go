// Package workers
package workers

import (
	"context"
	"time"

	"cpumon/internal/logger"
)

type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

type Manager struct {
	log logger.Logger

	scheduler *Scheduler
	interval  time.Duration
	monitor   Worker
}

func NewManager(log logger.Logger, scheduler *Scheduler, interval time.Duration, monitor Worker) *Manager {
	return &Manager{
		log: log,

		scheduler: scheduler,
		interval:  interval,
		monitor:   monitor,
	}
}

// Start schedules the sampling worker and blocks until ctx is done and
// the in-flight run, if any, has finished.
func (m *Manager) Start(ctx context.Context) error {
	m.log.Info("worker: manager started", "interval", m.interval)

	m.scheduler.RunAfterCompletion(ctx, m.interval, m.monitor)

	<-ctx.Done()
	m.scheduler.Wait()

	m.log.Info("worker: manager stopped")
	return nil
}
