// Package monitor turns cumulative per-processor counters into interval
// utilization and raises threshold alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

var ErrClosed = errors.New("monitor: closed")

type Monitor struct {
	id      uuid.UUID
	numCPU  int
	sampler domain.CPUSampler
	sink    domain.AlertSink
	log     logger.Logger

	thresholds *ThresholdStore

	historyMu sync.Mutex
	history   *HistoryTable
	// outside remembers online ids past the table that were already reported.
	outside map[int]bool

	latestMu sync.RWMutex
	latest   []domain.UsageRecord

	now func() time.Time
}

// New allocates the history and threshold tables for numProcessors
// processors plus the average entry. Nothing is sampled yet.
func New(id uuid.UUID, numProcessors int, sampler domain.CPUSampler, sink domain.AlertSink, log logger.Logger) (*Monitor, error) {
	history, err := NewHistoryTable(numProcessors)
	if err != nil {
		return nil, fmt.Errorf("monitor: init history: %w", err)
	}

	thresholds, err := NewThresholdStore(numProcessors)
	if err != nil {
		return nil, fmt.Errorf("monitor: init thresholds: %w", err)
	}

	log.Info("monitor: initialized", "processors", numProcessors, "average_id", history.AverageID())

	return &Monitor{
		id:         id,
		numCPU:     numProcessors,
		sampler:    sampler,
		sink:       sink,
		log:        log,
		thresholds: thresholds,
		history:    history,
		outside:    make(map[int]bool),
		now:        time.Now,
	}, nil
}

func (m *Monitor) Thresholds() *ThresholdStore {
	return m.thresholds
}

func (m *Monitor) NumProcessors() int {
	return m.numCPU
}

// AverageID is the sentinel id of the system-wide entry.
func (m *Monitor) AverageID() int {
	return m.numCPU
}

// History returns a copy of the accounting entry for id.
func (m *Monitor) History(id int) (domain.CPUHistory, bool) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	if m.history == nil {
		return domain.CPUHistory{}, false
	}
	return m.history.Get(id)
}

// Latest returns the records produced by the last completed tick.
func (m *Monitor) Latest() []domain.UsageRecord {
	m.latestMu.RLock()
	defer m.latestMu.RUnlock()

	out := make([]domain.UsageRecord, len(m.latest))
	copy(out, m.latest)
	return out
}

// Name is the worker name used by the scheduler.
func (m *Monitor) Name() string {
	return "cpu-monitor"
}

// Run performs one tick and publishes the records.
func (m *Monitor) Run(ctx context.Context) error {
	_, err := m.tick(ctx, true)
	return err
}

// Prime takes the startup baseline sample without publishing it.
func (m *Monitor) Prime(ctx context.Context) error {
	records, err := m.tick(ctx, false)
	if err != nil {
		return err
	}

	for _, rec := range records {
		m.log.Debug("monitor: baseline", "cpu", rec.CPU, "average", rec.Average, "percent", rec.Percent)
	}
	return nil
}

// Tick runs sample, account and evaluate once and returns the records
// in ascending processor order with the average last.
func (m *Monitor) Tick(ctx context.Context) ([]domain.UsageRecord, error) {
	return m.tick(ctx, true)
}

func (m *Monitor) tick(ctx context.Context, publish bool) ([]domain.UsageRecord, error) {
	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: sample counters: %w", err)
	}

	avgID := m.numCPU
	percents := make([]uint64, 0, len(sample.Online)+1)
	ids := make([]int, 0, len(sample.Online))

	m.historyMu.Lock()
	if m.history == nil {
		m.historyMu.Unlock()
		return nil, ErrClosed
	}

	m.history.Apply(avgID, sample.Sum)
	for _, id := range sample.Online {
		if id >= avgID {
			if !m.outside[id] {
				m.outside[id] = true
				m.log.Warn("monitor: online processor outside table, not evaluated", "cpu", id, "processors", avgID)
			}
			continue
		}

		m.history.Apply(id, sample.PerCPU[id])
		ids = append(ids, id)
	}

	for _, id := range ids {
		h, _ := m.history.Get(id)
		percents = append(percents, Percent(h))
	}
	avg, _ := m.history.Get(avgID)
	percents = append(percents, Percent(avg))
	m.historyMu.Unlock()

	now := m.now().UTC()
	records := make([]domain.UsageRecord, 0, len(percents))
	for i, id := range ids {
		records = append(records, m.record(id, false, percents[i], now))
	}
	records = append(records, m.record(avgID, true, percents[len(percents)-1], now))

	if !publish {
		return records, nil
	}

	m.latestMu.Lock()
	m.latest = records
	m.latestMu.Unlock()

	if m.sink != nil {
		for _, rec := range records {
			m.sink.Emit(rec)
		}
	}

	return records, nil
}

func (m *Monitor) record(id int, average bool, percent uint64, now time.Time) domain.UsageRecord {
	rec := Evaluate(id, average, percent, m.thresholds.Get(id))
	rec.MonitorID = m.id
	rec.RecordedAt = now
	return rec
}

// Close releases the history table. Later ticks fail with ErrClosed.
func (m *Monitor) Close() {
	m.historyMu.Lock()
	m.history = nil
	m.historyMu.Unlock()

	m.latestMu.Lock()
	m.latest = nil
	m.latestMu.Unlock()

	m.log.Info("monitor: closed")
}
