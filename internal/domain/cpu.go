package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidProcessorCount = errors.New("processor count must be at least 1")
	ErrNoCounters            = errors.New("counter source returned no processors")
)

// CPUCounters is one processor's cumulative time counters, in nanoseconds.
type CPUCounters struct {
	User      uint64 `json:"user"`
	Nice      uint64 `json:"nice"`
	System    uint64 `json:"system"`
	Idle      uint64 `json:"idle"`
	IOWait    uint64 `json:"iowait"`
	IRQ       uint64 `json:"irq"`
	SoftIRQ   uint64 `json:"softirq"`
	Steal     uint64 `json:"steal"`
	Guest     uint64 `json:"guest"`
	GuestNice uint64 `json:"guest_nice"`
}

// Add sums two snapshots field by field.
func (c CPUCounters) Add(o CPUCounters) CPUCounters {
	return CPUCounters{
		User:      c.User + o.User,
		Nice:      c.Nice + o.Nice,
		System:    c.System + o.System,
		Idle:      c.Idle + o.Idle,
		IOWait:    c.IOWait + o.IOWait,
		IRQ:       c.IRQ + o.IRQ,
		SoftIRQ:   c.SoftIRQ + o.SoftIRQ,
		Steal:     c.Steal + o.Steal,
		Guest:     c.Guest + o.Guest,
		GuestNice: c.GuestNice + o.GuestNice,
	}
}

// CPUSample is what the sampler produces once per tick.
type CPUSample struct {
	// Sum covers every possible processor, offline ones included.
	Sum CPUCounters
	// PerCPU holds counters of online processors only.
	PerCPU map[int]CPUCounters
	// Online lists online processor ids in ascending order.
	Online []int
}

type CPUSampler interface {
	Sample(ctx context.Context) (CPUSample, error)
}

// CPUHistory is the per-processor accounting state kept between ticks.
// The *Time fields are cumulative as of the last sample, the *Period
// fields are the deltas from the sample before it.
type CPUHistory struct {
	TotalTime     uint64 `json:"total_time"`
	UserTime      uint64 `json:"user_time"`
	SystemTime    uint64 `json:"system_time"`
	SystemAllTime uint64 `json:"system_all_time"`
	IdleAllTime   uint64 `json:"idle_all_time"`
	IdleTime      uint64 `json:"idle_time"`
	NiceTime      uint64 `json:"nice_time"`
	IOWaitTime    uint64 `json:"iowait_time"`
	IRQTime       uint64 `json:"irq_time"`
	SoftIRQTime   uint64 `json:"softirq_time"`
	StealTime     uint64 `json:"steal_time"`
	GuestTime     uint64 `json:"guest_time"`

	TotalPeriod     uint64 `json:"total_period"`
	UserPeriod      uint64 `json:"user_period"`
	SystemPeriod    uint64 `json:"system_period"`
	SystemAllPeriod uint64 `json:"system_all_period"`
	IdleAllPeriod   uint64 `json:"idle_all_period"`
	IdlePeriod      uint64 `json:"idle_period"`
	NicePeriod      uint64 `json:"nice_period"`
	IOWaitPeriod    uint64 `json:"iowait_period"`
	IRQPeriod       uint64 `json:"irq_period"`
	SoftIRQPeriod   uint64 `json:"softirq_period"`
	StealPeriod     uint64 `json:"steal_period"`
	GuestPeriod     uint64 `json:"guest_period"`
}

// UsageRecord is the alert sink record emitted for every evaluated
// processor and for the system-wide average.
type UsageRecord struct {
	MonitorID         uuid.UUID `json:"monitor_id"`
	CPU               int       `json:"cpu"`
	Average           bool      `json:"average"`
	Percent           uint64    `json:"percent"`
	Threshold         uint64    `json:"threshold"`
	ThresholdExceeded bool      `json:"threshold_exceeded"`
	RecordedAt        time.Time `json:"recorded_at"`
}

type AlertSink interface {
	Emit(rec UsageRecord)
}

const (
	EventUsageEvaluated = "cpu.usage.evaluated"
	EventUsageExceeded  = "cpu.usage.exceeded"

	WsChannelUsage  = "cpu:usage"
	WsChannelAlerts = "cpu:alerts"
)
