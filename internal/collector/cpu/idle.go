package cpu

import (
	"cpumon/internal/domain"
	"cpumon/internal/system"
)

// TickPolicy keeps the coarse tick-based idle and io-wait counters.
type TickPolicy struct{}

func (TickPolicy) Name() string {
	return "tick"
}

func (TickPolicy) Adjust(_ int, c domain.CPUCounters) domain.CPUCounters {
	return c
}

// CPUIdlePolicy takes idle time from cpuidle residency when the platform
// exposes it. Residency covers io-wait as well, so the coarse io-wait
// counter is taken out of it.
type CPUIdlePolicy struct {
	reader *system.SystemReader
}

func NewCPUIdlePolicy(reader *system.SystemReader) *CPUIdlePolicy {
	return &CPUIdlePolicy{reader: reader}
}

func (p *CPUIdlePolicy) Name() string {
	return "cpuidle"
}

func (p *CPUIdlePolicy) Adjust(cpu int, c domain.CPUCounters) domain.CPUCounters {
	us, err := p.reader.CPUIdleResidencyUS(cpu)
	if err != nil {
		return c
	}

	c.Idle = saturatingSub(us*1000, c.IOWait)
	return c
}
