package cpu

import (
	"context"

	"cpumon/internal/domain"
)

// Reading is one read of a CounterSource, in nanoseconds.
type Reading struct {
	// Total is the kernel's own sum over every possible processor, offline
	// ones included. Nil when the source has no such aggregate.
	Total *domain.CPUCounters
	// PerCPU is keyed by processor id. Processors the source cannot see
	// are simply absent.
	PerCPU map[int]domain.CPUCounters
}

type CounterSource interface {
	Name() string
	Counters(ctx context.Context) (Reading, error)
}

type Topology interface {
	Possible() ([]int, error)
	Online() ([]int, error)
}

// IdlePolicy decides where an online processor's idle and io-wait time
// comes from.
type IdlePolicy interface {
	Name() string
	Adjust(cpu int, c domain.CPUCounters) domain.CPUCounters
}

func saturatingSub(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return 0
}

// subSat subtracts b from a field by field, flooring at zero.
func subSat(a, b domain.CPUCounters) domain.CPUCounters {
	return domain.CPUCounters{
		User:      saturatingSub(a.User, b.User),
		Nice:      saturatingSub(a.Nice, b.Nice),
		System:    saturatingSub(a.System, b.System),
		Idle:      saturatingSub(a.Idle, b.Idle),
		IOWait:    saturatingSub(a.IOWait, b.IOWait),
		IRQ:       saturatingSub(a.IRQ, b.IRQ),
		SoftIRQ:   saturatingSub(a.SoftIRQ, b.SoftIRQ),
		Steal:     saturatingSub(a.Steal, b.Steal),
		Guest:     saturatingSub(a.Guest, b.Guest),
		GuestNice: saturatingSub(a.GuestNice, b.GuestNice),
	}
}
