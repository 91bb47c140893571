package cpu

import (
	"context"

	"cpumon/internal/domain"
	"cpumon/internal/system"
)

const nsPerSecond = 1_000_000_000

// ProcStatSource reads /proc/stat and scales USER_HZ ticks to nanoseconds.
type ProcStatSource struct {
	reader    *system.SystemReader
	nsPerTick uint64
}

func NewProcStatSource(reader *system.SystemReader, clockTicks uint64) *ProcStatSource {
	if clockTicks == 0 {
		clockTicks = 100
	}

	return &ProcStatSource{
		reader:    reader,
		nsPerTick: nsPerSecond / clockTicks,
	}
}

func (s *ProcStatSource) Name() string {
	return "procfs"
}

func (s *ProcStatSource) Counters(ctx context.Context) (Reading, error) {
	ps, err := s.reader.CPUStats()
	if err != nil {
		return Reading{}, err
	}

	out := Reading{PerCPU: make(map[int]domain.CPUCounters, len(ps.PerCPU))}
	for id, st := range ps.PerCPU {
		out.PerCPU[id] = s.scale(st)
	}
	if ps.Total != nil {
		total := s.scale(*ps.Total)
		out.Total = &total
	}

	return out, nil
}

func (s *ProcStatSource) scale(st system.CPUStat) domain.CPUCounters {
	return domain.CPUCounters{
		User:      st.User * s.nsPerTick,
		Nice:      st.Nice * s.nsPerTick,
		System:    st.System * s.nsPerTick,
		Idle:      st.Idle * s.nsPerTick,
		IOWait:    st.IOWait * s.nsPerTick,
		IRQ:       st.IRQ * s.nsPerTick,
		SoftIRQ:   st.SoftIRQ * s.nsPerTick,
		Steal:     st.Steal * s.nsPerTick,
		Guest:     st.Guest * s.nsPerTick,
		GuestNice: st.GuestNice * s.nsPerTick,
	}
}
