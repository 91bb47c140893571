package cpu

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	gcpu "github.com/shirou/gopsutil/v4/cpu"

	"cpumon/internal/domain"
)

// GopsutilSource reads per-processor times through gopsutil, which
// reports seconds.
type GopsutilSource struct {
	times func(ctx context.Context, percpu bool) ([]gcpu.TimesStat, error)
}

func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{times: gcpu.TimesWithContext}
}

func (s *GopsutilSource) Name() string {
	return "gopsutil"
}

// Counters makes two reads: the per-processor times and the aggregate.
// A failing aggregate read only drops Total.
func (s *GopsutilSource) Counters(ctx context.Context) (Reading, error) {
	stats, err := s.times(ctx, true)
	if err != nil {
		return Reading{}, fmt.Errorf("gopsutil cpu times: %w", err)
	}

	out := Reading{PerCPU: make(map[int]domain.CPUCounters, len(stats))}
	for _, st := range stats {
		id, err := strconv.Atoi(strings.TrimPrefix(st.CPU, "cpu"))
		if err != nil || id < 0 {
			continue
		}
		out.PerCPU[id] = fromTimes(st)
	}

	if total, err := s.times(ctx, false); err == nil && len(total) == 1 {
		c := fromTimes(total[0])
		out.Total = &c
	}

	return out, nil
}

func fromTimes(st gcpu.TimesStat) domain.CPUCounters {
	return domain.CPUCounters{
		User:      seconds(st.User),
		Nice:      seconds(st.Nice),
		System:    seconds(st.System),
		Idle:      seconds(st.Idle),
		IOWait:    seconds(st.Iowait),
		IRQ:       seconds(st.Irq),
		SoftIRQ:   seconds(st.Softirq),
		Steal:     seconds(st.Steal),
		Guest:     seconds(st.Guest),
		GuestNice: seconds(st.GuestNice),
	}
}

func seconds(s float64) uint64 {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}

	ns := math.Round(s * nsPerSecond)
	if ns >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(ns)
}
