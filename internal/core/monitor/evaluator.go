package monitor

import (
	"math"
	"math/bits"

	"cpumon/internal/domain"
)

// share returns 100*part/total without overflowing, saturating at MaxUint64.
func share(part, total uint64) uint64 {
	hi, lo := bits.Mul64(part, 100)
	if hi >= total {
		return math.MaxUint64
	}

	q, _ := bits.Div64(hi, lo, total)
	return q
}

func addSat(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return s
}

// Percent converts a history entry's periods into a 0-100 utilization.
// Each share is truncated on its own before summing.
func Percent(h domain.CPUHistory) uint64 {
	total := h.TotalPeriod
	if total == 0 {
		total = 1
	}

	nice := share(h.NicePeriod, total)
	normal := share(h.UserPeriod, total)
	kernel := share(h.SystemAllPeriod, total)
	irq := share(addSat(h.StealPeriod, h.GuestPeriod), total)

	percent := addSat(addSat(nice, normal), addSat(kernel, irq))
	return min(percent, 100)
}

// Evaluate compares a percentage against a threshold. A zero threshold
// disables the alert.
func Evaluate(cpu int, average bool, percent, threshold uint64) domain.UsageRecord {
	return domain.UsageRecord{
		CPU:               cpu,
		Average:           average,
		Percent:           percent,
		Threshold:         threshold,
		ThresholdExceeded: threshold != 0 && percent > threshold,
	}
}
