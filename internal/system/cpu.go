package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tklauser/go-sysconf"
)

// CPUStat is one "cpuN" line of /proc/stat, in USER_HZ ticks.
type CPUStat struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
}

// ProcStat is the cpu section of /proc/stat.
type ProcStat struct {
	// Total is the aggregate "cpu " line, summed by the kernel over every
	// possible processor. Nil when the line is missing or malformed.
	Total *CPUStat
	// PerCPU holds the "cpuN" lines keyed by id. The kernel only lists
	// online processors there.
	PerCPU map[int]CPUStat
}

func (r *SystemReader) CPUStats() (ProcStat, error) {
	data, err := os.ReadFile(r.procPath("stat"))
	if err != nil {
		return ProcStat{}, fmt.Errorf("read cpu stat: %w", err)
	}

	out := ProcStat{PerCPU: make(map[int]CPUStat)}
	for line := range strings.SplitSeq(string(data), "\n") {
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		if strings.HasPrefix(line, "cpu ") {
			stat, ok := parseCPUCounters(strings.Fields(line)[1:])
			if !ok {
				r.log.Debug("skipping malformed cpu aggregate line", "line", line)
				continue
			}
			out.Total = &stat
			continue
		}

		id, stat, ok := parseCPUStat(line)
		if !ok {
			r.log.Debug("skipping malformed cpu stat line", "line", line)
			continue
		}
		out.PerCPU[id] = stat
	}

	return out, nil
}

func parseCPUStat(line string) (int, CPUStat, bool) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return 0, CPUStat{}, false
	}

	id, err := strconv.Atoi(strings.TrimPrefix(fields[0], "cpu"))
	if err != nil || id < 0 {
		return 0, CPUStat{}, false
	}

	stat, ok := parseCPUCounters(fields[1:])
	return id, stat, ok
}

// parseCPUCounters reads the numeric columns of one cpu line. Older
// kernels stop after idle, iowait, irq or steal; missing columns stay zero.
func parseCPUCounters(fields []string) (CPUStat, bool) {
	if len(fields) < 4 {
		return CPUStat{}, false
	}

	var v [10]uint64
	for i, raw := range fields {
		if i >= len(v) {
			break
		}

		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return CPUStat{}, false
		}
		v[i] = n
	}

	return CPUStat{
		User:      v[0],
		Nice:      v[1],
		System:    v[2],
		Idle:      v[3],
		IOWait:    v[4],
		IRQ:       v[5],
		SoftIRQ:   v[6],
		Steal:     v[7],
		Guest:     v[8],
		GuestNice: v[9],
	}, true
}

// CPUIdleResidencyUS sums the idle state residency of one processor from
// cpuidle, in microseconds.
func (r *SystemReader) CPUIdleResidencyUS(cpu int) (uint64, error) {
	pattern := r.sysPath("devices", "system", "cpu", "cpu"+strconv.Itoa(cpu), "cpuidle", "state*", "time")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("cpuidle not available for cpu %d", cpu)
	}

	var total uint64
	for _, path := range matches {
		us, err := readUint(path)
		if err != nil {
			return 0, fmt.Errorf("read cpuidle residency: %w", err)
		}
		total += us
	}

	return total, nil
}

// ClockTicks returns USER_HZ, falling back to 100.
func ClockTicks() uint64 {
	hz, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || hz <= 0 {
		return 100
	}
	return uint64(hz)
}
