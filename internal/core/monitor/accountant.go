package monitor

import "cpumon/internal/domain"

// saturatingSub floors at zero instead of wrapping when b > a.
func saturatingSub(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return 0
}

// account folds a new cumulative snapshot into h. Guest time is already
// counted inside user and nice, so it is taken out before the aggregates
// are built. Every period is a saturating delta against the previous
// baseline, which then becomes the new snapshot.
func account(h *domain.CPUHistory, c domain.CPUCounters) {
	user := saturatingSub(c.User, c.Guest)
	nice := saturatingSub(c.Nice, c.GuestNice)

	idleAll := c.Idle + c.IOWait
	systemAll := c.System + c.IRQ + c.SoftIRQ
	virtAll := c.Guest + c.GuestNice
	total := user + nice + systemAll + idleAll + c.Steal + virtAll

	h.UserPeriod = saturatingSub(user, h.UserTime)
	h.NicePeriod = saturatingSub(nice, h.NiceTime)
	h.SystemPeriod = saturatingSub(c.System, h.SystemTime)
	h.SystemAllPeriod = saturatingSub(systemAll, h.SystemAllTime)
	h.IdleAllPeriod = saturatingSub(idleAll, h.IdleAllTime)
	h.IdlePeriod = saturatingSub(c.Idle, h.IdleTime)
	h.IOWaitPeriod = saturatingSub(c.IOWait, h.IOWaitTime)
	h.IRQPeriod = saturatingSub(c.IRQ, h.IRQTime)
	h.SoftIRQPeriod = saturatingSub(c.SoftIRQ, h.SoftIRQTime)
	h.StealPeriod = saturatingSub(c.Steal, h.StealTime)
	h.GuestPeriod = saturatingSub(virtAll, h.GuestTime)
	h.TotalPeriod = saturatingSub(total, h.TotalTime)

	h.UserTime = user
	h.NiceTime = nice
	h.SystemTime = c.System
	h.SystemAllTime = systemAll
	h.IdleAllTime = idleAll
	h.IdleTime = c.Idle
	h.IOWaitTime = c.IOWait
	h.IRQTime = c.IRQ
	h.SoftIRQTime = c.SoftIRQ
	h.StealTime = c.Steal
	h.GuestTime = virtAll
	h.TotalTime = total
}

// HistoryTable holds one entry per processor plus the average entry at
// index AverageID.
type HistoryTable struct {
	entries []domain.CPUHistory
}

func NewHistoryTable(numProcessors int) (*HistoryTable, error) {
	if numProcessors < 1 {
		return nil, domain.ErrInvalidProcessorCount
	}

	return &HistoryTable{entries: make([]domain.CPUHistory, numProcessors+1)}, nil
}

func (t *HistoryTable) NumProcessors() int {
	return len(t.entries) - 1
}

func (t *HistoryTable) AverageID() int {
	return len(t.entries) - 1
}

// Apply accounts c into the entry for id. Ids outside the table are
// ignored and reported as false.
func (t *HistoryTable) Apply(id int, c domain.CPUCounters) bool {
	if id < 0 || id >= len(t.entries) {
		return false
	}

	account(&t.entries[id], c)
	return true
}

func (t *HistoryTable) Get(id int) (domain.CPUHistory, bool) {
	if id < 0 || id >= len(t.entries) {
		return domain.CPUHistory{}, false
	}
	return t.entries[id], true
}
