package monitor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpumon/internal/domain"
)

func periods(h domain.CPUHistory) []uint64 {
	return []uint64{
		h.TotalPeriod, h.UserPeriod, h.SystemPeriod, h.SystemAllPeriod,
		h.IdleAllPeriod, h.IdlePeriod, h.NicePeriod, h.IOWaitPeriod,
		h.IRQPeriod, h.SoftIRQPeriod, h.StealPeriod, h.GuestPeriod,
	}
}

func TestSaturatingSub(t *testing.T) {
	assert.Equal(t, uint64(5), saturatingSub(10, 5))
	assert.Equal(t, uint64(0), saturatingSub(5, 10))
	assert.Equal(t, uint64(0), saturatingSub(7, 7))
	assert.Equal(t, uint64(math.MaxUint64), saturatingSub(math.MaxUint64, 0))
}

func TestAccountGuestCorrectionAndAggregates(t *testing.T) {
	var h domain.CPUHistory

	account(&h, domain.CPUCounters{
		User: 100, Nice: 40, System: 30, Idle: 500, IOWait: 20,
		IRQ: 5, SoftIRQ: 7, Steal: 3, Guest: 25, GuestNice: 10,
	})

	assert.Equal(t, uint64(75), h.UserTime)
	assert.Equal(t, uint64(30), h.NiceTime)
	assert.Equal(t, uint64(520), h.IdleAllTime)
	assert.Equal(t, uint64(42), h.SystemAllTime)
	assert.Equal(t, uint64(35), h.GuestTime)
	assert.Equal(t, uint64(75+30+42+520+3+35), h.TotalTime)

	// First application measures against a zero baseline.
	assert.Equal(t, h.TotalTime, h.TotalPeriod)
	assert.Equal(t, h.UserTime, h.UserPeriod)
}

func TestAccountGuestLargerThanUserDoesNotWrap(t *testing.T) {
	var h domain.CPUHistory

	account(&h, domain.CPUCounters{User: 10, Nice: 1, Guest: 12, GuestNice: 3})

	assert.Equal(t, uint64(0), h.UserTime)
	assert.Equal(t, uint64(0), h.NiceTime)
	assert.Equal(t, uint64(15), h.TotalTime)
}

func TestAccountDecreasingCountersFloorAtZero(t *testing.T) {
	var h domain.CPUHistory

	account(&h, domain.CPUCounters{
		User: 1000, Nice: 1000, System: 1000, Idle: 1000, IOWait: 1000,
		IRQ: 1000, SoftIRQ: 1000, Steal: 1000, Guest: 100, GuestNice: 100,
	})
	account(&h, domain.CPUCounters{User: 1, Idle: 2})

	for i, p := range periods(h) {
		assert.Zerof(t, p, "period %d", i)
	}
	assert.Equal(t, uint64(1), h.UserTime)
	assert.Equal(t, uint64(2), h.IdleTime)
}

func TestAccountIdenticalSnapshotIsIdempotent(t *testing.T) {
	var h domain.CPUHistory
	c := domain.CPUCounters{User: 120, Nice: 4, System: 33, Idle: 900, IOWait: 2, Steal: 9, Guest: 10}

	account(&h, c)
	account(&h, c)

	for i, p := range periods(h) {
		assert.Zerof(t, p, "period %d", i)
	}
	assert.Equal(t, uint64(0), Percent(h))
}

func TestHistoryTable(t *testing.T) {
	_, err := NewHistoryTable(0)
	require.ErrorIs(t, err, domain.ErrInvalidProcessorCount)

	table, err := NewHistoryTable(4)
	require.NoError(t, err)
	assert.Equal(t, 4, table.NumProcessors())
	assert.Equal(t, 4, table.AverageID())

	assert.True(t, table.Apply(4, domain.CPUCounters{User: 10}))
	assert.False(t, table.Apply(5, domain.CPUCounters{User: 10}))
	assert.False(t, table.Apply(-1, domain.CPUCounters{User: 10}))

	avg, ok := table.Get(4)
	require.True(t, ok)
	assert.Equal(t, uint64(10), avg.UserPeriod)

	_, ok = table.Get(5)
	assert.False(t, ok)
}
