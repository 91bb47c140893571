package cpu

import (
	"context"
	"slices"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

// Sampler produces one CPUSample per tick. It only reads; all
// accounting state lives in the monitor.
type Sampler struct {
	source CounterSource
	topo   Topology
	policy IdlePolicy
	log    logger.Logger
}

func NewSampler(source CounterSource, topo Topology, policy IdlePolicy, log logger.Logger) *Sampler {
	if policy == nil {
		policy = TickPolicy{}
	}

	return &Sampler{
		source: source,
		topo:   topo,
		policy: policy,
		log:    log,
	}
}

// Sample reads the source once. Sum is the source's aggregate when it has
// one, with each online processor's coarse counters swapped for the
// policy-adjusted ones; otherwise it is summed over the possible set.
func (s *Sampler) Sample(ctx context.Context) (domain.CPUSample, error) {
	reading, err := s.source.Counters(ctx)
	if err != nil {
		return domain.CPUSample{}, err
	}
	counters := reading.PerCPU
	if len(counters) == 0 {
		return domain.CPUSample{}, domain.ErrNoCounters
	}

	possible, err := s.topo.Possible()
	if err != nil {
		s.log.Debug("cpu: possible mask unavailable, using reported processors", "error", err)
		possible = sortedIDs(counters)
	}

	online, err := s.topo.Online()
	if err != nil {
		s.log.Debug("cpu: online mask unavailable, using reported processors", "error", err)
		online = sortedIDs(counters)
	}

	possible = slices.Clone(possible)
	slices.Sort(possible)

	sample := domain.CPUSample{PerCPU: make(map[int]domain.CPUCounters, len(online))}
	if reading.Total != nil {
		sample.Sum = *reading.Total
	}

	for _, id := range possible {
		coarse := counters[id]
		c := coarse
		isOnline := slices.Contains(online, id)

		if isOnline {
			c = s.policy.Adjust(id, coarse)
			sample.PerCPU[id] = c
			sample.Online = append(sample.Online, id)
		}

		switch {
		case reading.Total == nil:
			sample.Sum = sample.Sum.Add(c)
		case isOnline:
			sample.Sum = subSat(sample.Sum, coarse).Add(c)
		}
	}

	return sample, nil
}

func sortedIDs(counters map[int]domain.CPUCounters) []int {
	ids := make([]int, 0, len(counters))
	for id := range counters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
