// Package alert renders usage records into the process log.
package alert

import (
	"fmt"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(rec domain.UsageRecord) {
	args := []any{"cpu", rec.CPU, "percent", rec.Percent, "average", rec.Average}

	if rec.ThresholdExceeded {
		args = append(args, "threshold", rec.Threshold)
		s.log.Warn(fmt.Sprintf("WARNING: %s: %d%%, larger than alert threshold %d%%!", subject(rec), rec.Percent, rec.Threshold), args...)
		return
	}

	s.log.Info(fmt.Sprintf("%s: %d%%", subject(rec), rec.Percent), args...)
}

func subject(rec domain.UsageRecord) string {
	if rec.Average {
		return "average cpu usage"
	}
	return fmt.Sprintf("cpu %d", rec.CPU)
}
