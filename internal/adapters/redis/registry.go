package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

// StreamClient is the part of *redis.Client the alert log uses.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
}

const (
	alertQueueSize = 256
	appendTimeout  = 2 * time.Second
)

// AlertRegistry appends exceeded usage records to a capped redis stream.
// Emit only queues; Run performs the writes.
type AlertRegistry struct {
	redis  StreamClient
	log    logger.Logger
	stream string
	maxLen int64

	queue chan domain.UsageRecord
	done  chan struct{}
}

func NewAlertRegistry(r StreamClient, log logger.Logger, stream string, maxLen int64) *AlertRegistry {
	return &AlertRegistry{
		redis:  r,
		log:    log,
		stream: stream,
		maxLen: maxLen,
		queue:  make(chan domain.UsageRecord, alertQueueSize),
		done:   make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled.
func (r *AlertRegistry) Run(ctx context.Context) error {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			if n := len(r.queue); n > 0 {
				r.log.Warn("redis: alert registry stopped with queued alerts", "queued", n)
			}
			return nil

		case rec := <-r.queue:
			appendCtx, cancel := context.WithTimeout(ctx, appendTimeout)
			if _, err := r.Append(appendCtx, rec); err != nil {
				r.log.Error("redis: failed to append alert", "cpu", rec.CPU, "error", err)
			}
			cancel()
		}
	}
}

func (r *AlertRegistry) Append(ctx context.Context, rec domain.UsageRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("registry marshal failed: %w", err)
	}

	id, err := r.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"data": data,
		},
		MaxLen: r.maxLen,
		Approx: true,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("registry xadd failed: %w", err)
	}

	return id, nil
}

// Emit queues alerts for Run and never blocks. Informational records are
// ignored, and alerts are dropped while the queue is full or after Run
// has returned.
func (r *AlertRegistry) Emit(rec domain.UsageRecord) {
	if !rec.ThresholdExceeded {
		return
	}

	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.queue <- rec:
	default:
		r.log.Warn("redis: alert queue full, dropping alert", "cpu", rec.CPU)
	}
}

// Recent returns up to limit alerts, newest first.
func (r *AlertRegistry) Recent(ctx context.Context, limit int64) ([]domain.UsageRecord, error) {
	msgs, err := r.redis.XRevRangeN(ctx, r.stream, "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("registry xrevrange failed: %w", err)
	}

	out := make([]domain.UsageRecord, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			r.log.Warn("redis: alert entry without data", "id", msg.ID)
			continue
		}

		var rec domain.UsageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			r.log.Warn("redis: invalid alert entry", "id", msg.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}

	return out, nil
}
