// Package event
package event

import (
	"sync"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

type Handler func(event any)

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      logger.Logger
}

func New(log logger.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

func (b *Bus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish calls every handler of eventName in subscription order. A
// panicking handler is logged and does not stop the others.
func (b *Bus) Publish(eventName string, event any) {
	b.mu.RLock()
	handlers := b.handlers[eventName]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Warn("event handler panic", "event", eventName, "panic", r)
				}
			}()
			h(event)
		}()
	}
}

// Emit publishes a usage record, making the bus the monitor's alert sink.
func (b *Bus) Emit(rec domain.UsageRecord) {
	b.Publish(domain.EventUsageEvaluated, rec)
}

// OnUsage subscribes a typed handler to usage records.
func (b *Bus) OnUsage(fn func(rec domain.UsageRecord)) {
	b.Subscribe(domain.EventUsageEvaluated, func(event any) {
		if rec, ok := event.(domain.UsageRecord); ok {
			fn(rec)
		}
	})
}
