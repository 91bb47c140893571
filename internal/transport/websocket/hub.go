// Package websocket streams usage records to subscribed clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *Subscription
	unsubscribe chan *Subscription
	events      chan *domain.WsServerEvent
	done        chan struct{}

	countsMu sync.RWMutex
	counts   map[string]int

	log logger.Logger
}

type Subscription struct {
	client  *Client
	channel string
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		channels: make(map[string]map[*Client]bool),

		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *Subscription),
		unsubscribe: make(chan *Subscription),
		events:      make(chan *domain.WsServerEvent, 256),
		done:        make(chan struct{}),

		counts: make(map[string]int),
		log:    log,
	}
}

// Run owns all client and channel state until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("ws: hub shutting down", "clients", len(h.clients))
			for client := range h.clients {
				close(client.send)
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.addSubscriber(domain.WsChannelUsage, client)
			h.log.Info("ws: client registered", "id", client.ID, "total_clients", len(h.clients))

		case client := <-h.unregister:
			h.removeClient(client)

		case sub := <-h.subscribe:
			h.addSubscriber(sub.channel, sub.client)
			h.log.Debug("ws: client subscribed", "client_id", sub.client.ID, "channel", sub.channel)

		case sub := <-h.unsubscribe:
			if subs, ok := h.channels[sub.channel]; ok && subs[sub.client] {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.channels, sub.channel)
				}
				h.syncCount(sub.channel)
				h.log.Debug("ws: client unsubscribed", "client_id", sub.client.ID, "channel", sub.channel)
			}

		case event := <-h.events:
			h.handleEvent(event)
		}
	}
}

func (h *Hub) addSubscriber(channel string, client *Client) {
	if !h.clients[client] {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
	h.syncCount(channel)
}

func (h *Hub) removeClient(client *Client) {
	if !h.clients[client] {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for channel, subs := range h.channels {
		if subs[client] {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.channels, channel)
			}
			h.syncCount(channel)
		}
	}

	h.log.Info("ws: client unregistered", "id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) syncCount(channel string) {
	h.countsMu.Lock()
	defer h.countsMu.Unlock()
	h.counts[channel] = len(h.channels[channel])
}

// SubscriberCount returns how many clients currently receive channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.countsMu.RLock()
	defer h.countsMu.RUnlock()
	return h.counts[channel]
}

func (h *Hub) handleEvent(event *domain.WsServerEvent) {
	subs, ok := h.channels[event.Channel]
	if !ok {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws: failed to marshal server event", "error", err)
		return
	}

	for client := range subs {
		select {
		case client.send <- message:
		default:
			h.log.Warn("ws: client channel full, force unregister", "id", client.ID)
			h.removeClient(client)
		}
	}
}

// Broadcast queues ev for delivery. Events are dropped when the queue is
// full or the hub has stopped.
func (h *Hub) Broadcast(ev *domain.WsServerEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	default:
		h.log.Warn("ws: event queue full, dropping event", "channel", ev.Channel)
	}
}

// Emit publishes every record on the usage channel and exceeded ones on the
// alert channel as well.
func (h *Hub) Emit(rec domain.UsageRecord) {
	h.Broadcast(&domain.WsServerEvent{
		Channel: domain.WsChannelUsage,
		Event:   domain.EventUsageEvaluated,
		Payload: rec,
	})

	if rec.ThresholdExceeded {
		h.Broadcast(&domain.WsServerEvent{
			Channel: domain.WsChannelAlerts,
			Event:   domain.EventUsageExceeded,
			Payload: rec,
		})
	}
}

func (h *Hub) enqueue(ch chan *Client, client *Client) bool {
	select {
	case ch <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) enqueueSub(ch chan *Subscription, sub *Subscription) {
	select {
	case ch <- sub:
	case <-h.done:
	}
}
