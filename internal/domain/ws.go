package domain

import "encoding/json"

const (
	WsMessageSubscribe   = "subscribe"
	WsMessageUnsubscribe = "unsubscribe"
)

type WsClientMessage struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type WsServerEvent struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// IsWsChannel reports whether clients may subscribe to channel.
func IsWsChannel(channel string) bool {
	return channel == WsChannelUsage || channel == WsChannelAlerts
}
