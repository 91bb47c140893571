package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"cpumon/internal/logger"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewHandler accepts connections without an Origin header and those whose
// origin is listed in allowedOrigins.
func NewHandler(hub *Hub, allowedOrigins []string, log logger.Logger) *Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			if !slices.Contains(allowedOrigins, origin) {
				log.Warn("ws origin rejected", "origin", origin)
				return false
			}

			return true
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		log:      log,
	}
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn, h.log)
	if !h.hub.enqueue(h.hub.register, client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.log.Info("ws client connected", "remote_addr", conn.RemoteAddr())
}
