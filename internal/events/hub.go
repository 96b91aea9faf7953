package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Hub broadcasts every Event to all currently connected websocket
// clients. Clients are read-only subscribers: the hub never reads
// messages back from them beyond the initial handshake.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty event broadcast hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		log:     log.With().Str("component", "events_hub").Logger(),
	}
}

// ServeHTTP upgrades the request to a websocket connection and keeps it
// registered until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// No inbound protocol: block on reads purely to detect disconnects.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connected client, dropping any
// client that fails or is too slow to keep up within the write timeout.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn().Err(err).Msg("marshal event for broadcast failed")
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.log.Debug().Err(err).Msg("dropping slow or closed websocket client")
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
