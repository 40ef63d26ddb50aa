// Package websocket streams run lifecycle events to subscribed dashboards.
// A term run can take a while on large cohorts; advising and operations
// screens subscribe here instead of polling the run endpoint.
package websocket

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RunEvent is one progress notification for a term run. Phase values come
// from the engine's run phase constants.
type RunEvent struct {
	RunID     string    `json:"runId"`
	Term      int       `json:"term"`
	Phase     string    `json:"phase"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub maintains the set of subscribed clients and fans run events out to
// them. Publishing never blocks the engine: slow clients are dropped.
type Hub struct {
	clients    map[*Client]bool
	events     chan *RunEvent
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		events:     make(chan *RunEvent, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run handles registrations and event fan-out. Start it once, in its own
// goroutine, during bootstrap.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

// Publish queues a run event for delivery. Safe to call from the run
// goroutine; drops the event if the hub queue is full rather than stalling
// the optimizer.
func (h *Hub) Publish(event *RunEvent) {
	event.Timestamp = time.Now()
	select {
	case h.events <- event:
	default:
		h.logger.Warn().Str("runId", event.RunID).Str("phase", event.Phase).
			Msg("Event queue full, dropping run event")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Info().
		Str("addr", client.conn.RemoteAddr().String()).
		Int("subscribers", len(h.clients)).
		Msg("Run event subscriber registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) broadcast(event *RunEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Slow consumer; drop this event for them
			h.logger.Warn().
				Str("addr", client.conn.RemoteAddr().String()).
				Msg("Subscriber send buffer full, skipping event")
		}
	}
}
