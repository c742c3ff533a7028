// Package statusfeed pushes engine status transitions to HTTP and websocket
// clients.
//
// A Hub is an engine.StatusSink. Every emitted status is combined with the
// engine counters into a Message, kept as the latest snapshot, and fanned out
// to connected websocket clients. Slow clients drop messages rather than
// stall the producer.
package statusfeed

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roach88/hotclick/internal/engine"
	"github.com/roach88/hotclick/internal/model"
)

// clientBuffer is the per-client queue depth before messages are dropped.
const clientBuffer = 64

// Controller is the part of the engine the feed reads and drives.
type Controller interface {
	Snapshot() engine.Snapshot
	StopImmediately()
	Macros() []model.Macro
}

// Message is one status update as seen by feed clients.
type Message struct {
	Label        string      `json:"label"`
	Color        model.Color `json:"color"`
	Sent         int64       `json:"sent"`
	Cap          int64       `json:"cap"`
	Running      bool        `json:"running"`
	ActiveMacros int         `json:"active_macros"`
}

// Hub fans status messages out to subscribers.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	ctrl    Controller
	last    Message
	clients map[*client]struct{}
	closed  bool
}

// NewHub returns a hub whose latest status is idle.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	idle := model.StatusIdle()
	return &Hub{
		log:     log,
		last:    Message{Label: idle.Label, Color: idle.Color},
		clients: make(map[*client]struct{}),
	}
}

// Attach binds the hub to the engine it reports on. The engine takes the hub
// as its sink at construction, so the link is made afterwards.
func (h *Hub) Attach(ctrl Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
	h.last = h.withCounters(h.last)
}

// Emit implements engine.StatusSink.
func (h *Hub) Emit(s model.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := h.withCounters(Message{Label: s.Label, Color: s.Color})
	h.last = msg
	h.broadcastLocked(msg)
}

// Latest returns the most recent message with fresh counters.
func (h *Hub) Latest() Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.withCounters(h.last)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber. Later subscriptions are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) controller() Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl
}

func (h *Hub) withCounters(msg Message) Message {
	if h.ctrl == nil {
		return msg
	}
	snap := h.ctrl.Snapshot()
	msg.Sent = snap.Sent
	msg.Cap = snap.Cap
	msg.Running = snap.Running
	msg.ActiveMacros = snap.ActiveMacros
	return msg
}

// subscribe registers c and queues the latest message for it.
func (h *Hub) subscribe(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if data, err := json.Marshal(h.withCounters(h.last)); err == nil {
		c.send <- data
	}
	h.log.Debug("feed client connected", "clients", len(h.clients), "event", "feed_connected")
	return true
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.log.Debug("feed client disconnected", "clients", len(h.clients), "event", "feed_disconnected")
}

func (h *Hub) broadcastLocked(msg Message) {
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("feed marshal failed", "error", err, "event", "feed_marshal_failed")
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("feed client queue full, dropping", "event", "feed_dropped")
		}
	}
}
