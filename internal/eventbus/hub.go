// Package eventbus fans a Handle's lifecycle events out to WebSocket
// clients and in-process subscribers, without ever blocking the
// Supervisor that emits them.
package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/relaywatch/daemonctl"
	"nhooyr.io/websocket"
)

// wireEvent is the JSON wire shape for a daemonctl.Event: identical
// fields, but Kind rendered as its string name rather than the
// underlying int.
type wireEvent struct {
	ID         uuid.UUID `json:"id"`
	Identifier string    `json:"identifier"`
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
	Detail     string    `json:"detail,omitempty"`
}

// Hub manages WebSocket client connections and in-process subscribers,
// broadcasting every Emit call to both. It implements daemonctl.EventSink.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*client]bool
	subscribers map[chan daemonctl.Event]bool

	registerCh   chan *client
	unregisterCh chan *client
	broadcastCh  chan daemonctl.Event

	Logger func(format string, args ...any)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an idle Hub. Call Run to start processing.
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*client]bool),
		subscribers:  make(map[chan daemonctl.Event]bool),
		registerCh:   make(chan *client, 16),
		unregisterCh: make(chan *client, 16),
		broadcastCh:  make(chan daemonctl.Event, 256),
	}
}

// Run processes register, unregister, and broadcast events until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			for sub := range h.subscribers {
				close(sub)
				delete(h.subscribers, sub)
			}
			h.mu.Unlock()
			return

		case c := <-h.registerCh:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregisterCh:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()

		case evt := <-h.broadcastCh:
			h.deliver(evt)
		}
	}
}

func (h *Hub) deliver(evt daemonctl.Event) {
	data, err := json.Marshal(wireEvent{
		ID:         evt.ID,
		Identifier: evt.Identifier,
		Kind:       evt.Kind.String(),
		At:         evt.At,
		Detail:     evt.Detail,
	})
	if err != nil {
		h.log("eventbus: marshal event for %s: %v", evt.Identifier, err)
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log("eventbus: client send buffer full, dropping event for %s", evt.Identifier)
		}
	}
	for sub := range h.subscribers {
		select {
		case sub <- evt:
		default:
			h.log("eventbus: subscriber channel full, dropping event for %s", evt.Identifier)
		}
	}
	h.mu.RUnlock()
}

// Emit satisfies daemonctl.EventSink. It never blocks: if the broadcast
// channel is saturated, the event is dropped and logged.
func (h *Hub) Emit(evt daemonctl.Event) {
	select {
	case h.broadcastCh <- evt:
	default:
		h.log("eventbus: broadcast channel full, dropping event for %s", evt.Identifier)
	}
}

// Subscribe registers an in-process channel that receives every
// broadcast event. Call the returned function to unsubscribe.
func (h *Hub) Subscribe() (<-chan daemonctl.Event, func()) {
	ch := make(chan daemonctl.Event, 32)
	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			close(ch)
			delete(h.subscribers, ch)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and streams every
// subsequent event to it as JSON text frames.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log("eventbus: websocket accept failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.registerCh <- c

	go h.writePump(r.Context(), c)
	h.readPump(r.Context(), c)
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() { h.unregisterCh <- c }()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *Hub) log(format string, args ...any) {
	if h.Logger != nil {
		h.Logger(format, args...)
		return
	}
	log.Printf(format, args...)
}
