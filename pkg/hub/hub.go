package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-rigmotion/internal/log"
)

// broadcastBuffer is how many messages may wait for the hub loop.
const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Name for logging
	name string

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// guards clients for ClientCount
	mu sync.RWMutex

	dropped atomic.Uint64

	// OnMessage, if set, receives every frame a client sends. It runs on the
	// client's read goroutine.
	OnMessage func(c *Client, data []byte)
}

// New creates a hub. Call Run before registering clients.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's main loop. It returns when ctx is done, after closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	logger := log.With("hub", h.name)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logger.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logger.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// too slow to keep up
					delete(h.clients, client)
					close(client.send)
					h.dropped.Add(1)
					logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every client. If the hub is backed up the
// message is discarded; the next snapshot supersedes it.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Debug("broadcast queue full, dropping message", "hub", h.name)
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hub %s: encode: %w", h.name, err)
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many clients were disconnected for falling behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
