package live

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Hub maintains the set of connected dashboard clients and refreshes
// their view periodically
type Hub struct {
	// Registered clients
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	refreshInterval time.Duration

	// Metrics
	totalConnections int64
	totalRefreshes   int64
	metricsMu        sync.Mutex
}

// NewHub creates a new hub that refreshes every client at the given interval
func NewHub(refreshInterval time.Duration) *Hub {
	return &Hub{
		clients:         make(map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		done:            make(chan struct{}),
		refreshInterval: refreshInterval,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	fmt.Println("✓ Live hub started")

	ticker := time.NewTicker(h.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.refreshAll(ctx)
		}
	}
}

// Register adds a client to the hub. A client registering after the hub
// stopped is closed straight away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client from the hub. Returns immediately once the
// hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = true

	h.metricsMu.Lock()
	h.totalConnections++
	h.metricsMu.Unlock()

	fmt.Printf("client %s connected (total: %d)\n", c.ID, len(h.clients))
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.Close()
		fmt.Printf("client %s disconnected from week %d (total: %d)\n", c.ID, c.Week(), len(h.clients))
	}
}

// refreshAll reloads the current week of every subscribed client. Each
// client loads in the background so a slow source never blocks the loop;
// a client still loading its week is skipped until that load finishes.
func (h *Hub) refreshAll(ctx context.Context) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	refreshed := 0
	for _, c := range clients {
		if c.Refresh(ctx) {
			refreshed++
		}
	}

	if refreshed > 0 {
		h.metricsMu.Lock()
		h.totalRefreshes += int64(refreshed)
		h.metricsMu.Unlock()
	}
}

// GetMetrics returns hub metrics
func (h *Hub) GetMetrics() map[string]interface{} {
	activeClients := h.GetClientCount()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()

	return map[string]interface{}{
		"active_clients":    activeClients,
		"total_connections": h.totalConnections,
		"total_refreshes":   h.totalRefreshes,
	}
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	fmt.Printf("🛑 Shutting down live hub (%d active clients)\n", len(h.clients))

	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}
