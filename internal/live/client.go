package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Buffer size for outbound messages
	sendBufferSize = 16

	// Upper bound on a single dashboard load
	loadTimeout = 30 * time.Second
)

// Loader builds dashboard views; satisfied by dashboard.Service
type Loader interface {
	CurrentWeek(ctx context.Context) (*models.WeekInfo, error)
	Dashboard(ctx context.Context, week, totalWeeks int) *models.DashboardView
	Neighbours(ctx context.Context, week, totalWeeks int) map[int]int
}

// Registry is the part of the hub a client needs
type Registry interface {
	Unregister(client *Client)
}

// Client is one websocket connection viewing the dashboard
type Client struct {
	ID     string
	conn   *websocket.Conn
	Send   chan ServerMessage // Exported for hub access
	hub    Registry
	loader Loader

	tracker navigation.Tracker
	limiter *tokenBucket

	mu    sync.Mutex
	state *navigation.ViewState // nil until subscribed

	// sendMu orders sends from load goroutines against Close
	sendMu sync.Mutex
	closed bool
}

// NewClient creates a new client instance
func NewClient(id string, conn *websocket.Conn, hub Registry, loader Loader) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		Send:   make(chan ServerMessage, sendBufferSize),
		hub:    hub,
		loader: loader,

		limiter: newTokenBucket(maxMessagesPerWindow, rateLimitWindow),
	}
}

// ReadPump pumps messages from the WebSocket connection to the client handler
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("client %s unexpected close: %v\n", c.ID, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		c.Handle(ctx, msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				fmt.Printf("client %s write error: %v\n", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend sends a message to the client (non-blocking)
// Returns true if sent, false if buffer is full or the client is closed
func (c *Client) TrySend(msg ServerMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// Close closes the Send channel. Loads that finish afterwards are
// discarded. Safe to call more than once.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Handle processes one message from the client
func (c *Client) Handle(ctx context.Context, msg ClientMessage) {
	if !c.limiter.Allow() {
		c.sendError("rate_limited", "too many messages, slow down")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(ctx, msg.Week)
	case MessageTypeNavigate:
		c.handleNavigate(ctx, msg.Direction)
	case MessageTypeHeartbeat:
		c.TrySend(ServerMessage{Type: MessageTypeHeartbeat, Timestamp: time.Now()})
	default:
		c.sendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// Refresh reloads the week the client is viewing. Does nothing before
// subscribe or while a load of that week is still in flight.
// Returns whether a load was started.
func (c *Client) Refresh(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == nil {
		c.mu.Unlock()
		return false
	}
	if latest, pending := c.tracker.Pending(); pending && latest.Week == c.state.CurrentWeek {
		c.mu.Unlock()
		return false
	}
	ticket, totalWeeks := c.tracker.Begin(c.state.CurrentWeek), c.state.TotalWeeks
	c.mu.Unlock()

	c.load(ctx, ticket, totalWeeks)
	return true
}

// Week returns the week the client is viewing, 0 before subscribe
func (c *Client) Week() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return 0
	}
	return c.state.CurrentWeek
}

func (c *Client) handleSubscribe(ctx context.Context, week int) {
	info, err := c.loader.CurrentWeek(ctx)
	if err != nil {
		c.sendError("week_unavailable", err.Error())
		return
	}

	if week == 0 {
		week = info.CurrentWeek
	}

	c.mu.Lock()
	c.state = navigation.NewViewState(c.ID, week, info.TotalWeeks)
	ticket, totalWeeks := c.tracker.Begin(c.state.CurrentWeek), c.state.TotalWeeks
	c.mu.Unlock()

	fmt.Printf("client %s subscribed to week %d\n", c.ID, ticket.Week)
	c.load(ctx, ticket, totalWeeks)
}

func (c *Client) handleNavigate(ctx context.Context, direction int) {
	c.mu.Lock()
	if c.state == nil {
		c.mu.Unlock()
		c.sendError("not_subscribed", "subscribe before navigating")
		return
	}
	if _, _, err := c.state.ChangeWeek(direction); err != nil {
		c.mu.Unlock()
		c.sendError("invalid_direction", err.Error())
		return
	}
	ticket, totalWeeks := c.tracker.Begin(c.state.CurrentWeek), c.state.TotalWeeks
	c.mu.Unlock()

	c.load(ctx, ticket, totalWeeks)
}

// load fetches the ticket's week in the background. Only the most recently
// issued ticket is delivered; older ones are dropped when they finish.
// Tickets are issued under mu together with the state change they load.
func (c *Client) load(ctx context.Context, ticket navigation.Ticket, totalWeeks int) {
	week := ticket.Week

	go func() {
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()

		view := c.loader.Dashboard(ctx, week, totalWeeks)
		counts := c.loader.Neighbours(ctx, week, totalWeeks)

		c.mu.Lock()
		if !c.tracker.Complete(ticket) {
			c.mu.Unlock()
			return
		}
		if view.Weekly.Error == "" {
			c.state.MarkAvailable(week, len(view.Weekly.Recommendations))
		}
		for w, n := range counts {
			c.state.MarkAvailable(w, n)
		}
		update := DashboardUpdate{
			Week:       week,
			TotalWeeks: totalWeeks,
			HasPrev:    c.state.HasPrev(),
			HasNext:    c.state.HasNext(),
			Dashboard:  view,
		}
		c.mu.Unlock()

		c.TrySend(ServerMessage{
			Type:      MessageTypeDashboard,
			Seq:       ticket.Seq,
			Payload:   update,
			Timestamp: time.Now(),
		})
	}()
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.TrySend(ServerMessage{
		Type: MessageTypeError,
		Payload: ErrorMessage{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}
