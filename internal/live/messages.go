package live

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
)

// Message types for WebSocket communication
const (
	MessageTypeSubscribe = "subscribe"
	MessageTypeNavigate  = "navigate"
	MessageTypeHeartbeat = "heartbeat"
	MessageTypeDashboard = "dashboard"
	MessageTypeError     = "error"
)

// ClientMessage represents a message from client to server.
// Week is read by subscribe (0 means the current week), Direction by navigate.
type ClientMessage struct {
	Type      string `json:"type"`
	Week      int    `json:"week,omitempty"`
	Direction int    `json:"direction,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      string      `json:"type"`
	Seq       int64       `json:"seq,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// DashboardUpdate is the payload of a dashboard message
type DashboardUpdate struct {
	Week       int                   `json:"week"`
	TotalWeeks int                   `json:"total_weeks"`
	HasPrev    bool                  `json:"has_prev"`
	HasNext    bool                  `json:"has_next"`
	Dashboard  *models.DashboardView `json:"dashboard"`
}

// ErrorMessage is the payload of an error message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
