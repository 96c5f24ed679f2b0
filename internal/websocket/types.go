package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/callwarden/callwarden/internal/engine"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAlert carries a compliance alert raised mid-call
	EventTypeAlert EventType = "alert"
	// EventTypeSession carries call session lifecycle changes
	EventTypeSession EventType = "session"
	// EventTypeSystem carries service status changes
	EventTypeSystem EventType = "system"
)

// Event is a single message pushed to dashboard clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AlertEvent is the payload for EventTypeAlert
type AlertEvent struct {
	CallID    string       `json:"call_id"`
	AgentID   string       `json:"agent_id"`
	AgentName string       `json:"agent_name"`
	Alert     engine.Alert `json:"alert"`
	LLMUsed   bool         `json:"llm_used"`
}

// SessionEvent is the payload for EventTypeSession
type SessionEvent struct {
	Action  string `json:"action"` // "started", "ended", "reset"
	CallID  string `json:"call_id"`
	AgentID string `json:"agent_id,omitempty"`
}

// SystemEvent is the payload for EventTypeSystem
type SystemEvent struct {
	Status         string `json:"status"`
	LLMAvailable   bool   `json:"llm_available"`
	LLMModel       string `json:"llm_model,omitempty"`
	ActiveSessions int    `json:"active_sessions"`
}

// ClientMessage is a message sent from a dashboard client
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is one connected dashboard
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
}
