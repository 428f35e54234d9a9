package events

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of dashboard event
type EventType string

const (
	// EventTypePreprocess represents a completed preprocessing request
	EventTypePreprocess EventType = "preprocess"
	// EventTypeRulesReload represents a rule table reload
	EventTypeRulesReload EventType = "rules_reload"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents an event sent to dashboard clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// PreprocessEvent summarizes one preprocessing request. The sentence text
// itself is never broadcast, only counts.
type PreprocessEvent struct {
	RequestID     string  `json:"request_id"`
	Version       string  `json:"version"`
	Modality      string  `json:"modality"`
	ClientIP      string  `json:"client_ip"`
	InputLength   int     `json:"input_length"`
	SentenceCount int     `json:"sentence_count"`
	CacheHit      bool    `json:"cache_hit"`
	ProcessingMS  float64 `json:"processing_ms"`
}

// ReloadEvent describes the outcome of a rule table reload
type ReloadEvent struct {
	RequestID  string         `json:"request_id,omitempty"`
	Scopes     []string       `json:"scopes"`
	RuleCounts map[string]int `json:"rule_counts"`
	LoadErrors int            `json:"load_errors"`
	DurationMS float64        `json:"duration_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	CacheHits        int64  `json:"cache_hits"`
	CacheMisses      int64  `json:"cache_misses"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
	MemoryUsage      string `json:"memory_usage"`
}

// ConnectionEvent represents dashboard connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
	Message  string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a connected dashboard client
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
