// Package events contains the WebSocket event contracts of the dashboard.
package events

import (
	"time"

	"github.com/google/uuid"

	"loandash/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset messages
	MessageTypeDatasetReloaded     MessageType = "dataset:reloaded"
	MessageTypeDatasetReloadFailed MessageType = "dataset:reload_failed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Reload triggers
const (
	TriggerStartup = "startup"
	TriggerAPI     = "api"
	TriggerWatcher = "watcher"
	TriggerCLI     = "cli"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with a fresh ID and the current time.
func NewMessage(t MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        uuid.NewString(),
			Type:      t,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}
}

// DatasetReloaded announces that a new table is being served. Clients
// refetch options and the current summary when they receive it.
type DatasetReloaded struct {
	Dataset domain.DatasetInfo `json:"dataset"`
	Trigger string             `json:"trigger"`
}

// DatasetReloadFailed reports a failed reload; the previous table is kept.
type DatasetReloadFailed struct {
	Source  string `json:"source"`
	Trigger string `json:"trigger"`
	Error   string `json:"error"`
}

// ConnectMessage greets a new client with the dataset it will query.
type ConnectMessage struct {
	ClientID string              `json:"client_id"`
	Dataset  *domain.DatasetInfo `json:"dataset,omitempty"`
}
