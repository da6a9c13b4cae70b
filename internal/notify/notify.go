// Package notify publishes tracker events to subscribers outside the process.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the message published for every journaled tracker change.
type Event struct {
	EventID   string          `json:"event_id"`
	User      string          `json:"user"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event (default when notifications are disabled).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
