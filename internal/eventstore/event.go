// Package eventstore journals tracker mutations in SQLite.
package eventstore

import "time"

// Event is one journaled tracker mutation.
type Event interface {
	// ID returns the row sequence number.
	ID() int64
	// EventID returns the globally unique event identifier.
	EventID() string
	// UserID returns the user whose state was mutated.
	UserID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	Seq            int64
	UUID           string
	EventUserID    string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.Seq }
func (e *BaseEvent) EventID() string             { return e.UUID }
func (e *BaseEvent) UserID() string              { return e.EventUserID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }
