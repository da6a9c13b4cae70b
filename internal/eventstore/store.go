package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for journaling and reading tracker events.
type Store interface {
	// Append adds a new event and returns its unique id.
	Append(ctx context.Context, userID, eventType string, payload []byte, metadata map[string]string) (string, error)

	// GetByUser retrieves all events for a user, oldest first.
	GetByUser(ctx context.Context, userID string) ([]Event, error)

	// GetRange retrieves events within a time range, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
