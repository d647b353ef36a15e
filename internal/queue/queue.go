// Package queue defines the contract for the durable enrichment queue.
// Delivery is at-least-once: a message read but never archived becomes
// visible again after its visibility timeout elapses, and redelivery cadence
// is entirely the backend's concern.
package queue

import (
	"context"
	"errors"
	"time"
)

// DefaultName is the enrichment queue used by the ingestion pipeline.
const DefaultName = "add-bookmark-url-queue"

// ErrNotFound is returned by Archive when the message does not exist or was
// already archived. Archival is idempotent; callers may treat this as success.
var ErrNotFound = errors.New("queue: message not found")

// Message is a queued payload handed to a consumer.
type Message struct {
	ID         string
	ReadCount  int
	EnqueuedAt time.Time
	Payload    []byte
}

// Queue provides send/read/archive semantics over a named durable channel.
type Queue interface {
	// Send enqueues a payload.
	Send(ctx context.Context, payload []byte) error
	// Read returns up to n messages that are currently visible, hiding each
	// returned message for the visibility window.
	Read(ctx context.Context, n int, visibility time.Duration) ([]Message, error)
	// Archive marks a message as durably completed, removing it from future
	// redelivery.
	Archive(ctx context.Context, msgID string) error
}
