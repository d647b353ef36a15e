// Package memory provides a queue implementation for local development and
// tests, mimicking the visibility semantics of the durable backends.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/queue"
)

type message struct {
	id         int64
	visibleAt  time.Time
	readCount  int
	enqueuedAt time.Time
	archived   bool
	payload    []byte
}

// Queue is an in-memory visibility-timeout queue.
type Queue struct {
	mu       sync.Mutex
	nextID   int64
	messages []*message
	now      func() time.Time
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{now: time.Now}
}

// Send enqueues a payload, immediately visible.
func (q *Queue) Send(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.messages = append(q.messages, &message{
		id:         q.nextID,
		visibleAt:  q.now(),
		enqueuedAt: q.now(),
		payload:    append([]byte(nil), payload...),
	})
	return nil
}

// Read returns up to n visible messages, hiding each for the visibility
// window. Messages left unarchived reappear once the window elapses.
func (q *Queue) Read(_ context.Context, n int, visibility time.Duration) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []queue.Message
	for _, m := range q.messages {
		if len(out) >= n {
			break
		}
		if m.archived || m.visibleAt.After(now) {
			continue
		}
		m.visibleAt = now.Add(visibility)
		m.readCount++
		out = append(out, queue.Message{
			ID:         strconv.FormatInt(m.id, 10),
			ReadCount:  m.readCount,
			EnqueuedAt: m.enqueuedAt,
			Payload:    append([]byte(nil), m.payload...),
		})
	}
	return out, nil
}

// Archive marks a message as completed.
func (q *Queue) Archive(_ context.Context, msgID string) error {
	id, err := strconv.ParseInt(msgID, 10, 64)
	if err != nil {
		return queue.ErrNotFound
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.messages {
		if m.id == id && !m.archived {
			m.archived = true
			return nil
		}
	}
	return queue.ErrNotFound
}

// Pending reports the number of unarchived messages, visible or not.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, m := range q.messages {
		if !m.archived {
			count++
		}
	}
	return count
}

// SetClock overrides the time source. Test hook.
func (q *Queue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}
