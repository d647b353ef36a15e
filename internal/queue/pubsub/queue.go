// Package pubsub adapts Google Cloud Pub/Sub to the queue contract.
//
// Publish maps to Send, a synchronous pull maps to Read, and Ack maps to
// Archive. Messages left unarchived are never nacked; they simply hit the
// subscription's ack deadline and redeliver, which is exactly the
// leave-in-queue retry semantics the consumer expects.
package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"

	"github.com/linkhoard/linkhoard/internal/queue"
)

// Queue implements queue.Queue over a Pub/Sub topic/subscription pair.
type Queue struct {
	client *gcppubsub.Client
	topic  *gcppubsub.Topic
	sub    *gcppubsub.Subscription

	mu      sync.Mutex
	pending map[string]pendingMessage
}

type pendingMessage struct {
	msg     *gcppubsub.Message
	claimed time.Time
}

// staleAfter bounds how long an unarchived ack handle is retained. By then
// the ack deadline has long passed and the broker has redelivered anyway.
const staleAfter = time.Hour

// NewQueue connects to Pub/Sub and verifies the topic and subscription exist.
func NewQueue(ctx context.Context, projectID, topicID, subscriptionID string) (*Queue, error) {
	client, err := gcppubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil || !ok {
		closeErr := client.Close()
		if err == nil {
			err = fmt.Errorf("topic %q does not exist", topicID)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("check topic: %w (close client: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("check topic: %w", err)
	}

	sub := client.Subscription(subscriptionID)
	ok, err = sub.Exists(ctx)
	if err != nil || !ok {
		closeErr := client.Close()
		if err == nil {
			err = fmt.Errorf("subscription %q does not exist", subscriptionID)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("check subscription: %w (close client: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("check subscription: %w", err)
	}

	sub.ReceiveSettings.Synchronous = true

	return &Queue{
		client:  client,
		topic:   topic,
		sub:     sub,
		pending: make(map[string]pendingMessage),
	}, nil
}

// Send publishes a payload and waits for the server ack, so enqueue failures
// surface to the caller instead of vanishing in a background batch.
func (q *Queue) Send(ctx context.Context, payload []byte) error {
	result := q.topic.Publish(ctx, &gcppubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Read pulls up to n messages. The visibility argument is advisory here:
// redelivery cadence belongs to the subscription's ack deadline.
func (q *Queue) Read(ctx context.Context, n int, visibility time.Duration) ([]queue.Message, error) {
	q.sweepStale()

	wait := visibility
	if wait <= 0 || wait > 5*time.Second {
		wait = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	var (
		mu  sync.Mutex
		out []queue.Message
	)
	err := q.sub.Receive(cctx, func(_ context.Context, m *gcppubsub.Message) {
		mu.Lock()
		defer mu.Unlock()
		if len(out) >= n {
			m.Nack()
			return
		}

		attempt := 1
		if m.DeliveryAttempt != nil {
			attempt = *m.DeliveryAttempt
		}
		q.mu.Lock()
		q.pending[m.ID] = pendingMessage{msg: m, claimed: time.Now()}
		q.mu.Unlock()

		out = append(out, queue.Message{
			ID:         m.ID,
			ReadCount:  attempt,
			EnqueuedAt: m.PublishTime,
			Payload:    m.Data,
		})
		if len(out) >= n {
			cancel()
		}
	})
	if err != nil && cctx.Err() == nil {
		return nil, fmt.Errorf("pubsub receive: %w", err)
	}
	return out, nil
}

// Archive acks a previously read message.
func (q *Queue) Archive(_ context.Context, msgID string) error {
	q.mu.Lock()
	entry, ok := q.pending[msgID]
	if ok {
		delete(q.pending, msgID)
	}
	q.mu.Unlock()

	if !ok {
		return queue.ErrNotFound
	}
	entry.msg.Ack()
	return nil
}

// Close stops the publisher and releases the client.
func (q *Queue) Close() error {
	q.topic.Stop()
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

func (q *Queue) sweepStale() {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)
	for id, entry := range q.pending {
		if entry.claimed.Before(cutoff) {
			delete(q.pending, id)
		}
	}
}
