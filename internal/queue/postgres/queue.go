// Package postgres provides a Postgres-backed durable queue.
//
// It assumes a table schema like:
//
//	CREATE TABLE queue_messages (
//	    msg_id      BIGSERIAL PRIMARY KEY,
//	    queue_name  TEXT NOT NULL,
//	    vt          TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    read_ct     INT NOT NULL DEFAULT 0,
//	    enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    archived_at TIMESTAMPTZ,
//	    payload     JSONB NOT NULL
//	);
//	CREATE INDEX queue_messages_visible_idx
//	    ON queue_messages (queue_name, vt) WHERE archived_at IS NULL;
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkhoard/linkhoard/internal/queue"
)

// DB is the subset of pgxpool.Pool the queue needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queue implements queue.Queue on a shared Postgres message table.
type Queue struct {
	db   DB
	name string
}

// NewQueue creates a Queue bound to a named channel.
func NewQueue(db DB, name string) *Queue {
	if name == "" {
		name = queue.DefaultName
	}
	return &Queue{db: db, name: name}
}

// Send enqueues a payload, immediately visible.
func (q *Queue) Send(ctx context.Context, payload []byte) error {
	query := `
		INSERT INTO queue_messages (queue_name, payload)
		VALUES ($1, $2);
	`
	if _, err := q.db.Exec(ctx, query, q.name, payload); err != nil {
		return fmt.Errorf("queue send: %w", err)
	}
	return nil
}

// Read claims up to n visible messages and hides them for the visibility
// window. SKIP LOCKED keeps concurrent consumers from claiming the same rows.
func (q *Queue) Read(ctx context.Context, n int, visibility time.Duration) ([]queue.Message, error) {
	query := `
		UPDATE queue_messages
		SET vt = now() + $3 * interval '1 second', read_ct = read_ct + 1
		WHERE msg_id IN (
			SELECT msg_id FROM queue_messages
			WHERE queue_name = $1 AND archived_at IS NULL AND vt <= now()
			ORDER BY msg_id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING msg_id, read_ct, enqueued_at, payload;
	`
	rows, err := q.db.Query(ctx, query, q.name, n, int64(visibility.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("queue read: %w", err)
	}
	defer rows.Close()

	var out []queue.Message
	for rows.Next() {
		var (
			msgID      int64
			readCt     int
			enqueuedAt time.Time
			payload    []byte
		)
		if err := rows.Scan(&msgID, &readCt, &enqueuedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		out = append(out, queue.Message{
			ID:         strconv.FormatInt(msgID, 10),
			ReadCount:  readCt,
			EnqueuedAt: enqueuedAt,
			Payload:    payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	return out, nil
}

// Archive stamps a message as completed. Archiving an unknown or already
// archived message returns queue.ErrNotFound.
func (q *Queue) Archive(ctx context.Context, msgID string) error {
	id, err := strconv.ParseInt(msgID, 10, 64)
	if err != nil {
		return queue.ErrNotFound
	}
	query := `
		UPDATE queue_messages
		SET archived_at = now()
		WHERE msg_id = $1 AND queue_name = $2 AND archived_at IS NULL;
	`
	tag, err := q.db.Exec(ctx, query, id, q.name)
	if err != nil {
		return fmt.Errorf("queue archive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrNotFound
	}
	return nil
}
