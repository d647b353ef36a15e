package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/queue"
)

func TestSend(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "add-bookmark-url-queue")
	payload := []byte(`{"bookmarkId":7}`)

	mock.ExpectExec("INSERT INTO queue_messages").
		WithArgs("add-bookmark-url-queue", payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, q.Send(context.Background(), payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadReturnsClaimedMessages(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "add-bookmark-url-queue")
	enqueued := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{"msg_id", "read_ct", "enqueued_at", "payload"}).
		AddRow(int64(1), 1, enqueued, []byte(`{"bookmarkId":1}`)).
		AddRow(int64(2), 3, enqueued, []byte(`{"bookmarkId":2}`))

	mock.ExpectQuery("UPDATE queue_messages").
		WithArgs("add-bookmark-url-queue", 10, int64(300)).
		WillReturnRows(rows)

	msgs, err := q.Read(context.Background(), 10, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "1", msgs[0].ID)
	require.Equal(t, 3, msgs[1].ReadCount)
	require.Equal(t, []byte(`{"bookmarkId":2}`), msgs[1].Payload)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "")

	mock.ExpectQuery("UPDATE queue_messages").
		WithArgs(queue.DefaultName, 10, int64(300)).
		WillReturnRows(pgxmock.NewRows([]string{"msg_id", "read_ct", "enqueued_at", "payload"}))

	msgs, err := q.Read(context.Background(), 10, 5*time.Minute)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchive(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "add-bookmark-url-queue")

	mock.ExpectExec("UPDATE queue_messages").
		WithArgs(int64(42), "add-bookmark-url-queue").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, q.Archive(context.Background(), "42"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveMissingMessage(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "add-bookmark-url-queue")

	mock.ExpectExec("UPDATE queue_messages").
		WithArgs(int64(42), "add-bookmark-url-queue").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, q.Archive(context.Background(), "42"), queue.ErrNotFound)
}

func TestArchiveBadID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, "add-bookmark-url-queue")
	require.ErrorIs(t, q.Archive(context.Background(), "abc"), queue.ErrNotFound)
}
