package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/metrics"
	queuememory "github.com/linkhoard/linkhoard/internal/queue/memory"
)

func TestEnqueueDeliversJobToQueue(t *testing.T) {
	t.Parallel()
	metrics.Init()

	q := queuememory.NewQueue()
	d := New(Config{Workers: 1, Depth: 4}, q, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Enqueue(bookmarks.EnrichmentJob{BookmarkID: 7, URL: "https://example.com", UserID: "user-1"})

	require.Eventually(t, func() bool {
		msgs, err := q.Read(context.Background(), 1, time.Minute)
		if err != nil || len(msgs) == 0 {
			return false
		}
		var job bookmarks.EnrichmentJob
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &job))
		require.Equal(t, int64(7), job.BookmarkID)
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestEnqueueNeverBlocksWhenBufferIsFull(t *testing.T) {
	t.Parallel()
	metrics.Init()

	// No running workers, so the buffer fills and stays full.
	d := New(Config{Workers: 1, Depth: 1}, queuememory.NewQueue(), zap.NewNop())

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Enqueue(bookmarks.EnrichmentJob{BookmarkID: int64(i)})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}
}
