package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/metrics"
	"github.com/linkhoard/linkhoard/internal/queue"
	queuememory "github.com/linkhoard/linkhoard/internal/queue/memory"
	storagememory "github.com/linkhoard/linkhoard/internal/storage/memory"
	storememory "github.com/linkhoard/linkhoard/internal/store/memory"
)

type fakeAsset struct {
	data        []byte
	contentType string
	err         error
}

type fakeFetcher struct {
	assets map[string]fakeAsset
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	asset, ok := f.assets[url]
	if !ok {
		return nil, "", errors.New("asset not found")
	}
	return asset.data, asset.contentType, asset.err
}

type fakeCapturer struct {
	calls int
	err   error
}

func (f *fakeCapturer) Capture(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

type archiveFailQueue struct {
	queue.Queue
}

func (q *archiveFailQueue) Archive(context.Context, string) error {
	return errors.New("broker unavailable")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func enqueueJob(t *testing.T, q queue.Queue, job bookmarks.EnrichmentJob) {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, q.Send(context.Background(), payload))
}

type fixture struct {
	queue    *queuememory.Queue
	store    *storememory.Store
	blobs    *storagememory.BlobStore
	capturer *fakeCapturer
	fetcher  *fakeFetcher
}

func newFixture() *fixture {
	metrics.Init()
	return &fixture{
		queue:    queuememory.NewQueue(),
		store:    storememory.NewStore(),
		blobs:    storagememory.NewBlobStore(),
		capturer: &fakeCapturer{},
		fetcher:  &fakeFetcher{assets: map[string]fakeAsset{}},
	}
}

func (f *fixture) consumer(t *testing.T) *Consumer {
	t.Helper()
	c, err := NewConsumer(Config{BatchSize: 10, Visibility: time.Minute},
		f.queue, f.store, f.blobs, f.capturer, f.fetcher, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestRunOnceArchivesWhenBothStepsSucceed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	rec, err := f.store.Insert(ctx, bookmarks.Record{
		URL:    "https://example.com/post",
		UserID: "user-1",
		MetaData: bookmarks.MetaData{
			OGImage: "https://example.com/og.png",
			FavIcon: "https://example.com/favicon.ico",
		},
	})
	require.NoError(t, err)

	f.fetcher.assets["https://example.com/og.png"] = fakeAsset{data: pngBytes(t, 64, 32), contentType: "image/png"}
	f.fetcher.assets["https://example.com/favicon.ico"] = fakeAsset{data: []byte("ico"), contentType: "image/x-icon"}

	enqueueJob(t, f.queue, bookmarks.EnrichmentJob{
		BookmarkID: rec.ID,
		URL:        rec.URL,
		UserID:     rec.UserID,
		FavIcon:    "https://example.com/favicon.ico",
	})

	report, err := f.consumer(t).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.ProcessedCount)
	require.Equal(t, 1, report.ArchivedCount)
	require.Zero(t, report.FailedCount)
	require.True(t, report.Results[0].Archived)
	require.Equal(t, 1, f.capturer.calls)

	got, err := f.store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.MetaData.Screenshot)
	require.NotEmpty(t, got.MetaData.OGImageBlurURL)
	require.Equal(t, 64, got.MetaData.Width)
	require.Equal(t, 32, got.MetaData.Height)
	require.Equal(t, "memory://favicons/1", got.MetaData.FavIcon)

	_, ok := f.blobs.Get("screenshots/1.png")
	require.True(t, ok)
	require.Zero(t, f.queue.Pending())
}

func TestRunOnceSkipsScreenshotForImages(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	rec, err := f.store.Insert(ctx, bookmarks.Record{
		URL:      "https://example.com/cat.jpg",
		UserID:   "user-1",
		MetaData: bookmarks.MetaData{OGImage: "https://example.com/cat.jpg"},
	})
	require.NoError(t, err)

	f.fetcher.assets["https://example.com/cat.jpg"] = fakeAsset{data: pngBytes(t, 10, 10), contentType: "image/png"}

	enqueueJob(t, f.queue, bookmarks.EnrichmentJob{
		BookmarkID: rec.ID,
		URL:        rec.URL,
		UserID:     rec.UserID,
		IsImage:    true,
	})

	report, err := f.consumer(t).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.ArchivedCount)
	require.Zero(t, f.capturer.calls)
	require.Nil(t, report.Results[0].ScreenshotSuccess)

	got, err := f.store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Empty(t, got.MetaData.Screenshot)
}

func TestRunOnceScreenshotFailureLeavesMessageQueued(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.capturer.err = errors.New("chrome crashed")
	ctx := context.Background()

	rec, err := f.store.Insert(ctx, bookmarks.Record{URL: "https://example.com", UserID: "user-1"})
	require.NoError(t, err)

	enqueueJob(t, f.queue, bookmarks.EnrichmentJob{BookmarkID: rec.ID, URL: rec.URL, UserID: rec.UserID})

	report, err := f.consumer(t).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.FailedCount)
	require.Zero(t, report.ArchivedCount)
	require.False(t, report.Results[0].Success)
	require.NotNil(t, report.Results[0].ScreenshotSuccess)
	require.False(t, *report.Results[0].ScreenshotSuccess)
	// The other step still ran.
	require.NotNil(t, report.Results[0].RemainingDataSuccess)
	require.True(t, *report.Results[0].RemainingDataSuccess)
	require.Equal(t, 1, f.queue.Pending())
}

func TestRunOnceMalformedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.queue.Send(ctx, []byte("not json")))

	report, err := f.consumer(t).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.ProcessedCount)
	require.Equal(t, 1, report.FailedCount)
	require.Nil(t, report.Results[0].ScreenshotSuccess)
	require.Nil(t, report.Results[0].RemainingDataSuccess)
	require.Equal(t, 1, f.queue.Pending())
}

func TestRunOnceArchiveFailureIsNotAFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	rec, err := f.store.Insert(ctx, bookmarks.Record{URL: "https://example.com", UserID: "user-1"})
	require.NoError(t, err)
	enqueueJob(t, f.queue, bookmarks.EnrichmentJob{BookmarkID: rec.ID, URL: rec.URL, UserID: rec.UserID})

	c, err := NewConsumer(Config{BatchSize: 10, Visibility: time.Minute},
		&archiveFailQueue{Queue: f.queue}, f.store, f.blobs, f.capturer, f.fetcher, zap.NewNop())
	require.NoError(t, err)

	report, err := c.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.ProcessedCount)
	require.Zero(t, report.ArchivedCount)
	require.Zero(t, report.FailedCount)
	require.True(t, report.Results[0].Success)
	require.False(t, report.Results[0].Archived)
	require.Contains(t, report.Results[0].Error, "archive")
}

func TestRunOnceEmptyQueue(t *testing.T) {
	t.Parallel()

	f := newFixture()
	report, err := f.consumer(t).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.ProcessedCount)
	require.Empty(t, report.Results)
}
