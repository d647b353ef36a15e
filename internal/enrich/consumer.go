// Package enrich implements the slow-path enrichment consumer. It drains the
// bookmark queue in batches, captures a page screenshot, derives visual
// metadata (blurhash, image dimensions, re-hosted favicon), and archives a
// message only when both steps finished.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	// Registered decoders for the image formats OG images commonly use.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/buckket/go-blurhash"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/metrics"
	"github.com/linkhoard/linkhoard/internal/queue"
)

// Queue message results reported to the metrics counter.
const (
	resultArchived   = "archived"
	resultUnarchived = "processed_not_archived"
	resultFailed     = "failed"
)

// blurhash component counts. 4x3 keeps the hash short while preserving the
// dominant color layout.
const (
	blurXComponents = 4
	blurYComponents = 3
)

// Config controls batch size and redelivery cadence for the consumer.
type Config struct {
	BatchSize  int
	Visibility time.Duration
}

// Consumer processes enrichment jobs from the queue.
type Consumer struct {
	cfg     Config
	queue   queue.Queue
	store   bookmarks.Store
	blobs   bookmarks.BlobStore
	shots   bookmarks.ScreenshotCapturer
	fetcher AssetFetcher
	log     *zap.Logger
}

// NewConsumer wires a consumer. The capturer may be nil when screenshots are
// disabled; image-only jobs and the remaining-data step still run.
func NewConsumer(cfg Config, q queue.Queue, store bookmarks.Store, blobs bookmarks.BlobStore,
	shots bookmarks.ScreenshotCapturer, fetcher AssetFetcher, log *zap.Logger) (*Consumer, error) {
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("asset fetcher is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Visibility <= 0 {
		cfg.Visibility = 5 * time.Minute
	}
	return &Consumer{
		cfg:     cfg,
		queue:   q,
		store:   store,
		blobs:   blobs,
		shots:   shots,
		fetcher: fetcher,
		log:     log,
	}, nil
}

// RunOnce reads one batch and processes every message in it. A queue read
// failure is the only hard error; per-message failures are reported in the
// returned summary and the messages stay queued for redelivery.
func (c *Consumer) RunOnce(ctx context.Context) (bookmarks.ConsumerReport, error) {
	msgs, err := c.queue.Read(ctx, c.cfg.BatchSize, c.cfg.Visibility)
	if err != nil {
		return bookmarks.ConsumerReport{}, fmt.Errorf("read enrichment batch: %w", err)
	}

	report := bookmarks.ConsumerReport{Results: make([]bookmarks.MessageResult, 0, len(msgs))}
	for _, msg := range msgs {
		result := c.process(ctx, msg)
		report.ProcessedCount++
		switch {
		case result.Archived:
			report.ArchivedCount++
			metrics.ObserveEnrichmentMessage(resultArchived)
		case result.Success:
			metrics.ObserveEnrichmentMessage(resultUnarchived)
		default:
			report.FailedCount++
			metrics.ObserveEnrichmentMessage(resultFailed)
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func (c *Consumer) process(ctx context.Context, msg queue.Message) bookmarks.MessageResult {
	result := bookmarks.MessageResult{MessageID: msg.ID}

	var job bookmarks.EnrichmentJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		result.Error = fmt.Sprintf("malformed payload: %v", err)
		c.log.Warn("skipping malformed enrichment payload",
			zap.String("msg_id", msg.ID),
			zap.Int("read_ct", msg.ReadCount),
			zap.Error(err))
		return result
	}
	result.BookmarkID = job.BookmarkID

	shotOK := c.runScreenshot(ctx, job, &result)
	dataOK := c.runRemainingData(ctx, job, &result)

	if !shotOK || !dataOK {
		return result
	}
	result.Success = true

	if err := c.queue.Archive(ctx, msg.ID); err != nil {
		c.log.Warn("enrichment finished but archive failed",
			zap.String("msg_id", msg.ID),
			zap.Int64("bookmark_id", job.BookmarkID),
			zap.Error(err))
		result.Error = fmt.Sprintf("archive: %v", err)
		return result
	}
	result.Archived = true
	return result
}

// runScreenshot captures the page, uploads the PNG, and stores its URL.
// Direct-image bookmarks skip the step entirely; the image itself is the
// preview.
func (c *Consumer) runScreenshot(ctx context.Context, job bookmarks.EnrichmentJob, result *bookmarks.MessageResult) bool {
	if job.IsImage || c.shots == nil {
		return true
	}
	ok := false
	result.ScreenshotSuccess = &ok

	png, err := c.shots.Capture(ctx, job.URL)
	if err != nil {
		c.warnStep("screenshot capture failed", job, result, err)
		return false
	}
	url, err := c.blobs.Put(ctx, fmt.Sprintf("screenshots/%d.png", job.BookmarkID), "image/png", png)
	if err != nil {
		c.warnStep("screenshot upload failed", job, result, err)
		return false
	}
	if err := c.store.SetScreenshot(ctx, job.BookmarkID, url); err != nil {
		c.warnStep("screenshot record update failed", job, result, err)
		return false
	}
	ok = true
	return true
}

// runRemainingData derives blurhash and dimensions from the OG image, re-hosts
// the favicon, and writes the combined visual patch.
func (c *Consumer) runRemainingData(ctx context.Context, job bookmarks.EnrichmentJob, result *bookmarks.MessageResult) bool {
	ok := false
	result.RemainingDataSuccess = &ok

	rec, err := c.store.Get(ctx, job.BookmarkID)
	if err != nil {
		c.warnStep("load bookmark failed", job, result, err)
		return false
	}

	patch := bookmarks.VisualPatch{FavIcon: job.FavIcon}

	if rec.MetaData.OGImage != "" {
		blur, width, height, err := c.describeImage(ctx, rec.MetaData.OGImage)
		if err != nil {
			c.warnStep("og image analysis failed", job, result, err)
			return false
		}
		patch.OGImageBlurURL = blur
		patch.Width = width
		patch.Height = height
	}

	if job.FavIcon != "" {
		hosted, err := c.rehostFavicon(ctx, job)
		if err != nil {
			// A broken favicon should not hold the whole message hostage.
			c.log.Debug("favicon re-host failed, keeping original URL",
				zap.Int64("bookmark_id", job.BookmarkID),
				zap.Error(err))
		} else {
			patch.FavIcon = hosted
		}
	}

	if err := c.store.ApplyVisualPatch(ctx, job.BookmarkID, patch); err != nil {
		c.warnStep("visual patch failed", job, result, err)
		return false
	}
	ok = true
	return true
}

func (c *Consumer) describeImage(ctx context.Context, url string) (string, int, int, error) {
	data, _, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", 0, 0, fmt.Errorf("download og image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode og image: %w", err)
	}
	blur, err := blurhash.Encode(blurXComponents, blurYComponents, img)
	if err != nil {
		return "", 0, 0, fmt.Errorf("encode blurhash: %w", err)
	}
	bounds := img.Bounds()
	return blur, bounds.Dx(), bounds.Dy(), nil
}

func (c *Consumer) rehostFavicon(ctx context.Context, job bookmarks.EnrichmentJob) (string, error) {
	data, contentType, err := c.fetcher.Fetch(ctx, job.FavIcon)
	if err != nil {
		return "", fmt.Errorf("download favicon: %w", err)
	}
	url, err := c.blobs.Put(ctx, fmt.Sprintf("favicons/%d", job.BookmarkID), contentType, data)
	if err != nil {
		return "", fmt.Errorf("upload favicon: %w", err)
	}
	return url, nil
}

func (c *Consumer) warnStep(msg string, job bookmarks.EnrichmentJob, result *bookmarks.MessageResult, err error) {
	result.Error = err.Error()
	c.log.Warn(msg,
		zap.Int64("bookmark_id", job.BookmarkID),
		zap.String("url", job.URL),
		zap.Error(err))
}
