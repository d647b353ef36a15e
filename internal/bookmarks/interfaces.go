package bookmarks

import (
	"context"
	"time"
)

// Store persists bookmark records.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	DuplicateExists(ctx context.Context, url string, categoryID int64) (bool, error)
	SetScreenshot(ctx context.Context, id int64, screenshotURL string) error
	ApplyVisualPatch(ctx context.Context, id int64, patch VisualPatch) error
}

// CategoryStore resolves category ownership and sharing grants.
type CategoryStore interface {
	Owner(ctx context.Context, categoryID int64) (string, error)
	Collaboration(ctx context.Context, categoryID int64, email string) (Collaboration, error)
}

// BlobStore writes derived assets and returns a URL they can be served from.
type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Scraper extracts page metadata for a URL. Failures degrade to a hostname
// fallback instead of an error; see ScrapeResult.Degraded.
type Scraper interface {
	Scrape(ctx context.Context, url string) ScrapeResult
}

// MediaClassifier decides whether a URL is a media asset rather than a page.
type MediaClassifier interface {
	Classify(ctx context.Context, url string) MediaClass
}

// EmbedProbe decides whether a page may be embedded in an iframe.
type EmbedProbe interface {
	CanEmbed(ctx context.Context, url string) bool
}

// ScreenshotCapturer renders a page and returns PNG bytes.
type ScreenshotCapturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
