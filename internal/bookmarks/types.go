// Package bookmarks defines core types shared across subsystems.
package bookmarks

import "time"

// UncategorizedID is the sentinel category for bookmarks saved without a
// collection. Uncategorized bookmarks bypass ownership and duplicate checks.
const UncategorizedID int64 = 0

// Type distinguishes saved links from uploaded file kinds.
type Type string

// Bookmark type values persisted on each record.
const (
	TypeBookmark Type = "bookmark"
	TypeImage    Type = "image"
	TypeFile     Type = "file"
)

// MetaData holds the visual metadata derived for a bookmark. IframeAllowed is
// nil when embeddability was never evaluated (direct-media URLs and sites on
// the OG-image-preferred list).
type MetaData struct {
	FavIcon          string `json:"favIcon,omitempty"`
	OGImage          string `json:"ogImage,omitempty"`
	MediaType        string `json:"mediaType,omitempty"`
	OGImagePreferred bool   `json:"isOgImagePreferred,omitempty"`
	IframeAllowed    *bool  `json:"iframeAllowed"`
	OGImageBlurURL   string `json:"ogImgBlurUrl,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	Screenshot       string `json:"screenshot,omitempty"`
	VideoURL         string `json:"videoUrl,omitempty"`
}

// Record is the enriched bookmark entity persisted in the row store.
type Record struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	UserID      string    `json:"userId"`
	CategoryID  int64     `json:"categoryId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"type"`
	MetaData    MetaData  `json:"metaData"`
	Trash       bool      `json:"trash"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EnrichmentJob is the queue payload produced after a successful insert and
// consumed by the enrichment consumer. FavIcon carries the value captured at
// min-data time; IsImage is decided once and reused to skip the screenshot
// step for direct-image URLs.
type EnrichmentJob struct {
	BookmarkID int64  `json:"bookmarkId"`
	URL        string `json:"url"`
	UserID     string `json:"userId"`
	FavIcon    string `json:"favIcon,omitempty"`
	IsImage    bool   `json:"isImage"`
}

// AccessDecision is the transient result of an access check.
type AccessDecision struct {
	Allowed bool
	Reason  string
}

// ScrapeResult carries the page metadata extracted for a URL. All fields are
// best effort; Degraded holds the underlying scrape error when the scraper
// fell back to hostname-only metadata.
type ScrapeResult struct {
	Title       string
	Description string
	OGImage     string
	FavIcon     string
	Degraded    error
}

// MediaClass is the outcome of the direct-media probe.
type MediaClass struct {
	IsDirectMedia bool
	IsImage       bool
	ContentType   string
}

// Collaboration is a sharing grant on a category, keyed by collaborator email.
type Collaboration struct {
	CategoryID int64
	Email      string
	EditAccess bool
}

// VisualPatch is the overwrite-idempotent update applied by the remaining-data
// enrichment step. Zero-value fields are still written; repeating the step
// after a redelivery must converge on the same row state.
type VisualPatch struct {
	FavIcon        string
	OGImageBlurURL string
	Width          int
	Height         int
}

// MessageResult captures the per-message outcome of one consumer pass.
// ScreenshotSuccess and RemainingDataSuccess are nil when the message never
// reached that step (for example a malformed payload).
type MessageResult struct {
	MessageID            string `json:"messageId"`
	BookmarkID           int64  `json:"bookmarkId,omitempty"`
	Success              bool   `json:"success"`
	Archived             bool   `json:"archived"`
	ScreenshotSuccess    *bool  `json:"screenshotSuccess,omitempty"`
	RemainingDataSuccess *bool  `json:"remainingDataSuccess,omitempty"`
	Error                string `json:"error,omitempty"`
}

// ConsumerReport summarizes one consumer invocation.
type ConsumerReport struct {
	ProcessedCount int             `json:"processedCount"`
	ArchivedCount  int             `json:"archivedCount"`
	FailedCount    int             `json:"failedCount"`
	Results        []MessageResult `json:"results"`
}
