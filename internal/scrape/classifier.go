package scrape

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
)

// Classifier implements bookmarks.MediaClassifier with a HEAD content-type
// probe. URLs that do not answer the probe are treated as HTML pages.
type Classifier struct {
	client    *http.Client
	userAgent string
}

// NewClassifier builds a Classifier with a bounded HTTP client.
func NewClassifier(timeout time.Duration, userAgent string) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Classify reports whether rawURL points directly at a media asset instead of
// a page to be scraped.
func (c *Classifier) Classify(ctx context.Context, rawURL string) bookmarks.MediaClass {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return bookmarks.MediaClass{}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return bookmarks.MediaClass{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bookmarks.MediaClass{}
	}

	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return bookmarks.MediaClass{}
	}
	return ClassifyContentType(contentType)
}

// ClassifyContentType maps a parsed media type onto a MediaClass.
func ClassifyContentType(contentType string) bookmarks.MediaClass {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return bookmarks.MediaClass{IsDirectMedia: true, IsImage: true, ContentType: contentType}
	case strings.HasPrefix(contentType, "video/"),
		strings.HasPrefix(contentType, "audio/"),
		contentType == "application/pdf":
		return bookmarks.MediaClass{IsDirectMedia: true, ContentType: contentType}
	default:
		return bookmarks.MediaClass{ContentType: contentType}
	}
}
